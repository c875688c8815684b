// Package uploads hands out short-lived presigned URLs so clients can put
// profile and service images straight into object storage.
package uploads

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/suavhq/suav/services/booking-service/internal/apperr"
	"github.com/suavhq/suav/services/booking-service/internal/model"
)

// Presigner is the subset of the S3 presign client used by Signer.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type SignedURL struct {
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Key       string            `json:"key"`
	Headers   map[string]string `json:"headers,omitempty"`
	ExpiresAt time.Time         `json:"expires_at"`
}

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

type Signer struct {
	presigner Presigner
	bucket    string
	ttl       time.Duration
	now       func() time.Time
}

func NewSigner(p Presigner, bucket string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Signer{presigner: p, bucket: bucket, ttl: ttl, now: time.Now}
}

func (s *Signer) Enabled() bool {
	return s != nil && s.presigner != nil && s.bucket != ""
}

// KeyPrefix is the only prefix a merchant may upload under.
func KeyPrefix(id model.MerchantID) string {
	return "merchants/" + string(id) + "/"
}

// SignPut returns a PUT URL for key. The key must live under the merchant's own prefix.
func (s *Signer) SignPut(ctx context.Context, owner model.MerchantID, key, contentType string) (SignedURL, error) {
	if !s.Enabled() {
		return SignedURL{}, apperr.Upstream(fmt.Errorf("object storage not configured"), "uploads unavailable")
	}
	key = strings.TrimSpace(key)
	if key == "" || path.Clean(key) != key || strings.Contains(key, "..") {
		return SignedURL{}, apperr.Validation("invalid object key")
	}
	if !strings.HasPrefix(key, KeyPrefix(owner)) || len(key) == len(KeyPrefix(owner)) {
		return SignedURL{}, apperr.Unauthorized("object key must start with %s", KeyPrefix(owner))
	}
	if !allowedContentTypes[contentType] {
		return SignedURL{}, apperr.Validation("unsupported content type %q", contentType)
	}

	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return SignedURL{}, apperr.Upstream(err, "presign upload")
	}

	headers := make(map[string]string, len(req.SignedHeader))
	for k, v := range req.SignedHeader {
		if len(v) > 0 && !strings.EqualFold(k, "host") {
			headers[k] = v[0]
		}
	}
	return SignedURL{
		URL:       req.URL,
		Method:    req.Method,
		Key:       key,
		Headers:   headers,
		ExpiresAt: s.now().Add(s.ttl).UTC(),
	}, nil
}

// NewS3Presigner builds a presign client from the default AWS credential chain.
// endpoint overrides the S3 endpoint for S3-compatible stores such as MinIO.
func NewS3Presigner(ctx context.Context, region, endpoint string) (*s3.PresignClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return s3.NewPresignClient(client), nil
}
