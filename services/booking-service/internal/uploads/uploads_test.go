package uploads

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/suavhq/suav/services/booking-service/internal/apperr"
)

func offlinePresigner() *s3.PresignClient {
	client := s3.New(s3.Options{
		Region: "us-east-1",
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "AKIDEXAMPLE", SecretAccessKey: "secret"}, nil
		}),
	})
	return s3.NewPresignClient(client)
}

func TestSignPutOwnPrefix(t *testing.T) {
	s := NewSigner(offlinePresigner(), "suav-media", 10*time.Minute)
	fixed := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	signed, err := s.SignPut(context.Background(), "m-1", "merchants/m-1/avatar.png", "image/png")
	if err != nil {
		t.Fatalf("SignPut: %v", err)
	}
	if signed.Method != "PUT" {
		t.Fatalf("method = %s", signed.Method)
	}
	u, err := url.Parse(signed.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(u.Path, "merchants/m-1/avatar.png") {
		t.Fatalf("key missing from url %s", signed.URL)
	}
	if u.Query().Get("X-Amz-Expires") != "600" {
		t.Fatalf("expires = %s", u.Query().Get("X-Amz-Expires"))
	}
	if !signed.ExpiresAt.Equal(fixed.Add(10 * time.Minute)) {
		t.Fatalf("expires_at = %s", signed.ExpiresAt)
	}
}

func TestSignPutRejectsForeignOrBadKeys(t *testing.T) {
	s := NewSigner(offlinePresigner(), "suav-media", 0)
	ctx := context.Background()

	cases := []struct {
		key, contentType string
		kind             apperr.Kind
	}{
		{"merchants/m-2/avatar.png", "image/png", apperr.KindUnauthorized},
		{"merchants/m-1/", "image/png", apperr.KindValidation},
		{"merchants/m-10/a.png", "image/png", apperr.KindUnauthorized},
		{"merchants/m-1/../m-2/a.png", "image/png", apperr.KindValidation},
		{"merchants/m-1/a.exe", "application/octet-stream", apperr.KindValidation},
		{"", "image/png", apperr.KindValidation},
	}
	for _, tc := range cases {
		_, err := s.SignPut(ctx, "m-1", tc.key, tc.contentType)
		if apperr.KindOf(err) != tc.kind {
			t.Fatalf("key %q: kind = %s, want %s (%v)", tc.key, apperr.KindOf(err), tc.kind, err)
		}
	}
}

func TestSignPutDisabled(t *testing.T) {
	s := NewSigner(nil, "", 0)
	if _, err := s.SignPut(context.Background(), "m-1", "merchants/m-1/a.png", "image/png"); apperr.KindOf(err) != apperr.KindUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
