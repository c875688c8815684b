package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/suavhq/suav/libs/auth"
	"github.com/suavhq/suav/libs/httpx"
	"github.com/suavhq/suav/services/booking-service/internal/model"
	"github.com/suavhq/suav/services/booking-service/internal/uploads"
)

type URLSigner interface {
	SignPut(ctx context.Context, owner model.MerchantID, key, contentType string) (uploads.SignedURL, error)
}

type merchantResolver interface {
	MerchantID(ctx context.Context, who auth.Identity) (model.MerchantID, error)
}

type UploadHandler struct {
	signer    URLSigner
	merchants merchantResolver
	logger    *slog.Logger
}

func NewUploadHandler(signer URLSigner, merchants merchantResolver, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{signer: signer, merchants: merchants, logger: logger}
}

type signedURLRequest struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
}

// SignedURL issues a presigned PUT under the caller's merchant prefix.
func (h *UploadHandler) SignedURL(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	var req signedURLRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	merchantID, err := h.merchants.MerchantID(r.Context(), who)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	res, err := h.signer.SignPut(r.Context(), merchantID, req.Key, req.ContentType)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}
