package handler

import (
	"context"
	"net/http"
	"strconv"

	"taskini/internal/common"

	"github.com/go-chi/chi/v5"
)

// PhotoReader opens a stored photo by ref.
type PhotoReader interface {
	Open(ctx context.Context, ref string) ([]byte, string, error)
}

type UploadHandler struct {
	photos PhotoReader
}

func NewUploadHandler(photos PhotoReader) *UploadHandler {
	return &UploadHandler{photos: photos}
}

func (h *UploadHandler) RegisterRoutes(r chi.Router) {
	r.Get("/*", h.serve)
}

func (h *UploadHandler) serve(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := h.photos.Open(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		common.RespondWithServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
