// handler.go

package upload

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/communityshare/server/internal/core"
	"github.com/communityshare/server/internal/resource"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/upload", h.CreateUploadURL)
	r.Get("/upload/{key:.+}", h.GetDownloadURL)
}

type uploadResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func (h *Handler) CreateUploadURL(w http.ResponseWriter, r *http.Request) {
	req, ok := resource.RequesterFrom(r.Context())
	if !ok {
		core.Unauthorized(w, "")
		return
	}

	key, url, err := h.service.PresignPut(r.Context(), req.ID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, uploadResponse{Key: key, URL: url})
}

func (h *Handler) GetDownloadURL(w http.ResponseWriter, r *http.Request) {
	if _, ok := resource.RequesterFrom(r.Context()); !ok {
		core.Unauthorized(w, "")
		return
	}

	key := chi.URLParam(r, "key")
	if key == "" {
		core.BadRequest(w, "object key required")
		return
	}

	url, err := h.service.PresignGet(r.Context(), key)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, uploadResponse{Key: key, URL: url})
}
