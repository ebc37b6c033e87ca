package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the report routes and their short aliases
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/generate-report", h.HandleGenerate)
	r.Get("/api/download-report/{filename}", h.HandleDownload)
	r.Get("/api/list-reports", h.HandleList)
	r.Get("/api/reports/{filename}", h.HandleGet)
	r.Get("/api/test-connection", h.HandleTestConnection)

	r.Post("/report", h.HandleGenerate)
	r.Get("/report/{filename}", h.HandleDownload)
	r.Get("/reports", h.HandleList)
	r.Get("/test-connection", h.HandleTestConnection)
}
