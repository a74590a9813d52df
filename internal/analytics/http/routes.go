package analytichttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers report and file-set endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Post("/reports", h.handleReport)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Post("/reports/export.csv", h.handleCSV)
		gr.Post("/reports/export.xlsx", h.handleXLSX)
		gr.Post("/reports/export.pdf", h.handlePDF)
	})

	r.Route("/filesets", func(fr chi.Router) {
		fr.Post("/", h.handleCreateFileSet)
		fr.Delete("/{id}", h.handleDeleteFileSet)
		fr.Get("/{id}/report", h.handleFileSetReport)
		fr.Post("/{id}/filings", h.handleAppendFilings)
		fr.Delete("/{id}/filings/{filename}", h.handleRemoveFiling)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
