package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	bashttp "github.com/moveledger/moveledger/internal/bas/http"
	"github.com/moveledger/moveledger/internal/invoicing"
	"github.com/moveledger/moveledger/jobs"
	"github.com/moveledger/moveledger/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	InvoicingHandler *invoicing.Handler
	BASHandler       *bashttp.Handler
	ReportHandler    *report.Handler
	JobHandler       *jobs.Handler
}

// NewRouter constructs the chi.Router with the shared middleware chain.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	tokenHash := ""
	if params.Config != nil {
		tokenHash = params.Config.APITokenHash
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(TokenAuth(tokenHash, params.Logger))

		r.Group(params.InvoicingHandler.MountRoutes)
		r.Route("/reports", func(r chi.Router) {
			if params.BASHandler != nil {
				params.BASHandler.MountRoutes(r)
			}
			if params.ReportHandler != nil {
				params.ReportHandler.MountRoutes(r)
			}
		})
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
