package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/rxdesk/rxdesk/internal/auth"
	"github.com/rxdesk/rxdesk/internal/observability"
	designerhttp "github.com/rxdesk/rxdesk/internal/printing/designer/http"
	templatehttp "github.com/rxdesk/rxdesk/internal/printing/templates/http"
	receipthttp "github.com/rxdesk/rxdesk/internal/receipt/http"
	"github.com/rxdesk/rxdesk/jobs"
	"github.com/rxdesk/rxdesk/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Auth    auth.Middleware
	Metrics *observability.Metrics

	TemplateHandler *templatehttp.Handler
	DesignerHandler *designerhttp.Handler
	ReceiptHandler  *receipthttp.Handler
	ReportHandler   *report.Handler
	JobHandler      *jobs.Handler
}

// NewRouter constructs the chi.Router with rxdesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/print", func(r chi.Router) {
		r.Use(params.Auth.Authenticate, PrintDocumentHeaders)
		if params.ReceiptHandler != nil {
			params.ReceiptHandler.MountRoutes(r)
		}
		if params.TemplateHandler != nil {
			params.TemplateHandler.MountRoutes(r)
		}
		if params.ReportHandler != nil {
			params.ReportHandler.MountRoutes(r)
		}
	})
	if params.DesignerHandler != nil {
		r.Group(func(r chi.Router) {
			r.Use(params.Auth.Authenticate, PrintDocumentHeaders)
			params.DesignerHandler.MountRoutes(r)
		})
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
