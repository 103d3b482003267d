/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address for audit entries
  3. Logger:     zap request log + request counter
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/rotations/*    Rotation catalogue
  /api/sites/*        Sites
  /api/persons/*      Persons and their assignment history
  /api/assignments/*  Assignment write path and details
  /api/leaves         Medical leaves
  /api/absences       Absences
  /api/calendar/*     Month calendar and summary
  /api/audit-logs/*   Audit log
  /api/scenarios/*    Demo scenarios
  /healthz            Database ping
  /metrics            Prometheus (when metrics are enabled)

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/calendario/serve.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// DefaultAllowedOrigins is used when no origins are configured.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultAllowedOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.Logger, h.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-None-Match"},
		ExposedHeaders:   []string{"ETag"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics.Handler())
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/rotations", func(r chi.Router) {
			r.Get("/", h.ListRotations)
			r.Post("/", h.CreateRotation)
		})

		r.Route("/sites", func(r chi.Router) {
			r.Get("/", h.ListSites)
			r.Get("/{id}", h.GetSite)
		})

		r.Route("/persons", func(r chi.Router) {
			r.Get("/", h.ListPersons)
			r.Get("/{id}/assignments", h.ListPersonAssignments)
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Post("/", h.CreateAssignment)
			r.Post("/remove", h.RemoveAssignment)
			r.Get("/{id}", h.GetAssignment)
		})

		r.Post("/leaves", h.CreateLeave)
		r.Post("/absences", h.CreateAbsence)

		r.Route("/calendar", func(r chi.Router) {
			r.Get("/", h.GetCalendar)
			r.Get("/summary", h.GetCalendarSummary)
		})

		r.Route("/audit-logs", func(r chi.Router) {
			r.Get("/", h.ListAuditLogs)
			r.Post("/purge", h.PurgeAuditLogs)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

// requestLogger logs one line per request and counts it by route pattern.
func requestLogger(logger *zap.Logger, metrics *Metrics) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				route := r.URL.Path
				if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
					route = rctx.RoutePattern()
				}
				metrics.ObserveRequest(r.Method, route, status)
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", status),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(started)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("remote", r.RemoteAddr))
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
