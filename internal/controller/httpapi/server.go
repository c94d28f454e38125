// Package httpapi exposes the board operations as a JSON HTTP API.
package httpapi

import (
	"net/http"
	"time"

	"github.com/Freeeeeet/assignment_board/internal/audit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Headers set by the auth proxy in front of the API.
const (
	HeaderActorID    = "X-Actor-ID"
	HeaderActorLabel = "X-Actor-Label"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", HeaderActorID, HeaderActorLabel},
			AllowCredentials: true,
		}))
	}
	r.Use(actor)

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/employees/{employeeID}/days/{date}/slots", func(r chi.Router) {
			r.Get("/", h.GetDay)
			r.Put("/", h.ReconcileDay)
			r.Delete("/", h.ClearDay)

			r.Route("/{slotKey}", func(r chi.Router) {
				r.Delete("/", h.RemoveSlot)
				r.Put("/lifecycle", h.SetLifecycle)
				r.Delete("/lifecycle", h.ClearLifecycle)
				r.Post("/cancellation", h.AttachCancellation)
				r.Delete("/cancellation", h.DetachCancellation)
			})
		})

		r.Get("/cancellations", h.ListCancellations)
	})

	return r
}

// NewServer wraps the router into an http.Server with sane timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// actor переносит пользователя из заголовков в контекст для аудита
func actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderActorID)
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := audit.WithActor(r.Context(), audit.Actor{ID: id, Label: r.Header.Get(HeaderActorLabel)})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
