// Package mockapi serves the KingChat HTTP API from the local SQLite store so
// the client can be exercised end to end without the hosted backend.
package mockapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kingchat/kingchat/internal/logging"
	"github.com/kingchat/kingchat/internal/store"
)

// Server holds the dependencies of the API handlers.
type Server struct {
	db     *store.DB
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewServer creates a server over a migrated database.
func NewServer(db *store.DB, cfg Config, logger *zap.Logger) *Server {
	return &Server{db: db, cfg: cfg, logger: logging.OrNop(logger), now: time.Now}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logging(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Correlation-ID"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/", s.root)
		r.Get("/health", s.health)
		r.With(RateLimit(s.cfg.RateLimitRequests, s.cfg.RateLimitWindow)).Post("/auth/demo-login", s.demoLogin)

		r.Group(func(r chi.Router) {
			r.Use(Auth(s.cfg.JWTSecret))
			r.Use(RateLimit(s.cfg.RateLimitRequests, s.cfg.RateLimitWindow))

			r.Get("/auth/me", s.me)

			r.Route("/chats", func(r chi.Router) {
				r.Get("/", s.listChats)
				r.Post("/", s.createChat)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.getChat)
					r.Delete("/", s.deleteChat)
					r.Post("/join", s.joinChat)
					r.Post("/leave", s.leaveChat)
					r.Get("/messages", s.listMessages)
					r.Post("/messages", s.sendMessage)
					r.Post("/read", s.markChatRead)
				})
			})

			r.Route("/messages/{id}", func(r chi.Router) {
				r.Put("/", s.editMessage)
				r.Delete("/", s.deleteMessage)
				r.Post("/read", s.markMessageRead)
				r.Post("/forward", s.forwardMessage)
				r.Post("/react", s.react)
				r.Delete("/react/{emoji}", s.unreact)
			})

			r.Get("/search/messages", s.searchMessages)

			r.Route("/privacy", func(r chi.Router) {
				r.Get("/", s.getGlobalPrivacy)
				r.Put("/", s.putGlobalPrivacy)
				r.Get("/contacts/{id}", s.getContactPrivacy)
				r.Put("/contacts/{id}", s.putContactPrivacy)
			})
		})
	})
	return r
}

// HTTPServer wraps the router with the configured timeouts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ServerReadTimeout,
		WriteTimeout: s.cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
}
