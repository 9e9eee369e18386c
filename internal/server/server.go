package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/hongminglow/mess-be/internal/auth"
	"github.com/hongminglow/mess-be/internal/config"
	"github.com/hongminglow/mess-be/internal/http/handlers"
	"github.com/hongminglow/mess-be/internal/http/respond"
	"github.com/hongminglow/mess-be/internal/identity"
	"github.com/hongminglow/mess-be/internal/mess"
	"github.com/hongminglow/mess-be/internal/metrics"
	"github.com/hongminglow/mess-be/internal/middleware"
	"github.com/hongminglow/mess-be/internal/models"
	"github.com/hongminglow/mess-be/internal/storage"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up services, middleware and routes and returns a ready server.
func New(cfg config.Config, store storage.Store, log logrus.FieldLogger) *Server {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           NewRouter(cfg, store, log),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// NewRouter builds the full route table.
func NewRouter(cfg config.Config, store storage.Store, log logrus.FieldLogger) http.Handler {
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	accounts := identity.NewService(store, tokens, log)
	workflow := mess.NewService(store, accounts, log, mess.Options{
		Location:       cfg.Location,
		Overlap:        cfg.OverlapPolicy,
		MaxRequestDays: cfg.MaxRequestDays,
	})

	gate := auth.NewGate(tokens, store)
	guards := handlers.Guards{
		Any:     middleware.RequireRole(gate, ""),
		Student: middleware.RequireRole(gate, models.RoleStudent),
		Manager: middleware.RequireRole(gate, models.RoleManager),
	}
	if cfg.LoginRatePerMinute > 0 {
		guards.Login = middleware.NewRateLimiter(cfg.LoginRatePerMinute, cfg.LoginRatePerMinute).Handler
	}

	observe := func(next http.Handler) http.Handler {
		return middleware.Logging(log)(middleware.Metrics(next))
	}

	r := mux.NewRouter()
	r.Use(observe)
	// mux skips Use middleware for unmatched requests.
	r.NotFoundHandler = observe(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusNotFound, "route not found")
	}))
	r.MethodNotAllowedHandler = observe(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	}))

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	handlers.NewHealthHandler(time.Now(), store).Register(r)
	handlers.NewMenuHandler(store).Register(r)
	handlers.NewUserHandler(accounts, workflow).Register(r, guards)
	handlers.NewManagerHandler(accounts, workflow, cfg.ManagerSignupKey).Register(r, guards)

	return middleware.CORS(cfg.CORSOrigins)(r)
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
