package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/phdlabs/admind/internal/config"
	"github.com/phdlabs/admind/internal/handler"
	"github.com/phdlabs/admind/internal/model"
	"github.com/phdlabs/admind/internal/server/middleware"
	"github.com/phdlabs/admind/internal/service"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	EnableUI        bool
	MaxBodySize     int64 // bytes
	UploadDir       string
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
	// Production enables HTTPS redirects and HSTS.
	Production bool
	// LoginRateLimit caps sign-in and refresh attempts per IP and minute.
	LoginRateLimit int
	// RateLimit caps authenticated API requests per IP and minute. Zero
	// disables it.
	RateLimit int
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		EnableUI:        true,
		MaxBodySize:     20 * 1024 * 1024, // 20MB, room for evidence uploads
		UploadDir:       "uploads",
		LoginRateLimit:  10,
		RateLimit:       600,
	}
}

// Server is the top-level HTTP server of admind. It owns the Chi router, the
// configuration store and the authentication service.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *config.Store
	authSvc    *service.AuthService
	rdb        *redis.Client
	uploads    *handler.Uploads
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. rdb is only used for readiness checks and may be nil.
func New(cfg Config, store *config.Store, authSvc *service.AuthService, rdb *redis.Client, logger *slog.Logger) (*Server, error) {
	uploads, err := handler.NewUploads(cfg.UploadDir)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:     cfg,
		store:   store,
		authSvc: authSvc,
		rdb:     rdb,
		uploads: uploads,
		logger:  logger,
	}
	s.setupRouter()
	return s, nil
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.SecureHeaders(s.cfg.Production))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))
	if s.cfg.MaxBodySize > 0 {
		r.Use(chimw.RequestSize(s.cfg.MaxBodySize))
	}

	// --- Health checks (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	// --- OpenAPI document (no auth required) ---
	r.Get("/openapi.json", handler.ServeOpenAPI)

	// --- Uploaded images and evidence ---
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", noDirListing(http.FileServer(http.Dir(s.uploads.Dir())))))

	r.Route("/api/v1", s.apiRoutes)

	// --- Server rendered console ---
	if s.cfg.EnableUI {
		s.consoleRoutes(r)
	}

	s.router = r
}

func (s *Server) apiRoutes(r chi.Router) {
	store := s.store
	privileges := s.authSvc.PrivilegeCache()

	authHandler := handler.NewAuthHandler(store, s.authSvc, s.cfg.SecureCookies)
	adminHandler := handler.NewAdminHandler(store, privileges, s.uploads)
	adminTypeHandler := handler.NewAdminTypeHandler(store, privileges)
	userHandler := handler.NewUserHandler(store, s.uploads)
	dashHandler := handler.NewDashboardHandler(store)
	assessmentHandler := handler.NewAssessmentHandler(store, service.NewAssessmentService(store), s.uploads)
	policyHandler := handler.NewPolicyHandler(store, service.NewPolicyGenerator(store))

	// Sign in and token refresh are unauthenticated and rate limited.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitAuth(s.cfg.LoginRateLimit))
		r.Post("/admin/login", authHandler.Login)
		r.Post("/auth-admin/refresh-token", authHandler.Refresh)
	})
	r.Post("/auth-admin/logout", authHandler.Logout)

	// Everything else requires a bearer token.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(s.authSvc))
		if s.cfg.RateLimit > 0 {
			r.Use(middleware.RateLimit(s.cfg.RateLimit))
		}

		r.Get("/privilege", authHandler.Privileges)
		r.Get("/admin/me", authHandler.Me)

		// Admins
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePrivilege(s.authSvc, model.FunctionAdmins))
			r.Use(middleware.Activity(store, "admins", true))
			r.Get("/admin/admins", adminHandler.ListAdmins)
			r.Post("/admin/admins", adminHandler.CreateAdmin)
			r.Put("/admin/admins/update", adminHandler.UpdateAdmin)
			r.Delete("/admin/admins/delete/{ids}", adminHandler.DeleteAdmins)
			r.Get("/admin/admins/{id}", adminHandler.GetAdmin)
		})

		// Admin types and the function catalogue
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePrivilege(s.authSvc, model.FunctionAdminTypes))
			r.Use(middleware.Activity(store, "admin_types", true))
			r.Get("/admin/admin-type", adminTypeHandler.ListAdminTypes)
			r.Post("/admin/admin-type", adminTypeHandler.CreateAdminType)
			r.Put("/admin/admin-type", adminTypeHandler.UpdateAdminType)
			r.Delete("/admin/admin-type/delete/{ids}", adminTypeHandler.DeleteAdminTypes)
			r.Get("/admin/admin-type/{id}", adminTypeHandler.GetAdminType)
			r.Get("/admin/functions", adminTypeHandler.ListFunctions)
		})

		// Users
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePrivilege(s.authSvc, model.FunctionUsers))
			r.Use(middleware.Activity(store, "users", true))
			r.Get("/admin/users", userHandler.ListUsers)
			r.Post("/admin/users", userHandler.CreateUser)
			r.Put("/admin/users/update", userHandler.UpdateUser)
			r.Delete("/admin/users/delete/{ids}", userHandler.DeleteUsers)
			r.Get("/admin/users/{id}", userHandler.GetUser)
		})

		r.With(middleware.RequirePrivilege(s.authSvc, model.FunctionUserLogs)).
			Get("/admin/user-log", dashHandler.ListUserLogs)
		r.With(middleware.RequirePrivilege(s.authSvc, model.FunctionDashboard)).
			Get("/admin/overview", dashHandler.Overview)

		// Settings
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePrivilege(s.authSvc, model.FunctionSettings))
			r.Use(middleware.Activity(store, "settings", false))
			r.Get("/admin/settings", dashHandler.GetSettings)
			r.Put("/admin/settings", dashHandler.UpdateSettings)
		})

		// Readiness assessments and reports, open to every signed-in admin
		r.Get("/assessment/domains", assessmentHandler.Domains)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Activity(store, "assessments", false))
			r.Get("/assessments", assessmentHandler.ListAssessments)
			r.Post("/assessments", assessmentHandler.CreateAssessment)
			r.Get("/assessments/{id}", assessmentHandler.GetAssessment)
			r.Put("/assessments/{id}/answers", assessmentHandler.SaveAnswers)
			r.Post("/assessments/{id}/evidence/{questionId}", assessmentHandler.UploadEvidence)
			r.Post("/assessments/{id}/complete", assessmentHandler.CompleteAssessment)
		})
		r.Get("/reports", assessmentHandler.ListReports)
		r.Get("/reports/{id}", assessmentHandler.GetReport)
		r.Get("/reports/{id}/export", assessmentHandler.ExportReport)

		// Policy generator and library
		r.Get("/policy/options", policyHandler.Options)
		r.Post("/policy/generate", policyHandler.Generate)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Activity(store, "policies", false))
			r.Get("/policies", policyHandler.ListPolicies)
			r.Post("/policies", policyHandler.CreatePolicy)
			r.Delete("/policies/delete/{ids}", policyHandler.DeletePolicies)
			r.Get("/policies/{id}", policyHandler.GetPolicy)
			r.Put("/policies/{id}", policyHandler.UpdatePolicy)
			r.Get("/policies/{id}/versions", policyHandler.ListVersions)
			r.Get("/policies/{id}/export", policyHandler.ExportPolicy)
		})
	})
}

// noDirListing refuses directory paths so the upload directory cannot be
// enumerated.
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the database and, if
// configured, the cache are reachable, or 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		checks["database"] = "error: " + err.Error()
		status = "degraded"
	} else {
		checks["database"] = "ok"
	}
	if s.rdb != nil {
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			checks["cache"] = "error: " + err.Error()
			status = "degraded"
		} else {
			checks["cache"] = "ok"
		}
	}

	if status != "ok" {
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Listen for shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
