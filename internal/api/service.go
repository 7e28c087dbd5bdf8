package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/vinaykumargajjela/care-link-appointments/internal/identity"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/config"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/interfaces"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/logger"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/monitoring"
)

// Dependencies are the collaborators served over HTTP
type Dependencies struct {
	Directory   interfaces.DirectoryStore
	Identity    interfaces.IdentityService
	Booking     interfaces.BookingEngine
	Tokens      *identity.TokenIssuer
	RateLimiter *RateLimiter
	Health      *monitoring.HealthManager
	Metrics     *monitoring.MetricsCollector
	Tracing     *monitoring.TracingManager
	Logger      *logger.Logger
}

// Service is the HTTP surface of the booking service
type Service struct {
	config      *config.Config
	router      *mux.Router
	handler     http.Handler
	server      *http.Server
	directory   interfaces.DirectoryStore
	identity    interfaces.IdentityService
	booking     interfaces.BookingEngine
	tokens      *identity.TokenIssuer
	rateLimiter *RateLimiter
	// trustedProxies may set X-Forwarded-For
	trustedProxies []*net.IPNet
	health         *monitoring.HealthManager
	metrics        *monitoring.MetricsCollector
	logger         *logger.Logger
}

// New creates the HTTP service and wires its routes and middleware
func New(cfg *config.Config, deps Dependencies) *Service {
	s := &Service{
		config:      cfg,
		router:      mux.NewRouter(),
		directory:   deps.Directory,
		identity:    deps.Identity,
		booking:     deps.Booking,
		tokens:      deps.Tokens,
		rateLimiter: deps.RateLimiter,
		health:      deps.Health,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
	}

	trusted, err := cfg.RateLimit.TrustedNetworks()
	if err != nil {
		deps.Logger.WithError(err).Warn("Ignoring trusted proxies, keying rate limits by peer address")
	}
	s.trustedProxies = trusted

	s.setupRoutes()

	monitor := monitoring.NewMonitoringMiddleware(deps.Metrics, deps.Tracing, deps.Logger, s.routeName)
	s.handler = monitor.HTTPMiddleware(
		s.recoveryMiddleware(
			s.securityHeadersMiddleware(
				s.corsMiddleware(
					s.rateLimitMiddleware(s.router)))))

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	return s
}

// setupRoutes configures the API routes
func (s *Service) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	api.HandleFunc("/doctors", s.handleListDoctors).Methods(http.MethodGet)
	api.HandleFunc("/doctors/{id}", s.handleGetDoctor).Methods(http.MethodGet)
	api.HandleFunc("/specializations", s.handleSpecializations).Methods(http.MethodGet)

	api.HandleFunc("/appointments", s.handleBookAppointment).Methods(http.MethodPost)
	api.HandleFunc("/appointments/{userId}", s.handleListAppointments).Methods(http.MethodGet)
	api.HandleFunc("/appointments/{id}/cancel", s.requireSession(s.handleCancelAppointment)).Methods(http.MethodPost)

	api.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", s.requireSession(s.handleLogout)).Methods(http.MethodPost)
	api.HandleFunc("/auth/profile", s.requireSession(s.handleUpdateProfile)).Methods(http.MethodPut)

	if s.config.Monitoring.Enabled && s.metrics != nil {
		s.router.Handle(s.config.Monitoring.MetricsPath, s.metrics.Handler()).Methods(http.MethodGet)
	}

	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.handleNotFound)
}

// routeName labels metrics and spans with the matched path template so ids
// in the URL do not explode metric cardinality
func (s *Service) routeName(r *http.Request) string {
	var match mux.RouteMatch
	if s.router.Match(r, &match) && match.Route != nil {
		if tmpl, err := match.Route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// Handler returns the fully wrapped HTTP handler
func (s *Service) Handler() http.Handler {
	return s.handler
}

// Start serves HTTP until Stop is called
func (s *Service) Start() error {
	s.logger.WithFields(map[string]interface{}{
		"addr":        s.server.Addr,
		"environment": s.config.Environment,
	}).Info("Starting booking API server")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down
func (s *Service) Stop(ctx context.Context) error {
	s.logger.Info("Stopping booking API server")
	return s.server.Shutdown(ctx)
}
