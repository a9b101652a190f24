// Package server assembles the HTTP API: dependency wiring, middleware,
// routes, and lifecycle management.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/sage/config"
	configrepo "github.com/Ramsey-B/sage/internal/repositories/customerconfig"
	organizationrepo "github.com/Ramsey-B/sage/internal/repositories/organization"
	siterepo "github.com/Ramsey-B/sage/internal/repositories/site"
	"github.com/Ramsey-B/sage/pkg/audits"
	"github.com/Ramsey-B/sage/pkg/brands"
	"github.com/Ramsey-B/sage/pkg/crux"
	configservice "github.com/Ramsey-B/sage/pkg/customerconfig"
	"github.com/Ramsey-B/sage/pkg/events"
	"github.com/Ramsey-B/sage/pkg/graph"
	"github.com/Ramsey-B/sage/pkg/httpclient"
	"github.com/Ramsey-B/sage/pkg/ims"
	"github.com/Ramsey-B/sage/pkg/middleware"
	onboardingservice "github.com/Ramsey-B/sage/pkg/onboarding"
	auditroutes "github.com/Ramsey-B/sage/pkg/routes/audit"
	brandguidelineroutes "github.com/Ramsey-B/sage/pkg/routes/brandguidelines"
	configroutes "github.com/Ramsey-B/sage/pkg/routes/customerconfig"
	"github.com/Ramsey-B/sage/pkg/routes/health"
	onboardingroutes "github.com/Ramsey-B/sage/pkg/routes/onboarding"
	organizationroutes "github.com/Ramsey-B/sage/pkg/routes/organization"
	siteroutes "github.com/Ramsey-B/sage/pkg/routes/site"
	"github.com/Ramsey-B/sage/pkg/slack"
)

// Server is the HTTP API as a startup dependency. Start wires the object
// graph into the DI container, registers routes, and begins serving.
type Server struct {
	cfg     *config.Config
	logger  ectologger.Logger
	version string

	db    *DatabaseDependency
	redis *RedisDependency
	kafka *KafkaDependency
	graph *GraphDependency

	echo    *echo.Echo
	checker *health.Checker
}

// NewServer creates the HTTP server dependency
func NewServer(
	cfg *config.Config,
	logger ectologger.Logger,
	version string,
	db *DatabaseDependency,
	redis *RedisDependency,
	kafka *KafkaDependency,
	graph *GraphDependency,
) *Server {
	return &Server{
		cfg:     cfg,
		logger:  logger,
		version: version,
		db:      db,
		redis:   redis,
		kafka:   kafka,
		graph:   graph,
	}
}

func (s *Server) GetName() string {
	return "http_server"
}

func (s *Server) DependsOn() []string {
	return []string{"tracing", "database", "redis", "kafka", "graph"}
}

func (s *Server) Start(ctx context.Context) error {
	if err := s.registerDependencies(); err != nil {
		return err
	}

	e, err := s.buildEcho()
	if err != nil {
		return err
	}
	s.echo = e

	go func() {
		addr := fmt.Sprintf(":%d", s.cfg.Port)
		s.logger.Infof("Starting HTTP server on %s", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("HTTP server stopped unexpectedly")
		}
	}()

	s.checker.SetReady(true)
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.checker != nil {
		s.checker.SetReady(false)
	}
	if s.echo == nil {
		return nil
	}
	return s.echo.Shutdown(ctx)
}

// registerDependencies builds the object graph and registers everything
// route handlers resolve from the container.
func (s *Server) registerDependencies() error {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return fmt.Errorf("failed to create DI container: %w", err)
	}

	httpClient := httpclient.NewClient(httpclient.DefaultConfig(), s.logger)

	orgRepo := organizationrepo.NewRepository(s.db.DB, s.logger)
	siteRepo := siterepo.NewRepository(s.db.DB, s.logger)
	configRepo := configrepo.NewRepository(s.db.DB, s.logger)

	emitter := events.NewEmitter(
		s.kafka.Producer,
		s.cfg.KafkaEventsEnabled,
		s.cfg.KafkaConfigEventsTopic,
		s.cfg.KafkaOnboardingEventsTopic,
		s.logger,
	)
	projector := graph.NewProjector(s.graph.Client, s.cfg.GraphSyncEnabled, s.logger)
	configSvc := configservice.NewService(configRepo, emitter, projector, s.logger)

	tokenManager := ims.NewTokenManager(httpClient, s.redis.Client, ims.Config{
		BaseURL:      s.cfg.IMSBaseURL,
		ClientID:     s.cfg.IMSClientID,
		ClientSecret: s.cfg.IMSClientSecret,
		Scopes:       s.cfg.IMSScopes,
		SkewSeconds:  int(s.cfg.IMSTokenTTLSkew / time.Second),
	}, s.logger)
	brandsClient := brands.NewClient(httpClient, tokenManager, s.cfg.BrandAPIBaseURL, s.logger)
	slackClient := slack.NewClient(httpClient, s.cfg.SlackBaseURL, s.cfg.SlackBotToken, s.cfg.SlackDefaultChannel, s.logger)
	cruxClient := crux.NewClient(httpClient, s.redis.Client, crux.Config{
		BaseURL:  s.cfg.CruxBaseURL,
		APIKey:   s.cfg.CruxAPIKey,
		CacheTTL: s.cfg.CruxCacheTTL,
	}, s.logger)
	detector := audits.NewDetector(httpClient, s.logger)

	onboardingSvc := onboardingservice.NewService(
		orgRepo,
		siteRepo,
		tokenManager,
		configSvc,
		slackClient,
		emitter,
		s.logger,
	)

	if err := ectoinject.RegisterInstance[*organizationrepo.Repository](container, orgRepo); err != nil {
		return fmt.Errorf("failed to register organization repository: %w", err)
	}
	if err := ectoinject.RegisterInstance[*siterepo.Repository](container, siteRepo); err != nil {
		return fmt.Errorf("failed to register site repository: %w", err)
	}
	if err := ectoinject.RegisterInstance[*configservice.Service](container, configSvc); err != nil {
		return fmt.Errorf("failed to register config service: %w", err)
	}
	if err := ectoinject.RegisterInstance[*brands.Client](container, brandsClient); err != nil {
		return fmt.Errorf("failed to register brands client: %w", err)
	}
	if err := ectoinject.RegisterInstance[*crux.Client](container, cruxClient); err != nil {
		return fmt.Errorf("failed to register crux client: %w", err)
	}
	if err := ectoinject.RegisterInstance[*audits.Detector](container, detector); err != nil {
		return fmt.Errorf("failed to register bot blocker detector: %w", err)
	}
	if err := ectoinject.RegisterInstance[*onboardingservice.Service](container, onboardingSvc); err != nil {
		return fmt.Errorf("failed to register onboarding service: %w", err)
	}

	return nil
}

// buildEcho assembles the echo instance: middleware chain, error handler,
// metrics endpoint, and the versioned API routes.
func (s *Server) buildEcho() (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.ReadTimeout = time.Duration(s.cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(s.cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(s.cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = s.cfg.MaxHeaderBytes

	e.HTTPErrorHandler = middleware.Error(s.logger)

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: s.cfg.AllowOrigins,
		AllowMethods: s.cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(s.cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(s.logger))

	if s.cfg.AuthEnabled {
		authMiddleware, err := middleware.Authentication(s.logger, s.cfg.AuthIssuerURL, s.cfg.AuthClientID)
		if err != nil {
			return nil, fmt.Errorf("failed to create auth middleware: %w", err)
		}
		e.Use(authMiddleware)
	}

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")

	s.checker = health.NewChecker(s.db.DB, s.redis.Client, s.version)
	s.checker.Register(api.Group("/health"))

	organizationroutes.Register(api.Group("/organizations"))

	sites := api.Group("/sites")
	siteroutes.Register(sites)
	brandguidelineroutes.Register(sites)
	auditroutes.Register(sites)

	configroutes.Register(api.Group("/customer-configs"))
	onboardingroutes.Register(api.Group("/onboarding"))

	return e, nil
}
