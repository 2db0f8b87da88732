package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tripflow/tripflow/api/handlers"
	"github.com/tripflow/tripflow/config"
	"github.com/tripflow/tripflow/engine/extract"
	"github.com/tripflow/tripflow/engine/intent"
	"github.com/tripflow/tripflow/engine/itinerary"
	"github.com/tripflow/tripflow/engine/orchestrator"
	"github.com/tripflow/tripflow/engine/registry"
	"github.com/tripflow/tripflow/engine/router"
	"github.com/tripflow/tripflow/engine/steps"
	"github.com/tripflow/tripflow/internal/archive"
	"github.com/tripflow/tripflow/internal/metrics"
	"github.com/tripflow/tripflow/internal/server"
	"github.com/tripflow/tripflow/internal/session"
	"github.com/tripflow/tripflow/providers/openai"
	"github.com/tripflow/tripflow/search"
)

// Server wires the engine, storage, and HTTP surface together.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	httpManager *server.Manager

	sessions     session.Store
	archiveStore *archive.Store
	collector    *metrics.Collector

	bgCancel context.CancelFunc
}

// NewServer creates a server for the given configuration.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, logger: logger}
}

// Start builds the dependency graph and begins serving.
func (s *Server) Start() error {
	if s.cfg.Metrics.Enabled {
		s.collector = metrics.NewCollector(s.cfg.Metrics.Namespace, s.logger)
	}

	if err := s.initStores(); err != nil {
		return err
	}

	orch, err := s.buildOrchestrator()
	if err != nil {
		return err
	}

	return s.startHTTPServer(orch)
}

func (s *Server) initStores() error {
	switch s.cfg.Session.Backend {
	case "redis":
		store, err := session.NewRedisStore(session.RedisConfig{
			Addr:         s.cfg.Session.RedisAddr,
			Password:     s.cfg.Session.RedisPass,
			DB:           s.cfg.Session.RedisDB,
			PoolSize:     s.cfg.Session.PoolSize,
			MinIdleConns: s.cfg.Session.MinIdleConns,
			SessionTTL:   s.cfg.Session.TTL,
		}, s.logger)
		if err != nil {
			return fmt.Errorf("failed to init redis session store: %w", err)
		}
		s.sessions = store
	default:
		s.sessions = session.NewMemoryStore()
		s.logger.Info("using in-memory session store")
	}

	if s.cfg.Archive.Enabled {
		store, err := archive.Open(s.cfg.Archive.Path, s.logger)
		if err != nil {
			// The audit trail is best-effort; the engine runs without it.
			s.logger.Warn("archive store unavailable", zap.Error(err))
		} else {
			s.archiveStore = store
		}
	}
	return nil
}

func (s *Server) buildOrchestrator() (*orchestrator.Orchestrator, error) {
	if s.cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("llm api_key is not configured")
	}

	provider := openai.New(openai.Config{
		APIKey:       s.cfg.LLM.APIKey,
		BaseURL:      s.cfg.LLM.BaseURL,
		DefaultModel: s.cfg.LLM.Model,
		Timeout:      s.cfg.LLM.Timeout,
	}, s.logger)

	var clients []search.Client
	if s.cfg.Search.TavilyAPIKey != "" {
		clients = append(clients, search.NewTavily(search.TavilyConfig{
			APIKey:  s.cfg.Search.TavilyAPIKey,
			Timeout: s.cfg.Search.Timeout,
		}, s.logger))
	}
	if s.cfg.Search.SerpAPIKey != "" {
		clients = append(clients, search.NewSerp(search.SerpConfig{
			APIKey:  s.cfg.Search.SerpAPIKey,
			Timeout: s.cfg.Search.Timeout,
		}, s.logger))
	}
	if len(clients) == 0 {
		s.logger.Warn("no search backend configured, research sections will degrade to fallbacks")
	}

	cfg := orchestrator.Config{
		Router:     router.New(intent.NewKeywordClassifier(), s.logger),
		Extractor:  extract.NewLLMExtractor(provider, s.cfg.LLM.Model, s.logger),
		Discoverer: steps.NewLLMDiscoverer(provider, s.cfg.LLM.Model, s.logger),
		Generator:  itinerary.NewGenerator(provider, s.cfg.LLM.Model, s.logger),
		Registry:   registry.New(s.logger),
		Steps: []steps.Step{
			steps.NewTransportStep(clients, s.logger),
			steps.NewStaysStep(clients, s.logger),
			steps.NewActivitiesStep(clients, s.logger),
		},
		Replacer: steps.NewReplacementFinder(clients, s.logger),
		Logger:   s.logger,
	}
	if s.collector != nil {
		cfg.Observer = s.collector
	}
	if s.archiveStore != nil {
		cfg.Archiver = s.archiveStore
	}
	return orchestrator.New(cfg), nil
}

func (s *Server) startHTTPServer(orch *orchestrator.Orchestrator) error {
	mux := http.NewServeMux()

	deps := map[string]handlers.Pinger{}
	if rs, ok := s.sessions.(*session.RedisStore); ok {
		deps["session_store"] = rs
	}
	healthHandler := handlers.NewHealthHandler(deps, s.logger).
		WithSessionCounter(s.sessions.Count)
	mux.Handle("/health", healthHandler)
	mux.HandleFunc("/healthz", handlers.Liveness)

	mux.Handle("/v1/chat", handlers.NewChatHandler(orch, s.sessions, s.logger))
	mux.Handle("/v1/refine", handlers.NewRefineHandler(orch, s.sessions, s.logger))

	if s.cfg.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
	}
	if s.collector != nil {
		middlewares = append(middlewares, MetricsMiddleware(s.collector))
		go s.runSessionGauge(bgCtx)
	}
	if s.cfg.RateLimit.Enabled {
		middlewares = append(middlewares, RateLimiter(bgCtx, s.cfg.RateLimit.RPS, s.cfg.RateLimit.Burst, s.logger))
	}
	handler := Chain(mux, middlewares...)

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     s.cfg.Server.IdleTimeout,
		MaxHeaderBytes:  1 << 20, // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}
	s.httpManager = server.NewManager(handler, serverConfig, s.logger)

	if err := s.httpManager.Start(); err != nil {
		return err
	}
	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// runSessionGauge refreshes the active-session gauge until ctx is done.
func (s *Server) runSessionGauge(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.sessions.Count(ctx)
			if err != nil {
				s.logger.Warn("session count unavailable", zap.Error(err))
				continue
			}
			s.collector.SetActiveSessions(n)
		}
	}
}

// WaitForShutdown blocks until a shutdown signal, then closes everything.
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown closes the HTTP server and backing stores.
func (s *Server) Shutdown() {
	s.logger.Info("starting graceful shutdown")

	if s.bgCancel != nil {
		s.bgCancel()
	}
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(context.Background()); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}
	if s.sessions != nil {
		if err := s.sessions.Close(); err != nil {
			s.logger.Error("session store close error", zap.Error(err))
		}
	}
	if s.archiveStore != nil {
		if err := s.archiveStore.Close(); err != nil {
			s.logger.Error("archive store close error", zap.Error(err))
		}
	}

	s.logger.Info("graceful shutdown completed")
}
