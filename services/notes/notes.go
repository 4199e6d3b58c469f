// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package notes assembles the AI-classified notes service.
//
// This package wires storage, the account and session managers, the
// classification oracle, the ingestion engine and the HTTP router into one
// Service, the way the orchestrator wires its own components.
//
// # Usage
//
//	cfg := notes.Config{Port: 12210, DataDir: "./data/notes"}
//	svc, err := notes.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = svc.Run(ctx)
package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/AleutianNotes/services/llm"
	"github.com/AleutianAI/AleutianNotes/services/notes/accounts"
	"github.com/AleutianAI/AleutianNotes/services/notes/ingest"
	"github.com/AleutianAI/AleutianNotes/services/notes/middleware"
	"github.com/AleutianAI/AleutianNotes/services/notes/observability"
	"github.com/AleutianAI/AleutianNotes/services/notes/oracle"
	"github.com/AleutianAI/AleutianNotes/services/notes/routes"
	"github.com/AleutianAI/AleutianNotes/services/notes/sessions"
	"github.com/AleutianAI/AleutianNotes/services/notes/storage"
)

const serviceName = "notes-service"

// Oracle backends.
const (
	BackendNone   = "none"
	BackendOpenAI = "openai"
	BackendOllama = "ollama"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the lifecycle of the notes service.
//
// # Thread Safety
//
// Run or Serve should be called at most once. Router may be used
// concurrently, for example from httptest.
type Service interface {
	// Run listens on the configured port and serves until ctx is cancelled
	// or the server fails. Resources are released before it returns.
	Run(ctx context.Context) error

	// Serve is Run on a caller-provided listener.
	Serve(ctx context.Context, ln net.Listener) error

	// Router returns the configured gin engine.
	Router() *gin.Engine

	// Close releases storage and tracing without serving. It is safe to
	// call after Run has returned.
	Close() error
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds everything New needs. Zero values are replaced by
// applyConfigDefaults.
type Config struct {
	// Port is the HTTP server port. Default: 12210
	Port int

	// DataDir is the badger directory. Default: "./data/notes"
	DataDir string

	// InMemory keeps all data in memory. Used by tests and demos.
	InMemory bool

	// SessionTTL is the lifetime of issued tokens. Default: 720h
	SessionTTL time.Duration

	// OracleBackend selects the classifier backend.
	// Valid values: "none", "openai", "ollama". Default: "none"
	OracleBackend string

	// OracleTimeout bounds each classification call. Default: 30s
	OracleTimeout time.Duration

	// OpenAI configures the "openai" backend.
	OpenAI llm.OpenAIConfig

	// Ollama configures the "ollama" backend.
	Ollama llm.OllamaConfig

	// Oracle overrides OracleBackend with a ready-made oracle.
	Oracle oracle.Oracle

	// OTelEndpoint is the OTLP gRPC collector address. Empty disables
	// tracing export.
	OTelEndpoint string

	// DisableMetrics turns off the /metrics endpoint and metric recording.
	DisableMetrics bool

	// GinMode sets the gin framework mode ("debug", "release", "test").
	// Empty leaves gin's current mode.
	GinMode string

	// AuthRateLimit is the per-IP request rate on auth routes.
	// Default: 5 requests per second
	AuthRateLimit float64

	// AuthRateBurst is the per-IP burst on auth routes. Default: 10
	AuthRateBurst int

	// CORSOrigins lists allowed origins. Default: ["*"]
	CORSOrigins []string

	// TrustedProxies lists proxy addresses or CIDRs whose X-Forwarded-For
	// and X-Real-IP headers are honoured when resolving the client IP.
	// Default: none, so the rate limiter keys on the TCP peer address.
	TrustedProxies []string

	// ShutdownTimeout bounds graceful shutdown. Default: 10s
	ShutdownTimeout time.Duration

	// Logger is the service logger. Default: slog.Default()
	Logger *slog.Logger
}

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12210
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./data/notes"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = sessions.DefaultTTL
	}
	cfg.OracleBackend = strings.ToLower(strings.TrimSpace(cfg.OracleBackend))
	if cfg.OracleBackend == "" {
		cfg.OracleBackend = BackendNone
	}
	if cfg.OracleTimeout <= 0 {
		cfg.OracleTimeout = oracle.DefaultTimeout
	}
	if cfg.AuthRateLimit <= 0 {
		cfg.AuthRateLimit = 5
	}
	if cfg.AuthRateBurst <= 0 {
		cfg.AuthRateBurst = 10
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}

// =============================================================================
// Implementation
// =============================================================================

type service struct {
	config        Config
	logger        *slog.Logger
	db            *storage.DB
	registry      *prometheus.Registry
	metrics       *observability.Metrics
	router        *gin.Engine
	tracerCleanup func(context.Context)

	closeOnce sync.Once
	closeErr  error
}

// New creates the notes Service.
//
// # Description
//
// New initializes components in dependency order:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing when an endpoint is set
//  3. Opens the document store
//  4. Builds the classification oracle for the configured backend
//  5. Builds the managers, the engine and the router
//
// On failure everything opened so far is released.
func New(cfg Config) (Service, error) {
	s := &service{config: applyConfigDefaults(cfg)}
	s.logger = s.config.Logger

	if s.config.OTelEndpoint != "" {
		cleanup, err := s.initTracer()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		s.tracerCleanup = cleanup
	}

	if !s.config.DisableMetrics {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		s.metrics = observability.NewMetrics(s.registry)
	}

	if err := s.initStorage(); err != nil {
		s.cleanup()
		return nil, err
	}

	o, err := s.initOracle()
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize oracle: %w", err)
	}

	if err := s.initRouter(o); err != nil {
		s.cleanup()
		return nil, err
	}
	return s, nil
}

// Run implements Service.
func (s *service) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.cleanup()
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve implements Service.
func (s *service) Serve(ctx context.Context, ln net.Listener) error {
	defer s.cleanup()

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Starting notes server", slog.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		s.logger.Info("Shutting down notes server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Router implements Service.
func (s *service) Router() *gin.Engine {
	return s.router
}

// Close implements Service.
func (s *service) Close() error {
	return s.cleanup()
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// initTracer sets up OTLP trace export over gRPC.
//
// The connection is insecure, which suits an in-cluster collector.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceProvider.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown tracer provider", slog.String("error", err.Error()))
		}
		_ = conn.Close()
	}
	s.logger.Info("OpenTelemetry tracing enabled", slog.String("endpoint", s.config.OTelEndpoint))
	return cleanup, nil
}

func (s *service) initStorage() error {
	var cfg storage.Config
	if s.config.InMemory {
		cfg = storage.InMemoryConfig()
	} else {
		cfg = storage.DefaultConfig(s.config.DataDir)
	}
	cfg.Logger = s.logger.With(slog.String("component", "badger"))

	db, err := storage.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open document store: %w", err)
	}
	s.db = db
	if cfg.InMemory {
		s.logger.Info("Document store opened in memory")
	} else {
		s.logger.Info("Document store opened", slog.String("path", cfg.Path))
	}
	return nil
}

// initOracle builds the classifier for the configured backend.
func (s *service) initOracle() (oracle.Oracle, error) {
	if s.config.Oracle != nil {
		return s.config.Oracle, nil
	}

	var (
		client llm.LLMClient
		err    error
	)
	switch s.config.OracleBackend {
	case BackendNone:
		s.logger.Info("No oracle backend configured, organize will always use the fallback decision")
		return oracle.Disabled{}, nil
	case BackendOpenAI:
		client, err = llm.NewOpenAIClient(s.config.OpenAI)
		s.logger.Info("Using OpenAI oracle backend")
	case BackendOllama:
		ollamaCfg := s.config.Ollama
		if ollamaCfg.Timeout <= 0 {
			ollamaCfg.Timeout = s.config.OracleTimeout
		}
		client, err = llm.NewOllamaClient(ollamaCfg)
		s.logger.Info("Using Ollama oracle backend")
	default:
		return nil, fmt.Errorf("unknown oracle backend %q", s.config.OracleBackend)
	}
	if err != nil {
		return nil, err
	}

	ocfg := oracle.DefaultConfig()
	ocfg.Timeout = s.config.OracleTimeout
	return oracle.NewLLMOracle(client, ocfg)
}

func (s *service) initRouter(o oracle.Oracle) error {
	accts, err := accounts.NewManager(s.db,
		accounts.WithMetrics(s.metrics),
		accounts.WithLogger(s.logger))
	if err != nil {
		return fmt.Errorf("failed to initialize account manager: %w", err)
	}
	sess := sessions.NewManager(s.db,
		sessions.WithTTL(s.config.SessionTTL),
		sessions.WithMetrics(s.metrics),
		sessions.WithLogger(s.logger))
	engine := ingest.NewEngine(s.db, o,
		ingest.WithMetrics(s.metrics),
		ingest.WithLogger(s.logger))

	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.New()
	if err := s.router.SetTrustedProxies(s.config.TrustedProxies); err != nil {
		return fmt.Errorf("invalid trusted proxies: %w", err)
	}
	s.router.Use(gin.Recovery())
	if gin.Mode() != gin.TestMode {
		s.router.Use(gin.Logger())
	}
	s.router.Use(otelgin.Middleware(serviceName))
	s.router.Use(middleware.CORS(s.config.CORSOrigins))

	deps := routes.Dependencies{
		Accounts:    accts,
		Sessions:    sess,
		Notes:       engine,
		AuthLimiter: middleware.NewRateLimiter(s.config.AuthRateLimit, s.config.AuthRateBurst),
		Logger:      s.logger,
	}
	if s.registry != nil {
		deps.Metrics = promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
	}
	routes.SetupRoutes(s.router, deps)
	return nil
}

// cleanup releases storage and tracing. Only the first call does work.
func (s *service) cleanup() error {
	s.closeOnce.Do(func() {
		if s.db != nil {
			if err := s.db.Close(); err != nil {
				s.closeErr = fmt.Errorf("close document store: %w", err)
			}
		}
		if s.tracerCleanup != nil {
			s.tracerCleanup(context.Background())
		}
	})
	return s.closeErr
}
