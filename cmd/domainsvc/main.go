package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmerrifield20/realtyhost/internal/cloudflare"
	"github.com/jmerrifield20/realtyhost/internal/config"
	"github.com/jmerrifield20/realtyhost/internal/domains/handler"
	"github.com/jmerrifield20/realtyhost/internal/domains/repository"
	"github.com/jmerrifield20/realtyhost/internal/domains/service"
	"github.com/jmerrifield20/realtyhost/internal/hosting"
	"github.com/jmerrifield20/realtyhost/internal/identity"
	"github.com/jmerrifield20/realtyhost/internal/reconciler"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	cfg, err := config.Load("domainsvc")
	if err != nil {
		fmt.Fprintf(os.Stderr, "domainsvc: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "domainsvc: build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("domainsvc exited with error", zap.Error(err))
	}
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	if cfg.Development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.File != "" {
		logger.Info("config loaded", zap.String("file", cfg.File))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Database ─────────────────────────────────────────────────────────────
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	logger.Info("database connected")

	tenants := repository.NewTenantRepository(pool)

	// ── Providers ────────────────────────────────────────────────────────────
	cf := cloudflare.NewClient(cloudflare.Config{
		BaseURL:   cfg.Cloudflare.APIURL,
		APIToken:  cfg.Cloudflare.APIToken,
		Timeout:   cfg.Cloudflare.Timeout,
		RateLimit: cfg.Cloudflare.RateLimitRPS,
	}, logger)
	if !cf.Configured() || cfg.Cloudflare.SystemZoneID == "" {
		logger.Warn("cloudflare credentials not configured; provisioning and status checks will be refused")
	} else {
		logger.Info("cloudflare configured",
			zap.String("api_token", config.MaskedToken(cfg.Cloudflare.APIToken)),
			zap.String("system_zone_id", cfg.Cloudflare.SystemZoneID),
		)
	}

	reg, err := hosting.NewClientFromCredentialsFile(ctx, hosting.Config{
		BaseURL:   cfg.Hosting.APIURL,
		ProjectID: cfg.Hosting.ProjectID,
		SiteID:    cfg.Hosting.SiteID,
		Timeout:   cfg.Hosting.Timeout,
	}, cfg.Hosting.CredentialsFile, logger)
	if err != nil {
		return fmt.Errorf("hosting client: %w", err)
	}
	if !reg.Configured() {
		logger.Warn("hosting registrar not configured; domains will not be registered with the hosting provider")
	}

	if cfg.Platform.BaseDomain == "" {
		logger.Warn("platform.base_domain not set; zone CNAMEs will be skipped")
	}

	provisioner := service.NewProvisioner(tenants, cf, reg, service.Config{
		SystemZoneID:       cfg.Cloudflare.SystemZoneID,
		PlatformBaseDomain: cfg.Platform.BaseDomain,
		APIConfigured:      cf.Configured(),
		HostCacheTTL:       cfg.Resolve.CacheTTL,
	}, logger)

	// ── Identity ─────────────────────────────────────────────────────────────
	tokens := identity.NewOperatorTokenIssuer([]byte(cfg.Auth.TokenSecret), cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if !tokens.Configured() {
		logger.Warn("auth.token_secret not set; all tenant domain endpoints will return 401")
	}

	domainHandler := handler.NewDomainHandler(provisioner, tokens, logger)

	// ── Reconciler ───────────────────────────────────────────────────────────
	rec := reconciler.New(tenants, provisioner, provisioner, reconciler.Config{
		Schedule:      cfg.Reconciler.Schedule,
		Concurrency:   cfg.Reconciler.Concurrency,
		BatchSize:     cfg.Reconciler.BatchSize,
		PruneSchedule: "@every 1m",
	}, logger)
	rec.SetMetricsRecord(handler.RecordReconcile)
	rec.SetPendingGauge(handler.SetPendingGauge)
	if err := rec.Start(); err != nil {
		return fmt.Errorf("start reconciler: %w", err)
	}
	defer rec.Stop()

	// ── HTTP Router ──────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(cfg.Server.CORSOrigins),
		MaxAge:           12 * time.Hour,
	}))

	// Security headers
	router.Use(func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})

	// Request body size limit (1 MB)
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20)
		c.Next()
	})

	rps := cfg.Server.RateLimitRPS
	router.Use(handler.RateLimiter(ctx, rps, int(rps*2)))
	router.Use(requestLogger(logger))
	router.Use(handler.PrometheusMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", handler.MetricsHandler())

	v1 := router.Group("/api/v1")
	domainHandler.Register(v1)

	// ── gRPC health ──────────────────────────────────────────────────────────
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	reflection.Register(grpcSrv)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if cfg.Server.GRPCPort > 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		go func() {
			logger.Info("domainsvc gRPC health listening", zap.Int("port", cfg.Server.GRPCPort))
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				logger.Error("gRPC serve error", zap.Error(err))
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("domainsvc HTTP listening", zap.Int("port", cfg.Server.Port))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP listen error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	<-quit
	logger.Info("shutting down domainsvc...")
	healthSrv.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}
	grpcSrv.GracefulStop()

	logger.Info("domainsvc stopped")
	return nil
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

// requestLogger returns a Gin middleware that logs each request with zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
