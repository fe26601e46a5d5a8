package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"essaygrader/config"
	"essaygrader/controllers"
	"essaygrader/internal/llm"
	"essaygrader/internal/metrics"
	"essaygrader/middlewares"
	"essaygrader/routes"
	"essaygrader/services"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to an optional YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A missing credential is fatal here, before the server accepts traffic.
	cfg, err := config.LoadConfig(ctx, *configPath)
	if err != nil {
		clog.FatalContextf(ctx, "Failed to load config: %v", err)
	}

	logger := newLogger(cfg.Log.Level)
	ctx = clog.WithLogger(ctx, logger)

	m := metrics.New(prometheus.DefaultRegisterer)
	completer, err := llm.New(ctx, cfg.LLMClientConfig(), m)
	if err != nil {
		clog.FatalContextf(ctx, "Failed to initialize LLM client: %v", err)
	}
	svc := services.NewScoringService(cfg, completer, m)

	router := setupRouter(cfg, logger, svc, m)
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server.start", "addr", srv.Addr, "provider", completer.Provider(), "model", completer.Model())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			clog.FatalContextf(ctx, "Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.LLM.Timeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server.shutdown_failed", "error", err)
	}
	logger.Info("server.stopped")
}

func newLogger(level string) *clog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
	return clog.New(h)
}

func setupRouter(cfg *config.Config, logger *clog.Logger, svc *services.ScoringService, m *metrics.Metrics) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middlewares.RequestContext(logger))
	router.Use(cors.New(corsConfig(cfg)))

	if cfg.Server.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	routes.SetupScoreRoutes(router, controllers.NewScoreController(svc, m, cfg.Server.MaxUploadBytes))
	return router
}

// corsConfig allows the configured origins. "*" echoes any origin back so
// credentialed requests keep working.
func corsConfig(cfg *config.Config) cors.Config {
	cc := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middlewares.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middlewares.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.AllowsAnyOrigin() {
		cc.AllowOriginFunc = func(string) bool { return true }
	} else {
		cc.AllowOrigins = cfg.Server.AllowedOrigins
	}
	return cc
}
