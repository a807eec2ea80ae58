package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"Chatrigo/middleware"
	"Chatrigo/pkg/config"
	"Chatrigo/pkg/logger"
	"Chatrigo/pkg/ratelimit"
	"Chatrigo/pkg/services"
	"Chatrigo/pkg/store"
	utils "Chatrigo/pkg/utills"
	"Chatrigo/routes"
)

func main() {
	config.Load()

	log, err := logger.Init(config.LogFile, config.IsProduction)
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	db, err := store.Open(config.DBDriver, config.DBDSN)
	if err != nil {
		log.Fatal("failed to connect database", zap.Error(err))
	}
	if err := store.Migrate(db); err != nil {
		log.Fatal("failed migrate", zap.Error(err))
	}
	st := store.New(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	window := time.Duration(config.RateLimitWindowSeconds) * time.Second
	sendLimiter, authLimiter := newLimiters(ctx, window)

	sender := services.NewSendService(st, sendLimiter, newCompleter(), services.SendConfig{
		MaxChars:     config.MaxMessageChars,
		HistoryTurns: config.ContextHistoryTurns,
		Location:     utils.LoadLocation(config.DisplayTimezone),
	})

	if config.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.NoStore())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     config.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Deps{
		Store:       st,
		Sender:      sender,
		AuthLimiter: authLimiter,
		AuthWindow:  window,
	})

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// a send may spend up to attempts x per-attempt timeout upstream
		WriteTimeout: time.Duration(config.CompletionMaxAttempts*config.CompletionTimeoutSeconds+15) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr), zap.String("env", config.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("could not listen", zap.String("addr", srv.Addr), zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server exited")
}

// newLimiters returns the per-user send limiter and the per-IP limiter for
// the public auth routes.
func newLimiters(ctx context.Context, window time.Duration) (ratelimit.Limiter, ratelimit.Limiter) {
	if config.RateLimitBackend == "redis" {
		client, err := ratelimit.NewRedisClient(ctx, config.RedisURL)
		if err != nil {
			logger.L.Fatal("failed to connect redis", zap.Error(err))
		}
		go func() {
			<-ctx.Done()
			_ = client.Close()
		}()
		logger.L.Info("using redis rate limiter")
		shared := ratelimit.NewRedis(client, window, config.RateLimitCapacity)
		auth := ratelimit.NewRedis(client, window, config.AuthRateLimitCapacity)
		return ratelimit.Scoped{Scope: "send", Next: shared}, ratelimit.Scoped{Scope: "auth", Next: auth}
	}
	if config.RateLimitBackend != "memory" {
		logger.L.Warn("unknown RATE_LIMIT_BACKEND, using memory", zap.String("backend", config.RateLimitBackend))
	}

	send := ratelimit.NewMemory(window, config.RateLimitCapacity)
	auth := ratelimit.NewMemory(window, config.AuthRateLimitCapacity)
	go send.Janitor(ctx, window)
	go auth.Janitor(ctx, window)
	return send, auth
}

func newCompleter() services.Completer {
	if config.CompletionBackend == "canned" {
		logger.L.Info("using canned completion backend")
		return services.NewCannedService()
	}
	if config.GeminiAPIKey == "" {
		logger.L.Warn("GEMINI_API_KEY is not set; sends will fail with a configuration error")
	}
	policy := services.DefaultRetryPolicy()
	policy.MaxAttempts = config.CompletionMaxAttempts
	policy.AttemptTimeout = time.Duration(config.CompletionTimeoutSeconds) * time.Second
	return services.NewGeminiService(config.GeminiAPIKey, config.GeminiModel, config.GeminiBaseURL,
		services.WithRetryPolicy(policy),
		services.WithHTTPClient(&http.Client{Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
		}}))
}
