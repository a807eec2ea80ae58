package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"Chatrigo/middleware"
	"Chatrigo/pkg/ratelimit"
	svc "Chatrigo/pkg/services"
	"Chatrigo/pkg/store"

	authRoutes "Chatrigo/routes/auth"
	chatRoutes "Chatrigo/routes/chat"
	profileRoutes "Chatrigo/routes/profile"
	websocketRoutes "Chatrigo/routes/websocket"
)

// Deps are the collaborators the handlers are built from.
type Deps struct {
	Store  *store.Store
	Sender *svc.SendService
	// AuthLimiter guards the public register/login routes per client IP.
	AuthLimiter ratelimit.Limiter
	AuthWindow  time.Duration
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Chatrigo backend running"})
	})
	r.GET("/healthz", healthz(deps.Store))

	websocketRoutes.Register(r, deps.Sender)
	authRoutes.RegisterPublic(r, deps.Store, deps.Sender.Location(),
		middleware.RateLimitByIP(deps.AuthLimiter, deps.AuthWindow))

	protected := r.Group("/")
	protected.Use(middleware.AuthMiddleware())
	authRoutes.RegisterProtected(protected)
	profileRoutes.Register(protected, deps.Store)
	chatRoutes.Register(protected, deps.Store, deps.Sender)
}

func healthz(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		sqlDB, err := st.DB().DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
