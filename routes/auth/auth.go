package auth

import (
	"time"

	"github.com/gin-gonic/gin"

	"Chatrigo/controllers"
	"Chatrigo/pkg/store"
)

// RegisterPublic registers public auth routes: /register, /login
func RegisterPublic(r *gin.Engine, st *store.Store, loc *time.Location, limit gin.HandlerFunc) {
	r.POST("/register", limit, controllers.Register(st, loc))
	r.POST("/login", limit, controllers.Login(st))
}

// RegisterProtected registers protected auth routes (e.g. logout)
func RegisterProtected(g *gin.RouterGroup) {
	g.POST("/logout", controllers.Logout())
}
