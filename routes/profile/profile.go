package profile

import (
	"github.com/gin-gonic/gin"

	"Chatrigo/controllers"
	"Chatrigo/pkg/store"
)

// Register registers protected profile routes on supplied router group
// expects the group to already have AuthMiddleware applied
func Register(g *gin.RouterGroup, st *store.Store) {
	g.GET("/profile", controllers.Profile(st))
}
