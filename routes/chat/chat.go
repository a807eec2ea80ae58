package chat

import (
	"github.com/gin-gonic/gin"

	"Chatrigo/controllers"
	svc "Chatrigo/pkg/services"
	"Chatrigo/pkg/store"
)

// Register registers chat routes (protected). Sends are rate limited per
// user inside the send pipeline.
func Register(g *gin.RouterGroup, st *store.Store, sender *svc.SendService) {
	g.GET("/sessions", controllers.ListSessions(st))
	g.POST("/sessions", controllers.CreateSession(st))
	g.GET("/messages", controllers.ListMessages(st))
	g.POST("/send", controllers.SendMessage(sender))
}
