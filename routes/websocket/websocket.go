package websocket

import (
	"github.com/gin-gonic/gin"

	"Chatrigo/controllers"
	svc "Chatrigo/pkg/services"
)

func Register(r *gin.Engine, sender *svc.SendService) {
	r.GET("/ws/chat", controllers.ChatWS(sender))
}
