package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"Chatrigo/middleware"
	"Chatrigo/models"
	"Chatrigo/pkg/apperr"
	svc "Chatrigo/pkg/services"
	"Chatrigo/pkg/store"
	utils "Chatrigo/pkg/utills"
)

const (
	defaultMessageLimit = 100
	maxMessageLimit     = 200
)

func ListSessions(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions, err := st.ListSessions(c.Request.Context(), middleware.CurrentUserID(c))
		if err != nil {
			respondError(c, apperr.Wrap(apperr.Internal, "Failed to load sessions", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"sessions": sessions})
	}
}

// CreateSession opens an empty session with a new persona.
func CreateSession(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			PersonaName   string `json:"personaName" binding:"required,max=120"`
			PersonaAvatar string `json:"personaAvatar" binding:"max=500"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, bindingMessage(err))
			return
		}
		name := strings.TrimSpace(body.PersonaName)
		if name == "" {
			badRequest(c, "personaname is required")
			return
		}
		avatar := strings.TrimSpace(body.PersonaAvatar)
		if avatar == "" {
			avatar = utils.AvatarFor(name)
		}

		session := models.ChatSession{
			UserID:        middleware.CurrentUserID(c),
			PersonaName:   name,
			PersonaAvatar: avatar,
			IsOnline:      true,
		}
		if err := st.CreateSession(c.Request.Context(), &session); err != nil {
			respondError(c, apperr.Wrap(apperr.Internal, "Failed to create session", err))
			return
		}
		c.JSON(http.StatusCreated, gin.H{"session": session})
	}
}

// parseLimit clamps the limit query to [1, maxMessageLimit]. Missing,
// zero or non-numeric values use the default.
func parseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n == 0 {
		return defaultMessageLimit
	}
	return min(max(n, 1), maxMessageLimit)
}

func ListMessages(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := strings.TrimSpace(c.Query("sessionId"))
		if sessionID == "" {
			badRequest(c, "Session ID required")
			return
		}
		ctx := c.Request.Context()
		if _, err := st.FindSession(ctx, sessionID, middleware.CurrentUserID(c)); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(c, apperr.New(apperr.NotFound, "Chat session not found"))
				return
			}
			respondError(c, apperr.Wrap(apperr.Internal, "Failed to load messages", err))
			return
		}

		msgs, err := st.ListMessages(ctx, sessionID, parseLimit(c.Query("limit")))
		if err != nil {
			respondError(c, apperr.Wrap(apperr.Internal, "Failed to load messages", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": msgs})
	}
}

type sendRequest struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
}

func sentMessageJSON(m *models.Message) gin.H {
	return gin.H{"id": m.ID, "text": m.Text, "displayTime": m.DisplayTime}
}

func exchangeJSON(ex *svc.Exchange) gin.H {
	return gin.H{
		"userMessage": sentMessageJSON(ex.UserMessage),
		"botMessage":  sentMessageJSON(ex.BotMessage),
	}
}

// SendMessage runs the send pipeline for the authenticated user.
func SendMessage(sender *svc.SendService) gin.HandlerFunc {
	return func(c *gin.Context) {
		// worst case JSON is a \uXXXX escape per character
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(sender.MaxChars())*6+1024)
		var body sendRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondError(c, apperr.New(apperr.PayloadTooLarge, "Request body too large"))
				return
			}
			badRequest(c, "Session ID and message text required")
			return
		}
		ex, err := sender.Send(c.Request.Context(), middleware.CurrentUserID(c), body.SessionID, body.Text)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, exchangeJSON(ex))
	}
}
