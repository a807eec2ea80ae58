package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"Chatrigo/middleware"
	"Chatrigo/models"
	"Chatrigo/pkg/apperr"
	"Chatrigo/pkg/config"
	"Chatrigo/pkg/store"
	tokenstore "Chatrigo/pkg/token"
)

const (
	welcomePersona = "Chatrigo Assistant"
	welcomeAvatar  = "C"
	welcomePreview = "Halo! Selamat datang di Chatrigo 👋"
	welcomeMessage = "Halo! Selamat datang di Chatrigo 👋 Saya adalah asisten AI Anda. Bagaimana saya bisa membantu Anda hari ini?"
	justNow        = "Baru saja"
)

func userJSON(u *models.User) gin.H {
	return gin.H{"id": u.ID, "name": u.Name, "email": u.Email}
}

// Register creates an account together with its welcome session.
func Register(st *store.Store, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Name     string `json:"name" binding:"required,max=120"`
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required,min=6,max=72"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, bindingMessage(err))
			return
		}
		name := strings.TrimSpace(body.Name)
		if name == "" {
			badRequest(c, "name is required")
			return
		}

		user := models.User{Name: name, Email: body.Email}
		if err := user.SetPassword(body.Password); err != nil {
			// bcrypt counts bytes; multi-byte passwords can pass max=72
			if errors.Is(err, bcrypt.ErrPasswordTooLong) {
				badRequest(c, "password must be at most 72 bytes")
				return
			}
			respondError(c, apperr.Wrap(apperr.Internal, "Failed to register", err))
			return
		}
		err := st.CreateUserWithWelcome(c.Request.Context(), &user, store.Welcome{
			PersonaName:   welcomePersona,
			PersonaAvatar: welcomeAvatar,
			Preview:       welcomePreview,
			PreviewTime:   justNow,
			Message:       welcomeMessage,
			At:            time.Now(),
			Location:      loc,
		})
		if errors.Is(err, store.ErrEmailTaken) {
			badRequest(c, "Email already registered")
			return
		}
		if err != nil {
			respondError(c, apperr.Wrap(apperr.Internal, "Failed to register", err))
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": "Registrasi berhasil", "user": userJSON(&user)})
	}
}

// Login exchanges credentials for an access token.
func Login(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, bindingMessage(err))
			return
		}

		user, err := st.FindUserByEmail(c.Request.Context(), body.Email)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			respondError(c, apperr.Wrap(apperr.Internal, "Failed to log in", err))
			return
		}
		if user == nil || !user.CheckPassword(body.Password) {
			respondError(c, apperr.New(apperr.Unauthorized, "Invalid credentials"))
			return
		}

		tokenStr, _, err := tokenstore.Issue(config.JWTSecret, user.ID, time.Now())
		if err != nil {
			respondError(c, apperr.Wrap(apperr.Internal, "Failed to create token", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"accessToken": tokenStr, "user": userJSON(user)})
	}
}

// Logout revokes the presented token until it would have expired anyway.
func Logout() gin.HandlerFunc {
	return func(c *gin.Context) {
		jti, exp := middleware.CurrentToken(c)
		tokenstore.RevokeToken(jti, exp)
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}
