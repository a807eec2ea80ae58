package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"Chatrigo/middleware"
	"Chatrigo/pkg/apperr"
	"Chatrigo/pkg/store"
)

func Profile(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := st.FindUserByID(c.Request.Context(), middleware.CurrentUserID(c))
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, apperr.New(apperr.NotFound, "User not found"))
			return
		}
		if err != nil {
			respondError(c, apperr.Wrap(apperr.Internal, "Failed to load profile", err))
			return
		}
		c.JSON(http.StatusOK, userJSON(user))
	}
}
