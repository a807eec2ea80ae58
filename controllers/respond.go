package controllers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"Chatrigo/pkg/apperr"
	"Chatrigo/pkg/logger"
)

// errorBody is the JSON shape of every failed response.
func errorBody(err error) (int, gin.H) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		ae = apperr.Wrap(apperr.Internal, "Internal server error", err)
	}
	body := gin.H{"error": ae.Msg}
	if ae.Kind == apperr.UpstreamUnavailable && ae.Detail != "" {
		body["details"] = ae.Detail
	}
	return ae.Kind.HTTPStatus(), body
}

func respondError(c *gin.Context, err error) {
	status, body := errorBody(err)
	if status >= 500 {
		logger.L.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	respondError(c, apperr.New(apperr.BadRequest, msg))
}

// bindingMessage turns a ShouldBindJSON failure into a user-facing message.
func bindingMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "Invalid request body"
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email address", field))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}
