package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reinacchi/eris-giveaways/internal/common/errors"
	"github.com/reinacchi/eris-giveaways/internal/common/logger"
)

// ErrorResponse is the JSON shape of every error reply.
type ErrorResponse struct {
	Success   bool             `json:"success"`
	Error     *errors.AppError `json:"error"`
	Timestamp time.Time        `json:"timestamp"`
	RequestID string           `json:"request_id"`
}

// Recovery converts panics into structured 500 responses.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID := GetRequestID(c)

		logger.Error().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("panic", fmt.Sprintf("%v", recovered)).
			Str("stack", string(debug.Stack())).
			Msg("Panic recovered")

		appErr := errors.New(errors.ErrCodeInternal, "Internal server error").
			WithRequestID(requestID)
		SendError(c, appErr)
	})
}

// SendError writes an AppError response with the mapped status code.
func SendError(c *gin.Context, appErr *errors.AppError) {
	appErr.WithRequestID(GetRequestID(c))

	switch {
	case appErr.IsInternal():
		logger.Error().Err(appErr).Str("request_id", appErr.RequestID).Msg("Request failed")
	default:
		logger.Debug().Err(appErr).Str("request_id", appErr.RequestID).Msg("Request rejected")
	}

	c.AbortWithStatusJSON(statusCode(appErr), ErrorResponse{
		Success:   false,
		Error:     appErr,
		Timestamp: time.Now(),
		RequestID: appErr.RequestID,
	})
}

func statusCode(appErr *errors.AppError) int {
	switch appErr.Code {
	case errors.ErrCodeValidation, errors.ErrCodeBadRequest:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeGiveawayNotFound:
		return http.StatusNotFound
	case errors.ErrCodeConflict, errors.ErrCodeGiveawayEnded, errors.ErrCodeInvalidState:
		return http.StatusConflict
	case errors.ErrCodePlatformAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
