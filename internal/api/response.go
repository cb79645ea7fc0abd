package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"creamery/internal/apperr"
)

// APIError is the body of every error response
type APIError struct {
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindCertification:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err in the error envelope. Unclassified errors are
// logged and reported without their message.
func (s *SchedulingAPI) respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind == apperr.KindInternal {
		requestLogger(c, s.log).Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorEnvelope{Error: APIError{
			Message: "internal server error",
			Code:    string(apperr.KindInternal),
		}})
		return
	}

	c.JSON(statusFor(appErr.Kind), ErrorEnvelope{Error: APIError{
		Message: appErr.Message,
		Code:    string(appErr.Kind),
		Details: appErr.Details,
	}})
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorEnvelope{Error: APIError{
		Message: err.Error(),
		Code:    string(apperr.KindValidation),
	}})
}

func respondUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorEnvelope{Error: APIError{
		Message: message,
		Code:    "unauthorized",
	}})
}
