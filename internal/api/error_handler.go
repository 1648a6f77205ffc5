package api

import (
	"errors"
	"net/http"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/onboarding"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/storage"
	"github.com/gin-gonic/gin"
)

// APIError API 错误
type APIError struct {
	Code    int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrorHandlerMiddleware 处理 handler 通过 c.Error 留下的错误
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			Error(c, apiErr.Code, apiErr.Message, apiErr.Detail)
			return
		}
		status, message := StatusFor(err)
		detail := err.Error()
		if status == http.StatusInternalServerError {
			detail = ""
		}
		Error(c, status, message, detail)
	}
}

// WrapError 包装错误
func WrapError(err error, code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Detail:  err.Error(),
	}
}

// StatusFor 领域错误到 HTTP 状态码的唯一映射
func StatusFor(err error) (int, string) {
	var te *onboarding.TransitionError
	switch {
	case errors.As(err, &te):
		return http.StatusConflict, "invalid transition"
	case errors.Is(err, onboarding.ErrUnauthorized):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, onboarding.ErrRecordNotFound):
		return http.StatusNotFound, "onboarding record not found"
	case errors.Is(err, onboarding.ErrInvalidTransition):
		return http.StatusConflict, "invalid transition"
	case errors.Is(err, onboarding.ErrConcurrentModification):
		return http.StatusConflict, "concurrent modification, reload and retry"
	case errors.Is(err, onboarding.ErrAlreadyConfirmed):
		return http.StatusConflict, "already confirmed"
	case errors.Is(err, onboarding.ErrAlreadyExists):
		return http.StatusConflict, "onboarding record already exists"
	case errors.Is(err, onboarding.ErrValidation):
		return http.StatusUnprocessableEntity, "validation failed"
	case errors.Is(err, storage.ErrNotConfigured):
		return http.StatusServiceUnavailable, "document storage unavailable"
	}
	return http.StatusInternalServerError, "internal server error"
}

// HandleError 按领域错误写响应
func HandleError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, message := StatusFor(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = ""
	}
	Error(c, status, message, detail)
}
