package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/rateboard/internal/authorization"
	heatmapdomain "github.com/smallbiznis/rateboard/internal/heatmap/domain"
	mismatchdomain "github.com/smallbiznis/rateboard/internal/ratemismatch/domain"
	"github.com/smallbiznis/rateboard/internal/session"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authorization.ErrUnauthenticated):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, mismatchdomain.ErrQueryFailed):
		return http.StatusBadGateway, errorPayload{
			Type:    "query_failed",
			Message: "source query failed",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, mismatchdomain.ErrSourceUnavailable),
		errors.Is(err, heatmapdomain.ErrDatasetUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code recorded on request logs.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if status == http.StatusBadRequest {
		code := payload.Type
		if len(payload.Errors) > 0 {
			code = payload.Errors[0].Code
		}
		return payload.Type, code
	}
	return payload.Type, http.StatusText(status)
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, heatmapdomain.ErrInvalidRange),
		errors.Is(err, heatmapdomain.ErrInvalidValueColumn),
		errors.Is(err, heatmapdomain.ErrInvalidColorScale),
		errors.Is(err, heatmapdomain.ErrInvalidBounds),
		errors.Is(err, heatmapdomain.ErrInvalidYear),
		errors.Is(err, session.ErrInvalidViewport):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, heatmapdomain.ErrDatasetNotFound),
		errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, mismatchdomain.ErrNoRuns):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, heatmapdomain.ErrInvalidRange):
		return heatmapdomain.ErrInvalidRange.Error()
	case errors.Is(err, heatmapdomain.ErrInvalidValueColumn):
		return heatmapdomain.ErrInvalidValueColumn.Error()
	case errors.Is(err, heatmapdomain.ErrInvalidColorScale):
		return heatmapdomain.ErrInvalidColorScale.Error()
	case errors.Is(err, heatmapdomain.ErrInvalidBounds):
		return heatmapdomain.ErrInvalidBounds.Error()
	case errors.Is(err, heatmapdomain.ErrInvalidYear):
		return heatmapdomain.ErrInvalidYear.Error()
	case errors.Is(err, session.ErrInvalidViewport):
		return session.ErrInvalidViewport.Error()
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_range":
		return "start must not be after end"
	case "invalid_value_column":
		return "value column is not a numeric column of the dataset"
	case "invalid_color_scale":
		return "unknown color scale"
	case "invalid_bounds":
		return "invalid color bounds"
	case "invalid_year":
		return "year must be current or previous"
	case "invalid_viewport":
		return "viewport needs a start on or before its end"
	default:
		return "invalid value"
	}
}
