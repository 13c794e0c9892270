package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"parking_pay_echo/internal/services"
)

// errorResponse is the JSON envelope every error leaves the service in.
type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// JSONErrorHandler creates a custom error handler for Echo. Service-level
// sentinel errors map to their HTTP semantics; confirmation-path integrity
// errors are client errors and never mutate state.
func JSONErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, services.ErrLockerNotFound),
		errors.Is(err, services.ErrUnknownOrder),
		errors.Is(err, services.ErrNoPendingSession):
		code = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, services.ErrOrderMismatch):
		code = http.StatusConflict
		message = err.Error()
	case errors.Is(err, services.ErrCatalogUnavailable):
		code = http.StatusBadGateway
		message = "Upstream parking backend unavailable"
	case errors.Is(err, services.ErrAccountNotConfigured):
		code = http.StatusInternalServerError
		message = "Payment account not configured"
	default:
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if msg, ok := he.Message.(string); ok && msg != "" {
				message = msg
			} else {
				message = http.StatusText(code)
			}
		}
	}

	// Log the error
	c.Logger().Error(err)

	if c.Response().Committed {
		return
	}
	if jsonErr := c.JSON(code, errorResponse{Success: false, Message: message}); jsonErr != nil {
		c.Logger().Error(jsonErr)
	}
}
