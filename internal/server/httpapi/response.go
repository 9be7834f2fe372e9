package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/romvault/internal/common"
	"github.com/labstack/echo/v4"
)

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   Error  `json:"error"`
	TraceID string `json:"trace_id"`
}

func errorJSON(c echo.Context, status int, code, message string) error {
	return c.JSON(status, ErrorResponse{Error: Error{Code: code, Message: message}, TraceID: requestIDFromCtx(c)})
}

// writeError maps service sentinels to HTTP statuses. Messages are fixed per
// status so that no internal detail reaches the client.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorBadRequest):
		return errorJSON(c, http.StatusBadRequest, "bad_request", "invalid request")
	case errors.Is(err, common.ErrorUnauthorized):
		return errorJSON(c, http.StatusUnauthorized, "unauthorized", "unauthorized")
	case errors.Is(err, common.ErrorNotFound):
		return errorJSON(c, http.StatusNotFound, "not_found", "not found")
	default:
		return errorJSON(c, http.StatusInternalServerError, "internal", "internal error")
	}
}

func requestIDFromCtx(c echo.Context) string {
	if reqID := c.Response().Header().Get(echo.HeaderXRequestID); reqID != "" {
		return reqID
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}
