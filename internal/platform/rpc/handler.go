package rpc

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrorBody is the JSON envelope for every non-2xx response.
type ErrorBody struct {
	Code    Code   `json:"code,omitempty"`
	Message string `json:"message"`
}

// ErrorHandler renders service errors as ErrorBody with the status derived
// from their code. Server-side failures are logged.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := errorResponse(err)
		if status >= http.StatusInternalServerError {
			logger.Error().
				Err(err).
				Str("request_id", fmt.Sprintf("%v", c.Get("request_id"))).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error().Err(err).Msg("write error response")
		}
	}
}

func errorResponse(err error) (int, ErrorBody) {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return HTTPStatus(rpcErr.Code), ErrorBody{Code: rpcErr.Code, Message: rpcErr.Error()}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := fmt.Sprintf("%v", he.Message)
		return he.Code, ErrorBody{Code: CodeFromHTTPStatus(he.Code), Message: msg}
	}

	return http.StatusInternalServerError, ErrorBody{Code: CodeInternal, Message: err.Error()}
}
