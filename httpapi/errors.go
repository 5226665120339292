package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/doujins-org/recokit/internalerr"
)

// Error codes returned in the error envelope.
const (
	CodeValidation = "validation_error"
	CodeNotFound   = "not_found"
	CodeInternal   = "internal_error"
	CodeHTTP       = "http_error"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func writeError(c echo.Context, status int, code, message string) error {
	return c.JSON(status, ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}

// serviceError maps a service error onto the envelope. Anything else goes to
// the error handler as a 500 and is logged by the request logger.
func serviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, internalerr.ErrInvalidInput):
		return writeError(c, http.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, internalerr.ErrNotFound):
		return writeError(c, http.StatusNotFound, CodeNotFound, err.Error())
	default:
		return err
	}
}

// errorHandler renders errors that escape handlers, including router 404s and
// recovered panics.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		}
		code := CodeHTTP
		if he.Code == http.StatusNotFound {
			code = CodeNotFound
		}
		_ = writeError(c, he.Code, code, msg)
		return
	}
	_ = writeError(c, http.StatusInternalServerError, CodeInternal, "internal server error")
}
