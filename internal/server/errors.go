package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/nhle/task-tracker/internal/auth"
	"github.com/nhle/task-tracker/internal/tracker"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// statusFor maps an error to its HTTP status and client-facing body.
func statusFor(err error) (int, errorBody) {
	var verr *tracker.ValidationError
	var herr *echo.HTTPError

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorBody{Error: verr.Error(), Field: verr.Field}
	case errors.Is(err, tracker.ErrValidation):
		return http.StatusBadRequest, errorBody{Error: err.Error()}
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, errorBody{Error: err.Error()}
	case errors.Is(err, tracker.ErrForbidden):
		return http.StatusForbidden, errorBody{Error: "forbidden"}
	case errors.Is(err, tracker.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: "not found"}
	case errors.Is(err, tracker.ErrConflict):
		return http.StatusConflict, errorBody{Error: "conflict"}
	case errors.Is(err, tracker.ErrStorage):
		return http.StatusInternalServerError, errorBody{Error: "attachment storage failed"}
	case errors.As(err, &herr):
		msg, ok := herr.Message.(string)
		if !ok {
			msg = http.StatusText(herr.Code)
		}
		return herr.Code, errorBody{Error: msg}
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal error"}
	}
}

// handleError writes the JSON error response and logs server-side failures.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, body := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.requestLog(c).WithError(err).WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Request().URL.Path,
		}).Error("request failed")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		s.requestLog(c).WithError(err).Warn("writing error response")
	}
}

// badRequest reports a malformed request body or parameter.
func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}
