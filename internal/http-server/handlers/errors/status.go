package errors

import (
	"fmt"
	"log/slog"
	"net/http"

	"beatwise/entity"
	"beatwise/lib/api/response"
	"beatwise/lib/sl"

	"github.com/go-chi/render"
)

// Status maps an error kind to the HTTP status of its response.
// Errors without a kind are internal.
func Status(err error) int {
	switch entity.KindOf(err) {
	case entity.KindNotFound:
		return http.StatusNotFound
	case entity.KindInvalidAmount,
		entity.KindInvalidCategory,
		entity.KindInvalidScope,
		entity.KindInvalidPage,
		entity.KindInvalidPlatform,
		entity.KindInvalidRequest,
		entity.KindInvalidAddress,
		entity.KindUnknownTask,
		entity.KindInvalidCode,
		entity.KindSelfReferral,
		entity.KindVerificationFailed:
		return http.StatusBadRequest
	case entity.KindAlreadyCompleted,
		entity.KindAlreadyReferred,
		entity.KindPrerequisiteNotMet,
		entity.KindDuplicate,
		entity.KindVersionConflict,
		entity.KindConflict:
		return http.StatusConflict
	case entity.KindQuotaExceeded:
		return http.StatusTooManyRequests
	case entity.KindInvalidSignature:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// Render writes err as a failed response. Domain errors keep their
// message; internal ones are logged and replaced by a generic text.
func Render(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := Status(err)
	render.Status(r, status)
	if entity.KindOf(err) == "" {
		logger.Error("internal error", sl.Err(err))
		render.JSON(w, r, response.Error("Internal error"))
		return
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", sl.Err(err), sl.Kind(string(entity.KindOf(err))))
	} else {
		logger.Debug("request rejected", sl.Err(err), sl.Kind(string(entity.KindOf(err))))
	}
	render.JSON(w, r, response.Fail(err))
}

// BadRequest reports a payload that could not be bound or validated.
func BadRequest(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	logger.Debug("bind request", sl.Err(err))
	Render(w, r, logger, entity.Errorf(entity.KindInvalidRequest, "Invalid request: %v", err))
}

// Unavailable is returned when the handler was wired without its service.
func Unavailable(w http.ResponseWriter, r *http.Request, logger *slog.Logger, service string) {
	logger.Error(fmt.Sprintf("%s service not available", service))
	render.Status(r, http.StatusServiceUnavailable)
	render.JSON(w, r, response.Error(fmt.Sprintf("%s service not available", service)))
}
