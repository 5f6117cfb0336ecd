package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"presenca-bot/internal/attendance"
	"presenca-bot/internal/models"
)

const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeValidation    = "validation_error"
	ErrCodeDuplicate     = "duplicate"
	ErrCodeNotFound      = "not_found"
	ErrCodeFileTooLarge  = "file_too_large"
	ErrCodeUploadFailed  = "upload_failed"
	ErrCodePersistFailed = "persist_failed"
	ErrCodeConflict      = "conflict"
	ErrCodeUnavailable   = "unavailable"
	ErrCodeInternalError = "internal_error"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIResponse is the envelope for every response. Exactly one of Data and Error is set.
type APIResponse struct {
	Data  any       `json:"data"`
	Error *APIError `json:"error"`
}

type participantResponse struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	StatusLabel string `json:"status_label"`
	Row         int    `json:"row,omitempty"`
}

func toParticipant(p models.Participant) participantResponse {
	return participantResponse{
		Name:        p.Name,
		Phone:       p.Phone,
		Type:        string(p.Type),
		Status:      string(p.Status),
		StatusLabel: p.Status.Label(),
		Row:         p.Row,
	}
}

func writeSuccess(c *gin.Context, status int, data any) {
	c.JSON(status, APIResponse{Data: data})
}

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, APIResponse{Error: &APIError{Code: code, Message: message}})
}

// writeServiceError maps attendance error kinds onto HTTP statuses.
func writeServiceError(c *gin.Context, err error) {
	detail := attendance.Detail(err)
	switch {
	case errors.Is(err, attendance.ErrValidation):
		writeError(c, http.StatusBadRequest, ErrCodeValidation, orDefault(detail, "invalid input"))
	case errors.Is(err, attendance.ErrDuplicate):
		writeError(c, http.StatusConflict, ErrCodeDuplicate, "participant already registered")
	case errors.Is(err, attendance.ErrNotFound):
		writeError(c, http.StatusNotFound, ErrCodeNotFound, "participant not found")
	case errors.Is(err, attendance.ErrFileTooLarge):
		writeError(c, http.StatusRequestEntityTooLarge, ErrCodeFileTooLarge, "file exceeds the upload limit")
	case errors.Is(err, attendance.ErrUpload):
		writeError(c, http.StatusBadGateway, ErrCodeUploadFailed, "could not store the proof, try again")
	case errors.Is(err, attendance.ErrConflict):
		writeError(c, http.StatusConflict, ErrCodeConflict, "participant changed, search again")
	case errors.Is(err, attendance.ErrPersist):
		writeError(c, http.StatusInternalServerError, ErrCodePersistFailed, persistMessage(err))
	case errors.Is(err, attendance.ErrUnavailable):
		writeError(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "participant list unavailable, try again later")
	default:
		writeError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
	}
}

func persistMessage(err error) string {
	var ae *attendance.Error
	if errors.As(err, &ae) && ae.Orphaned() {
		return "proof stored as " + ae.OrphanFile + " but the status was not updated"
	}
	return "could not save the record"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
