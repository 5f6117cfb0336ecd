package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"presenca-bot/internal/attendance"
	"presenca-bot/internal/models"
	"presenca-bot/internal/util"
)

type handler struct {
	svc       attendance.Service
	maxUpload int64
	log       zerolog.Logger
}

type registerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Type  string `json:"type"`
}

type confirmResponse struct {
	Participant      participantResponse `json:"participant"`
	AlreadySubmitted bool                `json:"already_submitted"`
	FileName         string              `json:"file_name,omitempty"`
}

func (h *handler) health(c *gin.Context) {
	writeSuccess(c, http.StatusOK, gin.H{"status": "ok", "ts": util.NowISO()})
}

func (h *handler) search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		writeError(c, http.StatusBadRequest, ErrCodeValidation, "query parameter q is required")
		return
	}

	out, err := h.svc.Search(c.Request.Context(), &attendance.SearchInput{Query: q})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	list := make([]participantResponse, 0, len(out.Matches))
	for _, p := range out.Matches {
		list = append(list, toParticipant(p))
	}
	writeSuccess(c, http.StatusOK, gin.H{"participants": list})
}

func (h *handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, ErrCodeBadRequest, "body must be a JSON object")
		return
	}

	out, err := h.svc.Register(c.Request.Context(), &attendance.RegisterInput{
		Name:  req.Name,
		Phone: req.Phone,
		Type:  models.ParticipantType(req.Type),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeSuccess(c, http.StatusCreated, toParticipant(out.Participant))
}

func (h *handler) confirm(c *gin.Context) {
	limit := h.maxUpload + formOverheadBytes
	if c.Request.ContentLength > limit {
		writeError(c, http.StatusRequestEntityTooLarge, ErrCodeFileTooLarge, "file exceeds the upload limit")
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(c, http.StatusRequestEntityTooLarge, ErrCodeFileTooLarge, "file exceeds the upload limit")
			return
		}
		writeError(c, http.StatusBadRequest, ErrCodeValidation, "file is required")
		return
	}
	name := c.PostForm("name")
	row := 0
	if raw := strings.TrimSpace(c.PostForm("row")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(c, http.StatusBadRequest, ErrCodeValidation, "row must be a positive integer")
			return
		}
		row = n
	}

	f, err := fh.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, ErrCodeBadRequest, "could not read file")
		return
	}
	defer f.Close()

	// one byte past the limit is enough for the size check
	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		writeError(c, http.StatusBadRequest, ErrCodeBadRequest, "could not read file")
		return
	}

	out, err := h.svc.Confirm(c.Request.Context(), &attendance.ConfirmInput{
		Name:  name,
		Row:   row,
		Proof: models.Proof{FileName: fh.Filename, Data: data},
	})
	if err != nil {
		h.log.Warn().Err(err).Str("request_id", c.GetString(ctxRequestID)).Msg("confirm failed")
		writeServiceError(c, err)
		return
	}

	writeSuccess(c, http.StatusOK, confirmResponse{
		Participant:      toParticipant(out.Participant),
		AlreadySubmitted: out.AlreadySubmitted,
		FileName:         out.FileName,
	})
}
