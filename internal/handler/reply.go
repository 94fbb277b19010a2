package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"yuri/internal/config"
	"yuri/internal/domain/models"
	"yuri/internal/domain/services"
	"yuri/internal/httputil"
)

// ReplyHandler exposes the reply orchestrator to command-layer callers.
type ReplyHandler struct {
	responder services.Responder
	logger    *slog.Logger
}

func NewReplyHandler(responder services.Responder, logger *slog.Logger) *ReplyHandler {
	return &ReplyHandler{responder: responder, logger: logger}
}

// CreateReplyRequest is the body of POST /api/replies.
// image_base64 carries an inline image instead of image_url.
type CreateReplyRequest struct {
	UserID        string           `json:"user_id"`
	Text          string           `json:"text,omitempty"`
	ImageURL      string           `json:"image_url,omitempty"`
	ImageBase64   []byte           `json:"image_base64,omitempty"`
	AudioURL      string           `json:"audio_url,omitempty"`
	AudioFilename string           `json:"audio_filename,omitempty"`
	Override      *models.Override `json:"override,omitempty"`
}

// CreateReply generates one reply
// POST /api/replies
//
// The body limit fits an inline image at the size ceiling; the image size
// decision itself belongs to the reply service.
func (h *ReplyHandler) CreateReply(w http.ResponseWriter, r *http.Request) {
	var body CreateReplyRequest
	if err := httputil.ParseJSONLimit(w, r, &body, config.MaxReplyBodyBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			handleError(w, err)
			return
		}
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.responder.Respond(r.Context(), &services.ReplyRequest{
		UserID:        body.UserID,
		Text:          body.Text,
		ImageURL:      body.ImageURL,
		Image:         body.ImageBase64,
		AudioURL:      body.AudioURL,
		AudioFilename: body.AudioFilename,
		Override:      body.Override,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	h.logger.Debug("reply served",
		"caller", httputil.GetUserID(r),
		"user_id", body.UserID,
		"backend", result.Backend,
	)
	httputil.RespondJSON(w, http.StatusOK, result)
}
