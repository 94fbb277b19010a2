package handler

import (
	"log/slog"
	"net/http"

	"yuri/internal/config"
	"yuri/internal/domain/models"
	"yuri/internal/domain/services"
	"yuri/internal/httputil"
)

// AdminHandler serves operator routes. All of them require the admin role.
type AdminHandler struct {
	admin  services.AdminService
	logger *slog.Logger
}

func NewAdminHandler(admin services.AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger}
}

// TranscriptResponse is returned by GET /api/users/{id}/turns
type TranscriptResponse struct {
	UserID string        `json:"user_id"`
	Turns  []models.Turn `json:"turns"`
}

// DeletedResponse reports how many turns a wipe removed
type DeletedResponse struct {
	Deleted int64 `json:"deleted"`
}

// ResetBackendRequest is the body of POST /api/backends/reset; empty name resets all
type ResetBackendRequest struct {
	Name string `json:"name"`
}

// GetTranscript returns a user's latest turns, oldest first
// GET /api/users/{id}/turns?limit=50
func (h *AdminHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	userID, ok := PathParam(w, r, "id", "User ID")
	if !ok {
		return
	}

	limit := QueryInt(r, "limit", config.DefaultHistoryLimit, 1, config.MaxHistoryLimit)
	turns, err := h.admin.Transcript(r.Context(), userID, limit)
	if err != nil {
		handleError(w, err)
		return
	}
	if turns == nil {
		turns = []models.Turn{}
	}

	httputil.RespondJSON(w, http.StatusOK, TranscriptResponse{UserID: userID, Turns: turns})
}

// WipeUser forgets one user's history and flags
// DELETE /api/users/{id}/turns
func (h *AdminHandler) WipeUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := PathParam(w, r, "id", "User ID")
	if !ok {
		return
	}

	n, err := h.admin.WipeUser(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	h.logger.Info("user wiped via API", "operator", httputil.GetUserID(r), "user_id", userID)
	httputil.RespondJSON(w, http.StatusOK, DeletedResponse{Deleted: n})
}

// WipeAll deletes every stored turn
// DELETE /api/turns
func (h *AdminHandler) WipeAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.admin.WipeAll(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	h.logger.Warn("all history wiped via API", "operator", httputil.GetUserID(r))
	httputil.RespondJSON(w, http.StatusOK, DeletedResponse{Deleted: n})
}

// SetFlag sets a disposition flag
// PUT /api/users/{id}/flags/{flag}
func (h *AdminHandler) SetFlag(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.flagRoute(w, r)
	if !ok {
		return
	}
	if err := h.admin.AddGrudge(r.Context(), userID); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearFlag clears a disposition flag
// DELETE /api/users/{id}/flags/{flag}
func (h *AdminHandler) ClearFlag(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.flagRoute(w, r)
	if !ok {
		return
	}
	if err := h.admin.RemoveGrudge(r.Context(), userID); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// flagRoute validates {id} and {flag}; grudge is the only flag today.
func (h *AdminHandler) flagRoute(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := PathParam(w, r, "id", "User ID")
	if !ok {
		return "", false
	}
	if flag := r.PathValue("flag"); flag != models.FlagGrudge {
		httputil.RespondError(w, http.StatusNotFound, "unknown flag: "+flag)
		return "", false
	}
	return userID, true
}

// ListGrudges lists users with a grudge
// GET /api/grudges
func (h *AdminHandler) ListGrudges(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.Grudges(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	if users == nil {
		users = []string{}
	}
	httputil.RespondJSON(w, http.StatusOK, map[string][]string{"users": users})
}

// CountUsers reports how many users have history
// GET /api/users/count
func (h *AdminHandler) CountUsers(w http.ResponseWriter, r *http.Request) {
	n, err := h.admin.CountUsers(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]int{"count": n})
}

// GetBackends returns breaker and pool state
// GET /api/backends
func (h *AdminHandler) GetBackends(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.admin.ProviderStatus())
}

// ResetBackend closes a backend's breaker
// POST /api/backends/reset
func (h *AdminHandler) ResetBackend(w http.ResponseWriter, r *http.Request) {
	var req ResetBackendRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.admin.ResetBackend(req.Name); err != nil {
		handleError(w, err)
		return
	}
	h.logger.Info("backend reset via API", "operator", httputil.GetUserID(r), "backend", req.Name)
	w.WriteHeader(http.StatusNoContent)
}
