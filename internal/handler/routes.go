package handler

import (
	"net/http"

	"yuri/internal/middleware"
)

// Routes registers every API route on mux.
func Routes(mux *http.ServeMux, replies *ReplyHandler, admin *AdminHandler) {
	mux.HandleFunc("GET /health", Health)

	mux.HandleFunc("POST /api/replies", replies.CreateReply)

	mux.HandleFunc("GET /api/users/count", middleware.RequireAdmin(admin.CountUsers))
	mux.HandleFunc("GET /api/users/{id}/turns", middleware.RequireAdmin(admin.GetTranscript))
	mux.HandleFunc("DELETE /api/users/{id}/turns", middleware.RequireAdmin(admin.WipeUser))
	mux.HandleFunc("PUT /api/users/{id}/flags/{flag}", middleware.RequireAdmin(admin.SetFlag))
	mux.HandleFunc("DELETE /api/users/{id}/flags/{flag}", middleware.RequireAdmin(admin.ClearFlag))
	mux.HandleFunc("DELETE /api/turns", middleware.RequireAdmin(admin.WipeAll))
	mux.HandleFunc("GET /api/grudges", middleware.RequireAdmin(admin.ListGrudges))

	mux.HandleFunc("GET /api/backends", middleware.RequireAdmin(admin.GetBackends))
	mux.HandleFunc("POST /api/backends/reset", middleware.RequireAdmin(admin.ResetBackend))
}
