package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yuri/internal/domain"
	"yuri/internal/domain/models"
	"yuri/internal/domain/services"
	"yuri/internal/httputil"
	"yuri/internal/repository/memory"
	"yuri/internal/service/admin"
)

type stubResponder struct {
	got *services.ReplyRequest
	err error
}

func (s *stubResponder) Respond(_ context.Context, req *services.ReplyRequest) (*models.GenerationResult, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.GenerationResult{DisplayText: "ok and?", Backend: "gemini-2.5-flash"}, nil
}

type stubProviders struct {
	reset []string
}

func (s *stubProviders) Status() models.ProviderStatus {
	return models.ProviderStatus{
		Primary:   []models.BackendStatus{{Name: "gemini-2.5-flash", Eligible: true}},
		Secondary: models.PoolStatus{Size: 2},
	}
}

func (s *stubProviders) ResetBackend(name string) error {
	if name == "missing" {
		return domain.ErrNotFound
	}
	s.reset = append(s.reset, name)
	return nil
}

type apiFixture struct {
	store     *memory.Store
	responder *stubResponder
	providers *stubProviders
	handler   http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &apiFixture{
		store:     memory.NewStore(),
		responder: &stubResponder{},
		providers: &stubProviders{},
	}
	svc := admin.NewService(f.store, f.store, f.store, f.providers, 0, logger)

	mux := http.NewServeMux()
	Routes(mux, NewReplyHandler(f.responder, logger), NewAdminHandler(svc, logger))
	f.handler = mux
	return f
}

// do sends a request as a caller with the given role ("" for anonymous).
func (f *apiFixture) do(t *testing.T, method, path, role, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if role != "" {
		req = httputil.WithClaims(req, &models.Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "caller"},
			Role:             role,
		})
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) seed(t *testing.T, userID string, texts ...string) {
	t.Helper()
	at := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	for i, text := range texts {
		require.NoError(t, f.store.AppendTurn(context.Background(), &models.Turn{
			UserID:    userID,
			Role:      models.RoleUser,
			Parts:     []models.Part{models.TextPart(text)},
			CreatedAt: at.Add(time.Duration(i) * time.Second),
		}))
	}
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateReply(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodPost, "/api/replies", models.ClaimRoleService,
		`{"user_id":"42","text":"hi","image_base64":"YWJj"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"display_text":"ok and?","backend":"gemini-2.5-flash"}`, rec.Body.String())

	require.NotNil(t, f.responder.got)
	assert.Equal(t, "42", f.responder.got.UserID)
	assert.Equal(t, "hi", f.responder.got.Text)
	assert.Equal(t, []byte("abc"), f.responder.got.Image)
}

func TestCreateReply_LargeInlineImage(t *testing.T) {
	f := newAPIFixture(t)
	image := bytes.Repeat([]byte{0xAB}, 2<<20)
	body, err := json.Marshal(CreateReplyRequest{UserID: "42", Text: "look", ImageBase64: image})
	require.NoError(t, err)
	require.Greater(t, len(body), httputil.DefaultMaxBodyBytes)

	rec := f.do(t, http.MethodPost, "/api/replies", models.ClaimRoleService, string(body))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, f.responder.got)
	assert.Equal(t, image, f.responder.got.Image)
}

func TestCreateReply_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{name: "malformed json", body: `{"user_id":`, status: http.StatusBadRequest},
		{name: "unknown field", body: `{"user_id":"1","txt":"hi"}`, status: http.StatusBadRequest},
		{name: "validation", body: `{"user_id":"1"}`, err: domain.ErrValidation, status: http.StatusBadRequest},
		{name: "body too large", body: `{"user_id":"1","text":"` + strings.Repeat("a", 13<<20) + `"}`, status: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t)
			f.responder.err = tt.err
			rec := f.do(t, http.MethodPost, "/api/replies", models.ClaimRoleService, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	f := newAPIFixture(t)
	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/users/count"},
		{http.MethodGet, "/api/users/1/turns"},
		{http.MethodDelete, "/api/users/1/turns"},
		{http.MethodPut, "/api/users/1/flags/grudge"},
		{http.MethodDelete, "/api/turns"},
		{http.MethodGet, "/api/backends"},
	}
	for _, r := range routes {
		rec := f.do(t, r.method, r.path, models.ClaimRoleService, "")
		assert.Equal(t, http.StatusForbidden, rec.Code, r.method+" "+r.path)
	}
}

func TestTranscriptAndWipe(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "1", "a", "b", "c")
	f.seed(t, "2", "x")

	rec := f.do(t, http.MethodGet, "/api/users/1/turns?limit=2", models.ClaimRoleAdmin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var transcript TranscriptResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &transcript))
	assert.Equal(t, "1", transcript.UserID)
	require.Len(t, transcript.Turns, 2)
	assert.Equal(t, "b", transcript.Turns[0].Text())

	rec = f.do(t, http.MethodGet, "/api/users/count", models.ClaimRoleAdmin, "")
	assert.JSONEq(t, `{"count":2}`, rec.Body.String())

	rec = f.do(t, http.MethodDelete, "/api/users/1/turns", models.ClaimRoleAdmin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":3}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/users/1/turns", models.ClaimRoleAdmin, "")
	assert.JSONEq(t, `{"user_id":"1","turns":[]}`, rec.Body.String())

	rec = f.do(t, http.MethodDelete, "/api/turns", models.ClaimRoleAdmin, "")
	assert.JSONEq(t, `{"deleted":1}`, rec.Body.String())
}

func TestFlags(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPut, "/api/users/7/flags/grudge", models.ClaimRoleAdmin, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	held, err := f.store.HasFlag(context.Background(), "7", models.FlagGrudge)
	require.NoError(t, err)
	assert.True(t, held)

	rec = f.do(t, http.MethodGet, "/api/grudges", models.ClaimRoleAdmin, "")
	assert.JSONEq(t, `{"users":["7"]}`, rec.Body.String())

	rec = f.do(t, http.MethodDelete, "/api/users/7/flags/grudge", models.ClaimRoleAdmin, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/grudges", models.ClaimRoleAdmin, "")
	assert.JSONEq(t, `{"users":[]}`, rec.Body.String())

	rec = f.do(t, http.MethodPut, "/api/users/7/flags/crush", models.ClaimRoleAdmin, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBackends(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/backends", models.ClaimRoleAdmin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status models.ProviderStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 2, status.Secondary.Size)
	require.Len(t, status.Primary, 1)

	rec = f.do(t, http.MethodPost, "/api/backends/reset", models.ClaimRoleAdmin, `{"name":"gemini-2.5-flash"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/backends/reset", models.ClaimRoleAdmin, `{}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"gemini-2.5-flash", ""}, f.providers.reset)

	rec = f.do(t, http.MethodPost, "/api/backends/reset", models.ClaimRoleAdmin, `{"name":"missing"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 50},
		{"limit=10", 10},
		{"limit=0", 1},
		{"limit=9999", 500},
		{"limit=abc", 50},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/x?"+tt.query, bytes.NewReader(nil))
		assert.Equal(t, tt.want, QueryInt(r, "limit", 50, 1, 500), tt.query)
	}
}
