package api

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DeFi-Agent/internal/agents"
	"DeFi-Agent/internal/auth"
	"DeFi-Agent/internal/chat"
	"DeFi-Agent/internal/config"
	"DeFi-Agent/internal/document"
	"DeFi-Agent/internal/files"
	"DeFi-Agent/internal/links"
	"DeFi-Agent/internal/llm/echo"
	"DeFi-Agent/internal/store"
	"DeFi-Agent/pkg/dto"
)

const testCookie = "defi_token"

type testServer struct {
	*Server
	files *files.MemoryStorage
}

func newTestServer(t *testing.T, mutate ...func(*config.ServerConfig)) *testServer {
	t.Helper()
	repo := store.NewMemory()
	authSvc, err := auth.NewService(auth.Config{Secret: "test-secret"}, repo, auth.NewMemoryNonceStore())
	require.NoError(t, err)

	registry := agents.NewRegistry()
	agents.RegisterBuiltins(registry, nil)
	uploads := files.NewMemoryStorage("")

	cfg := config.ServerConfig{
		FrontendURL:           "http://localhost:3000",
		Env:                   "development",
		AuthRequestsPerMinute: 100,
		ChatRequestsPerMinute: 100,
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	srv := NewServer(cfg, config.AuthConfig{CookieName: testCookie, TokenTTLHours: 1}, Dependencies{
		Auth:      authSvc,
		Chat:      chat.NewService(repo, echo.New(), chat.WithAgents(registry)),
		Documents: document.NewService(repo),
		Links:     links.NewService(repo),
		Files:     files.NewService(uploads, 0),
		Agents:    registry,
	})
	return &testServer{Server: srv, files: uploads}
}

func (ts *testServer) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) guestToken(t *testing.T) string {
	t.Helper()
	rec := ts.do(t, http.MethodGet, "/api/auth/guest", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var session dto.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.NotEmpty(t, session.AccessToken)
	return session.AccessToken
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func chatRequest(id, text string) dto.PostChatRequest {
	return dto.PostChatRequest{
		ID: id,
		Message: &dto.UIMessage{
			ID:    id + "-m1",
			Role:  "user",
			Parts: []dto.Part{{Type: "text", Text: text}},
		},
		SelectedChatModel: "chat-model",
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGuestLoginSetsCookie(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/auth/guest", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, testCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 3600, cookies[0].MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(cookies[0])
	session := httptest.NewRecorder()
	ts.Handler().ServeHTTP(session, req)
	assert.Equal(t, http.StatusOK, session.Code)
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	ts := newTestServer(t)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		ID:   "u1",
		Type: auth.UserTypeGuest,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	cases := map[string]string{
		"missing": "",
		"invalid": "not-a-jwt",
		"expired": expired,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			rec := ts.do(t, http.MethodGet, "/api/history", token, nil)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, "unauthorized:auth", body.Code)
			assert.Equal(t, http.StatusUnauthorized, body.StatusCode)
			assert.Equal(t, "/api/history", body.Path)
			assert.Equal(t, http.MethodGet, body.Method)
		})
	}
}

func TestValidationErrorEnvelope(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "not-an-email", "password": "secret1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "bad_request:api", body.Code)
	assert.Equal(t, http.StatusBadRequest, body.StatusCode)
	assert.Equal(t, "email failed email", body.Cause)
	assert.NotEmpty(t, body.Timestamp)
}

func TestBodyLimit(t *testing.T) {
	ts := newTestServer(t, func(c *config.ServerConfig) { c.MaxBodyBytes = 64 })
	rec := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "a@example.com",
		"password": strings.Repeat("x", 128),
	})
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "bad_request:api", decodeError(t, rec).Code)
}

func TestAuthRateLimit(t *testing.T) {
	ts := newTestServer(t, func(c *config.ServerConfig) { c.AuthRequestsPerMinute = 2 })
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/auth/guest", "", nil).Code)
	}
	rec := ts.do(t, http.MethodGet, "/api/auth/guest", "", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limit:api", decodeError(t, rec).Code)
}

func TestChatStream(t *testing.T) {
	ts := newTestServer(t)
	token := ts.guestToken(t)

	rec := ts.do(t, http.MethodPost, "/api/chat", token, chatRequest("chat-1", "hello there"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"))
	assert.Contains(t, body, `"type":"text-delta"`)
	assert.Contains(t, body, `"type":"finish"`)

	got := ts.do(t, http.MethodGet, "/api/chat/chat-1", token, nil)
	require.Equal(t, http.StatusOK, got.Code)
	var chatBody dto.ChatWithMessages
	require.NoError(t, json.Unmarshal(got.Body.Bytes(), &chatBody))
	assert.Len(t, chatBody.Messages, 2)

	history := ts.do(t, http.MethodGet, "/api/history?limit=5", token, nil)
	require.Equal(t, http.StatusOK, history.Code)
	var page dto.HistoryPage
	require.NoError(t, json.Unmarshal(history.Body.Bytes(), &page))
	assert.Len(t, page.Chats, 1)
	assert.False(t, page.HasMore)
}

func TestChatErrorsBeforeStreamUseEnvelope(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.guestToken(t)
	other := ts.guestToken(t)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/chat", owner, chatRequest("chat-2", "hi")).Code)

	rec := ts.do(t, http.MethodPost, "/api/chat", other, chatRequest("chat-2", "intrude"))
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden:chat", decodeError(t, rec).Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	missing := ts.do(t, http.MethodDelete, "/api/chat?id=undefined", owner, nil)
	assert.Equal(t, http.StatusBadRequest, missing.Code)

	badLimit := ts.do(t, http.MethodGet, "/api/history?limit=abc", owner, nil)
	assert.Equal(t, http.StatusBadRequest, badLimit.Code)
}

func TestLinksCRUD(t *testing.T) {
	ts := newTestServer(t)

	created := ts.do(t, http.MethodPost, "/links", "", dto.CreateLinkRequest{Title: "Docs", URL: "https://example.com"})
	require.Equal(t, http.StatusCreated, created.Code)
	var link dto.Link
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &link))

	path := "/links/" + jsonNumber(link.ID)
	title := "Guide"
	updated := ts.do(t, http.MethodPatch, path, "", dto.UpdateLinkRequest{Title: &title})
	require.Equal(t, http.StatusOK, updated.Code)
	assert.Contains(t, updated.Body.String(), "Guide")

	list := ts.do(t, http.MethodGet, "/links", "", nil)
	require.Equal(t, http.StatusOK, list.Code)
	var all []dto.Link
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &all))
	assert.Len(t, all, 1)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodDelete, path, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, path, "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/links/abc", "", nil).Code)
}

func jsonNumber(v int64) string {
	raw, _ := json.Marshal(v)
	return string(raw)
}

func TestAgents(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/agents", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []dto.Agent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.NotEmpty(t, list)

	one := ts.do(t, http.MethodGet, "/agents/"+list[0].ID, "", nil)
	assert.Equal(t, http.StatusOK, one.Code)

	missing := ts.do(t, http.MethodGet, "/agents/nope", "", nil)
	require.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, "not_found:agent", decodeError(t, missing).Code)
}

func TestChainsWithoutRegistry(t *testing.T) {
	ts := newTestServer(t)
	token := ts.guestToken(t)

	rec := ts.do(t, http.MethodGet, "/api/chains", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	balance := ts.do(t, http.MethodGet, "/api/wallet/balance?walletAddress=0x0000000000000000000000000000000000000001", token, nil)
	assert.Equal(t, http.StatusNotFound, balance.Code)

	invalid := ts.do(t, http.MethodGet, "/api/wallet/balance?walletAddress=nope", token, nil)
	assert.Equal(t, http.StatusBadRequest, invalid.Code)
}

func TestDocumentRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	token := ts.guestToken(t)

	saved := ts.do(t, http.MethodPost, "/api/document?id=doc-1", token, dto.DocumentRequest{Title: "Plan", Kind: "text", Content: "v1"})
	require.Equal(t, http.StatusOK, saved.Code)

	got := ts.do(t, http.MethodGet, "/api/document?id=doc-1", token, nil)
	require.Equal(t, http.StatusOK, got.Code)
	var versions []dto.Document
	require.NoError(t, json.Unmarshal(got.Body.Bytes(), &versions))
	require.Len(t, versions, 1)
	assert.Equal(t, "v1", versions[0].Content)

	other := ts.guestToken(t)
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodGet, "/api/document?id=doc-1", other, nil).Code)

	suggestions := ts.do(t, http.MethodGet, "/api/suggestions?documentId=missing", token, nil)
	require.Equal(t, http.StatusOK, suggestions.Code)
	assert.JSONEq(t, "[]", suggestions.Body.String())
}

func multipartUpload(t *testing.T, filename, contentType string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUpload(t *testing.T) {
	ts := newTestServer(t)
	token := ts.guestToken(t)

	send := func(filename, contentType string) *httptest.ResponseRecorder {
		body, ct := multipartUpload(t, filename, contentType, []byte("\x89PNG"))
		req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		ts.Handler().ServeHTTP(rec, req)
		return rec
	}

	rec := send("avatar.png", "image/png")
	require.Equal(t, http.StatusOK, rec.Code)
	var res dto.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, strings.HasSuffix(res.Pathname, "-avatar.png"))
	_, ok := ts.files.Get(res.Pathname)
	assert.True(t, ok)

	bad := send("notes.txt", "text/plain")
	require.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, "File type should be JPEG or PNG", decodeError(t, bad).Message)
}
