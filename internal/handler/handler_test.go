package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/studyai/studyai-go/internal/config"
	"github.com/studyai/studyai-go/internal/crypto"
	"github.com/studyai/studyai-go/internal/llm"
	"github.com/studyai/studyai-go/internal/middleware"
	"github.com/studyai/studyai-go/internal/mocks"
	"github.com/studyai/studyai-go/internal/model"
	"github.com/studyai/studyai-go/internal/repository"
	"github.com/studyai/studyai-go/internal/service"
)

const validQuiz = `{"questions": [
	{"question": "What pigment captures light?", "options": ["Chlorophyll", "Keratin", "Melanin", "Hemoglobin"], "answer": "Chlorophyll"},
	{"question": "Which gas is absorbed?", "options": ["Oxygen", "Carbon dioxide", "Nitrogen", "Helium"], "answer": "Carbon dioxide"},
	{"question": "Where does it happen?", "options": ["Mitochondria", "Nucleus", "Chloroplast", "Ribosome"], "answer": "Chloroplast"},
	{"question": "Which sugar is produced?", "options": ["Glucose", "Lactose", "Sucrose", "Maltose"], "answer": "Glucose"},
	{"question": "What is released?", "options": ["Oxygen", "Methane", "Ammonia", "Hydrogen"], "answer": "Oxygen"}
]}`

type testServer struct {
	handler  http.Handler
	auth     *service.AuthService
	provider *mocks.MockProvider
	db       Pinger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithLimit(t, config.RateLimit{RPS: 1000, Burst: 1000})
}

func newTestServerWithLimit(t *testing.T, authLimit config.RateLimit) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := repository.Open(ctx, repository.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repository.Migrate(ctx, db, repository.DriverSQLite))

	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)

	hasher := crypto.NewHasher(crypto.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	authSvc := service.NewAuthService(
		repository.NewUserRepository(db),
		repository.NewMemoryDenylist(),
		hasher,
		crypto.NewTokenService("handler-test-secret"),
		time.Hour,
	)

	h := NewRouter(ctx, RouterDeps{
		Auth:               authSvc,
		Content:            service.NewContentService(provider),
		Chat:               service.NewChatService(provider),
		DB:                 db,
		CORSAllowedOrigins: []string{"http://localhost:5173"},
		AuthRateLimit:      authLimit,
		AIRateLimit:        config.RateLimit{RPS: 1000, Burst: 1000},
	})

	return &testServer{handler: h, auth: authSvc, provider: provider, db: db}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) postJSON(path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.do(req)
}

func (s *testServer) login(email, password string) *httptest.ResponseRecorder {
	form := url.Values{"username": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

func (s *testServer) get(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.do(req)
}

// signUp registers a user and returns a fresh access token.
func (s *testServer) signUp(t *testing.T, email, password string) string {
	t.Helper()
	rec := s.postJSON("/register", fmt.Sprintf(`{"email": %q, "password": %q}`, email, password), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.login(email, password)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&tok))
	require.Equal(t, "bearer", tok.TokenType)
	return tok.AccessToken
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["detail"]
}

func TestRoot(t *testing.T) {
	s := newTestServer(t)

	rec := s.get("/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message": "Welcome to the Study AI API!"}`, rec.Body.String())

	rec = s.get("/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

type downPinger struct{}

func (downPinger) PingContext(context.Context) error { return errors.New("down") }

func TestHealth_Unavailable(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(downPinger{}).HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	rec := s.postJSON("/register", `{"email": "student@example.com", "password": "hunter22"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var user map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&user))
	assert.Equal(t, "student@example.com", user["email"])
	assert.NotZero(t, user["id"])
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "hashed_password")

	rec = s.postJSON("/register", `{"email": "student@example.com", "password": "other"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already registered", detail(t, rec))
}

func TestRegister_BadInput(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "malformed json", body: `{"email": `, wantStatus: http.StatusBadRequest},
		{name: "invalid email", body: `{"email": "nope", "password": "pw"}`, wantStatus: http.StatusUnprocessableEntity},
		{name: "missing password", body: `{"email": "a@example.com"}`, wantStatus: http.StatusUnprocessableEntity},
		{name: "too large", body: `{"email": "` + strings.Repeat("a", maxBodyBytes) + `"}`, wantStatus: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.postJSON("/register", tt.body, "")
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	token := s.signUp(t, "student@example.com", "hunter22")
	assert.NotEmpty(t, token)

	rec := s.login("student@example.com", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	assert.Equal(t, "Incorrect email or password", detail(t, rec))

	rec = s.login("ghost@example.com", "hunter22")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Incorrect email or password", detail(t, rec))

	rec = s.login("", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMeAndLogout(t *testing.T) {
	s := newTestServer(t)
	token := s.signUp(t, "student@example.com", "hunter22")

	rec := s.get("/me", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"student@example.com"`)

	rec = s.get("/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Could not validate credentials", detail(t, rec))

	rec = s.postJSON("/logout", "", token)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.get("/me", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGenerateContent(t *testing.T) {
	s := newTestServer(t)
	token := s.signUp(t, "student@example.com", "hunter22")

	s.provider.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(validQuiz, nil)

	rec := s.postJSON("/ai/generate-content", `{"topic": "Photosynthesis", "content_type": "quiz"}`, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var quiz struct {
		Questions []struct {
			Question string   `json:"question"`
			Options  []string `json:"options"`
			Answer   string   `json:"answer"`
		} `json:"questions"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&quiz))
	require.Len(t, quiz.Questions, 5)
	for _, q := range quiz.Questions {
		assert.Len(t, q.Options, 4)
		assert.Contains(t, q.Options, q.Answer)
	}
}

func TestGenerateContent_Errors(t *testing.T) {
	s := newTestServer(t)
	token := s.signUp(t, "student@example.com", "hunter22")

	t.Run("unauthenticated", func(t *testing.T) {
		rec := s.postJSON("/ai/generate-content", `{"topic": "Photosynthesis", "content_type": "quiz"}`, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid content type", func(t *testing.T) {
		rec := s.postJSON("/ai/generate-content", `{"topic": "Photosynthesis", "content_type": "essay"}`, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid content type specified.", detail(t, rec))
	})

	t.Run("empty content type", func(t *testing.T) {
		rec := s.postJSON("/ai/generate-content", `{"topic": "Photosynthesis", "content_type": ""}`, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid content type specified.", detail(t, rec))
	})

	t.Run("malformed model output", func(t *testing.T) {
		s.provider.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(`{"questions": []}`, nil)

		rec := s.postJSON("/ai/generate-content", `{"topic": "Photosynthesis", "content_type": "quiz"}`, token)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.True(t, strings.HasPrefix(detail(t, rec), "Failed to generate content from AI model: "))
	})

	t.Run("provider error", func(t *testing.T) {
		s.provider.EXPECT().Complete(gomock.Any(), gomock.Any()).
			Return("", &llm.APIError{StatusCode: http.StatusTooManyRequests, Body: "secret upstream detail"})

		rec := s.postJSON("/ai/generate-content", `{"topic": "Photosynthesis", "content_type": "flashcards"}`, token)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		msg := detail(t, rec)
		assert.Equal(t, "Failed to generate content from AI model: provider returned status 429", msg)
		assert.NotContains(t, msg, "secret upstream detail")
	})
}

func TestChat(t *testing.T) {
	s := newTestServer(t)
	token := s.signUp(t, "student@example.com", "hunter22")

	s.provider.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("Mitosis splits one cell into two.", nil)

	rec := s.postJSON("/ai/chat", `{"message": "What is mitosis?"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"response": "Mitosis splits one cell into two."}`, rec.Body.String())

	s.provider.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", context.DeadlineExceeded)

	rec = s.postJSON("/ai/chat", `{"message": "hello"}`, token)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to get chat response from AI model: request to provider timed out", detail(t, rec))
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/ai/chat", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := s.do(req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/ai/chat", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = s.do(req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit_IgnoresForwardingHeaders(t *testing.T) {
	s := newTestServerWithLimit(t, config.RateLimit{RPS: 0.001, Burst: 1})

	limited := 0
	for i := 0; i < 10; i++ {
		form := url.Values{"username": {"ghost@example.com"}, "password": {"pw"}}
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.RemoteAddr = "203.0.113.7:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i))
		req.Header.Set("True-Client-IP", fmt.Sprintf("198.51.100.%d", i))

		if s.do(req).Code == http.StatusTooManyRequests {
			limited++
		}
	}

	assert.Equal(t, 9, limited)
}

func TestHandleMe_DeletedUser(t *testing.T) {
	s := newTestServer(t)
	_ = s.signUp(t, "student@example.com", "hunter22")

	authHandler := NewAuthHandler(s.auth)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	ctx := middleware.WithIdentity(req.Context(), model.Identity{User: model.User{ID: 999, Email: "gone@example.com"}})
	rec := httptest.NewRecorder()
	authHandler.HandleMe(rec, req.WithContext(ctx))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
}

func TestHandleMe_FromIdentity(t *testing.T) {
	s := newTestServer(t)
	_ = s.signUp(t, "student@example.com", "hunter22")

	authHandler := NewAuthHandler(s.auth)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	ctx := middleware.WithIdentity(req.Context(), model.Identity{User: model.User{ID: 1, Email: "student@example.com"}})
	rec := httptest.NewRecorder()
	authHandler.HandleMe(rec, req.WithContext(ctx))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id": 1, "email": "student@example.com"}`, rec.Body.String())
}
