package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Pitch_Board/internal/config"
	"Pitch_Board/internal/logger"
	"Pitch_Board/internal/metrics"
	"Pitch_Board/internal/pkg"
	"Pitch_Board/internal/repository/database"
	"Pitch_Board/internal/repository/redis"
	"Pitch_Board/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var dbSeq atomic.Int64

// memSessions 内存会话存储
type memSessions struct {
	mu   sync.Mutex
	data map[uint64]string
}

func (m *memSessions) Save(_ context.Context, userID uint64, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[userID] = sessionID
	return nil
}

func (m *memSessions) Get(_ context.Context, userID uint64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sid, ok := m.data[userID]
	if !ok {
		return "", redis.ErrSessionNotFound
	}
	return sid, nil
}

func (m *memSessions) Extend(context.Context, uint64) error { return nil }

func (m *memSessions) DeleteIfMatch(_ context.Context, userID uint64, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[userID] == sessionID {
		delete(m.data, userID)
	}
	return nil
}

type testAPI struct {
	t *testing.T
	r *gin.Engine
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return newTestAPIWithLimit(t, config.RateLimitConfig{RPS: 1000, Burst: 1000})
}

func newTestAPIWithLimit(t *testing.T, limit config.RateLimitConfig) *testAPI {
	t.Helper()
	log := logger.Discard()
	dsn := fmt.Sprintf("file:router_%d?mode=memory&cache=shared&_foreign_keys=on", dbSeq.Add(1))
	db, err := database.Open(config.DatabaseConfig{Driver: config.DriverSQLite, DSN: dsn, MaxOpenConns: 1}, log)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	m := metrics.New()
	tokens := pkg.NewTokenIssuer(config.JWTConfig{
		AccessSecret:  "access",
		RefreshSecret: "refresh",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	ideas := service.NewIdeaService(
		&database.IdeaRepository{DB: db},
		&database.CommentRepository{DB: db},
		&database.LikeRepository{DB: db},
		m, log,
	)
	accounts := service.NewAccountService(
		&database.UserRepository{DB: db},
		&memSessions{data: make(map[uint64]string)},
		tokens, nil, m, log,
	)

	r := InitRouter(Deps{
		Ideas:     ideas,
		Accounts:  accounts,
		Metrics:   m,
		Log:       log,
		RateLimit: limit,
	})
	return &testAPI{t: t, r: r}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type authResp struct {
	User struct {
		ID       uint64 `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type ideaResp struct {
	ID         uint64 `json:"id"`
	Title      string `json:"title"`
	LikesCount int64  `json:"likes_count"`
	IsLiked    bool   `json:"is_liked"`
	Pitcher    struct {
		Username string `json:"username"`
	} `json:"pitcher"`
	Comments []json.RawMessage `json:"comments"`
}

type errResp struct {
	Msg    string              `json:"msg"`
	Errors map[string][]string `json:"errors"`
}

func (a *testAPI) register(name string) authResp {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"username":         name,
		"email":            name + "@example.com",
		"password":         "s3cret-pass",
		"password_confirm": "s3cret-pass",
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	res := decode[authResp](a.t, w)
	require.NotEmpty(a.t, res.Access)
	return res
}

var description60 = strings.Repeat("A marketplace for idle GPUs. ", 3)[:60]

func (a *testAPI) createIdea(token, title string) ideaResp {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/ideas", token, gin.H{"title": title, "description": description60})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[ideaResp](a.t, w)
}

func TestLikeScenario(t *testing.T) {
	api := newTestAPI(t)
	a := api.register("alice")
	b := api.register("bob")

	idea := api.createIdea(a.Access, "Great Startup Idea")
	assert.Equal(t, int64(0), idea.LikesCount)
	assert.Equal(t, "alice", idea.Pitcher.Username)

	path := fmt.Sprintf("/api/ideas/%d/like", idea.ID)
	w := api.do(http.MethodPost, path, b.Access, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"status":"liked","likes_count":1}`, w.Body.String())

	got := decode[ideaResp](t, api.do(http.MethodGet, fmt.Sprintf("/api/ideas/%d", idea.ID), b.Access, nil))
	assert.True(t, got.IsLiked)
	assert.Equal(t, int64(1), got.LikesCount)
	assert.NotNil(t, got.Comments)

	anon := decode[ideaResp](t, api.do(http.MethodGet, fmt.Sprintf("/api/ideas/%d", idea.ID), "", nil))
	assert.False(t, anon.IsLiked)

	w = api.do(http.MethodPost, path, b.Access, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"unliked","likes_count":0}`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPost, "/api/ideas/999/like", b.Access, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, path, "", nil).Code)
}

func TestCreateIdeaErrors(t *testing.T) {
	api := newTestAPI(t)
	a := api.register("alice")

	w := api.do(http.MethodPost, "/api/ideas", "", gin.H{"title": "Great Startup Idea", "description": description60})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(http.MethodPost, "/api/ideas", a.Access, gin.H{"title": "123456789", "description": description60})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[errResp](t, w).Errors, "title")

	w = api.do(http.MethodPost, "/api/ideas", a.Access, gin.H{"title": "Great Startup Idea"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"This field is required."}, decode[errResp](t, w).Errors["description"])
}

func TestListAndTopIdeas(t *testing.T) {
	api := newTestAPI(t)
	a := api.register("alice")
	b := api.register("bob")

	var ids []uint64
	for i := 0; i < 6; i++ {
		ids = append(ids, api.createIdea(a.Access, fmt.Sprintf("Startup idea #%02d", i)).ID)
	}
	w := api.do(http.MethodPost, fmt.Sprintf("/api/ideas/%d/like", ids[0]), b.Access, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	list := decode[[]ideaResp](t, api.do(http.MethodGet, "/api/ideas", b.Access, nil))
	require.Len(t, list, 6)
	assert.Equal(t, ids[0], list[0].ID)
	assert.True(t, list[0].IsLiked)
	assert.Equal(t, ids[5], list[1].ID)
	assert.False(t, list[1].IsLiked)

	top := decode[[]ideaResp](t, api.do(http.MethodGet, "/api/top-ideas", "", nil))
	require.Len(t, top, 5)
	for i := range top {
		assert.Equal(t, list[i].ID, top[i].ID)
		assert.False(t, top[i].IsLiked)
	}
	assert.Len(t, decode[[]ideaResp](t, api.do(http.MethodGet, "/api/top-ideas?limit=2", "", nil)), 2)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/top-ideas?limit=x", "", nil).Code)

	page := decode[[]ideaResp](t, api.do(http.MethodGet, "/api/ideas?page=2&size=4", "", nil))
	require.Len(t, page, 2)
	assert.Equal(t, list[4].ID, page[0].ID)
}

func TestUpdateAndDeleteIdea(t *testing.T) {
	api := newTestAPI(t)
	a := api.register("alice")
	b := api.register("bob")
	idea := api.createIdea(a.Access, "Great Startup Idea")
	path := fmt.Sprintf("/api/ideas/%d", idea.ID)

	patch := gin.H{"title": "An even better title"}
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPatch, path, b.Access, patch).Code)

	w := api.do(http.MethodPatch, path, a.Access, patch)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "An even better title", decode[ideaResp](t, w).Title)

	w = api.do(http.MethodPut, path, a.Access, gin.H{"title": "Only a title here"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, path+"/comments", b.Access, gin.H{"content": "Love it!"})
	require.Equal(t, http.StatusCreated, w.Code)

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodDelete, path, b.Access, nil).Code)
	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, path, a.Access, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, path, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, path+"/comments", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/ideas/abc", "", nil).Code)
}

func TestComments(t *testing.T) {
	api := newTestAPI(t)
	a := api.register("alice")
	b := api.register("bob")
	idea := api.createIdea(a.Access, "Great Startup Idea")
	base := fmt.Sprintf("/api/ideas/%d/comments", idea.ID)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPost, "/api/ideas/999/comments", b.Access, gin.H{"content": "Love it!"}).Code)

	w := api.do(http.MethodPost, base, b.Access, gin.H{"content": "meh"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[errResp](t, w).Errors, "content")

	first := decode[struct {
		ID uint64 `json:"id"`
	}](t, api.do(http.MethodPost, base, b.Access, gin.H{"content": "Love it!"}))
	api.do(http.MethodPost, base, a.Access, gin.H{"content": "Thanks a lot"})

	list := decode[[]struct {
		Content   string `json:"content"`
		Commenter struct {
			Username string `json:"username"`
		} `json:"commenter"`
	}](t, api.do(http.MethodGet, base, "", nil))
	require.Len(t, list, 2)
	assert.Equal(t, "Thanks a lot", list[0].Content)
	assert.Equal(t, "bob", list[1].Commenter.Username)

	one := fmt.Sprintf("%s/%d", base, first.ID)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPatch, one, a.Access, gin.H{"content": "Edited by alice"}).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodPatch, one, b.Access, gin.H{"content": "Edited by bob"}).Code)
	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, one, b.Access, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, one, "", nil).Code)
}

func TestAccountFlow(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"username":         "alice",
		"email":            "alice@example.com",
		"password":         "s3cret-pass",
		"password_confirm": "different",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"Passwords don't match"}, decode[errResp](t, w).Errors["non_field_errors"])

	reg := api.register("alice")

	me := api.do(http.MethodGet, "/api/auth/me", reg.Access, nil)
	require.Equal(t, http.StatusOK, me.Code)
	assert.NotContains(t, me.Body.String(), "password")

	w = api.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice@example.com", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[authResp](t, w)

	// 新登录后旧 token 失效
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/auth/me", reg.Access, nil).Code)

	w = api.do(http.MethodPost, "/api/auth/refresh", "", gin.H{"refresh": login.Refresh})
	require.Equal(t, http.StatusOK, w.Code)
	refreshed := decode[authResp](t, w)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/auth/me", refreshed.Access, nil).Code)

	w = api.do(http.MethodPost, "/api/auth/change-password", refreshed.Access, gin.H{"old_password": "s3cret-pass", "new_password": "brand-new-pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/auth/me", refreshed.Access, nil).Code)
	refreshed = decode[authResp](t, w)

	assert.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/auth/logout", refreshed.Access, nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/auth/logout", refreshed.Access, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/auth/me", refreshed.Access, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/auth/logout", "", nil).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = api.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `pitch_board_http_requests_total{method="GET",path="/healthz",status="200"} 1`)
}

func TestRateLimitOnlyGuardsAccountRoutes(t *testing.T) {
	api := newTestAPIWithLimit(t, config.RateLimitConfig{RPS: 0.001, Burst: 2})

	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/ideas", "", nil).Code)
		require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/top-ideas", "", nil).Code)
	}

	login := gin.H{"username": "nobody", "password": "whatever"}
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/auth/login", "", login).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/auth/login", "", login).Code)
	assert.Equal(t, http.StatusTooManyRequests, api.do(http.MethodPost, "/api/auth/login", "", login).Code)
}
