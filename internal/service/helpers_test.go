package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"Pitch_Board/internal/config"
	"Pitch_Board/internal/logger"
	"Pitch_Board/internal/metrics"
	"Pitch_Board/internal/model"
	"Pitch_Board/internal/pkg"
	"Pitch_Board/internal/repository/database"
	"Pitch_Board/internal/repository/redis"
)

var dbSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_foreign_keys=on", name, dbSeq.Add(1))
	db, err := database.Open(config.DatabaseConfig{Driver: config.DriverSQLite, DSN: dsn, MaxOpenConns: 1}, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func newIdeaService(t *testing.T) (*IdeaService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc := NewIdeaService(
		&database.IdeaRepository{DB: db},
		&database.CommentRepository{DB: db},
		&database.LikeRepository{DB: db},
		metrics.New(),
		logger.Discard(),
	)
	return svc, db
}

func seedUser(t *testing.T, db *gorm.DB, name string) *model.User {
	t.Helper()
	u := &model.User{Username: name, Email: name + "@example.com", Password: "x"}
	require.NoError(t, db.Create(u).Error)
	return u
}

var description60 = strings.Repeat("A marketplace for idle GPUs. ", 3)[:60]

// memSessions 内存版会话存储
type memSessions struct {
	mu      sync.Mutex
	data    map[uint64]string
	saveErr error
}

func newMemSessions() *memSessions {
	return &memSessions{data: make(map[uint64]string)}
}

func (m *memSessions) Save(_ context.Context, userID uint64, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
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

type fakeMailer struct {
	sent []string
	err  error
}

func (f *fakeMailer) SendWelcome(to, _ string) error {
	f.sent = append(f.sent, to)
	return f.err
}

func newAccountService(t *testing.T) (*AccountService, *memSessions, *fakeMailer, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	sessions := newMemSessions()
	mailer := &fakeMailer{}
	tokens := pkg.NewTokenIssuer(config.JWTConfig{
		AccessSecret:  "access",
		RefreshSecret: "refresh",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	svc := NewAccountService(&database.UserRepository{DB: db}, sessions, tokens, mailer, metrics.New(), logger.Discard())
	svc.hashCost = bcrypt.MinCost
	return svc, sessions, mailer, db
}
