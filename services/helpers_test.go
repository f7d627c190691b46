package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/menfessboard/menfess/config"
	"github.com/menfessboard/menfess/models"
)

var userSeq int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase(config.AppConfig{DBDriver: "sqlite", DatabaseURI: "file::memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db, models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	n := atomic.AddInt64(&userSeq, 1)
	u, err := NewIdentityService(db, nil).CreateUser(context.Background(), NewUser{
		Username: fmt.Sprintf("%s%d", gofakeit.Username(), n),
		Email:    fmt.Sprintf("u%d.%s", n, gofakeit.Email()),
		Password: "secret-pass",
		Role:     role,
	})
	require.NoError(t, err)
	return u
}

func actorOf(u *models.User) *Actor {
	return ActorFromUser(u)
}

func submit(t *testing.T, db *gorm.DB, author *models.User, text string) *models.Menfess {
	t.Helper()
	m, err := NewContentService(db, nil).Submit(context.Background(), actorOf(author), SubmitInput{Text: text})
	require.NoError(t, err)
	return m
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

// recordingReleaser remembers released refs and optionally fails.
type recordingReleaser struct {
	mu       sync.Mutex
	released []string
	err      error
}

func (r *recordingReleaser) Release(_ context.Context, kind MediaKind, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, string(kind)+"/"+ref)
	return r.err
}

func (r *recordingReleaser) refs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.released...)
}
