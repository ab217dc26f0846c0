package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/DoyleJ11/banpick-backend/internal/engine"
	"github.com/DoyleJ11/banpick-backend/internal/testutil"
)

func newTestRecorder(t *testing.T) *GormRecorder {
	t.Helper()
	testutil.NewTestPool(t) // skips without Postgres, holds the test lock

	db, err := Open(testutil.TestDSN())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	rec, err := NewGormRecorder(db, nil)
	require.NoError(t, err)
	require.NoError(t, db.Exec(`DELETE FROM session_records`).Error)
	return rec
}

// loadRecord reads back the stored aggregate; found is false once deleted.
func loadRecord(t *testing.T, rec *GormRecorder, id string) (s engine.Session, version int, found bool) {
	t.Helper()
	var row SessionRecord
	err := rec.db.WithContext(context.Background()).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return engine.Session{}, 0, false
	}
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(row.Payload, &s))
	return s, row.Version, true
}

func startedSession(t *testing.T) engine.Session {
	t.Helper()
	s := engine.NewSession("STORE1", engine.DefaultRules())
	var err error
	for _, id := range []string{"P1", "P2"} {
		_, s, err = engine.Apply(s, engine.Command{Type: engine.CmdJoin, ParticipantID: id})
		require.NoError(t, err)
		_, s, err = engine.Apply(s, engine.Command{Type: engine.CmdSetReady, ParticipantID: id, Ready: true})
		require.NoError(t, err)
	}
	catalog := make([]engine.Item, 0, 16)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m", "n", "o", "p"} {
		catalog = append(catalog, engine.Item{ID: id, Name: id, Tier: 4, Category: engine.CategoryGuard})
	}
	_, s, err = engine.Apply(s, engine.Command{Type: engine.CmdStart, ParticipantID: "P1", Catalog: catalog, At: time.Now()})
	require.NoError(t, err)
	return s
}

func TestGormRecorder_SaveDelete(t *testing.T) {
	rec := newTestRecorder(t)
	ctx := context.Background()
	s := startedSession(t)

	require.NoError(t, rec.Save(ctx, s, 5))

	_, next, err := engine.Apply(s, engine.Command{Type: engine.CmdBan, ParticipantID: "P1", ItemID: "c", At: time.Now()})
	require.NoError(t, err)
	require.NoError(t, rec.Save(ctx, next, 6))

	got, version, found := loadRecord(t, rec, "STORE1")
	require.True(t, found)
	assert.Equal(t, 6, version)
	assert.Equal(t, []string{"c"}, got.Pool.Banned)
	assert.Equal(t, "P2", got.CurrentParticipant())

	require.NoError(t, rec.Delete(ctx, "STORE1"))
	_, _, found = loadRecord(t, rec, "STORE1")
	assert.False(t, found)
}

func TestGormRecorder_IgnoresOlderVersion(t *testing.T) {
	rec := newTestRecorder(t)
	ctx := context.Background()
	s := startedSession(t)

	require.NoError(t, rec.Save(ctx, s, 7))
	stale := s.Clone()
	stale.Status = engine.StatusWaiting
	require.NoError(t, rec.Save(ctx, stale, 3))

	got, version, found := loadRecord(t, rec, "STORE1")
	require.True(t, found)
	assert.Equal(t, 7, version)
	assert.Equal(t, engine.StatusActive, got.Status)
}
