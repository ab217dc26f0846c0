package lobby

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/banpick-backend/internal/engine"
)

type staticCatalog []engine.Item

func (c staticCatalog) Snapshot() []engine.Item { return append([]engine.Item(nil), c...) }

func testCatalog(n int) staticCatalog {
	items := make(staticCatalog, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, engine.Item{
			ID:       fmt.Sprintf("op-%02d", i),
			Name:     fmt.Sprintf("Operator %d", i),
			Tier:     5,
			Category: engine.CategoryGuard,
		})
	}
	return items
}

type failingRecorder struct{ fail bool }

func (r *failingRecorder) Save(context.Context, engine.Session, int) error {
	if r.fail {
		return errors.New("db down")
	}
	return nil
}

func (r *failingRecorder) Delete(context.Context, string) error { return nil }

// flakyRecorder fails the next n saves.
type flakyRecorder struct{ failures atomic.Int32 }

func (r *flakyRecorder) Save(context.Context, engine.Session, int) error {
	if r.failures.Add(-1) >= 0 {
		return errors.New("db down")
	}
	return nil
}

func (r *flakyRecorder) Delete(context.Context, string) error { return nil }

// helper: receive one update with a timeout so tests never hang
func recvUpdate(t *testing.T, ch <-chan Update, within time.Duration) Update {
	t.Helper()
	select {
	case u, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return u
	case <-time.After(within):
		t.Fatalf("timed out waiting for update")
		return Update{} // unreachable
	}
}

func recvNoUpdate(t *testing.T, ch <-chan Update, within time.Duration) {
	t.Helper()
	select {
	case u, ok := <-ch:
		if !ok {
			// channel closed → that's fine; no further updates possible
			return
		}
		t.Fatalf("expected no update within %v, but got version %d", within, u.Version)
	case <-time.After(within):
		// good: no update
	}
}

func newTestLobby(t *testing.T, rules engine.Rules, cfg Config) *Lobby {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if cfg.Catalog == nil {
		cfg.Catalog = testCatalog(20)
	}
	return NewLobby(ctx, engine.NewSession("ROOM01", rules), cfg)
}

func noTimerRules() engine.Rules {
	r := engine.DefaultRules()
	r.EnforceTimer = false
	return r
}

func startDraft(t *testing.T, l *Lobby) Update {
	t.Helper()
	ctx := context.Background()
	for _, id := range []string{"P1", "P2"} {
		_, err := l.Do(ctx, engine.Command{Type: engine.CmdJoin, ParticipantID: id})
		require.NoError(t, err)
		_, err = l.Do(ctx, engine.Command{Type: engine.CmdSetReady, ParticipantID: id, Ready: true})
		require.NoError(t, err)
	}
	u, err := l.Do(ctx, engine.Command{Type: engine.CmdStart, ParticipantID: "P1"})
	require.NoError(t, err)
	return u
}

func TestLobby_Ban_BroadcastsUpdateAndVersionIncrements(t *testing.T) {
	l := newTestLobby(t, noTimerRules(), Config{})
	ctx := context.Background()
	started := startDraft(t, l)
	require.Equal(t, 5, started.Version)

	clientOut := make(chan Update, 4)
	require.NoError(t, l.Subscribe(ctx, "c1", "P2", clientOut))

	// on subscribe, lobby should immediately send the current snapshot
	first := recvUpdate(t, clientOut, 100*time.Millisecond)
	assert.Equal(t, 5, first.Version)
	assert.Equal(t, engine.PhaseDraftBan, first.Session.Phase)

	_, err := l.Do(ctx, engine.Command{Type: engine.CmdBan, ParticipantID: "P1", ItemID: "op-03"})
	require.NoError(t, err)

	next := recvUpdate(t, clientOut, 100*time.Millisecond)
	assert.Equal(t, 6, next.Version)
	assert.Equal(t, []string{"op-03"}, next.Session.Pool.Banned)
	assert.True(t, engine.ContainsEvent(next.Events, engine.EvtItemBanned))
	assert.Equal(t, "P2", next.Session.CurrentParticipant())
}

func TestLobby_RejectedIntentIsNotBroadcast(t *testing.T) {
	l := newTestLobby(t, noTimerRules(), Config{})
	ctx := context.Background()
	startDraft(t, l)

	out := make(chan Update, 4)
	require.NoError(t, l.Subscribe(ctx, "c1", "P1", out))
	_ = recvUpdate(t, out, 100*time.Millisecond)

	_, err := l.Do(ctx, engine.Command{Type: engine.CmdBan, ParticipantID: "P2", ItemID: "op-01"})
	require.ErrorIs(t, err, engine.ErrNotYourTurn)
	recvNoUpdate(t, out, 50*time.Millisecond)

	view, err := l.View(ctx)
	require.NoError(t, err)
	assert.Len(t, view.Session.Pool.Available, 20)
}

func TestLobby_SubscribeRequiresParticipant(t *testing.T) {
	l := newTestLobby(t, noTimerRules(), Config{})

	err := l.Subscribe(context.Background(), "c1", "stranger", make(chan Update, 1))
	require.ErrorIs(t, err, engine.ErrNotAuthorized)
}

func TestLobby_DropSlowClient(t *testing.T) {
	l := newTestLobby(t, noTimerRules(), Config{})
	ctx := context.Background()
	startDraft(t, l)

	clientOut := make(chan Update, 1)
	require.NoError(t, l.Subscribe(ctx, "c1", "P1", clientOut)) // fills the buffer

	_, err := l.Do(ctx, engine.Command{Type: engine.CmdBan, ParticipantID: "P1", ItemID: "op-01"})
	require.NoError(t, err)

	view, err := l.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, view.NumClients, "expected slow client to be dropped")
}

// Two identical bans racing for the same room: exactly one lands.
func TestLobby_ConcurrentActsSameItem(t *testing.T) {
	l := newTestLobby(t, noTimerRules(), Config{})
	startDraft(t, l)

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = l.Do(context.Background(), engine.Command{Type: engine.CmdBan, ParticipantID: "P1", ItemID: "op-05"})
		}()
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, engine.ErrItemNotAvailable)
	}
	assert.Equal(t, 1, ok)

	view, err := l.View(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"op-05"}, view.Session.Pool.Banned)
}

func TestLobby_LastLeaveDestroysSession(t *testing.T) {
	closed := make(chan string, 1)
	l := newTestLobby(t, noTimerRules(), Config{OnClose: func(id string) { closed <- id }})
	ctx := context.Background()
	startDraft(t, l)

	out := make(chan Update, 8)
	require.NoError(t, l.Subscribe(ctx, "c1", "P2", out))
	_ = recvUpdate(t, out, 100*time.Millisecond)

	u, err := l.Do(ctx, engine.Command{Type: engine.CmdLeave, ParticipantID: "P1"})
	require.NoError(t, err)
	assert.Equal(t, engine.StatusWaiting, u.Session.Status)
	assert.True(t, engine.ContainsEvent(u.Events, engine.EvtDraftReset))

	_, err = l.Do(ctx, engine.Command{Type: engine.CmdLeave, ParticipantID: "P2"})
	require.NoError(t, err)

	select {
	case id := <-closed:
		assert.Equal(t, "ROOM01", id)
	case <-time.After(time.Second):
		t.Fatalf("OnClose not called")
	}
	<-l.Done()

	_, err = l.Do(ctx, engine.Command{Type: engine.CmdStart, ParticipantID: "P2"})
	require.ErrorIs(t, err, ErrClosed)
}

func TestLobby_PersistFailureLeavesStateUntouched(t *testing.T) {
	rec := &failingRecorder{}
	l := newTestLobby(t, noTimerRules(), Config{Recorder: rec})
	ctx := context.Background()
	startDraft(t, l)

	rec.fail = true
	_, err := l.Do(ctx, engine.Command{Type: engine.CmdBan, ParticipantID: "P1", ItemID: "op-01"})
	require.ErrorIs(t, err, ErrPersist)

	view, err := l.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, view.Version)
	assert.Empty(t, view.Session.Pool.Banned)
	assert.Equal(t, "P1", view.Session.CurrentParticipant())
}

func TestLobby_TimerFires_ForcesRemoval(t *testing.T) {
	rules := engine.DefaultRules()
	rules.DraftTurnLimit = 150 * time.Millisecond
	l := newTestLobby(t, rules, Config{})
	ctx := context.Background()
	startDraft(t, l)

	out := make(chan Update, 4)
	require.NoError(t, l.Subscribe(ctx, "c1", "P1", out))
	_ = recvUpdate(t, out, 100*time.Millisecond)

	next := recvUpdate(t, out, 500*time.Millisecond)
	assert.Equal(t, 6, next.Version)
	assert.True(t, engine.ContainsEvent(next.Events, engine.EvtTimerExpired))
	require.Len(t, next.Session.Ledger.History, 1)
	assert.True(t, next.Session.Ledger.History[0].Forced)
	assert.Equal(t, "P1", next.Session.Ledger.History[0].ParticipantID)
	assert.Equal(t, "P2", next.Session.CurrentParticipant())
}

func TestLobby_TimerRetriesAfterPersistFailure(t *testing.T) {
	rec := &flakyRecorder{}
	rules := engine.DefaultRules()
	rules.DraftTurnLimit = 100 * time.Millisecond
	l := newTestLobby(t, rules, Config{Recorder: rec, RetryDelay: 50 * time.Millisecond})
	ctx := context.Background()
	startDraft(t, l)
	rec.failures.Store(2)

	out := make(chan Update, 4)
	require.NoError(t, l.Subscribe(ctx, "c1", "P1", out))
	_ = recvUpdate(t, out, 100*time.Millisecond)

	// Deadline fire and first retry fail; the second retry lands.
	next := recvUpdate(t, out, 2*time.Second)
	assert.Equal(t, 6, next.Version)
	assert.True(t, engine.ContainsEvent(next.Events, engine.EvtTimerExpired))
	require.Len(t, next.Session.Ledger.History, 1)
	assert.True(t, next.Session.Ledger.History[0].Forced)
	assert.LessOrEqual(t, rec.failures.Load(), int32(0))
}

func TestLobby_TimerGen_DropsStaleFires(t *testing.T) {
	rules := engine.DefaultRules()
	rules.DraftTurnLimit = 300 * time.Millisecond
	l := newTestLobby(t, rules, Config{})
	ctx := context.Background()
	startDraft(t, l)

	out := make(chan Update, 8)
	require.NoError(t, l.Subscribe(ctx, "c1", "P1", out))
	_ = recvUpdate(t, out, 100*time.Millisecond)

	// A stale generation must be ignored outright.
	l.Inbox() <- TimerFired{Gen: -1}
	recvNoUpdate(t, out, 50*time.Millisecond)

	// BEFORE the first timer fires, advance via a legal ban; this re-arms.
	_, err := l.Do(ctx, engine.Command{Type: engine.CmdBan, ParticipantID: "P1", ItemID: "op-01"})
	require.NoError(t, err)
	postBan := recvUpdate(t, out, 100*time.Millisecond)
	require.Equal(t, 6, postBan.Version)

	// Nothing may fire well before the new deadline.
	recvNoUpdate(t, out, 150*time.Millisecond)

	next := recvUpdate(t, out, time.Second)
	assert.Equal(t, 7, next.Version)
	assert.True(t, engine.ContainsEvent(next.Events, engine.EvtTimerExpired))
	assert.Equal(t, "P2", next.Session.Ledger.History[1].ParticipantID)
}

func TestLobby_Shutdown_StopsTimer_NoFire(t *testing.T) {
	rules := engine.DefaultRules()
	rules.DraftTurnLimit = 200 * time.Millisecond
	l := newTestLobby(t, rules, Config{})
	ctx := context.Background()
	startDraft(t, l)

	out := make(chan Update, 2)
	require.NoError(t, l.Subscribe(ctx, "c1", "P1", out))
	_ = recvUpdate(t, out, 100*time.Millisecond)

	l.Close()
	<-l.Done()

	// Now assert no *new* update shows up (or channel is closed)
	recvNoUpdate(t, out, 400*time.Millisecond)
}
