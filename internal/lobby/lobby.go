package lobby

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/banpick-backend/internal/clock"
	"github.com/DoyleJ11/banpick-backend/internal/engine"
)

var ErrClosed = errors.New("lobby closed")
var ErrPersist = errors.New("persist session")

type Msg interface{ isLobbyMsg() }

type FromClient struct {
	Cmd   engine.Command
	Reply chan Result
}

func (FromClient) isLobbyMsg() {}

type Subscribe struct {
	ClientID      string
	ParticipantID string
	Outbox        chan Update // where this client wants to receive updates
	Reply         chan error
}

func (Subscribe) isLobbyMsg() {}

type Unsubscribe struct{ ClientID string }

func (Unsubscribe) isLobbyMsg() {}

type TimerFired struct{ Gen int }

func (TimerFired) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

// Update is what subscribers receive after every accepted mutation. Session
// is never mutated after it is sent.
type Update struct {
	Version int
	Session engine.Session
	Events  []engine.Event
}

type Result struct {
	Update Update
	Err    error
}

type View struct {
	Version    int
	NumClients int
	Session    engine.Session
}

// Recorder persists the full session after each mutation.
type Recorder interface {
	Save(ctx context.Context, s engine.Session, version int) error
	Delete(ctx context.Context, id string) error
}

type Catalog interface {
	Snapshot() []engine.Item
}

type Config struct {
	Catalog  Catalog
	Recorder Recorder
	Clock    clock.Clock
	Log      *zap.Logger
	// OnClose runs once the last participant has left.
	OnClose func(id string)
	// RetryDelay spaces out forced turns that failed to persist.
	RetryDelay time.Duration
}

type subscriber struct {
	participantID string
	outbox        chan Update
}

// Lobby is the coordinator for one session. Every mutation goes through its
// loop goroutine, so intents for the same room are strictly ordered.
type Lobby struct {
	id       string
	inbox    chan Msg
	state    engine.Session
	version  int
	clients  map[string]subscriber
	cfg      Config
	log      *zap.Logger
	timer    *time.Timer
	timerGen int
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewLobby(parent context.Context, initial engine.Session, cfg Config) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if cfg.Clock == nil {
		cfg.Clock = clock.NewSystem()
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = NopRecorder{}
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	l := &Lobby{
		id:      initial.ID,
		inbox:   make(chan Msg, 64), // Small buffer
		state:   initial,
		clients: make(map[string]subscriber),
		cfg:     cfg,
		log:     cfg.Log.Named("lobby").With(zap.String("room_id", initial.ID)),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Subscribe:
				if !l.state.HasParticipant(msg.ParticipantID) {
					msg.Reply <- engine.ErrNotAuthorized
					break
				}
				if prev, ok := l.clients[msg.ClientID]; ok && prev.outbox != msg.Outbox {
					close(prev.outbox)
				}
				l.clients[msg.ClientID] = subscriber{participantID: msg.ParticipantID, outbox: msg.Outbox}
				// New subscribers start from the current snapshot.
				select {
				case msg.Outbox <- Update{Version: l.version, Session: l.state}:
				default:
				}
				msg.Reply <- nil

			case Unsubscribe:
				if sub, ok := l.clients[msg.ClientID]; ok {
					close(sub.outbox)
					delete(l.clients, msg.ClientID)
				}

			case FromClient:
				res := l.handle(msg.Cmd)
				msg.Reply <- res
				if res.Err == nil && engine.ContainsEvent(res.Update.Events, engine.EvtSessionClosed) {
					l.finish()
					return
				}

			case TimerFired:
				if msg.Gen != l.timerGen {
					break // superseded by a later turn
				}
				res := l.handle(engine.Command{Type: engine.CmdTimeout})
				if errors.Is(res.Err, engine.ErrTurnNotExpired) {
					l.armTimer()
				} else if res.Err != nil {
					l.log.Warn("forced turn failed, retrying", zap.Error(res.Err), zap.Duration("after", l.cfg.RetryDelay))
					l.retryForcedTurn()
				}

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					Session:    l.state,
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

// handle runs one intent through the engine and commits it. Nothing is
// committed unless the recorder accepted the new state.
func (l *Lobby) handle(cmd engine.Command) Result {
	if cmd.At.IsZero() {
		cmd.At = l.cfg.Clock.Now()
	}
	if cmd.Type == engine.CmdStart && l.cfg.Catalog != nil {
		cmd.Catalog = l.cfg.Catalog.Snapshot()
	}

	events, next, err := engine.Apply(l.state, cmd)
	if err != nil {
		l.log.Debug("intent rejected",
			zap.String("cmd", string(cmd.Type)),
			zap.String("participant_id", cmd.ParticipantID),
			zap.Error(err))
		return Result{Err: err}
	}
	if len(events) == 0 {
		return Result{Update: Update{Version: l.version, Session: l.state}}
	}

	if !engine.ContainsEvent(events, engine.EvtSessionClosed) {
		ctx, cancel := context.WithTimeout(l.ctx, 2*time.Second)
		err = l.cfg.Recorder.Save(ctx, next, l.version+1)
		cancel()
		if err != nil {
			l.log.Error("save session", zap.Error(err))
			return Result{Err: fmt.Errorf("%w: %w", ErrPersist, err)}
		}
	}

	l.state = next
	l.version++
	update := Update{Version: l.version, Session: l.state, Events: events}
	l.broadcast(update)
	l.armTimer()

	l.log.Debug("intent applied",
		zap.String("cmd", string(cmd.Type)),
		zap.String("participant_id", cmd.ParticipantID),
		zap.Int("version", l.version),
		zap.String("phase", string(l.state.Phase)))
	return Result{Update: update}
}

// finish tears the lobby down after its last participant left.
func (l *Lobby) finish() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := l.cfg.Recorder.Delete(ctx, l.id); err != nil {
		l.log.Error("delete session record", zap.Error(err))
	}
	cancel()

	l.shutdown()
	l.log.Info("session destroyed")
	if l.cfg.OnClose != nil {
		l.cfg.OnClose(l.id)
	}
}

func (l *Lobby) shutdown() {
	l.stopTimer()
	for id, sub := range l.clients {
		close(sub.outbox) // Tell client no more updates
		delete(l.clients, id)
	}
	l.cancel()
	select {
	case <-l.done:
	default:
		close(l.done)
	}
}

func (l *Lobby) broadcast(u Update) {
	for id, sub := range l.clients {
		select {
		case sub.outbox <- u:
			//ok
		default:
			// Client is slow/full - drop them.
			l.log.Warn("dropping slow subscriber", zap.String("client_id", id), zap.String("participant_id", sub.participantID))
			close(sub.outbox)
			delete(l.clients, id)
		}
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

func (l *Lobby) ID() string { return l.id }

// Done is closed once the lobby loop has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }

// Do submits an intent and waits for its result.
func (l *Lobby) Do(ctx context.Context, cmd engine.Command) (Update, error) {
	reply := make(chan Result, 1)
	if err := l.send(ctx, FromClient{Cmd: cmd, Reply: reply}); err != nil {
		return Update{}, err
	}
	res, err := await(ctx, l, reply)
	if err != nil {
		return Update{}, err
	}
	return res.Update, res.Err
}

func (l *Lobby) Subscribe(ctx context.Context, clientID, participantID string, outbox chan Update) error {
	reply := make(chan error, 1)
	if err := l.send(ctx, Subscribe{ClientID: clientID, ParticipantID: participantID, Outbox: outbox, Reply: reply}); err != nil {
		return err
	}
	err, waitErr := await(ctx, l, reply)
	if waitErr != nil {
		return waitErr
	}
	return err
}

func (l *Lobby) Unsubscribe(ctx context.Context, clientID string) {
	_ = l.send(ctx, Unsubscribe{ClientID: clientID})
}

func (l *Lobby) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := l.send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	return await(ctx, l, reply)
}

func (l *Lobby) Close() {
	_ = l.send(context.Background(), Shutdown{})
}

func (l *Lobby) send(ctx context.Context, m Msg) error {
	select {
	case l.inbox <- m:
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await[T any](ctx context.Context, l *Lobby, reply chan T) (T, error) {
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-l.done:
		// The reply is written before done closes.
		select {
		case v := <-reply:
			return v, nil
		default:
			var zero T
			return zero, ErrClosed
		}
	}
}

type NopRecorder struct{}

func (NopRecorder) Save(context.Context, engine.Session, int) error { return nil }
func (NopRecorder) Delete(context.Context, string) error            { return nil }
