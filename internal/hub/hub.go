package hub

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/DoyleJ11/banpick-backend/internal/engine"
	"github.com/DoyleJ11/banpick-backend/internal/lobby"
)

var ErrSessionNotFound = errors.New("session not found")
var ErrHubClosed = errors.New("hub closed")

type HubMsg interface{ isHubMsg() }

type CreateLobby struct {
	Rules   engine.Rules
	Creator *engine.Participant // joined before the lobby starts, if set
	Reply   chan Created
}

type Created struct {
	Lobby *lobby.Lobby
	Err   error
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

type RemoveLobby struct {
	Code string
}

type CountLobbies struct {
	Reply chan int
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg()  {}
func (GetLobby) isHubMsg()     {}
func (RemoveLobby) isHubMsg()  {}
func (CountLobbies) isHubMsg() {}
func (ShutdownHub) isHubMsg()  {}

// Hub owns the code -> lobby arena. Lobbies remove themselves once their last
// participant leaves.
type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	deps    lobby.Config
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, deps lobby.Config) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		deps:    deps,
		log:     deps.Log.Named("hub"),
		ctx:     ctx,
		cancel:  cancel,
	}
	h.deps.OnClose = func(code string) {
		select {
		case h.inbox <- RemoveLobby{Code: code}:
		case <-h.ctx.Done():
		}
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				lb, err := h.create(msg)
				msg.Reply <- Created{Lobby: lb, Err: err}

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case RemoveLobby:
				delete(h.lobbies, msg.Code)
				h.log.Debug("lobby removed", zap.String("room_id", msg.Code))

			case CountLobbies:
				msg.Reply <- len(h.lobbies)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create(msg CreateLobby) (*lobby.Lobby, error) {
	if err := msg.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRules, err)
	}
	if h.deps.Catalog != nil {
		if n := len(h.deps.Catalog.Snapshot()); msg.Rules.TotalQuota() > n {
			return nil, fmt.Errorf("%w: quotas need %d items, catalog has %d", ErrInvalidRules, msg.Rules.TotalQuota(), n)
		}
	}

	var code string
	for {
		c, err := GenerateCode()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		if h.lobbies[c] == nil {
			code = c
			break
		}
		h.log.Debug("collision on code, regenerating")
	}

	initial := engine.NewSession(code, msg.Rules)
	if msg.Creator != nil {
		_, s, err := engine.Apply(initial, engine.Command{
			Type:          engine.CmdJoin,
			ParticipantID: msg.Creator.ID,
			DisplayName:   msg.Creator.DisplayName,
		})
		if err != nil {
			return nil, err
		}
		initial = s
	}

	lb := lobby.NewLobby(h.ctx, initial, h.deps)
	h.lobbies[code] = lb
	h.log.Info("lobby created", zap.String("room_id", code), zap.Int("capacity", msg.Rules.Capacity))
	return lb, nil
}

func (h *Hub) shutdown() {
	for _, lb := range h.lobbies {
		lb.Close()
	}
	clear(h.lobbies)
	h.cancel()
}

var ErrInvalidRules = errors.New("invalid rules")

// Create opens a new session, optionally with its creator already joined.
func (h *Hub) Create(ctx context.Context, rules engine.Rules, creator *engine.Participant) (*lobby.Lobby, error) {
	reply := make(chan Created, 1)
	if err := h.send(ctx, CreateLobby{Rules: rules, Creator: creator, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case res := <-reply:
		return res.Lobby, res.Err
	case <-h.ctx.Done():
		return nil, ErrHubClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get returns ErrSessionNotFound for unknown or destroyed sessions.
func (h *Hub) Get(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	if err := h.send(ctx, GetLobby{Code: code, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case <-h.ctx.Done():
		return nil, ErrHubClosed
	case lb := <-reply:
		if lb == nil {
			return nil, ErrSessionNotFound
		}
		select {
		case <-lb.Done():
			return nil, ErrSessionNotFound
		default:
			return lb, nil
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) Count(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	if err := h.send(ctx, CountLobbies{Reply: reply}); err != nil {
		return 0, err
	}
	select {
	case n := <-reply:
		return n, nil
	case <-h.ctx.Done():
		return 0, ErrHubClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (h *Hub) Shutdown() {
	_ = h.send(context.Background(), ShutdownHub{})
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	if h.ctx.Err() != nil {
		return ErrHubClosed
	}
	select {
	case h.inbox <- m:
		return nil
	case <-h.ctx.Done():
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}
