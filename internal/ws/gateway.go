package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/banpick-backend/internal/clock"
	"github.com/DoyleJ11/banpick-backend/internal/engine"
	"github.com/DoyleJ11/banpick-backend/internal/errcode"
	"github.com/DoyleJ11/banpick-backend/internal/identity"
	"github.com/DoyleJ11/banpick-backend/internal/lobby"
	"github.com/DoyleJ11/banpick-backend/pkg/types"
)

const (
	sendBuffer      = 32
	updateBuffer    = 16
	maxMessageBytes = 4096
	writeTimeout    = 5 * time.Second
	intentTimeout   = 5 * time.Second
)

type Rooms interface {
	Get(ctx context.Context, code string) (*lobby.Lobby, error)
}

type Config struct {
	Rooms          Rooms
	Auth           identity.Authenticator
	Clock          clock.Clock
	Log            *zap.Logger
	OriginPatterns []string
}

// Gateway terminates websocket connections. Each connection authenticates
// once, joins at most one room, and receives that room's updates.
type Gateway struct {
	rooms   Rooms
	auth    identity.Authenticator
	clock   clock.Clock
	log     *zap.Logger
	origins []string

	mu      sync.Mutex
	clients map[string]*client
}

func NewGateway(cfg Config) *Gateway {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewSystem()
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	return &Gateway{
		rooms:   cfg.Rooms,
		auth:    cfg.Auth,
		clock:   cfg.Clock,
		log:     cfg.Log.Named("ws"),
		origins: cfg.OriginPatterns,
		clients: make(map[string]*client),
	}
}

// subscription is one room's update stream for one connection. cancelled is
// set before the connection gives the stream up on purpose.
type subscription struct {
	updates   chan lobby.Update
	cancelled atomic.Bool
}

type client struct {
	id        string
	send      chan types.ServerMessage
	done      chan struct{}
	closeOnce sync.Once
	closeConn func(code websocket.StatusCode, reason string)

	// Written by the connection's read loop only; guarded by Gateway.mu for
	// readers on other goroutines.
	participantID string
	room          *lobby.Lobby
	sub           *subscription
}

func (g *Gateway) newClient(closeConn func(websocket.StatusCode, string)) *client {
	c := &client{
		id:        uuid.NewString(),
		send:      make(chan types.ServerMessage, sendBuffer),
		done:      make(chan struct{}),
		closeConn: closeConn,
	}
	g.mu.Lock()
	g.clients[c.id] = c
	g.mu.Unlock()
	return c
}

// enqueue never blocks. A full buffer means the peer stopped reading.
func (c *client) enqueue(m types.ServerMessage) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- m:
		return true
	default:
		c.close(websocket.StatusPolicyViolation, "too slow")
		return false
	}
}

func (c *client) close(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.closeConn != nil {
			go c.closeConn(code, reason)
		}
	})
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: g.origins,
	})
	if err != nil {
		g.log.Debug("websocket accept", zap.Error(err))
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxMessageBytes)

	c := g.newClient(func(code websocket.StatusCode, reason string) {
		_ = conn.Close(code, reason)
	})
	log := g.log.With(zap.String("client_id", c.id))
	log.Debug("connection opened")
	defer g.disconnect(c)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		select {
		case <-c.done:
			cancel()
		case <-ctx.Done():
		}
	}()
	go g.writeLoop(ctx, conn, c)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				log.Debug("connection closed")
			default:
				log.Debug("connection lost", zap.Error(err))
			}
			return
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			g.reply(c, cm, fmt.Errorf("%w: malformed json", errcode.ErrBadRequest))
			continue
		}
		if err := g.dispatch(ctx, c, cm); err != nil {
			g.reply(c, cm, err)
		}
	}
}

func (g *Gateway) writeLoop(ctx context.Context, conn *websocket.Conn, c *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case m := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, m)
			cancel()
			if err != nil {
				c.close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

// reply reports err to the originating connection only.
func (g *Gateway) reply(c *client, cm types.ClientMessage, err error) {
	fields := []zap.Field{
		zap.String("client_id", c.id),
		zap.String("type", cm.Type),
		zap.Error(err),
	}
	if errcode.Expected(err) {
		g.log.Debug("intent rejected", fields...)
	} else {
		g.log.Error("intent failed", fields...)
	}
	c.enqueue(types.ServerMessage{
		Type:   types.EvtError,
		RoomID: cm.RoomID,
		Error:  &types.Error{Code: errcode.Code(err), Message: errcode.Message(err)},
	})
}

var roomIntents = map[string]bool{
	types.MsgJoinRoom:  true,
	types.MsgLeaveRoom: true,
	types.MsgStart:     true,
	types.MsgBan:       true,
	types.MsgPick:      true,
	types.MsgSetReady:  true,
}

func (g *Gateway) dispatch(ctx context.Context, c *client, m types.ClientMessage) error {
	if m.Type == types.MsgAuthenticate {
		return g.authenticate(ctx, c, m.Token)
	}
	if !roomIntents[m.Type] {
		return fmt.Errorf("%w: unknown message type %q", errcode.ErrBadRequest, m.Type)
	}
	if c.participantID == "" {
		return identity.ErrNotAuthenticated
	}

	ctx, cancel := context.WithTimeout(ctx, intentTimeout)
	defer cancel()

	switch m.Type {
	case types.MsgJoinRoom:
		return g.joinRoom(ctx, c, m.RoomID)
	case types.MsgLeaveRoom:
		return g.leaveRoom(ctx, c)
	case types.MsgStart:
		return g.intent(ctx, c, engine.Command{Type: engine.CmdStart})
	case types.MsgBan:
		return g.intent(ctx, c, engine.Command{Type: engine.CmdBan, ItemID: m.ItemID})
	case types.MsgPick:
		return g.intent(ctx, c, engine.Command{Type: engine.CmdPick, ItemID: m.ItemID})
	default: // setReady
		return g.intent(ctx, c, engine.Command{Type: engine.CmdSetReady, Ready: m.Ready})
	}
}

func (g *Gateway) authenticate(ctx context.Context, c *client, token string) error {
	if c.participantID != "" {
		return identity.ErrAlreadyAuthenticated
	}
	id, err := g.auth.Authenticate(ctx, token)
	if err != nil {
		return err
	}

	g.mu.Lock()
	c.participantID = id
	g.mu.Unlock()

	g.log.Debug("connection authenticated", zap.String("client_id", c.id), zap.String("participant_id", id))
	c.enqueue(types.ServerMessage{Type: types.EvtAuthenticated, ParticipantID: id})
	return nil
}

func (g *Gateway) joinRoom(ctx context.Context, c *client, roomID string) error {
	if roomID == "" {
		return fmt.Errorf("%w: room_id is required", errcode.ErrBadRequest)
	}
	lb, err := g.rooms.Get(ctx, roomID)
	if err != nil {
		return err
	}

	// At most one room per connection. The previous stream is given up only
	// once the new one is in place, so a refused join keeps the current room.
	prevRoom, prevSub := c.room, c.sub
	if prevRoom == lb {
		// Resubscribing to the same room replaces the stream inside the lobby.
		prevSub.cancelled.Store(true)
	}
	sub := &subscription{updates: make(chan lobby.Update, updateBuffer)}
	if err := lb.Subscribe(ctx, c.id, c.participantID, sub.updates); err != nil {
		if prevRoom == lb {
			prevSub.cancelled.Store(false)
		}
		return err
	}
	if prevRoom != nil && prevRoom != lb {
		prevSub.cancelled.Store(true)
		prevRoom.Unsubscribe(ctx, c.id)
	}
	g.setRoom(c, lb, sub)
	go g.forward(c, lb.ID(), sub)

	g.log.Debug("joined room",
		zap.String("client_id", c.id),
		zap.String("participant_id", c.participantID),
		zap.String("room_id", lb.ID()))
	return nil
}

func (g *Gateway) leaveRoom(ctx context.Context, c *client) error {
	if c.room == nil {
		return fmt.Errorf("%w: no room joined", engine.ErrNotAuthorized)
	}
	room := c.room
	c.sub.cancelled.Store(true)

	_, err := room.Do(ctx, engine.Command{Type: engine.CmdLeave, ParticipantID: c.participantID})
	room.Unsubscribe(ctx, c.id)
	g.setRoom(c, nil, nil)
	if errors.Is(err, lobby.ErrClosed) {
		return nil
	}
	return err
}

func (g *Gateway) intent(ctx context.Context, c *client, cmd engine.Command) error {
	if c.room == nil {
		return fmt.Errorf("%w: no room joined", engine.ErrNotAuthorized)
	}
	cmd.ParticipantID = c.participantID
	_, err := c.room.Do(ctx, cmd)
	if errors.Is(err, lobby.ErrClosed) {
		g.setRoom(c, nil, nil)
	}
	return err
}

func (g *Gateway) setRoom(c *client, room *lobby.Lobby, sub *subscription) {
	g.mu.Lock()
	c.room = room
	c.sub = sub
	g.mu.Unlock()
}

// forward turns room updates into wire messages for one connection. A stream
// closed by the room rather than by us means the connection was dropped as a
// slow consumer or the room went away.
func (g *Gateway) forward(c *client, roomID string, sub *subscription) {
	for u := range sub.updates {
		for _, m := range render(roomID, u, g.clock.Now()) {
			if !c.enqueue(m) {
				return
			}
		}
	}
	if !sub.cancelled.Load() {
		g.log.Info("room stream closed, dropping connection", zap.String("client_id", c.id), zap.String("room_id", roomID))
		c.close(websocket.StatusPolicyViolation, "room stream closed")
	}
}

// disconnect applies the leave contract for a connection that went away
// without leaving, unless another connection still speaks for the same
// participant in that room.
func (g *Gateway) disconnect(c *client) {
	g.mu.Lock()
	delete(g.clients, c.id)
	room, sub, participantID := c.room, c.sub, c.participantID
	shared := false
	if room != nil {
		for _, other := range g.clients {
			if other.room == room && other.participantID == participantID {
				shared = true
				break
			}
		}
	}
	g.mu.Unlock()

	c.close(websocket.StatusNormalClosure, "bye")
	if room == nil {
		return
	}

	sub.cancelled.Store(true)
	ctx, cancel := context.WithTimeout(context.Background(), intentTimeout)
	defer cancel()
	room.Unsubscribe(ctx, c.id)
	if shared {
		return
	}
	if _, err := room.Do(ctx, engine.Command{Type: engine.CmdLeave, ParticipantID: participantID}); err != nil &&
		!errors.Is(err, lobby.ErrClosed) && !errors.Is(err, engine.ErrNotAuthorized) {
		g.log.Warn("leave on disconnect", zap.String("room_id", room.ID()), zap.Error(err))
	}
}

// Connections reports the number of open connections.
func (g *Gateway) Connections() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.clients)
}
