package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/banpick-backend/internal/clock"
	"github.com/DoyleJ11/banpick-backend/internal/engine"
	"github.com/DoyleJ11/banpick-backend/internal/errcode"
	"github.com/DoyleJ11/banpick-backend/internal/hub"
	"github.com/DoyleJ11/banpick-backend/internal/identity"
	"github.com/DoyleJ11/banpick-backend/internal/lobby"
	"github.com/DoyleJ11/banpick-backend/internal/ws"
	"github.com/DoyleJ11/banpick-backend/pkg/types"
)

type Handlers struct {
	hub       *hub.Hub
	gateway   *ws.Gateway
	directory identity.Directory
	defaults  engine.Rules
	clock     clock.Clock
	log       *zap.Logger
}

// createSessionRequest overrides the configured defaults; every field is
// optional.
type createSessionRequest struct {
	Capacity          *int  `json:"capacity"`
	DraftBanQuota     *int  `json:"draft_ban_quota"`
	DraftPickQuota    *int  `json:"draft_pick_quota"`
	GroupBanQuota     *int  `json:"group_ban_quota"`
	GroupPickQuota    *int  `json:"group_pick_quota"`
	DraftTurnLimitSec *int  `json:"draft_turn_limit_sec"`
	GroupTurnLimitSec *int  `json:"group_turn_limit_sec"`
	EnforceTimer      *bool `json:"enforce_timer"`
}

func (req createSessionRequest) rules(base engine.Rules) engine.Rules {
	set := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	set(&base.Capacity, req.Capacity)
	set(&base.DraftBanQuota, req.DraftBanQuota)
	set(&base.DraftPickQuota, req.DraftPickQuota)
	set(&base.GroupBanQuota, req.GroupBanQuota)
	set(&base.GroupPickQuota, req.GroupPickQuota)
	if req.DraftTurnLimitSec != nil {
		base.DraftTurnLimit = time.Duration(*req.DraftTurnLimitSec) * time.Second
	}
	if req.GroupTurnLimitSec != nil {
		base.GroupTurnLimit = time.Duration(*req.GroupTurnLimitSec) * time.Second
	}
	if req.EnforceTimer != nil {
		base.EnforceTimer = *req.EnforceTimer
	}
	return base
}

type sessionResponse struct {
	ID    string         `json:"id"`
	State types.Snapshot `json:"state"`
}

type addParticipantRequest struct {
	ParticipantID string `json:"participant_id"`
}

type addParticipantResponse struct {
	Added bool           `json:"added"`
	State types.Snapshot `json:"state"`
}

type intentRequest struct {
	ItemID string `json:"item_id"`
	Ready  *bool  `json:"ready"`
}

type leaveResponse struct {
	Left   bool            `json:"left"`
	Closed bool            `json:"closed"`
	State  *types.Snapshot `json:"state,omitempty"`
}

// decodeBody treats an empty body as "no overrides".
func decodeBody(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: invalid request body", errcode.ErrBadRequest)
	}
	return nil
}

// CreateSession opens a room with the caller as its first participant.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}

	creatorID := participantFrom(r.Context())
	name, err := h.directory.DisplayName(r.Context(), creatorID)
	if err != nil {
		writeErr(w, err)
		return
	}

	lb, err := h.hub.Create(r.Context(), req.rules(h.defaults), &engine.Participant{ID: creatorID, DisplayName: name})
	if err != nil {
		if !errcode.Expected(err) {
			h.log.Error("create session", zap.Error(err))
		}
		writeErr(w, err)
		return
	}
	view, err := lb.View(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}

	h.log.Info("session created", zap.String("room_id", lb.ID()), zap.String("participant_id", creatorID))
	writeJSON(w, http.StatusCreated, sessionResponse{
		ID:    lb.ID(),
		State: types.NewSnapshot(view.Session, view.Version, h.clock.Now()),
	})
}

// AddParticipant adds participant_id, or the caller when it is omitted.
// Only existing members may add someone other than themselves.
func (h *Handlers) AddParticipant(w http.ResponseWriter, r *http.Request) {
	var req addParticipantRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	caller := participantFrom(r.Context())
	if req.ParticipantID == "" {
		req.ParticipantID = caller
	}

	lb, err := h.hub.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if req.ParticipantID != caller {
		if _, err := h.memberView(r, lb, caller); err != nil {
			writeErr(w, err)
			return
		}
	}
	name, err := h.directory.DisplayName(r.Context(), req.ParticipantID)
	if err != nil {
		writeErr(w, err)
		return
	}

	u, err := lb.Do(r.Context(), engine.Command{
		Type:          engine.CmdJoin,
		ParticipantID: req.ParticipantID,
		DisplayName:   name,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, addParticipantResponse{
		Added: true,
		State: types.NewSnapshot(u.Session, u.Version, h.clock.Now()),
	})
}

// GetSession is visible to members only.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	lb, err := h.hub.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	view, err := h.memberView(r, lb, participantFrom(r.Context()))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		ID:    lb.ID(),
		State: types.NewSnapshot(view.Session, view.Version, h.clock.Now()),
	})
}

func (h *Handlers) memberView(r *http.Request, lb *lobby.Lobby, participantID string) (lobby.View, error) {
	view, err := lb.View(r.Context())
	if err != nil {
		return lobby.View{}, err
	}
	if !view.Session.HasParticipant(participantID) {
		return lobby.View{}, engine.ErrNotAuthorized
	}
	return view, nil
}

// Leave removes the caller. An active draft reverts to waiting; the last
// leave destroys the session.
func (h *Handlers) Leave(w http.ResponseWriter, r *http.Request) {
	lb, err := h.hub.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	caller := participantFrom(r.Context())
	u, err := lb.Do(r.Context(), engine.Command{Type: engine.CmdLeave, ParticipantID: caller})
	if err != nil {
		writeErr(w, err)
		return
	}

	resp := leaveResponse{Left: true}
	if engine.ContainsEvent(u.Events, engine.EvtSessionClosed) {
		resp.Closed = true
	} else {
		snap := types.NewSnapshot(u.Session, u.Version, h.clock.Now())
		resp.State = &snap
	}
	h.log.Info("participant left", zap.String("room_id", lb.ID()), zap.String("participant_id", caller), zap.Bool("closed", resp.Closed))
	writeJSON(w, http.StatusOK, resp)
}

// Intent submits start, ban, pick or setReady for the caller. It goes
// through the room loop like a websocket intent, so subscribers see it too.
func (h *Handlers) Intent(cmdType engine.CommandType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req intentRequest
		if err := decodeBody(r, &req); err != nil {
			writeErr(w, err)
			return
		}
		cmd := engine.Command{Type: cmdType, ParticipantID: participantFrom(r.Context()), ItemID: req.ItemID}
		switch cmdType {
		case engine.CmdBan, engine.CmdPick:
			if req.ItemID == "" {
				writeErr(w, fmt.Errorf("%w: item_id is required", errcode.ErrBadRequest))
				return
			}
		case engine.CmdSetReady:
			if req.Ready == nil {
				writeErr(w, fmt.Errorf("%w: ready is required", errcode.ErrBadRequest))
				return
			}
			cmd.Ready = *req.Ready
		}

		lb, err := h.hub.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeErr(w, err)
			return
		}
		u, err := lb.Do(r.Context(), cmd)
		if err != nil {
			if !errcode.Expected(err) {
				h.log.Error("intent failed", zap.String("room_id", lb.ID()), zap.String("cmd", string(cmdType)), zap.Error(err))
			}
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{
			ID:    lb.ID(),
			State: types.NewSnapshot(u.Session, u.Version, h.clock.Now()),
		})
	}
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	n, err := h.hub.Count(r.Context())
	if errors.Is(err, hub.ErrHubClosed) {
		writeError(w, http.StatusServiceUnavailable, "shutting_down", "shutting down")
		return
	}
	body := map[string]any{"status": "ok", "sessions": n}
	if h.gateway != nil {
		body["connections"] = h.gateway.Connections()
	}
	writeJSON(w, http.StatusOK, body)
}
