package ws

import (
	"time"

	"github.com/DoyleJ11/banpick-backend/internal/engine"
	"github.com/DoyleJ11/banpick-backend/internal/lobby"
	"github.com/DoyleJ11/banpick-backend/pkg/types"
)

// render turns one room update into targeted events followed by a full
// state frame. A fresh subscription carries no events and yields the state
// frame alone.
func render(roomID string, u lobby.Update, now time.Time) []types.ServerMessage {
	out := make([]types.ServerMessage, 0, len(u.Events)+1)
	for _, e := range u.Events {
		m := types.ServerMessage{
			Version:       u.Version,
			RoomID:        roomID,
			ParticipantID: e.ParticipantID,
			Phase:         string(e.Phase),
		}
		switch e.Type {
		case engine.EvtParticipantJoined:
			m.Type = types.EvtJoined
		case engine.EvtParticipantLeft:
			m.Type = types.EvtLeft
		case engine.EvtReadyChanged:
			ready := e.Ready
			m.Type = types.EvtReadyChanged
			m.Ready = &ready
		case engine.EvtDraftStarted:
			m.Type = types.EvtStarted
		case engine.EvtItemBanned, engine.EvtItemPicked:
			m.Type = types.EvtItemRemoved
			m.ItemID = e.ItemID
			m.Forced = e.Forced
			m.Action = string(engine.ActionBan)
			if e.Type == engine.EvtItemPicked {
				m.Action = string(engine.ActionPick)
			}
		case engine.EvtTurnChanged:
			m.Type = types.EvtTurnChanged
			if !e.Deadline.IsZero() {
				d := e.Deadline
				m.Deadline = &d
			}
		case engine.EvtPhaseChanged:
			m.Type = types.EvtPhaseChanged
		case engine.EvtTimerExpired:
			m.Type = types.EvtTimerExpired
		case engine.EvtDraftCompleted:
			m.Type = types.EvtCompleted
		case engine.EvtDraftReset:
			m.Type = types.EvtReset
		default:
			continue
		}
		out = append(out, m)
	}

	snap := types.NewSnapshot(u.Session, u.Version, now)
	return append(out, types.ServerMessage{
		Type:    types.EvtState,
		Version: u.Version,
		RoomID:  roomID,
		State:   &snap,
	})
}
