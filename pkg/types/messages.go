package types

import "time"

// Client -> Server intents.
const (
	MsgAuthenticate = "authenticate"
	MsgJoinRoom     = "joinRoom"
	MsgLeaveRoom    = "leaveRoom"
	MsgStart        = "start"
	MsgBan          = "ban"
	MsgPick         = "pick"
	MsgSetReady     = "setReady"
)

// Server -> Client events.
const (
	EvtAuthenticated = "authenticated"
	EvtJoined        = "joined"
	EvtLeft          = "left"
	EvtReadyChanged  = "ready_changed"
	EvtStarted       = "started"
	EvtItemRemoved   = "item_removed"
	EvtTurnChanged   = "turn_changed"
	EvtPhaseChanged  = "phase_changed"
	EvtTimerExpired  = "timer_expired"
	EvtCompleted     = "completed"
	EvtReset         = "reset"
	EvtState         = "state"
	EvtError         = "error"
)

type ClientMessage struct {
	Type   string `json:"type"`
	Token  string `json:"token,omitempty"`
	RoomID string `json:"room_id,omitempty"`
	ItemID string `json:"item_id,omitempty"`
	Ready  bool   `json:"ready,omitempty"`
}

// ServerMessage is either a targeted event, a full state frame or an error.
// Version lets clients drop frames older than the last one rendered.
type ServerMessage struct {
	Type          string     `json:"type"`
	Version       int        `json:"version,omitempty"`
	RoomID        string     `json:"room_id,omitempty"`
	ParticipantID string     `json:"participant_id,omitempty"`
	ItemID        string     `json:"item_id,omitempty"`
	Action        string     `json:"action,omitempty"`
	Phase         string     `json:"phase,omitempty"`
	Ready         *bool      `json:"ready,omitempty"`
	Forced        bool       `json:"forced,omitempty"`
	Deadline      *time.Time `json:"deadline,omitempty"`
	State         *Snapshot  `json:"state,omitempty"`
	Error         *Error     `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
