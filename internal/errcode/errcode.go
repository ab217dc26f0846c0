// Package errcode maps domain errors onto stable wire codes and HTTP statuses.
package errcode

import (
	"errors"
	"net/http"

	"github.com/DoyleJ11/banpick-backend/internal/engine"
	"github.com/DoyleJ11/banpick-backend/internal/hub"
	"github.com/DoyleJ11/banpick-backend/internal/identity"
	"github.com/DoyleJ11/banpick-backend/internal/lobby"
)

// ErrBadRequest marks malformed input from a client.
var ErrBadRequest = errors.New("bad request")

const Internal = "internal_error"

type mapping struct {
	err    error
	code   string
	status int
}

// First match wins; ErrPersist wraps a storage error and must stay internal.
var table = []mapping{
	{lobby.ErrPersist, Internal, http.StatusInternalServerError},
	{engine.ErrCatalogTooSmall, Internal, http.StatusInternalServerError},
	{identity.ErrInvalidCredential, "auth_error", http.StatusUnauthorized},
	{identity.ErrNotAuthenticated, "not_authenticated", http.StatusUnauthorized},
	{identity.ErrAlreadyAuthenticated, "already_authenticated", http.StatusConflict},
	{engine.ErrNotAuthorized, "not_authorized", http.StatusForbidden},
	{engine.ErrSessionNotActive, "session_not_active", http.StatusConflict},
	{engine.ErrAlreadyStarted, "already_started", http.StatusConflict},
	{engine.ErrInsufficientParticipants, "insufficient_participants", http.StatusConflict},
	{engine.ErrNotReady, "not_ready", http.StatusConflict},
	{engine.ErrNotYourTurn, "not_your_turn", http.StatusConflict},
	{engine.ErrWrongActionForPhase, "wrong_action_for_phase", http.StatusConflict},
	{engine.ErrItemNotAvailable, "item_not_available", http.StatusConflict},
	{engine.ErrSessionFull, "session_full", http.StatusConflict},
	{engine.ErrAlreadyJoined, "already_joined", http.StatusConflict},
	{hub.ErrSessionNotFound, "session_not_found", http.StatusNotFound},
	{lobby.ErrClosed, "session_not_found", http.StatusNotFound},
	{hub.ErrInvalidRules, "invalid_rules", http.StatusBadRequest},
	{identity.ErrUnknownParticipant, "unknown_participant", http.StatusNotFound},
	{ErrBadRequest, "bad_request", http.StatusBadRequest},
	{engine.ErrUnsupportedCommand, "bad_request", http.StatusBadRequest},
}

func lookup(err error) (mapping, bool) {
	for _, m := range table {
		if errors.Is(err, m.err) {
			return m, true
		}
	}
	return mapping{}, false
}

// Code returns the wire code for err, or internal_error.
func Code(err error) string {
	if m, ok := lookup(err); ok {
		return m.code
	}
	return Internal
}

func Status(err error) int {
	if m, ok := lookup(err); ok {
		return m.status
	}
	return http.StatusInternalServerError
}

// Message is safe to show a client: internal failures are not described.
func Message(err error) string {
	if Code(err) == Internal {
		return "internal server error"
	}
	return err.Error()
}

// Expected reports whether err is a user-facing condition rather than a
// server failure.
func Expected(err error) bool {
	return Code(err) != Internal
}
