package errcode

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DoyleJ11/banpick-backend/internal/engine"
	"github.com/DoyleJ11/banpick-backend/internal/hub"
	"github.com/DoyleJ11/banpick-backend/internal/identity"
	"github.com/DoyleJ11/banpick-backend/internal/lobby"
)

func TestCode(t *testing.T) {
	tests := []struct {
		err    error
		code   string
		status int
	}{
		{engine.ErrNotYourTurn, "not_your_turn", http.StatusConflict},
		{fmt.Errorf("act: %w", engine.ErrItemNotAvailable), "item_not_available", http.StatusConflict},
		{engine.ErrNotAuthorized, "not_authorized", http.StatusForbidden},
		{hub.ErrSessionNotFound, "session_not_found", http.StatusNotFound},
		{lobby.ErrClosed, "session_not_found", http.StatusNotFound},
		{fmt.Errorf("%w: boom", identity.ErrInvalidCredential), "auth_error", http.StatusUnauthorized},
		{identity.ErrNotAuthenticated, "not_authenticated", http.StatusUnauthorized},
		{fmt.Errorf("%w: %w", lobby.ErrPersist, errors.New("db down")), Internal, http.StatusInternalServerError},
		{engine.ErrCatalogTooSmall, Internal, http.StatusInternalServerError},
		{errors.New("mystery"), Internal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, Code(tt.err), tt.err.Error())
		assert.Equal(t, tt.status, Status(tt.err), tt.err.Error())
	}
}

func TestMessage_HidesInternal(t *testing.T) {
	assert.Equal(t, "internal server error", Message(errors.New("pq: password authentication failed")))
	assert.Equal(t, engine.ErrNotYourTurn.Error(), Message(engine.ErrNotYourTurn))
	assert.False(t, Expected(errors.New("x")))
	assert.True(t, Expected(engine.ErrSessionFull))
}
