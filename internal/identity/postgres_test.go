package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/banpick-backend/internal/testutil"
)

func TestPostgresDirectory_DisplayName(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `DELETE FROM users WHERE id IN ('dir-u1', 'dir-u2')`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `
INSERT INTO users (id, username, display_name) VALUES
	('dir-u1', 'amiya', 'Amiya'),
	('dir-u2', 'kaltsit', '')`)
	require.NoError(t, err)

	d := NewPostgresDirectory(pool)

	name, err := d.DisplayName(ctx, "dir-u1")
	require.NoError(t, err)
	assert.Equal(t, "Amiya", name)

	name, err = d.DisplayName(ctx, "dir-u2")
	require.NoError(t, err)
	assert.Equal(t, "kaltsit", name, "falls back to username")

	_, err = d.DisplayName(ctx, "dir-missing")
	require.ErrorIs(t, err, ErrUnknownParticipant)
}
