package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresDirectory struct {
	pool *pgxpool.Pool
}

func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{pool: pool}
}

func (d *PostgresDirectory) DisplayName(ctx context.Context, participantID string) (string, error) {
	const query = `
SELECT COALESCE(NULLIF(display_name, ''), username)
FROM users
WHERE id = $1`
	var name string
	if err := d.pool.QueryRow(ctx, query, participantID).Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUnknownParticipant
		}
		return "", fmt.Errorf("lookup display name: %w", err)
	}
	return name, nil
}
