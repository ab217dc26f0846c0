package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DoyleJ11/banpick-backend/internal/engine"
)

type PostgresSource struct {
	pool *pgxpool.Pool
}

func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

func (s *PostgresSource) Load(ctx context.Context) ([]engine.Item, error) {
	const query = `
SELECT id, name, tier, category, tags
FROM catalog_items
ORDER BY position ASC, id ASC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list catalog items: %w", err)
	}
	defer rows.Close()

	var items []engine.Item
	for rows.Next() {
		var (
			it       engine.Item
			category string
		)
		if err := rows.Scan(&it.ID, &it.Name, &it.Tier, &category, &it.Tags); err != nil {
			return nil, fmt.Errorf("scan catalog item: %w", err)
		}
		it.Category = engine.Category(category)
		items = append(items, it)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate catalog items: %w", rows.Err())
	}
	return items, nil
}
