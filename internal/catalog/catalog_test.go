package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/banpick-backend/internal/engine"
	"github.com/DoyleJ11/banpick-backend/internal/testutil"
)

func TestBuiltin_CoversDefaultQuota(t *testing.T) {
	c, err := Load(context.Background(), Builtin{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, c.Len(), engine.DefaultRules().TotalQuota())

	it, ok := c.Item("amiya")
	require.True(t, ok)
	assert.Equal(t, engine.CategoryCaster, it.Category)
}

func TestNew_Normalizes(t *testing.T) {
	c, err := New([]engine.Item{
		{ID: " op-1 ", Name: "Ame\u0301lie", Tier: 4, Category: "GUARD", Tags: []string{" DPS ", ""}},
		{ID: "op-2", Name: "Vigil", Tier: 6, Category: "Pioneer"},
	})
	require.NoError(t, err)

	items := c.Snapshot()
	require.Len(t, items, 2)
	assert.Equal(t, "op-1", items[0].ID)
	assert.Equal(t, "Am\u00e9lie", items[0].Name)
	assert.Equal(t, engine.CategoryGuard, items[0].Category)
	assert.Equal(t, []string{"DPS"}, items[0].Tags)
	assert.Equal(t, engine.CategoryVanguard, items[1].Category)
}

func TestNew_Rejects(t *testing.T) {
	_, err := New(nil)
	require.ErrorIs(t, err, ErrEmptyCatalog)

	_, err = New([]engine.Item{
		{ID: "a", Name: "A", Tier: 4, Category: engine.CategoryGuard},
		{ID: "a", Name: "B", Tier: 4, Category: engine.CategoryGuard},
	})
	require.ErrorIs(t, err, ErrDuplicateItem)

	_, err = New([]engine.Item{{ID: "a", Name: "A", Tier: 9, Category: engine.CategoryGuard}})
	require.Error(t, err)

	_, err = New([]engine.Item{{ID: "a", Name: "A", Tier: 4, Category: "bard"}})
	require.Error(t, err)
}

func TestSnapshot_IsACopy(t *testing.T) {
	c, err := New([]engine.Item{{ID: "a", Name: "A", Tier: 4, Category: engine.CategoryGuard, Tags: []string{"x"}}})
	require.NoError(t, err)

	snap := c.Snapshot()
	snap[0].Name = "mutated"
	snap[0].Tags[0] = "mutated"

	again := c.Snapshot()
	assert.Equal(t, "A", again[0].Name)
	assert.Equal(t, []string{"x"}, again[0].Tags)
}

func TestFileSource_ItemList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "a", "name": "A", "tier": 5, "category": "sniper"},
		{"id": "b", "name": "B", "tier": 3, "category": "medic", "tags": ["Healing"]}
	]`), 0o600))

	c, err := Load(context.Background(), FileSource{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestParse_CharacterTable(t *testing.T) {
	items, err := Parse([]byte(`{
		"char_002_amiya": {"name": "Amiya", "rarity": "TIER_5", "profession": "CASTER", "tagList": ["DPS"]},
		"char_003_kalts": {"name": "Kal'tsit", "rarity": "TIER_6", "profession": "MEDIC"},
		"char_285_medic2": {"name": "Lancet-2", "rarity": "TIER_1", "profession": "MEDIC"},
		"token_10000_silent_healrb": {"name": "Drone", "rarity": "TIER_3", "profession": "TOKEN"},
		"char_123_fang": {"name": "Fang", "rarity": "TIER_3", "profession": "PIONEER"}
	}`))
	require.NoError(t, err)

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"char_002_amiya", "char_003_kalts", "char_123_fang"}, ids)
	assert.Equal(t, engine.CategoryVanguard, items[2].Category)
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse([]byte("  "))
	require.ErrorIs(t, err, ErrEmptyCatalog)
}

func TestPostgresSource_Load(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `TRUNCATE catalog_items`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `
INSERT INTO catalog_items (id, name, tier, category, tags, position) VALUES
	('b', 'Beta', 4, 'Guard', '{DPS}', 2),
	('a', 'Alpha', 5, 'caster', '{}', 1)`)
	require.NoError(t, err)

	c, err := Load(ctx, NewPostgresSource(pool))
	require.NoError(t, err)

	items := c.Snapshot()
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, engine.CategoryGuard, items[1].Category)
	assert.Equal(t, []string{"DPS"}, items[1].Tags)
}
