package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_BanAndPick(t *testing.T) {
	p := NewPool(testCatalog(6))

	require.NoError(t, p.Ban("op-01", PhaseDraftBan))
	require.NoError(t, p.Pick("op-02", PhaseDraftPick))

	assert.Equal(t, []string{"op-01"}, p.Banned)
	assert.Equal(t, []string{"op-02"}, p.Picked)
	assert.Equal(t, 1, p.Count(PhaseDraftBan))
	assert.Equal(t, 1, p.Count(PhaseDraftPick))
	assert.False(t, p.IsAvailable("op-01"))
	assert.True(t, p.IsAvailable("op-03"))
}

func TestPool_RemovalIsExactlyOnce(t *testing.T) {
	p := NewPool(testCatalog(6))
	require.NoError(t, p.Ban("op-03", PhaseGroupBan))
	before := p.Clone()

	require.ErrorIs(t, p.Ban("op-03", PhaseGroupBan), ErrItemNotAvailable)
	require.ErrorIs(t, p.Pick("op-03", PhaseGroupPick), ErrItemNotAvailable)
	require.ErrorIs(t, p.Pick("missing", PhaseGroupPick), ErrItemNotAvailable)
	assert.Equal(t, before, p, "failed removals must not mutate the pool")
}

func TestItemValidate(t *testing.T) {
	ok := Item{ID: "x", Name: "X", Tier: 6, Category: CategoryCaster}
	require.NoError(t, ok.Validate())

	badTier := ok
	badTier.Tier = 7
	require.Error(t, badTier.Validate())

	badCat := ok
	badCat.Category = "bard"
	require.Error(t, badCat.Validate())
}
