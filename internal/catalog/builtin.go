package catalog

import (
	"context"

	"github.com/DoyleJ11/banpick-backend/internal/engine"
)

type Builtin struct{}

func (Builtin) Load(context.Context) ([]engine.Item, error) {
	return builtinItems(), nil
}

func builtinItems() []engine.Item {
	return []engine.Item{
		{ID: "amiya", Name: "Amiya", Tier: 5, Category: engine.CategoryCaster, Tags: []string{"DPS"}},
		{ID: "silverash", Name: "SilverAsh", Tier: 6, Category: engine.CategoryGuard, Tags: []string{"DPS", "Support"}},
		{ID: "texas", Name: "Texas", Tier: 5, Category: engine.CategoryVanguard, Tags: []string{"DP-Recovery", "Crowd-Control"}},
		{ID: "exusiai", Name: "Exusiai", Tier: 6, Category: engine.CategorySniper, Tags: []string{"DPS"}},
		{ID: "siege", Name: "Siege", Tier: 6, Category: engine.CategoryVanguard, Tags: []string{"DP-Recovery", "DPS"}},
		{ID: "saria", Name: "Saria", Tier: 6, Category: engine.CategoryDefender, Tags: []string{"Defense", "Healing", "Support"}},
		{ID: "hoshiguma", Name: "Hoshiguma", Tier: 6, Category: engine.CategoryDefender, Tags: []string{"Defense", "DPS"}},
		{ID: "shining", Name: "Shining", Tier: 6, Category: engine.CategoryMedic, Tags: []string{"Healing", "Defense"}},
		{ID: "nightingale", Name: "Nightingale", Tier: 6, Category: engine.CategoryMedic, Tags: []string{"Healing", "Support"}},
		{ID: "ifrit", Name: "Ifrit", Tier: 6, Category: engine.CategoryCaster, Tags: []string{"AoE", "Debuff"}},
		{ID: "eyjafjalla", Name: "Eyjafjalla", Tier: 6, Category: engine.CategoryCaster, Tags: []string{"AoE", "DPS"}},
		{ID: "angelina", Name: "Angelina", Tier: 6, Category: engine.CategorySupporter, Tags: []string{"Slow", "DPS", "Support"}},
		{ID: "skadi", Name: "Skadi", Tier: 6, Category: engine.CategoryGuard, Tags: []string{"DPS", "Survival"}},
		{ID: "chen", Name: "Ch'en", Tier: 6, Category: engine.CategoryGuard, Tags: []string{"Nuker", "DPS"}},
		{ID: "schwarz", Name: "Schwarz", Tier: 6, Category: engine.CategorySniper, Tags: []string{"DPS"}},
		{ID: "blue-poison", Name: "Blue Poison", Tier: 5, Category: engine.CategorySniper, Tags: []string{"DPS"}},
		{ID: "projekt-red", Name: "Projekt Red", Tier: 5, Category: engine.CategorySpecialist, Tags: []string{"Fast-Redeploy", "Crowd-Control"}},
		{ID: "lappland", Name: "Lappland", Tier: 5, Category: engine.CategoryGuard, Tags: []string{"Debuff", "Survival"}},
		{ID: "ptilopsis", Name: "Ptilopsis", Tier: 5, Category: engine.CategoryMedic, Tags: []string{"Healing", "Support"}},
		{ID: "warfarin", Name: "Warfarin", Tier: 5, Category: engine.CategoryMedic, Tags: []string{"Healing", "Support"}},
		{ID: "liskarm", Name: "Liskarm", Tier: 5, Category: engine.CategoryDefender, Tags: []string{"Defense", "DPS"}},
		{ID: "cuora", Name: "Cuora", Tier: 4, Category: engine.CategoryDefender, Tags: []string{"Defense"}},
		{ID: "myrtle", Name: "Myrtle", Tier: 4, Category: engine.CategoryVanguard, Tags: []string{"DP-Recovery", "Healing"}},
		{ID: "gravel", Name: "Gravel", Tier: 4, Category: engine.CategorySpecialist, Tags: []string{"Fast-Redeploy", "Defense"}},
		{ID: "shaw", Name: "Shaw", Tier: 4, Category: engine.CategorySpecialist, Tags: []string{"Shift"}},
		{ID: "frostleaf", Name: "Frostleaf", Tier: 4, Category: engine.CategoryGuard, Tags: []string{"Slow", "DPS"}},
		{ID: "orchid", Name: "Orchid", Tier: 4, Category: engine.CategorySupporter, Tags: []string{"Slow"}},
		{ID: "kroos", Name: "Kroos", Tier: 3, Category: engine.CategorySniper, Tags: []string{"DPS"}},
		{ID: "fang", Name: "Fang", Tier: 3, Category: engine.CategoryVanguard, Tags: []string{"DP-Recovery"}},
		{ID: "steward", Name: "Steward", Tier: 3, Category: engine.CategoryCaster, Tags: []string{"DPS"}},
		{ID: "beagle", Name: "Beagle", Tier: 3, Category: engine.CategoryDefender, Tags: []string{"Defense"}},
		{ID: "ansel", Name: "Ansel", Tier: 3, Category: engine.CategoryMedic, Tags: []string{"Healing"}},
	}
}
