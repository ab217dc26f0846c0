package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/DoyleJ11/banpick-backend/internal/engine"
)

// FileSource reads a JSON catalog. Two shapes are accepted: a plain array of
// items, or a game-data character table keyed by character id.
type FileSource struct {
	Path string
}

func (f FileSource) Load(context.Context) ([]engine.Item, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}
	return Parse(data)
}

func Parse(data []byte) ([]engine.Item, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmptyCatalog
	}
	if trimmed[0] == '[' {
		var items []engine.Item
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode item list: %w", err)
		}
		return items, nil
	}
	return parseCharacterTable(trimmed)
}

type characterEntry struct {
	Name       string   `json:"name"`
	Rarity     string   `json:"rarity"`
	Profession string   `json:"profession"`
	TagList    []string `json:"tagList"`
}

// parseCharacterTable keeps only entries that can be drafted: tiers inside
// the engine bounds and a known profession. Tokens and traps drop out here.
func parseCharacterTable(data []byte) ([]engine.Item, error) {
	var table map[string]characterEntry
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("decode character table: %w", err)
	}

	ids := make([]string, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	items := make([]engine.Item, 0, len(ids))
	for _, id := range ids {
		e := table[id]
		tier, ok := parseRarity(e.Rarity)
		if !ok || tier < engine.MinTier || tier > engine.MaxTier {
			continue
		}
		cat := ParseCategory(e.Profession)
		if !slices.Contains(engine.Categories, cat) {
			continue
		}
		items = append(items, engine.Item{
			ID:       id,
			Name:     e.Name,
			Tier:     tier,
			Category: cat,
			Tags:     e.TagList,
		})
	}
	return items, nil
}

// parseRarity accepts "TIER_5" as well as a bare number.
func parseRarity(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(raw, "TIER_"))
	if err != nil {
		return 0, false
	}
	return n, true
}
