// Package catalog loads the draftable item catalog once at process start and
// serves immutable snapshots of it to every session.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/DoyleJ11/banpick-backend/internal/engine"
)

var ErrEmptyCatalog = errors.New("catalog is empty")
var ErrDuplicateItem = errors.New("duplicate item id")

type Source interface {
	Load(ctx context.Context) ([]engine.Item, error)
}

// Catalog is read-only after New returns and is shared by every room.
type Catalog struct {
	items []engine.Item
	byID  map[string]int
}

func New(items []engine.Item) (*Catalog, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		items: make([]engine.Item, 0, len(items)),
		byID:  make(map[string]int, len(items)),
	}
	for _, it := range items {
		it = normalize(it)
		if err := it.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[it.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateItem, it.ID)
		}
		c.byID[it.ID] = len(c.items)
		c.items = append(c.items, it)
	}
	return c, nil
}

// Load reads src once and builds the catalog from it.
func Load(ctx context.Context, src Source) (*Catalog, error) {
	items, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return New(items)
}

// Snapshot returns a copy the caller may keep; the catalog itself never changes.
func (c *Catalog) Snapshot() []engine.Item {
	out := make([]engine.Item, len(c.items))
	for i, it := range c.items {
		it.Tags = append([]string(nil), it.Tags...)
		out[i] = it
	}
	return out
}

func (c *Catalog) Len() int { return len(c.items) }

func (c *Catalog) Item(id string) (engine.Item, bool) {
	i, ok := c.byID[id]
	if !ok {
		return engine.Item{}, false
	}
	return c.items[i], true
}

func normalize(it engine.Item) engine.Item {
	it.ID = strings.TrimSpace(it.ID)
	it.Name = norm.NFC.String(strings.TrimSpace(it.Name))
	it.Category = ParseCategory(string(it.Category))
	tags := make([]string, 0, len(it.Tags))
	for _, t := range it.Tags {
		if t = norm.NFC.String(strings.TrimSpace(t)); t != "" {
			tags = append(tags, t)
		}
	}
	it.Tags = tags
	return it
}

// game-data profession codes mapped onto categories
var professionAliases = map[string]engine.Category{
	"pioneer": engine.CategoryVanguard,
	"warrior": engine.CategoryGuard,
	"tank":    engine.CategoryDefender,
	"support": engine.CategorySupporter,
	"special": engine.CategorySpecialist,
}

// ParseCategory folds case and resolves profession aliases. Unknown values
// are returned folded so Item.Validate can report them. Casers are stateful,
// hence one per call.
func ParseCategory(raw string) engine.Category {
	key := cases.Fold().String(strings.TrimSpace(raw))
	if c, ok := professionAliases[key]; ok {
		return c
	}
	return engine.Category(key)
}
