package engine

import (
	"fmt"
	"slices"
)

type Category string

const (
	CategoryVanguard   Category = "vanguard"
	CategoryGuard      Category = "guard"
	CategoryDefender   Category = "defender"
	CategorySniper     Category = "sniper"
	CategoryCaster     Category = "caster"
	CategoryMedic      Category = "medic"
	CategorySupporter  Category = "supporter"
	CategorySpecialist Category = "specialist"
)

var Categories = []Category{
	CategoryVanguard,
	CategoryGuard,
	CategoryDefender,
	CategorySniper,
	CategoryCaster,
	CategoryMedic,
	CategorySupporter,
	CategorySpecialist,
}

const (
	MinTier = 3
	MaxTier = 6
)

// Item is an opaque draftable entry. The engine only ever compares IDs.
type Item struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Tier     int      `json:"tier"`
	Category Category `json:"category"`
	Tags     []string `json:"tags,omitempty"`
}

func (it Item) Validate() error {
	if it.ID == "" {
		return fmt.Errorf("item %q: empty id", it.Name)
	}
	if it.Tier < MinTier || it.Tier > MaxTier {
		return fmt.Errorf("item %s: tier %d outside %d-%d", it.ID, it.Tier, MinTier, MaxTier)
	}
	if !slices.Contains(Categories, it.Category) {
		return fmt.Errorf("item %s: unknown category %q", it.ID, it.Category)
	}
	return nil
}

// Pool partitions a catalog snapshot into available, banned and picked ids.
// Every id lives in exactly one of the three and only ever leaves Available.
type Pool struct {
	Catalog   []Item             `json:"catalog"`
	Available []string           `json:"available"`
	Banned    []string           `json:"banned"`
	Picked    []string           `json:"picked"`
	ByPhase   map[Phase][]string `json:"by_phase"`
}

func NewPool(catalog []Item) *Pool {
	p := &Pool{
		Catalog:   slices.Clone(catalog),
		Available: make([]string, 0, len(catalog)),
		Banned:    []string{},
		Picked:    []string{},
		ByPhase:   map[Phase][]string{},
	}
	for _, it := range catalog {
		p.Available = append(p.Available, it.ID)
	}
	for _, ph := range DraftPhases {
		p.ByPhase[ph] = []string{}
	}
	return p
}

func (p *Pool) IsAvailable(id string) bool {
	return p != nil && slices.Contains(p.Available, id)
}

// Ban moves id to the banned set and attributes it to phase.
func (p *Pool) Ban(id string, phase Phase) error {
	if err := p.take(id, phase); err != nil {
		return err
	}
	p.Banned = append(p.Banned, id)
	return nil
}

// Pick moves id to the picked set and attributes it to phase.
func (p *Pool) Pick(id string, phase Phase) error {
	if err := p.take(id, phase); err != nil {
		return err
	}
	p.Picked = append(p.Picked, id)
	return nil
}

func (p *Pool) take(id string, phase Phase) error {
	i := slices.Index(p.Available, id)
	if i < 0 {
		return ErrItemNotAvailable
	}
	p.Available = slices.Delete(p.Available, i, i+1)
	p.ByPhase[phase] = append(p.ByPhase[phase], id)
	return nil
}

// Count is the number of items removed during phase.
func (p *Pool) Count(phase Phase) int {
	return len(p.ByPhase[phase])
}

func (p *Pool) Item(id string) (Item, bool) {
	for _, it := range p.Catalog {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	c := &Pool{
		Catalog:   p.Catalog, // immutable once loaded
		Available: slices.Clone(p.Available),
		Banned:    slices.Clone(p.Banned),
		Picked:    slices.Clone(p.Picked),
		ByPhase:   make(map[Phase][]string, len(p.ByPhase)),
	}
	for ph, ids := range p.ByPhase {
		c.ByPhase[ph] = slices.Clone(ids)
	}
	return c
}
