// Package filter compiles FilterSet predicates into per-document bitmaps
// so the lexical and vector indexers can test filter membership during
// postings walks and graph traversal with cheap integer operations.
package filter

import (
	"sync"

	"github.com/apidex-labs/apidex/internal/core/domain"
)

// environment codes packed into the bitmap. Zero means no metadata.
const (
	envNone uint8 = iota
	envDev
	envStaging
	envProd
)

func envCode(e domain.Environment) uint8 {
	switch e {
	case domain.EnvironmentDev:
		return envDev
	case domain.EnvironmentStaging:
		return envStaging
	case domain.EnvironmentProd:
		return envProd
	default:
		return envNone
	}
}

// Table interns region and scope names so document bitmaps and compiled
// filters share one ID space. Safe for concurrent use.
type Table struct {
	mu      sync.Mutex
	regions map[string]uint32
	scopes  map[string]int
}

// NewTable creates an empty intern table.
func NewTable() *Table {
	return &Table{
		regions: make(map[string]uint32),
		scopes:  make(map[string]int),
	}
}

func (t *Table) regionID(region string) uint32 {
	if region == "" {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.regions[region]
	if !ok {
		id = uint32(len(t.regions)) + 1
		t.regions[region] = id
	}
	return id
}

func (t *Table) scopeID(scope string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.scopes[scope]
	if !ok {
		id = len(t.scopes)
		t.scopes[scope] = id
	}
	return id
}

// Bitmap is one document's filter membership, built at index time.
type Bitmap struct {
	env       uint8
	pii       bool
	region    uint32
	scopeMask uint64
	// scopeOverflow holds required scopes beyond the first 64 interned.
	scopeOverflow []string
}

// BitmapFor builds the bitmap for a document.
func (t *Table) BitmapFor(doc domain.Document) Bitmap {
	b := Bitmap{
		env:    envCode(doc.Environment),
		pii:    doc.PIIFlag,
		region: t.regionID(doc.Region),
	}
	for _, scope := range doc.RequiredScopes {
		id := t.scopeID(scope)
		if id < 64 {
			b.scopeMask |= 1 << uint(id)
		} else {
			b.scopeOverflow = append(b.scopeOverflow, scope)
		}
	}
	return b
}

// Compiled is a FilterSet translated into the table's ID space.
type Compiled struct {
	env         uint8
	excludePII  bool
	region      uint32
	checkScopes bool
	scopeMask   uint64
	allowed     map[string]bool
}

// Compile translates a FilterSet for matching against bitmaps.
func (t *Table) Compile(f domain.FilterSet) Compiled {
	c := Compiled{
		env:        envCode(f.Environment),
		excludePII: f.ExcludePII,
		region:     t.regionID(f.Region),
	}
	if len(f.WithinScopes) > 0 {
		c.checkScopes = true
		c.allowed = make(map[string]bool, len(f.WithinScopes))
		for _, scope := range f.WithinScopes {
			c.allowed[scope] = true
			if id := t.scopeID(scope); id < 64 {
				c.scopeMask |= 1 << uint(id)
			}
		}
	}
	return c
}

// Matches reports whether a document bitmap satisfies the filter.
func (c Compiled) Matches(b Bitmap) bool {
	if c.env != envNone && b.env != c.env {
		return false
	}
	if c.excludePII && b.pii {
		return false
	}
	if c.region != 0 && b.region != c.region {
		return false
	}
	if c.checkScopes {
		// Every required scope of the document must be in the allowed set.
		if b.scopeMask&^c.scopeMask != 0 {
			return false
		}
		for _, scope := range b.scopeOverflow {
			if !c.allowed[scope] {
				return false
			}
		}
	}
	return true
}
