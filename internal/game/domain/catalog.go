package domain

import (
	"slices"
	"strings"
	"time"
)

// CatalogKind distinguishes the race catalog from the class catalog.
type CatalogKind string

const (
	CatalogRace  CatalogKind = "race"
	CatalogClass CatalogKind = "class"
)

// IsValid reports whether the kind is known.
func (k CatalogKind) IsValid() bool {
	return k == CatalogRace || k == CatalogClass
}

// CatalogEntry is a user-created race or class shared within one session.
type CatalogEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Normalized is the case/space-folded name used for uniqueness checks.
	Normalized string   `json:"normalized"`
	Aliases    []string `json:"aliases,omitempty"`
	CreatedBy  string   `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	// Archived entries are excluded from active views but retained so
	// existing references stay resolvable.
	Archived bool `json:"archived,omitempty"`
}

// Clone returns a deep copy of the entry.
func (e CatalogEntry) Clone() CatalogEntry {
	clone := e
	clone.Aliases = slices.Clone(e.Aliases)
	return clone
}

// NormalizeCatalogName folds case and whitespace for uniqueness comparison:
// trimmed, lowercased, runs of inner whitespace collapsed to single spaces.
func NormalizeCatalogName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// FindActiveByName returns the non-archived entry whose normalized name or
// alias matches name.
func FindActiveByName(entries map[string]CatalogEntry, name string) (CatalogEntry, bool) {
	normalized := NormalizeCatalogName(name)
	if normalized == "" {
		return CatalogEntry{}, false
	}
	for _, entry := range entries {
		if entry.Archived {
			continue
		}
		if entry.Normalized == normalized || slices.Contains(entry.Aliases, normalized) {
			return entry, true
		}
	}
	return CatalogEntry{}, false
}
