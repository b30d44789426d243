package domain

import (
	"slices"
	"strings"
)

// Fixed race tags built into the game vocabulary. User-created races live in
// the session catalog and are referenced by entry id instead.
const (
	RaceHuman    = "human"
	RaceElf      = "elf"
	RaceDwarf    = "dwarf"
	RaceHalfling = "halfling"
)

// Fixed class tags built into the game vocabulary.
const (
	ClassWarrior = "warrior"
	ClassWizard  = "wizard"
	ClassThief   = "thief"
	ClassCleric  = "cleric"
)

var fixedRaces = []string{RaceHuman, RaceElf, RaceDwarf, RaceHalfling}
var fixedClasses = []string{ClassWarrior, ClassWizard, ClassThief, ClassCleric}

// IsFixedRace reports whether value names a built-in race tag.
func IsFixedRace(value string) bool {
	return slices.Contains(fixedRaces, strings.ToLower(strings.TrimSpace(value)))
}

// IsFixedClass reports whether value names a built-in class tag.
func IsFixedClass(value string) bool {
	return slices.Contains(fixedClasses, strings.ToLower(strings.TrimSpace(value)))
}

// hasTrait matches value against held trait references. A fixed-tag value
// matches case-insensitively; any other value must match a held catalog id
// exactly.
func hasTrait(held []string, value string, isFixed func(string) bool) bool {
	if isFixed(value) {
		normalized := strings.ToLower(strings.TrimSpace(value))
		for _, ref := range held {
			if strings.ToLower(strings.TrimSpace(ref)) == normalized {
				return true
			}
		}
		return false
	}
	return slices.Contains(held, value)
}
