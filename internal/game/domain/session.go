package domain

import (
	"slices"
	"time"
)

// Phase is the lifecycle stage of a session.
type Phase string

const (
	// PhaseLobby is the pre-game stage where participants join and roll for
	// first turn.
	PhaseLobby Phase = "lobby"
	// PhaseActive is the in-progress game stage.
	PhaseActive Phase = "active"
	// PhaseFinished is the terminal stage.
	PhaseFinished Phase = "finished"
)

// IsValid reports whether the phase is one of the known stages.
func (p Phase) IsValid() bool {
	switch p {
	case PhaseLobby, PhaseActive, PhaseFinished:
		return true
	}
	return false
}

// Participant count bounds for a session.
const (
	MinParticipants = 1
	MaxParticipants = 6
)

// LevelBounds clamps participant levels.
type LevelBounds struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// DefaultLevelBounds is the standard 1..10 level range.
var DefaultLevelBounds = LevelBounds{Min: 1, Max: 10}

// Clamp returns level constrained to the bounds.
func (b LevelBounds) Clamp(level int) int {
	if level < b.Min {
		return b.Min
	}
	if level > b.Max {
		return b.Max
	}
	return level
}

// Session is the root aggregate: one hosted game instance.
type Session struct {
	// ID is the opaque session identifier.
	ID string `json:"id"`
	// JoinCode is the human-entered 6-character code.
	JoinCode string `json:"join_code"`
	// Epoch increments on every host failover, distinguishing successive
	// authoritative lineages.
	Epoch uint64 `json:"epoch"`
	// Seq increments exactly once per successfully applied event.
	Seq uint64 `json:"seq"`
	// HostID is the current authoritative participant.
	HostID string `json:"host_id"`
	// Phase is the lifecycle stage.
	Phase Phase `json:"phase"`
	// TurnParticipantID is whose turn it is; meaningful only while active.
	TurnParticipantID string `json:"turn_participant_id,omitempty"`
	// Participants maps participant id to state.
	Participants map[string]Participant `json:"participants"`
	// JoinOrder records insertion order; it is the implicit turn order and
	// implicit failover priority.
	JoinOrder []string `json:"join_order"`
	// ExplicitOrder, when set, overrides JoinOrder for turns and failover.
	ExplicitOrder []string `json:"explicit_order,omitempty"`
	// Races and Classes are the per-session shared catalogs.
	Races   map[string]CatalogEntry `json:"races"`
	Classes map[string]CatalogEntry `json:"classes"`
	// Contest is the active combat sub-context, nil when none is running.
	Contest *Contest `json:"contest,omitempty"`
	// Levels is the clamp range applied to participant levels.
	Levels LevelBounds `json:"levels"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TurnOrder returns the effective participant ordering: the explicit
// override when present, join order otherwise. Ids that no longer reference
// a participant are skipped.
func (s Session) TurnOrder() []string {
	source := s.JoinOrder
	if len(s.ExplicitOrder) > 0 {
		source = s.ExplicitOrder
	}
	order := make([]string, 0, len(source))
	for _, participantID := range source {
		if _, ok := s.Participants[participantID]; ok {
			order = append(order, participantID)
		}
	}
	return order
}

// Participant returns the participant by id.
func (s Session) Participant(participantID string) (Participant, bool) {
	p, ok := s.Participants[participantID]
	return p, ok
}

// Catalog returns the race or class catalog for kind.
func (s Session) Catalog(kind CatalogKind) map[string]CatalogEntry {
	if kind == CatalogRace {
		return s.Races
	}
	return s.Classes
}

// Clone returns a deep copy: mutating the copy never affects the original.
func (s Session) Clone() Session {
	clone := s
	clone.Participants = make(map[string]Participant, len(s.Participants))
	for participantID, p := range s.Participants {
		clone.Participants[participantID] = p.Clone()
	}
	clone.JoinOrder = slices.Clone(s.JoinOrder)
	clone.ExplicitOrder = slices.Clone(s.ExplicitOrder)
	clone.Races = cloneCatalog(s.Races)
	clone.Classes = cloneCatalog(s.Classes)
	if s.Contest != nil {
		contest := s.Contest.Clone()
		clone.Contest = &contest
	}
	return clone
}

func cloneCatalog(entries map[string]CatalogEntry) map[string]CatalogEntry {
	clone := make(map[string]CatalogEntry, len(entries))
	for entryID, entry := range entries {
		clone[entryID] = entry.Clone()
	}
	return clone
}
