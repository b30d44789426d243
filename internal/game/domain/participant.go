package domain

import (
	"slices"
	"time"
)

// Gender is a participant's gender tag, used by gender-conditioned combat
// modifiers.
type Gender string

const (
	GenderUnspecified Gender = ""
	GenderFemale      Gender = "female"
	GenderMale        Gender = "male"
	GenderOther       Gender = "other"
)

// ParticipantMeta is the join-time identity a participant supplies.
type ParticipantMeta struct {
	Name        string `json:"name"`
	AvatarID    string `json:"avatar_id,omitempty"`
	Gender      Gender `json:"gender,omitempty"`
	NetworkHint string `json:"network_hint,omitempty"`
}

// Participant is one human player's state within a session.
type Participant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	AvatarID string `json:"avatar_id,omitempty"`
	Gender   Gender `json:"gender,omitempty"`

	// Level is clamped to the session's LevelBounds.
	Level int `json:"level"`
	// GearBonus is unbounded equipment strength.
	GearBonus int `json:"gear_bonus"`
	// TempCombatBonus is an ephemeral per-fight adjustment.
	TempCombatBonus int `json:"temp_combat_bonus,omitempty"`
	// Treasures counts combat reward treasures; it is bookkeeping only.
	Treasures int `json:"treasures,omitempty"`

	// Races and Classes hold trait references: fixed tags or catalog ids.
	Races   []string `json:"races,omitempty"`
	Classes []string `json:"classes,omitempty"`
	// DualRace and DualClass raise the respective trait cap from 1 to 2.
	DualRace  bool `json:"dual_race,omitempty"`
	DualClass bool `json:"dual_class,omitempty"`

	// Connected reflects transport-level liveness; it is presentation state
	// updated outside the event pipeline.
	Connected bool `json:"connected"`
	// NetworkHint is the last known address for failover handover delivery.
	NetworkHint string `json:"network_hint,omitempty"`

	// Roll is the last lobby tie-break roll; zero means no roll recorded.
	Roll int `json:"roll,omitempty"`

	JoinedAt time.Time `json:"joined_at"`
}

// CombatPower is the participant's contribution to the hero side of a
// contest.
func (p Participant) CombatPower() int {
	return p.Level + p.GearBonus + p.TempCombatBonus
}

// RaceCap returns how many race references the participant may hold.
func (p Participant) RaceCap() int {
	if p.DualRace {
		return 2
	}
	return 1
}

// ClassCap returns how many class references the participant may hold.
func (p Participant) ClassCap() int {
	if p.DualClass {
		return 2
	}
	return 1
}

// HasRace reports whether the participant holds the race reference. The
// value is tried as a fixed tag first, then as a catalog id.
func (p Participant) HasRace(value string) bool {
	return hasTrait(p.Races, value, IsFixedRace)
}

// HasClass reports whether the participant holds the class reference.
func (p Participant) HasClass(value string) bool {
	return hasTrait(p.Classes, value, IsFixedClass)
}

// Clone returns a deep copy of the participant.
func (p Participant) Clone() Participant {
	clone := p
	clone.Races = slices.Clone(p.Races)
	clone.Classes = slices.Clone(p.Classes)
	return clone
}
