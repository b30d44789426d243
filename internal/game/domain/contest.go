package domain

import "slices"

// Side tags a combat modifier as helping the hero side or the opponent side.
type Side string

const (
	SideHero     Side = "hero"
	SideOpponent Side = "opponent"
)

// IsValid reports whether the side is known.
func (s Side) IsValid() bool {
	return s == SideHero || s == SideOpponent
}

// ConditionKind selects what a conditional modifier matches against.
type ConditionKind string

const (
	ConditionRace   ConditionKind = "race"
	ConditionClass  ConditionKind = "class"
	ConditionGender ConditionKind = "gender"
)

// ModifierScope selects which hero-side participants a condition inspects.
type ModifierScope string

const (
	ScopePrimary ModifierScope = "primary"
	ScopeHelper  ModifierScope = "helper"
	ScopeEither  ModifierScope = "either"
)

// ApplyMode governs whether a matching conditional modifier contributes once
// total or once per distinct matching participant.
type ApplyMode string

const (
	ApplyOnce           ApplyMode = "once"
	ApplyPerParticipant ApplyMode = "per_participant"
)

// ConditionalModifier is a combat adjustment evaluated at resolution time
// against live participant state.
type ConditionalModifier struct {
	Amount    int           `json:"amount"`
	Side      Side          `json:"side"`
	Condition ConditionKind `json:"condition"`
	// Value is a fixed trait tag, a catalog entry id, or a gender tag
	// depending on Condition.
	Value string        `json:"value"`
	Scope ModifierScope `json:"scope"`
	Mode  ApplyMode     `json:"mode"`
}

// Opponent is one monster instance inside a contest.
type Opponent struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	BaseStrength int    `json:"base_strength"`
	Modifier     int    `json:"modifier"`
	// RewardTreasures and RewardLevels are granted to the primary on a win.
	RewardTreasures int  `json:"reward_treasures"`
	RewardLevels    int  `json:"reward_levels"`
	Undead          bool `json:"undead,omitempty"`

	Conditionals []ConditionalModifier `json:"conditionals,omitempty"`
}

// Strength is the opponent's flat contribution before conditionals.
func (o Opponent) Strength() int {
	return o.BaseStrength + o.Modifier
}

// TempBonus is an ad-hoc one-off adjustment added during a contest.
type TempBonus struct {
	ID     string `json:"id"`
	Amount int    `json:"amount"`
	Side   Side   `json:"side"`
}

// Contest is the transient combat sub-aggregate.
type Contest struct {
	PrimaryID string     `json:"primary_id"`
	HelperID  string     `json:"helper_id,omitempty"`
	Opponents []Opponent `json:"opponents"`

	TempBonuses []TempBonus `json:"temp_bonuses,omitempty"`
	// Quick modifiers are freeform running adjustments, one per side.
	HeroQuickModifier     int `json:"hero_quick_modifier,omitempty"`
	OpponentQuickModifier int `json:"opponent_quick_modifier,omitempty"`
	// RollNote annotates the last random roll made during the contest.
	RollNote string `json:"roll_note,omitempty"`
}

// Opponent returns the opponent instance by id.
func (c Contest) Opponent(opponentID string) (Opponent, bool) {
	for _, o := range c.Opponents {
		if o.ID == opponentID {
			return o, true
		}
	}
	return Opponent{}, false
}

// Clone returns a deep copy of the contest.
func (c Contest) Clone() Contest {
	clone := c
	clone.Opponents = make([]Opponent, len(c.Opponents))
	for i, o := range c.Opponents {
		opponent := o
		opponent.Conditionals = slices.Clone(o.Conditionals)
		clone.Opponents[i] = opponent
	}
	clone.TempBonuses = slices.Clone(c.TempBonuses)
	return clone
}
