package event

import "github.com/hwidjaja/tabletally/internal/game/domain"

// JoinedPayload captures the payload for participant.joined events. The
// participant id is assigned by the host during processing so every mirror
// applies the same identity.
type JoinedPayload struct {
	ParticipantID string                 `json:"participant_id"`
	Meta          domain.ParticipantMeta `json:"meta"`
}

// LeftPayload captures the payload for participant.left events. When the
// leaver held the turn, NextTurnID carries the host-resolved successor.
type LeftPayload struct {
	Reason     string `json:"reason,omitempty"`
	NextTurnID string `json:"next_turn_id,omitempty"`
}

// StartedPayload captures the payload for session.started events. The first
// turn holder is resolved by the host so mirrors do not depend on local
// connectivity views.
type StartedPayload struct {
	FirstTurnParticipantID string `json:"first_turn_participant_id,omitempty"`
}

// TurnEndedPayload captures the payload for turn.ended events. NextID is
// filled in by the host from its authoritative connectivity view; mirrors
// honor it instead of re-deriving it from their own presentation state.
type TurnEndedPayload struct {
	NextID string `json:"next_id,omitempty"`
}

// OrderSwappedPayload captures the payload for turn.order_swapped events.
type OrderSwappedPayload struct {
	FirstID  string `json:"first_id"`
	SecondID string `json:"second_id"`
}

// RenamedPayload captures the payload for participant.renamed events.
type RenamedPayload struct {
	Name string `json:"name"`
}

// AvatarSetPayload captures the payload for participant.avatar_set events.
type AvatarSetPayload struct {
	AvatarID string `json:"avatar_id"`
}

// GenderSetPayload captures the payload for participant.gender_set events.
type GenderSetPayload struct {
	Gender domain.Gender `json:"gender"`
}

// AdjustedPayload captures the payload for level and gear delta events.
type AdjustedPayload struct {
	Delta int `json:"delta"`
}

// DualTraitSetPayload captures the payload for dual race/class flag events.
type DualTraitSetPayload struct {
	Enabled bool `json:"enabled"`
}

// TraitRefPayload captures the payload for race/class add and remove events.
// Value is a fixed trait tag or a catalog entry id.
type TraitRefPayload struct {
	Value string `json:"value"`
}

// RollRecordedPayload captures the payload for participant.roll_recorded
// events.
type RollRecordedPayload struct {
	Value int `json:"value"`
}

// CatalogEntryAddedPayload captures the payload for catalog.entry_added
// events. EntryID is assigned by the host during processing.
type CatalogEntryAddedPayload struct {
	Kind    domain.CatalogKind `json:"kind"`
	EntryID string             `json:"entry_id,omitempty"`
	Name    string             `json:"name"`
	Aliases []string           `json:"aliases,omitempty"`
}

// CatalogEntryArchivedPayload captures the payload for
// catalog.entry_archived events.
type CatalogEntryArchivedPayload struct {
	Kind    domain.CatalogKind `json:"kind"`
	EntryID string             `json:"entry_id"`
}

// HelperPayload captures the payload for contest.helper_added events.
type HelperPayload struct {
	HelperID string `json:"helper_id"`
}

// OpponentPayload captures the payload for opponent add and update events.
// The opponent id is assigned by the host on add.
type OpponentPayload struct {
	Opponent domain.Opponent `json:"opponent"`
}

// OpponentRemovedPayload captures the payload for contest.opponent_removed
// events.
type OpponentRemovedPayload struct {
	OpponentID string `json:"opponent_id"`
}

// TempBonusPayload captures the payload for contest.temp_bonus_added events.
// The bonus id is assigned by the host.
type TempBonusPayload struct {
	Bonus domain.TempBonus `json:"bonus"`
}

// TempBonusRemovedPayload captures the payload for
// contest.temp_bonus_removed events.
type TempBonusRemovedPayload struct {
	BonusID string `json:"bonus_id"`
}

// QuickModifierSetPayload captures the payload for
// contest.quick_modifier_set events. When Absolute is set the modifier is
// replaced; otherwise Delta adjusts it.
type QuickModifierSetPayload struct {
	Side     domain.Side `json:"side"`
	Delta    int         `json:"delta,omitempty"`
	Absolute *int        `json:"absolute,omitempty"`
}

// ContestEndedPayload captures the payload for contest.ended events. The
// resolution fields are filled in by the host at processing time so the
// broadcast carries the final outcome.
type ContestEndedPayload struct {
	Outcome            string `json:"outcome,omitempty"`
	TieBreakApplied    bool   `json:"tie_break_applied,omitempty"`
	LevelsAwarded      int    `json:"levels_awarded,omitempty"`
	TreasuresAwarded   int    `json:"treasures_awarded,omitempty"`
	HelperLevelAwarded int    `json:"helper_level_awarded,omitempty"`
}
