// Package event defines the closed set of intents that mutate session state,
// and the envelope that wraps each applied intent for logging and broadcast.
package event

import (
	"encoding/json"
	"strings"
	"time"
)

// Type identifies the kind of a session event.
type Type string

// Lifecycle events.
const (
	// TypeSessionCreated records the creation of a session by its first
	// participant.
	TypeSessionCreated Type = "session.created"
	// TypeSessionStarted records the lobby-to-active transition.
	TypeSessionStarted Type = "session.started"
	// TypeSessionEnded records the host-confirmed end of the game.
	TypeSessionEnded Type = "session.ended"
	// TypeParticipantJoined records a participant joining the lobby.
	TypeParticipantJoined Type = "participant.joined"
	// TypeParticipantLeft records a participant leaving the session.
	TypeParticipantLeft Type = "participant.left"
)

// Turn management events.
const (
	// TypeTurnEnded advances the turn to the next connected participant.
	TypeTurnEnded Type = "turn.ended"
	// TypeOrderSwapped swaps two participants in the explicit turn order.
	TypeOrderSwapped Type = "turn.order_swapped"
)

// Participant mutation events; the actor may only target itself.
const (
	TypeParticipantRenamed Type = "participant.renamed"
	TypeAvatarSet          Type = "participant.avatar_set"
	TypeGenderSet          Type = "participant.gender_set"
	TypeLevelAdjusted      Type = "participant.level_adjusted"
	TypeGearAdjusted       Type = "participant.gear_adjusted"
	TypeDualRaceSet        Type = "participant.dual_race_set"
	TypeDualClassSet       Type = "participant.dual_class_set"
	TypeRaceAdded          Type = "participant.race_added"
	TypeRaceRemoved        Type = "participant.race_removed"
	TypeRacesCleared       Type = "participant.races_cleared"
	TypeClassAdded         Type = "participant.class_added"
	TypeClassRemoved       Type = "participant.class_removed"
	TypeClassesCleared     Type = "participant.classes_cleared"
	TypeRollRecorded       Type = "participant.roll_recorded"
)

// Catalog mutation events.
const (
	// TypeCatalogEntryAdded records a new named race or class entry.
	TypeCatalogEntryAdded Type = "catalog.entry_added"
	// TypeCatalogEntryArchived soft-deletes an entry.
	TypeCatalogEntryArchived Type = "catalog.entry_archived"
)

// Contest lifecycle events.
const (
	TypeContestStarted   Type = "contest.started"
	TypeHelperAdded      Type = "contest.helper_added"
	TypeHelperRemoved    Type = "contest.helper_removed"
	TypeOpponentAdded    Type = "contest.opponent_added"
	TypeOpponentRemoved  Type = "contest.opponent_removed"
	TypeOpponentUpdated  Type = "contest.opponent_updated"
	TypeTempBonusAdded   Type = "contest.temp_bonus_added"
	TypeTempBonusRemoved Type = "contest.temp_bonus_removed"
	TypeQuickModifierSet Type = "contest.quick_modifier_set"
	TypeContestEnded     Type = "contest.ended"
)

// IsValid reports whether the event type is usable.
func (t Type) IsValid() bool {
	return strings.TrimSpace(string(t)) != ""
}

// Domain returns the domain prefix of the event type (e.g., "turn",
// "contest").
func (t Type) Domain() string {
	for i, c := range t {
		if c == '.' {
			return string(t[:i])
		}
	}
	return string(t)
}

// SelfTargeted reports whether the type requires actor == target. Order
// swaps and session lifecycle events are host-privileged structural changes
// and exempt.
func (t Type) SelfTargeted() bool {
	switch t {
	case TypeParticipantRenamed, TypeAvatarSet, TypeGenderSet,
		TypeLevelAdjusted, TypeGearAdjusted,
		TypeDualRaceSet, TypeDualClassSet,
		TypeRaceAdded, TypeRaceRemoved, TypeRacesCleared,
		TypeClassAdded, TypeClassRemoved, TypeClassesCleared,
		TypeRollRecorded:
		return true
	}
	return false
}

// HostOnly reports whether only the current host may issue the event.
func (t Type) HostOnly() bool {
	switch t {
	case TypeSessionStarted, TypeSessionEnded, TypeOrderSwapped:
		return true
	}
	return false
}

// Event is one intent submitted against session state.
type Event struct {
	// ID is a unique event identifier.
	ID string `json:"id"`
	// Type identifies the kind of event and drives payload interpretation.
	Type Type `json:"type"`
	// ActorID is the participant issuing the intent.
	ActorID string `json:"actor_id"`
	// TargetID, when present, is the participant being mutated.
	TargetID string `json:"target_id,omitempty"`
	// Timestamp is when the intent was issued.
	Timestamp time.Time `json:"ts"`
	// Payload holds type-specific data as JSON.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodePayload unmarshals the event payload into v.
func (e Event) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}

// WithPayload returns a copy of the event carrying the marshaled payload.
func (e Event) WithPayload(v any) (Event, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Event{}, err
	}
	e.Payload = raw
	return e, nil
}

// Envelope wraps a validated, applied event with the session identity, the
// authoritative lineage it belongs to, and the sequence number it produced.
// It is the unit of broadcast and the unit of the log.
type Envelope struct {
	SessionID string `json:"session_id"`
	Epoch     uint64 `json:"epoch"`
	Seq       uint64 `json:"seq"`
	Event     Event  `json:"event"`
}
