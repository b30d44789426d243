package engine

import (
	"fmt"

	"github.com/hwidjaja/tabletally/internal/game/domain"
	"github.com/hwidjaja/tabletally/internal/game/event"
)

// enrich fills host-assigned fields into a validated event before it is
// applied and broadcast: generated identifiers, turn-successor resolution,
// and the contest outcome. Mirrors receive the enriched event inside the
// envelope and therefore never need to generate anything themselves.
//
// Enrichment only fills empty fields, so replaying an already-enriched
// event is stable.
func (e *Engine) enrich(state domain.Session, ev event.Event) (event.Event, error) {
	if ev.ID == "" {
		generated, err := e.newID()
		if err != nil {
			return event.Event{}, fmt.Errorf("generate event id: %w", err)
		}
		ev.ID = generated
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = e.clock().UTC()
	}

	switch ev.Type {
	case event.TypeParticipantJoined:
		var payload event.JoinedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return event.Event{}, err
		}
		if payload.ParticipantID == "" {
			participantID, err := e.newID()
			if err != nil {
				return event.Event{}, fmt.Errorf("generate participant id: %w", err)
			}
			payload.ParticipantID = participantID
			return ev.WithPayload(payload)
		}

	case event.TypeParticipantLeft:
		var payload event.LeftPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return event.Event{}, err
		}
		if payload.NextTurnID == "" && state.Phase == domain.PhaseActive && state.TurnParticipantID == ev.ActorID {
			payload.NextTurnID = nextConnected(state, ev.ActorID, ev.ActorID)
			return ev.WithPayload(payload)
		}

	case event.TypeSessionStarted:
		var payload event.StartedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return event.Event{}, err
		}
		if payload.FirstTurnParticipantID == "" {
			payload.FirstTurnParticipantID = firstTurnHolder(state)
			return ev.WithPayload(payload)
		}

	case event.TypeTurnEnded:
		var payload event.TurnEndedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return event.Event{}, err
		}
		if payload.NextID == "" {
			next := nextConnected(state, state.TurnParticipantID, "")
			if next == "" {
				// Nobody else is reachable; leave the turn where it is.
				next = state.TurnParticipantID
			}
			payload.NextID = next
			return ev.WithPayload(payload)
		}

	case event.TypeCatalogEntryAdded:
		var payload event.CatalogEntryAddedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return event.Event{}, err
		}
		if payload.EntryID == "" {
			entryID, err := e.newID()
			if err != nil {
				return event.Event{}, fmt.Errorf("generate entry id: %w", err)
			}
			payload.EntryID = entryID
			return ev.WithPayload(payload)
		}

	case event.TypeOpponentAdded:
		var payload event.OpponentPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return event.Event{}, err
		}
		if payload.Opponent.ID == "" {
			opponentID, err := e.newID()
			if err != nil {
				return event.Event{}, fmt.Errorf("generate opponent id: %w", err)
			}
			payload.Opponent.ID = opponentID
			return ev.WithPayload(payload)
		}

	case event.TypeTempBonusAdded:
		var payload event.TempBonusPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return event.Event{}, err
		}
		if payload.Bonus.ID == "" {
			bonusID, err := e.newID()
			if err != nil {
				return event.Event{}, fmt.Errorf("generate bonus id: %w", err)
			}
			payload.Bonus.ID = bonusID
			return ev.WithPayload(payload)
		}

	case event.TypeContestEnded:
		var payload event.ContestEndedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return event.Event{}, err
		}
		if payload.Outcome == "" {
			resolution, err := ResolveContest(state)
			if err != nil {
				return event.Event{}, err
			}
			payload.Outcome = string(resolution.Outcome)
			payload.TieBreakApplied = resolution.TieBreakApplied
			payload.LevelsAwarded = resolution.LevelsAwarded
			payload.TreasuresAwarded = resolution.TreasuresAwarded
			payload.HelperLevelAwarded = resolution.HelperLevelAwarded
			return ev.WithPayload(payload)
		}
	}

	return ev, nil
}

// firstTurnHolder picks the starting turn holder: the first connected
// participant in turn order, falling back to the first in order.
func firstTurnHolder(state domain.Session) string {
	order := state.TurnOrder()
	for _, participantID := range order {
		if p, ok := state.Participants[participantID]; ok && p.Connected {
			return participantID
		}
	}
	if len(order) > 0 {
		return order[0]
	}
	return ""
}

// nextConnected walks the turn order starting just after current, wrapping
// at most once, and returns the first connected participant. skip is
// excluded from consideration (used when the current holder is leaving).
// Returns empty when no connected candidate exists.
func nextConnected(state domain.Session, current string, skip string) string {
	order := state.TurnOrder()
	if len(order) == 0 {
		return ""
	}

	start := 0
	for i, participantID := range order {
		if participantID == current {
			start = i + 1
			break
		}
	}

	for i := range order {
		candidate := order[(start+i)%len(order)]
		if candidate == skip {
			continue
		}
		if p, ok := state.Participants[candidate]; ok && p.Connected {
			return candidate
		}
	}
	return ""
}
