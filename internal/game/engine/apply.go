package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hwidjaja/tabletally/internal/game/domain"
	"github.com/hwidjaja/tabletally/internal/game/event"
)

// apply runs the per-event-type transform against state. The event has
// already passed validation and enrichment, so apply is pure and
// deterministic: the same event against the same state always produces the
// same result on every replica. Errors here indicate a broken payload, not
// a rule violation.
func apply(state *domain.Session, ev event.Event) error {
	switch ev.Type {
	case event.TypeParticipantJoined:
		var payload event.JoinedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode join payload: %w", err)
		}
		state.Participants[payload.ParticipantID] = domain.Participant{
			ID:          payload.ParticipantID,
			Name:        strings.TrimSpace(payload.Meta.Name),
			AvatarID:    payload.Meta.AvatarID,
			Gender:      payload.Meta.Gender,
			Level:       state.Levels.Min,
			Connected:   true,
			NetworkHint: payload.Meta.NetworkHint,
			JoinedAt:    ev.Timestamp.UTC(),
		}
		state.JoinOrder = append(state.JoinOrder, payload.ParticipantID)

	case event.TypeParticipantLeft:
		var payload event.LeftPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode leave payload: %w", err)
		}
		delete(state.Participants, ev.ActorID)
		state.JoinOrder = removeID(state.JoinOrder, ev.ActorID)
		state.ExplicitOrder = removeID(state.ExplicitOrder, ev.ActorID)
		if state.TurnParticipantID == ev.ActorID {
			state.TurnParticipantID = payload.NextTurnID
		}
		if state.Contest != nil {
			if state.Contest.PrimaryID == ev.ActorID {
				state.Contest = nil
			} else if state.Contest.HelperID == ev.ActorID {
				state.Contest.HelperID = ""
			}
		}

	case event.TypeSessionStarted:
		var payload event.StartedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode start payload: %w", err)
		}
		state.Phase = domain.PhaseActive
		state.TurnParticipantID = payload.FirstTurnParticipantID

	case event.TypeSessionEnded:
		state.Phase = domain.PhaseFinished
		clearContest(state)

	case event.TypeTurnEnded:
		var payload event.TurnEndedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode turn payload: %w", err)
		}
		next := payload.NextID
		if next == "" {
			next = nextConnected(*state, state.TurnParticipantID, "")
		}
		if next != "" {
			state.TurnParticipantID = next
		}
		// Ending a turn always tears down any lingering contest, and the
		// outgoing participant's per-fight bonus with it.
		clearContest(state)

	case event.TypeOrderSwapped:
		var payload event.OrderSwappedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode swap payload: %w", err)
		}
		if len(state.ExplicitOrder) == 0 {
			state.ExplicitOrder = slices.Clone(state.JoinOrder)
		}
		first := slices.Index(state.ExplicitOrder, payload.FirstID)
		second := slices.Index(state.ExplicitOrder, payload.SecondID)
		if first >= 0 && second >= 0 {
			state.ExplicitOrder[first], state.ExplicitOrder[second] = state.ExplicitOrder[second], state.ExplicitOrder[first]
		}

	case event.TypeParticipantRenamed:
		var payload event.RenamedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode rename payload: %w", err)
		}
		mutateParticipant(state, ev.ActorID, func(p *domain.Participant) {
			p.Name = strings.TrimSpace(payload.Name)
		})

	case event.TypeAvatarSet:
		var payload event.AvatarSetPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode avatar payload: %w", err)
		}
		mutateParticipant(state, ev.ActorID, func(p *domain.Participant) {
			p.AvatarID = payload.AvatarID
		})

	case event.TypeGenderSet:
		var payload event.GenderSetPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode gender payload: %w", err)
		}
		mutateParticipant(state, ev.ActorID, func(p *domain.Participant) {
			p.Gender = payload.Gender
		})

	case event.TypeLevelAdjusted:
		var payload event.AdjustedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode level payload: %w", err)
		}
		mutateParticipant(state, ev.ActorID, func(p *domain.Participant) {
			p.Level = state.Levels.Clamp(p.Level + payload.Delta)
		})

	case event.TypeGearAdjusted:
		var payload event.AdjustedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode gear payload: %w", err)
		}
		mutateParticipant(state, ev.ActorID, func(p *domain.Participant) {
			p.GearBonus += payload.Delta
		})

	case event.TypeDualRaceSet:
		var payload event.DualTraitSetPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode dual trait payload: %w", err)
		}
		mutateParticipant(state, ev.ActorID, func(p *domain.Participant) {
			p.DualRace = payload.Enabled
			if !payload.Enabled && len(p.Races) > 1 {
				p.Races = p.Races[:1]
			}
		})

	case event.TypeDualClassSet:
		var payload event.DualTraitSetPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode dual trait payload: %w", err)
		}
		mutateParticipant(state, ev.ActorID, func(p *domain.Participant) {
			p.DualClass = payload.Enabled
			if !payload.Enabled && len(p.Classes) > 1 {
				p.Classes = p.Classes[:1]
			}
		})

	case event.TypeRaceAdded:
		return applyTraitChange(state, ev, func(p *domain.Participant, value string) {
			p.Races = append(p.Races, value)
		})
	case event.TypeRaceRemoved:
		return applyTraitChange(state, ev, func(p *domain.Participant, value string) {
			p.Races = removeID(p.Races, value)
		})
	case event.TypeRacesCleared:
		mutateParticipant(state, ev.ActorID, func(p *domain.Participant) {
			p.Races = nil
		})
	case event.TypeClassAdded:
		return applyTraitChange(state, ev, func(p *domain.Participant, value string) {
			p.Classes = append(p.Classes, value)
		})
	case event.TypeClassRemoved:
		return applyTraitChange(state, ev, func(p *domain.Participant, value string) {
			p.Classes = removeID(p.Classes, value)
		})
	case event.TypeClassesCleared:
		mutateParticipant(state, ev.ActorID, func(p *domain.Participant) {
			p.Classes = nil
		})

	case event.TypeRollRecorded:
		var payload event.RollRecordedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode roll payload: %w", err)
		}
		mutateParticipant(state, ev.ActorID, func(p *domain.Participant) {
			p.Roll = payload.Value
		})
		breakRollTies(state)

	case event.TypeCatalogEntryAdded:
		var payload event.CatalogEntryAddedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode catalog payload: %w", err)
		}
		aliases := make([]string, 0, len(payload.Aliases))
		for _, alias := range payload.Aliases {
			if normalized := domain.NormalizeCatalogName(alias); normalized != "" {
				aliases = append(aliases, normalized)
			}
		}
		entry := domain.CatalogEntry{
			ID:         payload.EntryID,
			Name:       strings.TrimSpace(payload.Name),
			Normalized: domain.NormalizeCatalogName(payload.Name),
			Aliases:    aliases,
			CreatedBy:  ev.ActorID,
			CreatedAt:  ev.Timestamp.UTC(),
		}
		state.Catalog(payload.Kind)[entry.ID] = entry

	case event.TypeCatalogEntryArchived:
		var payload event.CatalogEntryArchivedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode catalog payload: %w", err)
		}
		catalog := state.Catalog(payload.Kind)
		entry := catalog[payload.EntryID]
		entry.Archived = true
		catalog[payload.EntryID] = entry

	case event.TypeContestStarted:
		state.Contest = &domain.Contest{PrimaryID: ev.ActorID}

	case event.TypeHelperAdded:
		var payload event.HelperPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode helper payload: %w", err)
		}
		state.Contest.HelperID = payload.HelperID

	case event.TypeHelperRemoved:
		state.Contest.HelperID = ""

	case event.TypeOpponentAdded:
		var payload event.OpponentPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode opponent payload: %w", err)
		}
		state.Contest.Opponents = append(state.Contest.Opponents, payload.Opponent)

	case event.TypeOpponentRemoved:
		var payload event.OpponentRemovedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode opponent payload: %w", err)
		}
		opponents := state.Contest.Opponents[:0]
		for _, o := range state.Contest.Opponents {
			if o.ID != payload.OpponentID {
				opponents = append(opponents, o)
			}
		}
		state.Contest.Opponents = opponents

	case event.TypeOpponentUpdated:
		var payload event.OpponentPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode opponent payload: %w", err)
		}
		for i, o := range state.Contest.Opponents {
			if o.ID == payload.Opponent.ID {
				state.Contest.Opponents[i] = payload.Opponent
				break
			}
		}

	case event.TypeTempBonusAdded:
		var payload event.TempBonusPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode bonus payload: %w", err)
		}
		state.Contest.TempBonuses = append(state.Contest.TempBonuses, payload.Bonus)

	case event.TypeTempBonusRemoved:
		var payload event.TempBonusRemovedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode bonus payload: %w", err)
		}
		bonuses := state.Contest.TempBonuses[:0]
		for _, bonus := range state.Contest.TempBonuses {
			if bonus.ID != payload.BonusID {
				bonuses = append(bonuses, bonus)
			}
		}
		state.Contest.TempBonuses = bonuses

	case event.TypeQuickModifierSet:
		var payload event.QuickModifierSetPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode modifier payload: %w", err)
		}
		current := &state.Contest.HeroQuickModifier
		if payload.Side == domain.SideOpponent {
			current = &state.Contest.OpponentQuickModifier
		}
		if payload.Absolute != nil {
			*current = *payload.Absolute
		} else {
			*current += payload.Delta
		}

	case event.TypeContestEnded:
		var payload event.ContestEndedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode contest end payload: %w", err)
		}
		applyContestEnd(state, payload)

	default:
		return fmt.Errorf("no transform for event type %q", ev.Type)
	}

	return nil
}

// applyContestEnd grants rewards on a win and clears the contest
// unconditionally.
func applyContestEnd(state *domain.Session, payload event.ContestEndedPayload) {
	contest := state.Contest
	if contest == nil {
		return
	}

	if payload.Outcome == string(OutcomeWin) {
		mutateParticipant(state, contest.PrimaryID, func(p *domain.Participant) {
			p.Level = state.Levels.Clamp(p.Level + payload.LevelsAwarded)
			p.Treasures += payload.TreasuresAwarded
		})
		if contest.HelperID != "" && payload.HelperLevelAwarded > 0 {
			mutateParticipant(state, contest.HelperID, func(p *domain.Participant) {
				p.Level = state.Levels.Clamp(p.Level + payload.HelperLevelAwarded)
			})
		}
	}

	clearContest(state)
}

// clearContest drops the active contest and the ephemeral per-fight bonuses
// it consumed.
func clearContest(state *domain.Session) {
	if state.Contest == nil {
		return
	}
	for _, participantID := range []string{state.Contest.PrimaryID, state.Contest.HelperID} {
		if participantID == "" {
			continue
		}
		mutateParticipant(state, participantID, func(p *domain.Participant) {
			p.TempCombatBonus = 0
		})
	}
	state.Contest = nil
}

// breakRollTies clears tied maximum rolls once every participant has rolled,
// forcing the tied participants to re-roll while the rest keep theirs.
func breakRollTies(state *domain.Session) {
	maxRoll := 0
	for _, p := range state.Participants {
		if p.Roll == 0 {
			return
		}
		if p.Roll > maxRoll {
			maxRoll = p.Roll
		}
	}

	var tied []string
	for participantID, p := range state.Participants {
		if p.Roll == maxRoll {
			tied = append(tied, participantID)
		}
	}
	if len(tied) < 2 {
		return
	}
	for _, participantID := range tied {
		mutateParticipant(state, participantID, func(p *domain.Participant) {
			p.Roll = 0
		})
	}
}

func mutateParticipant(state *domain.Session, participantID string, mutate func(*domain.Participant)) {
	p, ok := state.Participants[participantID]
	if !ok {
		return
	}
	mutate(&p)
	state.Participants[participantID] = p
}

func applyTraitChange(state *domain.Session, ev event.Event, change func(*domain.Participant, string)) error {
	var payload event.TraitRefPayload
	if err := ev.DecodePayload(&payload); err != nil {
		return fmt.Errorf("decode trait payload: %w", err)
	}
	mutateParticipant(state, ev.ActorID, func(p *domain.Participant) {
		change(p, payload.Value)
	})
	return nil
}

func removeID(ids []string, target string) []string {
	filtered := ids[:0]
	for _, value := range ids {
		if value != target {
			filtered = append(filtered, value)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return filtered
}
