package engine

import (
	"strings"

	"github.com/hwidjaja/tabletally/internal/game/domain"
	"github.com/hwidjaja/tabletally/internal/game/event"
	perrors "github.com/hwidjaja/tabletally/internal/platform/errors"
)

// validate judges ev against state without mutating anything. Every rule
// violation is a typed error; a nil result means apply is guaranteed to
// succeed on the same state.
func validate(cfg Config, state domain.Session, ev event.Event) *perrors.Error {
	if !ev.Type.IsValid() {
		return perrors.New(perrors.CodeMalformedMessage, "event type is required")
	}
	if strings.TrimSpace(ev.ActorID) == "" {
		return perrors.New(perrors.CodeMalformedMessage, "event actor is required")
	}

	actor, actorKnown := state.Participants[ev.ActorID]
	if !actorKnown && ev.Type != event.TypeParticipantJoined {
		return perrors.WithMetadata(perrors.CodeParticipantNotFound, "unknown actor",
			map[string]string{"participant_id": ev.ActorID})
	}
	_ = actor

	if ev.Type.SelfTargeted() && ev.TargetID != "" && ev.TargetID != ev.ActorID {
		return perrors.New(perrors.CodeUnauthorized, "participants may only mutate themselves")
	}
	if ev.Type.HostOnly() && ev.ActorID != state.HostID {
		return perrors.New(perrors.CodeUnauthorized, "host-only action")
	}

	switch ev.Type {
	case event.TypeSessionCreated:
		// Sessions are created through Engine.CreateSession, never replayed
		// as events.
		return perrors.New(perrors.CodeValidationFailed, "session already exists")

	case event.TypeParticipantJoined:
		if state.Phase != domain.PhaseLobby {
			return perrors.New(perrors.CodeAlreadyStarted, "session is no longer accepting participants")
		}
		if len(state.Participants) >= cfg.MaxParticipants {
			return perrors.New(perrors.CodeSessionFull, "room is full")
		}
		var payload event.JoinedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return perrors.Wrap(perrors.CodeMalformedMessage, "invalid join payload", err)
		}
		if strings.TrimSpace(payload.Meta.Name) == "" {
			return perrors.New(perrors.CodeValidationFailed, "participant name is required")
		}
		if payload.ParticipantID != "" {
			if _, exists := state.Participants[payload.ParticipantID]; exists {
				return perrors.New(perrors.CodeValidationFailed, "participant id already taken")
			}
		}

	case event.TypeParticipantLeft:
		// The host's seat anchors authority; ending the session or handing
		// over is the way out for it.
		if ev.ActorID == state.HostID {
			return perrors.New(perrors.CodeValidationFailed, "the host cannot leave; end the session instead")
		}
		if len(state.Participants) <= 1 {
			return perrors.New(perrors.CodeValidationFailed, "the last participant cannot leave; end the session instead")
		}

	case event.TypeSessionStarted:
		if state.Phase != domain.PhaseLobby {
			return perrors.New(perrors.CodeAlreadyStarted, "session already started")
		}
		if len(state.Participants) < 2 {
			return perrors.New(perrors.CodeValidationFailed, "at least two participants are required to start")
		}

	case event.TypeSessionEnded:
		if state.Phase != domain.PhaseActive {
			return perrors.New(perrors.CodeValidationFailed, "only an active session can end")
		}

	case event.TypeTurnEnded:
		if state.Phase != domain.PhaseActive {
			return perrors.New(perrors.CodeValidationFailed, "turns only advance while active")
		}

	case event.TypeOrderSwapped:
		var payload event.OrderSwappedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return perrors.Wrap(perrors.CodeMalformedMessage, "invalid order swap payload", err)
		}
		if _, ok := state.Participants[payload.FirstID]; !ok {
			return perrors.WithMetadata(perrors.CodeParticipantNotFound, "unknown swap participant",
				map[string]string{"participant_id": payload.FirstID})
		}
		if _, ok := state.Participants[payload.SecondID]; !ok {
			return perrors.WithMetadata(perrors.CodeParticipantNotFound, "unknown swap participant",
				map[string]string{"participant_id": payload.SecondID})
		}
		if payload.FirstID == payload.SecondID {
			return perrors.New(perrors.CodeValidationFailed, "cannot swap a participant with itself")
		}

	case event.TypeParticipantRenamed:
		var payload event.RenamedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return perrors.Wrap(perrors.CodeMalformedMessage, "invalid rename payload", err)
		}
		if strings.TrimSpace(payload.Name) == "" {
			return perrors.New(perrors.CodeValidationFailed, "name is required")
		}

	case event.TypeAvatarSet, event.TypeGenderSet,
		event.TypeLevelAdjusted, event.TypeGearAdjusted,
		event.TypeDualRaceSet, event.TypeDualClassSet:
		// Deltas are clamped at apply time; flags and cosmetic fields are
		// free-form.

	case event.TypeRaceAdded:
		return validateTraitAdd(state, actor, ev, domain.CatalogRace)
	case event.TypeClassAdded:
		return validateTraitAdd(state, actor, ev, domain.CatalogClass)
	case event.TypeRaceRemoved:
		return validateTraitRemove(actor.Races, ev)
	case event.TypeClassRemoved:
		return validateTraitRemove(actor.Classes, ev)
	case event.TypeRacesCleared, event.TypeClassesCleared:
		// Clearing an empty set is a harmless no-op.

	case event.TypeRollRecorded:
		if state.Phase != domain.PhaseLobby {
			return perrors.New(perrors.CodeValidationFailed, "rolls are a lobby ritual")
		}
		var payload event.RollRecordedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return perrors.Wrap(perrors.CodeMalformedMessage, "invalid roll payload", err)
		}
		if payload.Value <= 0 {
			return perrors.New(perrors.CodeValidationFailed, "roll value must be positive")
		}

	case event.TypeCatalogEntryAdded:
		var payload event.CatalogEntryAddedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return perrors.Wrap(perrors.CodeMalformedMessage, "invalid catalog payload", err)
		}
		if !payload.Kind.IsValid() {
			return perrors.New(perrors.CodeValidationFailed, "catalog kind must be race or class")
		}
		if domain.NormalizeCatalogName(payload.Name) == "" {
			return perrors.New(perrors.CodeValidationFailed, "catalog entry name is required")
		}
		if _, exists := domain.FindActiveByName(state.Catalog(payload.Kind), payload.Name); exists {
			return perrors.WithMetadata(perrors.CodeValidationFailed, "catalog entry name already in use",
				map[string]string{"name": payload.Name})
		}

	case event.TypeCatalogEntryArchived:
		var payload event.CatalogEntryArchivedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return perrors.Wrap(perrors.CodeMalformedMessage, "invalid catalog payload", err)
		}
		if !payload.Kind.IsValid() {
			return perrors.New(perrors.CodeValidationFailed, "catalog kind must be race or class")
		}
		entry, ok := state.Catalog(payload.Kind)[payload.EntryID]
		if !ok {
			return perrors.New(perrors.CodeValidationFailed, "catalog entry not found")
		}
		if entry.Archived {
			return perrors.New(perrors.CodeValidationFailed, "catalog entry already archived")
		}

	case event.TypeContestStarted:
		if state.Phase != domain.PhaseActive {
			return perrors.New(perrors.CodeValidationFailed, "contests only run while active")
		}
		if state.Contest != nil {
			return perrors.New(perrors.CodeValidationFailed, "a contest is already in progress")
		}

	case event.TypeHelperAdded:
		if err := requireContest(state); err != nil {
			return err
		}
		var payload event.HelperPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return perrors.Wrap(perrors.CodeMalformedMessage, "invalid helper payload", err)
		}
		if _, ok := state.Participants[payload.HelperID]; !ok {
			return perrors.WithMetadata(perrors.CodeParticipantNotFound, "unknown helper",
				map[string]string{"participant_id": payload.HelperID})
		}
		if payload.HelperID == state.Contest.PrimaryID {
			return perrors.New(perrors.CodeValidationFailed, "primary cannot help itself")
		}

	case event.TypeHelperRemoved:
		if err := requireContest(state); err != nil {
			return err
		}
		if state.Contest.HelperID == "" {
			return perrors.New(perrors.CodeValidationFailed, "no helper to remove")
		}

	case event.TypeOpponentAdded:
		if err := requireContest(state); err != nil {
			return err
		}
		var payload event.OpponentPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return perrors.Wrap(perrors.CodeMalformedMessage, "invalid opponent payload", err)
		}

	case event.TypeOpponentRemoved:
		if err := requireContest(state); err != nil {
			return err
		}
		var payload event.OpponentRemovedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return perrors.Wrap(perrors.CodeMalformedMessage, "invalid opponent payload", err)
		}
		if _, ok := state.Contest.Opponent(payload.OpponentID); !ok {
			return perrors.New(perrors.CodeValidationFailed, "opponent not found")
		}

	case event.TypeOpponentUpdated:
		if err := requireContest(state); err != nil {
			return err
		}
		var payload event.OpponentPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return perrors.Wrap(perrors.CodeMalformedMessage, "invalid opponent payload", err)
		}
		if _, ok := state.Contest.Opponent(payload.Opponent.ID); !ok {
			return perrors.New(perrors.CodeValidationFailed, "opponent not found")
		}

	case event.TypeTempBonusAdded:
		if err := requireContest(state); err != nil {
			return err
		}
		var payload event.TempBonusPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return perrors.Wrap(perrors.CodeMalformedMessage, "invalid bonus payload", err)
		}
		if !payload.Bonus.Side.IsValid() {
			return perrors.New(perrors.CodeValidationFailed, "bonus side must be hero or opponent")
		}

	case event.TypeTempBonusRemoved:
		if err := requireContest(state); err != nil {
			return err
		}
		var payload event.TempBonusRemovedPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return perrors.Wrap(perrors.CodeMalformedMessage, "invalid bonus payload", err)
		}
		found := false
		for _, bonus := range state.Contest.TempBonuses {
			if bonus.ID == payload.BonusID {
				found = true
				break
			}
		}
		if !found {
			return perrors.New(perrors.CodeValidationFailed, "bonus not found")
		}

	case event.TypeQuickModifierSet:
		if err := requireContest(state); err != nil {
			return err
		}
		var payload event.QuickModifierSetPayload
		if err := ev.DecodePayload(&payload); err != nil {
			return perrors.Wrap(perrors.CodeMalformedMessage, "invalid modifier payload", err)
		}
		if !payload.Side.IsValid() {
			return perrors.New(perrors.CodeValidationFailed, "modifier side must be hero or opponent")
		}

	case event.TypeContestEnded:
		if err := requireContest(state); err != nil {
			return err
		}

	default:
		return perrors.WithMetadata(perrors.CodeMalformedMessage, "unsupported event type",
			map[string]string{"type": string(ev.Type)})
	}

	return nil
}

func requireContest(state domain.Session) *perrors.Error {
	if state.Contest == nil {
		return perrors.New(perrors.CodeValidationFailed, "no contest in progress")
	}
	return nil
}

func validateTraitAdd(state domain.Session, actor domain.Participant, ev event.Event, kind domain.CatalogKind) *perrors.Error {
	var payload event.TraitRefPayload
	if err := ev.DecodePayload(&payload); err != nil {
		return perrors.Wrap(perrors.CodeMalformedMessage, "invalid trait payload", err)
	}
	value := strings.TrimSpace(payload.Value)
	if value == "" {
		return perrors.New(perrors.CodeValidationFailed, "trait value is required")
	}

	held := actor.Races
	limit := actor.RaceCap()
	isFixed := domain.IsFixedRace
	if kind == domain.CatalogClass {
		held = actor.Classes
		limit = actor.ClassCap()
		isFixed = domain.IsFixedClass
	}

	if !isFixed(value) {
		entry, ok := state.Catalog(kind)[value]
		if !ok {
			return perrors.New(perrors.CodeValidationFailed, "unknown trait reference")
		}
		if entry.Archived {
			return perrors.New(perrors.CodeValidationFailed, "trait is archived")
		}
	}

	if domain.CatalogRace == kind && actor.HasRace(value) ||
		domain.CatalogClass == kind && actor.HasClass(value) {
		return perrors.New(perrors.CodeValidationFailed, "trait already held")
	}
	if len(held) >= limit {
		return perrors.WithMetadata(perrors.CodeValidationFailed, "trait capacity reached",
			map[string]string{"kind": string(kind)})
	}
	return nil
}

func validateTraitRemove(held []string, ev event.Event) *perrors.Error {
	var payload event.TraitRefPayload
	if err := ev.DecodePayload(&payload); err != nil {
		return perrors.Wrap(perrors.CodeMalformedMessage, "invalid trait payload", err)
	}
	for _, ref := range held {
		if ref == payload.Value {
			return nil
		}
	}
	return perrors.New(perrors.CodeValidationFailed, "trait not held")
}
