package engine

import (
	"github.com/hwidjaja/tabletally/internal/game/domain"
	perrors "github.com/hwidjaja/tabletally/internal/platform/errors"
)

// Outcome is the resolved result of a contest.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLose Outcome = "lose"
)

// clericUndeadBonus is the intrinsic hero-side bonus granted when a cleric
// fights any undead opponent.
const clericUndeadBonus = 3

// Resolution is the computed standing of an active contest. It is derived
// from live participant state every time it is requested, so trait or level
// changes made mid-fight are always reflected.
type Resolution struct {
	HeroTotal       int     `json:"hero_total"`
	OpponentTotal   int     `json:"opponent_total"`
	Outcome         Outcome `json:"outcome"`
	TieBreakApplied bool    `json:"tie_break_applied,omitempty"`

	// Reward sums that a win would grant.
	LevelsAwarded      int `json:"levels_awarded"`
	TreasuresAwarded   int `json:"treasures_awarded"`
	HelperLevelAwarded int `json:"helper_level_awarded,omitempty"`
}

// ResolveContest computes the current standing of the active contest
// without mutating anything. It may be called at any time while a contest
// is running.
func ResolveContest(state domain.Session) (Resolution, error) {
	contest := state.Contest
	if contest == nil {
		return Resolution{}, perrors.New(perrors.CodeValidationFailed, "no contest in progress")
	}

	primary, ok := state.Participants[contest.PrimaryID]
	if !ok {
		return Resolution{}, perrors.New(perrors.CodeParticipantNotFound, "contest primary is missing")
	}
	heroes := []domain.Participant{primary}
	var helper *domain.Participant
	if contest.HelperID != "" {
		if h, ok := state.Participants[contest.HelperID]; ok {
			heroes = append(heroes, h)
			helper = &h
		}
	}

	heroTotal := 0
	for _, hero := range heroes {
		heroTotal += hero.CombatPower()
	}

	anyUndead := false
	opponentTotal := 0
	for _, opponent := range contest.Opponents {
		opponentTotal += opponent.Strength()
		if opponent.Undead {
			anyUndead = true
		}
	}

	if anyUndead && anyHeroHasClass(heroes, domain.ClassCleric) {
		heroTotal += clericUndeadBonus
	}

	for _, opponent := range contest.Opponents {
		for _, modifier := range opponent.Conditionals {
			amount := conditionalContribution(modifier, primary, helper)
			if modifier.Side == domain.SideHero {
				heroTotal += amount
			} else {
				opponentTotal += amount
			}
		}
	}

	for _, bonus := range contest.TempBonuses {
		if bonus.Side == domain.SideHero {
			heroTotal += bonus.Amount
		} else {
			opponentTotal += bonus.Amount
		}
	}

	heroTotal += contest.HeroQuickModifier
	opponentTotal += contest.OpponentQuickModifier

	resolution := Resolution{
		HeroTotal:     heroTotal,
		OpponentTotal: opponentTotal,
		Outcome:       OutcomeLose,
	}

	switch {
	case heroTotal > opponentTotal:
		resolution.Outcome = OutcomeWin
	case heroTotal == opponentTotal && anyHeroHasClass(heroes, domain.ClassWarrior):
		// Ties default to the opponent side unless a warrior is fighting.
		resolution.Outcome = OutcomeWin
		resolution.TieBreakApplied = true
	}

	for _, opponent := range contest.Opponents {
		resolution.LevelsAwarded += opponent.RewardLevels
		resolution.TreasuresAwarded += opponent.RewardTreasures
	}
	if helper != nil && helper.HasRace(domain.RaceElf) {
		resolution.HelperLevelAwarded = 1
	}

	return resolution, nil
}

func anyHeroHasClass(heroes []domain.Participant, class string) bool {
	for _, hero := range heroes {
		if hero.HasClass(class) {
			return true
		}
	}
	return false
}

// conditionalContribution evaluates one conditional modifier against the
// hero-side participants in scope. In once mode a single match contributes
// the amount; in per-participant mode each distinct matching participant
// contributes it.
func conditionalContribution(modifier domain.ConditionalModifier, primary domain.Participant, helper *domain.Participant) int {
	var inScope []domain.Participant
	switch modifier.Scope {
	case domain.ScopePrimary:
		inScope = []domain.Participant{primary}
	case domain.ScopeHelper:
		if helper != nil {
			inScope = []domain.Participant{*helper}
		}
	default:
		inScope = []domain.Participant{primary}
		if helper != nil {
			inScope = append(inScope, *helper)
		}
	}

	matches := 0
	for _, participant := range inScope {
		if conditionMatches(modifier, participant) {
			matches++
		}
	}
	if matches == 0 {
		return 0
	}
	if modifier.Mode == domain.ApplyPerParticipant {
		return modifier.Amount * matches
	}
	return modifier.Amount
}

// conditionMatches tries the fixed-tag interpretation of the condition
// value first and falls back to catalog-id containment; gender conditions
// compare tags directly. The dual interpretation supports built-in and
// user-created traits simultaneously.
func conditionMatches(modifier domain.ConditionalModifier, participant domain.Participant) bool {
	switch modifier.Condition {
	case domain.ConditionRace:
		return participant.HasRace(modifier.Value)
	case domain.ConditionClass:
		return participant.HasClass(modifier.Value)
	case domain.ConditionGender:
		return string(participant.Gender) == modifier.Value
	}
	return false
}
