package engine

import (
	"testing"

	"github.com/hwidjaja/tabletally/internal/game/domain"
)

func contestFixture(primary, helper domain.Participant, contest domain.Contest) domain.Session {
	participants := map[string]domain.Participant{primary.ID: primary}
	joinOrder := []string{primary.ID}
	if helper.ID != "" {
		participants[helper.ID] = helper
		joinOrder = append(joinOrder, helper.ID)
	}
	contest.PrimaryID = primary.ID
	contest.HelperID = helper.ID
	return domain.Session{
		ID:           "s1",
		Phase:        domain.PhaseActive,
		HostID:       primary.ID,
		Participants: participants,
		JoinOrder:    joinOrder,
		Levels:       domain.DefaultLevelBounds,
		Contest:      &contest,
	}
}

func TestResolveContest(t *testing.T) {
	tests := []struct {
		name    string
		primary domain.Participant
		helper  domain.Participant
		contest domain.Contest
		want    Resolution
	}{
		{
			name:    "simple win",
			primary: domain.Participant{ID: "p1", Level: 4, GearBonus: 2},
			contest: domain.Contest{
				Opponents: []domain.Opponent{{ID: "o1", BaseStrength: 5}},
			},
			want: Resolution{HeroTotal: 6, OpponentTotal: 5, Outcome: OutcomeWin},
		},
		{
			name:    "tie loses without warrior",
			primary: domain.Participant{ID: "p1", Level: 5},
			contest: domain.Contest{
				Opponents: []domain.Opponent{{ID: "o1", BaseStrength: 5}},
			},
			want: Resolution{HeroTotal: 5, OpponentTotal: 5, Outcome: OutcomeLose},
		},
		{
			name:    "tie wins with warrior",
			primary: domain.Participant{ID: "p1", Level: 5, Classes: []string{domain.ClassWarrior}},
			contest: domain.Contest{
				Opponents: []domain.Opponent{{ID: "o1", BaseStrength: 5}},
			},
			want: Resolution{HeroTotal: 5, OpponentTotal: 5, Outcome: OutcomeWin, TieBreakApplied: true},
		},
		{
			name:    "warrior helper also breaks ties",
			primary: domain.Participant{ID: "p1", Level: 3},
			helper:  domain.Participant{ID: "p2", Level: 2, Classes: []string{domain.ClassWarrior}},
			contest: domain.Contest{
				Opponents: []domain.Opponent{{ID: "o1", BaseStrength: 5}},
			},
			want: Resolution{HeroTotal: 5, OpponentTotal: 5, Outcome: OutcomeWin, TieBreakApplied: true},
		},
		{
			name:    "cleric bonus against undead applies once",
			primary: domain.Participant{ID: "p1", Level: 2, Classes: []string{domain.ClassCleric}},
			contest: domain.Contest{
				Opponents: []domain.Opponent{
					{ID: "o1", BaseStrength: 3, Undead: true},
					{ID: "o2", BaseStrength: 2, Undead: true},
				},
			},
			want: Resolution{HeroTotal: 5, OpponentTotal: 5, Outcome: OutcomeLose},
		},
		{
			name:    "no cleric bonus against the living",
			primary: domain.Participant{ID: "p1", Level: 2, Classes: []string{domain.ClassCleric}},
			contest: domain.Contest{
				Opponents: []domain.Opponent{{ID: "o1", BaseStrength: 3}},
			},
			want: Resolution{HeroTotal: 2, OpponentTotal: 3, Outcome: OutcomeLose},
		},
		{
			name:    "rewards sum across opponents",
			primary: domain.Participant{ID: "p1", Level: 9, GearBonus: 6},
			contest: domain.Contest{
				Opponents: []domain.Opponent{
					{ID: "o1", BaseStrength: 10, RewardTreasures: 2, RewardLevels: 1},
					{ID: "o2", BaseStrength: 2, RewardTreasures: 1, RewardLevels: 1},
				},
			},
			want: Resolution{
				HeroTotal: 15, OpponentTotal: 12, Outcome: OutcomeWin,
				LevelsAwarded: 2, TreasuresAwarded: 3,
			},
		},
		{
			name:    "elf helper earns a level on standing win",
			primary: domain.Participant{ID: "p1", Level: 6},
			helper:  domain.Participant{ID: "p2", Level: 3, Races: []string{domain.RaceElf}},
			contest: domain.Contest{
				Opponents: []domain.Opponent{{ID: "o1", BaseStrength: 4, RewardLevels: 1}},
			},
			want: Resolution{
				HeroTotal: 9, OpponentTotal: 4, Outcome: OutcomeWin,
				LevelsAwarded: 1, HelperLevelAwarded: 1,
			},
		},
		{
			name:    "temp bonuses and quick modifiers",
			primary: domain.Participant{ID: "p1", Level: 3, TempCombatBonus: 2},
			contest: domain.Contest{
				Opponents: []domain.Opponent{{ID: "o1", BaseStrength: 6, Modifier: 2}},
				TempBonuses: []domain.TempBonus{
					{ID: "b1", Amount: 3, Side: domain.SideHero},
					{ID: "b2", Amount: 1, Side: domain.SideOpponent},
				},
				HeroQuickModifier:     2,
				OpponentQuickModifier: -1,
			},
			want: Resolution{HeroTotal: 10, OpponentTotal: 8, Outcome: OutcomeWin},
		},
		{
			name:    "conditional against hero side scoped to primary",
			primary: domain.Participant{ID: "p1", Level: 4, Races: []string{domain.RaceDwarf}},
			contest: domain.Contest{
				Opponents: []domain.Opponent{{
					ID: "o1", BaseStrength: 2,
					Conditionals: []domain.ConditionalModifier{{
						Amount:    5,
						Side:      domain.SideOpponent,
						Condition: domain.ConditionRace,
						Value:     domain.RaceDwarf,
						Scope:     domain.ScopePrimary,
						Mode:      domain.ApplyOnce,
					}},
				}},
			},
			want: Resolution{HeroTotal: 4, OpponentTotal: 7, Outcome: OutcomeLose},
		},
		{
			name:    "per-participant conditional counts each match",
			primary: domain.Participant{ID: "p1", Level: 8, Classes: []string{domain.ClassWizard}},
			helper:  domain.Participant{ID: "p2", Level: 2, Classes: []string{domain.ClassWizard}},
			contest: domain.Contest{
				Opponents: []domain.Opponent{{
					ID: "o1", BaseStrength: 6,
					Conditionals: []domain.ConditionalModifier{{
						Amount:    3,
						Side:      domain.SideOpponent,
						Condition: domain.ConditionClass,
						Value:     domain.ClassWizard,
						Scope:     domain.ScopeEither,
						Mode:      domain.ApplyPerParticipant,
					}},
				}},
			},
			want: Resolution{HeroTotal: 10, OpponentTotal: 12, Outcome: OutcomeLose},
		},
		{
			name:    "helper-scoped conditional ignores missing helper",
			primary: domain.Participant{ID: "p1", Level: 5},
			contest: domain.Contest{
				Opponents: []domain.Opponent{{
					ID: "o1", BaseStrength: 3,
					Conditionals: []domain.ConditionalModifier{{
						Amount:    4,
						Side:      domain.SideOpponent,
						Condition: domain.ConditionRace,
						Value:     domain.RaceHuman,
						Scope:     domain.ScopeHelper,
						Mode:      domain.ApplyOnce,
					}},
				}},
			},
			want: Resolution{HeroTotal: 5, OpponentTotal: 3, Outcome: OutcomeWin},
		},
		{
			name:    "gender condition helps the heroes",
			primary: domain.Participant{ID: "p1", Level: 3, Gender: domain.GenderFemale},
			contest: domain.Contest{
				Opponents: []domain.Opponent{{
					ID: "o1", BaseStrength: 5,
					Conditionals: []domain.ConditionalModifier{{
						Amount:    3,
						Side:      domain.SideHero,
						Condition: domain.ConditionGender,
						Value:     string(domain.GenderFemale),
						Scope:     domain.ScopePrimary,
						Mode:      domain.ApplyOnce,
					}},
				}},
			},
			want: Resolution{HeroTotal: 6, OpponentTotal: 5, Outcome: OutcomeWin},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := contestFixture(tt.primary, tt.helper, tt.contest)
			got, err := ResolveContest(state)
			if err != nil {
				t.Fatalf("ResolveContest() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveContest() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolveContest_NoContest(t *testing.T) {
	state := domain.Session{Phase: domain.PhaseActive}
	if _, err := ResolveContest(state); err == nil {
		t.Error("resolving without a contest should fail")
	}
}
