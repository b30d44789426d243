package domain

import "testing"

func testSession() Session {
	return Session{
		ID:       "s1",
		JoinCode: "ABCDEF",
		Phase:    PhaseLobby,
		Participants: map[string]Participant{
			"p1": {ID: "p1", Name: "Ada", Level: 1, Connected: true, Races: []string{RaceElf}},
			"p2": {ID: "p2", Name: "Ben", Level: 3, Connected: true},
			"p3": {ID: "p3", Name: "Cal", Level: 2, Connected: false},
		},
		JoinOrder: []string{"p1", "p2", "p3"},
		Races:     map[string]CatalogEntry{},
		Classes:   map[string]CatalogEntry{},
		Levels:    DefaultLevelBounds,
	}
}

func TestSession_TurnOrder(t *testing.T) {
	s := testSession()

	got := s.TurnOrder()
	want := []string{"p1", "p2", "p3"}
	if len(got) != len(want) {
		t.Fatalf("TurnOrder() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("TurnOrder() = %v, want %v", got, want)
		}
	}
}

func TestSession_TurnOrder_ExplicitOverride(t *testing.T) {
	s := testSession()
	s.ExplicitOrder = []string{"p3", "p1", "p2"}

	got := s.TurnOrder()
	if got[0] != "p3" || got[1] != "p1" || got[2] != "p2" {
		t.Errorf("TurnOrder() = %v, want [p3 p1 p2]", got)
	}
}

func TestSession_TurnOrder_SkipsRemovedParticipants(t *testing.T) {
	s := testSession()
	s.ExplicitOrder = []string{"p2", "gone", "p1"}

	got := s.TurnOrder()
	if len(got) != 2 || got[0] != "p2" || got[1] != "p1" {
		t.Errorf("TurnOrder() = %v, want [p2 p1]", got)
	}
}

func TestSession_Clone_IsDeep(t *testing.T) {
	s := testSession()
	s.Contest = &Contest{PrimaryID: "p1", Opponents: []Opponent{{ID: "o1", BaseStrength: 4}}}

	clone := s.Clone()
	mutated := clone.Participants["p1"]
	mutated.Level = 9
	mutated.Races[0] = RaceDwarf
	clone.Participants["p1"] = mutated
	clone.JoinOrder[0] = "px"
	clone.Contest.Opponents[0].BaseStrength = 99

	if s.Participants["p1"].Level != 1 {
		t.Error("clone participant mutation leaked into original")
	}
	if s.Participants["p1"].Races[0] != RaceElf {
		t.Error("clone trait mutation leaked into original")
	}
	if s.JoinOrder[0] != "p1" {
		t.Error("clone order mutation leaked into original")
	}
	if s.Contest.Opponents[0].BaseStrength != 4 {
		t.Error("clone contest mutation leaked into original")
	}
}

func TestLevelBounds_Clamp(t *testing.T) {
	bounds := DefaultLevelBounds
	tests := []struct {
		level int
		want  int
	}{
		{0, 1},
		{-5, 1},
		{1, 1},
		{7, 7},
		{10, 10},
		{15, 10},
	}
	for _, tt := range tests {
		if got := bounds.Clamp(tt.level); got != tt.want {
			t.Errorf("Clamp(%d) = %d, want %d", tt.level, got, tt.want)
		}
	}
}
