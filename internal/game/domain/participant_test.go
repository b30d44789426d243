package domain

import "testing"

func TestParticipant_CombatPower(t *testing.T) {
	p := Participant{Level: 5, GearBonus: 3, TempCombatBonus: -1}
	if got := p.CombatPower(); got != 7 {
		t.Errorf("CombatPower() = %d, want 7", got)
	}
}

func TestParticipant_TraitCaps(t *testing.T) {
	p := Participant{}
	if p.RaceCap() != 1 || p.ClassCap() != 1 {
		t.Errorf("caps without dual flags = (%d, %d), want (1, 1)", p.RaceCap(), p.ClassCap())
	}

	p.DualRace = true
	p.DualClass = true
	if p.RaceCap() != 2 || p.ClassCap() != 2 {
		t.Errorf("caps with dual flags = (%d, %d), want (2, 2)", p.RaceCap(), p.ClassCap())
	}
}

func TestParticipant_HasRace_FixedTagAndCatalogID(t *testing.T) {
	p := Participant{Races: []string{RaceElf, "cat_abc123"}}

	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"fixed tag", "elf", true},
		{"fixed tag case folded", "ELF", true},
		{"catalog id", "cat_abc123", true},
		{"catalog id is case sensitive", "CAT_ABC123", false},
		{"absent fixed tag", "dwarf", false},
		{"absent id", "cat_zzz", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.HasRace(tt.value); got != tt.want {
				t.Errorf("HasRace(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestParticipant_HasClass(t *testing.T) {
	p := Participant{Classes: []string{ClassWarrior}}
	if !p.HasClass("Warrior") {
		t.Error("fixed class tag should match case-insensitively")
	}
	if p.HasClass(ClassCleric) {
		t.Error("absent class should not match")
	}
}
