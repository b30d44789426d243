package event

import (
	"testing"
	"time"

	"github.com/hwidjaja/tabletally/internal/game/domain"
)

func TestType_Domain(t *testing.T) {
	tests := []struct {
		eventType Type
		want      string
	}{
		{TypeSessionCreated, "session"},
		{TypeParticipantJoined, "participant"},
		{TypeTurnEnded, "turn"},
		{TypeCatalogEntryAdded, "catalog"},
		{TypeContestStarted, "contest"},
		{Type("nodot"), "nodot"},
		{Type(""), ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			if got := tt.eventType.Domain(); got != tt.want {
				t.Errorf("Type(%q).Domain() = %q, want %q", tt.eventType, got, tt.want)
			}
		})
	}
}

func TestType_SelfTargeted(t *testing.T) {
	tests := []struct {
		eventType Type
		want      bool
	}{
		{TypeLevelAdjusted, true},
		{TypeRaceAdded, true},
		{TypeRollRecorded, true},
		{TypeOrderSwapped, false},
		{TypeSessionStarted, false},
		{TypeContestStarted, false},
		{TypeCatalogEntryAdded, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			if got := tt.eventType.SelfTargeted(); got != tt.want {
				t.Errorf("Type(%q).SelfTargeted() = %v, want %v", tt.eventType, got, tt.want)
			}
		})
	}
}

func TestType_HostOnly(t *testing.T) {
	hostOnly := []Type{TypeSessionStarted, TypeSessionEnded, TypeOrderSwapped}
	for _, eventType := range hostOnly {
		if !eventType.HostOnly() {
			t.Errorf("Type(%q).HostOnly() = false, want true", eventType)
		}
	}
	if TypeLevelAdjusted.HostOnly() {
		t.Error("level adjustments are not host-privileged")
	}
}

func TestEvent_PayloadRoundTrip(t *testing.T) {
	base := Event{
		ID:        "ev1",
		Type:      TypeCatalogEntryAdded,
		ActorID:   "p1",
		Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	withPayload, err := base.WithPayload(CatalogEntryAddedPayload{
		Kind: domain.CatalogRace,
		Name: "Dark Elf",
	})
	if err != nil {
		t.Fatalf("WithPayload() error = %v", err)
	}

	var decoded CatalogEntryAddedPayload
	if err := withPayload.DecodePayload(&decoded); err != nil {
		t.Fatalf("DecodePayload() error = %v", err)
	}
	if decoded.Kind != domain.CatalogRace || decoded.Name != "Dark Elf" {
		t.Errorf("decoded payload = %+v", decoded)
	}
}

func TestEvent_DecodePayload_Empty(t *testing.T) {
	var decoded TurnEndedPayload
	if err := (Event{Type: TypeTurnEnded}).DecodePayload(&decoded); err != nil {
		t.Fatalf("DecodePayload() on empty payload error = %v", err)
	}
	if decoded.NextID != "" {
		t.Errorf("NextID = %q, want empty", decoded.NextID)
	}
}
