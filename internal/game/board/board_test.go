package board

import (
	"testing"
)

func TestPermanentCounts(t *testing.T) {
	p := &Permanent{Quantity: 4, Tapped: 1}
	if p.Count() != 4 {
		t.Errorf("Expected count 4, got %d", p.Count())
	}
	if p.Untapped() != 3 {
		t.Errorf("Expected 3 untapped, got %d", p.Untapped())
	}

	// Zero quantity means a single object; over-tapping clamps at zero.
	p = &Permanent{Tapped: 2}
	if p.Count() != 1 {
		t.Errorf("Expected implicit count 1, got %d", p.Count())
	}
	if p.Untapped() != 0 {
		t.Errorf("Expected 0 untapped, got %d", p.Untapped())
	}
}

func TestCardTypePredicates(t *testing.T) {
	forest := Card{Name: "Forest", TypeLine: "Basic Land — Forest"}
	if !forest.IsLand() || !forest.IsBasic() {
		t.Error("Forest should be a basic land")
	}
	if forest.IsCreature() {
		t.Error("Forest should not be a creature")
	}

	dryad := Card{Name: "Dryad Arbor", TypeLine: "Land Creature — Forest Dryad"}
	if !dryad.IsLand() || !dryad.IsCreature() {
		t.Error("Dryad Arbor should be both land and creature")
	}
	if dryad.IsBasic() {
		t.Error("Dryad Arbor is not basic")
	}
}

func TestIdentityFallsBackToName(t *testing.T) {
	p := NewPermanent("player-1", Card{Name: "Sol Ring"})
	if p.Identity() != "Sol Ring" {
		t.Errorf("Expected name fallback, got %q", p.Identity())
	}
	p.Card.OracleID = "abc-123"
	if p.Identity() != "abc-123" {
		t.Errorf("Expected oracle id, got %q", p.Identity())
	}
	if p.ID == "" {
		t.Error("Expected generated id")
	}
}
