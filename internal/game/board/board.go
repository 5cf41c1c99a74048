// Package board models the slice of tabletop state the mana engine consumes:
// the permanents a player controls, with their card payloads, stacked
// quantities, tap bookkeeping and counters. Rendering and gesture handling
// live in the client; this is the wire shape they exchange with the server.
package board

import (
	"strings"

	"github.com/google/uuid"

	"github.com/opentabletop/tabletop-server-go/internal/game/counters"
	"github.com/opentabletop/tabletop-server-go/internal/game/mana"
)

// ObjectType classifies a board object.
type ObjectType string

const (
	ObjectCard    ObjectType = "card"
	ObjectToken   ObjectType = "token"
	ObjectCounter ObjectType = "counter"
	ObjectDie     ObjectType = "die"
)

// Card is the card-identity payload attached to a permanent, as resolved by
// the card-data fetch layer.
type Card struct {
	Name       string          `json:"name"`
	OracleID   string          `json:"oracleId"` // stable identity key across printings
	TypeLine   string          `json:"typeLine"`
	OracleText string          `json:"oracleText"`
	Power      string          `json:"power"`
	Produced   []mana.ManaType `json:"producedMana,omitempty"` // authoritative list if known
	Token      bool            `json:"token,omitempty"`
}

// Permanent is one object on the battlefield. Quantity supports stacked
// identical objects; TappedQuantity counts how many of the stack are tapped.
type Permanent struct {
	ID           string            `json:"id"`
	ControllerID string            `json:"controllerId"`
	Type         ObjectType        `json:"type"`
	Card         Card              `json:"card"`
	Quantity     int               `json:"quantity"`
	Tapped       int               `json:"tapped"`
	Counters     counters.Counters `json:"counters,omitempty"`
}

// NewPermanent creates a quantity-1 untapped permanent with a fresh id.
func NewPermanent(controllerID string, card Card) *Permanent {
	return &Permanent{
		ID:           uuid.NewString(),
		ControllerID: controllerID,
		Type:         ObjectCard,
		Card:         card,
		Quantity:     1,
		Counters:     counters.New(),
	}
}

// Count returns the stack size, treating an unset quantity as one object.
func (p *Permanent) Count() int {
	if p.Quantity <= 0 {
		return 1
	}
	return p.Quantity
}

// Untapped returns the number of untapped objects in the stack.
func (p *Permanent) Untapped() int {
	untapped := p.Count() - p.Tapped
	if untapped < 0 {
		return 0
	}
	return untapped
}

// CounterTotal returns the number of counters on the object across kinds.
func (p *Permanent) CounterTotal() int {
	return p.Counters.Total()
}

// Identity returns the stable card-identity key used for custom-rule
// lookups, falling back to the card name when no oracle id is known.
func (p *Permanent) Identity() string {
	if p.Card.OracleID != "" {
		return p.Card.OracleID
	}
	return p.Card.Name
}

func (c Card) hasType(cardType string) bool {
	return strings.Contains(c.TypeLine, cardType)
}

// IsLand reports whether the card's type line carries the Land type.
func (c Card) IsLand() bool { return c.hasType("Land") }

// IsCreature reports whether the card's type line carries the Creature type.
func (c Card) IsCreature() bool { return c.hasType("Creature") }

// IsArtifact reports whether the card's type line carries the Artifact type.
func (c Card) IsArtifact() bool { return c.hasType("Artifact") }

// IsBasic reports whether the card is a basic land.
func (c Card) IsBasic() bool { return c.hasType("Basic") && c.IsLand() }
