// Package rules holds the player-authored custom production rules that
// override or extend a card's intrinsic mana production. Rules are keyed by
// card identity (not object instance) and supplied by player configuration;
// the engine looks them up per permanent on every evaluation pass.
package rules

import (
	"strconv"
	"strings"

	"github.com/opentabletop/tabletop-server-go/internal/game/mana"
)

// ProductionMode selects how a rule builds its produced list.
type ProductionMode string

const (
	// ModeStandard produces a fixed configured list.
	ModeStandard ProductionMode = "standard"
	// ModeAvailable matches whatever colors the player's lands can produce.
	ModeAvailable ProductionMode = "available"
	// ModeChooseColor defers a color choice to the player at tap time.
	ModeChooseColor ProductionMode = "chooseColor"
	// ModeCommander matches the commander's color identity.
	ModeCommander ProductionMode = "commander"
	// ModeMultiplied is the fallback mode: the configured list scaled by the
	// calc amount.
	ModeMultiplied ProductionMode = "multiplied"
)

// CalcMode selects how a rule's scaling amount is computed.
type CalcMode string

const (
	// CalcSet uses a flat amount of one (times the multiplier).
	CalcSet CalcMode = "set"
	// CalcCounters scales with the counters on the object, optionally plus a
	// numeric prefix parsed from the card's printed power.
	CalcCounters CalcMode = "counters"
	// CalcCreatures scales with the board-wide creature count.
	CalcCreatures CalcMode = "creatures"
	// CalcBasics scales with the board-wide basic-land count.
	CalcBasics CalcMode = "basics"
)

// Trigger classifies how a source's mana ability is activated.
type Trigger string

const (
	TriggerTap       Trigger = "tap"
	TriggerActivated Trigger = "activated"
	TriggerMulti     Trigger = "multi"
	TriggerComplex   Trigger = "complex"
	TriggerPassive   Trigger = "passive"
)

// Category names a class of board objects a global rule can apply to.
type Category string

const (
	CategoryCreatures Category = "creatures"
	CategoryLands     Category = "lands"
	CategoryBasics    Category = "basics"
)

// AutoTapDisabled is the priority sentinel that sorts a source last when the
// rule has not opted into auto-tapping.
const AutoTapDisabled = 999

// ColorAmount is one (color, base count) pair of a configured production
// list.
type ColorAmount struct {
	Color  mana.ManaType `json:"color"`
	Amount int           `json:"amount"`
}

// ProductionRule is a player-authored override attached to a card identity.
type ProductionRule struct {
	Disabled bool           `json:"disabled,omitempty"`
	Mode     ProductionMode `json:"mode"`
	Calc     CalcMode       `json:"calc,omitempty"`
	// Multiplier scales the calc amount; zero means one.
	Multiplier int `json:"multiplier,omitempty"`

	Produces []ColorAmount `json:"produces,omitempty"`
	// Alt contributes additional distinct color options (not scaled) for a
	// flexible source.
	Alt []mana.ManaType `json:"alt,omitempty"`

	// Activation cost charged on top of tapping.
	CostGeneric int             `json:"costGeneric,omitempty"`
	CostColors  []mana.ManaType `json:"costColors,omitempty"`

	AutoTap    bool    `json:"autoTap,omitempty"`
	Priority   int     `json:"priority,omitempty"`
	Trigger    Trigger `json:"trigger,omitempty"`
	HideButton bool    `json:"hideButton,omitempty"`

	// AppliesTo turns the rule into a global grant for matching objects.
	AppliesTo []Category `json:"appliesTo,omitempty"`
	// RequiresCounters restricts a grant to objects bearing counters.
	RequiresCounters bool `json:"requiresCounters,omitempty"`
	// GlobalMultiplier multiplies other sources' output; zero means none.
	GlobalMultiplier int `json:"globalMultiplier,omitempty"`
}

// Registry maps card identity keys to their production rules.
type Registry map[string]*ProductionRule

// Lookup returns the rule for a card identity, or nil.
func (r Registry) Lookup(identity string) *ProductionRule {
	if r == nil {
		return nil
	}
	return r[identity]
}

// EffectiveMultiplier returns the rule multiplier with the zero default.
func (pr *ProductionRule) EffectiveMultiplier() int {
	if pr.Multiplier <= 0 {
		return 1
	}
	return pr.Multiplier
}

// EffectivePriority returns the auto-tap priority: the configured priority
// when auto-tap is enabled, else the sentinel that sorts last.
func (pr *ProductionRule) EffectivePriority() int {
	if pr.AutoTap {
		return pr.Priority
	}
	return AutoTapDisabled
}

// EffectiveTrigger defaults an unset trigger to tap.
func (pr *ProductionRule) EffectiveTrigger() Trigger {
	if pr.Trigger == "" {
		return TriggerTap
	}
	return pr.Trigger
}

// IsGrant reports whether the rule grants production to other objects.
func (pr *ProductionRule) IsGrant() bool {
	return len(pr.AppliesTo) > 0
}

// IsGlobalMultiplier reports whether the rule multiplies other sources.
func (pr *ProductionRule) IsGlobalMultiplier() bool {
	return pr.GlobalMultiplier > 1 && len(pr.AppliesTo) > 0
}

// AppliesToCategory reports whether a grant names the given category.
func (pr *ProductionRule) AppliesToCategory(cat Category) bool {
	for _, have := range pr.AppliesTo {
		if have == cat {
			return true
		}
	}
	return false
}

// ActivationCost renders the rule's extra activation cost as brace tokens
// ("{2}{G}"), or "" when tapping is the only cost.
func (pr *ProductionRule) ActivationCost() string {
	var b strings.Builder
	if pr.CostGeneric > 0 {
		b.WriteString("{" + strconv.Itoa(pr.CostGeneric) + "}")
	}
	for _, mt := range pr.CostColors {
		b.WriteString("{" + mt.Symbol() + "}")
	}
	return b.String()
}
