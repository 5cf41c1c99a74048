// Package autotap is the mana evaluation and auto-tap engine: it scans a
// player's permanents, normalizes each one into at most one mana source,
// aggregates the sources into available and potential pools, and solves tap
// assignments that pay a parsed cost. Every operation is a pure, synchronous
// function of its inputs; board state, rules and floating pools are never
// mutated in place.
package autotap

import (
	"regexp"
	"strings"

	"github.com/opentabletop/tabletop-server-go/internal/game/board"
	"github.com/opentabletop/tabletop-server-go/internal/game/mana"
	"github.com/opentabletop/tabletop-server-go/internal/game/rules"
)

// Source describes one board object's capacity to produce mana at a point in
// time. Sources are recomputed fresh on every evaluation pass and never
// persisted.
type Source struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Produces may contain duplicates to represent fixed multi-mana output.
	Produces []mana.ManaType `json:"produces"`
	Basic    bool            `json:"basic,omitempty"`
	// Land marks pure land-type objects; tap production of lands lands in
	// the available pool, while creature and artifact taps stay potential.
	Land bool `json:"land,omitempty"`
	// Flexible marks sources that can choose among two or more distinct
	// colors or produce a meta-color.
	Flexible bool          `json:"flexible,omitempty"`
	Priority int           `json:"priority"`
	Trigger  rules.Trigger `json:"trigger"`
	// ActivationCost is the extra cost beyond tapping, as brace tokens.
	ActivationCost string `json:"activationCost,omitempty"`
	// ManaCount weights the source in pool totals (a rock that taps for two
	// counts as 2).
	ManaCount int `json:"manaCount"`
}

// commanderFilteredLands produce only colors inside the commander's color
// identity regardless of their parsed text.
var commanderFilteredLands = map[string]bool{
	"Command Tower": true,
	"Opal Palace":   true,
}

var triggeredClausePrefixes = []string{"whenever", "when ", "at the beginning"}

// addLinePattern finds ability lines that add mana.
var addLinePattern = regexp.MustCompile(`(?i)\badd\b`)

// classifyAbility derives the four-way ability classification (plus passive)
// from a card's oracle text when no custom rule supplies one.
func classifyAbility(card board.Card) rules.Trigger {
	var addLines []string
	for _, line := range strings.Split(card.OracleText, "\n") {
		if addLinePattern.MatchString(line) {
			addLines = append(addLines, strings.TrimSpace(line))
		}
	}

	if len(addLines) == 0 {
		if card.IsBasic() {
			return rules.TriggerTap
		}
		return rules.TriggerPassive
	}
	if len(addLines) > 1 {
		return rules.TriggerMulti
	}

	line := addLines[0]
	lower := strings.ToLower(line)
	for _, prefix := range triggeredClausePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return rules.TriggerPassive
		}
	}

	colon := strings.Index(line, ":")
	if colon < 0 {
		return rules.TriggerTap
	}
	costSegment := line[:colon]
	switch {
	case isComplexCost(costSegment):
		return rules.TriggerComplex
	case activationTokens(costSegment) != "":
		return rules.TriggerActivated
	default:
		return rules.TriggerTap
	}
}

// parseActivationCost extracts the mana portion of a card's own activation
// cost ("{1}, {T}: Add ..." yields "{1}"), or "" when tapping is free.
func parseActivationCost(oracleText string) string {
	for _, line := range strings.Split(oracleText, "\n") {
		if !addLinePattern.MatchString(line) {
			continue
		}
		colon := strings.Index(line, ":")
		if colon < 0 {
			continue
		}
		if tokens := activationTokens(line[:colon]); tokens != "" {
			return tokens
		}
	}
	return ""
}

var costTokenPattern = regexp.MustCompile(`\{([^}]+)\}`)

// activationTokens collects the mana symbols of a cost segment, excluding
// the tap symbol itself.
func activationTokens(costSegment string) string {
	var b strings.Builder
	for _, match := range costTokenPattern.FindAllStringSubmatch(costSegment, -1) {
		token := strings.ToUpper(strings.TrimSpace(match[1]))
		if token == "T" || token == "Q" {
			continue
		}
		b.WriteString("{" + token + "}")
	}
	return b.String()
}

var complexCostWords = []string{"sacrifice", "discard", "exile", "pay", "remove", "return"}

func isComplexCost(costSegment string) bool {
	lower := strings.ToLower(costSegment)
	for _, word := range complexCostWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
