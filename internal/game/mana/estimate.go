package mana

import (
	"regexp"
	"strconv"
	"strings"
)

// basicLandColors maps basic land subtypes to their fixed production.
var basicLandColors = []struct {
	Subtype string
	Color   ManaType
}{
	{"Plains", ManaWhite},
	{"Island", ManaBlue},
	{"Swamp", ManaBlack},
	{"Mountain", ManaRed},
	{"Forest", ManaGreen},
	{"Wastes", ManaColorless},
}

// addClausePattern matches "Add" followed by one or more brace-wrapped
// symbols in oracle text, e.g. "{T}: Add {C}{C}." or "Add {G} or {W}.".
var addClausePattern = regexp.MustCompile(`(?i)add[^.\n]*`)

// fixedAnyColorCards always count as five-color producers even when their
// printed text does not parse.
var fixedAnyColorCards = map[string]bool{
	"Black Lotus":        true,
	"Lion's Eye Diamond": true,
}

// EstimateProducedMana infers which mana a card can produce from its printed
// text. It is applied only when no authoritative produced-mana list is
// available. The result may contain duplicates to represent fixed
// multi-mana output; a nil result means the card is not a mana source.
func EstimateProducedMana(name, typeLine, oracleText string) []ManaType {
	var produced []ManaType

	for _, basic := range basicLandColors {
		if strings.Contains(typeLine, basic.Subtype) {
			produced = append(produced, basic.Color)
		}
	}

	for _, clause := range addClausePattern.FindAllString(oracleText, -1) {
		for _, match := range symbolPattern.FindAllStringSubmatch(clause, -1) {
			token := strings.ToUpper(strings.TrimSpace(match[1]))
			if mt, ok := ParseManaType(token); ok {
				produced = append(produced, mt)
			} else if n, err := strconv.Atoi(token); err == nil {
				for i := 0; i < n; i++ {
					produced = append(produced, ManaColorless)
				}
			}
		}
	}

	lower := strings.ToLower(oracleText)
	if strings.Contains(lower, "any color") || strings.Contains(lower, "any one color") ||
		strings.Contains(lower, "any type") || fixedAnyColorCards[name] {
		for _, base := range BaseColors {
			if !containsType(produced, base) {
				produced = append(produced, base)
			}
		}
	}

	// Sol Ring's printed reminder text varies across printings; guarantee
	// the two colorless it actually produces.
	if name == "Sol Ring" {
		colorless := 0
		for _, mt := range produced {
			if mt == ManaColorless {
				colorless++
			}
		}
		for ; colorless < 2; colorless++ {
			produced = append(produced, ManaColorless)
		}
	}

	return produced
}

func containsType(list []ManaType, mt ManaType) bool {
	for _, have := range list {
		if have == mt {
			return true
		}
	}
	return false
}
