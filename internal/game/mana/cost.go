package mana

import (
	"regexp"
	"strconv"
	"strings"
)

// SymbolKind classifies a single cost symbol.
type SymbolKind string

const (
	SymbolColored SymbolKind = "colored"
	SymbolGeneric SymbolKind = "generic"
	SymbolHybrid  SymbolKind = "hybrid"
)

// Symbol is one requirement of a parsed mana cost.
type Symbol struct {
	Kind    SymbolKind
	Color   ManaType   // colored
	Generic int        // generic
	Options []ManaType // hybrid
}

// Cost represents a parsed mana cost: the symbol sequence in source order
// plus the precomputed numeric total. Generic symbols contribute their count
// to the total, colored and hybrid symbols contribute one pip each, and X
// contributes nothing until a concrete value is supplied to the solver.
type Cost struct {
	Symbols []Symbol
	Total   int
	HasX    bool
}

var symbolPattern = regexp.MustCompile(`\{([^}]+)\}`)

// ParseCost parses a brace-delimited mana cost string (e.g. "{2}{G}{G}",
// "{X}{R}", "{W/U}{W/U}"). Parsing is lenient: unrecognized tokens are
// dropped silently. An empty string yields a zero cost.
func ParseCost(costStr string) *Cost {
	cost := &Cost{}
	if costStr == "" {
		return cost
	}

	for _, match := range symbolPattern.FindAllStringSubmatch(costStr, -1) {
		token := strings.ToUpper(strings.TrimSpace(match[1]))
		switch {
		case token == "X":
			cost.HasX = true
		case strings.Contains(token, "/"):
			if options := parseHybridToken(token); options != nil {
				cost.Symbols = append(cost.Symbols, Symbol{Kind: SymbolHybrid, Options: options})
				cost.Total++
			}
		default:
			if n, err := strconv.Atoi(token); err == nil {
				cost.Symbols = append(cost.Symbols, Symbol{Kind: SymbolGeneric, Generic: n})
				cost.Total += n
			} else if mt, ok := ParseManaType(token); ok {
				cost.Symbols = append(cost.Symbols, Symbol{Kind: SymbolColored, Color: mt})
				cost.Total++
			}
			// Anything else is dropped.
		}
	}

	return cost
}

// parseHybridToken splits a token like "W/U" and keeps it only if every
// piece is a recognized color.
func parseHybridToken(token string) []ManaType {
	parts := strings.Split(token, "/")
	options := make([]ManaType, 0, len(parts))
	for _, part := range parts {
		mt, ok := ParseManaType(strings.TrimSpace(part))
		if !ok {
			return nil
		}
		options = append(options, mt)
	}
	return options
}

// String returns the brace-token representation of the cost.
func (c *Cost) String() string {
	var b strings.Builder
	if c.HasX {
		b.WriteString("{X}")
	}
	for _, sym := range c.Symbols {
		switch sym.Kind {
		case SymbolGeneric:
			b.WriteString("{" + strconv.Itoa(sym.Generic) + "}")
		case SymbolColored:
			b.WriteString("{" + sym.Color.Symbol() + "}")
		case SymbolHybrid:
			parts := make([]string, len(sym.Options))
			for i, mt := range sym.Options {
				parts[i] = mt.Symbol()
			}
			b.WriteString("{" + strings.Join(parts, "/") + "}")
		}
	}
	return b.String()
}
