package mana

// ManaType represents a type of mana.
type ManaType string

const (
	ManaWhite     ManaType = "WHITE"
	ManaBlue      ManaType = "BLUE"
	ManaBlack     ManaType = "BLACK"
	ManaRed       ManaType = "RED"
	ManaGreen     ManaType = "GREEN"
	ManaColorless ManaType = "COLORLESS"

	// ManaAny is the "any one color" meta-type produced by flexible sources.
	ManaAny ManaType = "ANY"
	// ManaCommander resolves against the active commander's color identity
	// at evaluation time.
	ManaCommander ManaType = "COMMANDER"
)

// BaseColors is the fixed enumeration order used whenever colored mana is
// consumed "in order" (generic payment, tie-breaking).
var BaseColors = []ManaType{ManaWhite, ManaBlue, ManaBlack, ManaRed, ManaGreen}

// AllTypes lists every member of the closed mana-type enumeration.
var AllTypes = []ManaType{
	ManaWhite, ManaBlue, ManaBlack, ManaRed, ManaGreen,
	ManaColorless, ManaAny, ManaCommander,
}

var symbolToType = map[string]ManaType{
	"W": ManaWhite,
	"U": ManaBlue,
	"B": ManaBlack,
	"R": ManaRed,
	"G": ManaGreen,
	"C": ManaColorless,
}

var typeToSymbol = map[ManaType]string{
	ManaWhite:     "W",
	ManaBlue:      "U",
	ManaBlack:     "B",
	ManaRed:       "R",
	ManaGreen:     "G",
	ManaColorless: "C",
	ManaAny:       "*",
	ManaCommander: "CMD",
}

// ParseManaType maps a cost-string symbol ("W", "U", ...) to its mana type.
func ParseManaType(symbol string) (ManaType, bool) {
	mt, ok := symbolToType[symbol]
	return mt, ok
}

// Symbol returns the single-character cost symbol for a mana type.
func (mt ManaType) Symbol() string {
	return typeToSymbol[mt]
}

// IsBase reports whether the type is one of the five colored base types.
func (mt ManaType) IsBase() bool {
	switch mt {
	case ManaWhite, ManaBlue, ManaBlack, ManaRed, ManaGreen:
		return true
	}
	return false
}

// IsMeta reports whether the type is one of the two meta-types that resolve
// to concrete colors at evaluation time.
func (mt ManaType) IsMeta() bool {
	return mt == ManaAny || mt == ManaCommander
}

func (mt ManaType) String() string {
	return string(mt)
}

// DistinctColors returns the distinct concrete and meta colors of a produced
// list, in first-appearance order.
func DistinctColors(produced []ManaType) []ManaType {
	seen := make(map[ManaType]bool, len(produced))
	var out []ManaType
	for _, mt := range produced {
		if !seen[mt] {
			seen[mt] = true
			out = append(out, mt)
		}
	}
	return out
}

// IsFlexible reports whether a produced list represents a choice: at least
// two distinct colors, or any meta-color entry.
func IsFlexible(produced []ManaType) bool {
	distinct := DistinctColors(produced)
	if len(distinct) >= 2 {
		return true
	}
	for _, mt := range distinct {
		if mt.IsMeta() {
			return true
		}
	}
	return false
}
