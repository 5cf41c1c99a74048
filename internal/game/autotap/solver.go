package autotap

import (
	"sort"

	"go.uber.org/zap"

	"github.com/opentabletop/tabletop-server-go/internal/game/mana"
	"github.com/opentabletop/tabletop-server-go/internal/game/rules"
)

// TapRequest carries everything one payment attempt needs.
type TapRequest struct {
	Cost *mana.Cost
	// Sources is the available-source list from a fresh evaluation, one
	// entry per untapped unit.
	Sources []Source
	// Floating is the caller-owned pool of mana already produced but not
	// yet spent. It is never mutated; the result carries the updated pool.
	Floating mana.Pool
	// X resolves a variable cost; ignored when the cost has no X.
	X               int
	CommanderColors []mana.ManaType
}

// TapResult reports one payment attempt. On failure Tapped is empty and
// Floating equals the request's floating pool unchanged: the solver never
// leaves sources half-committed.
type TapResult struct {
	Success bool `json:"success"`
	// Tapped lists the ids to tap, one entry per tapped unit.
	Tapped []string `json:"tapped"`
	// Floating is the pool remaining after payment.
	Floating mana.Pool `json:"floating"`
	// Produced counts mana produced by new taps, for display.
	Produced mana.Pool `json:"produced"`
	// Spent counts colored and hybrid pips by the color that paid them.
	Spent mana.Pool `json:"spent"`
	// GenericPaid breaks down which colors paid the generic portion.
	GenericPaid mana.Pool `json:"genericPaid"`
}

// requirement is one discrete pip of an expanded cost.
type requirement struct {
	kind    mana.SymbolKind
	color   mana.ManaType   // colored
	options []mana.ManaType // hybrid
}

// SolveTap selects sources to tap to pay a cost, spending floating mana
// first and minimizing use of flexible and high-priority sources. Payment is
// all-or-nothing: any unsatisfiable requirement fails the whole attempt and
// rolls back to the request's floating pool.
func (e *Engine) SolveTap(req TapRequest) *TapResult {
	originalFloating := mana.NewPool()
	if req.Floating != nil {
		originalFloating = req.Floating
	}

	floating := originalFloating.Copy()
	spent := mana.NewPool()
	genericPaid := mana.NewPool()

	reqs := expandRequirements(req.Cost, req.X)

	// First pass: pay whatever floating mana covers.
	var carried []requirement
	for _, r := range reqs {
		if !payFromFloating(r, floating, spent, genericPaid) {
			carried = append(carried, r)
		}
	}

	if len(carried) == 0 {
		return &TapResult{
			Success:     true,
			Tapped:      []string{},
			Floating:    floating,
			Produced:    mana.NewPool(),
			Spent:       spent,
			GenericPaid: genericPaid,
		}
	}

	// Second pass: tap sources. The arena keeps candidates in stable
	// priority order; consumed entries are tombstoned, not deleted.
	arena := make([]Source, len(req.Sources))
	copy(arena, req.Sources)
	sort.SliceStable(arena, func(i, j int) bool { return arena[i].Priority < arena[j].Priority })
	used := make([]bool, len(arena))

	tapped := []string{}
	produced := mana.NewPool()

	fail := func(reason string, r requirement) *TapResult {
		e.logger.Debug("auto-tap infeasible",
			zap.String("reason", reason),
			zap.String("cost", req.Cost.String()),
			zap.String("requirement", string(r.kind)),
		)
		return &TapResult{
			Success:     false,
			Tapped:      []string{},
			Floating:    originalFloating.Copy(),
			Produced:    mana.NewPool(),
			Spent:       mana.NewPool(),
			GenericPaid: mana.NewPool(),
		}
	}

	consume := func(idx int, color mana.ManaType, generic bool) {
		src := arena[idx]
		used[idx] = true
		if src.Trigger != rules.TriggerPassive {
			tapped = append(tapped, src.ID)
		}
		record := spent
		if generic {
			record = genericPaid
		}
		if src.Flexible {
			// Flexible producers skip the floating round-trip: one unit
			// produced and spent directly in the requirement's color.
			produced.Add(color, 1)
			record.Add(color, 1)
			return
		}
		for _, mt := range src.Produces {
			floating.Add(mt, 1)
			produced.Add(mt, 1)
		}
		floating.Spend(color, 1)
		record.Add(color, 1)
	}

	// Colored first, then hybrid, then generic: hard color requirements
	// claim flexible sources before the fungible generic cost can.
	for _, r := range carried {
		if r.kind != mana.SymbolColored {
			continue
		}
		// Leftover floating from an earlier fixed multi-mana tap can cover
		// this pip without another tap.
		if payFromFloating(r, floating, spent, genericPaid) {
			continue
		}
		idx := findMatch(arena, used, r.color, req.CommanderColors)
		if idx < 0 {
			return fail("no source for colored pip", r)
		}
		consume(idx, r.color, false)
	}

	for _, r := range carried {
		if r.kind != mana.SymbolHybrid {
			continue
		}
		if payFromFloating(r, floating, spent, genericPaid) {
			continue
		}
		idx, option := findHybridMatch(arena, used, r.options, req.CommanderColors)
		if idx < 0 {
			return fail("no source for hybrid pip", r)
		}
		consume(idx, option, false)
	}

	for _, r := range carried {
		if r.kind != mana.SymbolGeneric {
			continue
		}
		if color, ok := anyFloating(floating); ok {
			floating.Spend(color, 1)
			genericPaid.Add(color, 1)
			continue
		}
		idx := nextUnused(used)
		if idx < 0 {
			return fail("no source for generic pip", r)
		}
		consume(idx, genericColor(arena[idx], req.CommanderColors), true)
	}

	e.logger.Debug("auto-tap solved",
		zap.String("cost", req.Cost.String()),
		zap.Int("tapped", len(tapped)),
		zap.Int("floating_left", floating.Total()),
	)
	return &TapResult{
		Success:     true,
		Tapped:      tapped,
		Floating:    floating,
		Produced:    produced,
		Spent:       spent,
		GenericPaid: genericPaid,
	}
}

// expandRequirements flattens a cost into one requirement per pip; a
// variable X expands into x generic pips.
func expandRequirements(cost *mana.Cost, x int) []requirement {
	var reqs []requirement
	if cost == nil {
		return reqs
	}
	for _, sym := range cost.Symbols {
		switch sym.Kind {
		case mana.SymbolColored:
			reqs = append(reqs, requirement{kind: mana.SymbolColored, color: sym.Color})
		case mana.SymbolHybrid:
			reqs = append(reqs, requirement{kind: mana.SymbolHybrid, options: sym.Options})
		case mana.SymbolGeneric:
			for i := 0; i < sym.Generic; i++ {
				reqs = append(reqs, requirement{kind: mana.SymbolGeneric})
			}
		}
	}
	if cost.HasX {
		for i := 0; i < x; i++ {
			reqs = append(reqs, requirement{kind: mana.SymbolGeneric})
		}
	}
	return reqs
}

// payFromFloating satisfies one requirement from floating mana when
// possible. Hybrid pips prefer whichever option has the most floating mana;
// generic pips prefer colorless, then the base colors in fixed order.
func payFromFloating(r requirement, floating, spent, genericPaid mana.Pool) bool {
	switch r.kind {
	case mana.SymbolColored:
		if floating.Get(r.color) > 0 {
			floating.Spend(r.color, 1)
			spent.Add(r.color, 1)
			return true
		}
	case mana.SymbolHybrid:
		best := mana.ManaType("")
		bestCount := 0
		for _, option := range r.options {
			if floating.Get(option) > bestCount {
				best = option
				bestCount = floating.Get(option)
			}
		}
		if bestCount > 0 {
			floating.Spend(best, 1)
			spent.Add(best, 1)
			return true
		}
	case mana.SymbolGeneric:
		if color, ok := anyFloating(floating); ok {
			floating.Spend(color, 1)
			genericPaid.Add(color, 1)
			return true
		}
	}
	return false
}

// anyFloating picks the floating color generic payment drains first:
// colorless, then the base colors in fixed enumeration order.
func anyFloating(floating mana.Pool) (mana.ManaType, bool) {
	if floating.Get(mana.ManaColorless) > 0 {
		return mana.ManaColorless, true
	}
	for _, base := range mana.BaseColors {
		if floating.Get(base) > 0 {
			return base, true
		}
	}
	return "", false
}

// findMatch returns the first unused source, in priority order, that can
// produce the requested color.
func findMatch(arena []Source, used []bool, color mana.ManaType, commander []mana.ManaType) int {
	for i, src := range arena {
		if used[i] {
			continue
		}
		if sourceMatches(src, color, commander) {
			return i
		}
	}
	return -1
}

// sourceMatches reports whether a source can produce the requested color: a
// literal match, an "any" requirement against any colored production, an
// "any" producer, or a commander producer whose identity contains the color.
func sourceMatches(src Source, color mana.ManaType, commander []mana.ManaType) bool {
	for _, mt := range src.Produces {
		if mt == color {
			return true
		}
		if color == mana.ManaAny && (mt.IsBase() || mt.IsMeta()) {
			return true
		}
		if mt == mana.ManaAny {
			return true
		}
		if mt == mana.ManaCommander && containsMana(commander, color) {
			return true
		}
	}
	return false
}

// findHybridMatch walks sources in priority order and returns the first one
// matching any option, with ties between options broken by option order.
func findHybridMatch(arena []Source, used []bool, options []mana.ManaType, commander []mana.ManaType) (int, mana.ManaType) {
	for i, src := range arena {
		if used[i] {
			continue
		}
		for _, option := range options {
			if sourceMatches(src, option, commander) {
				return i, option
			}
		}
	}
	return -1, ""
}

func nextUnused(used []bool) int {
	for i, u := range used {
		if !u {
			return i
		}
	}
	return -1
}

// genericColor picks the color a source pays a generic pip with: its fixed
// color, or a flexible source's first concrete option.
func genericColor(src Source, commander []mana.ManaType) mana.ManaType {
	for _, mt := range mana.DistinctColors(src.Produces) {
		switch mt {
		case mana.ManaAny:
			return mana.ManaColorless
		case mana.ManaCommander:
			if len(commander) > 0 {
				return commander[0]
			}
			return mana.ManaColorless
		default:
			return mt
		}
	}
	return mana.ManaColorless
}
