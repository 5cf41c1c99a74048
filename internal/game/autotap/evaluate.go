package autotap

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/opentabletop/tabletop-server-go/internal/game/board"
	"github.com/opentabletop/tabletop-server-go/internal/game/mana"
	"github.com/opentabletop/tabletop-server-go/internal/game/rules"
)

// Engine evaluates board state into mana sources and solves tap assignments.
// It holds no game state of its own: board, rules and commander identity are
// explicit parameters so synthetic boards are trivially testable.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a new auto-tap engine.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// evaluated pairs a normalized source with the untapped capacity of its
// permanent.
type evaluated struct {
	source   Source
	untapped int
}

// globalRules is the output of the first evaluation pass: grant and
// multiplier rules collected from the whole board.
type globalRules struct {
	grants      []globalGrant
	multipliers []globalMultiplier
}

type globalGrant struct {
	grantorID string
	rule      *rules.ProductionRule
}

type globalMultiplier struct {
	grantorID  string
	factor     int
	categories []rules.Category
}

// Evaluate scans the permanents controlled by playerID and produces the
// available/potential pools and source lists. Commander colors resolve the
// commander meta-color and the commander-filtered utility lands.
func (e *Engine) Evaluate(perms []*board.Permanent, reg rules.Registry, commander []mana.ManaType, playerID string) *Evaluation {
	controlled := filterControlled(perms, playerID)
	globals := collectGlobals(controlled, reg)

	var evals []evaluated
	for _, perm := range controlled {
		ev := e.normalize(perm, reg, globals, commander, controlled)
		if ev == nil {
			continue
		}
		if ev.untapped <= 0 && ev.source.Trigger != rules.TriggerPassive {
			continue
		}
		evals = append(evals, *ev)
	}

	result := aggregate(evals, commander)
	e.logger.Debug("evaluated mana sources",
		zap.String("player", playerID),
		zap.Int("permanents", len(controlled)),
		zap.Int("available_sources", len(result.Sources)),
		zap.Int("potential_sources", len(result.PotentialSources)),
		zap.Int("total_available", result.TotalAvailable),
		zap.Int("total_potential", result.TotalPotential),
	)
	return result
}

func filterControlled(perms []*board.Permanent, playerID string) []*board.Permanent {
	if playerID == "" {
		return perms
	}
	var out []*board.Permanent
	for _, perm := range perms {
		if perm.ControllerID == playerID {
			out = append(out, perm)
		}
	}
	return out
}

// collectGlobals is the first pass: it gathers every enabled grant and
// multiplier rule on the board so the second pass can apply them per
// permanent without interleaved mutation.
func collectGlobals(perms []*board.Permanent, reg rules.Registry) globalRules {
	var globals globalRules
	for _, perm := range perms {
		rule := reg.Lookup(perm.Identity())
		if rule == nil || rule.Disabled {
			continue
		}
		if rule.IsGrant() && len(rule.Produces) > 0 {
			globals.grants = append(globals.grants, globalGrant{grantorID: perm.ID, rule: rule})
		}
		if rule.IsGlobalMultiplier() {
			globals.multipliers = append(globals.multipliers, globalMultiplier{
				grantorID:  perm.ID,
				factor:     rule.GlobalMultiplier,
				categories: rule.AppliesTo,
			})
		}
	}
	return globals
}

// normalize resolves one permanent into at most one mana source. It is total:
// a nil result means "not a source", never an error.
func (e *Engine) normalize(perm *board.Permanent, reg rules.Registry, globals globalRules, commander []mana.ManaType, allPerms []*board.Permanent) *evaluated {
	rule := reg.Lookup(perm.Identity())
	if rule != nil && rule.Disabled {
		return nil
	}

	var (
		produced   []mana.ManaType
		trigger    rules.Trigger
		priority   int
		activation string
		rulePath   = rule != nil
	)

	if rulePath {
		amount := calcAmount(rule, perm, allPerms)
		produced = buildRuleProduction(rule, amount, allPerms, commander)
		if len(produced) == 0 {
			return nil
		}
		trigger = rule.EffectiveTrigger()
		priority = rule.EffectivePriority()
		activation = rule.ActivationCost()
	} else {
		produced = perm.Card.Produced
		if len(produced) == 0 {
			produced = mana.EstimateProducedMana(perm.Card.Name, perm.Card.TypeLine, perm.Card.OracleText)
		}
		if commanderFilteredLands[perm.Card.Name] {
			produced = filterToCommander(produced, commander)
		}
		trigger = classifyAbility(perm.Card)
		activation = parseActivationCost(perm.Card.OracleText)
	}

	ownProduction := len(produced) > 0

	for _, grant := range globals.grants {
		if grant.grantorID == perm.ID {
			continue
		}
		if !grantMatches(grant.rule, perm) {
			continue
		}
		amount := grantAmount(grant.rule, perm, allPerms)
		granted := expandConfigured(grant.rule.Produces, amount, commander)
		if len(granted) == 0 {
			continue
		}
		produced = append(produced, granted...)
		if !ownProduction {
			// A permanent with no production of its own is promoted from
			// passive to the grantor's trigger.
			trigger = grant.rule.EffectiveTrigger()
			ownProduction = true
		}
	}

	if len(produced) == 0 {
		return nil
	}

	flexible := mana.IsFlexible(produced)
	basic := perm.Card.IsBasic()
	weight := len(produced)
	if flexible {
		weight = 1
	}

	if !rulePath {
		priority = intrinsicPriority(basic, flexible, produced)
	}

	for _, mult := range globals.multipliers {
		if mult.grantorID == perm.ID || flexible {
			continue
		}
		if !multiplierMatches(mult.categories, perm) {
			continue
		}
		base := make([]mana.ManaType, len(produced))
		copy(base, produced)
		for i := 1; i < mult.factor; i++ {
			produced = append(produced, base...)
		}
		weight *= mult.factor
	}

	return &evaluated{
		source: Source{
			ID:             perm.ID,
			Name:           perm.Card.Name,
			Produces:       produced,
			Basic:          basic,
			Land:           perm.Card.IsLand() && !perm.Card.IsCreature() && !perm.Card.IsArtifact(),
			Flexible:       flexible,
			Priority:       priority,
			Trigger:        trigger,
			ActivationCost: activation,
			ManaCount:      weight,
		},
		untapped: perm.Untapped(),
	}
}

// intrinsicPriority ranks sources without custom rules: basic lands first,
// then single fixed colors, with flexible producers last.
func intrinsicPriority(basic, flexible bool, produced []mana.ManaType) int {
	switch {
	case basic:
		return 0
	case flexible:
		return 3
	case len(mana.DistinctColors(produced)) == 1:
		return 1
	default:
		return 2
	}
}

// calcAmount computes a rule's scaling amount from its calc mode.
func calcAmount(rule *rules.ProductionRule, perm *board.Permanent, perms []*board.Permanent) int {
	base := 1
	switch rule.Calc {
	case rules.CalcCounters:
		base = perm.CounterTotal() + powerPrefix(perm.Card.Power)
	case rules.CalcCreatures:
		base = countMatching(perms, func(c board.Card) bool { return c.IsCreature() })
	case rules.CalcBasics:
		base = countMatching(perms, func(c board.Card) bool { return c.IsBasic() })
	}
	return base * rule.EffectiveMultiplier()
}

// grantAmount computes a grantor's scaling amount against the granted
// permanent: counter scaling counts the target's counters.
func grantAmount(rule *rules.ProductionRule, target *board.Permanent, perms []*board.Permanent) int {
	base := 1
	switch rule.Calc {
	case rules.CalcCounters:
		base = target.CounterTotal()
	case rules.CalcCreatures:
		base = countMatching(perms, func(c board.Card) bool { return c.IsCreature() })
	case rules.CalcBasics:
		base = countMatching(perms, func(c board.Card) bool { return c.IsBasic() })
	}
	return base * rule.EffectiveMultiplier()
}

func countMatching(perms []*board.Permanent, match func(board.Card) bool) int {
	count := 0
	for _, perm := range perms {
		if match(perm.Card) {
			count += perm.Count()
		}
	}
	return count
}

// powerPrefix parses the leading digits of a printed power ("2+*" yields 2).
func powerPrefix(power string) int {
	end := 0
	for end < len(power) && power[end] >= '0' && power[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(power[:end])
	if err != nil {
		return 0
	}
	return n
}

// buildRuleProduction builds the produced list for a custom rule.
func buildRuleProduction(rule *rules.ProductionRule, amount int, perms []*board.Permanent, commander []mana.ManaType) []mana.ManaType {
	if amount <= 0 {
		return nil
	}

	var produced []mana.ManaType
	switch rule.Mode {
	case rules.ModeStandard:
		produced = expandConfigured(rule.Produces, amount, commander)
		for _, alt := range rule.Alt {
			if !containsMana(produced, alt) {
				produced = append(produced, alt)
			}
		}
	case rules.ModeAvailable:
		for _, color := range availableLandColors(perms) {
			for i := 0; i < amount; i++ {
				produced = append(produced, color)
			}
		}
	case rules.ModeChooseColor:
		for _, base := range mana.BaseColors {
			for i := 0; i < amount; i++ {
				produced = append(produced, base)
			}
		}
	case rules.ModeCommander:
		if len(commander) == 0 {
			for i := 0; i < amount; i++ {
				produced = append(produced, mana.ManaColorless)
			}
		} else {
			for _, color := range commander {
				for i := 0; i < amount; i++ {
					produced = append(produced, color)
				}
			}
		}
	default: // ModeMultiplied and anything unrecognized
		produced = expandConfigured(rule.Produces, amount, commander)
	}
	return produced
}

// expandConfigured pushes baseCount*amount entries per configured pair,
// expanding meta-colors into their member colors.
func expandConfigured(pairs []rules.ColorAmount, amount int, commander []mana.ManaType) []mana.ManaType {
	var produced []mana.ManaType
	push := func(mt mana.ManaType, n int) {
		for i := 0; i < n; i++ {
			produced = append(produced, mt)
		}
	}
	for _, pair := range pairs {
		count := pair.Amount
		if count <= 0 {
			count = 1
		}
		count *= amount
		switch pair.Color {
		case mana.ManaAny:
			for _, base := range mana.BaseColors {
				push(base, count)
			}
		case mana.ManaCommander:
			if len(commander) == 0 {
				push(mana.ManaColorless, count)
			} else {
				for _, color := range commander {
					push(color, count)
				}
			}
		default:
			push(pair.Color, count)
		}
	}
	return produced
}

// availableLandColors collects the distinct colors producible by the
// player's lands, from basic subtype text and authoritative lists, in
// first-appearance order.
func availableLandColors(perms []*board.Permanent) []mana.ManaType {
	var colors []mana.ManaType
	add := func(mt mana.ManaType) {
		if !containsMana(colors, mt) {
			colors = append(colors, mt)
		}
	}
	for _, perm := range perms {
		if !perm.Card.IsLand() {
			continue
		}
		for _, mt := range mana.EstimateProducedMana("", perm.Card.TypeLine, "") {
			add(mt)
		}
		for _, mt := range perm.Card.Produced {
			if mt == mana.ManaAny {
				for _, base := range mana.BaseColors {
					add(base)
				}
			} else if !mt.IsMeta() {
				add(mt)
			}
		}
	}
	return colors
}

func grantMatches(rule *rules.ProductionRule, perm *board.Permanent) bool {
	if rule.RequiresCounters && perm.CounterTotal() == 0 {
		return false
	}
	return multiplierMatches(rule.AppliesTo, perm)
}

func multiplierMatches(categories []rules.Category, perm *board.Permanent) bool {
	for _, cat := range categories {
		switch cat {
		case rules.CategoryCreatures:
			if perm.Card.IsCreature() {
				return true
			}
		case rules.CategoryLands:
			if perm.Card.IsLand() {
				return true
			}
		case rules.CategoryBasics:
			if perm.Card.IsBasic() {
				return true
			}
		}
	}
	return false
}

func filterToCommander(produced, commander []mana.ManaType) []mana.ManaType {
	var out []mana.ManaType
	for _, mt := range produced {
		if containsMana(commander, mt) {
			out = append(out, mt)
		}
	}
	return out
}

func containsMana(list []mana.ManaType, mt mana.ManaType) bool {
	for _, have := range list {
		if have == mt {
			return true
		}
	}
	return false
}
