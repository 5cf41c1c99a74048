package autotap

import (
	"github.com/opentabletop/tabletop-server-go/internal/game/mana"
	"github.com/opentabletop/tabletop-server-go/internal/game/rules"
)

// Evaluation is the aggregated result of one board scan: the two pools,
// the per-unit source lists feeding UI display and the solver, and the
// mana-unit totals.
type Evaluation struct {
	// Available holds mana producible with no decision cost.
	Available mana.Pool `json:"available"`
	// Potential holds mana gated behind an extra activation cost or a
	// deliberate creature/artifact tap.
	Potential mana.Pool `json:"potential"`

	// Sources has one entry per untapped unit of each available source.
	Sources []Source `json:"sources"`
	// PotentialSources has one entry per untapped unit of each potential
	// source.
	PotentialSources []Source `json:"potentialSources"`

	// Totals are mana-unit counts (sums of per-entry weights), not object
	// counts.
	TotalAvailable int `json:"totalAvailable"`
	TotalPotential int `json:"totalPotential"`
}

// aggregate folds normalized sources into the two pools. Policy asymmetry,
// kept deliberately: flexible production of tap-ability lands collapses into
// the single ANY bucket of the available pool, while flexible potential (and
// passive) production fans one unit into each option color, since the player
// still has a choice to make there.
func aggregate(evals []evaluated, commander []mana.ManaType) *Evaluation {
	result := &Evaluation{
		Available: mana.NewPool(),
		Potential: mana.NewPool(),
	}

	for _, ev := range evals {
		src := ev.source
		switch {
		case src.Trigger == rules.TriggerPassive:
			// Passive production counts once, not per untapped unit.
			if src.Flexible {
				spreadOptions(result.Available, src.Produces, commander)
			} else {
				for _, mt := range src.Produces {
					result.Available.Add(mt, 1)
				}
			}
			result.Sources = append(result.Sources, src)

		case src.Trigger == rules.TriggerTap && src.Land:
			for i := 0; i < ev.untapped; i++ {
				if src.Flexible {
					result.Available.Add(mana.ManaAny, 1)
				} else {
					for _, mt := range src.Produces {
						result.Available.Add(mt, 1)
					}
				}
				result.Sources = append(result.Sources, src)
			}

		default:
			for i := 0; i < ev.untapped; i++ {
				if src.Flexible {
					spreadOptions(result.Potential, src.Produces, commander)
				} else {
					for _, mt := range src.Produces {
						result.Potential.Add(mt, 1)
					}
				}
				result.PotentialSources = append(result.PotentialSources, src)
			}
		}
	}

	result.TotalAvailable = sumWeights(result.Sources)
	result.TotalPotential = sumWeights(result.PotentialSources)
	return result
}

// spreadOptions adds one unit per distinct option color, resolving
// meta-colors: ANY fans into the five base colors, COMMANDER into the live
// commander colors (colorless when no commander is known).
func spreadOptions(pool mana.Pool, produced []mana.ManaType, commander []mana.ManaType) {
	for _, mt := range mana.DistinctColors(produced) {
		switch mt {
		case mana.ManaAny:
			for _, base := range mana.BaseColors {
				pool.Add(base, 1)
			}
		case mana.ManaCommander:
			if len(commander) == 0 {
				pool.Add(mana.ManaColorless, 1)
			} else {
				for _, color := range commander {
					pool.Add(color, 1)
				}
			}
		default:
			pool.Add(mt, 1)
		}
	}
}

func sumWeights(sources []Source) int {
	total := 0
	for _, src := range sources {
		weight := src.ManaCount
		if weight <= 0 {
			weight = 1
		}
		total += weight
	}
	return total
}
