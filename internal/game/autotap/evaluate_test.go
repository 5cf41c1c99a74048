package autotap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/opentabletop/tabletop-server-go/internal/game/board"
	"github.com/opentabletop/tabletop-server-go/internal/game/counters"
	"github.com/opentabletop/tabletop-server-go/internal/game/mana"
	"github.com/opentabletop/tabletop-server-go/internal/game/rules"
)

const testPlayer = "player-1"

func forest(id string) *board.Permanent {
	return &board.Permanent{
		ID:           id,
		ControllerID: testPlayer,
		Type:         board.ObjectCard,
		Quantity:     1,
		Card: board.Card{
			Name:     "Forest",
			TypeLine: "Basic Land — Forest",
		},
	}
}

func anyColorLand(id string) *board.Permanent {
	return &board.Permanent{
		ID:           id,
		ControllerID: testPlayer,
		Type:         board.ObjectCard,
		Quantity:     1,
		Card: board.Card{
			Name:       "City of Brass",
			TypeLine:   "Land",
			OracleText: "{T}: Add one mana of any color.",
			Produced: []mana.ManaType{
				mana.ManaWhite, mana.ManaBlue, mana.ManaBlack, mana.ManaRed, mana.ManaGreen,
			},
		},
	}
}

func TestEvaluate_BasicLands(t *testing.T) {
	engine := NewEngine(zaptest.NewLogger(t))
	perms := []*board.Permanent{forest("f1"), forest("f2"), forest("f3"), forest("f4")}

	eval := engine.Evaluate(perms, nil, nil, testPlayer)

	assert.Equal(t, 4, eval.Available.Get(mana.ManaGreen))
	assert.Equal(t, 4, eval.TotalAvailable)
	require.Len(t, eval.Sources, 4)
	for _, src := range eval.Sources {
		assert.Equal(t, 0, src.Priority)
		assert.True(t, src.Basic)
		assert.False(t, src.Flexible)
		assert.Equal(t, rules.TriggerTap, src.Trigger)
	}
	assert.Empty(t, eval.PotentialSources)
}

func TestEvaluate_Idempotent(t *testing.T) {
	engine := NewEngine(zaptest.NewLogger(t))
	perms := []*board.Permanent{forest("f1"), anyColorLand("c1")}

	first := engine.Evaluate(perms, nil, nil, testPlayer)
	second := engine.Evaluate(perms, nil, nil, testPlayer)

	assert.Equal(t, first, second)
}

func TestEvaluate_FlexibleLandCollapsesToAny(t *testing.T) {
	engine := NewEngine(zaptest.NewLogger(t))
	perms := []*board.Permanent{anyColorLand("c1")}

	eval := engine.Evaluate(perms, nil, nil, testPlayer)

	// One unit in the ANY bucket per untapped instance, not five fanned.
	assert.Equal(t, 1, eval.Available.Get(mana.ManaAny))
	assert.Equal(t, 0, eval.Available.Get(mana.ManaWhite))
	assert.Equal(t, 1, eval.TotalAvailable)
	require.Len(t, eval.Sources, 1)
	assert.True(t, eval.Sources[0].Flexible)
	assert.Equal(t, 3, eval.Sources[0].Priority)
	assert.Equal(t, 1, eval.Sources[0].ManaCount)
}

func TestEvaluate_TappedPermanentsExcluded(t *testing.T) {
	engine := NewEngine(zaptest.NewLogger(t))
	tapped := forest("f1")
	tapped.Tapped = 1

	eval := engine.Evaluate([]*board.Permanent{tapped, forest("f2")}, nil, nil, testPlayer)

	assert.Equal(t, 1, eval.Available.Get(mana.ManaGreen))
	assert.Len(t, eval.Sources, 1)
	assert.Equal(t, "f2", eval.Sources[0].ID)
}

func TestEvaluate_StackedQuantity(t *testing.T) {
	engine := NewEngine(zaptest.NewLogger(t))
	stack := forest("f1")
	stack.Quantity = 3
	stack.Tapped = 1

	eval := engine.Evaluate([]*board.Permanent{stack}, nil, nil, testPlayer)

	assert.Equal(t, 2, eval.Available.Get(mana.ManaGreen))
	assert.Len(t, eval.Sources, 2)
}

func TestEvaluate_NonSourceSkipped(t *testing.T) {
	engine := NewEngine(zaptest.NewLogger(t))
	bears := &board.Permanent{
		ID:           "bears",
		ControllerID: testPlayer,
		Quantity:     1,
		Card:         board.Card{Name: "Grizzly Bears", TypeLine: "Creature — Bear"},
	}

	eval := engine.Evaluate([]*board.Permanent{bears}, nil, nil, testPlayer)

	assert.Empty(t, eval.Sources)
	assert.Empty(t, eval.PotentialSources)
	assert.Equal(t, 0, eval.TotalAvailable+eval.TotalPotential)
}

func TestEvaluate_OtherPlayersIgnored(t *testing.T) {
	engine := NewEngine(zaptest.NewLogger(t))
	theirs := forest("f1")
	theirs.ControllerID = "player-2"

	eval := engine.Evaluate([]*board.Permanent{theirs, forest("f2")}, nil, nil, testPlayer)

	assert.Len(t, eval.Sources, 1)
	assert.Equal(t, "f2", eval.Sources[0].ID)
}

func TestEvaluate_CommanderFilteredLand(t *testing.T) {
	engine := NewEngine(zaptest.NewLogger(t))
	tower := &board.Permanent{
		ID:           "tower",
		ControllerID: testPlayer,
		Quantity:     1,
		Card: board.Card{
			Name:     "Command Tower",
			TypeLine: "Land",
			Produced: []mana.ManaType{
				mana.ManaWhite, mana.ManaBlue, mana.ManaBlack, mana.ManaRed, mana.ManaGreen,
			},
			OracleText: "{T}: Add one mana of any color in your commander's color identity.",
		},
	}

	eval := engine.Evaluate([]*board.Permanent{tower}, nil,
		[]mana.ManaType{mana.ManaBlack, mana.ManaGreen}, testPlayer)

	require.Len(t, eval.Sources, 1)
	assert.ElementsMatch(t,
		[]mana.ManaType{mana.ManaBlack, mana.ManaGreen},
		eval.Sources[0].Produces)
	assert.True(t, eval.Sources[0].Flexible)

	// With no commander the tower produces nothing.
	empty := engine.Evaluate([]*board.Permanent{tower}, nil, nil, testPlayer)
	assert.Empty(t, empty.Sources)
}

func TestEvaluate_CustomRules(t *testing.T) {
	engine := NewEngine(zaptest.NewLogger(t))

	rock := func(id string) *board.Permanent {
		return &board.Permanent{
			ID:           id,
			ControllerID: testPlayer,
			Quantity:     1,
			Card:         board.Card{Name: "Worn Rock", OracleID: "rock-1", TypeLine: "Artifact"},
		}
	}

	t.Run("standard rule with fixed two colorless goes to potential", func(t *testing.T) {
		reg := rules.Registry{"rock-1": {
			Mode:     rules.ModeStandard,
			Produces: []rules.ColorAmount{{Color: mana.ManaColorless, Amount: 2}},
			Trigger:  rules.TriggerTap,
		}}

		eval := engine.Evaluate([]*board.Permanent{rock("r1")}, reg, nil, testPlayer)

		assert.Equal(t, 0, eval.TotalAvailable)
		assert.Equal(t, 2, eval.TotalPotential)
		assert.Equal(t, 2, eval.Potential.Get(mana.ManaColorless))
		require.Len(t, eval.PotentialSources, 1)
		assert.Equal(t, 2, eval.PotentialSources[0].ManaCount)
		assert.Equal(t, rules.AutoTapDisabled, eval.PotentialSources[0].Priority)
	})

	t.Run("disabled rule skips the permanent", func(t *testing.T) {
		reg := rules.Registry{"rock-1": {
			Disabled: true,
			Mode:     rules.ModeStandard,
			Produces: []rules.ColorAmount{{Color: mana.ManaColorless, Amount: 2}},
		}}

		eval := engine.Evaluate([]*board.Permanent{rock("r1")}, reg, nil, testPlayer)
		assert.Empty(t, eval.PotentialSources)
	})

	t.Run("chooseColor fans across the five base colors", func(t *testing.T) {
		reg := rules.Registry{"rock-1": {Mode: rules.ModeChooseColor, Trigger: rules.TriggerActivated}}

		eval := engine.Evaluate([]*board.Permanent{rock("r1")}, reg, nil, testPlayer)

		for _, base := range mana.BaseColors {
			assert.Equal(t, 1, eval.Potential.Get(base), "expected 1 %s", base)
		}
		require.Len(t, eval.PotentialSources, 1)
		assert.True(t, eval.PotentialSources[0].Flexible)
	})

	t.Run("commander mode follows identity and falls back to colorless", func(t *testing.T) {
		reg := rules.Registry{"rock-1": {Mode: rules.ModeCommander, Trigger: rules.TriggerTap}}

		eval := engine.Evaluate([]*board.Permanent{rock("r1")}, reg,
			[]mana.ManaType{mana.ManaBlue, mana.ManaRed}, testPlayer)
		require.Len(t, eval.PotentialSources, 1)
		assert.ElementsMatch(t,
			[]mana.ManaType{mana.ManaBlue, mana.ManaRed},
			eval.PotentialSources[0].Produces)

		fallback := engine.Evaluate([]*board.Permanent{rock("r1")}, reg, nil, testPlayer)
		require.Len(t, fallback.PotentialSources, 1)
		assert.Equal(t, []mana.ManaType{mana.ManaColorless}, fallback.PotentialSources[0].Produces)
	})

	t.Run("available mode matches the player's lands", func(t *testing.T) {
		reg := rules.Registry{"rock-1": {Mode: rules.ModeAvailable, Trigger: rules.TriggerTap}}
		perms := []*board.Permanent{rock("r1"), forest("f1")}

		eval := engine.Evaluate(perms, reg, nil, testPlayer)

		require.Len(t, eval.PotentialSources, 1)
		assert.Equal(t, []mana.ManaType{mana.ManaGreen}, eval.PotentialSources[0].Produces)
	})

	t.Run("counter scaling", func(t *testing.T) {
		perm := rock("r1")
		perm.Counters = counters.Counters{"charge": 3}
		reg := rules.Registry{"rock-1": {
			Mode:     rules.ModeStandard,
			Calc:     rules.CalcCounters,
			Produces: []rules.ColorAmount{{Color: mana.ManaGreen, Amount: 1}},
			Trigger:  rules.TriggerTap,
		}}

		eval := engine.Evaluate([]*board.Permanent{perm}, reg, nil, testPlayer)

		require.Len(t, eval.PotentialSources, 1)
		assert.Len(t, eval.PotentialSources[0].Produces, 3)
		assert.Equal(t, 3, eval.PotentialSources[0].ManaCount)
	})

	t.Run("counter scaling with zero counters yields no source", func(t *testing.T) {
		reg := rules.Registry{"rock-1": {
			Mode:     rules.ModeStandard,
			Calc:     rules.CalcCounters,
			Produces: []rules.ColorAmount{{Color: mana.ManaGreen, Amount: 1}},
		}}

		eval := engine.Evaluate([]*board.Permanent{rock("r1")}, reg, nil, testPlayer)
		assert.Empty(t, eval.PotentialSources)
	})

	t.Run("creature scaling with multiplier", func(t *testing.T) {
		bears := &board.Permanent{
			ID: "bears", ControllerID: testPlayer, Quantity: 2,
			Card: board.Card{Name: "Grizzly Bears", TypeLine: "Creature — Bear"},
		}
		reg := rules.Registry{"rock-1": {
			Mode:       rules.ModeStandard,
			Calc:       rules.CalcCreatures,
			Multiplier: 2,
			Produces:   []rules.ColorAmount{{Color: mana.ManaRed, Amount: 1}},
			Trigger:    rules.TriggerActivated,
		}}

		eval := engine.Evaluate([]*board.Permanent{rock("r1"), bears}, reg, nil, testPlayer)

		require.Len(t, eval.PotentialSources, 1)
		// 2 creatures in the stack times multiplier 2.
		assert.Len(t, eval.PotentialSources[0].Produces, 4)
	})

	t.Run("alt list adds distinct unscaled options", func(t *testing.T) {
		reg := rules.Registry{"rock-1": {
			Mode:     rules.ModeStandard,
			Produces: []rules.ColorAmount{{Color: mana.ManaGreen, Amount: 2}},
			Alt:      []mana.ManaType{mana.ManaWhite, mana.ManaGreen},
			Trigger:  rules.TriggerTap,
		}}

		eval := engine.Evaluate([]*board.Permanent{rock("r1")}, reg, nil, testPlayer)

		require.Len(t, eval.PotentialSources, 1)
		src := eval.PotentialSources[0]
		assert.Equal(t, []mana.ManaType{mana.ManaGreen, mana.ManaGreen, mana.ManaWhite}, src.Produces)
		assert.True(t, src.Flexible)
		assert.Equal(t, 1, src.ManaCount)
	})
}

func TestEvaluate_GlobalGrants(t *testing.T) {
	engine := NewEngine(zaptest.NewLogger(t))

	anthem := &board.Permanent{
		ID: "anthem", ControllerID: testPlayer, Quantity: 1,
		Card: board.Card{Name: "Mana Anthem", OracleID: "anthem-1", TypeLine: "Enchantment"},
	}
	bears := &board.Permanent{
		ID: "bears", ControllerID: testPlayer, Quantity: 1,
		Card: board.Card{Name: "Grizzly Bears", TypeLine: "Creature — Bear"},
	}

	findSource := func(sources []Source, id string) *Source {
		for i := range sources {
			if sources[i].ID == id {
				return &sources[i]
			}
		}
		return nil
	}

	t.Run("grant gives production and promotes trigger", func(t *testing.T) {
		reg := rules.Registry{"anthem-1": {
			Mode:      rules.ModeStandard,
			Produces:  []rules.ColorAmount{{Color: mana.ManaWhite, Amount: 1}},
			AppliesTo: []rules.Category{rules.CategoryCreatures},
			Trigger:   rules.TriggerTap,
		}}

		eval := engine.Evaluate([]*board.Permanent{anthem, bears}, reg, nil, testPlayer)

		// The anthem produces on its own and additionally grants to the
		// creature.
		require.Len(t, eval.PotentialSources, 2)
		granted := findSource(eval.PotentialSources, "bears")
		require.NotNil(t, granted)
		assert.Equal(t, []mana.ManaType{mana.ManaWhite}, granted.Produces)
		assert.Equal(t, rules.TriggerTap, granted.Trigger)
	})

	t.Run("counter-gated grant skips bare objects", func(t *testing.T) {
		reg := rules.Registry{"anthem-1": {
			Mode:             rules.ModeStandard,
			Produces:         []rules.ColorAmount{{Color: mana.ManaWhite, Amount: 1}},
			AppliesTo:        []rules.Category{rules.CategoryCreatures},
			RequiresCounters: true,
			Trigger:          rules.TriggerTap,
		}}

		eval := engine.Evaluate([]*board.Permanent{anthem, bears}, reg, nil, testPlayer)
		assert.Nil(t, findSource(eval.PotentialSources, "bears"))

		counted := &board.Permanent{
			ID: "bears2", ControllerID: testPlayer, Quantity: 1,
			Card:     board.Card{Name: "Grizzly Bears", TypeLine: "Creature — Bear"},
			Counters: counters.Counters{"+1/+1": 1},
		}
		eval = engine.Evaluate([]*board.Permanent{anthem, counted}, reg, nil, testPlayer)
		assert.NotNil(t, findSource(eval.PotentialSources, "bears2"))
	})
}

func TestEvaluate_GlobalMultiplier(t *testing.T) {
	engine := NewEngine(zaptest.NewLogger(t))

	doubler := &board.Permanent{
		ID: "doubler", ControllerID: testPlayer, Quantity: 1,
		Card: board.Card{Name: "Mana Doubler", OracleID: "doubler-1", TypeLine: "Enchantment"},
	}
	reg := rules.Registry{"doubler-1": {
		Mode:             rules.ModeStandard,
		AppliesTo:        []rules.Category{rules.CategoryBasics, rules.CategoryLands},
		GlobalMultiplier: 2,
	}}

	t.Run("fixed production doubles, weight included", func(t *testing.T) {
		eval := engine.Evaluate([]*board.Permanent{doubler, forest("f1")}, reg, nil, testPlayer)

		require.Len(t, eval.Sources, 1)
		assert.Equal(t, []mana.ManaType{mana.ManaGreen, mana.ManaGreen}, eval.Sources[0].Produces)
		assert.Equal(t, 2, eval.Sources[0].ManaCount)
		assert.Equal(t, 2, eval.TotalAvailable)
	})

	t.Run("flexible producers are exempt", func(t *testing.T) {
		eval := engine.Evaluate([]*board.Permanent{doubler, anyColorLand("c1")}, reg, nil, testPlayer)

		require.Len(t, eval.Sources, 1)
		assert.Equal(t, 1, eval.Sources[0].ManaCount)
		assert.Equal(t, 1, eval.Available.Get(mana.ManaAny))
	})
}

func TestEvaluate_PassiveSources(t *testing.T) {
	engine := NewEngine(zaptest.NewLogger(t))

	shrine := &board.Permanent{
		ID: "shrine", ControllerID: testPlayer, Quantity: 1, Tapped: 1,
		Card: board.Card{
			Name:       "Dawn Shrine",
			TypeLine:   "Enchantment",
			OracleText: "At the beginning of your precombat main phase, add {W}{W}.",
		},
	}

	eval := engine.Evaluate([]*board.Permanent{shrine}, nil, nil, testPlayer)

	// Passive production counts once, even while tapped.
	require.Len(t, eval.Sources, 1)
	assert.Equal(t, rules.TriggerPassive, eval.Sources[0].Trigger)
	assert.Equal(t, 2, eval.Available.Get(mana.ManaWhite))
}

func TestClassifyAbility(t *testing.T) {
	cases := []struct {
		name string
		card board.Card
		want rules.Trigger
	}{
		{"basic land", board.Card{TypeLine: "Basic Land — Forest"}, rules.TriggerTap},
		{"plain tap", board.Card{TypeLine: "Land", OracleText: "{T}: Add {C}."}, rules.TriggerTap},
		{"paid activation", board.Card{TypeLine: "Artifact", OracleText: "{1}, {T}: Add one mana of any color."}, rules.TriggerActivated},
		{"complex cost", board.Card{TypeLine: "Land", OracleText: "{T}, Sacrifice this land: Add {C}{C}."}, rules.TriggerComplex},
		{"multiple modes", board.Card{TypeLine: "Land", OracleText: "{T}: Add {W}.\n{T}: Add {U}."}, rules.TriggerMulti},
		{"triggered", board.Card{TypeLine: "Enchantment", OracleText: "At the beginning of your upkeep, add {B}."}, rules.TriggerPassive},
		{"no ability", board.Card{TypeLine: "Creature — Bear"}, rules.TriggerPassive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyAbility(tc.card))
		})
	}
}

func TestParseActivationCost(t *testing.T) {
	assert.Equal(t, "{1}", parseActivationCost("{1}, {T}: Add one mana of any color."))
	assert.Equal(t, "", parseActivationCost("{T}: Add {G}."))
	assert.Equal(t, "{2}{G}", parseActivationCost("{2}{G}, {T}: Add {G}{G}{G}."))
}
