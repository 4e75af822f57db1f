package search

import (
	"context"
	"math/rand"
	"testing"

	ie "github.com/sahib/dca/errors"
	"github.com/sahib/dca/sbox"
	"github.com/sahib/dca/spn"
	"github.com/stretchr/testify/require"
)

func newSearcher(t *testing.T, policy Policy) (*Searcher, *spn.Shape) {
	shape, err := spn.HeysShape(4)
	require.Nil(t, err)

	params := DefaultParams()
	params.Policy = policy

	searcher, err := NewSearcher(shape, sbox.Characterize(shape), params)
	require.Nil(t, err)
	return searcher, shape
}

func evenMask() spn.Mask { return spn.Mask{true, false, true, false} }

func checkCharacteristic(t *testing.T, shape *spn.Shape, table *sbox.Table, ch *Characteristic, bound float64) {
	require.True(t, ch.Probability >= bound)

	prob := 1.0
	for k := 0; k < ch.Layers(); k++ {
		layer := ch.Layers() - 1 - k

		// Every layer must be consistent with the table and the permutation:
		require.Equal(t, shape.ReversePermutation(ch.Inputs[layer+1]), ch.Outputs[layer])
		for idx := 0; idx < shape.SBoxes(); idx++ {
			in := shape.SubBlock(ch.Inputs[layer], idx)
			out := shape.SubBlock(ch.Outputs[layer], idx)
			require.True(t, table.Reachable(in, out))
			if out != 0 {
				prob *= table.Probability(in, out)
			}
		}

		require.InDelta(t, prob, ch.Trail[k], 1e-12)
		if k > 0 {
			require.True(t, ch.Trail[k] <= ch.Trail[k-1], "trail increases at %d: %v", k, ch.Trail)
		}
	}

	require.InDelta(t, prob, ch.Probability, 1e-12)
}

func TestAllIsConsistent(t *testing.T) {
	searcher, shape := newSearcher(t, Exhaustive)
	table := sbox.Characterize(shape)

	chars := searcher.All(3, 0x0808)
	require.NotEmpty(t, chars)

	for _, ch := range chars {
		require.Equal(t, spn.Block(0x0808), ch.Target())
		checkCharacteristic(t, shape, table, ch, searcher.Params().DifferentialBound)
	}
}

func TestBestIsMaximal(t *testing.T) {
	searcher, shape := newSearcher(t, BestFirst)
	table := sbox.Characterize(shape)

	best := searcher.Best(3, 0x0808)
	require.NotNil(t, best)
	checkCharacteristic(t, shape, table, best, searcher.Params().BestBound)
	require.InDelta(t, 0.03515625, best.Probability, 1e-12)
	require.Equal(t, spn.Block(0xB0B0), best.Input())

	for _, ch := range searcher.All(3, 0x0808) {
		require.True(t, ch.Probability <= best.Probability)
	}
}

func TestGreedy(t *testing.T) {
	searcher, shape := newSearcher(t, Greedy)
	table := sbox.Characterize(shape)

	ch := searcher.Greedy(1, 0x0101)
	require.NotNil(t, ch)
	checkCharacteristic(t, shape, table, ch, searcher.Params().BestBound)

	// 0x0101 comes from 0x0005 in front of the permutation, and the
	// best predecessor of 5 is 2 with a count of 6.
	require.Equal(t, spn.Block(0x0005), ch.Outputs[0])
	require.Equal(t, spn.Block(0x0002), ch.Input())
	require.InDelta(t, 0.375, ch.Probability, 1e-12)

	deep := searcher.Greedy(3, 0x0808)
	require.NotNil(t, deep)
	checkCharacteristic(t, shape, table, deep, searcher.Params().BestBound)
	require.True(t, deep.Probability <= searcher.Best(3, 0x0808).Probability)
}

func TestSpecified(t *testing.T) {
	searcher, _ := newSearcher(t, BestFirst)

	chars, sum := searcher.Specified(3, 0xB0B0, 0x0808)
	require.NotEmpty(t, chars)
	require.InDelta(t, 0.035431, sum, 1e-6)

	total := 0.0
	for _, ch := range chars {
		require.Equal(t, spn.Block(0xB0B0), ch.Input())
		total += ch.Probability
	}
	require.InDelta(t, sum, total, 1e-12)

	_, none := searcher.Specified(3, 0x0001, 0x0808)
	require.Equal(t, 0.0, none)
}

func TestPlanPolicies(t *testing.T) {
	tcs := []struct {
		policy Policy
		round  int
		min    float64
		max    float64
	}{
		{BestFirst, 4, 0.035431, 0.035432},
		{Exhaustive, 4, 0.035431, 0.035432},
		{Greedy, 4, 0.035156, 0.035432},
		{BestFirst, 3, 0.1875, 0.1875},
		{Exhaustive, 3, 0.1875, 0.1875},
		{Greedy, 3, 0.1875, 0.1875},
		{BestFirst, 2, 0.375, 0.375},
	}

	for _, tc := range tcs {
		t.Run(tc.policy.String(), func(t *testing.T) {
			searcher, _ := newSearcher(t, tc.policy)
			plan, err := searcher.Plan(context.Background(), tc.round, evenMask())
			require.Nil(t, err)

			require.Equal(t, tc.round, plan.Round)
			require.True(t, evenMask().Covers(plan.ExpectedDifference))
			require.True(t, plan.Probability >= tc.min-1e-6, "%f", plan.Probability)
			require.True(t, plan.Probability <= tc.max+1e-6, "%f", plan.Probability)

			sum := 0.0
			for _, ch := range plan.Characteristics {
				require.Equal(t, plan.InputDifference, ch.Input())
				require.Equal(t, plan.ExpectedDifference, ch.Target())
				require.Equal(t, tc.round-1, ch.Layers())
				sum += ch.Probability
			}
			require.InDelta(t, plan.Probability, sum, 1e-9)
		})
	}
}

func TestPlanKnownDifferential(t *testing.T) {
	searcher, _ := newSearcher(t, BestFirst)
	plan, err := searcher.Plan(context.Background(), 4, evenMask())
	require.Nil(t, err)
	require.Equal(t, spn.Block(0xB0B0), plan.InputDifference)
	require.Equal(t, spn.Block(0x0808), plan.ExpectedDifference)

	plan, err = searcher.Plan(context.Background(), 3, evenMask())
	require.Nil(t, err)
	require.Equal(t, spn.Block(0x00B0), plan.InputDifference)
	require.Equal(t, spn.Block(0x0202), plan.ExpectedDifference)
}

// The differential must also show up when actually encrypting pairs.
func TestPlanMatchesCipher(t *testing.T) {
	searcher, shape := newSearcher(t, BestFirst)
	plan, err := searcher.Plan(context.Background(), 3, evenMask())
	require.Nil(t, err)

	rng := rand.New(rand.NewSource(42))
	keys := spn.RandomSubkeys(shape, rng)

	hits, total := 0, 20000
	for idx := 0; idx < total; idx++ {
		left := spn.Block(rng.Intn(0x10000))
		right := left ^ plan.InputDifference

		// Run both through the first two rounds only:
		for round := 0; round < 2; round++ {
			left = shape.ApplyPermutation(shape.ApplySubstitution(left ^ keys[round]))
			right = shape.ApplyPermutation(shape.ApplySubstitution(right ^ keys[round]))
		}

		if left^right == plan.ExpectedDifference {
			hits++
		}
	}

	require.InDelta(t, plan.Probability, float64(hits)/float64(total), 0.03)
}

func TestPlanErrors(t *testing.T) {
	searcher, _ := newSearcher(t, BestFirst)
	ctx := context.Background()

	_, err := searcher.Plan(ctx, 1, evenMask())
	require.True(t, ie.IsConfigurationError(err))

	_, err = searcher.Plan(ctx, 5, evenMask())
	require.True(t, ie.IsConfigurationError(err))

	_, err = searcher.Plan(ctx, 3, spn.Mask{false, false, false, false})
	require.True(t, ie.IsConfigurationError(err))

	_, err = searcher.Plan(ctx, 3, spn.Mask{true, false})
	require.True(t, ie.IsConfigurationError(err))
}

func TestPlanExhaustion(t *testing.T) {
	shape, err := spn.HeysShape(4)
	require.Nil(t, err)

	params := DefaultParams()
	params.BestBound = 0.5
	searcher, err := NewSearcher(shape, sbox.Characterize(shape), params)
	require.Nil(t, err)

	_, err = searcher.Plan(context.Background(), 4, evenMask())
	require.True(t, ie.IsSearchExhaustionError(err))
	require.Equal(t, "search-exhaustion", ie.Kind(err))
}

func TestPlanCanceled(t *testing.T) {
	searcher, _ := newSearcher(t, BestFirst)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := searcher.Plan(ctx, 4, evenMask())
	require.Equal(t, context.Canceled, err)
}

func TestTargets(t *testing.T) {
	targets := Targets(evenMask())
	require.Len(t, targets, 15*15)
	for _, target := range targets {
		require.True(t, evenMask().Covers(target))
		require.Equal(t, spn.Block(0), target&0xF0F0)
	}
}

func TestParsePolicy(t *testing.T) {
	for _, policy := range []Policy{Exhaustive, BestFirst, Greedy} {
		parsed, err := ParsePolicy(policy.String())
		require.Nil(t, err)
		require.Equal(t, policy, parsed)
	}

	_, err := ParsePolicy("random")
	require.True(t, ie.IsConfigurationError(err))

	params := DefaultParams()
	params.DifferentialBound = 0
	require.True(t, ie.IsConfigurationError(params.Validate()))
}

func TestPickWinnerTies(t *testing.T) {
	cands := []*candidate{
		{index: 7, sum: 0.25},
		{index: 2, sum: 0.5},
		{index: 9, sum: 0.5},
		{index: 4, sum: 0.5},
		{index: 1, sum: 0.125},
	}

	require.Equal(t, 2, pickWinner(cands).index)
	require.Equal(t, 7, pickWinner(cands[:1]).index)
}

func TestPlanPrefersLowerTarget(t *testing.T) {
	searcher, _ := newSearcher(t, BestFirst)
	ctx := context.Background()

	targets := Targets(evenMask())
	found := make([][]*Characteristic, len(targets))
	for idx, target := range targets {
		found[idx] = searcher.Find(3, target)
	}

	cands, err := searcher.sumDifferentials(ctx, 3, found, 2)
	require.Nil(t, err)
	require.NotEmpty(t, cands)

	first := cands[0]
	for pos, cand := range cands {
		if pos > 0 {
			require.True(t, cands[pos-1].index < cand.index)
		}

		if cand.sum > first.sum {
			first = cand
		}
	}

	plan, err := searcher.Plan(ctx, 4, evenMask())
	require.Nil(t, err)
	require.Equal(t, targets[first.index], plan.ExpectedDifference)
	require.Equal(t, first.sum, plan.Probability)
}

func TestPolicyNames(t *testing.T) {
	require.Equal(t, []string{"best-first", "exhaustive", "greedy"}, PolicyNames())
	for _, name := range PolicyNames() {
		_, err := ParsePolicy(name)
		require.Nil(t, err)
	}
}
