package search

import (
	"context"

	ie "github.com/sahib/dca/errors"
	"github.com/sahib/dca/spn"
	"github.com/sahib/dca/util/parallel"
	log "github.com/sirupsen/logrus"
)

// Plan is the outcome of a characteristic search for one round and mask:
// which plaintext difference to feed into the cipher and which difference
// to expect in front of the attacked round's substitution layer.
type Plan struct {
	Round  int      `yaml:"round"`
	Mask   spn.Mask `yaml:"mask"`
	Policy string   `yaml:"policy"`

	InputDifference    spn.Block `yaml:"input_difference"`
	ExpectedDifference spn.Block `yaml:"expected_difference"`

	// Probability is the summed probability of Characteristics.
	Probability     float64           `yaml:"probability"`
	Characteristics []*Characteristic `yaml:"characteristics"`
}

type candidate struct {
	index    int
	best     float64
	chars    []*Characteristic
	sum      float64
	input    spn.Block
	expected spn.Block
}

// Targets lists all differences whose active sub-blocks are exactly
// the ones in `mask`, in enumeration order.
func Targets(mask spn.Mask) []spn.Block {
	targets := []spn.Block{}
	for idx := 1; idx < mask.LoopBorder(); idx++ {
		if target := mask.GenerateValue(idx); mask.Covers(target) {
			targets = append(targets, target)
		}
	}

	return targets
}

func (s *Searcher) checkRound(round int, mask spn.Mask) error {
	if round < 2 || round > s.shape.Rounds() {
		return ie.Configurationf(
			"round %d can not be attacked by a characteristic; valid rounds are 2..%d",
			round, s.shape.Rounds(),
		)
	}

	if len(mask) != s.shape.SBoxes() {
		return ie.Configurationf("mask %s has %d entries, want %d", mask, len(mask), s.shape.SBoxes())
	}

	if mask.Active() == 0 {
		return ie.Configurationf("mask for round %d has no active s-box", round)
	}

	return nil
}

// Plan searches characteristics for every target difference of `mask` in
// front of `round` and picks the differential with the highest summed
// probability. Targets are searched in parallel.
func (s *Searcher) Plan(ctx context.Context, round int, mask spn.Mask) (*Plan, error) {
	if err := s.checkRound(round, mask); err != nil {
		return nil, err
	}

	layers := round - 1
	targets := Targets(mask)
	workers := parallel.Workers(s.params.Workers)

	log.WithFields(log.Fields{
		"round":   round,
		"mask":    mask.String(),
		"policy":  s.params.Policy.String(),
		"targets": len(targets),
	}).Debugf("searching characteristics")

	found := make([][]*Characteristic, len(targets))
	err := parallel.ForEach(ctx, len(targets), workers, func(_, idx int) error {
		found[idx] = s.Find(layers, targets[idx])
		return nil
	})

	if err != nil {
		return nil, err
	}

	var cands []*candidate
	if s.params.Policy == Exhaustive {
		cands = groupByInput(found)
	} else {
		cands, err = s.sumDifferentials(ctx, layers, found, workers)
		if err != nil {
			return nil, err
		}
	}

	if len(cands) == 0 {
		return nil, &ie.SearchExhaustionError{
			Round: round,
			Mask:  mask.String(),
			Bound: s.boundOf(),
		}
	}

	winner := pickWinner(cands)

	plan := &Plan{
		Round:              round,
		Mask:               append(spn.Mask(nil), mask...),
		Policy:             s.params.Policy.String(),
		InputDifference:    winner.input,
		ExpectedDifference: winner.expected,
		Probability:        winner.sum,
		Characteristics:    winner.chars,
	}

	log.WithFields(log.Fields{
		"round":       round,
		"mask":        mask.String(),
		"input":       plan.InputDifference,
		"expected":    plan.ExpectedDifference,
		"probability": plan.Probability,
		"paths":       len(plan.Characteristics),
	}).Infof("found differential")

	return plan, nil
}

// pickWinner returns the candidate with the highest summed probability.
// Ties go to the lower target index.
func pickWinner(cands []*candidate) *candidate {
	winner := cands[0]
	for _, cand := range cands[1:] {
		if cand.sum > winner.sum || (cand.sum == winner.sum && cand.index < winner.index) {
			winner = cand
		}
	}

	return winner
}

func (s *Searcher) boundOf() float64 {
	if s.params.Policy == Exhaustive {
		return s.params.DifferentialBound
	}

	return s.params.BestBound
}

// groupByInput sums the characteristics of every target by their plaintext
// difference and keeps the best group per target.
func groupByInput(found [][]*Characteristic) []*candidate {
	cands := []*candidate{}
	for idx, chars := range found {
		var best *candidate
		groups := map[spn.Block]*candidate{}

		for _, ch := range chars {
			group, ok := groups[ch.Input()]
			if !ok {
				group = &candidate{
					index:    idx,
					input:    ch.Input(),
					expected: ch.Target(),
				}
				groups[ch.Input()] = group
			}

			group.chars = append(group.chars, ch)
			group.sum += ch.Probability
			if ch.Probability > group.best {
				group.best = ch.Probability
			}

			// Keep the group that was first to reach the highest sum.
			if best == nil || group.sum > best.sum {
				best = group
			}
		}

		if best != nil {
			cands = append(cands, best)
		}
	}

	return cands
}

// sumDifferentials computes the summed probability of the differential behind
// the best characteristic of every target. Candidates stay in target order.
func (s *Searcher) sumDifferentials(ctx context.Context, layers int, found [][]*Characteristic, workers int) ([]*candidate, error) {
	cands := []*candidate{}
	for idx, chars := range found {
		if len(chars) == 0 {
			continue
		}

		cands = append(cands, &candidate{
			index:    idx,
			best:     chars[0].Probability,
			input:    chars[0].Input(),
			expected: chars[0].Target(),
			chars:    chars,
		})
	}

	err := parallel.ForEach(ctx, len(cands), workers, func(_, idx int) error {
		cand := cands[idx]
		chars, sum := s.Specified(layers, cand.input, cand.expected)
		if sum < cand.best {
			// The best path itself was pruned by a stricter differential bound.
			chars, sum = cand.chars, cand.best
		}

		cand.chars, cand.sum = chars, sum
		return nil
	})

	return cands, err
}
