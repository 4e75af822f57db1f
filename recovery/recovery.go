// Package recovery guesses the bits of a round key that sit under a set of
// active S-boxes, by counting how many filtered pairs each guess turns
// into the expected difference.
package recovery

import (
	"context"
	"sort"

	ie "github.com/sahib/dca/errors"
	"github.com/sahib/dca/pairs"
	"github.com/sahib/dca/spn"
	"github.com/sahib/dca/util/parallel"
	log "github.com/sirupsen/logrus"
)

// Score is the number of matching pairs of one candidate.
type Score struct {
	Candidate spn.Block `yaml:"candidate"`
	Index     int       `yaml:"index"`
	Count     int       `yaml:"count"`
}

// Result is the best candidate and the full ranking.
type Result struct {
	Key         spn.Block `yaml:"key"`
	Count       int       `yaml:"count"`
	Probability float64   `yaml:"probability"`

	// Ranked is sorted by count, ties in enumeration order.
	Ranked []Score `yaml:"-"`
}

// Request is the input of RecoverFragment.
type Request struct {
	Round    int
	Mask     spn.Mask
	Expected spn.Block

	// Known are the keys behind `Round`, outermost first.
	Known    spn.Subkeys
	Filtered []pairs.Pair

	// Total is the number of generated pairs before filtering.
	Total int
}

// Candidates returns the key fragments to try, in enumeration order.
// Keys in front of a permutation layer are permuted, so that the guessed
// bits line up with the outputs of the active S-boxes.
func Candidates(shape *spn.Shape, round int, mask spn.Mask) []spn.Block {
	cands := make([]spn.Block, mask.LoopBorder())
	for idx := range cands {
		cand := mask.GenerateValue(idx)
		if round != shape.Rounds() {
			cand = shape.ApplyPermutation(cand)
		}

		cands[idx] = cand
	}

	return cands
}

// RecoverFragment scores every candidate over the filtered pairs in
// parallel and returns the one with the most matches.
func RecoverFragment(ctx context.Context, shape *spn.Shape, req Request, workers int) (*Result, error) {
	if req.Round < 2 || req.Round > shape.Rounds() {
		return nil, ie.Configurationf("can not recover a key fragment for round %d", req.Round)
	}

	if want := shape.Rounds() - req.Round; req.Known.Len() != want {
		return nil, ie.Configurationf(
			"round %d needs %d known subkeys, got %d",
			req.Round, want, req.Known.Len(),
		)
	}

	if len(req.Mask) != shape.SBoxes() || req.Mask.Active() == 0 {
		return nil, ie.Configurationf("bad mask %s for key recovery", req.Mask)
	}

	if len(req.Filtered) == 0 {
		return nil, &ie.InsufficientSignalError{
			Round:    req.Round,
			Mask:     req.Mask.String(),
			Minimum:  1,
			Attempts: 1,
		}
	}

	// The known keys are the same for every candidate:
	lefts := make([]spn.Block, len(req.Filtered))
	rights := make([]spn.Block, len(req.Filtered))
	for idx, pair := range req.Filtered {
		lefts[idx] = shape.PartialDecrypt(pair.Left, req.Known)
		rights[idx] = shape.PartialDecrypt(pair.Right, req.Known)
	}

	index := shape.Index(req.Known.Len())
	cands := Candidates(shape, req.Round, req.Mask)
	scores := make([]Score, len(cands))

	// Every candidate owns its own slot, so workers never share state.
	err := parallel.Split(ctx, len(cands), workers, func(_, lo, hi int) error {
		for idx := lo; idx < hi; idx++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			cand, count := cands[idx], 0
			for pos := range lefts {
				left := shape.SBoxInput(shape.Peel(lefts[pos], index, cand), index)
				right := shape.SBoxInput(shape.Peel(rights[pos], index, cand), index)
				if left^right == req.Expected {
					count++
				}
			}

			scores[idx] = Score{Candidate: cand, Index: idx, Count: count}
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Count > scores[j].Count
	})

	best := scores[0]
	if best.Count == 0 {
		return nil, &ie.InsufficientSignalError{
			Round:    req.Round,
			Mask:     req.Mask.String(),
			Filtered: len(req.Filtered),
			Minimum:  1,
			Attempts: 1,
		}
	}

	total := req.Total
	if total <= 0 {
		total = len(req.Filtered)
	}

	result := &Result{
		Key:         best.Candidate,
		Count:       best.Count,
		Probability: float64(best.Count) / float64(total),
		Ranked:      scores,
	}

	fields := log.Fields{
		"round":       req.Round,
		"mask":        req.Mask.String(),
		"key":         shape.FormatBits(result.Key),
		"count":       result.Count,
		"probability": result.Probability,
	}

	if len(scores) > 1 {
		fields["runner_up"] = scores[1].Count
	}

	log.WithFields(fields).Infof("recovered key fragment")
	return result, nil
}
