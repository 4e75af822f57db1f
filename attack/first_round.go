package attack

import (
	"context"

	ie "github.com/sahib/dca/errors"
	"github.com/sahib/dca/spn"
	"github.com/sahib/dca/util/parallel"
	log "github.com/sirupsen/logrus"
)

// AttackFirstRound recovers subkey 2 by brute force and subkey 1 by a
// single known plaintext. Every later subkey must be known. Each trial
// encrypts a random plaintext pair and keeps only the candidates for
// subkey 2 that map the ciphertexts back to the plaintext difference in
// front of the first substitution layer. It returns the number of trials.
func (o *Orchestrator) AttackFirstRound(ctx context.Context) (int, error) {
	trials, err := o.attackFirstRound(ctx)
	if err != nil {
		return trials, &ie.AttackError{Round: 1, Subkey: 2, Err: err}
	}

	return trials, nil
}

func (o *Orchestrator) attackFirstRound(ctx context.Context) (int, error) {
	known := o.state.Snapshot()
	if want := o.shape.Subkeys() - 2; known.Len() != want {
		return 0, ie.Configurationf("first round needs %d known subkeys, got %d", want, known.Len())
	}

	var cands []spn.Block
	trial := 0

	for trial < o.opts.FirstRoundTrials && len(cands) != 1 {
		if err := ctx.Err(); err != nil {
			return trial, err
		}

		left, right := o.randomBlock(), o.randomBlock()
		if left == right {
			continue
		}

		trial++
		diff := left ^ right
		cl := o.shape.PartialDecrypt(o.enc.EncryptBlock(left), known)
		cr := o.shape.PartialDecrypt(o.enc.EncryptBlock(right), known)

		matches := func(key spn.Block) bool {
			l := o.shape.SBoxInput(o.shape.Peel(cl, 2, key), 2)
			r := o.shape.SBoxInput(o.shape.Peel(cr, 2, key), 2)
			return l^r == diff
		}

		if cands == nil {
			var err error
			if cands, err = o.scanKeySpace(ctx, matches); err != nil {
				return trial, err
			}
		} else {
			kept := cands[:0]
			for _, cand := range cands {
				if matches(cand) {
					kept = append(kept, cand)
				}
			}

			cands = kept
		}

		log.WithFields(log.Fields{
			"trial":      trial,
			"candidates": len(cands),
		}).Debugf("narrowing down subkey 2")

		if len(cands) == 0 {
			return trial, &ie.KeyNotRecoverableError{Subkey: 2, Trials: trial}
		}
	}

	if len(cands) != 1 {
		return trial, &ie.KeyNotRecoverableError{
			Subkey:     2,
			Trials:     trial,
			Candidates: len(cands),
		}
	}

	k2 := cands[0]
	if err := o.state.Recover(2, k2); err != nil {
		return trial, err
	}

	o.opts.Observer.SubkeyRecovered(2, k2)

	// Only the pre-whitening key is left in front of the first S-boxes:
	plain := o.randomBlock()
	state := o.shape.PartialDecrypt(o.enc.EncryptBlock(plain), known)
	k1 := o.shape.SBoxInput(o.shape.Peel(state, 2, k2), 2) ^ plain
	if err := o.state.Recover(1, k1); err != nil {
		return trial, err
	}

	o.opts.Observer.SubkeyRecovered(1, k1)

	log.WithFields(log.Fields{
		"trials": trial,
		"k1":     o.shape.FormatBits(k1),
		"k2":     o.shape.FormatBits(k2),
	}).Infof("recovered first round subkeys")

	return trial, nil
}

// scanKeySpace tries every possible key in parallel. The result is sorted.
func (o *Orchestrator) scanKeySpace(ctx context.Context, matches func(key spn.Block) bool) ([]spn.Block, error) {
	space := int(o.shape.BlockMask()) + 1
	workers := parallel.Workers(o.opts.Workers)
	chunks := make([][]spn.Block, workers)

	err := parallel.Split(ctx, space, workers, func(slot, lo, hi int) error {
		for key := lo; key < hi; key++ {
			if matches(spn.Block(key)) {
				chunks[slot] = append(chunks[slot], spn.Block(key))
			}
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	cands := []spn.Block{}
	for _, chunk := range chunks {
		cands = append(cands, chunk...)
	}

	return cands, nil
}

func (o *Orchestrator) randomBlock() spn.Block {
	return spn.Block(o.rng.Intn(int(o.shape.BlockMask()) + 1))
}
