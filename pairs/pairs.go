// Package pairs generates chosen plaintext pairs and filters the resulting
// ciphertext pairs down to those that can still follow a differential.
package pairs

import (
	"context"
	"math/rand"

	ie "github.com/sahib/dca/errors"
	"github.com/sahib/dca/sbox"
	"github.com/sahib/dca/spn"
	log "github.com/sirupsen/logrus"
)

// Pair carries the difference Left ^ Right.
type Pair struct {
	Left  spn.Block `yaml:"left"`
	Right spn.Block `yaml:"right"`
}

// Difference returns Left ^ Right.
func (p Pair) Difference() spn.Block {
	return p.Left ^ p.Right
}

// Generate draws `count` pairs with difference `diff`. The left member is
// uniform over all blocks of `shape`.
func Generate(rng *rand.Rand, shape *spn.Shape, diff spn.Block, count int) []Pair {
	space := int(shape.BlockMask()) + 1
	pairs := make([]Pair, count)
	for idx := range pairs {
		left := spn.Block(rng.Intn(space))
		pairs[idx] = Pair{Left: left, Right: left ^ diff}
	}

	return pairs
}

// Encrypt encrypts both members of every pair. The input is not modified.
func Encrypt(enc spn.Encrypter, plain []Pair) []Pair {
	cipher := make([]Pair, len(plain))
	for idx, pair := range plain {
		cipher[idx] = Pair{
			Left:  enc.EncryptBlock(pair.Left),
			Right: enc.EncryptBlock(pair.Right),
		}
	}

	return cipher
}

// OutputDifference peels all `known` keys off a ciphertext pair and returns
// the difference leaving the substitution layer of the round under attack.
// Without known keys this is just the ciphertext difference.
func OutputDifference(shape *spn.Shape, known spn.Subkeys, pair Pair) spn.Block {
	if known.Len() == 0 {
		return pair.Difference()
	}

	// The last peeled key cancels out once we step back over the
	// substitution layer it sits in front of.
	index := shape.Index(known.Len() - 1)
	left := shape.SBoxInput(shape.PartialDecrypt(pair.Left, known), index)
	right := shape.SBoxInput(shape.PartialDecrypt(pair.Right, known), index)
	return shape.ReversePermutation(left ^ right)
}

// Reachable checks every S-box: the observed output difference must be
// reachable from the expected input difference of that S-box.
func Reachable(shape *spn.Shape, table *sbox.Table, expected, observed spn.Block) bool {
	for idx := 0; idx < shape.SBoxes(); idx++ {
		in := shape.SubBlock(expected, idx)
		out := shape.SubBlock(observed, idx)
		if !table.Reachable(in, out) {
			return false
		}
	}

	return true
}

// Filter keeps the ciphertext pairs that may have followed `expected`.
// Pairs that can not have done so would only add noise to key recovery.
func Filter(shape *spn.Shape, table *sbox.Table, known spn.Subkeys, expected spn.Block, cipher []Pair) []Pair {
	filtered := []Pair{}
	for _, pair := range cipher {
		if Reachable(shape, table, expected, OutputDifference(shape, known, pair)) {
			filtered = append(filtered, pair)
		}
	}

	return filtered
}

// Policy controls how many pairs are generated and how often to retry.
type Policy struct {
	Count       int
	MinFiltered int
	Growth      int
	MaxRetries  int
}

// MinCount is the smallest pair count that is ever generated.
const MinCount = 512

// DefaultPolicy is safe for the 4 round tutorial cipher.
func DefaultPolicy() Policy {
	return Policy{
		Count:       5000,
		MinFiltered: 32,
		Growth:      1000,
		MaxRetries:  10,
	}
}

// Validate checks the policy for nonsense values.
func (p Policy) Validate() error {
	switch {
	case p.Count <= 0:
		return ie.Configurationf("pair count must be positive, got %d", p.Count)
	case p.MinFiltered <= 0:
		return ie.Configurationf("minimum filtered pair count must be positive, got %d", p.MinFiltered)
	case p.Growth < 0:
		return ie.Configurationf("pair growth must not be negative, got %d", p.Growth)
	case p.MaxRetries < 0:
		return ie.Configurationf("max retries must not be negative, got %d", p.MaxRetries)
	}

	return nil
}

// Request describes what pairs to collect.
type Request struct {
	Round    int
	Mask     spn.Mask
	Input    spn.Block
	Expected spn.Block
	Known    spn.Subkeys
}

// Collection is the result of Collect.
type Collection struct {
	// Unfiltered holds every generated ciphertext pair of the last attempt.
	Unfiltered []Pair
	Filtered   []Pair
	Attempts   int
}

// Collect generates, encrypts and filters pairs until at least
// policy.MinFiltered survive. Every retry regenerates the whole list with
// policy.Growth more pairs.
func Collect(ctx context.Context, rng *rand.Rand, enc spn.Encrypter, shape *spn.Shape, table *sbox.Table, req Request, policy Policy) (*Collection, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	count := policy.Count
	if count < MinCount {
		count = MinCount
	}

	var coll *Collection
	for attempt := 1; attempt <= policy.MaxRetries+1; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cipher := Encrypt(enc, Generate(rng, shape, req.Input, count))
		coll = &Collection{
			Unfiltered: cipher,
			Filtered:   Filter(shape, table, req.Known, req.Expected, cipher),
			Attempts:   attempt,
		}

		if len(coll.Filtered) >= policy.MinFiltered {
			log.WithFields(log.Fields{
				"round":    req.Round,
				"mask":     req.Mask.String(),
				"pairs":    count,
				"filtered": len(coll.Filtered),
			}).Debugf("collected pairs")
			return coll, nil
		}

		log.WithFields(log.Fields{
			"round":    req.Round,
			"mask":     req.Mask.String(),
			"pairs":    count,
			"filtered": len(coll.Filtered),
			"attempt":  attempt,
		}).Warningf("too few pairs survived filtering, generating more")

		count += policy.Growth
	}

	return nil, &ie.InsufficientSignalError{
		Round:    req.Round,
		Mask:     req.Mask.String(),
		Filtered: len(coll.Filtered),
		Minimum:  policy.MinFiltered,
		Attempts: coll.Attempts,
	}
}
