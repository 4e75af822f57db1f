// Package search finds differential characteristics through the
// substitution layers of a toy SPN, working backwards from a target
// difference towards the plaintext.
package search

import (
	"fmt"
	"sort"

	ie "github.com/sahib/dca/errors"
	"github.com/sahib/dca/sbox"
	"github.com/sahib/dca/spn"
)

// Policy selects how characteristics are searched.
type Policy int

const (
	// Exhaustive collects every characteristic above the differential bound.
	Exhaustive Policy = iota
	// BestFirst keeps only the most probable characteristic per target.
	BestFirst
	// Greedy picks the best predecessor per S-box without a joint search.
	Greedy
)

var policyNames = map[Policy]string{
	Exhaustive: "exhaustive",
	BestFirst:  "best-first",
	Greedy:     "greedy",
}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}

	return fmt.Sprintf("policy(%d)", int(p))
}

// ParsePolicy converts the name of a policy back to a Policy.
func ParsePolicy(name string) (Policy, error) {
	for policy, policyName := range policyNames {
		if policyName == name {
			return policy, nil
		}
	}

	return 0, ie.Configurationf("unknown search policy `%s`", name)
}

// PolicyNames returns the names ParsePolicy accepts, sorted.
func PolicyNames() []string {
	names := []string{}
	for _, name := range policyNames {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// Params are the tunables of a search.
type Params struct {
	Policy Policy

	// BestBound prunes best-first and greedy searches.
	BestBound float64

	// DifferentialBound prunes exhaustive searches and the summation of
	// characteristics that share their plaintext difference.
	DifferentialBound float64

	// Workers is the number of parallel workers; zero means all cores.
	Workers int
}

// DefaultParams work for the 4 round tutorial cipher.
func DefaultParams() Params {
	return Params{
		Policy:            BestFirst,
		BestBound:         0.001,
		DifferentialBound: 0.0001,
	}
}

// Validate checks that the bounds are usable probabilities.
func (p Params) Validate() error {
	if _, ok := policyNames[p.Policy]; !ok {
		return ie.Configurationf("unknown search policy %d", int(p.Policy))
	}

	if p.BestBound <= 0 || p.BestBound > 1 {
		return ie.Configurationf("best bound must be in (0, 1], got %g", p.BestBound)
	}

	if p.DifferentialBound <= 0 || p.DifferentialBound > 1 {
		return ie.Configurationf("differential bound must be in (0, 1], got %g", p.DifferentialBound)
	}

	return nil
}

// Searcher runs characteristic searches for one cipher shape.
// It only reads the shape and table, so it is safe for concurrent use.
type Searcher struct {
	shape  *spn.Shape
	table  *sbox.Table
	params Params
}

// NewSearcher creates a new Searcher for `shape` and its S-box table.
func NewSearcher(shape *spn.Shape, table *sbox.Table, params Params) (*Searcher, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &Searcher{
		shape:  shape,
		table:  table,
		params: params,
	}, nil
}

// Params returns the parameters the searcher was created with.
func (s *Searcher) Params() Params {
	return s.params
}

type visitor struct {
	// prune is asked for every partial probability; true drops the branch.
	// Probabilities only decrease, so it may be asked early.
	prune func(prob float64) bool
	emit  func(ch *Characteristic)
}

// joint enumerates every combination of per S-box predecessors of `out`,
// starting at S-box `idx`. Inactive S-boxes contribute a factor of 1.
func (s *Searcher) joint(out spn.Block, idx int, in spn.Block, prob float64, v visitor, fn func(in spn.Block, prob float64)) {
	if idx == s.shape.SBoxes() {
		fn(in, prob)
		return
	}

	nibble := s.shape.SubBlock(out, idx)
	if nibble == 0 {
		s.joint(out, idx+1, in, prob, v, fn)
		return
	}

	shift := uint(spn.SubBlockWidth * idx)
	for _, pred := range s.table.Predecessors(nibble) {
		next := prob * pred.Probability

		// Predecessors are sorted by probability, so all others are worse.
		if v.prune(next) {
			break
		}

		s.joint(out, idx+1, in|(pred.Input<<shift), next, v, fn)
	}
}

// descend fills `layer` of `cur` (1 being the first layer after the
// plaintext) with every predecessor of `out` and recurses towards layer 1.
func (s *Searcher) descend(layer int, out spn.Block, prob float64, cur *Characteristic, v visitor) {
	s.joint(out, 0, 0, prob, v, func(in spn.Block, next float64) {
		cur.Inputs[layer-1] = in
		cur.Outputs[layer-1] = out
		cur.Trail[cur.Layers()-layer] = next

		if layer == 1 {
			cur.Probability = next
			v.emit(cur)
			return
		}

		s.descend(layer-1, s.shape.ReversePermutation(in), next, cur, v)
	})
}

// All returns every characteristic over `layers` layers that ends in
// `target` and stays above the differential bound.
func (s *Searcher) All(layers int, target spn.Block) []*Characteristic {
	found := []*Characteristic{}
	v := visitor{
		prune: func(prob float64) bool {
			return prob < s.params.DifferentialBound
		},
		emit: func(ch *Characteristic) {
			found = append(found, ch.Clone())
		},
	}

	s.descend(layers, s.shape.ReversePermutation(target), 1.0, newCharacteristic(layers, target), v)
	return found
}

// Best returns the most probable characteristic over `layers` layers
// ending in `target`, or nil if none reaches the best bound. Among equally
// probable characteristics the first one found wins.
func (s *Searcher) Best(layers int, target spn.Block) *Characteristic {
	var best *Characteristic
	v := visitor{
		prune: func(prob float64) bool {
			if prob < s.params.BestBound {
				return true
			}

			return best != nil && prob <= best.Probability
		},
		emit: func(ch *Characteristic) {
			best = ch.Clone()
		},
	}

	s.descend(layers, s.shape.ReversePermutation(target), 1.0, newCharacteristic(layers, target), v)
	return best
}

// Greedy follows the single most probable predecessor of every active
// S-box, layer by layer. It may miss better joint choices, but never
// branches. Returns nil if the path falls below the best bound.
func (s *Searcher) Greedy(layers int, target spn.Block) *Characteristic {
	ch := newCharacteristic(layers, target)
	out := s.shape.ReversePermutation(target)
	prob := 1.0

	for layer := layers; layer >= 1; layer-- {
		in := spn.Block(0)
		for idx := 0; idx < s.shape.SBoxes(); idx++ {
			nibble := s.shape.SubBlock(out, idx)
			if nibble == 0 {
				continue
			}

			preds := s.table.Predecessors(nibble)
			if len(preds) == 0 {
				return nil
			}

			in |= preds[0].Input << uint(spn.SubBlockWidth*idx)
			prob *= preds[0].Probability
		}

		if prob < s.params.BestBound {
			return nil
		}

		ch.Inputs[layer-1] = in
		ch.Outputs[layer-1] = out
		ch.Trail[layers-layer] = prob
		out = s.shape.ReversePermutation(in)
	}

	ch.Probability = prob
	return ch
}

// Specified returns all characteristics from plaintext difference `input`
// to `target` above the differential bound, and their summed probability.
// The sum estimates the probability of the differential (input, target).
func (s *Searcher) Specified(layers int, input, target spn.Block) ([]*Characteristic, float64) {
	matching := []*Characteristic{}
	sum := 0.0

	for _, ch := range s.All(layers, target) {
		if ch.Input() != input {
			continue
		}

		matching = append(matching, ch)
		sum += ch.Probability
	}

	return matching, sum
}

// Find runs the configured policy for a single target.
func (s *Searcher) Find(layers int, target spn.Block) []*Characteristic {
	switch s.params.Policy {
	case Exhaustive:
		return s.All(layers, target)
	case Greedy:
		if ch := s.Greedy(layers, target); ch != nil {
			return []*Characteristic{ch}
		}
	default:
		if ch := s.Best(layers, target); ch != nil {
			return []*Characteristic{ch}
		}
	}

	return nil
}
