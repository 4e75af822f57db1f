// Package spn implements the block operations of a small
// substitution-permutation network with 4 bit S-boxes.
//
// Sub-block 0 is always the least significant nibble of a block.
package spn

import (
	"fmt"
	"strings"

	ie "github.com/sahib/dca/errors"
)

// Block is the state of the cipher. Only the lower Shape.Bits() bits are used.
type Block uint16

const (
	// SubBlockWidth is the bit width of a single S-box.
	SubBlockWidth = 4

	// SBoxSize is the number of entries in a S-box table.
	SBoxSize = 1 << SubBlockWidth

	// MaxSBoxes is the largest number of S-boxes that fit into a Block.
	MaxSBoxes = 4
)

var (
	// HeysSBox is the S-box from Howard Heys' tutorial cipher.
	HeysSBox = []int{14, 4, 13, 1, 2, 15, 11, 8, 3, 10, 6, 12, 5, 9, 0, 7}

	// HeysPBox is the matching bit permutation (a 4x4 transpose).
	HeysPBox = []int{0, 4, 8, 12, 1, 5, 9, 13, 2, 6, 10, 14, 3, 7, 11, 15}
)

// Shape describes the parameters of a toy cipher: the number of rounds,
// the number of S-boxes per round and the substitution and permutation
// tables. A Shape is immutable once created by NewShape.
type Shape struct {
	rounds  int
	sboxes  int
	sbox    [SBoxSize]Block
	sboxInv [SBoxSize]Block
	pbox    []uint
	pboxInv []uint
}

// NewShape validates the given tables and builds a Shape from them.
// `sbox` must be a permutation of [0, 16), `pbox` a permutation of
// [0, 4*sboxes).
func NewShape(rounds, sboxes int, sbox, pbox []int) (*Shape, error) {
	if rounds < 2 {
		return nil, ie.Configurationf("need at least 2 rounds, got %d", rounds)
	}

	if sboxes < 1 || sboxes > MaxSBoxes {
		return nil, ie.Configurationf("number of s-boxes must be in [1, %d], got %d", MaxSBoxes, sboxes)
	}

	if err := checkPermutation("s-box", sbox, SBoxSize); err != nil {
		return nil, err
	}

	bits := sboxes * SubBlockWidth
	if err := checkPermutation("p-box", pbox, bits); err != nil {
		return nil, err
	}

	shape := &Shape{
		rounds:  rounds,
		sboxes:  sboxes,
		pbox:    make([]uint, bits),
		pboxInv: make([]uint, bits),
	}

	for idx, val := range sbox {
		shape.sbox[idx] = Block(val)
		shape.sboxInv[val] = Block(idx)
	}

	for idx, val := range pbox {
		shape.pbox[idx] = uint(val)
		shape.pboxInv[val] = uint(idx)
	}

	return shape, nil
}

// HeysShape returns the tutorial cipher with `rounds` rounds.
func HeysShape(rounds int) (*Shape, error) {
	return NewShape(rounds, MaxSBoxes, HeysSBox, HeysPBox)
}

func checkPermutation(name string, table []int, size int) error {
	if len(table) != size {
		return ie.Configurationf("%s needs %d entries, got %d", name, size, len(table))
	}

	seen := make([]bool, size)
	for idx, val := range table {
		if val < 0 || val >= size {
			return ie.Configurationf("%s entry %d is out of range: %d", name, idx, val)
		}

		if seen[val] {
			return ie.Configurationf("%s is not a permutation: %d appears twice", name, val)
		}

		seen[val] = true
	}

	return nil
}

// Rounds returns the number of cipher rounds.
func (s *Shape) Rounds() int { return s.rounds }

// SBoxes returns the number of S-boxes per round.
func (s *Shape) SBoxes() int { return s.sboxes }

// Bits is the number of used bits in a block.
func (s *Shape) Bits() int { return s.sboxes * SubBlockWidth }

// Subkeys is the number of round keys of the cipher (one more than rounds).
func (s *Shape) Subkeys() int { return s.rounds + 1 }

// BlockMask has all used bits of a block set.
func (s *Shape) BlockMask() Block {
	return Block((1 << uint(s.Bits())) - 1)
}

// SBoxTable returns a copy of the substitution table.
func (s *Shape) SBoxTable() []int {
	table := make([]int, SBoxSize)
	for idx, val := range s.sbox {
		table[idx] = int(val)
	}

	return table
}

// PBoxTable returns a copy of the permutation table.
func (s *Shape) PBoxTable() []int {
	table := make([]int, len(s.pbox))
	for idx, val := range s.pbox {
		table[idx] = int(val)
	}

	return table
}

func (s *Shape) String() string {
	return fmt.Sprintf(
		"rounds=%d sboxes=%d sbox=%v pbox=%v",
		s.rounds, s.sboxes, s.SBoxTable(), s.PBoxTable(),
	)
}

// FormatBits renders `x` as groups of sub-blocks, most significant first.
func (s *Shape) FormatBits(x Block) string {
	groups := make([]string, 0, s.sboxes)
	for idx := s.sboxes - 1; idx >= 0; idx-- {
		groups = append(groups, fmt.Sprintf("%04b", s.SubBlock(x, idx)))
	}

	return strings.Join(groups, " ")
}
