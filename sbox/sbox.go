// Package sbox computes the difference distribution table of a 4 bit S-box.
package sbox

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/sahib/dca/spn"
)

// Pair is an ordered pair of S-box inputs or outputs.
type Pair struct {
	Left  spn.Block
	Right spn.Block
}

// Differential aggregates all input pairs with the same
// (input difference, output difference) tuple.
type Differential struct {
	Input       spn.Block
	Output      spn.Block
	Count       int
	Probability float64
	InputPairs  []Pair
	OutputPairs []Pair
}

// Table is the difference distribution table of one S-box.
// It is read-only after Characterize returned it.
type Table struct {
	entries  []Differential
	counts   [spn.SBoxSize][spn.SBoxSize]int
	byOutput [spn.SBoxSize][]Differential
}

// Characterize runs all 256 ordered input pairs through `shape`'s S-box.
func Characterize(shape *spn.Shape) *Table {
	table := &Table{}
	index := map[[2]spn.Block]int{}

	for i := spn.Block(0); i < spn.SBoxSize; i++ {
		for j := spn.Block(0); j < spn.SBoxSize; j++ {
			left, right := shape.Substitute(i), shape.Substitute(j)
			key := [2]spn.Block{i ^ j, left ^ right}

			pos, ok := index[key]
			if !ok {
				pos = len(table.entries)
				index[key] = pos
				table.entries = append(table.entries, Differential{
					Input:  key[0],
					Output: key[1],
				})
			}

			diff := &table.entries[pos]
			diff.Count++
			diff.InputPairs = append(diff.InputPairs, Pair{i, j})
			diff.OutputPairs = append(diff.OutputPairs, Pair{left, right})
			table.counts[key[0]][key[1]]++
		}
	}

	sort.Slice(table.entries, func(a, b int) bool {
		ea, eb := table.entries[a], table.entries[b]
		if ea.Input != eb.Input {
			return ea.Input < eb.Input
		}

		return ea.Output < eb.Output
	})

	for idx := range table.entries {
		diff := &table.entries[idx]
		diff.Probability = float64(diff.Count) / spn.SBoxSize
		if diff.Input != 0 {
			table.byOutput[diff.Output] = append(table.byOutput[diff.Output], *diff)
		}
	}

	// Most likely predecessors first; the search relies on this order.
	for out := range table.byOutput {
		cands := table.byOutput[out]
		sort.SliceStable(cands, func(a, b int) bool {
			return cands[a].Count > cands[b].Count
		})
	}

	return table
}

// Entries returns all differentials, sorted by input and output difference.
func (t *Table) Entries() []Differential {
	return append([]Differential(nil), t.entries...)
}

// Count returns how many of the 16 inputs with difference `in` produce `out`.
func (t *Table) Count(in, out spn.Block) int {
	return t.counts[in&(spn.SBoxSize-1)][out&(spn.SBoxSize-1)]
}

// Probability is Count(in, out) / 16.
func (t *Table) Probability(in, out spn.Block) float64 {
	return float64(t.Count(in, out)) / spn.SBoxSize
}

// Predecessors returns all differentials with a non-zero input difference
// that end in `out`, the most likely one first.
func (t *Table) Predecessors(out spn.Block) []Differential {
	return t.byOutput[out&(spn.SBoxSize-1)]
}

// Reachable reports whether input difference `in` can produce `out`.
// A zero input difference can only ever produce a zero output.
func (t *Table) Reachable(in, out spn.Block) bool {
	if in == 0 {
		return out == 0
	}

	return t.Count(in, out) > 0
}

// RowSum sums all counts of input difference `in`. Always 16.
func (t *Table) RowSum(in spn.Block) int {
	sum := 0
	for out := 0; out < spn.SBoxSize; out++ {
		sum += t.counts[in&(spn.SBoxSize-1)][out]
	}

	return sum
}

// Render writes the difference distribution table to `w`: one row per input
// difference, one column per output difference. Zero counts are shown as
// dots. With `compact` every cell is one character narrower.
func (t *Table) Render(w io.Writer, compact bool) error {
	cell := " %3s"
	if compact {
		cell = " %2s"
	}

	header := fmt.Sprintf(cell, "")
	for out := 0; out < spn.SBoxSize; out++ {
		header += fmt.Sprintf(cell, fmt.Sprintf("%X", out))
	}

	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}

	for in := 0; in < spn.SBoxSize; in++ {
		row := fmt.Sprintf(cell, fmt.Sprintf("%X", in))
		for out := 0; out < spn.SBoxSize; out++ {
			val := "."
			if count := t.counts[in][out]; count > 0 {
				val = strconv.Itoa(count)
			}

			row += fmt.Sprintf(cell, val)
		}

		if _, err := fmt.Fprintln(w, row); err != nil {
			return err
		}
	}

	return nil
}
