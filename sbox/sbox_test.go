package sbox

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sahib/dca/spn"
	"github.com/stretchr/testify/require"
)

func heysTable(t *testing.T) *Table {
	shape, err := spn.HeysShape(4)
	require.Nil(t, err)
	return Characterize(shape)
}

func TestRowSums(t *testing.T) {
	table := heysTable(t)
	for in := spn.Block(0); in < spn.SBoxSize; in++ {
		require.Equal(t, spn.SBoxSize, table.RowSum(in))

		sum := 0
		for _, diff := range table.Entries() {
			if diff.Input == in {
				sum += diff.Count
				require.Len(t, diff.InputPairs, diff.Count)
				require.Len(t, diff.OutputPairs, diff.Count)
			}
		}
		require.Equal(t, spn.SBoxSize, sum)
	}
}

func TestKnownCounts(t *testing.T) {
	table := heysTable(t)

	tcs := []struct {
		in, out spn.Block
		count   int
	}{
		{0x0, 0x0, 16},
		{0xB, 0x2, 8},
		{0x4, 0x6, 6},
		{0x2, 0x5, 6},
		{0xF, 0x4, 6},
		{0x1, 0x3, 2},
		{0x0, 0x3, 0},
	}

	for _, tc := range tcs {
		require.Equal(t, tc.count, table.Count(tc.in, tc.out), "%x -> %x", tc.in, tc.out)
		require.Equal(t, float64(tc.count)/16, table.Probability(tc.in, tc.out))
	}

	require.Len(t, table.Entries(), 88)
}

func TestPairsAreConsistent(t *testing.T) {
	shape, err := spn.HeysShape(4)
	require.Nil(t, err)

	for _, diff := range Characterize(shape).Entries() {
		for idx, pair := range diff.InputPairs {
			require.Equal(t, diff.Input, pair.Left^pair.Right)
			out := diff.OutputPairs[idx]
			require.Equal(t, shape.Substitute(pair.Left), out.Left)
			require.Equal(t, shape.Substitute(pair.Right), out.Right)
			require.Equal(t, diff.Output, out.Left^out.Right)
		}
	}
}

func TestPredecessors(t *testing.T) {
	table := heysTable(t)

	for out := spn.Block(1); out < spn.SBoxSize; out++ {
		preds := table.Predecessors(out)
		require.NotEmpty(t, preds)

		for idx, pred := range preds {
			require.Equal(t, out, pred.Output)
			require.NotEqual(t, spn.Block(0), pred.Input)
			if idx > 0 {
				require.True(t, preds[idx-1].Count >= pred.Count)
			}
		}
	}

	require.Empty(t, table.Predecessors(0))
	require.Equal(t, spn.Block(0xB), table.Predecessors(0x2)[0].Input)

	require.True(t, table.Reachable(0, 0))
	require.False(t, table.Reachable(0, 1))
	require.True(t, table.Reachable(0xB, 0x2))
	require.False(t, table.Reachable(0x1, 0x0))
}

func TestRender(t *testing.T) {
	table := heysTable(t)

	for compact, width := range map[bool]int{false: 17 * 4, true: 17 * 3} {
		buf := &bytes.Buffer{}
		require.Nil(t, table.Render(buf, compact))

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		require.Len(t, lines, 17)
		for _, line := range lines {
			require.Len(t, line, width)
		}

		zero := strings.Fields(lines[1])
		require.Equal(t, []string{"0", "16"}, zero[:2])
		require.Equal(t, ".", zero[2])

		rowB := strings.Fields(lines[1+0xB])
		require.Equal(t, "B", rowB[0])
		require.Equal(t, "8", rowB[1+0x2])
	}
}
