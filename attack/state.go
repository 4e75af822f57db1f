package attack

import (
	"github.com/sahib/dca/spn"

	ie "github.com/sahib/dca/errors"
)

// State tracks which subkeys of one attack run are known. Subkeys are
// numbered 1..R+1 and can only be recovered from the outside in. Once
// recovered, a subkey never changes.
type State struct {
	shape     *spn.Shape
	recovered []bool
	subkeys   []spn.Block
}

// NewState returns a state where no subkey is known.
func NewState(shape *spn.Shape) *State {
	return &State{
		shape:     shape,
		recovered: make([]bool, shape.Subkeys()+1),
		subkeys:   make([]spn.Block, shape.Subkeys()+1),
	}
}

// Next is the index of the next subkey to recover, or 0 if all are known.
func (st *State) Next() int {
	for index := st.shape.Subkeys(); index >= 1; index-- {
		if !st.recovered[index] {
			return index
		}
	}

	return 0
}

// Recover marks subkey `index` as known.
func (st *State) Recover(index int, key spn.Block) error {
	if index < 1 || index > st.shape.Subkeys() {
		return ie.Configurationf("no subkey with index %d", index)
	}

	if st.recovered[index] {
		return ie.Configurationf("subkey %d was already recovered", index)
	}

	if next := st.Next(); index != next {
		return ie.Configurationf("subkey %d can not be recovered before subkey %d", index, next)
	}

	st.recovered[index] = true
	st.subkeys[index] = key
	return nil
}

// IsRecovered tells if subkey `index` is known.
func (st *State) IsRecovered(index int) bool {
	if index < 1 || index > st.shape.Subkeys() {
		return false
	}

	return st.recovered[index]
}

// Subkey returns subkey `index` and whether it is known.
func (st *State) Subkey(index int) (spn.Block, bool) {
	if !st.IsRecovered(index) {
		return 0, false
	}

	return st.subkeys[index], true
}

// Snapshot returns the known subkeys, outermost first.
func (st *State) Snapshot() spn.Subkeys {
	known := []spn.Block{}
	for index := st.shape.Subkeys(); index >= 1 && st.recovered[index]; index-- {
		known = append(known, st.subkeys[index])
	}

	return spn.NewSubkeys(known...)
}

// Complete is true once every subkey is known.
func (st *State) Complete() bool {
	return st.Next() == 0
}

// Subkeys returns the key schedule k1..k[R+1]. Unknown keys are zero.
func (st *State) Subkeys() []spn.Block {
	return append([]spn.Block(nil), st.subkeys[1:]...)
}
