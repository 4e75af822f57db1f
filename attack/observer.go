package attack

import "github.com/sahib/dca/spn"

// Observer is told about the progress of an attack run. Calls happen on
// the goroutine that runs the attack.
type Observer interface {
	RoundStarted(round int, mask spn.Mask)
	FragmentRecovered(cfg *RoundConfiguration)
	SubkeyRecovered(index int, key spn.Block)
}

type nopObserver struct{}

func (nopObserver) RoundStarted(int, spn.Mask)            {}
func (nopObserver) FragmentRecovered(*RoundConfiguration) {}
func (nopObserver) SubkeyRecovered(int, spn.Block)        {}
