package search

import (
	"fmt"
	"strings"

	"github.com/sahib/dca/spn"
)

// Characteristic is a path of differences through the substitution layers
// in front of a target difference. For a path over n layers, Inputs[j]
// enters the S-boxes of layer j+1 and Outputs[j] leaves them; Inputs[n]
// is the target itself. Inputs[0] is therefore the plaintext difference.
type Characteristic struct {
	Inputs  []spn.Block `yaml:"inputs"`
	Outputs []spn.Block `yaml:"outputs"`

	// Trail[k] is the accumulated probability after descending k+1
	// layers from the target. It never increases with k.
	Trail []float64 `yaml:"trail"`

	Probability float64 `yaml:"probability"`
}

func newCharacteristic(layers int, target spn.Block) *Characteristic {
	ch := &Characteristic{
		Inputs:      make([]spn.Block, layers+1),
		Outputs:     make([]spn.Block, layers),
		Trail:       make([]float64, layers),
		Probability: 1.0,
	}

	ch.Inputs[layers] = target
	return ch
}

// Layers is the number of substitution layers the path crosses.
func (ch *Characteristic) Layers() int {
	return len(ch.Outputs)
}

// Input is the plaintext difference of the path.
func (ch *Characteristic) Input() spn.Block {
	return ch.Inputs[0]
}

// Target is the difference the path ends in.
func (ch *Characteristic) Target() spn.Block {
	return ch.Inputs[len(ch.Inputs)-1]
}

// Clone returns a deep copy.
func (ch *Characteristic) Clone() *Characteristic {
	return &Characteristic{
		Inputs:      append([]spn.Block(nil), ch.Inputs...),
		Outputs:     append([]spn.Block(nil), ch.Outputs...),
		Trail:       append([]float64(nil), ch.Trail...),
		Probability: ch.Probability,
	}
}

func (ch *Characteristic) String() string {
	steps := make([]string, 0, len(ch.Inputs))
	for idx, in := range ch.Inputs {
		if idx < len(ch.Outputs) {
			steps = append(steps, fmt.Sprintf("%04x->%04x", in, ch.Outputs[idx]))
		} else {
			steps = append(steps, fmt.Sprintf("%04x", in))
		}
	}

	return fmt.Sprintf("p=%.6f [%s]", ch.Probability, strings.Join(steps, " | "))
}
