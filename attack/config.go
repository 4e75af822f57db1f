package attack

import (
	"io"
	"io/ioutil"

	e "github.com/pkg/errors"
	"github.com/sahib/dca/pairs"
	"github.com/sahib/dca/search"
	"github.com/sahib/dca/spn"
	yaml "gopkg.in/yaml.v2"
)

// RoundConfiguration holds everything about the attack on one round and
// one group of S-boxes: the chosen differential, the pairs and the
// recovered key fragment.
type RoundConfiguration struct {
	Round        int      `yaml:"round"`
	Mask         spn.Mask `yaml:"mask"`
	IsLast       bool     `yaml:"is_last"`
	IsBeforeLast bool     `yaml:"is_before_last"`

	InputDifference    spn.Block                `yaml:"input_difference"`
	ExpectedDifference spn.Block                `yaml:"expected_difference"`
	Probability        float64                  `yaml:"probability"`
	Characteristics    []*search.Characteristic `yaml:"characteristics"`

	UnfilteredPairs []pairs.Pair `yaml:"-"`
	FilteredPairs   []pairs.Pair `yaml:"-"`
	UnfilteredCount int          `yaml:"unfiltered_count"`
	FilteredCount   int          `yaml:"filtered_count"`
	PairAttempts    int          `yaml:"pair_attempts"`

	Fragment            spn.Block `yaml:"fragment"`
	FragmentCount       int       `yaml:"fragment_count"`
	FragmentProbability float64   `yaml:"fragment_probability"`
}

// Subkey is the index of the subkey this round recovers.
func (cfg *RoundConfiguration) Subkey() int {
	return cfg.Round + 1
}

type configFile struct {
	Configurations []*RoundConfiguration `yaml:"configurations"`
}

// SaveConfigurations writes `cfgs` as YAML to `w`. Pair lists are left
// out, only their sizes are kept.
func SaveConfigurations(w io.Writer, cfgs []*RoundConfiguration) error {
	data, err := yaml.Marshal(configFile{Configurations: cfgs})
	if err != nil {
		return e.Wrap(err, "failed to encode round configurations")
	}

	_, err = w.Write(data)
	return err
}

// LoadConfigurations reads configurations written by SaveConfigurations.
func LoadConfigurations(r io.Reader) ([]*RoundConfiguration, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}

	file := configFile{}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, e.Wrap(err, "failed to decode round configurations")
	}

	return file.Configurations, nil
}
