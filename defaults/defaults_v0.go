package defaults

import (
	"github.com/sahib/config"
	"github.com/sahib/dca/spn"
)

func int64s(vals []int) []int64 {
	out := make([]int64, 0, len(vals))
	for _, val := range vals {
		out = append(out, int64(val))
	}

	return out
}

// DefaultsV0 is the default config validation for dca
var DefaultsV0 = config.DefaultMapping{
	"cipher": config.DefaultMapping{
		"rounds": config.DefaultEntry{
			Default:      4,
			NeedsRestart: true,
			Docs:         "Number of rounds of the attacked cipher.",
			Validator:    config.IntRangeValidator(2, 8),
		},
		"sboxes": config.DefaultEntry{
			Default:      4,
			NeedsRestart: true,
			Docs:         "Number of S-boxes per round; a block has 4 bits per S-box.",
			Validator:    config.IntRangeValidator(1, 4),
		},
		"width": config.DefaultEntry{
			Default:      4,
			NeedsRestart: true,
			Docs:         "Bit width of a single S-box. Only 4 is supported.",
			Validator:    config.IntRangeValidator(4, 4),
		},
		"sbox": config.DefaultEntry{
			Default:      int64s(spn.HeysSBox),
			NeedsRestart: true,
			Docs:         "Substitution table: a permutation of 0..15.",
		},
		"pbox": config.DefaultEntry{
			Default:      int64s(spn.HeysPBox),
			NeedsRestart: true,
			Docs:         "Bit permutation: output bit i takes input bit pbox[i]. Needs 4*sboxes entries.",
		},
	},
	"search": config.DefaultMapping{
		"policy": config.DefaultEntry{
			Default:      "best-first",
			NeedsRestart: false,
			Docs:         "How characteristics are searched. One of exhaustive, best-first or greedy.",
			Validator: config.EnumValidator(
				"exhaustive", "best-first", "greedy",
			),
		},
		"best_bound": config.DefaultEntry{
			Default:      0.001,
			NeedsRestart: false,
			Docs:         "Branches below this probability are dropped when looking for the best characteristic.",
			Validator:    config.FloatRangeValidator(1e-12, 1),
		},
		"differential_bound": config.DefaultEntry{
			Default:      0.0001,
			NeedsRestart: false,
			Docs:         "Characteristics below this probability are not summed into a differential.",
			Validator:    config.FloatRangeValidator(1e-12, 1),
		},
		"workers": config.DefaultEntry{
			Default:      0,
			NeedsRestart: false,
			Docs:         "Parallel search workers; 0 uses all logical cores.",
			Validator:    config.IntRangeValidator(0, 1024),
		},
	},
	"pairs": config.DefaultMapping{
		"count": config.DefaultEntry{
			Default:      5000,
			NeedsRestart: false,
			Docs:         "Chosen plaintext pairs per round attack (at least 512 are used).",
			Validator:    config.IntRangeValidator(1, 1<<24),
		},
		"min_filtered": config.DefaultEntry{
			Default:      32,
			NeedsRestart: false,
			Docs:         "Pairs that need to survive filtering before the key is guessed.",
			Validator:    config.IntRangeValidator(1, 1<<24),
		},
		"growth": config.DefaultEntry{
			Default:      1000,
			NeedsRestart: false,
			Docs:         "Pairs added on every retry when too few survived the filter.",
			Validator:    config.IntRangeValidator(0, 1<<24),
		},
		"max_retries": config.DefaultEntry{
			Default:      10,
			NeedsRestart: false,
			Docs:         "How often fresh pairs are generated before giving up.",
			Validator:    config.IntRangeValidator(0, 1000),
		},
		"seed": config.DefaultEntry{
			Default:      0,
			NeedsRestart: false,
			Docs:         "Seed for pair generation; 0 picks a time based seed.",
		},
	},
	"attack": config.DefaultMapping{
		"groups": config.DefaultEntry{
			Default:      []string{"0,2", "1,3"},
			NeedsRestart: false,
			Docs:         "S-box groups attacked together. Together they must cover every S-box exactly once.",
		},
		"first_round_trials": config.DefaultEntry{
			Default:      64,
			NeedsRestart: false,
			Docs:         "Maximum number of random pairs used to narrow down the second subkey.",
			Validator:    config.IntRangeValidator(1, 1<<16),
		},
		"workers": config.DefaultEntry{
			Default:      0,
			NeedsRestart: false,
			Docs:         "Parallel key guessing workers; 0 uses all logical cores.",
			Validator:    config.IntRangeValidator(0, 1024),
		},
	},
	"store": config.DefaultMapping{
		"enabled": config.DefaultEntry{
			Default:      false,
			NeedsRestart: false,
			Docs:         "Cache search results on disk and reuse them in later runs.",
		},
		"path": config.DefaultEntry{
			Default:      "",
			NeedsRestart: true,
			Docs:         "Directory of the search cache. Empty means ~/.cache/dca.",
		},
		"compression": config.DefaultEntry{
			Default:      "snappy",
			NeedsRestart: false,
			Docs:         "Compression of cached search results. One of snappy, lz4 or none.",
			Validator: config.EnumValidator(
				"snappy", "lz4", "none",
			),
		},
	},
}
