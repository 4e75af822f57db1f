// Package defaults defines every configuration key of dca and converts the
// loaded values into the typed parameters of the attack packages.
package defaults

import (
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	e "github.com/pkg/errors"
	"github.com/sahib/config"
	"github.com/sahib/dca/attack"
	ie "github.com/sahib/dca/errors"
	"github.com/sahib/dca/pairs"
	"github.com/sahib/dca/search"
	"github.com/sahib/dca/spn"
	"github.com/sahib/dca/store"
)

// CurrentVersion is the current version of dca's config
const CurrentVersion = 0

// Defaults is the default validation for dca
var Defaults = DefaultsV0

// DefaultConfigPath is where the command line looks for a config.
func DefaultConfigPath() string {
	path, err := homedir.Expand("~/.config/dca/config.yml")
	if err != nil {
		return "dca.yml"
	}

	return path
}

// NewDefaultConfig returns a config that only holds default values.
func NewDefaultConfig() (*config.Config, error) {
	return config.Open(nil, Defaults, config.StrictnessPanic)
}

// OpenMigratedConfig takes the config.yml at path and loads it.
// If required, it also migrates the config structure to the newest
// version. If there is no file at `path` yet, a default config is
// written there first.
func OpenMigratedConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err := NewDefaultConfig()
		if err != nil {
			return nil, err
		}

		if err := SaveConfig(path, cfg); err != nil {
			return nil, err
		}

		return cfg, nil
	}

	fd, err := os.Open(path)
	if err != nil {
		return nil, e.Wrap(err, "failed to open config")
	}

	defer fd.Close()

	// Add here any migrations with mgr.Add if needed.
	mgr := config.NewMigrater(CurrentVersion, config.StrictnessPanic)
	mgr.Add(0, nil, DefaultsV0)

	cfg, err := mgr.Migrate(config.NewYamlDecoder(fd))
	if err != nil {
		return nil, e.Wrap(err, "failed to migrate")
	}

	return cfg, nil
}

// SaveConfig writes `cfg` as YAML to `path`, creating parent directories.
func SaveConfig(path string, cfg *config.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return e.Wrap(err, "failed to create config dir")
	}

	fd, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return e.Wrap(err, "failed to create config")
	}

	if err := cfg.Save(config.NewYamlEncoder(fd)); err != nil {
		fd.Close()
		return e.Wrap(err, "failed to save config")
	}

	return fd.Close()
}

func ints(vals []int64) []int {
	out := make([]int, 0, len(vals))
	for _, val := range vals {
		out = append(out, int(val))
	}

	return out
}

// Shape builds the cipher shape from the cipher section.
func Shape(cfg *config.Config) (*spn.Shape, error) {
	if width := cfg.Int("cipher.width"); width != spn.SubBlockWidth {
		return nil, ie.Configurationf("unsupported s-box width %d", width)
	}

	return spn.NewShape(
		int(cfg.Int("cipher.rounds")),
		int(cfg.Int("cipher.sboxes")),
		ints(cfg.Ints("cipher.sbox")),
		ints(cfg.Ints("cipher.pbox")),
	)
}

// SearchParams reads the search section.
func SearchParams(cfg *config.Config) (search.Params, error) {
	policy, err := search.ParsePolicy(cfg.String("search.policy"))
	if err != nil {
		return search.Params{}, err
	}

	params := search.Params{
		Policy:            policy,
		BestBound:         cfg.Float("search.best_bound"),
		DifferentialBound: cfg.Float("search.differential_bound"),
		Workers:           int(cfg.Int("search.workers")),
	}

	return params, params.Validate()
}

// PairPolicy reads the pairs section.
func PairPolicy(cfg *config.Config) (pairs.Policy, error) {
	policy := pairs.Policy{
		Count:       int(cfg.Int("pairs.count")),
		MinFiltered: int(cfg.Int("pairs.min_filtered")),
		Growth:      int(cfg.Int("pairs.growth")),
		MaxRetries:  int(cfg.Int("pairs.max_retries")),
	}

	return policy, policy.Validate()
}

// Groups parses attack.groups for `shape`.
func Groups(cfg *config.Config, shape *spn.Shape) ([]spn.Mask, error) {
	groups := []spn.Mask{}
	for _, raw := range cfg.Strings("attack.groups") {
		mask, err := spn.ParseMask(raw, shape.SBoxes())
		if err != nil {
			return nil, err
		}

		groups = append(groups, mask)
	}

	if err := spn.ValidateGroups(groups, shape.SBoxes()); err != nil {
		return nil, err
	}

	return groups, nil
}

// AttackOptions collects everything an attack.Orchestrator needs.
// The plan cache is not set here; see OpenCache.
func AttackOptions(cfg *config.Config, shape *spn.Shape) (attack.Options, error) {
	opts := attack.DefaultOptions()

	var err error
	if opts.Search, err = SearchParams(cfg); err != nil {
		return opts, err
	}

	if opts.Pairs, err = PairPolicy(cfg); err != nil {
		return opts, err
	}

	if opts.Groups, err = Groups(cfg, shape); err != nil {
		return opts, err
	}

	opts.FirstRoundTrials = int(cfg.Int("attack.first_round_trials"))
	opts.Workers = int(cfg.Int("attack.workers"))
	opts.Seed = cfg.Int("pairs.seed")
	return opts, nil
}

// StorePath returns the resolved directory of the search cache.
func StorePath(cfg *config.Config) (string, error) {
	path := cfg.String("store.path")
	if path == "" {
		path = "~/.cache/dca"
	}

	return homedir.Expand(path)
}

// OpenCache opens the search cache if it is enabled. The returned
// database needs to be closed by the caller. Both are nil when disabled.
func OpenCache(cfg *config.Config, shape *spn.Shape, params search.Params) (*store.Cache, store.Database, error) {
	if !cfg.Bool("store.enabled") {
		return nil, nil, nil
	}

	algo, err := store.AlgoFromString(cfg.String("store.compression"))
	if err != nil {
		return nil, nil, err
	}

	path, err := StorePath(cfg)
	if err != nil {
		return nil, nil, e.Wrap(err, "failed to resolve store path")
	}

	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, nil, e.Wrap(err, "failed to create store dir")
	}

	db, err := store.Open(path)
	if err != nil {
		return nil, nil, e.Wrapf(err, "failed to open store at %s", path)
	}

	cache, err := store.NewCache(db, algo, shape, params)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	return cache, db, nil
}
