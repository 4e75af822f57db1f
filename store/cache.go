package store

import (
	"io"
	"strconv"
	"strings"

	e "github.com/pkg/errors"
	"github.com/sahib/dca/search"
	"github.com/sahib/dca/spn"
	log "github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"
)

// Cache stores search plans of one cipher shape and parameter set.
// Keys look like plans.<fingerprint>.<round>.<mask>.
type Cache struct {
	db          Database
	algo        AlgorithmType
	fingerprint string
}

// NewCache returns a plan cache on top of `db`.
func NewCache(db Database, algo AlgorithmType, shape *spn.Shape, params search.Params) (*Cache, error) {
	fingerprint, err := Fingerprint(shape, params)
	if err != nil {
		return nil, e.Wrap(err, "failed to fingerprint cipher shape")
	}

	return &Cache{
		db:          db,
		algo:        algo,
		fingerprint: fingerprint,
	}, nil
}

// Fingerprint returns the fingerprint all keys of this cache are stored under.
func (c *Cache) Fingerprint() string {
	return c.fingerprint
}

func maskKey(mask spn.Mask) string {
	idxs := []string{}
	for _, idx := range mask.Indices() {
		idxs = append(idxs, strconv.Itoa(idx))
	}

	// Dots separate key parts, so use dashes here:
	return strings.Join(idxs, "-") + "of" + strconv.Itoa(len(mask))
}

func (c *Cache) key(round int, mask spn.Mask) []string {
	return []string{"plans", c.fingerprint, strconv.Itoa(round), maskKey(mask)}
}

// LoadPlan returns the plan for `round` and `mask`, or nil if none is cached.
func (c *Cache) LoadPlan(round int, mask spn.Mask) (*search.Plan, error) {
	data, err := c.db.Get(c.key(round, mask)...)
	if err == ErrNoSuchKey {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	raw, err := unpack(data)
	if err != nil {
		return nil, e.Wrap(err, "failed to decompress plan")
	}

	plan := &search.Plan{}
	if err := yaml.Unmarshal(raw, plan); err != nil {
		return nil, e.Wrap(err, "failed to decode plan")
	}

	return plan, nil
}

// StorePlan writes `plan` to the database.
func (c *Cache) StorePlan(plan *search.Plan) error {
	raw, err := yaml.Marshal(plan)
	if err != nil {
		return e.Wrap(err, "failed to encode plan")
	}

	data, err := pack(c.algo, raw)
	if err != nil {
		return err
	}

	batch := c.db.Batch()
	batch.Put(data, c.key(plan.Round, plan.Mask)...)
	if err := batch.Flush(); err != nil {
		return e.Wrap(err, "failed to store plan")
	}

	log.WithFields(log.Fields{
		"round":       plan.Round,
		"mask":        plan.Mask.String(),
		"compression": c.algo.String(),
		"size":        len(data),
	}).Debugf("cached plan")

	return nil
}

// Plans lists the plans stored for this fingerprint.
func (c *Cache) Plans() ([]*search.Plan, error) {
	keys, err := c.db.Keys("plans", c.fingerprint)
	if err != nil {
		return nil, err
	}

	plans := []*search.Plan{}
	for _, key := range keys {
		if len(key) != 4 {
			continue
		}

		round, err := strconv.Atoi(key[2])
		if err != nil {
			continue
		}

		mask, err := parseMaskKey(key[3])
		if err != nil {
			continue
		}

		plan, err := c.LoadPlan(round, mask)
		if err != nil {
			return nil, err
		}

		if plan != nil {
			plans = append(plans, plan)
		}
	}

	return plans, nil
}

// Clear removes every plan of this fingerprint and returns how many.
func (c *Cache) Clear() (int, error) {
	keys, err := c.db.Keys("plans", c.fingerprint)
	if err != nil {
		return 0, err
	}

	batch := c.db.Batch()
	for _, key := range keys {
		batch.Erase(key...)
	}

	if err := batch.Flush(); err != nil {
		return 0, err
	}

	return len(keys), nil
}

// Dump writes the plans of every fingerprint to `w`, see Dump.
func (c *Cache) Dump(w io.Writer) (int, error) {
	return Dump(c.db, w, "plans")
}

// Restore reads plans written by Dump. Plans stored under a
// different fingerprint are kept but not visible through this cache.
func (c *Cache) Restore(r io.Reader) (int, error) {
	return Restore(c.db, r)
}

func parseMaskKey(key string) (spn.Mask, error) {
	split := strings.SplitN(key, "of", 2)
	if len(split) != 2 {
		return nil, e.Errorf("bad mask key %q", key)
	}

	sboxes, err := strconv.Atoi(split[1])
	if err != nil {
		return nil, err
	}

	return spn.ParseMask(strings.Replace(split[0], "-", ",", -1), sboxes)
}
