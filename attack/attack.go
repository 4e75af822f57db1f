// Package attack drives a complete differential key recovery: it attacks
// the rounds from the last one inwards, assembles every round key from the
// fragments of complementary S-box groups and finally brute forces the
// first two subkeys once every later key is known.
package attack

import (
	"context"
	"math/rand"
	"time"

	ie "github.com/sahib/dca/errors"
	"github.com/sahib/dca/pairs"
	"github.com/sahib/dca/recovery"
	"github.com/sahib/dca/sbox"
	"github.com/sahib/dca/search"
	"github.com/sahib/dca/spn"
	log "github.com/sirupsen/logrus"
)

// PlanCache stores search results, so a repeated run can skip the search.
// LoadPlan returns nil and no error on a cache miss.
type PlanCache interface {
	LoadPlan(round int, mask spn.Mask) (*search.Plan, error)
	StorePlan(plan *search.Plan) error
}

// Options configure an Orchestrator.
type Options struct {
	Search search.Params
	Pairs  pairs.Policy

	// Groups partition the S-boxes; every group yields one key fragment.
	// Defaults to even and odd S-boxes.
	Groups []spn.Mask

	// FirstRoundTrials bounds the random pairs used to narrow down subkey 2.
	FirstRoundTrials int

	// Workers for key recovery; zero means all cores.
	Workers int

	// Seed for pair generation; zero picks a time based seed.
	Seed int64

	Cache    PlanCache
	Observer Observer
}

// DefaultOptions work for the 4 round tutorial cipher.
func DefaultOptions() Options {
	return Options{
		Search:           search.DefaultParams(),
		Pairs:            pairs.DefaultPolicy(),
		FirstRoundTrials: 64,
	}
}

// Report is the outcome of a full attack run.
type Report struct {
	// Subkeys is the recovered key schedule, k1 first.
	Subkeys          []spn.Block
	Configurations   []*RoundConfiguration
	FirstRoundTrials int
	Took             time.Duration
}

// Orchestrator runs one attack against one encryption context.
// It is not safe for concurrent use; create one per attack run.
type Orchestrator struct {
	shape    *spn.Shape
	enc      spn.Encrypter
	table    *sbox.Table
	searcher *search.Searcher
	opts     Options
	rng      *rand.Rand
	state    *State
	configs  []*RoundConfiguration
}

// NewOrchestrator validates `opts` and characterizes the S-box of `shape`.
func NewOrchestrator(shape *spn.Shape, enc spn.Encrypter, opts Options) (*Orchestrator, error) {
	if len(opts.Groups) == 0 {
		opts.Groups = spn.DefaultGroups(shape.SBoxes())
	}

	if err := spn.ValidateGroups(opts.Groups, shape.SBoxes()); err != nil {
		return nil, err
	}

	if err := opts.Pairs.Validate(); err != nil {
		return nil, err
	}

	if opts.FirstRoundTrials <= 0 {
		return nil, ie.Configurationf("need at least one first round trial, got %d", opts.FirstRoundTrials)
	}

	if opts.Search.Workers == 0 {
		opts.Search.Workers = opts.Workers
	}

	table := sbox.Characterize(shape)
	searcher, err := search.NewSearcher(shape, table, opts.Search)
	if err != nil {
		return nil, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}

	return &Orchestrator{
		shape:    shape,
		enc:      enc,
		table:    table,
		searcher: searcher,
		opts:     opts,
		rng:      rand.New(rand.NewSource(seed)),
		state:    NewState(shape),
	}, nil
}

// State gives access to the recovered subkeys so far.
func (o *Orchestrator) State() *State {
	return o.state
}

// Configurations returns all round configurations created so far.
func (o *Orchestrator) Configurations() []*RoundConfiguration {
	return append([]*RoundConfiguration(nil), o.configs...)
}

// Run recovers every subkey that is not known yet.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	start := time.Now()

	for round := o.shape.Rounds(); round >= 2; round-- {
		if o.state.IsRecovered(round + 1) {
			continue
		}

		if _, err := o.RecoverRound(ctx, round); err != nil {
			return nil, err
		}
	}

	trials := 0
	if !o.state.Complete() {
		var err error
		if trials, err = o.AttackFirstRound(ctx); err != nil {
			return nil, err
		}
	}

	report := &Report{
		Subkeys:          o.state.Subkeys(),
		Configurations:   o.Configurations(),
		FirstRoundTrials: trials,
		Took:             time.Since(start),
	}

	log.WithFields(log.Fields{
		"took":   report.Took,
		"rounds": o.shape.Rounds(),
	}).Infof("attack finished")
	return report, nil
}

// RecoverRound attacks `round` once per S-box group and combines the key
// fragments into subkey round+1.
func (o *Orchestrator) RecoverRound(ctx context.Context, round int) (spn.Block, error) {
	key := spn.Block(0)
	for _, mask := range o.opts.Groups {
		cfg, err := o.AttackRound(ctx, round, mask)
		if err != nil {
			return 0, err
		}

		key ^= cfg.Fragment
	}

	index := round + 1
	if err := o.state.Recover(index, key); err != nil {
		return 0, &ie.AttackError{Round: round, Subkey: index, Err: err}
	}

	log.WithFields(log.Fields{
		"round":  round,
		"subkey": index,
		"key":    o.shape.FormatBits(key),
	}).Infof("recovered subkey")

	o.opts.Observer.SubkeyRecovered(index, key)
	return key, nil
}

// AttackRound recovers the fragment of subkey round+1 under the S-boxes in
// `mask`. All subkeys behind `round` need to be known already.
func (o *Orchestrator) AttackRound(ctx context.Context, round int, mask spn.Mask) (*RoundConfiguration, error) {
	cfg, err := o.attackRound(ctx, round, mask)
	if err != nil {
		return nil, &ie.AttackError{
			Round:  round,
			Subkey: round + 1,
			Mask:   mask.String(),
			Err:    err,
		}
	}

	return cfg, nil
}

func (o *Orchestrator) attackRound(ctx context.Context, round int, mask spn.Mask) (*RoundConfiguration, error) {
	if round <= 1 {
		return nil, ie.Configurationf("round %d must be attacked with the first round protocol", round)
	}

	if round > o.shape.Rounds() {
		return nil, ie.Configurationf("cipher has only %d rounds, can not attack round %d", o.shape.Rounds(), round)
	}

	if len(mask) != o.shape.SBoxes() || mask.Active() == 0 {
		return nil, ie.Configurationf("mask %s does not select any of the %d s-boxes", mask, o.shape.SBoxes())
	}

	known := o.state.Snapshot()
	if want := o.shape.Rounds() - round; known.Len() != want {
		return nil, ie.Configurationf(
			"round %d needs the %d subkeys behind it, but %d are known",
			round, want, known.Len(),
		)
	}

	o.opts.Observer.RoundStarted(round, mask)

	plan, err := o.plan(ctx, round, mask)
	if err != nil {
		return nil, err
	}

	coll, err := pairs.Collect(ctx, o.rng, o.enc, o.shape, o.table, pairs.Request{
		Round:    round,
		Mask:     mask,
		Input:    plan.InputDifference,
		Expected: plan.ExpectedDifference,
		Known:    known,
	}, o.opts.Pairs)

	if err != nil {
		return nil, err
	}

	res, err := recovery.RecoverFragment(ctx, o.shape, recovery.Request{
		Round:    round,
		Mask:     mask,
		Expected: plan.ExpectedDifference,
		Known:    known,
		Filtered: coll.Filtered,
		Total:    len(coll.Unfiltered),
	}, o.opts.Workers)

	if err != nil {
		return nil, err
	}

	cfg := &RoundConfiguration{
		Round:               round,
		Mask:                append(spn.Mask(nil), mask...),
		IsLast:              round == o.shape.Rounds(),
		IsBeforeLast:        round == o.shape.Rounds()-1,
		InputDifference:     plan.InputDifference,
		ExpectedDifference:  plan.ExpectedDifference,
		Probability:         plan.Probability,
		Characteristics:     plan.Characteristics,
		UnfilteredPairs:     coll.Unfiltered,
		FilteredPairs:       coll.Filtered,
		UnfilteredCount:     len(coll.Unfiltered),
		FilteredCount:       len(coll.Filtered),
		PairAttempts:        coll.Attempts,
		Fragment:            res.Key,
		FragmentCount:       res.Count,
		FragmentProbability: res.Probability,
	}

	o.configs = append(o.configs, cfg)
	o.opts.Observer.FragmentRecovered(cfg)
	return cfg, nil
}

func (o *Orchestrator) plan(ctx context.Context, round int, mask spn.Mask) (*search.Plan, error) {
	if o.opts.Cache != nil {
		plan, err := o.opts.Cache.LoadPlan(round, mask)
		if err != nil {
			log.WithError(err).Warningf("failed to load cached plan, searching again")
		} else if plan != nil {
			log.WithFields(log.Fields{
				"round": round,
				"mask":  mask.String(),
			}).Debugf("using cached plan")
			return plan, nil
		}
	}

	plan, err := o.searcher.Plan(ctx, round, mask)
	if err != nil {
		return nil, err
	}

	if o.opts.Cache != nil {
		if err := o.opts.Cache.StorePlan(plan); err != nil {
			log.WithError(err).Warningf("failed to cache plan")
		}
	}

	return plan, nil
}
