package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/sahib/dca"
	"github.com/sahib/dca/attack"
	"github.com/sahib/dca/defaults"
	"github.com/sahib/dca/sbox"
	"github.com/sahib/dca/search"
	"github.com/sahib/dca/spn"
	"github.com/sahib/dca/store"
	colorlog "github.com/sahib/dca/util/log"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

// interruptible returns a context that is canceled on ctrl-c.
func interruptible() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)

	go func() {
		select {
		case <-signals:
			log.Warningf("interrupted; stopping")
			cancel()
		case <-ctx.Done():
		}

		signal.Stop(signals)
	}()

	return ctx, cancel
}

func handleSBox(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	shape, err := defaults.Shape(cfg)
	if err != nil {
		return err
	}

	table := sbox.Characterize(shape)
	if !ctx.Bool("entries") {
		return table.Render(os.Stdout, terminalWidth(80) < 4*(spn.SBoxSize+1))
	}

	entries := table.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})

	for _, diff := range entries {
		if diff.Input == 0 {
			continue
		}

		fmt.Printf(
			"%X -> %X  %2d/16  p=%s\n",
			diff.Input, diff.Output, diff.Count,
			humanize.Ftoa(diff.Probability),
		)
	}

	return nil
}

func handleSearch(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	shape, err := defaults.Shape(cfg)
	if err != nil {
		return err
	}

	params, err := searchParams(ctx, cfg)
	if err != nil {
		return err
	}

	round, err := strconv.Atoi(ctx.Args().Get(0))
	if err != nil {
		return ExitCode{BadArgs, fmt.Sprintf("bad round: %s", ctx.Args().Get(0))}
	}

	mask, err := spn.ParseMask(ctx.Args().Get(1), shape.SBoxes())
	if err != nil {
		return err
	}

	searcher, err := search.NewSearcher(shape, sbox.Characterize(shape), params)
	if err != nil {
		return err
	}

	cache, db, err := defaults.OpenCache(cfg, shape, params)
	if err != nil {
		return err
	}

	if cache != nil {
		defer db.Close()
	}

	runCtx, cancel := interruptible()
	defer cancel()

	plan, err := cachedPlan(runCtx, cache, searcher, round, mask)
	if err != nil {
		return err
	}

	fmt.Printf("Round:       %d\n", plan.Round)
	fmt.Printf("S-boxes:     %s\n", plan.Mask)
	fmt.Printf("Policy:      %s\n", plan.Policy)
	fmt.Printf("Input:       %s\n", color.CyanString(shape.FormatBits(plan.InputDifference)))
	fmt.Printf("Expected:    %s\n", color.CyanString(shape.FormatBits(plan.ExpectedDifference)))
	fmt.Printf("Probability: %s\n", humanize.Ftoa(plan.Probability))

	limit := ctx.Int("limit")
	for idx, char := range plan.Characteristics {
		if limit > 0 && idx >= limit {
			fmt.Printf("... and %d more\n", len(plan.Characteristics)-limit)
			break
		}

		fmt.Printf("  %s\n", char)
	}

	return nil
}

// cachedPlan returns the plan from `cache` if there is one, otherwise it
// searches and stores the result. `cache` may be nil.
func cachedPlan(ctx context.Context, cache *store.Cache, searcher *search.Searcher, round int, mask spn.Mask) (*search.Plan, error) {
	if cache != nil {
		plan, err := cache.LoadPlan(round, mask)
		if err != nil {
			log.WithError(err).Warningf("failed to load cached plan, searching again")
		} else if plan != nil {
			return plan, nil
		}
	}

	plan, err := searcher.Plan(ctx, round, mask)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		if err := cache.StorePlan(plan); err != nil {
			log.WithError(err).Warningf("failed to cache plan")
		}
	}

	return plan, nil
}

func handleEncrypt(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	shape, err := defaults.Shape(cfg)
	if err != nil {
		return err
	}

	keys, err := parseSubkeys(ctx.String("keys"), shape)
	if err != nil {
		return err
	}

	cipher, err := spn.NewCipher(shape, keys)
	if err != nil {
		return err
	}

	for _, arg := range ctx.Args() {
		block, err := parseBlock(arg, shape)
		if err != nil {
			return err
		}

		var out spn.Block
		if ctx.Bool("decrypt") {
			out = cipher.DecryptBlock(block)
		} else {
			out = cipher.EncryptBlock(block)
		}

		fmt.Printf("%s -> %s\n", formatHex(block, shape), formatHex(out, shape))
	}

	return nil
}

func targetKeys(ctx *cli.Context, shape *spn.Shape) ([]spn.Block, error) {
	if raw := ctx.String("keys"); raw != "" {
		return parseSubkeys(raw, shape)
	}

	seed := ctx.Int64("key-seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return spn.RandomSubkeys(shape, rand.New(rand.NewSource(seed))), nil
}

type finisher interface {
	Finish()
}

func handleAttack(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	shape, err := defaults.Shape(cfg)
	if err != nil {
		return err
	}

	opts, err := defaults.AttackOptions(cfg, shape)
	if err != nil {
		return err
	}

	if count := ctx.Int("pairs"); count > 0 {
		opts.Pairs.Count = count
	}

	if seed := ctx.Int64("seed"); seed != 0 {
		opts.Seed = seed
	}

	keys, err := targetKeys(ctx, shape)
	if err != nil {
		return err
	}

	cipher, err := spn.NewCipher(shape, keys)
	if err != nil {
		return err
	}

	cache, db, err := defaults.OpenCache(cfg, shape, opts.Search)
	if err != nil {
		return err
	}

	if cache != nil {
		defer db.Close()
		opts.Cache = cache
	}

	if colorlog.IsTerminal(os.Stderr) && !ctx.Bool("no-progress") {
		opts.Observer = newProgressObserver(os.Stderr, shape)
	} else {
		opts.Observer = &printObserver{w: os.Stdout, shape: shape}
	}

	orch, err := attack.NewOrchestrator(shape, cipher, opts)
	if err != nil {
		return err
	}

	runCtx, cancel := interruptible()
	defer cancel()

	report, err := orch.Run(runCtx)
	if fin, ok := opts.Observer.(finisher); ok {
		fin.Finish()
	}

	if path := ctx.String("save"); path != "" {
		if saveErr := saveConfigurations(path, orch.Configurations()); saveErr != nil {
			log.WithError(saveErr).Warningf("failed to save round configurations")
		}
	}

	if err != nil {
		return err
	}

	printReport(shape, report, keys)
	return nil
}

func saveConfigurations(path string, cfgs []*attack.RoundConfiguration) error {
	fd, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := attack.SaveConfigurations(fd, cfgs); err != nil {
		fd.Close()
		return err
	}

	return fd.Close()
}

func printReport(shape *spn.Shape, report *attack.Report, keys []spn.Block) {
	fmt.Println()
	for _, cfg := range report.Configurations {
		fmt.Printf(
			"round %d %-6s  input %s  expected %s  p=%s  pairs %s/%s  hits %s\n",
			cfg.Round,
			cfg.Mask,
			formatHex(cfg.InputDifference, shape),
			formatHex(cfg.ExpectedDifference, shape),
			humanize.Ftoa(cfg.Probability),
			humanize.Comma(int64(cfg.FilteredCount)),
			humanize.Comma(int64(cfg.UnfilteredCount)),
			humanize.Comma(int64(cfg.FragmentCount)),
		)
	}

	fmt.Println()

	allOk := true
	for idx, key := range report.Subkeys {
		ok := key == keys[idx]
		allOk = allOk && ok
		fmt.Printf(
			"k%d  %s  %s  %s\n",
			idx+1,
			color.CyanString(shape.FormatBits(key)),
			formatHex(key, shape),
			checkmarkify(ok),
		)
	}

	fmt.Printf(
		"\nall subkeys correct: %s (took %s, %d first round trials)\n",
		yesify(allOk), report.Took.Round(time.Millisecond), report.FirstRoundTrials,
	)
}

func handleConfigGet(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	key := ctx.Args().Get(0)
	if err := checkKey(cfg, key); err != nil {
		return err
	}

	fmt.Println(cfg.Uncast(key))
	return nil
}

func handleConfigSet(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	key := ctx.Args().Get(0)
	if err := checkKey(cfg, key); err != nil {
		return err
	}

	val, err := cfg.Cast(key, ctx.Args().Get(1))
	if err != nil {
		return ExitCode{BadArgs, fmt.Sprintf("bad value for %s: %v", key, err)}
	}

	if err := cfg.Set(key, val); err != nil {
		return ExitCode{BadArgs, fmt.Sprintf("failed to set %s: %v", key, err)}
	}

	return defaults.SaveConfig(configPath(ctx), cfg)
}

func handleConfigList(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	for _, key := range cfg.Keys() {
		fmt.Printf("%s: %s\n", color.GreenString(key), cfg.Uncast(key))
	}

	return nil
}

func handleConfigDoc(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	keys := cfg.Keys()
	if ctx.NArg() > 0 {
		keys = []string{ctx.Args().Get(0)}
	}

	for _, key := range keys {
		if err := checkKey(cfg, key); err != nil {
			return err
		}

		entry := cfg.GetDefault(key)
		fmt.Printf("%s:\n", color.GreenString(key))
		fmt.Printf("  Default:       %v\n", entry.Default)
		fmt.Printf("  Documentation: %s\n", strings.TrimSpace(entry.Docs))
		fmt.Printf("  Needs restart: %s\n", yesify(entry.NeedsRestart))
	}

	return nil
}

func handleVersion(ctx *cli.Context) error {
	fmt.Printf("dca %s (rev %s, built %s)\n", dca.VersionString(), dca.GitRev, dca.BuildTime)
	return nil
}
