package cmd

import (
	"fmt"
	"os"

	humanize "github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/sahib/config"
	"github.com/sahib/dca/defaults"
	"github.com/sahib/dca/search"
	"github.com/sahib/dca/spn"
	"github.com/sahib/dca/store"
	"github.com/urfave/cli"
)

// searchParams reads the search parameters from `cfg` and applies --policy.
func searchParams(ctx *cli.Context, cfg *config.Config) (search.Params, error) {
	params, err := defaults.SearchParams(cfg)
	if err != nil {
		return params, err
	}

	name := ctx.String("policy")
	if name == "" {
		return params, nil
	}

	if params.Policy, err = search.ParsePolicy(name); err != nil {
		return params, ExitCode{BadArgs, err.Error() + "." + didYouMean(suggest(name, search.PolicyNames()))}
	}

	return params, nil
}

// openCache opens the plan cache for the configured cipher. Unlike the
// attack, the cache commands fail if the cache is disabled.
func openCache(ctx *cli.Context) (*store.Cache, store.Database, *spn.Shape, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	shape, err := defaults.Shape(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	params, err := searchParams(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	cache, db, err := defaults.OpenCache(cfg, shape, params)
	if err != nil {
		return nil, nil, nil, err
	}

	if cache == nil {
		return nil, nil, nil, ExitCode{
			Code:    BadConfiguration,
			Message: "the plan cache is disabled; enable it with `dca config set store.enabled true`",
		}
	}

	return cache, db, shape, nil
}

func handleCacheList(ctx *cli.Context) error {
	cache, db, shape, err := openCache(ctx)
	if err != nil {
		return err
	}

	defer db.Close()

	plans, err := cache.Plans()
	if err != nil {
		return err
	}

	fmt.Printf("Fingerprint: %s\n", color.CyanString(cache.Fingerprint()))
	if len(plans) == 0 {
		fmt.Println("No cached plans.")
		return nil
	}

	for _, plan := range plans {
		fmt.Printf(
			"round %d %-6s  input %s  expected %s  p=%s  paths %s  (%s)\n",
			plan.Round,
			plan.Mask,
			formatHex(plan.InputDifference, shape),
			formatHex(plan.ExpectedDifference, shape),
			humanize.Ftoa(plan.Probability),
			humanize.Comma(int64(len(plan.Characteristics))),
			plan.Policy,
		)
	}

	return nil
}

func handleCacheClear(ctx *cli.Context) error {
	cache, db, _, err := openCache(ctx)
	if err != nil {
		return err
	}

	defer db.Close()

	removed, err := cache.Clear()
	if err != nil {
		return err
	}

	fmt.Printf("Removed %d plans of %s.\n", removed, cache.Fingerprint())
	return nil
}

func handleCacheExport(ctx *cli.Context) error {
	cache, db, _, err := openCache(ctx)
	if err != nil {
		return err
	}

	defer db.Close()

	path := ctx.Args().Get(0)
	fd, err := os.Create(path)
	if err != nil {
		return err
	}

	if ctx.Bool("native") {
		if err := db.Export(fd); err != nil {
			fd.Close()
			return err
		}

		fmt.Printf("Wrote a native backup of the cache to %s.\n", path)
		return fd.Close()
	}

	n, err := cache.Dump(fd)
	if err != nil {
		fd.Close()
		return err
	}

	fmt.Printf("Wrote %d plans to %s.\n", n, path)
	return fd.Close()
}

func handleCacheImport(ctx *cli.Context) error {
	cache, db, _, err := openCache(ctx)
	if err != nil {
		return err
	}

	defer db.Close()

	path := ctx.Args().Get(0)
	fd, err := os.Open(path)
	if err != nil {
		return err
	}

	defer fd.Close()

	if ctx.Bool("native") {
		if err := db.Import(fd); err != nil {
			return err
		}

		fmt.Printf("Loaded the native backup %s.\n", path)
		return nil
	}

	n, err := cache.Restore(fd)
	if err != nil {
		return err
	}

	fmt.Printf("Restored %d plans from %s.\n", n, path)
	return nil
}
