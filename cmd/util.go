package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/sahib/config"
	"github.com/sahib/dca/defaults"
	ie "github.com/sahib/dca/errors"
	"github.com/sahib/dca/spn"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	terminal "github.com/wayneashleyberry/terminal-dimensions"
)

// ExitCode is an error that maps the error interface to a specific error
// message and a unix exit code
type ExitCode struct {
	Code    int
	Message string
}

func (err ExitCode) Error() string {
	return err.Message
}

// exitCodeFor picks the exit code matching the kind of `err`.
func exitCodeFor(err error) int {
	if code, ok := err.(ExitCode); ok {
		return code.Code
	}

	switch ie.Kind(err) {
	case "none":
		return Success
	case "configuration":
		return BadConfiguration
	case "search-exhaustion":
		return SearchExhausted
	case "insufficient-signal":
		return InsufficientSignal
	case "key-not-recoverable":
		return KeyNotRecoverable
	case "canceled":
		return Interrupted
	default:
		return UnknownError
	}
}

func yesify(val bool) string {
	if val {
		return color.GreenString("yes")
	}

	return color.RedString("no")
}

func checkmarkify(val bool) string {
	if val {
		return color.GreenString("✔")
	}

	return color.RedString("✘")
}

// terminalWidth returns the width of the terminal or `fallback`.
func terminalWidth(fallback int) int {
	width, err := terminal.Width()
	if err != nil || width == 0 {
		return fallback
	}

	return int(width)
}

type checkFunc func(ctx *cli.Context) int

func withArgCheck(checker checkFunc, handler cli.ActionFunc) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		if code := checker(ctx); code != Success {
			return ExitCode{Code: code, Message: "bad arguments"}
		}

		return handler(ctx)
	}
}

func needAtLeast(min int) checkFunc {
	return func(ctx *cli.Context) int {
		if ctx.NArg() < min {
			if min == 1 {
				log.Warningf("Need at least %d argument.", min)
			} else {
				log.Warningf("Need at least %d arguments.", min)
			}

			if err := cli.ShowCommandHelp(ctx, ctx.Command.Name); err != nil {
				log.Warningf("Failed to display --help: %v", err)
			}

			return BadArgs
		}

		return Success
	}
}

// configPath returns the path of the config in use.
func configPath(ctx *cli.Context) string {
	if path := ctx.GlobalString("config"); path != "" {
		return path
	}

	return defaults.DefaultConfigPath()
}

func loadConfig(ctx *cli.Context) (*config.Config, error) {
	return defaults.OpenMigratedConfig(configPath(ctx))
}

// checkKey fails with a hint to similar keys if `key` is not in `cfg`.
func checkKey(cfg *config.Config, key string) error {
	if cfg.IsValidKey(key) {
		return nil
	}

	return ExitCode{
		Code:    BadArgs,
		Message: fmt.Sprintf("no such config key: %s.%s", key, didYouMean(suggest(key, cfg.Keys()))),
	}
}

// parseBlock parses a block given in hex (with or without 0x) or binary
// with a 0b prefix.
func parseBlock(s string, shape *spn.Shape) (spn.Block, error) {
	s = strings.Replace(strings.TrimSpace(s), " ", "", -1)

	base := 16
	switch {
	case strings.HasPrefix(s, "0b"):
		s, base = s[2:], 2
	case strings.HasPrefix(s, "0x"):
		s = s[2:]
	}

	val, err := strconv.ParseUint(s, base, 16)
	if err != nil {
		return 0, ie.Configurationf("bad block `%s`: %v", s, err)
	}

	if block := spn.Block(val); block&^shape.BlockMask() == 0 {
		return block, nil
	}

	return 0, ie.Configurationf("block `%s` has more than %d bits", s, shape.Bits())
}

// parseSubkeys parses a comma separated key schedule k1..k[R+1].
func parseSubkeys(s string, shape *spn.Shape) ([]spn.Block, error) {
	keys := []spn.Block{}
	for _, field := range strings.Split(s, ",") {
		key, err := parseBlock(field, shape)
		if err != nil {
			return nil, err
		}

		keys = append(keys, key)
	}

	if len(keys) != shape.Subkeys() {
		return nil, ie.Configurationf("need %d subkeys, got %d", shape.Subkeys(), len(keys))
	}

	return keys, nil
}

func formatHex(x spn.Block, shape *spn.Shape) string {
	return fmt.Sprintf("0x%0*X", shape.SBoxes(), uint16(x))
}
