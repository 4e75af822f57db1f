package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/sahib/dca"
	colorlog "github.com/sahib/dca/util/log"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func init() {
	log.SetOutput(os.Stderr)
	log.SetLevel(log.InfoLevel)
	log.SetFormatter(colorlog.NewFormatter(os.Stderr))
}

func formatGroup(category string) string {
	return strings.ToUpper(category) + " COMMANDS"
}

// logFile is the file opened by --log-path, if any.
var logFile *os.File

// closeLogFile closes the current log file and logs to stderr again.
func closeLogFile() {
	if logFile == nil {
		return
	}

	log.SetOutput(os.Stderr)
	log.SetFormatter(colorlog.NewFormatter(os.Stderr))
	if err := logFile.Close(); err != nil {
		log.Warningf("failed to close log file: %v", err)
	}

	logFile = nil
}

func setLogPath(path string) error {
	closeLogFile()

	switch path {
	case "stdout":
		log.SetOutput(os.Stdout)
		log.SetFormatter(colorlog.NewFormatter(os.Stdout))
	case "stderr":
		log.SetOutput(os.Stderr)
		log.SetFormatter(colorlog.NewFormatter(os.Stderr))
	default:
		fd, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}

		logFile = fd
		log.SetOutput(fd)
		log.SetFormatter(&colorlog.FancyLogFormatter{})
	}

	return nil
}

func setupLogging(ctx *cli.Context) error {
	if err := setLogPath(ctx.GlobalString("log-path")); err != nil {
		return ExitCode{BadArgs, fmt.Sprintf("bad log path: %v", err)}
	}

	level, err := colorlog.ParseLevel(ctx.GlobalString("log-level"))
	if err != nil {
		return ExitCode{BadArgs, err.Error()}
	}

	log.SetLevel(level)
	return nil
}

////////////////////////////
// Commandline definition //
////////////////////////////

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "dca"
	app.Usage = "Differential cryptanalysis of small substitution-permutation ciphers"
	app.Version = fmt.Sprintf("%s [buildtime: %s]", dca.VersionString(), dca.BuildTime)
	app.CommandNotFound = commandNotFound
	app.Before = setupLogging

	analysisGroup := formatGroup("analysis")
	cipherGroup := formatGroup("cipher")
	miscGroup := formatGroup("misc")

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config,c",
			Usage:  "Path of the config file (created with defaults if missing)",
			EnvVar: "DCA_CONFIG",
		},
		cli.StringFlag{
			Name:   "log-level,L",
			Usage:  "One of debug, info, warn or error",
			Value:  "info",
			EnvVar: "DCA_LOG_LEVEL",
		},
		cli.StringFlag{
			Name:   "log-path,l",
			Usage:  "Where to output the log. May be 'stderr' (default), 'stdout' or a file",
			Value:  "stderr",
			EnvVar: "DCA_LOG",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:     "sbox",
			Aliases:  []string{"s", "ddt"},
			Category: analysisGroup,
			Usage:    "Print the difference distribution table of the configured S-box",
			Action:   handleSBox,
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "entries,e",
					Usage: "List all differentials ordered by count instead",
				},
			},
		},
		{
			Name:        "search",
			Aliases:     []string{"trail"},
			Category:    analysisGroup,
			Usage:       "Find the best differential in front of a round",
			ArgsUsage:   "<round> <s-box indices, e.g. 0,2>",
			Description: "Searches characteristics for every target difference of the S-boxes\n   and prints the plan an attack on <round> would use.",
			Action:      withArgCheck(needAtLeast(2), handleSearch),
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "policy,p",
					Usage: "Override search.policy (exhaustive, best-first or greedy)",
				},
				cli.IntFlag{
					Name:  "limit,n",
					Usage: "Print at most this many characteristics (0 for all)",
					Value: 10,
				},
			},
		},
		{
			Name:        "attack",
			Aliases:     []string{"a", "crack"},
			Category:    analysisGroup,
			Usage:       "Recover all subkeys of a freshly keyed cipher",
			Description: "Keys the configured cipher with --keys (or random subkeys) and recovers\n   every subkey using chosen plaintext pairs only.",
			Action:      handleAttack,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "keys,k",
					Usage: "Comma separated subkeys k1..k[R+1] in hex",
				},
				cli.Int64Flag{
					Name:  "key-seed",
					Usage: "Seed for random subkeys (0 for time based)",
				},
				cli.Int64Flag{
					Name:  "seed,s",
					Usage: "Override pairs.seed",
				},
				cli.IntFlag{
					Name:  "pairs,p",
					Usage: "Override pairs.count",
				},
				cli.StringFlag{
					Name:  "save",
					Usage: "Write the round configurations as YAML to this path",
				},
				cli.BoolFlag{
					Name:  "no-progress",
					Usage: "Do not show a progress bar",
				},
			},
		},
		{
			Name:      "encrypt",
			Aliases:   []string{"e"},
			Category:  cipherGroup,
			Usage:     "Encrypt (or decrypt) blocks with the configured cipher",
			ArgsUsage: "<block>...",
			Action:    withArgCheck(needAtLeast(1), handleEncrypt),
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "keys,k",
					Usage: "Comma separated subkeys k1..k[R+1] in hex",
				},
				cli.BoolFlag{
					Name:  "decrypt,d",
					Usage: "Decrypt instead",
				},
			},
		},
		{
			Name:     "config",
			Aliases:  []string{"cfg"},
			Category: miscGroup,
			Usage:    "Access, list and modify configuration values",
			Subcommands: []cli.Command{
				{
					Name:   "list",
					Usage:  "Show all config keys and their values",
					Action: handleConfigList,
				},
				{
					Name:      "get",
					Usage:     "Print the value of a config key",
					ArgsUsage: "<key>",
					Action:    withArgCheck(needAtLeast(1), handleConfigGet),
				},
				{
					Name:      "set",
					Usage:     "Set a config key and save the config",
					ArgsUsage: "<key> <value>",
					Action:    withArgCheck(needAtLeast(2), handleConfigSet),
				},
				{
					Name:      "doc",
					Usage:     "Show the documentation of all or one config key",
					ArgsUsage: "[<key>]",
					Action:    handleConfigDoc,
				},
			},
		},
		{
			Name:        "cache",
			Category:    miscGroup,
			Usage:       "Inspect, clear, export and import the plan cache",
			Description: "Plans are stored per fingerprint of the cipher and the search parameters.\n   list and clear only see the plans matching the current config.",
			Subcommands: []cli.Command{
				{
					Name:   "list",
					Usage:  "List the cached plans of the current config",
					Action: handleCacheList,
					Flags: []cli.Flag{
						cli.StringFlag{
							Name:  "policy,p",
							Usage: "Use this search policy instead of search.policy",
						},
					},
				},
				{
					Name:   "clear",
					Usage:  "Remove the cached plans of the current config",
					Action: handleCacheClear,
					Flags: []cli.Flag{
						cli.StringFlag{
							Name:  "policy,p",
							Usage: "Use this search policy instead of search.policy",
						},
					},
				},
				{
					Name:      "export",
					Usage:     "Write all cached plans to a file",
					ArgsUsage: "<path>",
					Action:    withArgCheck(needAtLeast(1), handleCacheExport),
					Flags: []cli.Flag{
						cli.BoolFlag{
							Name:  "native",
							Usage: "Write a backup of the whole database in the format of its backend",
						},
					},
				},
				{
					Name:      "import",
					Usage:     "Read plans written by export",
					ArgsUsage: "<path>",
					Action:    withArgCheck(needAtLeast(1), handleCacheImport),
					Flags: []cli.Flag{
						cli.BoolFlag{
							Name:  "native",
							Usage: "Read a backup written with export --native",
						},
					},
				},
			},
		},
		{
			Name:     "version",
			Category: miscGroup,
			Usage:    "Show the version and build info",
			Action:   handleVersion,
		},
	}

	return app
}

// RunCmdline starts the dca command line tool.
func RunCmdline(args []string) int {
	defer closeLogFile()

	if err := newApp().Run(args); err != nil {
		code := exitCodeFor(err)
		log.Errorf("%v", err)
		return code
	}

	return Success
}
