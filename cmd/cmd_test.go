package cmd

import (
	"errors"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/sahib/dca/defaults"
	ie "github.com/sahib/dca/errors"
	"github.com/sahib/dca/search"
	"github.com/sahib/dca/spn"
	"github.com/sahib/dca/util/testutil"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

func TestExitCodes(t *testing.T) {
	require.Equal(t, BadArgs, exitCodeFor(ExitCode{BadArgs, "x"}))
	require.Equal(t, BadConfiguration, exitCodeFor(ie.Configurationf("bad")))
	require.Equal(t, SearchExhausted, exitCodeFor(&ie.AttackError{
		Round: 4,
		Err:   &ie.SearchExhaustionError{Round: 4},
	}))
	require.Equal(t, KeyNotRecoverable, exitCodeFor(&ie.KeyNotRecoverableError{Subkey: 2}))
	require.Equal(t, UnknownError, exitCodeFor(errors.New("boom")))
}

func TestParseBlock(t *testing.T) {
	shape, err := spn.HeysShape(4)
	require.Nil(t, err)

	for _, tc := range []struct {
		in  string
		out spn.Block
	}{
		{"0x1234", 0x1234},
		{"abcd", 0xABCD},
		{"0b0001 0010", 0x12},
	} {
		block, err := parseBlock(tc.in, shape)
		require.Nil(t, err, tc.in)
		require.Equal(t, tc.out, block)
	}

	_, err = parseBlock("0x12345", shape)
	require.NotNil(t, err)

	keys, err := parseSubkeys("0x1234,abcd,5678,9abc,def0", shape)
	require.Nil(t, err)
	require.Equal(t, testutil.HeysKeys, keys)

	_, err = parseSubkeys("1,2", shape)
	require.True(t, ie.IsConfigurationError(err))
}

func TestSuggestions(t *testing.T) {
	cmds := newApp().Commands

	require.Equal(t, []string{"attack"}, suggestCommands("atack", cmds))
	require.Equal(t, []string{"search"}, suggestCommands("serach", cmds))
	require.Equal(t, []string{"sbox"}, suggestCommands("sbx", cmds))
	require.Empty(t, suggestCommands("xyzxyz", cmds))

	require.Equal(t, []string{"greedy"}, suggest("gredy", search.PolicyNames()))
	require.Equal(t, "best-first", suggest("bestfirst", search.PolicyNames())[0])

	cfg, err := defaults.NewDefaultConfig()
	require.Nil(t, err)
	require.Equal(t, "cipher.rounds", suggest("cipher.round", cfg.Keys())[0])

	require.Equal(t, "", didYouMean(nil))
	require.Contains(t, didYouMean([]string{"a", "b"}), "one of")
}

func TestBadNamesExitCodes(t *testing.T) {
	dir := testutil.TempDir(t)
	defer testutil.Remover(t, dir)

	path := filepath.Join(dir, "config.yml")
	run := func(args ...string) int {
		return RunCmdline(append([]string{"dca", "--config", path, "--log-level", "error"}, args...))
	}

	require.Equal(t, BadArgs, run("search", "--policy", "gredy", "3", "0,2"))
	require.Equal(t, BadArgs, run("config", "get", "cipher.round"))
	require.Equal(t, BadArgs, run("config", "set", "pairs.cont", "10"))
	require.Equal(t, BadArgs, run("config", "doc", "search.polcy"))
	require.Equal(t, Success, run("ddt", "--entries"))
}

func TestRunCommands(t *testing.T) {
	dir := testutil.TempDir(t)
	defer testutil.Remover(t, dir)

	path := filepath.Join(dir, "config.yml")
	run := func(args ...string) int {
		return RunCmdline(append([]string{"dca", "--config", path, "--log-level", "error"}, args...))
	}

	require.Equal(t, Success, run("version"))
	require.Equal(t, Success, run("sbox"))
	require.Equal(t, Success, run("config", "set", "cipher.rounds", "3"))

	cfg, err := defaults.OpenMigratedConfig(path)
	require.Nil(t, err)
	require.Equal(t, int64(3), cfg.Int("cipher.rounds"))

	require.Equal(t, BadArgs, run("config", "get", "cipher.nope"))
	require.Equal(t, Success, run("encrypt", "--keys", "1,2,3,4", "0x1234"))
	require.Equal(t, BadConfiguration, run("encrypt", "--keys", "1,2", "0x1234"))
	require.Equal(t, Success, run("search", "3", "0,2"))
	require.Equal(t, BadConfiguration, run("search", "1", "0,2"))
	require.Equal(t, BadArgs, run("search", "3"))
	require.Equal(t, Success, run(
		"attack", "--no-progress", "--seed", "42", "--pairs", "10000",
		"--keys", "0xC0DE,0x2BAD,0x7331,0x0F0F",
	))
}

func TestNeedAtLeast(t *testing.T) {
	called := false
	action := withArgCheck(func(ctx *cli.Context) int { return BadArgs }, func(ctx *cli.Context) error {
		called = true
		return nil
	})

	err := action(nil)
	require.Equal(t, BadArgs, exitCodeFor(err))
	require.False(t, called)
}

func TestCacheCommands(t *testing.T) {
	dir := testutil.TempDir(t)
	defer testutil.Remover(t, dir)

	path := filepath.Join(dir, "config.yml")
	run := func(args ...string) int {
		return RunCmdline(append([]string{"dca", "--config", path, "--log-level", "error"}, args...))
	}

	countPlans := func() int {
		cfg, err := defaults.OpenMigratedConfig(path)
		require.Nil(t, err)

		shape, err := defaults.Shape(cfg)
		require.Nil(t, err)

		params, err := defaults.SearchParams(cfg)
		require.Nil(t, err)

		cache, db, err := defaults.OpenCache(cfg, shape, params)
		require.Nil(t, err)
		defer db.Close()

		plans, err := cache.Plans()
		require.Nil(t, err)
		return len(plans)
	}

	require.Equal(t, BadConfiguration, run("cache", "list"))
	require.Equal(t, Success, run("config", "set", "cipher.rounds", "3"))
	require.Equal(t, Success, run("config", "set", "store.path", filepath.Join(dir, "cache")))
	require.Equal(t, Success, run("config", "set", "store.enabled", "true"))

	require.Equal(t, Success, run("search", "3", "0,2"))
	require.Equal(t, Success, run("search", "3", "1,3"))
	require.Equal(t, 2, countPlans())
	require.Equal(t, Success, run("cache", "list"))

	dump := filepath.Join(dir, "plans.dump")
	require.Equal(t, Success, run("cache", "export", dump))
	require.Equal(t, Success, run("cache", "clear"))
	require.Equal(t, 0, countPlans())

	require.Equal(t, Success, run("cache", "import", dump))
	require.Equal(t, 2, countPlans())

	// A native backup can be loaded into a fresh store:
	backup := filepath.Join(dir, "plans.backup")
	require.Equal(t, Success, run("cache", "export", "--native", backup))
	require.Equal(t, Success, run("config", "set", "store.path", filepath.Join(dir, "other")))
	require.Equal(t, 0, countPlans())
	require.Equal(t, Success, run("cache", "import", "--native", backup))
	require.Equal(t, 2, countPlans())

	require.Equal(t, BadArgs, run("cache", "list", "--policy", "gredy"))
	require.Equal(t, BadArgs, run("cache", "import"))
	require.Equal(t, UnknownError, run("cache", "import", filepath.Join(dir, "missing")))
}

func TestLogFileIsClosed(t *testing.T) {
	dir := testutil.TempDir(t)
	defer testutil.Remover(t, dir)

	logPath := filepath.Join(dir, "dca.log")
	code := RunCmdline([]string{
		"dca", "--config", filepath.Join(dir, "config.yml"), "--log-path", logPath,
		"config", "get", "cipher.nope",
	})

	require.Equal(t, BadArgs, code)
	require.Nil(t, logFile)

	data, err := ioutil.ReadFile(logPath)
	require.Nil(t, err)
	require.Contains(t, string(data), "no such config key")

	require.Nil(t, setLogPath(logPath))
	fd := logFile
	require.NotNil(t, fd)

	require.Nil(t, setLogPath("stderr"))
	require.Nil(t, logFile)
	require.NotNil(t, fd.Close())
}
