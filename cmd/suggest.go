package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli"
	"github.com/xrash/smetrics"
)

// minSimilarity is the Jaro-Winkler score a choice needs to be suggested.
const minSimilarity = 0.8

// suggest returns the entries of `choices` that look like a typo of `name`,
// best match first. Equal scores keep the order of `choices`.
func suggest(name string, choices []string) []string {
	type match struct {
		choice string
		score  float64
	}

	matches := []match{}
	for _, choice := range choices {
		score := smetrics.JaroWinkler(name, choice, 0.7, 4)
		if score >= minSimilarity {
			matches = append(matches, match{choice, score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	names := []string{}
	for _, m := range matches {
		names = append(names, m.choice)
	}

	return names
}

// suggestCommands works like suggest, but also matches aliases and always
// returns the real command name.
func suggestCommands(name string, cmds []cli.Command) []string {
	owners := map[string]string{}
	choices := []string{}
	for _, cmd := range cmds {
		for _, choice := range cmd.Names() {
			owners[choice] = cmd.Name
			choices = append(choices, choice)
		}
	}

	seen := map[string]bool{}
	names := []string{}
	for _, choice := range suggest(name, choices) {
		if owner := owners[choice]; !seen[owner] {
			seen[owner] = true
			names = append(names, owner)
		}
	}

	return names
}

// didYouMean formats `names` as a hint to append to an error message.
func didYouMean(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf(" Did you maybe mean `%s`?", color.GreenString(names[0]))
	default:
		quoted := []string{}
		for _, name := range names {
			quoted = append(quoted, "`"+color.GreenString(name)+"`")
		}

		return " Did you maybe mean one of " + strings.Join(quoted, ", ") + "?"
	}
}

// commandNotFound suggests commands of the app whose lookup failed.
func commandNotFound(ctx *cli.Context, name string) {
	fmt.Printf(
		"`%s` is not a command of `%s`.%s\n",
		color.RedString(name),
		color.YellowString(ctx.App.Name),
		didYouMean(suggestCommands(name, ctx.App.Commands)),
	)
}
