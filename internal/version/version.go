// Package version holds build metadata for the escript CLI. The variables
// can be overridden at build time via -ldflags.
package version

import (
	"strings"

	"github.com/fatih/color"
)

var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is an optional git commit message.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

// String is Version followed by the short commit and the build date when
// they are known.
func String() string {
	var b strings.Builder
	b.WriteString(Version)
	if GitCommit != "" {
		commit := GitCommit
		if len(commit) > 12 {
			commit = commit[:12]
		}
		b.WriteString(" (" + commit + ")")
	}
	if BuildDate != "" {
		b.WriteString(" built " + BuildDate)
	}
	return b.String()
}

// Styled renders Version with each numeric component in its own colour.
func Styled(enabled bool) string {
	parts := []*color.Color{
		color.New(color.FgYellow, color.Bold),
		color.New(color.FgGreen, color.Bold),
		color.New(color.FgBlue, color.Bold),
	}
	core, suffix, _ := strings.Cut(Version, "-")
	nums := strings.SplitN(core, ".", len(parts))
	for i, n := range nums {
		c := parts[i]
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		nums[i] = c.Sprint(n)
	}
	out := strings.Join(nums, ".")
	if suffix != "" {
		out += "-" + suffix
	}
	return out
}
