// Package cliflags rewrites the legacy concatenated single-dash options
// (e.g. "-e10k", "-d2", "-f1") into the long double-dash form pflag
// expects. Running this pass ahead of cobra.Execute lets the command layer
// stay pure pflag/cobra while still accepting the historical spellings.
package cliflags

import (
	"regexp"
	"strings"

	"github.com/spf13/pflag"
)

// Common holds the option values every simulator command accepts.
type Common struct {
	SettingsFile string
	CyclesStr    string
	DebugLevel   int
	Mix          bool
}

// AddCommonFlags registers the shared options on a command's flag set.
func AddCommonFlags(fs *pflag.FlagSet, c *Common) {
	fs.StringVar(&c.SettingsFile, "settings", "", "machine-setting file (-M)")
	fs.StringVar(&c.CyclesStr, "cycles", "", "cycle cap, suffix k/m/g (-e)")
	fs.IntVar(&c.DebugLevel, "debug", 0, "debug verbosity 0-4 (-d)")
	fs.BoolVar(&c.Mix, "mix", false, "print instruction-mix statistics (-i)")
}

var (
	cycleRe = regexp.MustCompile(`^-e([0-9]+[kKmMgG]?)$`)
	debugRe = regexp.MustCompile(`^-d([0-4])$`)
)

// prefixed maps a bare single-dash long option to its pflag long-flag
// name. "-dcache-*" is checked before "-d" since it is a longer, more
// specific prefix.
var prefixed = []struct {
	legacy string
	long   string
}{
	{"-dcache-size", "--dcache-size"},
	{"-dcache-way", "--dcache-way"},
	{"-dcache-line", "--dcache-line"},
	{"-dcache-penalty", "--dcache-penalty"},
	{"-dcache-writeback", "--dcache-writeback"},
}

// Preprocess rewrites args in place (returning a new slice) so that every
// legacy single-dash spelling becomes a long flag pflag already knows how
// to parse. Unrecognized arguments pass through unchanged.
func Preprocess(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		out = append(out, rewrite(a))
	}
	return out
}

func rewrite(a string) string {
	for _, p := range prefixed {
		if a == p.legacy || strings.HasPrefix(a, p.legacy+"=") {
			return p.long + strings.TrimPrefix(a, p.legacy)
		}
	}
	switch a {
	case "-i":
		return "--mix"
	case "-m":
		return "--multicycle"
	case "-l":
		return "--pipelog"
	case "-M":
		return "--settings"
	case "-f0":
		return "--forward=0"
	case "-f1":
		return "--forward=1"
	}
	if m := cycleRe.FindStringSubmatch(a); m != nil {
		return "--cycles=" + m[1]
	}
	if m := debugRe.FindStringSubmatch(a); m != nil {
		return "--debug=" + m[1]
	}
	return a
}
