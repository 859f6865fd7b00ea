// Package cli implements rowql's command-line surface: flag parsing,
// @file inclusion, and the ambient logging/progress/debug wiring layered
// on top of the query directive grammar itself.
package cli

import (
	"flag"
	"fmt"
	"io"
)

// Config holds rowql's ambient flags, separate from the query directive
// tokens that flag.FlagSet leaves as positional arguments.
type Config struct {
	Verbose   bool
	LogFile   string
	Progress  bool
	DebugAST  bool
	Help      bool
}

// NewFlagSet builds the FlagSet that recognizes rowql's ambient flags.
// Every other token — including any "--name[=value]" directive spelling
// directive spelling rowql accepts — is left in FlagSet.Args() for the
// query parser.
func NewFlagSet(name string, out io.Writer) (*flag.FlagSet, *Config) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	cfg := &Config{}
	fs.BoolVar(&cfg.Verbose, "verbose", false, "enable diagnostic logging")
	fs.BoolVar(&cfg.Verbose, "v", false, "shorthand for -verbose")
	fs.StringVar(&cfg.LogFile, "log-file", "", "write verbose logs to this file (rotated) instead of stderr")
	fs.BoolVar(&cfg.Progress, "progress", false, "show a live matched/emitted status line on stderr")
	fs.BoolVar(&cfg.DebugAST, "debug-ast", false, "print the parsed expression forest before evaluation")
	fs.BoolVar(&cfg.Help, "help", false, "print usage and exit")
	fs.BoolVar(&cfg.Help, "h", false, "shorthand for -help")
	return fs, cfg
}

// ParseArgs expands @file inclusions, splits off the ambient flags with
// fs, and returns the remaining query tokens.
func ParseArgs(fs *flag.FlagSet, argv []string) ([]string, error) {
	expanded, err := ExpandArgs(argv)
	if err != nil {
		return nil, err
	}
	if err := fs.Parse(expanded); err != nil {
		return nil, fmt.Errorf("cli: %w", err)
	}
	return fs.Args(), nil
}
