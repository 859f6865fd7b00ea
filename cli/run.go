package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rowql/rowql"
	"github.com/rowql/rowql/csvout"
	"github.com/rowql/rowql/input"
	"github.com/rowql/rowql/query"
	"github.com/rowql/rowql/rowengine"
)

// usageSpec is the banner shown by help/usage and by a flag parse error.
var usageSpec = &Spec{
	Name:  "rowql",
	Usage: "rowql [flags] <query-token>...",
	Short: "query semi-structured XML, JSON, log, and CSV/TSV input and emit CSV",
	Long: "Positional arguments are query tokens: bareword column paths, " +
		"expressions, and directives such as in(path), where(pred), sort(...), " +
		"pivot(names,values), first(n), top(n), distinct, join(path). " +
		"A token beginning or ending with '@' names an argument-inclusion file.",
}

// Run is cmd/rowql's entire program body: parse flags, parse the query,
// open inputs, drive the row engine, and write CSV to stdout. It returns
// the process exit code.
func Run(argv []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs, cfg := NewFlagSet("rowql", stderr)
	queryArgs, err := ParseArgs(fs, argv)
	if err != nil {
		usageSpec.WriteUsage(stderr)
		return 2
	}
	if cfg.Help {
		usageSpec.WriteUsage(stdout)
		return 0
	}

	logger, err := NewLogger(cfg.Verbose, cfg.LogFile)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer logger.Sync()

	spec, err := query.Parse(queryArgs)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if spec.Help {
		usageSpec.WriteUsage(stdout)
		return 0
	}

	if cfg.DebugAST {
		WriteDebugAST(stderr, spec)
	}
	logger.Sugar().Debugw("parsed query",
		"columns", len(spec.Columns), "pivot", spec.Pivot != nil, "join", spec.JoinPath != "")

	eng := rowengine.New(spec)

	if spec.JoinPath != "" {
		joinDriver, closeJoin, err := openPath(spec.JoinPath, spec.JoinHeader, nil)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		defer closeJoin()
		if err := eng.BuildJoinIndex(joinDriver); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	}

	mainDriver, closeMain, err := openPath(spec.InPath, spec.InHeader, stdin)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer closeMain()

	w := csvout.New(stdout, 0)
	headerWritten := false
	writeHeaderIfNeeded := func() {
		if headerWritten {
			return
		}
		headerWritten = true
		if spec.OutHeader {
			w.WriteHeader(csvout.ColumnNames(spec))
		}
	}

	progress := NewProgress(cfg.Progress)
	progress.Matched = eng.MatchedCount
	progress.Emitted = eng.OutputCount
	progress.Start()
	defer progress.Stop()

	eng.Emit = func(vals []rowql.Value) {
		writeHeaderIfNeeded()
		w.WriteRow(vals)
	}

	if err := eng.Run(mainDriver); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	writeHeaderIfNeeded()
	if err := w.Flush(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	logger.Sugar().Debugw("run complete", "matched", eng.MatchedCount(), "output", eng.OutputCount())
	return 0
}

// openPath opens name (or stdin when name is empty) and wraps it in
// input.Open's auto-detecting driver. The returned close func is always
// safe to defer, even for stdin.
func openPath(name string, header bool, stdinReader io.Reader) (rowengine.Driver, func() error, error) {
	var r io.Reader
	closeFn := func() error { return nil }
	if name == "" {
		if stdinReader == nil {
			stdinReader = os.Stdin
		}
		r = stdinReader
	} else {
		f, err := os.Open(name)
		if err != nil {
			return nil, nil, fmt.Errorf("cli: opening %q: %w", name, err)
		}
		r = f
		closeFn = f.Close
	}
	drive, err := input.Open(r, input.Options{Header: header})
	if err != nil {
		return nil, nil, err
	}
	return drive, closeFn, nil
}
