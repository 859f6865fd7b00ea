package query

import (
	"errors"
	"fmt"

	"github.com/agnivade/levenshtein"

	"github.com/rowql/rowql/operator"
)

var (
	errUnterminatedString = errors.New("query: unterminated string")
	errUnbalancedBraces   = errors.New("query: unbalanced braces")
)

func errUnknownFunction(name string) error {
	best, bestDist := "", 1<<30
	for _, n := range operator.Names() {
		d := levenshtein.ComputeDistance(name, n)
		if d < bestDist {
			best, bestDist = n, d
		}
	}
	if bestDist <= 2 {
		return fmt.Errorf("query: unknown function %q, did you mean %q?", name, best)
	}
	return fmt.Errorf("query: unknown function %q", name)
}

func errWrongArity(name string, got, min, max int) error {
	if max < 0 {
		return fmt.Errorf("query: %q: wrong number of arguments (got %d, want at least %d)", name, got, min)
	}
	return fmt.Errorf("query: %q: wrong number of arguments (got %d, want %d-%d)", name, got, min, max)
}

func errOnceOnly(name string) error {
	return fmt.Errorf("query: %q: expression can only be used once", name)
}

func errTopLevelOnly(name string) error {
	return fmt.Errorf("query: %q: top-level expression only", name)
}

func errDuplicateColumn(name string) error {
	return fmt.Errorf("query: duplicate column name %q", name)
}

func errCircularReference(name string) error {
	return fmt.Errorf("query: circular reference involving column %q", name)
}

func errMultiNameNonPivot() error {
	return errors.New("query: multiple names given for a non-pivot column")
}

func errSpreadOutsidePivot() error {
	return errors.New("query: spread (...) used outside a pivot column")
}

func errUnknownScope(name string) error {
	return fmt.Errorf("query: unknown scope %q", name)
}

func errRequiresPaths(directive string) error {
	return fmt.Errorf("query: %s requires at least one path reference", directive)
}

func errMissingInputPathRef() error {
	return errors.New("query: missing input path reference")
}
