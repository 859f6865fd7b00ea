package cli

import (
	"fmt"
	"io"
)

// Spec describes a single-command banner: rowql has no subcommands, so
// there's no child/parent tree or flag-inheritance to model, just a name,
// one-line usage, and a longer description printed by help/usage.
type Spec struct {
	Name  string
	Usage string
	Short string
	Long  string
}

// WriteUsage prints the banner shown by the help/usage directive before
// exiting 0.
func (s *Spec) WriteUsage(w io.Writer) {
	fmt.Fprintf(w, "%s: %s\n\n", s.Name, s.Short)
	fmt.Fprintf(w, "usage: %s\n", s.Usage)
	if s.Long != "" {
		fmt.Fprintf(w, "\n%s\n", s.Long)
	}
}
