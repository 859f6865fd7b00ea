// Command rowql is the thin entry point: it hands os.Args to cli.Run and
// exits with the resulting code.
package main

import (
	"os"

	"github.com/rowql/rowql/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
