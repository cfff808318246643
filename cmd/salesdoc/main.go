// Command salesdoc serves and operates the sales document engine.
package main

import (
	"fmt"
	"os"

	"github.com/xraph/salesdoc/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
