// Command xapers is the personal document indexing CLI.
package main

import (
	"fmt"
	"os"

	"github.com/xapers/xapers/cmd/xapers/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
