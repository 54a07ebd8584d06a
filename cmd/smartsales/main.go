// Command smartsales runs the sales BI pipeline: it cleans the raw extracts,
// loads the star-schema warehouse, reports repeat-customer revenue and can
// serve the results over HTTP.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
