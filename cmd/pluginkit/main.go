// Command pluginkit is a developer CLI over the pluginkit helpers: country
// and phone lookups, geo-IP, exports, colour sets, config overrides and
// edition comparisons.
package main

import (
	"fmt"
	"os"

	"pluginkit/cmd/pluginkit/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
