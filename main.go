// main is the entrypoint for the pulsegrid CLI.
package main

import (
	"fmt"
	"os"

	"github.com/pulsegrid/pulsegrid/cmd"
	"github.com/pulsegrid/pulsegrid/internal/iocache"
)

func main() {
	cmd.SetCacheManager(iocache.Manager)

	err := cmd.Execute()

	// Stores are initialized lazily by the commands, so closing here covers
	// every code path including early failures.
	iocache.CloseCaching()

	if perr := cmd.StopProfiling(); perr != nil {
		fmt.Fprintln(os.Stderr, "⚠️ ", perr)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}
