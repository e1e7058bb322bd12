// litestat is the daily batch pipeline for the inspection facility: it
// pulls raw facts from the remote wide-column store, lands them in the
// local parquet lake, refreshes the master catalogs and merges per-glass
// defect statistics.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
