// Command sheetdiff compares two CSV or XLSX exports of a sheet and prints
// the changes the monitor would report between them.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
