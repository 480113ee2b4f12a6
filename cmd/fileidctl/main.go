// Command fileidctl is a small administrative and debugging CLI over a
// fileid store: drop the backing table, or poke at an index by hand
// (index/stat/mv/rm) without writing a throwaway Go program.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		exitOnError(err)
	}
}

func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
