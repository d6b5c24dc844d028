// Command kestreldemo is a small CLI that boots a kestrel Authority,
// mounts a Scope, and runs a handful of Tasks exercising Workers,
// Handlers, and Streams — either printing a one-shot summary (run) or
// rendering a live dashboard of Authority/Scope/Pool metrics (watch).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
