// Command helios compiles Helios rule sources and runs them against
// events, from the command line or as an HTTP demo server.
//
// Usage:
//
//	helios compile rules.json
//	helios match rules.json event.json
//	helios explain rules.json R1 event.json
//	helios serve rules.json --addr :8080
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
