// Package main provides the leapq pipeline query compiler CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/leapq/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
