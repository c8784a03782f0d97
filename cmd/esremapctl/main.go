// Package main provides the entry point for the esremapctl CLI.
package main

import (
	"os"

	"github.com/kailas-cloud/esremap/cmd/esremapctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
