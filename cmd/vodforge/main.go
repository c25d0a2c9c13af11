// Package main is the entry point for the vodforge application.
package main

import (
	"os"

	"github.com/vodforge/vodforge/cmd/vodforge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
