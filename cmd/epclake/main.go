// Package main is the entry point for the epclake CLI.
package main

import (
	"os"

	"github.com/mca-data/epclake/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
