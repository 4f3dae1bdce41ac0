package main

import (
	"os"

	"github.com/specmark/specmark/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
