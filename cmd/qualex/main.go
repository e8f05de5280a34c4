package main

import (
	"os"

	"github.com/qualex-labs/qualex/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
