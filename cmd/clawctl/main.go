package main

import (
	"os"

	"github.com/clawops/clawctl/cmd/clawctl/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
