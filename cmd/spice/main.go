package main

import (
	"os"

	"github.com/edp1096/spicelib/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
