package main

import (
	"os"

	"github.com/bnema/snippets-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
