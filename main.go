package main

import (
	"os"

	"github.com/ilhicas/azure-cost-export/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
