package main

import (
	"os"

	"github.com/Yida-git/GhostType/cmd/ghosttype/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
