package main

import (
	"os"

	"github.com/abramin/callmap/cmd/callmap/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
