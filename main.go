package main

import (
	"os"

	"github.com/bitvia/bitvia/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
