package main

import (
	"os"

	"electrumsmart/cmd/electrumsmart/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
