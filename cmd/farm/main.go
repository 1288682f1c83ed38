package main

import (
	"os"

	"tokenfarm/cmd/farm/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
