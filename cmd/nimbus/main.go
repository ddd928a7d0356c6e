package main

import (
	"os"

	"nimbus/cmd/nimbus/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
