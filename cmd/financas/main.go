package main

import (
	"os"

	"financas/cmd/financas/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
