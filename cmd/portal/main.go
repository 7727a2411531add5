package main

import (
	"fmt"
	"os"

	"github.com/agentportal/portal/cmd/portal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "portal error:", err)
		os.Exit(1)
	}
}
