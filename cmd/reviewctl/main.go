package main

import (
	"os"

	"github.com/pilab-dev/reviewdesk/cmd/reviewctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
