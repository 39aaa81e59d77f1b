package main

import (
	"os"

	"github.com/vanishedwanderer/grabbler/src/cli"
	_ "github.com/vanishedwanderer/grabbler/src/migration"
)

func main() {
	if err := cli.RootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
