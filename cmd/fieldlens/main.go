/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Command-line entry point for FieldLens. Builds the root command and exits
non-zero when a command fails.
*/

package main

import (
	"os"

	"github.com/kleascm/fieldlens/cmd/fieldlens/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
