// Package main provides the entry point for the jsbundle CLI tool.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/Sumatoshi-tech/jsbundle/cmd/jsbundle/commands"
)

func main() {
	err := commands.NewRootCommand().Execute()
	if err == nil {
		return
	}

	// Bundle failures were already reported with their position.
	if !errors.Is(err, commands.ErrBundleFailed) {
		color.New(color.FgRed).Fprint(os.Stderr, "Error: ")
		fmt.Fprintln(os.Stderr, err)
	}

	os.Exit(1)
}
