package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := NewRootCommand(os.Stdin, os.Stdout, os.Stderr, nil)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var withExitCode interface{ ExitCode() int }
		if errors.As(err, &withExitCode) {
			os.Exit(withExitCode.ExitCode())
		}
		os.Exit(ExitCodeGeneric)
	}
}
