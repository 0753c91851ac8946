// Command ultra manages scene editor projects from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/meigma/ultra/internal/ui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.FormatError(err.Error()))
		os.Exit(1)
	}
}
