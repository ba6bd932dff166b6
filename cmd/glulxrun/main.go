// Command glulxrun is the reference CLI driver for this module: load a
// Glulx game image, run it against a minimal console IoSys, or inspect a
// Quetzal-like save file without running the game at all.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "glulxrun",
	Short: "A Glulx virtual machine interpreter",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
