package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/inform7/glulxvm/internal/save"
)

func init() {
	rootCmd.AddCommand(saveInfoCmd)
}

var saveInfoCmd = &cobra.Command{
	Use:   "save-info [SAVE_FILE]",
	Short: "List the chunks of a Quetzal-like save file without running the game",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening save file: %w", err)
		}
		defer f.Close()

		chunks, ifhd, err := save.Inspect(&fileByteStream{f: f})
		if err != nil {
			return fmt.Errorf("reading save file: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "game checksum %#08x, ramstart %#08x, endmem %#08x\n",
			ifhd.Checksum, ifhd.RAMStart, ifhd.EndMemInit)
		for _, c := range chunks {
			fmt.Fprintf(out, "  %s  %d bytes\n", c.ID, c.Size)
		}
		return nil
	},
}
