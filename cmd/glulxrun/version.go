package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inform7/glulxvm/api"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the interpreter and supported Glulx version range",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "glulxrun terp version %#08x, supports Glulx [%#08x, %#08x]\n",
			api.TerpVersion, api.SupportedVersionMin, api.SupportedVersionMax)
		return nil
	},
}
