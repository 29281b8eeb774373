package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/tabcounter/internal/version"
)

func newVersionCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			line := version.Read().String()
			if short {
				// Same source as the relay extension manifest version.
				line = version.Current()
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), line)
			return err
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "print only the version, without module or dirty marker")
	return cmd
}
