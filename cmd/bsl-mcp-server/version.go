package main

import (
	"fmt"

	"github.com/spf13/cobra"

	bslmcp "github.com/wagiedev/bsl-mcp-server"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", bslmcp.Name, bslmcp.Version)

			return err
		},
	}
}
