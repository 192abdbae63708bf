package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jrepp/procgate/pkg/config"
)

func newCheckCmd() *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a manifest without starting anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := config.Load(manifestPath)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "manifest ok: %d processes\n", len(manifest.Processes))
			for _, p := range manifest.Processes {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-20s %-8s %-24s -> %s\n",
					p.ID, p.Mode, p.Route, p.Address())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "manifest.yaml", "path to the process manifest")

	return cmd
}
