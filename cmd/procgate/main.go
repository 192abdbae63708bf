package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "procgate",
		Short:        "Local process gateway",
		Long:         "procgate spawns the worker processes declared in a manifest and reverse-proxies HTTP requests to them over unix sockets or loopback HTTP.",
		Version:      version,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newCheckCmd())

	return root
}
