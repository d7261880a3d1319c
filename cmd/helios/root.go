package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "helios",
		Short: "Compile and evaluate Helios rule sets",
	}

	root.AddCommand(newCompileCmd())
	root.AddCommand(newMatchCmd())
	root.AddCommand(newExplainCmd())
	root.AddCommand(newServeCmd())

	return root
}
