package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/heliosrules/helios/engine"
)

func newExplainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain <rules.json> <rule_code> <event.json>",
		Short: "Explain why one rule did or did not match an event",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := compileFile(args[0])
			if err != nil {
				return err
			}
			we, err := readEvent(args[2])
			if err != nil {
				return err
			}

			e := engine.New(m)
			result, err := e.Explain(context.Background(), args[1], we)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
	return cmd
}
