package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/heliosrules/helios/engine"
)

func newCompileCmd() *cobra.Command {
	var disableFactorize bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "compile <rules.json>",
		Short: "Compile a rule source and report model.stats()",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			strategy := engine.FactorizeAuto
			if disableFactorize {
				strategy = engine.FactorizeDisabled
			}
			m, warnings, err := engine.Compile(context.Background(), f, engine.CompileOptions{Strategy: strategy})
			if err != nil {
				return err
			}
			stats := m.Stats()

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "build_id:             %s\n", stats.BuildID)
			fmt.Fprintf(cmd.OutOrStdout(), "logical_rules:        %s\n", humanize.Comma(int64(stats.LogicalRules)))
			fmt.Fprintf(cmd.OutOrStdout(), "unique_combinations:  %s\n", humanize.Comma(int64(stats.UniqueCombinations)))
			fmt.Fprintf(cmd.OutOrStdout(), "expanded_combinations: %s\n", humanize.Comma(int64(stats.TotalExpandedCombinations)))
			fmt.Fprintf(cmd.OutOrStdout(), "total_predicates:     %s\n", humanize.Comma(int64(stats.TotalPredicates)))
			fmt.Fprintf(cmd.OutOrStdout(), "dedup_rate:           %.1f%%\n", stats.DeduplicationRate*100)
			fmt.Fprintf(cmd.OutOrStdout(), "compile_time:         %s\n", time.Duration(stats.CompilationTimeNs))
			fmt.Fprintf(cmd.OutOrStdout(), "warnings:             %d\n", stats.Warnings)
			for _, w := range warnings {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s: %s\n", w.RuleCode, w.Message)
			}
			if len(stats.DroppedRuleCodes) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "dropped_rule_codes:   %v\n", stats.DroppedRuleCodes)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&disableFactorize, "no-factorize", false, "skip the IS_ANY_OF factorizer stage")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print model.stats() as JSON")
	return cmd
}
