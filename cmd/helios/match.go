package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/heliosrules/helios/engine"
	"github.com/heliosrules/helios/internal/model"
)

func newMatchCmd() *cobra.Command {
	var traceLevel string
	var strategy string

	cmd := &cobra.Command{
		Use:   "match <rules.json> <event.json>",
		Short: "Compile a rule source and match one event against it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := compileFile(args[0])
			if err != nil {
				return err
			}
			we, err := readEvent(args[1])
			if err != nil {
				return err
			}

			e := engine.New(m)
			result, err := e.Match(context.Background(), we, engine.MatchOptions{
				TraceLevel: engine.TraceLevel(traceLevel),
				Strategy:   engine.Strategy(strategy),
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}

	cmd.Flags().StringVar(&traceLevel, "trace-level", string(engine.TraceNone), "NONE|BASIC|STANDARD|FULL")
	cmd.Flags().StringVar(&strategy, "strategy", string(engine.AllMatches), "ALL_MATCHES|FIRST_MATCH")
	return cmd
}

func compileFile(path string) (*model.EngineModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, _, err := engine.Compile(context.Background(), f, engine.CompileOptions{})
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", path, err)
	}
	return m, nil
}

func readEvent(path string) (engine.WireEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.WireEvent{}, err
	}
	var we engine.WireEvent
	if err := json.Unmarshal(data, &we); err != nil {
		return engine.WireEvent{}, fmt.Errorf("parsing event %s: %w", path, err)
	}
	return we, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
