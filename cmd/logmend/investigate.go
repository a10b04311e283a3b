package main

import (
	"fmt"
	"os"

	"github.com/go-errors/errors"
	"github.com/spf13/cobra"

	"github.com/strrl/logmend/pkg/config"
	"github.com/strrl/logmend/pkg/investigate"
	"github.com/strrl/logmend/pkg/repair"
	"github.com/strrl/logmend/pkg/store"
)

func investigateCmd() *cobra.Command {
	var (
		system     string
		model      string
		ledgerPath string
	)

	cmd := &cobra.Command{
		Use:   "investigate [question]",
		Short: "Review a system's repair outcomes with an AI agent",
		Long: `Build a file workspace from a system's corpus, templates and repair
ledger, then let a tool-using agent explore it and report which events
still fail and what to try next.

Requires OPENROUTER_API_KEY environment variable to be set.

Examples:
  logmend investigate --system BGL
  logmend investigate --system BGL "why do the cache events keep failing?"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiKey := os.Getenv("OPENROUTER_API_KEY")
			if apiKey == "" {
				return errors.New("OPENROUTER_API_KEY environment variable is required")
			}
			var question string
			if len(args) > 0 {
				question = args[0]
			}

			s, err := store.NewDuckDBStore(dbPath)
			if err != nil {
				return errors.Errorf("store: %w", err)
			}
			defer func() { _ = s.Close() }()

			entries, err := repair.NewLedger(ledgerPath).Load()
			if err != nil {
				return errors.Errorf("load ledger: %w", err)
			}

			result, err := investigate.Investigate(cmd.Context(), investigate.Config{
				APIKey: apiKey,
				Model:  model,
			}, s, system, entries, question)
			if err != nil {
				return err
			}

			fmt.Println(result)
			return nil
		},
	}
	cmd.Flags().StringVar(&system, "system", "", "system name (required)")
	cmd.Flags().StringVar(&model, "model", "", "override LLM model (default: "+config.DefaultModel+")")
	cmd.Flags().StringVar(&ledgerPath, "ledger", "repair-ledger.json", "path to the repair ledger file")
	_ = cmd.MarkFlagRequired("system")
	return cmd
}
