package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-errors/errors"
	"github.com/spf13/cobra"

	"github.com/strrl/logmend/pkg/config"
	"github.com/strrl/logmend/pkg/oracle"
	"github.com/strrl/logmend/pkg/repair"
	"github.com/strrl/logmend/pkg/store"
	"github.com/strrl/logmend/pkg/tracing"
)

func repairCmd() *cobra.Command {
	var (
		input        string
		system       string
		eventID      string
		maxEvents    int
		model        string
		maxRedirects int
		execute      bool
		ledgerPath   string
		runLogDir    string
	)

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Repair failing log templates through the diagnosis state machine",
		Long: `Read generation test results, group the failing samples by event, and
drive each failing event through the repair state machine: diagnose the
cause, repair the template, description or generation examples, and verify
every proposed fix against the stored corpus before accepting it.

Requires OPENROUTER_API_KEY environment variable to be set.

Without --execute the run is a dry run: outcomes are recorded in the
ledger and run log, but the templates table is left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			apiKey := os.Getenv("OPENROUTER_API_KEY")
			if apiKey == "" {
				return errors.New("OPENROUTER_API_KEY environment variable is required")
			}

			samples, err := repair.LoadResults(input)
			if err != nil {
				return errors.Errorf("load results: %w", err)
			}

			s, err := store.NewDuckDBStore(dbPath)
			if err != nil {
				return errors.Errorf("store: %w", err)
			}
			defer func() { _ = s.Close() }()

			cfg := config.DefaultThresholds()
			if maxRedirects > 0 {
				cfg.MaxRedirects = maxRedirects
			}

			client, err := oracle.NewOpenRouterClient(cmd.Context(), oracle.Config{
				APIKey:     apiKey,
				Model:      model,
				HTTPClient: tracing.HTTPClient(),
			})
			if err != nil {
				return errors.Errorf("oracle client: %w", err)
			}

			runner := repair.NewRunner(s, oracle.WithRetry(client, cfg.RetryAttempts, cfg.RetryDelay), cfg, repair.RunnerOptions{
				System:     system,
				EventID:    eventID,
				MaxEvents:  maxEvents,
				Execute:    execute,
				LedgerPath: ledgerPath,
				RunLogDir:  runLogDir,
			})

			records, err := runner.Run(cmd.Context(), samples)
			printSummary(records)
			return err
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "generation test results file, JSON array of per-sample outcomes (required)")
	cmd.Flags().StringVar(&system, "system", "", "restrict the run to one system")
	cmd.Flags().StringVar(&eventID, "event", "", "restrict the run to one event")
	cmd.Flags().IntVar(&maxEvents, "max-events", 0, "cap the number of events repaired (0 = no cap)")
	cmd.Flags().StringVar(&model, "model", "", "override LLM model (default: "+config.DefaultModel+")")
	cmd.Flags().IntVar(&maxRedirects, "max-redirects", 0, "override the redirect budget (0 = default)")
	cmd.Flags().BoolVar(&execute, "execute", false, "apply accepted repairs to the templates table")
	cmd.Flags().StringVar(&ledgerPath, "ledger", "repair-ledger.json", "path to the repair ledger file")
	cmd.Flags().StringVar(&runLogDir, "run-log-dir", "repair-runs", "directory for per-run audit logs")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func printSummary(records []*repair.Record) {
	if len(records) == 0 {
		fmt.Fprintln(os.Stderr, "No failing events selected.")
		return
	}

	byStatus := map[repair.Status]int{}
	for _, rec := range records {
		byStatus[rec.Status]++
	}
	statuses := make([]string, 0, len(byStatus))
	for status := range byStatus {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)

	fmt.Fprintf(os.Stderr, "\n%d events processed:\n", len(records))
	for _, status := range statuses {
		fmt.Fprintf(os.Stderr, "  %-22s %d\n", status, byStatus[repair.Status(status)])
	}
}
