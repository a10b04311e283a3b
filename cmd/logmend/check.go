package main

import (
	"fmt"
	"os"

	"github.com/go-errors/errors"
	"github.com/spf13/cobra"

	"github.com/strrl/logmend/pkg/config"
	"github.com/strrl/logmend/pkg/corpus"
	"github.com/strrl/logmend/pkg/store"
)

func checkCmd() *cobra.Command {
	var (
		system  string
		eventID string
		isRegex bool
	)

	cmd := &cobra.Command{
		Use:   "check <pattern>",
		Short: "Verify a pattern against an event's stored corpus",
		Long: `Run one pattern over every stored line of an event and report match
statistics. A pattern containing <*> placeholders is converted to a regex;
otherwise it is a substring check unless --regex forces regex
interpretation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(system, eventID, args[0], isRegex)
		},
	}
	cmd.Flags().StringVar(&system, "system", "", "system name (required)")
	cmd.Flags().StringVar(&eventID, "event", "", "event id (required)")
	cmd.Flags().BoolVar(&isRegex, "regex", false, "interpret the pattern as a regular expression")
	_ = cmd.MarkFlagRequired("system")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func runCheck(system, eventID, pat string, isRegex bool) error {
	s, err := store.NewDuckDBStore(dbPath)
	if err != nil {
		return errors.Errorf("store: %w", err)
	}
	defer func() { _ = s.Close() }()

	c := corpus.New(s, system)
	result, err := c.CheckPattern(eventID, pat, isRegex, config.DefaultThresholds().MaxMismatchSamples)
	if err != nil {
		return errors.Errorf("check: %w", err)
	}

	mode := "substring"
	if result.UsedRegex {
		mode = "regex"
	}
	fmt.Printf("pattern:  %s (%s)\n", result.Pattern, mode)
	fmt.Printf("matched:  %d/%d (%.1f%%)\n", result.MatchCount, result.TotalCount, result.MatchRate*100)
	if len(result.MismatchSamples) > 0 {
		fmt.Println("mismatching lines:")
		for _, line := range result.MismatchSamples {
			fmt.Printf("  %s: %s\n", line.LineID, line.Content)
		}
	}
	if result.AllMatch {
		fmt.Fprintln(os.Stderr, "All lines match.")
	}
	return nil
}
