package main

import (
	"fmt"
	"os"

	"github.com/go-errors/errors"
	"github.com/spf13/cobra"

	"github.com/strrl/logmend/pkg/store"
)

func eventsCmd() *cobra.Command {
	var system string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List a system's events with counts and templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(system)
		},
	}
	cmd.Flags().StringVar(&system, "system", "", "system name (required)")
	_ = cmd.MarkFlagRequired("system")
	return cmd
}

func runEvents(system string) error {
	s, err := store.NewDuckDBStore(dbPath)
	if err != nil {
		return errors.Errorf("store: %w", err)
	}
	defer func() { _ = s.Close() }()

	counts, err := s.EventCounts(system)
	if err != nil {
		return errors.Errorf("event counts: %w", err)
	}
	templates, err := s.Templates(system)
	if err != nil {
		return errors.Errorf("templates: %w", err)
	}
	byEvent := make(map[string]store.Template, len(templates))
	for _, t := range templates {
		byEvent[t.EventID] = t
	}

	for _, c := range counts {
		t := byEvent[c.EventID]
		fmt.Printf("%-8s %6d  %s\n", c.EventID, c.Count, t.Template)
		if t.Description != "" {
			fmt.Printf("%-8s %6s  %s\n", "", "", t.Description)
		}
	}
	fmt.Fprintf(os.Stderr, "\n%d events\n", len(counts))
	return nil
}
