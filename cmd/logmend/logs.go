package main

import (
	"fmt"

	"github.com/go-errors/errors"
	"github.com/spf13/cobra"

	"github.com/strrl/logmend/pkg/corpus"
	"github.com/strrl/logmend/pkg/store"
)

func logsCmd() *cobra.Command {
	var (
		system string
		window int
	)

	cmd := &cobra.Command{
		Use:   "logs <line-id>",
		Short: "Show the corpus lines surrounding one line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var lineID int64
			if _, err := fmt.Sscanf(args[0], "%d", &lineID); err != nil {
				return errors.Errorf("invalid line id %q", args[0])
			}
			return runLogs(system, lineID, window)
		},
	}
	cmd.Flags().StringVar(&system, "system", "", "system name (required)")
	cmd.Flags().IntVar(&window, "window", 5, "lines of context on each side")
	_ = cmd.MarkFlagRequired("system")
	return cmd
}

func runLogs(system string, lineID int64, window int) error {
	s, err := store.NewDuckDBStore(dbPath)
	if err != nil {
		return errors.Errorf("store: %w", err)
	}
	defer func() { _ = s.Close() }()

	c := corpus.New(s, system)
	text, err := c.LogContext(lineID, window)
	if err != nil {
		return errors.Errorf("log context: %w", err)
	}
	if text == "" {
		return errors.Errorf("no lines found around %d in system %s", lineID, system)
	}
	fmt.Print(text)
	return nil
}
