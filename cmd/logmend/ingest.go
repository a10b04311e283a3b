package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-errors/errors"
	"github.com/spf13/cobra"

	"github.com/strrl/logmend/pkg/ingestor"
	"github.com/strrl/logmend/pkg/loghub"
	"github.com/strrl/logmend/pkg/pattern"
	"github.com/strrl/logmend/pkg/store"
)

const insertBatchSize = 500

func ingestCmd() *cobra.Command {
	var system string
	var discover bool

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a labeled Loghub CSV or a flat log file into the store",
		Long: `Load a corpus into DuckDB.

By default the file is a Loghub structured CSV with LineId, Content,
EventId and EventTemplate columns; templates are taken from the labels.
With --discover the file is a flat log file (or "-" for stdin) and events
are discovered online with Drain.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if discover {
				return runIngestDiscover(cmd.Context(), args[0], system)
			}
			return runIngestLoghub(args[0], system)
		},
	}
	cmd.Flags().StringVar(&system, "system", "", "system name the corpus belongs to (required)")
	cmd.Flags().BoolVar(&discover, "discover", false, "treat input as a flat log file and discover events with Drain")
	_ = cmd.MarkFlagRequired("system")
	return cmd
}

func runIngestLoghub(csvPath, system string) error {
	entries, err := loghub.LoadDataset(csvPath)
	if err != nil {
		return errors.Errorf("load dataset: %w", err)
	}

	s, err := store.NewDuckDBStore(dbPath)
	if err != nil {
		return errors.Errorf("store: %w", err)
	}
	defer func() { _ = s.Close() }()
	if err := s.Init(); err != nil {
		return errors.Errorf("store init: %w", err)
	}

	templates := map[string]store.Template{}
	var batch []store.LogLine
	for _, e := range entries {
		batch = append(batch, store.LogLine{
			System:  system,
			EventID: e.EventID,
			LineID:  e.LineID,
			Content: e.Content,
		})
		if len(batch) >= insertBatchSize {
			if err := s.InsertLogBatch(batch); err != nil {
				return errors.Errorf("insert batch: %w", err)
			}
			batch = batch[:0]
		}
		t := templates[e.EventID]
		t.System = system
		t.EventID = e.EventID
		t.Template = pattern.Normalize(e.EventTemplate)
		t.Occurrences++
		templates[e.EventID] = t
	}
	if len(batch) > 0 {
		if err := s.InsertLogBatch(batch); err != nil {
			return errors.Errorf("insert batch: %w", err)
		}
	}

	tpls := make([]store.Template, 0, len(templates))
	for _, t := range templates {
		tpls = append(tpls, t)
	}
	if err := s.UpsertTemplates(tpls); err != nil {
		return errors.Errorf("upsert templates: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Ingested %d lines across %d events for system %s\n",
		len(entries), len(tpls), system)
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	return nil
}

func runIngestDiscover(ctx context.Context, logFile, system string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := ingestor.Ingest(ctx, logFile)
	if err != nil {
		return errors.Errorf("ingest: %w", err)
	}

	miner, err := pattern.NewMiner()
	if err != nil {
		return errors.Errorf("miner: %w", err)
	}

	s, err := store.NewDuckDBStore(dbPath)
	if err != nil {
		return errors.Errorf("store: %w", err)
	}
	defer func() { _ = s.Close() }()
	if err := s.Init(); err != nil {
		return errors.Errorf("store init: %w", err)
	}

	var count int
	var batch []store.LogLine
	for r := range ch {
		if r.Err != nil {
			return errors.Errorf("read log: %w", r.Err)
		}
		eventID, err := miner.Assign(r.Value.Content)
		if err != nil {
			return errors.Errorf("assign line %d: %w", r.Value.LineID, err)
		}
		batch = append(batch, store.LogLine{
			System:  system,
			EventID: eventID,
			LineID:  r.Value.LineID,
			Content: r.Value.Content,
		})
		if len(batch) >= insertBatchSize {
			if err := s.InsertLogBatch(batch); err != nil {
				return errors.Errorf("insert batch: %w", err)
			}
			batch = batch[:0]
		}
		count++
	}
	if len(batch) > 0 {
		if err := s.InsertLogBatch(batch); err != nil {
			return errors.Errorf("insert batch: %w", err)
		}
	}

	clusters := miner.Clusters()
	tpls := make([]store.Template, 0, len(clusters))
	for _, c := range clusters {
		tpls = append(tpls, store.Template{
			System:      system,
			EventID:     c.EventID,
			Template:    c.Template,
			Occurrences: c.Count,
		})
	}
	if err := s.UpsertTemplates(tpls); err != nil {
		return errors.Errorf("upsert templates: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Ingested %d lines, discovered %d events for system %s\n",
		count, len(tpls), system)
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	return nil
}
