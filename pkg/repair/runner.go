package repair

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-errors/errors"

	"github.com/strrl/logmend/pkg/config"
	"github.com/strrl/logmend/pkg/corpus"
	"github.com/strrl/logmend/pkg/oracle"
	"github.com/strrl/logmend/pkg/store"
)

// RunnerOptions select which events a run covers and whether accepted
// repairs are written back to the templates table.
type RunnerOptions struct {
	// System restricts the run to one system; empty means all.
	System string
	// EventID restricts the run to a single event, for debugging.
	EventID string
	// MaxEvents caps how many events are repaired; 0 means no cap.
	MaxEvents int
	// Execute applies accepted repairs to the store. Without it the run
	// only logs what it would change.
	Execute    bool
	LedgerPath string
	RunLogDir  string
}

// Runner drives repair over a whole results file: one system at a time,
// events in descending failure order, each to a terminal status.
type Runner struct {
	store  store.Store
	client oracle.Client
	cfg    config.Thresholds
	opts   RunnerOptions
}

// NewRunner builds a runner over a store and an oracle client.
func NewRunner(st store.Store, client oracle.Client, cfg config.Thresholds, opts RunnerOptions) *Runner {
	return &Runner{store: st, client: client, cfg: cfg, opts: opts}
}

// Run repairs every selected failing event and returns the finished
// records. Ledger and run log are updated after each event, so a killed
// process loses at most the event in flight.
func (r *Runner) Run(ctx context.Context, samples []Sample) ([]*Record, error) {
	bySystem := GroupEvents(samples)
	systems := make([]string, 0, len(bySystem))
	for system := range bySystem {
		if r.opts.System != "" && system != r.opts.System {
			continue
		}
		systems = append(systems, system)
	}
	sort.Strings(systems)

	ledger := NewLedger(r.opts.LedgerPath)
	runLog, err := NewRunLog(r.opts.RunLogDir)
	if err != nil {
		return nil, err
	}
	defer func() { _ = runLog.Close() }()
	slog.Info("repair run started", "run_id", runLog.RunID(), "run_log", runLog.Path())

	var records []*Record
	processed := 0
	for _, system := range systems {
		view := corpus.New(r.store, system)
		machine := NewMachine(r.client, view, r.cfg)
		for _, g := range bySystem[system] {
			if r.opts.EventID != "" && g.EventID != r.opts.EventID {
				continue
			}
			if len(g.Failed) == 0 {
				continue
			}
			if r.opts.MaxEvents > 0 && processed >= r.opts.MaxEvents {
				slog.Info("event cap reached", "max_events", r.opts.MaxEvents)
				return records, nil
			}
			processed++

			if ec, err := view.EventCorpus(g.EventID); err == nil &&
				ec.ExpectedCount > 0 && ec.ExpectedCount != ec.ActualCount {
				slog.Warn("corpus count drift",
					"system", system,
					"event", g.EventID,
					"expected", ec.ExpectedCount,
					"actual", ec.ActualCount)
			}

			rec := machine.Repair(ctx, Event{
				System:      g.System,
				EventID:     g.EventID,
				Template:    g.Template,
				Description: g.Failed[0].Description,
				Failed:      g.Failed,
				Passed:      g.Passed,
			})
			records = append(records, rec)
			slog.Info("event repaired",
				"system", rec.System,
				"event", rec.EventID,
				"status", rec.Status,
				"reason", rec.Reason)

			if err := ledger.Update(rec); err != nil {
				return records, errors.Errorf("update ledger: %w", err)
			}
			if err := runLog.Append(rec); err != nil {
				return records, errors.Errorf("append run log: %w", err)
			}
			if err := r.apply(rec); err != nil {
				return records, err
			}
		}
	}
	return records, nil
}

// apply writes an accepted repair back to the templates table, or logs the
// update a dry run would have made.
func (r *Runner) apply(rec *Record) error {
	if !rec.Status.IsSuccess() || rec.Repaired == nil {
		return nil
	}

	if len(rec.Repaired.SplitTemplates) > 0 {
		tpls := make([]store.Template, len(rec.Repaired.SplitTemplates))
		for i, st := range rec.Repaired.SplitTemplates {
			tpls[i] = store.Template{
				System:      rec.System,
				EventID:     fmt.Sprintf("%s.%d", rec.EventID, i+1),
				Template:    st.Template,
				Description: st.Description,
			}
		}
		if !r.opts.Execute {
			slog.Info("dry run: would split event into new templates",
				"system", rec.System, "event", rec.EventID, "templates", len(tpls))
			return nil
		}
		if err := r.store.UpsertTemplates(tpls); err != nil {
			return errors.Errorf("apply split templates: %w", err)
		}
		return nil
	}

	if rec.Repaired.Template == "" {
		return nil
	}
	if !r.opts.Execute {
		slog.Info("dry run: would update template",
			"system", rec.System, "event", rec.EventID, "template", rec.Repaired.Template)
		return nil
	}
	if err := r.store.UpdateTemplate(rec.System, rec.EventID, rec.Repaired.Template); err != nil {
		return errors.Errorf("apply template update: %w", err)
	}
	return nil
}
