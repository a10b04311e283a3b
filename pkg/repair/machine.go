package repair

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/strrl/logmend/pkg/config"
	"github.com/strrl/logmend/pkg/oracle"
	"github.com/strrl/logmend/pkg/pattern"
)

// Corpus is the read view the machine verifies against. Every acceptance
// gate runs over the full event corpus, never a sample.
type Corpus interface {
	AllLogs(eventID string) ([]pattern.Line, error)
	CheckPattern(eventID, pat string, isRegex bool, maxMismatch int) (pattern.CheckResult, error)
	CheckDualPatterns(eventID, newPat, oldPat string, sampleCount int) (pattern.DualCheckResult, error)
	LogContext(lineID int64, window int) (string, error)
}

// Event is one failing event entering the machine: its samples plus the
// currently active template, which a SPLIT-stage redirect may override
// mid-run.
type Event struct {
	System      string
	EventID     string
	Template    string
	Description string
	Failed      []Sample
	Passed      []Sample

	seed *SplitSeed
}

// Machine executes the repair state machine for one event at a time.
// Execution is synchronous; every oracle call and corpus scan blocks.
type Machine struct {
	oracle oracle.Client
	corpus Corpus
	cfg    config.Thresholds
}

// NewMachine builds a machine around an oracle client and a corpus view.
func NewMachine(client oracle.Client, c Corpus, cfg config.Thresholds) *Machine {
	return &Machine{oracle: client, corpus: c, cfg: cfg}
}

// Repair runs the event to a terminal status. The returned record is
// complete and never reopened.
func (m *Machine) Repair(ctx context.Context, ev Event) *Record {
	rec := &Record{
		System:    ev.System,
		EventID:   ev.EventID,
		Template:  ev.Template,
		StartedAt: time.Now(),
	}
	rctx := NewContext()

	diagnosis := m.diagnose(ctx, &ev)
	rec.Diagnosis = diagnosis
	slog.Info("diagnosed event",
		"system", ev.System,
		"event", ev.EventID,
		"cause", diagnosis.Cause,
		"confidence", diagnosis.Confidence)

	stage, ok := initialStage(diagnosis.Cause)
	if !ok {
		m.finalize(rec, rctx, StatusSkipped, "diagnosis found nothing to repair", nil)
		return rec
	}

	redirects := 0
	for {
		result := m.runStage(ctx, stage, &ev, rctx)
		slog.Info("stage finished",
			"system", ev.System,
			"event", ev.EventID,
			"stage", stage,
			"signal", result.Signal,
			"reason", result.Reason)

		switch {
		case result.Signal == SignalContinue:
			m.finalize(rec, rctx, SuccessStatus(stage), result.Reason, result.Repaired)
			return rec
		case result.Signal == SignalGiveUp:
			m.finalize(rec, rctx, StatusGiveUp, result.Reason, nil)
			return rec
		case result.Signal.IsRedirect():
			redirects++
			if redirects > m.cfg.MaxRedirects {
				reason := fmt.Sprintf("redirect budget of %d exhausted (last: %s)",
					m.cfg.MaxRedirects, result.Reason)
				m.finalize(rec, rctx, StatusMaxRedirects, reason, nil)
				return rec
			}
			target, _ := result.Signal.TargetStage()
			rec.Transitions = append(rec.Transitions, Transition{
				Stage:         target,
				RedirectCount: redirects,
				Reason:        result.Reason,
				Timestamp:     time.Now(),
			})
			if result.ActiveTemplate != "" {
				ev.Template = result.ActiveTemplate
			}
			ev.seed = result.Seed
			stage = target
		default:
			m.finalize(rec, rctx, StatusGiveUp,
				fmt.Sprintf("stage %s returned unknown signal %q", stage, result.Signal), nil)
			return rec
		}
	}
}

// initialStage routes the diagnosis cause to the first repair strategy. A
// NONE cause skips the event entirely.
func initialStage(cause oracle.Cause) (Stage, bool) {
	switch cause {
	case oracle.CauseTemplate, oracle.CauseBoth:
		return StageTemplate, true
	case oracle.CauseDescription:
		return StageDescription, true
	case oracle.CauseGenerator:
		return StageGenerator, true
	}
	return "", false
}

// runStage dispatches to a stage handler. A panic inside a handler is
// converted to GIVE_UP with the error recorded, so the machine always
// reaches a terminal status.
func (m *Machine) runStage(ctx context.Context, stage Stage, ev *Event, rctx *Context) (result StageResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("stage panicked", "stage", stage, "panic", r)
			result = StageResult{
				Signal: SignalGiveUp,
				Reason: fmt.Sprintf("stage %s failed: %v", stage, r),
			}
		}
	}()

	switch stage {
	case StageTemplate:
		return m.runTemplate(ctx, ev, rctx)
	case StageDescription:
		return m.runDescription(ctx, ev, rctx)
	case StageGenerator:
		return m.runGenerator(ctx, ev, rctx)
	case StageSplit:
		return m.runSplit(ctx, ev, rctx)
	}
	return StageResult{Signal: SignalGiveUp, Reason: fmt.Sprintf("unknown stage %q", stage)}
}

func (m *Machine) finalize(rec *Record, rctx *Context, status Status, reason string, repaired *Repaired) {
	rec.Status = status
	rec.Reason = reason
	rec.Repaired = repaired
	rec.StageRecords = rctx.Records()
	rec.FinishedAt = time.Now()
}
