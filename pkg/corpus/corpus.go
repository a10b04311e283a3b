// Package corpus exposes the stored log corpus to the repair pipeline:
// fetching event lines, sampling them, verifying patterns against them and
// rendering surrounding context for prompts.
package corpus

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-errors/errors"

	"github.com/strrl/logmend/pkg/pattern"
	"github.com/strrl/logmend/pkg/store"
)

// Corpus is a read view over one system's logs.
type Corpus struct {
	store  store.Store
	system string
}

// New creates a corpus view for the given system.
func New(st store.Store, system string) *Corpus {
	return &Corpus{store: st, system: system}
}

// System returns the system name this corpus is scoped to.
func (c *Corpus) System() string {
	return c.system
}

// AllLogs returns every corpus line of one event, ordered by line id.
func (c *Corpus) AllLogs(eventID string) ([]pattern.Line, error) {
	rows, err := c.store.EventLogs(c.system, eventID)
	if err != nil {
		return nil, errors.Errorf("load event logs: %w", err)
	}
	lines := make([]pattern.Line, len(rows))
	for i, r := range rows {
		lines[i] = pattern.Line{
			LineID:  strconv.FormatInt(r.LineID, 10),
			Content: r.Content,
		}
	}
	return lines, nil
}

// EventCorpus bundles one event's lines with its registered template row.
// ExpectedCount is the occurrence count recorded at ingest time; when it
// disagrees with ActualCount the corpus changed after registration.
type EventCorpus struct {
	Template      store.Template
	ExpectedCount int
	ActualCount   int
	Lines         []pattern.Line
}

// EventCorpus loads the full corpus of one event alongside its template.
func (c *Corpus) EventCorpus(eventID string) (EventCorpus, error) {
	lines, err := c.AllLogs(eventID)
	if err != nil {
		return EventCorpus{}, err
	}
	ec := EventCorpus{ActualCount: len(lines), Lines: lines}
	tpl, ok, err := c.store.Template(c.system, eventID)
	if err != nil {
		return EventCorpus{}, errors.Errorf("load template: %w", err)
	}
	if ok {
		ec.Template = tpl
		ec.ExpectedCount = tpl.Occurrences
	}
	return ec, nil
}

// CheckPattern verifies a single pattern against the full corpus of one
// event. The verification is always a fresh full pass.
func (c *Corpus) CheckPattern(eventID, pat string, isRegex bool, maxMismatch int) (pattern.CheckResult, error) {
	lines, err := c.AllLogs(eventID)
	if err != nil {
		return pattern.CheckResult{}, err
	}
	return pattern.Check(lines, pat, isRegex, maxMismatch)
}

// CheckDualPatterns verifies a proposed pattern and the original one in a
// single corpus pass, collecting example lines for each outcome.
func (c *Corpus) CheckDualPatterns(eventID, newPat, oldPat string, sampleCount int) (pattern.DualCheckResult, error) {
	lines, err := c.AllLogs(eventID)
	if err != nil {
		return pattern.DualCheckResult{}, err
	}
	return pattern.CheckDual(lines, newPat, oldPat, sampleCount)
}

// LogContext renders the lines surrounding one corpus line as prompt text.
// The target line is marked with a leading arrow.
func (c *Corpus) LogContext(lineID int64, window int) (string, error) {
	rows, err := c.store.LogWindow(c.system, lineID, window)
	if err != nil {
		return "", errors.Errorf("load log window: %w", err)
	}
	if len(rows) == 0 {
		return "", nil
	}
	var b strings.Builder
	for _, r := range rows {
		marker := "    "
		if r.LineID == lineID {
			marker = ">>> "
		}
		fmt.Fprintf(&b, "%s%d: %s\n", marker, r.LineID, r.Content)
	}
	return b.String(), nil
}

// UniformSample picks up to n lines at a fixed stride across the corpus,
// preserving order. With n or fewer lines the whole corpus is returned.
func UniformSample(lines []pattern.Line, n int) []pattern.Line {
	if n <= 0 || len(lines) <= n {
		return lines
	}
	step := len(lines) / n
	sampled := make([]pattern.Line, 0, n)
	for i := 0; i < len(lines) && len(sampled) < n; i += step {
		sampled = append(sampled, lines[i])
	}
	return sampled
}
