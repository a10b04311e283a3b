package repair

import (
	"fmt"
	"strings"
	"time"
)

// Character budgets for the history digest fed back to the oracle. Prompts
// grow per stage attempt, so each field is truncated before inclusion.
const (
	digestInputLimit  = 2000
	digestOutputLimit = 1500
)

// StageRecord is one oracle interaction within a repair run. TestResults
// and Conclusion are attached after the fact, once verification of the
// oracle's suggestion has run.
type StageRecord struct {
	Stage         Stage     `json:"stage"`
	InputSummary  string    `json:"input_summary"`
	OutputSummary string    `json:"output_summary"`
	TestResults   string    `json:"test_results,omitempty"`
	Conclusion    string    `json:"conclusion,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Context is the append-only interaction history of one repair run. It is
// owned by exactly one state-machine execution; records are never rewritten
// except to attach verification results to the most recent entry.
type Context struct {
	records []StageRecord
}

// NewContext creates an empty repair context.
func NewContext() *Context {
	return &Context{}
}

// Add appends one interaction record.
func (c *Context) Add(stage Stage, inputSummary, outputSummary string) {
	c.records = append(c.records, StageRecord{
		Stage:         stage,
		InputSummary:  inputSummary,
		OutputSummary: outputSummary,
		Timestamp:     time.Now(),
	})
}

// AttachResults sets verification results on the most recent record. A
// no-op on an empty context.
func (c *Context) AttachResults(testResults, conclusion string) {
	if len(c.records) == 0 {
		return
	}
	last := &c.records[len(c.records)-1]
	last.TestResults = testResults
	last.Conclusion = conclusion
}

// Records returns a copy of the interaction history.
func (c *Context) Records() []StageRecord {
	out := make([]StageRecord, len(c.records))
	copy(out, c.records)
	return out
}

// AttemptedStages lists every stage visited so far, in order, repeats
// included.
func (c *Context) AttemptedStages() []Stage {
	var stages []Stage
	for _, r := range c.records {
		if n := len(stages); n == 0 || stages[n-1] != r.Stage {
			stages = append(stages, r.Stage)
		}
	}
	return stages
}

// HistoryDigest renders the interaction history as bounded prompt text so
// the oracle sees what was already tried and does not repeat it.
func (c *Context) HistoryDigest() string {
	if len(c.records) == 0 {
		return "(no prior attempts)"
	}
	var b strings.Builder
	for i, r := range c.records {
		fmt.Fprintf(&b, "Attempt %d [%s stage]\n", i+1, r.Stage)
		fmt.Fprintf(&b, "Input: %s\n", truncateText(r.InputSummary, digestInputLimit))
		fmt.Fprintf(&b, "Output: %s\n", truncateText(r.OutputSummary, digestOutputLimit))
		if r.TestResults != "" {
			fmt.Fprintf(&b, "Test results: %s\n", truncateText(r.TestResults, digestOutputLimit))
		}
		if r.Conclusion != "" {
			fmt.Fprintf(&b, "Conclusion: %s\n", truncateText(r.Conclusion, digestOutputLimit))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncateText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
