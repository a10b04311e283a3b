package repair

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/go-errors/errors"
	"github.com/google/uuid"

	"github.com/strrl/logmend/pkg/oracle"
)

// LedgerEntry is the persisted per-event repair outcome.
type LedgerEntry struct {
	System         string                 `json:"system"`
	EventID        string                 `json:"event_id"`
	Diagnosis      oracle.Diagnosis       `json:"diagnosis"`
	Status         Status                 `json:"status"`
	Reason         string                 `json:"reason"`
	Template       string                 `json:"repaired_template,omitempty"`
	Description    string                 `json:"repaired_description,omitempty"`
	SplitTemplates []oracle.SplitTemplate `json:"split_templates,omitempty"`
	SuccessCount   int                    `json:"success_count"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// Ledger is the on-disk repair record, keyed by system and event. Updates
// are read-whole, mutate, rewrite-whole; correctness depends on a single
// writer process.
type Ledger struct {
	path string
}

// NewLedger opens (or will create) the ledger file at path.
func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

func ledgerKey(system, eventID string) string {
	return system + "/" + eventID
}

// Load reads all ledger entries. A missing file is an empty ledger.
func (l *Ledger) Load() (map[string]LedgerEntry, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return map[string]LedgerEntry{}, nil
	}
	if err != nil {
		return nil, errors.Errorf("read ledger: %w", err)
	}
	entries := map[string]LedgerEntry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Errorf("decode ledger: %w", err)
	}
	return entries, nil
}

// Update folds one finished record into the ledger.
func (l *Ledger) Update(rec *Record) error {
	entries, err := l.Load()
	if err != nil {
		return err
	}

	entry := LedgerEntry{
		System:    rec.System,
		EventID:   rec.EventID,
		Diagnosis: rec.Diagnosis,
		Status:    rec.Status,
		Reason:    rec.Reason,
		UpdatedAt: time.Now(),
	}
	if rec.Repaired != nil {
		entry.Template = rec.Repaired.Template
		entry.Description = rec.Repaired.Description
		entry.SplitTemplates = rec.Repaired.SplitTemplates
		entry.SuccessCount = rec.Repaired.SuccessCount
	}
	entries[ledgerKey(rec.System, rec.EventID)] = entry

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.Errorf("encode ledger: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return errors.Errorf("write ledger: %w", err)
	}
	return nil
}

// RunLog is the append-only audit trail of one repair run: every finished
// record, stage history included, one JSON document per line.
type RunLog struct {
	f     *os.File
	runID uuid.UUID
	path  string
}

// NewRunLog creates a fresh run log file in dir, named after a new run id.
func NewRunLog(dir string) (*RunLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Errorf("create run log dir: %w", err)
	}
	runID := uuid.New()
	path := filepath.Join(dir, "repair-run-"+runID.String()+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Errorf("open run log: %w", err)
	}
	return &RunLog{f: f, runID: runID, path: path}, nil
}

// RunID returns the run's unique id.
func (r *RunLog) RunID() uuid.UUID { return r.runID }

// Path returns the run log file path.
func (r *RunLog) Path() string { return r.path }

// Append writes one finished record.
func (r *RunLog) Append(rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Errorf("encode record: %w", err)
	}
	if _, err := r.f.Write(append(data, '\n')); err != nil {
		return errors.Errorf("append record: %w", err)
	}
	return nil
}

// Close flushes and closes the run log.
func (r *RunLog) Close() error {
	return r.f.Close()
}
