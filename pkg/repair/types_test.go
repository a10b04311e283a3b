package repair

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGroupEventsPartitionsAndOrders(t *testing.T) {
	samples := []Sample{
		{System: "BGL", EventID: "E1", Template: "a <*>", Matched: true},
		{System: "BGL", EventID: "E1", Template: "a <*>", Matched: false},
		{System: "BGL", EventID: "E2", Template: "b <*>", Matched: false},
		{System: "BGL", EventID: "E2", Template: "b <*>", Matched: false},
		{System: "BGL", EventID: "E2", Template: "b <*>", Matched: false},
		{System: "HPC", EventID: "E1", Template: "c <*>", Matched: false},
	}

	bySystem := GroupEvents(samples)
	if len(bySystem) != 2 {
		t.Fatalf("systems: got %d, want 2", len(bySystem))
	}

	bgl := bySystem["BGL"]
	if len(bgl) != 2 {
		t.Fatalf("BGL events: got %d, want 2", len(bgl))
	}
	// Most failing event first.
	if bgl[0].EventID != "E2" || len(bgl[0].Failed) != 3 {
		t.Errorf("frequency order violated: %+v", bgl[0])
	}
	if len(bgl[1].Failed) != 1 || len(bgl[1].Passed) != 1 {
		t.Errorf("E1 partition: failed=%d passed=%d", len(bgl[1].Failed), len(bgl[1].Passed))
	}
}

func TestLoadResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	payload := `[
		{"system_name": "BGL", "EventId": "E5", "LineId": "31861",
		 "template": "generating core.<*>", "description": "core dump",
		 "ground_truth": "generating core.1024", "generated_log": "generating core 1024",
		 "exact_match": false}
	]`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write results: %v", err)
	}

	samples, err := LoadResults(path)
	if err != nil {
		t.Fatalf("LoadResults: %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("samples: got %d, want 1", len(samples))
	}
	s := samples[0]
	if s.System != "BGL" || s.EventID != "E5" || s.LineID != "31861" {
		t.Errorf("identifiers: %+v", s)
	}
	if s.Matched {
		t.Error("exact_match=false must load as unmatched")
	}
}

func TestLoadResultsMissingFile(t *testing.T) {
	if _, err := LoadResults(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
