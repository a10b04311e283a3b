package loghub

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "structured.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestLoadDataset(t *testing.T) {
	path := writeCSV(t, `LineId,Content,EventId,EventTemplate
7,"generating core.1",E5,"generating core.<*>"
8,"instruction cache parity error corrected",E2,"instruction cache parity error corrected"
`)

	entries, err := LoadDataset(path)
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].LineID != 7 {
		t.Errorf("LineID: got %d, want 7", entries[0].LineID)
	}
	if entries[0].EventID != "E5" {
		t.Errorf("EventID: got %q, want E5", entries[0].EventID)
	}
	if entries[0].EventTemplate != "generating core.<*>" {
		t.Errorf("EventTemplate: got %q", entries[0].EventTemplate)
	}
}

func TestLoadDatasetWithoutLineID(t *testing.T) {
	path := writeCSV(t, `Content,EventId,EventTemplate
"a",E1,"a"
"b",E1,"b"
`)

	entries, err := LoadDataset(path)
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if entries[0].LineID != 1 || entries[1].LineID != 2 {
		t.Errorf("positional line ids: got %d, %d", entries[0].LineID, entries[1].LineID)
	}
}

func TestLoadDatasetMissingColumn(t *testing.T) {
	path := writeCSV(t, `Content,EventId
"a",E1
`)
	if _, err := LoadDataset(path); err == nil {
		t.Error("expected error for missing EventTemplate column")
	}
}
