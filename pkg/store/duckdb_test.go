package store

import "testing"

func newTestStore(t *testing.T) *DuckDBStore {
	t.Helper()
	s, err := NewDuckDBStore("")
	if err != nil {
		t.Fatalf("NewDuckDBStore: %v", err)
	}
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedLines(t *testing.T, s *DuckDBStore, lines []LogLine) {
	t.Helper()
	if err := s.InsertLogBatch(lines); err != nil {
		t.Fatalf("InsertLogBatch: %v", err)
	}
}

func TestInit(t *testing.T) {
	s := newTestStore(t)

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM event_logs").Scan(&count); err != nil {
		t.Fatalf("query after init: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 rows, got %d", count)
	}

	// Init is idempotent.
	if err := s.Init(); err != nil {
		t.Fatalf("second Init: %v", err)
	}
}

func TestInsertAndEventLogs(t *testing.T) {
	s := newTestStore(t)

	seedLines(t, s, []LogLine{
		{System: "BGL", EventID: "E5", LineID: 3, Content: "generating core.3"},
		{System: "BGL", EventID: "E5", LineID: 1, Content: "generating core.1"},
		{System: "BGL", EventID: "E2", LineID: 2, Content: "instruction cache parity error corrected"},
		{System: "HDFS", EventID: "E5", LineID: 9, Content: "Receiving block blk_1 src: /10.0.0.1"},
	})

	got, err := s.EventLogs("BGL", "E5")
	if err != nil {
		t.Fatalf("EventLogs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(got))
	}
	// Ordered by line id.
	if got[0].LineID != 1 || got[1].LineID != 3 {
		t.Errorf("lines not ordered by line id: %v, %v", got[0].LineID, got[1].LineID)
	}
	if got[0].Content != "generating core.1" {
		t.Errorf("Content: got %q", got[0].Content)
	}

	empty, err := s.EventLogs("BGL", "E99")
	if err != nil {
		t.Fatalf("EventLogs empty: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no lines for unknown event, got %d", len(empty))
	}
}

func TestLogWindow(t *testing.T) {
	s := newTestStore(t)

	var lines []LogLine
	for i := int64(1); i <= 20; i++ {
		lines = append(lines, LogLine{
			System: "BGL", EventID: "E1", LineID: i, Content: "line",
		})
	}
	seedLines(t, s, lines)

	got, err := s.LogWindow("BGL", 10, 3)
	if err != nil {
		t.Fatalf("LogWindow: %v", err)
	}
	if len(got) != 7 {
		t.Fatalf("expected 7 lines in window, got %d", len(got))
	}
	if got[0].LineID != 7 || got[6].LineID != 13 {
		t.Errorf("window bounds: got [%d, %d], want [7, 13]", got[0].LineID, got[6].LineID)
	}

	// Window clipped at the start of the corpus.
	head, err := s.LogWindow("BGL", 1, 5)
	if err != nil {
		t.Fatalf("LogWindow head: %v", err)
	}
	if len(head) != 6 {
		t.Errorf("expected 6 lines at corpus head, got %d", len(head))
	}
}

func TestEventCountsAndSystems(t *testing.T) {
	s := newTestStore(t)

	seedLines(t, s, []LogLine{
		{System: "BGL", EventID: "E1", LineID: 1, Content: "a"},
		{System: "BGL", EventID: "E2", LineID: 2, Content: "b"},
		{System: "BGL", EventID: "E2", LineID: 3, Content: "c"},
		{System: "BGL", EventID: "E2", LineID: 4, Content: "d"},
		{System: "HPC", EventID: "E1", LineID: 1, Content: "e"},
	})

	counts, err := s.EventCounts("BGL")
	if err != nil {
		t.Fatalf("EventCounts: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("expected 2 events, got %d", len(counts))
	}
	if counts[0].EventID != "E2" || counts[0].Count != 3 {
		t.Errorf("most frequent first: got %+v", counts[0])
	}

	systems, err := s.Systems()
	if err != nil {
		t.Fatalf("Systems: %v", err)
	}
	if len(systems) != 2 || systems[0] != "BGL" || systems[1] != "HPC" {
		t.Errorf("Systems: got %v", systems)
	}
}

func TestTemplateLifecycle(t *testing.T) {
	s := newTestStore(t)

	tpls := []Template{
		{System: "BGL", EventID: "E5", Template: "generating core.<*>", Description: "core dump generated", Occurrences: 12},
		{System: "BGL", EventID: "E2", Template: "instruction cache parity error corrected", Occurrences: 4},
	}
	if err := s.UpsertTemplates(tpls); err != nil {
		t.Fatalf("UpsertTemplates: %v", err)
	}

	got, ok, err := s.Template("BGL", "E5")
	if err != nil {
		t.Fatalf("Template: %v", err)
	}
	if !ok {
		t.Fatal("expected template to exist")
	}
	if got.Template != "generating core.<*>" || got.Description != "core dump generated" {
		t.Errorf("Template: got %+v", got)
	}

	_, ok, err = s.Template("BGL", "E99")
	if err != nil {
		t.Fatalf("Template missing: %v", err)
	}
	if ok {
		t.Error("unknown event should not have a template")
	}

	if err := s.UpdateTemplate("BGL", "E5", "generating core.<*> done"); err != nil {
		t.Fatalf("UpdateTemplate: %v", err)
	}
	got, _, err = s.Template("BGL", "E5")
	if err != nil {
		t.Fatalf("Template after update: %v", err)
	}
	if got.Template != "generating core.<*> done" {
		t.Errorf("update not applied: got %q", got.Template)
	}

	if err := s.UpdateTemplate("BGL", "E99", "x"); err == nil {
		t.Error("updating a missing template should fail")
	}

	// Upsert replaces an existing row instead of duplicating it.
	if err := s.UpsertTemplates([]Template{
		{System: "BGL", EventID: "E2", Template: "cache parity error <*>", Occurrences: 7},
	}); err != nil {
		t.Fatalf("UpsertTemplates replace: %v", err)
	}
	all, err := s.Templates("BGL")
	if err != nil {
		t.Fatalf("Templates: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 templates, got %d", len(all))
	}
	if all[0].EventID != "E2" || all[0].Occurrences != 7 {
		t.Errorf("replaced template: got %+v", all[0])
	}
}
