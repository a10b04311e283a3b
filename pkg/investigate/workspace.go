// Package investigate runs an agentic review of a system's repair history:
// it materializes the corpus, templates and repair outcomes as a file
// workspace and lets a tool-using agent dig through it.
package investigate

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-errors/errors"

	"github.com/strrl/logmend/pkg/repair"
	"github.com/strrl/logmend/pkg/store"
)

//go:embed AGENTS.md
var agentsMD []byte

const (
	workspaceEventCap  = 50
	workspaceSampleCap = 5
)

// BuildWorkspace writes the investigation files for one system into dir:
// templates.txt, corpus.txt, repairs.txt and AGENTS.md.
func BuildWorkspace(dir string, st store.Store, system string, entries map[string]repair.LedgerEntry) error {
	counts, err := st.EventCounts(system)
	if err != nil {
		return errors.Errorf("load event counts: %w", err)
	}
	templates, err := st.Templates(system)
	if err != nil {
		return errors.Errorf("load templates: %w", err)
	}

	if err := writeTemplates(dir, counts, templates); err != nil {
		return errors.Errorf("write templates.txt: %w", err)
	}
	if err := writeCorpus(dir, st, system, counts); err != nil {
		return errors.Errorf("write corpus.txt: %w", err)
	}
	if err := writeRepairs(dir, system, entries); err != nil {
		return errors.Errorf("write repairs.txt: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "AGENTS.md"), agentsMD, 0o644); err != nil {
		return errors.Errorf("write AGENTS.md: %w", err)
	}
	return nil
}

func writeTemplates(dir string, counts []store.EventCount, templates []store.Template) error {
	byEvent := make(map[string]store.Template, len(templates))
	for _, t := range templates {
		byEvent[t.EventID] = t
	}

	var b strings.Builder
	for _, c := range counts {
		t := byEvent[c.EventID]
		fmt.Fprintf(&b, "%s  count=%d\n", c.EventID, c.Count)
		fmt.Fprintf(&b, "  template: %s\n", t.Template)
		if t.Description != "" {
			fmt.Fprintf(&b, "  description: %s\n", t.Description)
		}
		b.WriteString("\n")
	}
	return os.WriteFile(filepath.Join(dir, "templates.txt"), []byte(b.String()), 0o644)
}

func writeCorpus(dir string, st store.Store, system string, counts []store.EventCount) error {
	var b strings.Builder
	for i, c := range counts {
		if i >= workspaceEventCap {
			fmt.Fprintf(&b, "... %d more events omitted\n", len(counts)-i)
			break
		}
		logs, err := st.EventLogs(system, c.EventID)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "== %s (%d lines) ==\n", c.EventID, len(logs))
		for j, l := range logs {
			if j >= workspaceSampleCap {
				fmt.Fprintf(&b, "   ... %d more\n", len(logs)-j)
				break
			}
			fmt.Fprintf(&b, "   %d: %s\n", l.LineID, l.Content)
		}
		b.WriteString("\n")
	}
	return os.WriteFile(filepath.Join(dir, "corpus.txt"), []byte(b.String()), 0o644)
}

func writeRepairs(dir, system string, entries map[string]repair.LedgerEntry) error {
	keys := make([]string, 0, len(entries))
	for k, e := range entries {
		if e.System == system {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	if len(keys) == 0 {
		b.WriteString("(no repair outcomes recorded for this system)\n")
	}
	for _, k := range keys {
		e := entries[k]
		fmt.Fprintf(&b, "%s  status=%s\n", e.EventID, e.Status)
		fmt.Fprintf(&b, "  diagnosis: %s (%s)\n", e.Diagnosis.Cause, e.Diagnosis.Confidence)
		fmt.Fprintf(&b, "  reason: %s\n", e.Reason)
		if e.Template != "" {
			fmt.Fprintf(&b, "  repaired template: %s\n", e.Template)
		}
		for _, st := range e.SplitTemplates {
			fmt.Fprintf(&b, "  split template: %s\n", st.Template)
		}
		b.WriteString("\n")
	}
	return os.WriteFile(filepath.Join(dir, "repairs.txt"), []byte(b.String()), 0o644)
}
