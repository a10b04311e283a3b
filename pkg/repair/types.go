package repair

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/go-errors/errors"
)

// Sample is one log-reconstruction attempt. Samples are immutable once
// loaded; a repaired template or description is tested by building a new
// candidate, never by mutating the original, so before/after evidence
// survives in the audit trail.
type Sample struct {
	System       string `json:"system_name"`
	EventID      string `json:"EventId"`
	LineID       string `json:"LineId"`
	Template     string `json:"template"`
	Description  string `json:"description"`
	GroundTruth  string `json:"ground_truth"`
	GeneratedLog string `json:"generated_log"`
	Matched      bool   `json:"exact_match"`
}

// LoadResults reads a reconstruction results file: a JSON array of samples.
func LoadResults(path string) ([]Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("read results: %w", err)
	}
	var samples []Sample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, errors.Errorf("decode results: %w", err)
	}
	return samples, nil
}

// EventGroup gathers all samples of one event, split by outcome.
type EventGroup struct {
	System   string
	EventID  string
	Template string
	Failed   []Sample
	Passed   []Sample
}

// GroupEvents buckets samples per system and event. Within each system the
// events are ordered by failure count, most failing first, so a capped run
// spends its budget where it matters.
func GroupEvents(samples []Sample) map[string][]EventGroup {
	type key struct{ system, event string }
	groups := map[key]*EventGroup{}
	var order []key

	for _, s := range samples {
		k := key{s.System, s.EventID}
		g, ok := groups[k]
		if !ok {
			g = &EventGroup{System: s.System, EventID: s.EventID, Template: s.Template}
			groups[k] = g
			order = append(order, k)
		}
		if s.Matched {
			g.Passed = append(g.Passed, s)
		} else {
			g.Failed = append(g.Failed, s)
		}
	}

	bySystem := map[string][]EventGroup{}
	for _, k := range order {
		bySystem[k.system] = append(bySystem[k.system], *groups[k])
	}
	for system := range bySystem {
		gs := bySystem[system]
		sort.SliceStable(gs, func(i, j int) bool {
			return len(gs[i].Failed) > len(gs[j].Failed)
		})
		bySystem[system] = gs
	}
	return bySystem
}
