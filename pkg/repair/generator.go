package repair

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-errors/errors"

	"github.com/strrl/logmend/pkg/oracle"
)

// generateLog asks the oracle to reconstruct one log line from a template
// and description, optionally with few-shot examples of correct output.
func (m *Machine) generateLog(ctx context.Context, template, description string, fewShot []Sample, target Sample) (string, error) {
	text, err := m.oracle.Query(ctx, oracle.QueryRequest{
		Prompt:       generatePrompt(template, description, fewShot, target),
		SystemPrompt: repairSystemPrompt,
		Temperature:  0.3,
	})
	if err != nil {
		return "", err
	}
	payload, err := oracle.ExtractJSON(text)
	if err != nil {
		return "", err
	}
	var out struct {
		Log string `json:"log"`
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return "", errors.Errorf("decode generated log: %w", err)
	}
	if out.Log == "" {
		return "", errors.Errorf("empty generated log")
	}
	return out.Log, nil
}

// regenerate rebuilds one failed sample under a candidate template and
// description and compares the result to the ground truth. Acceptance is
// exact string equality modulo surrounding whitespace.
func (m *Machine) regenerate(ctx context.Context, template, description string, fewShot []Sample, s Sample) (bool, string) {
	generated, err := m.generateLog(ctx, template, description, fewShot, s)
	if err != nil {
		return false, ""
	}
	return strings.TrimSpace(generated) == strings.TrimSpace(s.GroundTruth), generated
}
