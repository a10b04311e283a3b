package oracle

import (
	"encoding/json"
	"strings"

	"github.com/go-errors/errors"
)

// ExtractJSON pulls the JSON payload out of a model completion. Fenced code
// blocks are preferred; otherwise the first balanced object or array found
// in the raw text is returned.
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)

	if idx := strings.Index(text, "```json"); idx != -1 {
		rest := text[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end]), nil
		}
	}
	if idx := strings.Index(text, "```"); idx != -1 {
		rest := text[idx+3:]
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end]), nil
		}
	}

	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(text, pair[0])
		end := strings.LastIndex(text, pair[1])
		if start != -1 && end > start {
			return text[start : end+1], nil
		}
	}
	return "", errors.Errorf("no JSON payload in completion (content=%q)", truncate(text, 200))
}

func decodeInto(text string, v any) error {
	payload, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return errors.Errorf("JSON decode (content=%q): %w", truncate(payload, 200), err)
	}
	return nil
}

// ParseDiagnosis decodes a diagnosis verdict, normalizing the cause via
// loose keyword matching so minor phrasing drift does not break routing.
func ParseDiagnosis(text string) (Diagnosis, error) {
	var d Diagnosis
	if err := decodeInto(text, &d); err != nil {
		return Diagnosis{}, err
	}
	cause := normalizeCause(string(d.Cause))
	if cause == "" {
		return Diagnosis{}, errors.Errorf("unrecognized cause %q", d.Cause)
	}
	d.Cause = cause
	return d, nil
}

// ParseTemplateRepair decodes a template repair answer. An absent or
// unrecognized confirmed cause is left empty, meaning the oracle did not
// reclassify.
func ParseTemplateRepair(text string) (TemplateRepair, error) {
	var r TemplateRepair
	if err := decodeInto(text, &r); err != nil {
		return TemplateRepair{}, err
	}
	r.ConfirmedCause = normalizeCause(string(r.ConfirmedCause))
	return r, nil
}

// ParseDescriptionRepair decodes a description rewrite answer.
func ParseDescriptionRepair(text string) (DescriptionRepair, error) {
	var r DescriptionRepair
	if err := decodeInto(text, &r); err != nil {
		return DescriptionRepair{}, err
	}
	if strings.TrimSpace(r.NewDescription) == "" {
		return DescriptionRepair{}, errors.Errorf("empty new description")
	}
	return r, nil
}

// ParseRedirect decodes a redirect decision. The action string is matched
// loosely: any answer containing a stage keyword maps to that redirect.
func ParseRedirect(text string) (RedirectDecision, error) {
	var r RedirectDecision
	if err := decodeInto(text, &r); err != nil {
		return RedirectDecision{}, err
	}
	action := normalizeRedirect(r.Action)
	if action == "" {
		return RedirectDecision{}, errors.Errorf("unrecognized redirect decision %q", r.Action)
	}
	r.Action = action
	return r, nil
}

// ParseSplitDecision decodes a split verdict, normalizing the decision
// keyword. A SPLIT verdict with fewer than two candidate templates is
// malformed.
func ParseSplitDecision(text string) (SplitDecision, error) {
	var d SplitDecision
	if err := decodeInto(text, &d); err != nil {
		return SplitDecision{}, err
	}
	upper := strings.ToUpper(d.Decision)
	switch {
	case strings.Contains(upper, "VARIABLE"):
		d.Decision = SplitVerdictVariableLength
	case strings.Contains(upper, "SPLIT"):
		d.Decision = SplitVerdictSplit
	case strings.Contains(upper, "REFINE"):
		d.Decision = SplitVerdictRefine
	case strings.Contains(upper, "GIVE"):
		d.Decision = SplitVerdictGiveUp
	default:
		return SplitDecision{}, errors.Errorf("unrecognized split decision %q", d.Decision)
	}
	if d.Decision == SplitVerdictSplit && len(d.SplitTemplates) < 2 {
		return SplitDecision{}, errors.Errorf("split verdict with %d templates", len(d.SplitTemplates))
	}
	return d, nil
}

func normalizeCause(raw string) Cause {
	upper := strings.ToUpper(raw)
	switch {
	case strings.Contains(upper, "BOTH"):
		return CauseBoth
	case strings.Contains(upper, "TEMPLATE"):
		return CauseTemplate
	case strings.Contains(upper, "DESCRIPTION"):
		return CauseDescription
	case strings.Contains(upper, "GENERAT"):
		return CauseGenerator
	case strings.Contains(upper, "NONE"):
		return CauseNone
	}
	return ""
}

func normalizeRedirect(raw string) string {
	upper := strings.ToUpper(raw)
	switch {
	case strings.Contains(upper, "SPLIT"):
		return "REDIRECT_SPLIT"
	case strings.Contains(upper, "TEMPLATE"):
		return "REDIRECT_TEMPLATE"
	case strings.Contains(upper, "DESCRIPTION"):
		return "REDIRECT_DESCRIPTION"
	case strings.Contains(upper, "GENERAT"):
		return "REDIRECT_GENERATOR"
	case strings.Contains(upper, "GIVE"):
		return "GIVE_UP"
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
