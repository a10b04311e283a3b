package repair

import (
	"fmt"
	"strings"

	"github.com/strrl/logmend/pkg/grouper"
	"github.com/strrl/logmend/pkg/pattern"
)

const repairSystemPrompt = `You are a log parsing expert. Log templates use <*> as the positional parameter placeholder. Answer with a single JSON object and no markdown commentary outside the JSON.`

// mixedSample picks lines from the front, middle and back of the corpus so
// the oracle sees the corpus's full range instead of only its head. Small
// corpora are passed through whole.
func mixedSample(lines []pattern.Line, front, mid, back int) []pattern.Line {
	total := front + mid + back
	if len(lines) <= total {
		return lines
	}
	out := make([]pattern.Line, 0, total)
	out = append(out, lines[:front]...)
	midStart := len(lines)/2 - mid/2
	out = append(out, lines[midStart:midStart+mid]...)
	out = append(out, lines[len(lines)-back:]...)
	return out
}

func writeSamples(b *strings.Builder, heading string, samples []Sample, limit int) {
	if len(samples) == 0 {
		return
	}
	if limit > 0 && len(samples) > limit {
		samples = samples[:limit]
	}
	fmt.Fprintf(b, "%s\n", heading)
	for _, s := range samples {
		fmt.Fprintf(b, "- ground truth: %s\n", s.GroundTruth)
		if s.GeneratedLog != "" {
			fmt.Fprintf(b, "  generated:    %s\n", s.GeneratedLog)
		}
	}
	b.WriteString("\n")
}

func writeHistory(b *strings.Builder, rctx *Context) {
	stages := rctx.AttemptedStages()
	if len(stages) > 0 {
		names := make([]string, len(stages))
		for i, s := range stages {
			names[i] = string(s)
		}
		fmt.Fprintf(b, "Attempted stages so far: %s\n", strings.Join(names, " -> "))
	}
	fmt.Fprintf(b, "Prior attempts:\n%s\n\n", rctx.HistoryDigest())
}

func diagnosisPrompt(ev *Event) string {
	var b strings.Builder
	b.WriteString("Diagnose why log reconstruction failed for this event.\n\n")
	fmt.Fprintf(&b, "Template: %s\n", ev.Template)
	fmt.Fprintf(&b, "Description: %s\n\n", ev.Description)
	writeSamples(&b, "Failed samples (generated log did not match ground truth):", ev.Failed, 5)
	writeSamples(&b, "Successful samples:", ev.Passed, 3)
	b.WriteString(`Decide the root cause:
- TEMPLATE_ERROR: the template's literal text or placeholder layout is wrong
- DESCRIPTION_ERROR: the description misleads generation
- GENERATOR_ERROR: template and description are fine, generation slipped
- BOTH: template and description are both wrong
- NONE: nothing to repair

Respond with JSON: {"cause": "...", "confidence": "HIGH|MEDIUM|LOW", "analysis": "...", "issues": ["..."]}`)
	return b.String()
}

func templateRepairPrompt(ev *Event, lines []pattern.Line, rctx *Context) string {
	var b strings.Builder
	b.WriteString("Repair the log template for this event.\n\n")
	fmt.Fprintf(&b, "Current template: %s\n", ev.Template)
	fmt.Fprintf(&b, "Description: %s\n\n", ev.Description)
	writeHistory(&b, rctx)
	writeSamples(&b, "Failed samples:", ev.Failed, 5)

	sampled := mixedSample(lines, 20, 15, 15)
	fmt.Fprintf(&b, "Corpus lines under this event (%d of %d shown, drawn from front, middle and back):\n", len(sampled), len(lines))
	for _, l := range sampled {
		fmt.Fprintf(&b, "  %s\n", l.Content)
	}
	b.WriteString(`
If the template is wrong, propose a corrected one. If the template is fine and something else is to blame, say so via confirmed_cause. Provide a check_pattern (a regex or a literal substring common to every corpus line above) whenever you propose a repair, so it can be verified against the full corpus.

Respond with JSON: {"needs_repair": true|false, "confirmed_cause": "DESCRIPTION_ERROR|GENERATOR_ERROR|", "new_template": "...", "explanation": "...", "needs_check": true|false, "check_pattern": "...", "confidence": "HIGH|MEDIUM|LOW"}`)
	return b.String()
}

func descriptionRepairPrompt(ev *Event, s Sample, logContext string, rctx *Context) string {
	var b strings.Builder
	b.WriteString("Rewrite the event description so generation reproduces the ground truth.\n\n")
	fmt.Fprintf(&b, "Template: %s\n", ev.Template)
	fmt.Fprintf(&b, "Current description: %s\n\n", ev.Description)
	writeHistory(&b, rctx)
	fmt.Fprintf(&b, "Ground truth: %s\n", s.GroundTruth)
	if s.GeneratedLog != "" {
		fmt.Fprintf(&b, "Failed generation: %s\n", s.GeneratedLog)
	}
	if logContext != "" {
		fmt.Fprintf(&b, "\nSurrounding log context:\n%s\n", logContext)
	}
	b.WriteString("\nRespond with JSON: {\"new_description\": \"...\"}")
	return b.String()
}

func generatePrompt(template, description string, fewShot []Sample, target Sample) string {
	var b strings.Builder
	b.WriteString("Reconstruct the exact original log line from the template and description.\n\n")
	fmt.Fprintf(&b, "Template: %s\n", template)
	fmt.Fprintf(&b, "Description: %s\n", description)
	if len(fewShot) > 0 {
		b.WriteString("\nExamples of correct reconstructions for this template:\n")
		for _, s := range fewShot {
			fmt.Fprintf(&b, "  %s\n", s.GroundTruth)
		}
	}
	if target.GeneratedLog != "" {
		fmt.Fprintf(&b, "\nA previous attempt produced (wrong): %s\n", target.GeneratedLog)
	}
	b.WriteString("\nRespond with JSON: {\"log\": \"the reconstructed log line\"}")
	return b.String()
}

func redirectPrompt(ev *Event, from Stage, reason string, rctx *Context) string {
	var b strings.Builder
	b.WriteString("Choose the next repair strategy for this event.\n\n")
	fmt.Fprintf(&b, "Template: %s\n", ev.Template)
	fmt.Fprintf(&b, "Current stage: %s\n", from)
	fmt.Fprintf(&b, "Why it failed: %s\n\n", reason)
	writeHistory(&b, rctx)
	writeSamples(&b, "Failed samples:", ev.Failed, 3)
	b.WriteString(`Options: REDIRECT_TEMPLATE, REDIRECT_DESCRIPTION, REDIRECT_GENERATOR, REDIRECT_SPLIT, GIVE_UP. Do not pick a strategy that already failed on the same evidence.

Respond with JSON: {"decision": "...", "reason": "...", "final_diagnosis": "...", "suggestions": ["..."]}`)
	return b.String()
}

func splitPrompt(ev *Event, analysis grouper.Analysis, rctx *Context) string {
	var b strings.Builder
	b.WriteString("Classify the log group structure under this template.\n\n")
	fmt.Fprintf(&b, "Template: %s\n", ev.Template)
	fmt.Fprintf(&b, "Sampled %d lines; parameter-length gap of %d characters splits them into %d groups.\n\n",
		analysis.SampleCount, analysis.Gap, len(analysis.Groups))
	writeHistory(&b, rctx)
	for i, g := range analysis.Groups {
		fmt.Fprintf(&b, "Group %d: %d lines, parameter length %d..%d (avg %.1f)\n",
			i+1, g.Count, g.MinLength, g.MaxLength, g.AvgLength)
		for _, l := range g.Typical {
			fmt.Fprintf(&b, "  %s\n", l.Content)
		}
		b.WriteString("\n")
	}
	b.WriteString(`Decide one of:
- REFINE: one corrected template covers everything (provide new_template)
- SPLIT: the groups are structurally different logs; provide split_templates, each with its own template, check_pattern and description
- VARIABLE_LENGTH: one parameter is a variable-length list (provide new_template and variable_description)
- GIVE_UP: none of the above can work

Respond with JSON: {"decision": "...", "split_templates": [{"template": "...", "check_pattern": "...", "description": "..."}], "new_template": "...", "variable_description": "...", "confidence": "HIGH|MEDIUM|LOW"}`)
	return b.String()
}
