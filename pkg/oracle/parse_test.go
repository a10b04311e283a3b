package oracle

import "testing"

func TestExtractJSONFenced(t *testing.T) {
	text := "Here is my analysis.\n```json\n{\"decision\": \"SPLIT\"}\n```\nDone."
	payload, err := ExtractJSON(text)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if payload != `{"decision": "SPLIT"}` {
		t.Errorf("payload: got %q", payload)
	}
}

func TestExtractJSONRaw(t *testing.T) {
	payload, err := ExtractJSON(`The answer: {"needs_repair": true} hope that helps`)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if payload != `{"needs_repair": true}` {
		t.Errorf("payload: got %q", payload)
	}
}

func TestExtractJSONMissing(t *testing.T) {
	if _, err := ExtractJSON("no structured output here"); err == nil {
		t.Error("expected error for text without JSON")
	}
}

func TestParseDiagnosisLooseCause(t *testing.T) {
	cases := []struct {
		raw  string
		want Cause
	}{
		{`{"cause": "TEMPLATE_ERROR"}`, CauseTemplate},
		{`{"cause": "template error in placeholder"}`, CauseTemplate},
		{`{"cause": "both template and description"}`, CauseBoth},
		{`{"cause": "generator"}`, CauseGenerator},
		{`{"cause": "NONE"}`, CauseNone},
	}
	for _, c := range cases {
		d, err := ParseDiagnosis(c.raw)
		if err != nil {
			t.Fatalf("ParseDiagnosis(%q): %v", c.raw, err)
		}
		if d.Cause != c.want {
			t.Errorf("ParseDiagnosis(%q): got %q, want %q", c.raw, d.Cause, c.want)
		}
	}
}

func TestParseDiagnosisUnknownCause(t *testing.T) {
	if _, err := ParseDiagnosis(`{"cause": "cosmic rays"}`); err == nil {
		t.Error("expected error for unknown cause")
	}
}

func TestParseTemplateRepair(t *testing.T) {
	text := `{"needs_repair": false, "confirmed_cause": "description problem", "explanation": "template is fine"}`
	r, err := ParseTemplateRepair(text)
	if err != nil {
		t.Fatalf("ParseTemplateRepair: %v", err)
	}
	if r.NeedsRepair {
		t.Error("NeedsRepair should be false")
	}
	if r.ConfirmedCause != CauseDescription {
		t.Errorf("ConfirmedCause: got %q", r.ConfirmedCause)
	}

	r, err = ParseTemplateRepair(`{"needs_repair": true, "new_template": "x <*>", "needs_check": true, "check_pattern": "x .*"}`)
	if err != nil {
		t.Fatalf("ParseTemplateRepair: %v", err)
	}
	if r.ConfirmedCause != "" {
		t.Errorf("absent confirmed cause should stay empty, got %q", r.ConfirmedCause)
	}
	if !r.NeedsCheck || r.CheckPattern != "x .*" {
		t.Errorf("check fields: %+v", r)
	}
}

func TestParseRedirectKeywords(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`{"decision": "REDIRECT_SPLIT"}`, "REDIRECT_SPLIT"},
		{`{"decision": "redirect to the generator stage"}`, "REDIRECT_GENERATOR"},
		{`{"decision": "give up"}`, "GIVE_UP"},
		{`{"decision": "the template needs splitting"}`, "REDIRECT_SPLIT"},
	}
	for _, c := range cases {
		r, err := ParseRedirect(c.raw)
		if err != nil {
			t.Fatalf("ParseRedirect(%q): %v", c.raw, err)
		}
		if r.Action != c.want {
			t.Errorf("ParseRedirect(%q): got %q, want %q", c.raw, r.Action, c.want)
		}
	}
}

func TestParseSplitDecision(t *testing.T) {
	text := "```json\n" + `{
		"decision": "SPLIT",
		"split_templates": [
			{"template": "generating core.<*>", "check_pattern": "core\\.\\d+", "description": "numbered core"},
			{"template": "generating core files", "check_pattern": "core files", "description": "plain files"}
		]
	}` + "\n```"

	d, err := ParseSplitDecision(text)
	if err != nil {
		t.Fatalf("ParseSplitDecision: %v", err)
	}
	if d.Decision != SplitVerdictSplit {
		t.Errorf("Decision: got %q", d.Decision)
	}
	if len(d.SplitTemplates) != 2 {
		t.Fatalf("SplitTemplates: got %d, want 2", len(d.SplitTemplates))
	}
	if d.SplitTemplates[0].CheckPattern != `core\.\d+` {
		t.Errorf("CheckPattern: got %q", d.SplitTemplates[0].CheckPattern)
	}
}

func TestParseSplitDecisionRejectsSingleTemplate(t *testing.T) {
	text := `{"decision": "SPLIT", "split_templates": [{"template": "x"}]}`
	if _, err := ParseSplitDecision(text); err == nil {
		t.Error("split with fewer than 2 templates must be rejected")
	}
}

func TestParseSplitDecisionVariableLength(t *testing.T) {
	d, err := ParseSplitDecision(`{"decision": "variable_length parameter"}`)
	if err != nil {
		t.Fatalf("ParseSplitDecision: %v", err)
	}
	if d.Decision != SplitVerdictVariableLength {
		t.Errorf("Decision: got %q", d.Decision)
	}
}
