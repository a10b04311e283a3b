package repair

import (
	"context"
	"strings"
	"testing"

	"github.com/strrl/logmend/pkg/config"
	"github.com/strrl/logmend/pkg/oracle"
	"github.com/strrl/logmend/pkg/pattern"
)

// Prompt dispatch markers, matching the first line of each prompt builder.
const (
	markDiagnose = "Diagnose why"
	markTemplate = "Repair the log template"
	markDescribe = "Rewrite the event description"
	markGenerate = "Reconstruct the exact"
	markRedirect = "Choose the next repair strategy"
	markSplit    = "Classify the log group structure"
)

var allMarkers = []string{markDiagnose, markTemplate, markDescribe, markGenerate, markRedirect, markSplit}

// scriptedOracle answers each prompt kind with a scripted response, and
// records every prompt for assertions.
type scriptedOracle struct {
	t        *testing.T
	handlers map[string]func(n int, prompt string) string
	counts   map[string]int
	prompts  map[string][]string
}

func newScriptedOracle(t *testing.T) *scriptedOracle {
	t.Helper()
	return &scriptedOracle{
		t:        t,
		handlers: map[string]func(int, string) string{},
		counts:   map[string]int{},
		prompts:  map[string][]string{},
	}
}

func (o *scriptedOracle) on(marker string, h func(n int, prompt string) string) {
	o.handlers[marker] = h
}

func (o *scriptedOracle) reply(marker, response string) {
	o.on(marker, func(int, string) string { return response })
}

func (o *scriptedOracle) Query(_ context.Context, req oracle.QueryRequest) (string, error) {
	for _, m := range allMarkers {
		if !strings.HasPrefix(req.Prompt, m) {
			continue
		}
		n := o.counts[m]
		o.counts[m]++
		o.prompts[m] = append(o.prompts[m], req.Prompt)
		h := o.handlers[m]
		if h == nil {
			o.t.Fatalf("unexpected %q query", m)
		}
		return h(n, req.Prompt), nil
	}
	o.t.Fatalf("unrecognized prompt: %.80s", req.Prompt)
	return "", nil
}

// fakeCorpus serves a fixed line set and runs real pattern checks over it.
type fakeCorpus struct {
	lines      []pattern.Line
	contexts   map[int64]string
	checkCalls int
}

func (f *fakeCorpus) AllLogs(string) ([]pattern.Line, error) {
	return f.lines, nil
}

func (f *fakeCorpus) CheckPattern(_, pat string, isRegex bool, maxMismatch int) (pattern.CheckResult, error) {
	f.checkCalls++
	return pattern.Check(f.lines, pat, isRegex, maxMismatch)
}

func (f *fakeCorpus) CheckDualPatterns(_, newPat, oldPat string, sampleCount int) (pattern.DualCheckResult, error) {
	return pattern.CheckDual(f.lines, newPat, oldPat, sampleCount)
}

func (f *fakeCorpus) LogContext(lineID int64, int) (string, error) {
	return f.contexts[lineID], nil
}

func corpusOf(contents ...string) *fakeCorpus {
	lines := make([]pattern.Line, len(contents))
	for i, c := range contents {
		lines[i] = pattern.Line{LineID: "1", Content: c}
	}
	return &fakeCorpus{lines: lines, contexts: map[int64]string{}}
}

func newTestMachine(o oracle.Client, c Corpus) *Machine {
	return NewMachine(o, c, config.DefaultThresholds())
}

func TestSkipOnNoneDiagnosis(t *testing.T) {
	o := newScriptedOracle(t)
	o.reply(markDiagnose, `{"cause": "NONE", "confidence": "HIGH"}`)
	m := newTestMachine(o, corpusOf("a line"))

	rec := m.Repair(context.Background(), Event{
		System: "BGL", EventID: "E1", Template: "a line",
		Failed: []Sample{{EventID: "E1", LineID: "1", GroundTruth: "a line"}},
	})
	if rec.Status != StatusSkipped {
		t.Fatalf("Status: got %s, want %s", rec.Status, StatusSkipped)
	}
	if len(rec.Transitions) != 0 {
		t.Errorf("skipped event must not redirect, got %d transitions", len(rec.Transitions))
	}
	if o.counts[markTemplate]+o.counts[markDescribe]+o.counts[markGenerate] != 0 {
		t.Error("skipped event must not reach any stage")
	}
}

func TestDescriptionRouteAndSuccess(t *testing.T) {
	o := newScriptedOracle(t)
	o.reply(markDiagnose, `{"cause": "DESCRIPTION_ERROR", "confidence": "HIGH"}`)
	o.reply(markDescribe, `{"new_description": "a retry counter log with one numeric field"}`)
	o.reply(markGenerate, `{"log": "retry 7 of 10"}`)
	m := newTestMachine(o, corpusOf("retry 7 of 10"))

	rec := m.Repair(context.Background(), Event{
		System: "BGL", EventID: "E3",
		Template:    "retry <*> of <*>",
		Description: "something vague",
		Failed: []Sample{{
			EventID: "E3", LineID: "1",
			GroundTruth:  "retry 7 of 10",
			GeneratedLog: "retry seven of ten",
		}},
	})
	if rec.Status != SuccessStatus(StageDescription) {
		t.Fatalf("Status: got %s, want SUCCESS_DESCRIPTION", rec.Status)
	}
	if rec.Repaired == nil || rec.Repaired.Description == "" {
		t.Fatal("accepted description missing from record")
	}
	if o.counts[markTemplate] != 0 {
		t.Error("DESCRIPTION_ERROR must route straight to the description stage")
	}
}

func TestTemplateRepairEndToEnd(t *testing.T) {
	// The corpus uses 8 dots; the broken template has 7. A corrected 8-dot
	// pattern covers the whole corpus, regeneration reproduces the failed
	// sample, and the machine halts with a template success.
	o := newScriptedOracle(t)
	o.reply(markDiagnose, `{"cause": "TEMPLATE_ERROR", "confidence": "HIGH"}`)
	o.reply(markTemplate, `{"needs_repair": true, "new_template": "error........<*>", "explanation": "one dot short", "needs_check": true, "check_pattern": "error\\.{8}", "confidence": "HIGH"}`)
	o.reply(markGenerate, `{"log": "error........1"}`)
	m := newTestMachine(o, corpusOf(
		"d-cache error........1",
		"d-cache error........0",
		"d-cache error........1",
	))

	rec := m.Repair(context.Background(), Event{
		System: "BGL", EventID: "E7",
		Template:    "error.......<*>",
		Description: "d-cache parity error flag",
		Failed: []Sample{{
			EventID: "E7", LineID: "1",
			GroundTruth:  "error........1",
			GeneratedLog: "error.......1",
		}},
	})
	if rec.Status != SuccessStatus(StageTemplate) {
		t.Fatalf("Status: got %s, want SUCCESS_TEMPLATE (reason: %s)", rec.Status, rec.Reason)
	}
	if rec.Repaired.Template != "error........<*>" {
		t.Errorf("Repaired.Template: got %q", rec.Repaired.Template)
	}
	if len(rec.Transitions) != 0 {
		t.Errorf("direct success must not redirect, got %v", rec.Transitions)
	}
}

func TestPartialCoverageRoutesToSplit(t *testing.T) {
	// The proposed template covers 40% of the corpus while the original
	// still covers all of it: the template stage must hand off to SPLIT
	// directly, and the split stage accepts the original+proposed pair.
	o := newScriptedOracle(t)
	o.reply(markDiagnose, `{"cause": "TEMPLATE_ERROR", "confidence": "MEDIUM"}`)
	o.reply(markTemplate, `{"needs_repair": true, "new_template": "generating core.<*>", "needs_check": true, "check_pattern": "generating core\\.\\d+", "confidence": "MEDIUM"}`)
	o.reply(markGenerate, `{"log": "generating core.512"}`)
	m := newTestMachine(o, corpusOf(
		"generating core.1024",
		"generating core.2048",
		"generating core files",
		"generating core files",
		"generating core files",
	))

	rec := m.Repair(context.Background(), Event{
		System: "BGL", EventID: "E5",
		Template:    "generating core",
		Description: "core dump notice",
		Failed: []Sample{{
			EventID: "E5", LineID: "1",
			GroundTruth:  "generating core.512",
			GeneratedLog: "generating core 512",
		}},
	})
	if rec.Status != SuccessStatus(StageSplit) {
		t.Fatalf("Status: got %s, want SUCCESS_SPLIT (reason: %s)", rec.Status, rec.Reason)
	}
	if len(rec.Transitions) != 1 || rec.Transitions[0].Stage != StageSplit {
		t.Fatalf("expected a single redirect to SPLIT, got %+v", rec.Transitions)
	}
	if len(rec.Repaired.SplitTemplates) != 2 {
		t.Fatalf("SplitTemplates: got %d, want 2", len(rec.Repaired.SplitTemplates))
	}
	if o.counts[markSplit] != 0 {
		t.Error("direct combination must not consult the split classifier")
	}
}

func TestRedirectBudgetExhaustion(t *testing.T) {
	// Description and generator stages keep failing and keep redirecting to
	// each other. The machine must halt after the budget is exceeded, with
	// exactly MaxRedirects recorded transitions.
	o := newScriptedOracle(t)
	o.reply(markDiagnose, `{"cause": "DESCRIPTION_ERROR", "confidence": "LOW"}`)
	o.reply(markDescribe, `{"new_description": "still wrong"}`)
	o.reply(markGenerate, `{"log": "never the right line"}`)
	o.on(markRedirect, func(_ int, prompt string) string {
		if strings.Contains(prompt, "Current stage: DESCRIPTION") {
			return `{"decision": "REDIRECT_GENERATOR", "reason": "try regeneration"}`
		}
		return `{"decision": "REDIRECT_DESCRIPTION", "reason": "try the description again"}`
	})
	m := newTestMachine(o, corpusOf("real line"))

	rec := m.Repair(context.Background(), Event{
		System: "BGL", EventID: "E9",
		Template:    "real line",
		Description: "a line",
		Failed:      []Sample{{EventID: "E9", LineID: "1", GroundTruth: "real line"}},
	})
	if rec.Status != StatusMaxRedirects {
		t.Fatalf("Status: got %s, want %s", rec.Status, StatusMaxRedirects)
	}
	if len(rec.Transitions) != config.DefaultThresholds().MaxRedirects {
		t.Fatalf("Transitions: got %d, want %d", len(rec.Transitions), config.DefaultThresholds().MaxRedirects)
	}
	for i, tr := range rec.Transitions {
		if tr.RedirectCount != i+1 {
			t.Errorf("RedirectCount[%d]: got %d, want %d", i, tr.RedirectCount, i+1)
		}
	}
}

func TestAttemptedStagesReachTheOracle(t *testing.T) {
	o := newScriptedOracle(t)
	o.reply(markDiagnose, `{"cause": "DESCRIPTION_ERROR", "confidence": "LOW"}`)
	o.reply(markDescribe, `{"new_description": "still wrong"}`)
	o.reply(markGenerate, `{"log": "never the right line"}`)
	o.on(markRedirect, func(_ int, prompt string) string {
		if strings.Contains(prompt, "Current stage: DESCRIPTION") {
			return `{"decision": "REDIRECT_GENERATOR", "reason": "x"}`
		}
		return `{"decision": "REDIRECT_DESCRIPTION", "reason": "y"}`
	})
	m := newTestMachine(o, corpusOf("real line"))

	m.Repair(context.Background(), Event{
		System: "BGL", EventID: "E9",
		Template:    "real line",
		Description: "a line",
		Failed:      []Sample{{EventID: "E9", LineID: "1", GroundTruth: "real line"}},
	})

	redirects := o.prompts[markRedirect]
	if len(redirects) < 3 {
		t.Fatalf("expected at least 3 redirect consultations, got %d", len(redirects))
	}
	last := redirects[len(redirects)-1]
	want := "Attempted stages so far: DESCRIPTION -> GENERATOR -> DESCRIPTION -> GENERATOR"
	if !strings.Contains(last, want) {
		t.Errorf("last redirect prompt missing ordered stage history %q", want)
	}
}

func TestByteIdenticalRepairForcesRedirect(t *testing.T) {
	o := newScriptedOracle(t)
	o.reply(markDiagnose, `{"cause": "TEMPLATE_ERROR", "confidence": "HIGH"}`)
	o.reply(markTemplate, `{"needs_repair": true, "new_template": "same <*>", "confidence": "HIGH"}`)
	o.reply(markRedirect, `{"decision": "GIVE_UP", "reason": "nothing else to try"}`)
	fc := corpusOf("same 1", "same 2")
	m := newTestMachine(o, fc)

	rec := m.Repair(context.Background(), Event{
		System: "BGL", EventID: "E2",
		Template: "same <*>",
		Failed:   []Sample{{EventID: "E2", LineID: "1", GroundTruth: "same 1"}},
	})
	if rec.Status != StatusGiveUp {
		t.Fatalf("Status: got %s, want GIVE_UP", rec.Status)
	}
	if o.counts[markRedirect] != 1 {
		t.Errorf("identical template must force a redirect consultation, got %d", o.counts[markRedirect])
	}
	if fc.checkCalls != 0 {
		t.Errorf("identical template must not be verified, got %d check calls", fc.checkCalls)
	}
}

func TestReclassificationRedirectsWithoutTesting(t *testing.T) {
	o := newScriptedOracle(t)
	o.reply(markDiagnose, `{"cause": "TEMPLATE_ERROR", "confidence": "LOW"}`)
	o.reply(markTemplate, `{"needs_repair": false, "confirmed_cause": "DESCRIPTION_ERROR", "explanation": "template is right"}`)
	o.reply(markDescribe, `{"new_description": "precise description"}`)
	o.reply(markGenerate, `{"log": "boot finished in 42 ms"}`)
	fc := corpusOf("boot finished in 42 ms")
	m := newTestMachine(o, fc)

	rec := m.Repair(context.Background(), Event{
		System: "BGL", EventID: "E4",
		Template:    "boot finished in <*> ms",
		Description: "vague",
		Failed:      []Sample{{EventID: "E4", LineID: "1", GroundTruth: "boot finished in 42 ms"}},
	})
	if rec.Status != SuccessStatus(StageDescription) {
		t.Fatalf("Status: got %s, want SUCCESS_DESCRIPTION", rec.Status)
	}
	if fc.checkCalls != 0 {
		t.Errorf("reclassification must skip verification, got %d check calls", fc.checkCalls)
	}
	if len(rec.Transitions) != 1 || rec.Transitions[0].Stage != StageDescription {
		t.Errorf("expected one redirect to DESCRIPTION, got %+v", rec.Transitions)
	}
}

func TestMalformedTemplateAnswerUsesStageDefault(t *testing.T) {
	o := newScriptedOracle(t)
	o.reply(markTemplate, `the model rambled with no JSON at all`)
	m := newTestMachine(o, corpusOf("x 1"))

	result := m.runTemplate(context.Background(), &Event{
		System: "BGL", EventID: "E1", Template: "x <*>",
		Failed: []Sample{{EventID: "E1", LineID: "1", GroundTruth: "x 1"}},
	}, NewContext())
	if result.Signal != SignalRedirectDesc {
		t.Errorf("Signal: got %s, want the stage default %s", result.Signal, SignalRedirectDesc)
	}
}

func TestSplitGateSkipsOracle(t *testing.T) {
	// Uniform parameter lengths: the gap gate fails, so the split
	// classifier is never consulted and the stage asks for a redirect.
	o := newScriptedOracle(t)
	o.reply(markRedirect, `{"decision": "REDIRECT_DESCRIPTION", "reason": "no structural evidence"}`)
	m := newTestMachine(o, corpusOf(
		"Failed subcommands a1",
		"Failed subcommands b2",
		"Failed subcommands c3",
	))

	result := m.runSplit(context.Background(), &Event{
		System: "BGL", EventID: "E6",
		Template: "Failed subcommands <*>",
		Failed:   []Sample{{EventID: "E6", LineID: "1", GroundTruth: "Failed subcommands a1"}},
	}, NewContext())
	if o.counts[markSplit] != 0 {
		t.Errorf("gated split must not consult the classifier, got %d calls", o.counts[markSplit])
	}
	if result.Signal != SignalRedirectDesc {
		t.Errorf("Signal: got %s, want %s", result.Signal, SignalRedirectDesc)
	}
}

func TestSplitRefineAccepted(t *testing.T) {
	o := newScriptedOracle(t)
	o.reply(markSplit, `{"decision": "REFINE", "new_template": "took <*> ms to flush <*>", "confidence": "HIGH"}`)
	var contents []string
	for i := 0; i < 10; i++ {
		contents = append(contents, "took 5 ms to flush 1")
	}
	for i := 0; i < 10; i++ {
		contents = append(contents, "took 5 ms to flush "+strings.Repeat("segment,", 12))
	}
	m := newTestMachine(o, corpusOf(contents...))

	result := m.runSplit(context.Background(), &Event{
		System: "BGL", EventID: "E8",
		Template: "took <*> ms to flush",
		Failed:   []Sample{{EventID: "E8", LineID: "1", GroundTruth: "took 5 ms to flush 1"}},
	}, NewContext())
	if result.Signal != SignalContinue {
		t.Fatalf("Signal: got %s, want CONTINUE (reason: %s)", result.Signal, result.Reason)
	}
	if result.Repaired.Template != "took <*> ms to flush <*>" {
		t.Errorf("refined template: got %q", result.Repaired.Template)
	}
}

func TestStagePanicBecomesGiveUp(t *testing.T) {
	o := newScriptedOracle(t)
	o.reply(markDiagnose, `{"cause": "GENERATOR_ERROR", "confidence": "HIGH"}`)
	o.on(markGenerate, func(int, string) string {
		panic("oracle client blew up")
	})
	m := newTestMachine(o, corpusOf("x"))

	rec := m.Repair(context.Background(), Event{
		System: "BGL", EventID: "E1", Template: "x",
		Failed: []Sample{{EventID: "E1", LineID: "1", GroundTruth: "x"}},
	})
	if rec.Status != StatusGiveUp {
		t.Fatalf("Status: got %s, want GIVE_UP", rec.Status)
	}
	if !strings.Contains(rec.Reason, "oracle client blew up") {
		t.Errorf("panic text missing from reason: %q", rec.Reason)
	}
}
