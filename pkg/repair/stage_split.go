package repair

import (
	"context"
	"fmt"
	"regexp"

	"github.com/strrl/logmend/pkg/grouper"
	"github.com/strrl/logmend/pkg/oracle"
	"github.com/strrl/logmend/pkg/pattern"
)

// runSplit executes the SPLIT repair strategy: decide whether one template
// is hiding several distinct log structures and, if so, replace it with
// verified per-structure templates.
func (m *Machine) runSplit(ctx context.Context, ev *Event, rctx *Context) StageResult {
	lines, err := m.corpus.AllLogs(ev.EventID)
	if err != nil {
		return m.askRedirect(ctx, ev, rctx, StageSplit,
			fmt.Sprintf("corpus unavailable for split analysis: %v", err))
	}

	// Dual-check evidence from a TEMPLATE-stage redirect short-circuits the
	// clustering: when the original template still covers the whole corpus
	// and the proposal matches part of it, the pair itself is the split.
	if seed := ev.seed; seed != nil && seed.Dual.OldMatchRate == 1.0 && seed.Dual.NewMatchCount > 0 {
		rctx.Add(StageSplit,
			fmt.Sprintf("direct combination: original %q + proposed %q", ev.Template, seed.NewTemplate),
			fmt.Sprintf("dual check: new=%d old=%d of %d lines",
				seed.Dual.NewMatchCount, seed.Dual.OldMatchCount, seed.Dual.TotalCount))
		candidates := []oracle.SplitTemplate{
			{Template: seed.NewTemplate},
			{Template: ev.Template, Description: ev.Description},
		}
		return m.verifySplit(ctx, ev, rctx, candidates)
	}

	analysis := grouper.Analyze(lines, ev.Template, m.cfg.SampleCount)
	inputSummary := fmt.Sprintf("length clustering: sampled=%d groups=%d gap=%d max_length=%d",
		analysis.SampleCount, len(analysis.Groups), analysis.Gap, analysis.MaxLength)

	if !analysis.ShouldConsultOracle(m.cfg.GapAbsolute, m.cfg.GapRelative) {
		rctx.Add(StageSplit, inputSummary, "gap below split-evidence thresholds")
		return m.askRedirect(ctx, ev, rctx, StageSplit,
			fmt.Sprintf("no split evidence: %d length groups with gap %d", len(analysis.Groups), analysis.Gap))
	}

	text, err := m.oracle.Query(ctx, oracle.QueryRequest{
		Prompt:       splitPrompt(ev, analysis, rctx),
		SystemPrompt: repairSystemPrompt,
		Temperature:  0.1,
	})
	if err != nil {
		rctx.Add(StageSplit, inputSummary, "query failed: "+err.Error())
		return StageResult{Signal: defaultRedirect(StageSplit),
			Reason: fmt.Sprintf("split classification query failed: %v", err)}
	}
	decision, err := oracle.ParseSplitDecision(text)
	if err != nil {
		rctx.Add(StageSplit, inputSummary, "unparsable answer")
		return StageResult{Signal: defaultRedirect(StageSplit),
			Reason: fmt.Sprintf("split classification unparsable: %v", err)}
	}
	rctx.Add(StageSplit, inputSummary,
		fmt.Sprintf("decision=%s templates=%d", decision.Decision, len(decision.SplitTemplates)))

	switch decision.Decision {
	case oracle.SplitVerdictRefine:
		if decision.NewTemplate == "" || decision.NewTemplate == ev.Template {
			return m.askRedirect(ctx, ev, rctx, StageSplit,
				"refine verdict without an effective new template")
		}
		return StageResult{
			Signal:   SignalContinue,
			Reason:   "single refined template accepted",
			Repaired: &Repaired{Template: decision.NewTemplate},
		}

	case oracle.SplitVerdictVariableLength:
		repaired := &Repaired{
			Template:            decision.NewTemplate,
			VariableDescription: decision.VariableDescription,
		}
		if repaired.Template == "" {
			repaired.Template = ev.Template
		}
		return StageResult{
			Signal:   SignalContinue,
			Reason:   "length variation classified as a variable-length list parameter",
			Repaired: repaired,
		}

	case oracle.SplitVerdictGiveUp:
		return StageResult{Signal: SignalGiveUp,
			Reason: "oracle found no viable split, refinement or list interpretation"}
	}

	return m.verifySplit(ctx, ev, rctx, decision.SplitTemplates)
}

type splitCandidate struct {
	tpl     oracle.SplitTemplate
	assign  *regexp.Regexp
	matches int
}

// verifySplit accepts a set of candidate templates only when at least two
// verify against the corpus, their combined coverage clears the threshold,
// and every failed sample regenerates under the candidate it is assigned
// to.
func (m *Machine) verifySplit(ctx context.Context, ev *Event, rctx *Context, candidates []oracle.SplitTemplate) StageResult {
	var verified []splitCandidate
	totalLines := 0
	sumMatches := 0

	for _, c := range candidates {
		pat, isRegex := c.CheckPattern, true
		if pat == "" {
			pat, isRegex = c.Template, false
		}
		res, err := m.corpus.CheckPattern(ev.EventID, pat, isRegex, m.cfg.MaxMismatchSamples)
		if err != nil || res.MatchCount == 0 {
			continue
		}
		assign, err := compileAssignment(c)
		if err != nil {
			continue
		}
		totalLines = res.TotalCount
		sumMatches += res.MatchCount
		verified = append(verified, splitCandidate{tpl: c, assign: assign, matches: res.MatchCount})
	}

	if len(verified) < 2 {
		rctx.AttachResults(fmt.Sprintf("split verification: %d/%d candidates matched the corpus",
			len(verified), len(candidates)), "")
		return m.redirectWithBest(ctx, ev, rctx, verified,
			fmt.Sprintf("only %d split candidates verified against the corpus", len(verified)))
	}

	coverage := 1.0
	if totalLines > 0 {
		coverage = float64(sumMatches) / float64(totalLines)
		if coverage > 1.0 {
			coverage = 1.0
		}
	}
	rctx.AttachResults(fmt.Sprintf("split verification: %d candidates, combined coverage %.2f",
		len(verified), coverage), "")
	if coverage < m.cfg.SplitCoverage {
		return m.redirectWithBest(ctx, ev, rctx, verified,
			fmt.Sprintf("combined split coverage %.0f%% below the %.0f%% acceptance threshold",
				coverage*100, m.cfg.SplitCoverage*100))
	}

	successes := 0
	for _, s := range ev.Failed {
		cand, ok := assignSample(verified, s)
		if !ok {
			continue
		}
		desc := cand.tpl.Description
		if desc == "" {
			desc = ev.Description
		}
		if regenerated, _ := m.regenerate(ctx, cand.tpl.Template, desc, nil, s); regenerated {
			successes++
		}
	}
	rctx.AttachResults(fmt.Sprintf("split regeneration: %d/%d failed samples reproduced",
		successes, len(ev.Failed)), "")

	if successes < len(ev.Failed) {
		return m.redirectWithBest(ctx, ev, rctx, verified,
			fmt.Sprintf("split regeneration reproduced only %d/%d failed samples", successes, len(ev.Failed)))
	}

	accepted := make([]oracle.SplitTemplate, len(verified))
	for i, v := range verified {
		accepted[i] = v.tpl
	}
	return StageResult{
		Signal: SignalContinue,
		Reason: fmt.Sprintf("split into %d templates with %.0f%%+ coverage, all failed samples regenerated",
			len(accepted), m.cfg.SplitCoverage*100),
		Repaired: &Repaired{
			SplitTemplates: accepted,
			SuccessCount:   successes,
			TestedCount:    len(ev.Failed),
		},
	}
}

// redirectWithBest asks for a redirect while suggesting the strongest
// candidate as the active template for whatever stage comes next.
func (m *Machine) redirectWithBest(ctx context.Context, ev *Event, rctx *Context, verified []splitCandidate, reason string) StageResult {
	result := m.askRedirect(ctx, ev, rctx, StageSplit, reason)
	best := ""
	bestMatches := 0
	for _, v := range verified {
		if v.matches > bestMatches {
			best = v.tpl.Template
			bestMatches = v.matches
		}
	}
	if best != "" && result.ActiveTemplate == "" {
		result.ActiveTemplate = best
	}
	return result
}

// compileAssignment builds the regex that decides which candidate a ground
// truth line belongs to.
func compileAssignment(c oracle.SplitTemplate) (*regexp.Regexp, error) {
	if c.CheckPattern != "" {
		return regexp.Compile(c.CheckPattern)
	}
	return pattern.Compile(c.Template, pattern.WildcardAny)
}

// assignSample picks the candidate whose pattern matches the sample's
// ground truth, preferring the template with more literal text when several
// match.
func assignSample(verified []splitCandidate, s Sample) (splitCandidate, bool) {
	var best splitCandidate
	found := false
	for _, v := range verified {
		if !v.assign.MatchString(s.GroundTruth) {
			continue
		}
		if !found || pattern.LiteralLength(v.tpl.Template) > pattern.LiteralLength(best.tpl.Template) {
			best = v
			found = true
		}
	}
	return best, found
}
