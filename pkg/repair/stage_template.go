package repair

import (
	"context"
	"fmt"

	"github.com/strrl/logmend/pkg/oracle"
)

// runTemplate executes the TEMPLATE repair strategy: ask the oracle for a
// corrected template, verify the correction against the entire corpus, then
// prove it by regenerating the failed samples.
func (m *Machine) runTemplate(ctx context.Context, ev *Event, rctx *Context) StageResult {
	lines, err := m.corpus.AllLogs(ev.EventID)
	if err != nil {
		// The generator stage is the only one that works without corpus
		// access.
		return StageResult{
			Signal: SignalRedirectGenerator,
			Reason: fmt.Sprintf("corpus unavailable for template verification: %v", err),
		}
	}

	inputSummary := fmt.Sprintf("template repair: template=%q failed=%d corpus=%d",
		ev.Template, len(ev.Failed), len(lines))

	text, err := m.oracle.Query(ctx, oracle.QueryRequest{
		Prompt:       templateRepairPrompt(ev, lines, rctx),
		SystemPrompt: repairSystemPrompt,
		Temperature:  0.1,
	})
	if err != nil {
		rctx.Add(StageTemplate, inputSummary, "query failed: "+err.Error())
		return StageResult{Signal: defaultRedirect(StageTemplate),
			Reason: fmt.Sprintf("template repair query failed: %v", err)}
	}

	repair, err := oracle.ParseTemplateRepair(text)
	if err != nil {
		rctx.Add(StageTemplate, inputSummary, "unparsable answer")
		return StageResult{Signal: defaultRedirect(StageTemplate),
			Reason: fmt.Sprintf("template repair answer unparsable: %v", err)}
	}
	rctx.Add(StageTemplate, inputSummary,
		fmt.Sprintf("needs_repair=%t new_template=%q cause=%s explanation=%s",
			repair.NeedsRepair, repair.NewTemplate, repair.ConfirmedCause, repair.Explanation))

	// The oracle reclassifying the cause is a routing decision, not a
	// repair; redirect without spending verification on it.
	if !repair.NeedsRepair {
		switch repair.ConfirmedCause {
		case oracle.CauseDescription:
			return StageResult{Signal: SignalRedirectDesc,
				Reason: "oracle confirmed the template and blamed the description"}
		case oracle.CauseGenerator:
			return StageResult{Signal: SignalRedirectGenerator,
				Reason: "oracle confirmed the template and blamed generation"}
		}
		return m.askRedirect(ctx, ev, rctx, StageTemplate,
			"oracle says no template repair needed but names no other cause")
	}

	// A "repair" that changes nothing is ambiguous, neither acceptable nor
	// rejectable on our own authority.
	if repair.NewTemplate == "" || repair.NewTemplate == ev.Template {
		rctx.AttachResults("", "proposed template identical to original")
		return m.askRedirect(ctx, ev, rctx, StageTemplate,
			"oracle proposed no effective template change")
	}

	checkPat := repair.NewTemplate
	isRegex := false
	if repair.NeedsCheck && repair.CheckPattern != "" {
		checkPat = repair.CheckPattern
		isRegex = true
	}

	check, err := m.corpus.CheckPattern(ev.EventID, checkPat, isRegex, m.cfg.MaxMismatchSamples)
	if err != nil {
		rctx.AttachResults("check pattern invalid: "+err.Error(), "")
		return m.askRedirect(ctx, ev, rctx, StageTemplate,
			fmt.Sprintf("verification pattern unusable: %v", err))
	}
	rctx.AttachResults(
		fmt.Sprintf("corpus check: %d/%d matched (rate %.2f)",
			check.MatchCount, check.TotalCount, check.MatchRate), "")

	if check.MatchRate == 1.0 {
		return m.testRepairedTemplate(ctx, ev, rctx, repair.NewTemplate)
	}

	// Partial coverage while the original template still matches part of
	// the corpus means two formats coexist under one event id.
	if check.MatchRate > 0 {
		old, err := m.corpus.CheckPattern(ev.EventID, ev.Template, false, m.cfg.MaxMismatchSamples)
		if err == nil && old.MatchCount >= 1 {
			dual, err := m.corpus.CheckDualPatterns(ev.EventID, repair.NewTemplate, ev.Template, 5)
			seed := &SplitSeed{NewTemplate: repair.NewTemplate}
			if err == nil {
				seed.Dual = DualEvidence{
					TotalCount:    dual.TotalCount,
					NewMatchCount: dual.NewMatchCount,
					OldMatchCount: dual.OldMatchCount,
					OldMatchRate:  dual.OldMatchRate,
				}
			}
			reason := fmt.Sprintf(
				"proposed template covers %.0f%% of the corpus while the original still matches %d lines",
				check.MatchRate*100, old.MatchCount)
			rctx.AttachResults("", reason)
			// The event's template stays untouched: the split stage needs
			// the original to pair against the proposal in the seed.
			return StageResult{
				Signal: SignalRedirectSplit,
				Reason: reason,
				Seed:   seed,
			}
		}
	}

	return m.askRedirect(ctx, ev, rctx, StageTemplate,
		fmt.Sprintf("proposed template matched %d/%d corpus lines", check.MatchCount, check.TotalCount))
}

// testRepairedTemplate regenerates every failed sample under the corrected
// template. Acceptance requires all of them to reproduce their ground
// truth.
func (m *Machine) testRepairedTemplate(ctx context.Context, ev *Event, rctx *Context, newTemplate string) StageResult {
	successes := 0
	for _, s := range ev.Failed {
		ok, _ := m.regenerate(ctx, newTemplate, ev.Description, nil, s)
		if ok {
			successes++
		}
	}
	rctx.AttachResults(
		fmt.Sprintf("regeneration: %d/%d failed samples reproduced", successes, len(ev.Failed)),
		"")

	if successes == len(ev.Failed) {
		return StageResult{
			Signal: SignalContinue,
			Reason: fmt.Sprintf("corrected template verified on full corpus, %d/%d samples regenerated", successes, len(ev.Failed)),
			Repaired: &Repaired{
				Template:     newTemplate,
				SuccessCount: successes,
				TestedCount:  len(ev.Failed),
			},
		}
	}

	result := m.askRedirect(ctx, ev, rctx, StageTemplate,
		fmt.Sprintf("template verified on corpus but only %d/%d samples regenerated", successes, len(ev.Failed)))
	result.ActiveTemplate = newTemplate
	return result
}
