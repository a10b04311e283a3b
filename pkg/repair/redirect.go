package repair

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/strrl/logmend/pkg/oracle"
)

// defaultRedirect is the conservative fallback applied when the oracle's
// redirect answer is unusable: from TEMPLATE try the description, from
// DESCRIPTION try the generator, everywhere else give up.
func defaultRedirect(from Stage) Signal {
	switch from {
	case StageTemplate:
		return SignalRedirectDesc
	case StageDescription:
		return SignalRedirectGenerator
	}
	return SignalGiveUp
}

// askRedirect consults the oracle for where to go after the current stage
// failed, recording the exchange in the repair context.
func (m *Machine) askRedirect(ctx context.Context, ev *Event, rctx *Context, from Stage, reason string) StageResult {
	prompt := redirectPrompt(ev, from, reason, rctx)
	text, err := m.oracle.Query(ctx, oracle.QueryRequest{
		Prompt:       prompt,
		SystemPrompt: repairSystemPrompt,
		Temperature:  0.1,
	})
	if err != nil {
		fallback := defaultRedirect(from)
		slog.Warn("redirect query failed, using stage default",
			"stage", from, "default", fallback, "error", err)
		rctx.Add(from, "redirect decision: "+reason, "query failed: "+err.Error())
		return StageResult{Signal: fallback, Reason: fmt.Sprintf("%s (redirect query failed)", reason)}
	}

	decision, err := oracle.ParseRedirect(text)
	if err != nil {
		fallback := defaultRedirect(from)
		slog.Warn("redirect decision unparsable, using stage default",
			"stage", from, "default", fallback, "error", err)
		rctx.Add(from, "redirect decision: "+reason, "unparsable answer")
		return StageResult{Signal: fallback, Reason: fmt.Sprintf("%s (redirect answer unparsable)", reason)}
	}

	rctx.Add(from, "redirect decision: "+reason,
		fmt.Sprintf("decision=%s reason=%s", decision.Action, decision.Reason))

	signal, ok := signalForAction(decision.Action)
	if !ok {
		signal = defaultRedirect(from)
	}
	// Bouncing back into the stage that just failed re-runs it on the same
	// evidence; downgrade that to the stage default.
	if target, isRedirect := signal.TargetStage(); isRedirect && target == from {
		signal = defaultRedirect(from)
	}

	result := StageResult{
		Signal:         signal,
		Reason:         decision.Reason,
		FinalDiagnosis: decision.FinalDiagnosis,
		Suggestions:    decision.Suggestions,
	}
	if result.Reason == "" {
		result.Reason = reason
	}
	return result
}
