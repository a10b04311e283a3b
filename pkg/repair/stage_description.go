package repair

import (
	"context"
	"fmt"
	"strconv"

	"github.com/strrl/logmend/pkg/oracle"
)

const (
	descriptionSampleCap = 3
	logContextWindow     = 5
)

// runDescription executes the DESCRIPTION repair strategy: for a handful of
// failed samples, rewrite the event description with surrounding log
// context and prove each rewrite by regeneration. One success is enough to
// accept.
func (m *Machine) runDescription(ctx context.Context, ev *Event, rctx *Context) StageResult {
	attempts := ev.Failed
	if len(attempts) > descriptionSampleCap {
		attempts = attempts[:descriptionSampleCap]
	}
	if len(attempts) == 0 {
		return m.askRedirect(ctx, ev, rctx, StageDescription, "no failed samples to rewrite against")
	}

	successes := 0
	parsable := 0
	var accepted string

	for _, s := range attempts {
		logContext := ""
		if lineID, err := strconv.ParseInt(s.LineID, 10, 64); err == nil {
			// Context is best-effort; the rewrite proceeds without it.
			logContext, _ = m.corpus.LogContext(lineID, logContextWindow)
		}

		inputSummary := fmt.Sprintf("description rewrite: line=%s ground_truth=%q", s.LineID, s.GroundTruth)
		text, err := m.oracle.Query(ctx, oracle.QueryRequest{
			Prompt:       descriptionRepairPrompt(ev, s, logContext, rctx),
			SystemPrompt: repairSystemPrompt,
			Temperature:  0.2,
		})
		if err != nil {
			rctx.Add(StageDescription, inputSummary, "query failed: "+err.Error())
			continue
		}
		rewrite, err := oracle.ParseDescriptionRepair(text)
		if err != nil {
			rctx.Add(StageDescription, inputSummary, "unparsable answer")
			continue
		}
		parsable++
		rctx.Add(StageDescription, inputSummary, "new description: "+rewrite.NewDescription)

		ok, generated := m.regenerate(ctx, ev.Template, rewrite.NewDescription, nil, s)
		rctx.AttachResults(
			fmt.Sprintf("regenerated=%q match=%t", generated, ok), "")
		if ok {
			successes++
			accepted = rewrite.NewDescription
		}
	}

	if successes >= 1 {
		return StageResult{
			Signal: SignalContinue,
			Reason: fmt.Sprintf("rewritten description reproduced %d/%d tested samples", successes, len(attempts)),
			Repaired: &Repaired{
				Description:  accepted,
				SuccessCount: successes,
				TestedCount:  len(attempts),
			},
		}
	}

	// Every rewrite attempt came back unusable; apply the stage default
	// instead of spending another oracle call on the redirect.
	if parsable == 0 {
		return StageResult{
			Signal: defaultRedirect(StageDescription),
			Reason: "no usable description rewrite obtained",
		}
	}
	return m.askRedirect(ctx, ev, rctx, StageDescription,
		fmt.Sprintf("0/%d rewritten descriptions reproduced their samples", len(attempts)))
}
