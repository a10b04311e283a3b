package repair

import (
	"context"
	"fmt"
)

const fewShotCap = 3

// runGenerator executes the GENERATOR repair strategy: keep template and
// description untouched and retry generation for every failed sample with
// few-shot examples drawn from the event's successful samples.
func (m *Machine) runGenerator(ctx context.Context, ev *Event, rctx *Context) StageResult {
	fewShot := ev.Passed
	if len(fewShot) > fewShotCap {
		fewShot = fewShot[:fewShotCap]
	}

	rctx.Add(StageGenerator,
		fmt.Sprintf("regeneration retry: failed=%d few_shot=%d", len(ev.Failed), len(fewShot)),
		"")

	successes := 0
	for _, s := range ev.Failed {
		ok, _ := m.regenerate(ctx, ev.Template, ev.Description, fewShot, s)
		if ok {
			successes++
		}
	}
	rctx.AttachResults(
		fmt.Sprintf("regeneration: %d/%d failed samples reproduced", successes, len(ev.Failed)), "")

	if successes >= 1 {
		return StageResult{
			Signal: SignalContinue,
			Reason: fmt.Sprintf("few-shot regeneration reproduced %d/%d failed samples", successes, len(ev.Failed)),
			Repaired: &Repaired{
				SuccessCount: successes,
				TestedCount:  len(ev.Failed),
			},
		}
	}
	return m.askRedirect(ctx, ev, rctx, StageGenerator,
		fmt.Sprintf("few-shot regeneration reproduced 0/%d samples", len(ev.Failed)))
}
