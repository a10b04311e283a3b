package repair

import (
	"context"
	"log/slog"

	"github.com/strrl/logmend/pkg/oracle"
)

// diagnose asks the oracle for the event's root cause. The diagnosis is
// produced once per run and retained unchanged even if a later stage
// overturns it. An unreachable oracle or malformed verdict falls back to
// TEMPLATE_ERROR, the broadest entry point, rather than aborting the run.
func (m *Machine) diagnose(ctx context.Context, ev *Event) oracle.Diagnosis {
	text, err := m.oracle.Query(ctx, oracle.QueryRequest{
		Prompt:       diagnosisPrompt(ev),
		SystemPrompt: repairSystemPrompt,
		Temperature:  0.1,
	})
	if err != nil {
		slog.Warn("diagnosis query failed, assuming template error",
			"system", ev.System, "event", ev.EventID, "error", err)
		return fallbackDiagnosis(err.Error())
	}
	d, err := oracle.ParseDiagnosis(text)
	if err != nil {
		slog.Warn("diagnosis unparsable, assuming template error",
			"system", ev.System, "event", ev.EventID, "error", err)
		return fallbackDiagnosis(err.Error())
	}
	return d
}

func fallbackDiagnosis(detail string) oracle.Diagnosis {
	return oracle.Diagnosis{
		Cause:      oracle.CauseTemplate,
		Confidence: "LOW",
		Analysis:   "diagnosis unavailable: " + detail,
	}
}
