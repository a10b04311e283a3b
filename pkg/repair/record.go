// Package repair drives the template repair pipeline: diagnosing why a
// reconstruction failed, routing the event through repair stages, verifying
// each proposed fix against the full corpus and keeping an auditable record
// of every decision along the way.
package repair

import (
	"time"

	"github.com/strrl/logmend/pkg/oracle"
)

// Stage is one repair strategy.
type Stage string

const (
	StageTemplate    Stage = "TEMPLATE"
	StageDescription Stage = "DESCRIPTION"
	StageGenerator   Stage = "GENERATOR"
	StageSplit       Stage = "SPLIT"
)

// Signal is a stage handler's verdict: accept, abandon, or hand the event
// to another stage.
type Signal string

const (
	SignalContinue          Signal = "CONTINUE"
	SignalGiveUp            Signal = "GIVE_UP"
	SignalRedirectTemplate  Signal = "REDIRECT_TEMPLATE"
	SignalRedirectDesc      Signal = "REDIRECT_DESCRIPTION"
	SignalRedirectGenerator Signal = "REDIRECT_GENERATOR"
	SignalRedirectSplit     Signal = "REDIRECT_SPLIT"
)

// IsRedirect reports whether the signal hands the event to another stage.
func (s Signal) IsRedirect() bool {
	_, ok := s.TargetStage()
	return ok
}

// TargetStage returns the stage a redirect signal points at.
func (s Signal) TargetStage() (Stage, bool) {
	switch s {
	case SignalRedirectTemplate:
		return StageTemplate, true
	case SignalRedirectDesc:
		return StageDescription, true
	case SignalRedirectGenerator:
		return StageGenerator, true
	case SignalRedirectSplit:
		return StageSplit, true
	}
	return "", false
}

// signalForAction maps an oracle redirect action string onto a Signal.
func signalForAction(action string) (Signal, bool) {
	switch action {
	case "REDIRECT_TEMPLATE":
		return SignalRedirectTemplate, true
	case "REDIRECT_DESCRIPTION":
		return SignalRedirectDesc, true
	case "REDIRECT_GENERATOR":
		return SignalRedirectGenerator, true
	case "REDIRECT_SPLIT":
		return SignalRedirectSplit, true
	case "GIVE_UP":
		return SignalGiveUp, true
	}
	return "", false
}

// Status is the terminal outcome of one event's repair run.
type Status string

const (
	StatusGiveUp       Status = "GIVE_UP"
	StatusMaxRedirects Status = "MAX_REDIRECTS_REACHED"
	StatusSkipped      Status = "SKIPPED"
)

// SuccessStatus names the terminal status for a repair accepted by the
// given stage.
func SuccessStatus(stage Stage) Status {
	return Status("SUCCESS_" + string(stage))
}

// IsSuccess reports whether the status marks an accepted repair.
func (s Status) IsSuccess() bool {
	return len(s) > 8 && s[:8] == "SUCCESS_"
}

// Repaired is the accepted fix carried by a CONTINUE signal.
type Repaired struct {
	Template            string                 `json:"template,omitempty"`
	Description         string                 `json:"description,omitempty"`
	SplitTemplates      []oracle.SplitTemplate `json:"split_templates,omitempty"`
	VariableDescription string                 `json:"variable_description,omitempty"`
	SuccessCount        int                    `json:"success_count"`
	TestedCount         int                    `json:"tested_count"`
}

// SplitSeed carries dual-check evidence from a TEMPLATE-stage redirect into
// the SPLIT stage, so the split handler can reuse the already proposed
// template instead of starting from scratch.
type SplitSeed struct {
	NewTemplate string
	Dual        DualEvidence
}

// DualEvidence is the subset of a dual-pattern check the split stage needs.
type DualEvidence struct {
	TotalCount    int
	NewMatchCount int
	OldMatchCount int
	OldMatchRate  float64
}

// StageResult is what one stage execution hands back to the machine.
type StageResult struct {
	Signal         Signal
	Reason         string
	FinalDiagnosis string
	Suggestions    []string
	// ActiveTemplate overrides the event's template for subsequent stages
	// when a redirect carries a promising but unaccepted proposal.
	ActiveTemplate string
	Seed           *SplitSeed
	Repaired       *Repaired
}

// Transition is one recorded redirect.
type Transition struct {
	Stage         Stage     `json:"stage"`
	RedirectCount int       `json:"redirect_count"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
}

// Record is the per-event audit summary, created at machine entry and
// finalized exactly once at halt.
type Record struct {
	System       string           `json:"system"`
	EventID      string           `json:"event_id"`
	Template     string           `json:"template"`
	Diagnosis    oracle.Diagnosis `json:"diagnosis"`
	Transitions  []Transition     `json:"redirect_history,omitempty"`
	StageRecords []StageRecord    `json:"stage_records,omitempty"`
	Status       Status           `json:"status"`
	Reason       string           `json:"reason"`
	Repaired     *Repaired        `json:"repaired,omitempty"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
}
