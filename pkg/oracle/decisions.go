package oracle

// Cause classifies why an event's generated logs fail verification.
type Cause string

const (
	CauseTemplate    Cause = "TEMPLATE_ERROR"
	CauseDescription Cause = "DESCRIPTION_ERROR"
	CauseGenerator   Cause = "GENERATOR_ERROR"
	CauseBoth        Cause = "BOTH"
	CauseNone        Cause = "NONE"
)

// Diagnosis is the oracle's root-cause verdict for a failing event. It is
// produced once at machine entry and kept as the initial audit record even
// when a later stage overturns it.
type Diagnosis struct {
	Cause      Cause    `json:"cause"`
	Confidence string   `json:"confidence"`
	Analysis   string   `json:"analysis"`
	Issues     []string `json:"issues"`
}

// TemplateRepair is the oracle's answer when asked to fix a template. When
// NeedsRepair is false the oracle judged the template correct and
// ConfirmedCause names the stage it blames instead.
type TemplateRepair struct {
	NeedsRepair    bool   `json:"needs_repair"`
	ConfirmedCause Cause  `json:"confirmed_cause"`
	NewTemplate    string `json:"new_template"`
	Explanation    string `json:"explanation"`
	NeedsCheck     bool   `json:"needs_check"`
	CheckPattern   string `json:"check_pattern"`
	Confidence     string `json:"confidence"`
}

// DescriptionRepair is the oracle's rewritten event description.
type DescriptionRepair struct {
	NewDescription string `json:"new_description"`
}

// RedirectDecision tells the state machine where to go after a stage could
// not fix the event on its own. Action is one of the REDIRECT_* signal
// names or GIVE_UP.
type RedirectDecision struct {
	Action         string   `json:"decision"`
	Reason         string   `json:"reason"`
	FinalDiagnosis string   `json:"final_diagnosis"`
	Suggestions    []string `json:"suggestions"`
}

// SplitTemplate is one candidate template of a proposed split, with the
// pattern used to assign corpus lines to it.
type SplitTemplate struct {
	Template     string `json:"template"`
	CheckPattern string `json:"check_pattern"`
	Description  string `json:"description"`
}

// SplitDecision is the oracle's verdict on a suspected mixed event: SPLIT
// with candidate templates, REFINE with a single corrected template,
// VARIABLE_LENGTH when one parameter legitimately varies in size, or
// GIVE_UP.
type SplitDecision struct {
	Decision            string          `json:"decision"`
	SplitTemplates      []SplitTemplate `json:"split_templates"`
	NewTemplate         string          `json:"new_template"`
	VariableDescription string          `json:"variable_description"`
	Confidence          string          `json:"confidence"`
}

const (
	SplitVerdictSplit          = "SPLIT"
	SplitVerdictRefine         = "REFINE"
	SplitVerdictVariableLength = "VARIABLE_LENGTH"
	SplitVerdictGiveUp         = "GIVE_UP"
)
