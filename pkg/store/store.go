package store

// LogLine is a single labeled corpus line: one raw log message assigned to
// an event within a system.
type LogLine struct {
	System  string
	EventID string
	LineID  int64
	Content string
}

// Template is the accepted parse template for one event, with an optional
// natural-language description of what the event means.
type Template struct {
	System      string
	EventID     string
	Template    string
	Description string
	Occurrences int
}

// EventCount pairs an event id with the number of corpus lines labeled
// with it.
type EventCount struct {
	EventID string
	Count   int
}

// Store persists corpus log lines and event templates.
type Store interface {
	// Init creates tables if they don't exist.
	Init() error
	// InsertLogBatch stores multiple corpus lines in one transaction.
	InsertLogBatch(lines []LogLine) error
	// EventLogs returns every line of one event, ordered by line id.
	EventLogs(system, eventID string) ([]LogLine, error)
	// LogWindow returns lines whose line id falls within +-window of the
	// given line, across all events of the system.
	LogWindow(system string, lineID int64, window int) ([]LogLine, error)
	// EventCounts returns per-event line counts for a system, most
	// frequent first.
	EventCounts(system string) ([]EventCount, error)
	// Systems returns the distinct system names present in the corpus.
	Systems() ([]string, error)
	// UpsertTemplates inserts or replaces event templates.
	UpsertTemplates(tpls []Template) error
	// Template returns the template for one event, and whether it exists.
	Template(system, eventID string) (Template, bool, error)
	// Templates returns all templates of a system.
	Templates(system string) ([]Template, error)
	// UpdateTemplate rewrites the template text of one event.
	UpdateTemplate(system, eventID, template string) error
	// Close releases resources.
	Close() error
}
