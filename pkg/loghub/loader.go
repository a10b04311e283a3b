package loghub

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/go-errors/errors"
)

// Entry represents a single parsed log entry from a Loghub structured CSV
// file: the raw content plus its labeled event id and template.
type Entry struct {
	LineID        int64
	Content       string
	EventID       string
	EventTemplate string
}

// LoadDataset reads a Loghub structured CSV file and returns parsed entries.
// Column indices are determined dynamically from the header row. The LineId
// column is optional; when absent, line ids are allocated from the row
// position, starting at 1.
func LoadDataset(csvPath string) ([]Entry, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, errors.Errorf("open csv: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Errorf("read csv: %w", err)
	}

	if len(records) < 2 {
		return nil, errors.Errorf("csv has fewer than 2 rows (header + data)")
	}

	header := records[0]
	colLineID := -1
	colContent := -1
	colTemplate := -1
	colEventID := -1

	for i, name := range header {
		switch name {
		case "LineId":
			colLineID = i
		case "Content":
			colContent = i
		case "EventTemplate":
			colTemplate = i
		case "EventId":
			colEventID = i
		}
	}

	if colContent == -1 {
		return nil, errors.Errorf("missing required column: Content")
	}
	if colTemplate == -1 {
		return nil, errors.Errorf("missing required column: EventTemplate")
	}
	if colEventID == -1 {
		return nil, errors.Errorf("missing required column: EventId")
	}

	entries := make([]Entry, 0, len(records)-1)
	for i, row := range records[1:] {
		if len(row) <= colContent || len(row) <= colTemplate || len(row) <= colEventID {
			continue
		}
		lineID := int64(i + 1)
		if colLineID != -1 && len(row) > colLineID {
			if parsed, err := strconv.ParseInt(row[colLineID], 10, 64); err == nil {
				lineID = parsed
			}
		}
		entries = append(entries, Entry{
			LineID:        lineID,
			Content:       row[colContent],
			EventID:       row[colEventID],
			EventTemplate: row[colTemplate],
		})
	}

	return entries, nil
}
