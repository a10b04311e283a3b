package store

import (
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"
)

// DuckDBStore implements Store using DuckDB.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore creates a new DuckDB-backed store.
// Pass dsn="" for in-memory, or a file path for persistent storage.
func NewDuckDBStore(dsn string) (*DuckDBStore, error) {
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return &DuckDBStore{db: db}, nil
}

// Init creates the event_logs and templates tables if they do not exist.
func (s *DuckDBStore) Init() error {
	var tableExists bool
	err := s.db.QueryRow(`
		SELECT COUNT(*) > 0 FROM information_schema.tables
		WHERE table_name = 'event_logs'
	`).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check table existence: %w", err)
	}

	if !tableExists {
		_, err := s.db.Exec(`
			CREATE TABLE event_logs (
				system VARCHAR,
				event_id VARCHAR,
				line_id BIGINT,
				content VARCHAR
			)
		`)
		if err != nil {
			return fmt.Errorf("create event_logs table: %w", err)
		}
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS templates (
			system VARCHAR,
			event_id VARCHAR,
			template VARCHAR,
			description VARCHAR,
			occurrences INTEGER,
			PRIMARY KEY (system, event_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("create templates table: %w", err)
	}

	return nil
}

// InsertLogBatch stores multiple corpus lines in a single transaction.
func (s *DuckDBStore) InsertLogBatch(lines []LogLine) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(
		`INSERT INTO event_logs (system, event_id, line_id, content)
		 VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, l := range lines {
		_, err = stmt.Exec(l.System, l.EventID, l.LineID, l.Content)
		if err != nil {
			return fmt.Errorf("exec: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// EventLogs returns every line labeled with the given event, ordered by
// line id.
func (s *DuckDBStore) EventLogs(system, eventID string) ([]LogLine, error) {
	rows, err := s.db.Query(
		`SELECT system, event_id, line_id, content
		 FROM event_logs WHERE system = ? AND event_id = ?
		 ORDER BY line_id`,
		system, eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("query event logs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanLines(rows)
}

// LogWindow returns lines within +-window of the given line id, across all
// events of the system, ordered by line id.
func (s *DuckDBStore) LogWindow(system string, lineID int64, window int) ([]LogLine, error) {
	rows, err := s.db.Query(
		`SELECT system, event_id, line_id, content
		 FROM event_logs
		 WHERE system = ? AND line_id BETWEEN ? AND ?
		 ORDER BY line_id`,
		system, lineID-int64(window), lineID+int64(window),
	)
	if err != nil {
		return nil, fmt.Errorf("query log window: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanLines(rows)
}

// EventCounts returns per-event line counts, most frequent first.
func (s *DuckDBStore) EventCounts(system string) ([]EventCount, error) {
	rows, err := s.db.Query(
		`SELECT event_id, COUNT(*) AS cnt
		 FROM event_logs WHERE system = ?
		 GROUP BY event_id
		 ORDER BY cnt DESC, event_id`,
		system,
	)
	if err != nil {
		return nil, fmt.Errorf("query event counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counts []EventCount
	for rows.Next() {
		var ec EventCount
		if err := rows.Scan(&ec.EventID, &ec.Count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts = append(counts, ec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return counts, nil
}

// Systems returns the distinct system names present in the corpus.
func (s *DuckDBStore) Systems() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT system FROM event_logs ORDER BY system`)
	if err != nil {
		return nil, fmt.Errorf("query systems: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var systems []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan system: %w", err)
		}
		systems = append(systems, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return systems, nil
}

// UpsertTemplates inserts or replaces event templates.
func (s *DuckDBStore) UpsertTemplates(tpls []Template) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(
		`INSERT OR REPLACE INTO templates (system, event_id, template, description, occurrences)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, t := range tpls {
		_, err = stmt.Exec(t.System, t.EventID, t.Template, t.Description, t.Occurrences)
		if err != nil {
			return fmt.Errorf("exec: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Template returns the template for one event, and whether it exists.
func (s *DuckDBStore) Template(system, eventID string) (Template, bool, error) {
	var t Template
	err := s.db.QueryRow(
		`SELECT system, event_id, template, COALESCE(description, ''), COALESCE(occurrences, 0)
		 FROM templates WHERE system = ? AND event_id = ?`,
		system, eventID,
	).Scan(&t.System, &t.EventID, &t.Template, &t.Description, &t.Occurrences)
	if err == sql.ErrNoRows {
		return Template{}, false, nil
	}
	if err != nil {
		return Template{}, false, fmt.Errorf("query template: %w", err)
	}
	return t, true, nil
}

// Templates returns all templates of a system, ordered by event id.
func (s *DuckDBStore) Templates(system string) ([]Template, error) {
	rows, err := s.db.Query(
		`SELECT system, event_id, template, COALESCE(description, ''), COALESCE(occurrences, 0)
		 FROM templates WHERE system = ? ORDER BY event_id`,
		system,
	)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tpls []Template
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.System, &t.EventID, &t.Template, &t.Description, &t.Occurrences); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		tpls = append(tpls, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return tpls, nil
}

// UpdateTemplate rewrites the template text of one event.
func (s *DuckDBStore) UpdateTemplate(system, eventID, template string) error {
	res, err := s.db.Exec(
		`UPDATE templates SET template = ? WHERE system = ? AND event_id = ?`,
		template, system, eventID,
	)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("no template for %s/%s", system, eventID)
	}
	return nil
}

// Close closes the underlying database.
func (s *DuckDBStore) Close() error {
	return s.db.Close()
}

func scanLines(rows *sql.Rows) ([]LogLine, error) {
	var lines []LogLine
	for rows.Next() {
		var l LogLine
		if err := rows.Scan(&l.System, &l.EventID, &l.LineID, &l.Content); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return lines, nil
}
