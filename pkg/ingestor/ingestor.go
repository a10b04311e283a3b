package ingestor

import (
	"bufio"
	"context"
	"os"

	"github.com/go-errors/errors"
)

// RawLine is one unlabeled log line read from a flat file, identified by
// its position so it can become a corpus line id.
type RawLine struct {
	LineID  int64
	Content string
}

// Result wraps either a successfully read line or a read error.
type Result struct {
	Value *RawLine
	Err   error
}

// Ingestor streams raw log lines from a source.
type Ingestor interface {
	Ingest(ctx context.Context) (<-chan Result, error)
}

var _ Ingestor = (*FileIngestor)(nil)

// FileIngestor reads log lines from a file path or stdin.
type FileIngestor struct {
	Path string
}

// Ingest reads log lines from the file (or stdin if Path is "-").
// Cancel the context to stop reading early; the goroutine exits promptly.
func (f *FileIngestor) Ingest(ctx context.Context) (<-chan Result, error) {
	var file *os.File
	if f.Path == "-" {
		file = os.Stdin
	} else {
		var err error
		file, err = os.Open(f.Path)
		if err != nil {
			return nil, errors.Errorf("open log file: %w", err)
		}
	}

	ownFile := f.Path != "-"
	ch := make(chan Result, 100)
	go func() {
		defer close(ch)

		var fileErr error
		defer func() {
			if ownFile {
				if cerr := file.Close(); cerr != nil {
					fileErr = errors.Join(fileErr, errors.Errorf("close log file: %w", cerr))
				}
			}
			if fileErr != nil {
				select {
				case ch <- Result{Err: fileErr}:
				case <-ctx.Done():
				}
			}
		}()

		scanner := bufio.NewScanner(file)
		var lineID int64
		for scanner.Scan() {
			lineID++
			select {
			case ch <- Result{Value: &RawLine{LineID: lineID, Content: scanner.Text()}}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			fileErr = errors.Errorf("read log file: %w", err)
		}
	}()

	return ch, nil
}

// Ingest is a convenience function that creates a FileIngestor and reads
// from it. Pass "-" to read from stdin.
func Ingest(ctx context.Context, filePath string) (<-chan Result, error) {
	f := &FileIngestor{Path: filePath}
	return f.Ingest(ctx)
}
