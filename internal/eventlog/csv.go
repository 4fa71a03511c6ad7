package eventlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var csvHeader = []string{"timestamp", "event", "details", "fields"}

// CSVSink appends events to a CSV file. The header is written once, when
// the file is created or empty.
//
// Writes are serialized through a one-slot semaphore so a caller waiting
// behind a stuck write still honours its context.
type CSVSink struct {
	sem  chan struct{}
	file *os.File
	w    *csv.Writer
}

func NewCSVSink(path string) (*CSVSink, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("csv sink: path is required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("csv sink: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("csv sink: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv sink: %w", err)
	}
	s := &CSVSink{sem: make(chan struct{}, 1), file: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := s.write(context.Background(), csvHeader); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *CSVSink) Record(ctx context.Context, evt Event) error {
	ts := evt.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return s.write(ctx, []string{
		ts.UTC().Format(time.RFC3339),
		evt.Kind,
		evt.Message,
		string(evt.FieldsJSON()),
	})
}

func (s *CSVSink) write(ctx context.Context, row []string) error {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("csv sink: %w", ctx.Err())
	}
	defer func() { <-s.sem }()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("csv sink: %w", err)
	}
	if s.w == nil {
		return fmt.Errorf("csv sink closed")
	}
	if err := s.w.Write(row); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *CSVSink) Close() error {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()
	if s.file == nil {
		return nil
	}
	s.w.Flush()
	err := s.file.Close()
	s.file, s.w = nil, nil
	return err
}
