// Package sink writes structured records to local files, one file per table
// key, so that a multi-object run lands as one table per object type.
package sink

import (
	"bufio"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/prashantcloudsufi/zendesk/pkg/mapper"
	"github.com/prashantcloudsufi/zendesk/pkg/schema"
)

// Format selects the file encoding.
type Format string

const (
	// FormatJSONL writes one JSON object per line.
	FormatJSONL Format = "jsonl"

	// FormatAvro writes Avro object container files.
	FormatAvro Format = "avro"
)

var (
	// ErrUnknownTable is returned for a record whose table has no schema.
	ErrUnknownTable = errors.New("no schema for table")

	// ErrClosed is returned by Write after Close.
	ErrClosed = errors.New("sink closed")
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSONL, FormatAvro:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want %q or %q)", s, FormatJSONL, FormatAvro)
}

// Ext returns the file extension of the format.
func (f Format) Ext() string {
	if f == FormatAvro {
		return ".avro"
	}
	return ".jsonl"
}

// tableWriter encodes the records of one table.
type tableWriter interface {
	write(r mapper.Record) error
	flush() error
}

type file struct {
	f   *os.File
	buf *bufio.Writer
	w   tableWriter
}

// Sink routes records to per-table files, opened on first use. It is safe for
// concurrent use.
type Sink struct {
	format  Format
	dir     string
	schemas map[string]*schema.Schema

	mu     sync.Mutex
	files  map[string]*file
	counts map[string]int
}

// New creates a sink writing into dir. schemas maps table keys to their
// output schemas.
func New(format Format, dir string, schemas map[string]*schema.Schema) (*Sink, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Sink{
		format:  format,
		dir:     dir,
		schemas: schemas,
		files:   make(map[string]*file),
		counts:  make(map[string]int),
	}, nil
}

// Path returns the file a table is written to.
func (s *Sink) Path(table string) string {
	return filepath.Join(s.dir, table+s.format.Ext())
}

// Write appends r to its table's file.
func (s *Sink) Write(r mapper.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.files == nil {
		return ErrClosed
	}
	f, err := s.open(r.Table)
	if err != nil {
		return err
	}
	if err := f.w.write(r); err != nil {
		sinkErrors.WithLabelValues(string(s.format)).Inc()
		return fmt.Errorf("write %s record: %w", r.Table, err)
	}
	s.counts[r.Table]++
	recordsWritten.WithLabelValues(r.Table, string(s.format)).Inc()
	return nil
}

func (s *Sink) open(table string) (*file, error) {
	if f, ok := s.files[table]; ok {
		return f, nil
	}
	sch, ok := s.schemas[table]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}

	osFile, err := os.Create(s.Path(table))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", table, err)
	}
	f := &file{f: osFile, buf: bufio.NewWriter(osFile)}

	switch s.format {
	case FormatAvro:
		f.w, err = newAvroWriter(f.buf, sch)
	default:
		f.w = newJSONLWriter(f.buf)
	}
	if err != nil {
		osFile.Close()
		return nil, fmt.Errorf("open %s: %w", table, err)
	}

	s.files[table] = f
	return f, nil
}

// Counts returns the number of records written per table. It stays
// available after Close.
func (s *Sink) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.counts)
}

// Tables returns the tables written so far, sorted.
func (s *Sink) Tables() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := make([]string, 0, len(s.counts))
	for table := range s.counts {
		tables = append(tables, table)
	}
	slices.Sort(tables)
	return tables
}

// Close flushes and closes every open file. Later writes fail with ErrClosed.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for table, f := range s.files {
		if err := f.w.flush(); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", table, err))
		}
		if err := f.buf.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", table, err))
		}
		if err := f.f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", table, err))
		}
	}
	s.files = nil
	return errors.Join(errs...)
}
