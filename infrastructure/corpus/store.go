// Package corpus persists boundary records append-only. One record is
// one JSONL line written with a single write call, so the record is the
// unit of atomic append: an interrupted run can leave at most one
// partial trailing line, which the reader discards and never repairs.
package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/fenceline/fenceline/application/record"
	"github.com/fenceline/fenceline/domain/entities"
)

// storeConfig holds configuration for the Store.
type storeConfig struct {
	path     string
	dirPerm  os.FileMode
	filePerm os.FileMode
}

func defaultStoreConfig() storeConfig {
	return storeConfig{
		path:     filepath.Join("observations", "records.jsonl"),
		dirPerm:  0o755,
		filePerm: 0o644,
	}
}

// Option configures a Store.
type Option func(*storeConfig)

// WithPath sets the corpus file path.
func WithPath(path string) Option {
	return func(c *storeConfig) {
		c.path = path
	}
}

// WithFilePermissions sets permissions for the corpus file.
func WithFilePermissions(perm os.FileMode) Option {
	return func(c *storeConfig) {
		c.filePerm = perm
	}
}

// WithDirPermissions sets permissions for created parent directories.
func WithDirPermissions(perm os.FileMode) Option {
	return func(c *storeConfig) {
		c.dirPerm = perm
	}
}

// Store is a file-backed, append-only record corpus.
type Store struct {
	config storeConfig
}

// NewStore creates a Store with the given options.
func NewStore(opts ...Option) *Store {
	cfg := defaultStoreConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Store{config: cfg}
}

// Path returns the corpus file path.
func (s *Store) Path() string {
	return s.config.path
}

// Append serializes the record and appends it as one line. The line is
// written with a single write call; there is no update path.
func (s *Store) Append(rec *entities.BoundaryRecord) error {
	data, err := record.Serialize(rec)
	if err != nil {
		return fmt.Errorf("serializing record: %w", err)
	}

	if dir := filepath.Dir(s.config.path); dir != "." {
		if err := os.MkdirAll(dir, s.config.dirPerm); err != nil {
			return fmt.Errorf("creating corpus directory: %w", err)
		}
	}

	f, err := os.OpenFile(s.config.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, s.config.filePerm)
	if err != nil {
		return fmt.Errorf("opening corpus: %w", err)
	}
	defer f.Close()

	line := append(data, '\n')
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("appending record: %w", err)
	}
	return f.Sync()
}

// Load reads every record in the corpus. A missing file is an empty
// corpus. A final line that does not parse is treated as the remains of
// an interrupted append: it is discarded and counted, never repaired. A
// bad line anywhere else means the corpus is corrupt and is an error.
func (s *Store) Load() (records []*entities.BoundaryRecord, discarded int, err error) {
	f, err := os.Open(s.config.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("opening corpus: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var pendingErr error
	var pendingLine int
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if pendingErr != nil {
			// The bad line was not the last one after all.
			return nil, 0, fmt.Errorf("corpus line %d: %w", pendingLine, pendingErr)
		}
		rec, err := record.Parse(line)
		if err != nil {
			pendingErr = err
			pendingLine = lineNo
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("reading corpus: %w", err)
	}
	if pendingErr != nil {
		discarded = 1
	}
	return records, discarded, nil
}

// LoadArray parses a corpus stored as one JSON array, the alternate
// interchange form.
func LoadArray(data []byte) ([]*entities.BoundaryRecord, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing corpus array: %w", err)
	}
	records := make([]*entities.BoundaryRecord, 0, len(raw))
	for i, item := range raw {
		rec, err := record.Parse(item)
		if err != nil {
			return nil, fmt.Errorf("corpus entry %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Export writes the full corpus to path as an indented JSON array, via
// an atomic replace so readers never observe a half-written export.
func (s *Store) Export(path string) error {
	records, _, err := s.Load()
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding corpus export: %w", err)
	}
	out = append(out, '\n')
	return atomic.WriteFile(path, bytes.NewReader(out))
}
