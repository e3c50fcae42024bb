// Package jsonl provides an append-only JSON Lines implementation of
// the UsageLog port. One record per line keeps appends cheap and the
// file greppable; a torn or hand-edited line costs that line only.
package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docqa-cli/internal/logger"
)

// Ensure UsageLog implements the interface.
var _ driven.UsageLog = (*UsageLog)(nil)

// UsageLog persists usage records to a JSON Lines file.
type UsageLog struct {
	mu   sync.Mutex
	path string
}

// NewUsageLog creates a usage log backed by the given file. The parent
// directory is created if missing; the file itself is created on first
// append.
func NewUsageLog(path string) (*UsageLog, error) {
	if path == "" {
		return nil, fmt.Errorf("usage log path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create usage log directory: %w", err)
	}

	return &UsageLog{path: path}, nil
}

// Append writes one record as a single JSON line.
func (l *UsageLog) Append(rec domain.UsageRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal usage record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open usage log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append usage record: %w", err)
	}
	return nil
}

// ReadAll returns every record in append order. A missing file is an
// empty log. Lines that fail to parse are skipped with a warning so
// one corrupt line does not hide the rest of the history.
func (l *UsageLog) ReadAll() ([]domain.UsageRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read usage log: %w", err)
	}

	var records []domain.UsageRecord
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec domain.UsageRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			logger.Warn("skipping malformed usage log line: %v", err)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan usage log: %w", err)
	}

	return records, nil
}

// Truncate empties the log file.
func (l *UsageLog) Truncate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.WriteFile(l.path, nil, 0600); err != nil {
		return fmt.Errorf("truncate usage log: %w", err)
	}
	return nil
}

// Path returns the log file path.
func (l *UsageLog) Path() string {
	return l.path
}
