package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"useropindexer/internal/model"
)

// JsonlFailureLog appends decode failures to a JSONL file.
type JsonlFailureLog struct {
	path string
	mu   sync.Mutex
}

func NewJsonlFailureLog(path string) *JsonlFailureLog {
	return &JsonlFailureLog{path: path}
}

// Append writes one failure record as a JSON line.
func (l *JsonlFailureLog) Append(failure model.DecodeFailure) error {
	dir := filepath.Dir(l.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	line, err := json.Marshal(failure)
	if err != nil {
		return fmt.Errorf("marshal decode failure: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write decode failure: %w", err)
	}

	return nil
}
