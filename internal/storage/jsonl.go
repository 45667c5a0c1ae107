package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// maxLineBytes bounds a single log line during reads. Records are small; the
// limit only guards against a corrupted file with no newlines.
const maxLineBytes = 1 << 20

// appendLine durably writes one JSON-encoded record as a single line,
// creating the parent directory and file on first use. Each call issues one
// write syscall so concurrent appenders interleave whole lines, never bytes.
func appendLine(path string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// readLines parses every line of the file through decode, in file order.
// Lines that fail to decode are counted and skipped; a missing file yields
// no lines and no error.
func readLines(path string, decode func(line []byte) error) (skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("open store: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := decode(line); err != nil {
			skipped++
		}
	}
	if err := scanner.Err(); err != nil {
		return skipped, fmt.Errorf("read store: %w", err)
	}
	return skipped, nil
}
