package eventlog

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/fgeck/nodewake/internal/models"
	"github.com/rs/zerolog"
)

// FileStore keeps events in a plain text file, one per line.
type FileStore struct {
	path   string
	logger zerolog.Logger
}

// NewFileStore creates a text file store. The file is created on first append,
// but its directory must already exist.
func NewFileStore(path string, logger zerolog.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Path returns the log file path.
func (s *FileStore) Path() string {
	return s.path
}

// Append writes ev as a single line under an exclusive lock.
func (s *FileStore) Append(ev models.WakeEvent) error {
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o640) //nolint:gosec // path is operator configured
	if err != nil {
		return fmt.Errorf("opening event log: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := lockFile(f, true); err != nil {
		return fmt.Errorf("locking event log: %w", err)
	}
	defer func() { _ = unlockFile(f) }()

	if _, err := f.WriteString(FormatLine(ev) + "\n"); err != nil {
		return fmt.Errorf("writing event log: %w", err)
	}

	return nil
}

// ReadAll returns every well-formed event in file order. A missing file is an empty log.
func (s *FileStore) ReadAll() ([]models.WakeEvent, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := lockFile(f, false); err != nil {
		return nil, fmt.Errorf("locking event log: %w", err)
	}
	defer func() { _ = unlockFile(f) }()

	var events []models.WakeEvent
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		ev, err := ParseLine(line)
		if err != nil {
			s.logger.Debug().Err(err).Int("line", lineNo).Msg("skipping event log line")
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading event log: %w", err)
	}

	return events, nil
}
