// Package runlog keeps the per-album record of what a crawl did.
//
// Every entry goes to the console and to an append-only {owner}.log file
// that is synced after each line, so an interrupted run still leaves a
// complete log. Runs are bracketed by begin/end separator lines and
// accumulate in the same file.
package runlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fanfoudl/pkg/storage"
)

// Log is an open run log
type Log struct {
	zl   zerolog.Logger
	file *syncedFile
	path string
	now  func() time.Time
}

// Path returns the {dir}/{owner}.log location
func Path(dir, owner string) string {
	return filepath.Join(dir, storage.SanitizeName(owner)+".log")
}

// Open appends to owner's log under dir, creating the file and dir if missing.
// console may be nil to log only to the file.
func Open(dir, owner string, console io.Writer) (*Log, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	path := Path(dir, owner)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	sf := &syncedFile{f: f}

	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        sf,
		NoColor:    true,
		TimeFormat: time.RFC3339,
		PartsOrder: []string{zerolog.TimestampFieldName, zerolog.MessageFieldName},
	}}
	if console != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        console,
			TimeFormat: "15:04:05",
			PartsOrder: []string{zerolog.TimestampFieldName, zerolog.MessageFieldName},
		})
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	return &Log{zl: zl, file: sf, path: path, now: time.Now}, nil
}

// Path returns the file being written
func (l *Log) Path() string {
	return l.path
}

// Emit writes line to every sink. The returned error reports a failure to
// write or sync the file sink.
func (l *Log) Emit(line string) error {
	l.zl.Log().Msg(line)
	return l.file.takeErr()
}

// Emitf formats and emits a line
func (l *Log) Emitf(format string, args ...interface{}) error {
	return l.Emit(fmt.Sprintf(format, args...))
}

// Begin writes the opening separator of a run
func (l *Log) Begin() error {
	return l.Emitf("===== begin %s =====", l.now().Format(time.RFC3339))
}

// End writes the closing separator of a run
func (l *Log) End() error {
	return l.Emitf("===== end %s =====", l.now().Format(time.RFC3339))
}

// Close releases the file
func (l *Log) Close() error {
	return l.file.f.Close()
}

// syncedFile fsyncs after every write and remembers the first failure
type syncedFile struct {
	mu  sync.Mutex
	f   *os.File
	err error
}

func (s *syncedFile) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.f.Write(p)
	if err == nil {
		err = s.f.Sync()
	}
	if err != nil && s.err == nil {
		s.err = err
	}
	return n, err
}

func (s *syncedFile) takeErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.err
	s.err = nil
	return err
}
