package wal

import (
	"os"
	"sync"

	"github.com/juju/errors"
)

// LogManager is the write-ahead log collaborator of the buffer pool. The
// pool flushes it before evicting a dirty frame so log records never
// trail the data pages they describe. A nil *LogManager disables logging
// (tests run without one).
type LogManager struct {
	mu      sync.Mutex
	file    *os.File
	pending [][]byte
	nextLSN uint64
}

func NewLogManager(path string) (*LogManager, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, errors.Annotatef(err, "open wal file %q", path)
	}
	return &LogManager{file: file}, nil
}

// Append buffers a log record and returns its sequence number. The
// record reaches disk on the next Flush.
func (l *LogManager) Append(record []byte) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	buf := make([]byte, len(record))
	copy(buf, record)
	l.pending = append(l.pending, buf)

	lsn := l.nextLSN
	l.nextLSN++
	return lsn
}

// Flush writes all pending records and syncs the log file.
func (l *LogManager) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pending) == 0 {
		return nil
	}
	for _, record := range l.pending {
		if _, err := l.file.Write(record); err != nil {
			return errors.Annotate(err, "append wal record")
		}
	}
	l.pending = l.pending[:0]

	if err := l.file.Sync(); err != nil {
		return errors.Annotate(err, "sync wal")
	}
	return nil
}

func (l *LogManager) Close() error {
	if err := l.Flush(); err != nil {
		return errors.Trace(err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.file.Close(); err != nil {
		return errors.Annotate(err, "close wal")
	}
	return nil
}
