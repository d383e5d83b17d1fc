// Package journal keeps an append-only, checksummed log of the steps applied
// to a session so its history survives a restart.
package journal

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Journal is an open history log. It is safe for concurrent use.
type Journal struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	session string

	currentOffset uint64
	// lastCheckpoint is the LSN of the last checkpoint record
	lastCheckpoint uint64
}

// Open opens the journal at path, creating it when missing. An existing
// journal is recovered first and cut back to its last checkpoint, dropping
// a damaged tail and the steps of grids that were never saved. The steps
// live at that checkpoint are returned; a pending step is kept in the log.
func Open(path, session string, logger *slog.Logger) (*Journal, *Recovery, error) {
	if logger == nil {
		logger = slog.Default()
	}
	j := &Journal{path: path, session: session}

	info, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("failed to stat journal: %w", err)
	}
	// a journal cut short before its header holds no records
	if err != nil || info.Size() < FileHeaderSize {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create journal: %w", err)
		}
		j.file = file
		if err := j.writeFileHeader(); err != nil {
			file.Close()
			return nil, nil, fmt.Errorf("failed to write journal header: %w", err)
		}
		return j, &Recovery{}, nil
	}

	rec, err := Recover(path)
	if err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if rec.Torn {
		logger.Warn("damaged journal tail",
			slog.String("path", path),
			slog.String("reason", rec.TornReason),
		)
	}
	if rec.Torn || rec.Discarded > 0 {
		logger.Info("truncating journal to last checkpoint",
			slog.String("path", path),
			slog.Uint64("offset", rec.ValidOffset),
			slog.Int("discarded", rec.Discarded),
		)
		if err := file.Truncate(int64(rec.ValidOffset)); err != nil {
			file.Close()
			return nil, nil, fmt.Errorf("failed to truncate journal: %w", err)
		}
	}
	if _, err := file.Seek(int64(rec.ValidOffset), io.SeekStart); err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to seek to end of journal: %w", err)
	}
	j.file = file
	j.currentOffset = rec.ValidOffset
	j.lastCheckpoint = rec.CheckpointLSN
	// the truncation dropped the pending begin; it still applies to the
	// checkpointed grid
	if rec.Pending != nil && (rec.Torn || rec.Discarded > 0) {
		if err := j.writeRecord(RecordBegin, rec.Pending.LSN, rec.Pending.Payload); err != nil {
			file.Close()
			return nil, nil, fmt.Errorf("failed to rewrite pending step: %w", err)
		}
		if err := file.Sync(); err != nil {
			file.Close()
			return nil, nil, fmt.Errorf("failed to fsync journal: %w", err)
		}
	}
	logger.Debug("journal recovered",
		slog.String("path", path),
		slog.Int("records", rec.Records),
		slog.Int("entries", len(rec.Entries)),
	)
	return j, rec, nil
}

func (j *Journal) writeFileHeader() error {
	buf := make([]byte, FileHeaderSize)
	copy(buf[0:8], Magic[:])
	ByteOrder.PutUint16(buf[8:10], Version)
	copy(buf[10:42], j.session)
	ByteOrder.PutUint64(buf[42:50], uint64(time.Now().Unix()))

	if _, err := j.file.Write(buf); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync header: %w", err)
	}
	j.currentOffset = FileHeaderSize
	return nil
}

// Close syncs and closes the journal
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return nil
	}
	if err := j.file.Sync(); err != nil {
		return err
	}
	err := j.file.Close()
	j.file = nil
	return err
}

// Path returns the journal file path
func (j *Journal) Path() string {
	return j.path
}

// LastCheckpointLSN returns the LSN of the last checkpoint
func (j *Journal) LastCheckpointLSN() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastCheckpoint
}
