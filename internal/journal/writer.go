package journal

import (
	"encoding/json"
	"fmt"
	"hash/crc32"
)

// Records are written unsynced except begins and checkpoints. A crash may
// lose the steps after the last checkpoint, which matches the grid
// snapshot: it only holds what was saved.

// LogBegin records that a step is about to compute its change data under
// lsn, and fsyncs so an interrupted step can be resumed after a crash
func (j *Journal) LogBegin(lsn uint64, pending any) error {
	payload, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to encode pending step %d: %w", lsn, err)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.writeRecord(RecordBegin, lsn, payload); err != nil {
		return fmt.Errorf("failed to write Begin record: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to fsync after begin: %w", err)
	}
	return nil
}

// LogApply records an applied step
func (j *Journal) LogApply(lsn uint64, step any) error {
	payload, err := json.Marshal(step)
	if err != nil {
		return fmt.Errorf("failed to encode step %d: %w", lsn, err)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.writeRecord(RecordApply, lsn, payload); err != nil {
		return fmt.Errorf("failed to write Apply record: %w", err)
	}
	return nil
}

// LogUndo records that the step with lsn was reverted
func (j *Journal) LogUndo(lsn uint64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.writeRecord(RecordUndo, lsn, nil); err != nil {
		return fmt.Errorf("failed to write Undo record: %w", err)
	}
	return nil
}

// Checkpoint records that the grid was saved with lsn as its last history
// entry, and fsyncs
func (j *Journal) Checkpoint(lsn uint64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.writeRecord(RecordCheckpoint, lsn, nil); err != nil {
		return fmt.Errorf("failed to write Checkpoint record: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to fsync after checkpoint: %w", err)
	}
	j.lastCheckpoint = lsn
	return nil
}

// writeRecord writes header, payload and padding in one call.
// Must be called with mutex held.
func (j *Journal) writeRecord(recordType RecordType, lsn uint64, payload []byte) error {
	if j.file == nil {
		return fmt.Errorf("journal %s is closed", j.path)
	}
	totalLen := RecordHeaderSize + len(payload)
	alignedLen := AlignTo8(totalLen)
	if alignedLen > MaxRecordSize {
		return fmt.Errorf("record of %d bytes exceeds max %d", alignedLen, MaxRecordSize)
	}

	buf := make([]byte, alignedLen)
	encodeHeader(buf, RecordHeader{
		Type:       recordType,
		Length:     uint32(alignedLen),
		LSN:        lsn,
		CRC32:      crc32.ChecksumIEEE(payload),
		PayloadLen: uint32(len(payload)),
		FileOffset: j.currentOffset,
	})
	copy(buf[RecordHeaderSize:], payload)

	if _, err := j.file.Write(buf); err != nil {
		return err
	}
	j.currentOffset += uint64(alignedLen)
	return nil
}

func encodeHeader(buf []byte, h RecordHeader) {
	buf[0] = byte(h.Type)
	ByteOrder.PutUint32(buf[2:6], h.Length)
	ByteOrder.PutUint64(buf[6:14], h.LSN)
	ByteOrder.PutUint32(buf[14:18], h.CRC32)
	ByteOrder.PutUint64(buf[18:26], h.FileOffset)
	ByteOrder.PutUint32(buf[26:30], h.PayloadLen)
}
