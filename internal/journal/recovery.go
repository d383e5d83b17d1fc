package journal

import (
	"errors"
	"io"
	"slices"
)

// Recovery is the outcome of scanning a journal
type Recovery struct {
	// Entries are the steps live at the last checkpoint, oldest first
	Entries       []Entry
	CheckpointLSN uint64
	HasCheckpoint bool
	// Records is the number of valid records read
	Records int
	// Discarded counts the valid records after the last checkpoint
	Discarded int
	// ValidOffset is the end of the last checkpoint record, or of the file
	// header when there is none. Everything after it is stale.
	ValidOffset uint64
	// Pending is the last step begun on the checkpointed grid that never
	// completed, or nil
	Pending *Entry
	// Abandoned lists the LSNs begun or applied after the last checkpoint,
	// other than Pending. Their change data is no longer reachable.
	Abandoned []uint64
	// Torn is set when a damaged record ended the scan
	Torn       bool
	TornReason string
}

// Recover replays the journal at path. Applies push onto the step stack,
// undos pop the matching step and checkpoints capture the stack. Records
// after the last checkpoint describe grids that were never saved and are
// dropped. A begin stays pending while no apply or undo follows the
// checkpoint it was written after. A damaged tail ends the scan without failing it; only an
// unreadable file header is an error.
func Recover(path string) (*Recovery, error) {
	rd, _, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer rd.Close()

	rec := &Recovery{ValidOffset: rd.Position()}
	var (
		stack []Entry
		// since lists the begins and applies after the last checkpoint
		since   []uint64
		pending *Entry
		moved   bool
	)
	for {
		record, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			rec.Torn = true
			rec.TornReason = err.Error()
			break
		}
		rec.Records++
		rec.Discarded++

		switch record.Header.Type {
		case RecordBegin:
			if !moved {
				pending = &Entry{LSN: record.Header.LSN, Payload: record.Payload}
			}
			since = appendLSN(since, record.Header.LSN)
		case RecordApply:
			stack = append(stack, Entry{LSN: record.Header.LSN, Payload: record.Payload})
			since = appendLSN(since, record.Header.LSN)
			moved, pending = true, nil
		case RecordUndo:
			if n := len(stack); n > 0 && stack[n-1].LSN == record.Header.LSN {
				stack = stack[:n-1]
			}
			moved, pending = true, nil
		case RecordCheckpoint:
			rec.Entries = slices.Clone(stack)
			rec.CheckpointLSN = record.Header.LSN
			rec.HasCheckpoint = true
			rec.ValidOffset = rd.Position()
			rec.Discarded = 0
			since, pending, moved = nil, nil, false
		}
	}

	rec.Pending = pending
	for _, lsn := range since {
		if pending == nil || lsn != pending.LSN {
			rec.Abandoned = append(rec.Abandoned, lsn)
		}
	}
	return rec, nil
}

func appendLSN(lsns []uint64, lsn uint64) []uint64 {
	if slices.Contains(lsns, lsn) {
		return lsns
	}
	return append(lsns, lsn)
}
