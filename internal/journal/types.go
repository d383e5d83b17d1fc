package journal

import (
	"encoding/binary"
	"encoding/json"
)

// ===========================================================================
// JOURNAL FILE FORMAT
// ===========================================================================
//
// ┌──────────────────────────────────────────────────────────────────────┐
// │ File Header (fixed 64 bytes, padded)                                 │
// ├──────────────────────────────────────────────────────────────────────┤
// │ Record 1: [Header (32 bytes)] [Payload (variable)] [Padding to 8]    │
// ├──────────────────────────────────────────────────────────────────────┤
// │ ...                                                                  │
// └──────────────────────────────────────────────────────────────────────┘
//
// All multi-byte integers are little-endian. The LSN of a record is the
// history entry id it refers to.
//
// ===========================================================================

// ByteOrder is the byte order used for encoding journal data
var ByteOrder = binary.LittleEndian

// MaxRecordSize bounds a single record so a corrupted length field cannot
// trigger a huge allocation during recovery
const MaxRecordSize = 4 * 1024 * 1024

// MinRecordSize is the size of a record without payload
const MinRecordSize = RecordHeaderSize

// Magic identifies a journal file (ASCII: "GRIDJRNL")
var Magic = [8]byte{'G', 'R', 'I', 'D', 'J', 'R', 'N', 'L'}

// Version is the current journal format version
const Version uint16 = 1

// FileHeader is written at the beginning of every journal
//
// Binary layout:
// ┌──────────┬────────────┬──────────────┬──────────────┬────────────┐
// │ Magic(8) │ Version(2) │ Session(32)  │ CreatedAt(8) │ Pad(14)    │
// └──────────┴────────────┴──────────────┴──────────────┴────────────┘
type FileHeader struct {
	Magic     [8]byte
	Version   uint16
	Session   [32]byte // null-padded, truncated
	CreatedAt int64
}

// FileHeaderSize is the fixed size of the file header
const FileHeaderSize = 64

// RecordType is the kind of a journal record
type RecordType uint8

const (
	// RecordApply carries a JSON encoded step
	RecordApply RecordType = iota + 1
	// RecordUndo reverts the step with the record's LSN
	RecordUndo
	// RecordCheckpoint marks the grid as saved at the record's LSN
	RecordCheckpoint
	// RecordBegin opens a step before its change data is computed
	RecordBegin
)

func (rt RecordType) String() string {
	switch rt {
	case RecordApply:
		return "Apply"
	case RecordUndo:
		return "Undo"
	case RecordCheckpoint:
		return "Checkpoint"
	case RecordBegin:
		return "Begin"
	default:
		return "Unknown"
	}
}

// RecordHeader precedes every record
//
// Binary layout:
// ┌─────────┬────────┬───────────┬────────┬──────────┬────────────┬───────────┬────────┐
// │ Type(1) │ Pad(1) │ Length(4) │ LSN(8) │ CRC32(4) │ FileOff(8) │ PayLen(4) │ Pad(2) │
// └─────────┴────────┴───────────┴────────┴──────────┴────────────┴───────────┴────────┘
// Offsets: 0        1        2           6        14         18           26          30
type RecordHeader struct {
	Type RecordType
	// Length includes the header and the alignment padding
	Length     uint32
	LSN        uint64
	CRC32      uint32 // of the payload, without padding
	PayloadLen uint32
	FileOffset uint64
}

// RecordHeaderSize is the fixed size of a record header
const RecordHeaderSize = 32

// AlignTo8 rounds size up to the next 8-byte boundary
func AlignTo8(size int) int {
	return (size + 7) &^ 7
}

// Record is one decoded journal record
type Record struct {
	Header  RecordHeader
	Payload json.RawMessage
}

// Entry is a step that survived recovery
type Entry struct {
	LSN     uint64
	Payload json.RawMessage
}
