package journal

import (
	"bufio"
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

// Reader scans journal records in file order
type Reader struct {
	file       *os.File
	r          *bufio.Reader
	currentPos uint64
}

// NewReader opens the journal at path and validates its file header
func NewReader(path string) (*Reader, *FileHeader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open journal: %w", err)
	}
	rd := &Reader{file: file, r: bufio.NewReader(file)}
	header, err := rd.readFileHeader()
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	return rd, header, nil
}

// Close closes the underlying file
func (rd *Reader) Close() error {
	return rd.file.Close()
}

// Position is the offset of the next record
func (rd *Reader) Position() uint64 {
	return rd.currentPos
}

func (rd *Reader) readFileHeader() (*FileHeader, error) {
	buf := make([]byte, FileHeaderSize)
	if _, err := io.ReadFull(rd.r, buf); err != nil {
		return nil, fmt.Errorf("failed to read journal header: %w", err)
	}
	header := &FileHeader{Version: ByteOrder.Uint16(buf[8:10])}
	copy(header.Magic[:], buf[0:8])
	copy(header.Session[:], buf[10:42])
	header.CreatedAt = int64(ByteOrder.Uint64(buf[42:50]))

	if header.Magic != Magic {
		return nil, fmt.Errorf("invalid journal magic: %q", header.Magic[:])
	}
	if header.Version != Version {
		return nil, fmt.Errorf("unsupported journal version: expected %d, got %d", Version, header.Version)
	}
	rd.currentPos = FileHeaderSize
	return header, nil
}

// Next returns the next record, or io.EOF at a clean end of file. Any other
// error means the journal is damaged from the current position on.
func (rd *Reader) Next() (*Record, error) {
	headerBuf := make([]byte, RecordHeaderSize)
	n, err := io.ReadFull(rd.r, headerBuf)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("incomplete header at offset %d: read %d bytes", rd.currentPos, n)
	}

	header := decodeHeader(headerBuf)
	if err := rd.validateHeader(header); err != nil {
		return nil, err
	}

	body := make([]byte, int(header.Length)-RecordHeaderSize)
	if _, err := io.ReadFull(rd.r, body); err != nil {
		return nil, fmt.Errorf("incomplete record at offset %d: %w", rd.currentPos, err)
	}
	payload := body[:header.PayloadLen]
	if crc := crc32.ChecksumIEEE(payload); crc != header.CRC32 {
		return nil, fmt.Errorf("CRC mismatch at offset %d: expected %08x, got %08x", rd.currentPos, header.CRC32, crc)
	}

	rd.currentPos += uint64(header.Length)
	return &Record{Header: header, Payload: payload}, nil
}

func decodeHeader(buf []byte) RecordHeader {
	return RecordHeader{
		Type:       RecordType(buf[0]),
		Length:     ByteOrder.Uint32(buf[2:6]),
		LSN:        ByteOrder.Uint64(buf[6:14]),
		CRC32:      ByteOrder.Uint32(buf[14:18]),
		FileOffset: ByteOrder.Uint64(buf[18:26]),
		PayloadLen: ByteOrder.Uint32(buf[26:30]),
	}
}

// validateHeader runs the sanity checks that must pass before allocating
// the record body
func (rd *Reader) validateHeader(h RecordHeader) error {
	if h.Length > MaxRecordSize {
		return fmt.Errorf("record length %d exceeds max %d at offset %d", h.Length, MaxRecordSize, rd.currentPos)
	}
	if h.Length < MinRecordSize || h.Length%8 != 0 {
		return fmt.Errorf("invalid record length %d at offset %d", h.Length, rd.currentPos)
	}
	if int(h.PayloadLen) > int(h.Length)-RecordHeaderSize {
		return fmt.Errorf("payload length %d does not fit record of %d at offset %d", h.PayloadLen, h.Length, rd.currentPos)
	}
	if h.Type < RecordApply || h.Type > RecordBegin {
		return fmt.Errorf("invalid record type %d at offset %d", h.Type, rd.currentPos)
	}
	if h.FileOffset != rd.currentPos {
		return fmt.Errorf("file offset mismatch: header says %d, actual position %d", h.FileOffset, rd.currentPos)
	}
	return nil
}
