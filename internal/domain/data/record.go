package data

// Record is a maximal run of consecutive rows sharing one grouping key.
// The first row of a record holds a non-blank value in the key column.
type Record struct {
	Rows []IndexedRow
}

// StartRowID returns the id of the first row of the record
func (r Record) StartRowID() int64 {
	if len(r.Rows) == 0 {
		return -1
	}
	return r.Rows[0].Index
}

// EndRowID returns one past the id of the last row of the record
func (r Record) EndRowID() int64 {
	if len(r.Rows) == 0 {
		return -1
	}
	return r.Rows[len(r.Rows)-1].Index + 1
}

// Size returns the number of rows in the record
func (r Record) Size() int {
	return len(r.Rows)
}

// IsRecordStart reports whether a row opens a new record for the given key
// column. A negative key column index makes every row its own record.
func IsRecordStart(row Row, keyColumnIndex int) bool {
	if keyColumnIndex < 0 {
		return true
	}
	return !row.IsCellBlank(keyColumnIndex)
}

// GroupRecords splits consecutive rows into records. Leading rows without a
// key value are grouped into a first record of their own.
func GroupRecords(rows []IndexedRow, keyColumnIndex int) []Record {
	var records []Record
	var current []IndexedRow
	for _, row := range rows {
		if len(current) > 0 && IsRecordStart(row.Row, keyColumnIndex) {
			records = append(records, Record{Rows: current})
			current = nil
		}
		current = append(current, row)
	}
	if len(current) > 0 {
		records = append(records, Record{Rows: current})
	}
	return records
}
