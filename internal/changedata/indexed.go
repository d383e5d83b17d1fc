package changedata

// IndexedData is one change data entry: the value computed for a row id
// (row-based mode) or a record start id (record-based mode).
//
// Present is false when nothing was computed for the id. Pending marks a
// missing value that may still be computed later, as opposed to one the
// mapper will never produce.
type IndexedData[T any] struct {
	ID      int64
	Data    T
	Present bool
	Pending bool
}

// Value returns a present entry
func Value[T any](id int64, v T) IndexedData[T] {
	return IndexedData[T]{ID: id, Data: v, Present: true}
}

// Missing returns an entry without data
func Missing[T any](id int64, pending bool) IndexedData[T] {
	return IndexedData[T]{ID: id, Pending: pending}
}
