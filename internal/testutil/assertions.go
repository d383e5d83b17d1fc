package testutil

import (
	"fmt"
	"testing"

	"github.com/leengari/gridops/internal/domain/data"
	"github.com/leengari/gridops/internal/domain/schema"
)

// AssertRowCount checks if the result has the expected number of rows
func AssertRowCount(t *testing.T, actual, expected int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected %d rows, got %d", context, expected, actual)
	}
}

// AssertColumnNames checks the names of a column model, in order
func AssertColumnNames(t *testing.T, cm schema.ColumnModel, expected []string, context string) {
	t.Helper()
	actual := cm.ColumnNames()
	if fmt.Sprint(actual) != fmt.Sprint(expected) {
		t.Errorf("%s: expected columns %v, got %v", context, expected, actual)
	}
}

// AssertRowValues checks every cell value of a row
func AssertRowValues(t *testing.T, row data.Row, expected []interface{}, context string) {
	t.Helper()
	actual := Values(row)
	if len(actual) != len(expected) {
		t.Errorf("%s: expected %d cells, got %d (%v)", context, len(expected), len(actual), actual)
		return
	}
	for i := range expected {
		if actual[i] != expected[i] {
			t.Errorf("%s: cell %d: expected %#v, got %#v", context, i, expected[i], actual[i])
		}
	}
}

// AssertCellPending checks that a cell is the pending placeholder
func AssertCellPending(t *testing.T, row data.Row, column int, context string) {
	t.Helper()
	if !row.Cell(column).IsPending() {
		t.Errorf("%s: expected cell %d to be pending, got %v", context, column, row.Cell(column))
	}
}

// AssertNoError checks that an error is nil
func AssertNoError(t *testing.T, err error, context string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: expected no error, got: %v", context, err)
	}
}

// AssertError checks that an error is not nil
func AssertError(t *testing.T, err error, context string) {
	t.Helper()
	if err == nil {
		t.Errorf("%s: expected an error, got nil", context)
	}
}
