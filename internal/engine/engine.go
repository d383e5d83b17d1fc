package engine

import (
	"fmt"
	"slices"

	"github.com/leengari/gridops/internal/domain/data"
	"github.com/leengari/gridops/internal/domain/schema"
	"github.com/leengari/gridops/internal/grid"
)

// Mode selects whether facets act on rows or on records
type Mode string

const (
	RowBased    Mode = "row-based"
	RecordBased Mode = "record-based"
)

// Config is the facet selection an operation is applied through
type Config struct {
	Mode   Mode          `json:"mode,omitempty" hcl:"mode,optional"`
	Facets []FacetConfig `json:"facets,omitempty" hcl:"facet,block"`
}

// Engine compiles a Config against a grid's column model into row and
// record filters
type Engine struct {
	mode   Mode
	facets []*facet
}

// New compiles cfg against the column model of the grid it will filter.
// An empty mode means row-based.
func New(cm schema.ColumnModel, cfg Config) (*Engine, error) {
	mode := cfg.Mode
	switch mode {
	case "":
		mode = RowBased
	case RowBased, RecordBased:
	default:
		return nil, fmt.Errorf("unknown engine mode %q", mode)
	}
	e := &Engine{mode: mode}
	for _, fc := range cfg.Facets {
		f, err := compileFacet(fc, cm)
		if err != nil {
			return nil, err
		}
		e.facets = append(e.facets, f)
	}
	return e, nil
}

func (e *Engine) Mode() Mode { return e.mode }

// IsNeutral reports whether the engine selects everything
func (e *Engine) IsNeutral() bool {
	return len(e.facets) == 0
}

// ColumnDependencies lists the columns read by the facets. The boolean is
// false when some facet may read any column.
func (e *Engine) ColumnDependencies() ([]string, bool) {
	var deps []string
	for _, f := range e.facets {
		if !f.known {
			return nil, false
		}
		for _, d := range f.deps {
			if !slices.Contains(deps, d) {
				deps = append(deps, d)
			}
		}
	}
	return deps, true
}

// CombinedRowFilter accepts rows matched by every facet
func (e *Engine) CombinedRowFilter() grid.RowFilter {
	if e.IsNeutral() {
		return grid.AnyRow
	}
	return grid.RowFilterFunc(func(rowID int64, row data.Row) bool {
		for _, f := range e.facets {
			if !f.match(rowID, row) {
				return false
			}
		}
		return true
	})
}

// CombinedRecordFilter accepts records in which every facet matches at
// least one row
func (e *Engine) CombinedRecordFilter() grid.RecordFilter {
	if e.IsNeutral() {
		return grid.AnyRecord
	}
	return grid.RecordFilterFunc(func(rec data.Record) bool {
		for _, f := range e.facets {
			matched := false
			for _, r := range rec.Rows {
				if f.match(r.Index, r.Row) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
		return true
	})
}
