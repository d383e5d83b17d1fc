package engine

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/leengari/gridops/internal/domain/data"
	"github.com/leengari/gridops/internal/domain/errors"
	"github.com/leengari/gridops/internal/domain/schema"
	"github.com/leengari/gridops/internal/expression"
)

// Facet types
const (
	FacetList       = "list"
	FacetText       = "text"
	FacetRange      = "range"
	FacetExpression = "expression"
)

// FacetConfig describes one facet. Which fields apply depends on Type.
type FacetConfig struct {
	Type             string   `json:"type" hcl:"type,label"`
	Column           string   `json:"column" hcl:"column"`
	Values           []string `json:"values,omitempty" hcl:"values,optional"`
	Query            string   `json:"query,omitempty" hcl:"query,optional"`
	Expression       string   `json:"expression,omitempty" hcl:"expression,optional"`
	From             *float64 `json:"from,omitempty" hcl:"from,optional"`
	To               *float64 `json:"to,omitempty" hcl:"to,optional"`
	Regex            bool     `json:"regex,omitempty" hcl:"regex,optional"`
	CaseSensitive    bool     `json:"caseSensitive,omitempty" hcl:"case_sensitive,optional"`
	SelectBlank      bool     `json:"selectBlank,omitempty" hcl:"select_blank,optional"`
	SelectNonNumeric bool     `json:"selectNonNumeric,omitempty" hcl:"select_non_numeric,optional"`
	Invert           bool     `json:"invert,omitempty" hcl:"invert,optional"`
}

// facet is a compiled FacetConfig bound to a column model
type facet struct {
	deps  []string
	known bool
	match func(rowID int64, row data.Row) bool
}

func compileFacet(cfg FacetConfig, cm schema.ColumnModel) (*facet, error) {
	col, err := cm.RequiredColumnIndex(cfg.Column)
	if err != nil {
		return nil, err
	}
	f := &facet{deps: []string{cfg.Column}, known: true}
	var match func(int64, data.Row) bool

	switch cfg.Type {
	case FacetList:
		values := make(map[string]bool, len(cfg.Values))
		for _, v := range cfg.Values {
			values[v] = true
		}
		eval, err := f.valueOf(cfg, cm, col)
		if err != nil {
			return nil, err
		}
		match = func(rowID int64, row data.Row) bool {
			v, ok := eval(rowID, row)
			if !ok {
				return cfg.SelectBlank
			}
			return values[fmt.Sprint(v)]
		}

	case FacetText:
		var re *regexp.Regexp
		query := cfg.Query
		if cfg.Regex {
			pattern := query
			if !cfg.CaseSensitive {
				pattern = "(?i)" + pattern
			}
			if re, err = regexp.Compile(pattern); err != nil {
				return nil, fmt.Errorf("invalid text facet pattern %q: %w", query, err)
			}
		} else if !cfg.CaseSensitive {
			query = strings.ToLower(query)
		}
		match = func(_ int64, row data.Row) bool {
			if row.IsCellBlank(col) {
				return false
			}
			s := fmt.Sprint(row.CellValue(col))
			if re != nil {
				return re.MatchString(s)
			}
			if !cfg.CaseSensitive {
				s = strings.ToLower(s)
			}
			return strings.Contains(s, query)
		}

	case FacetRange:
		match = func(_ int64, row data.Row) bool {
			if row.IsCellBlank(col) {
				return cfg.SelectBlank
			}
			n, ok := numericValue(row.CellValue(col))
			if !ok {
				return cfg.SelectNonNumeric
			}
			if cfg.From != nil && n < *cfg.From {
				return false
			}
			if cfg.To != nil && n >= *cfg.To {
				return false
			}
			return true
		}

	case FacetExpression:
		if cfg.Expression == "" {
			return nil, fmt.Errorf("expression facet on %q has no expression", cfg.Column)
		}
		eval, err := f.valueOf(cfg, cm, col)
		if err != nil {
			return nil, err
		}
		match = func(rowID int64, row data.Row) bool {
			v, ok := eval(rowID, row)
			if !ok {
				return cfg.SelectBlank
			}
			if len(cfg.Values) == 0 {
				b, isBool := v.(bool)
				return isBool && b
			}
			return slices.Contains(cfg.Values, fmt.Sprint(v))
		}

	default:
		return nil, fmt.Errorf("unknown facet type %q", cfg.Type)
	}

	if cfg.Invert {
		f.match = func(rowID int64, row data.Row) bool { return !match(rowID, row) }
	} else {
		f.match = match
	}
	return f, nil
}

// valueOf returns the function producing the facet value of a row: the
// column cell, or the facet expression evaluated against the row. It
// records the columns the expression reads in f. The boolean is false for
// blank values and evaluation errors.
func (f *facet) valueOf(cfg FacetConfig, cm schema.ColumnModel, col int) (func(int64, data.Row) (interface{}, bool), error) {
	if cfg.Expression == "" {
		return func(_ int64, row data.Row) (interface{}, bool) {
			if row.IsCellBlank(col) {
				return nil, false
			}
			return row.CellValue(col), true
		}, nil
	}
	expr, err := expression.Parse(cfg.Expression)
	if err != nil {
		return nil, err
	}
	deps, known := expr.ColumnDependencies(cfg.Column)
	for _, d := range deps {
		if cm.ColumnIndex(d) < 0 {
			return nil, &errors.MissingColumnError{Column: d}
		}
	}
	// the facet column is resolved below, so it stays a dependency even
	// when the expression never reads value
	if known && !slices.Contains(deps, cfg.Column) {
		deps = append(deps, cfg.Column)
	}
	f.deps, f.known = deps, known
	names := cm.ColumnNames()
	return func(rowID int64, row data.Row) (interface{}, bool) {
		cells := make(map[string]interface{}, len(names))
		for i, name := range names {
			cells[name] = row.CellValue(i)
		}
		v, err := expr.Evaluate(expression.Bindings{
			Value:    row.CellValue(col),
			Cells:    cells,
			RowIndex: rowID,
			Flagged:  row.Flagged,
			Starred:  row.Starred,
		})
		if err != nil || v == nil || v == "" {
			return nil, false
		}
		return v, true
	}, nil
}

func numericValue(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case float64:
		return x, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return n, err == nil
	}
	return 0, false
}
