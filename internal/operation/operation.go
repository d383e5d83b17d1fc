package operation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/leengari/gridops/internal/columns"
	"github.com/leengari/gridops/internal/domain/schema"
	"github.com/leengari/gridops/internal/engine"
	"github.com/leengari/gridops/internal/grid"
)

// MapperFactory builds a mapper for rows described by cm. When the
// operation declares dependencies, cm holds only those columns, in order.
type MapperFactory func(cm schema.ColumnModel) (grid.RowInRecordMapper, error)

// Operation describes a grid transformation as data: what it reads, which
// columns it writes, and the mappers computing them.
//
// With Insertions or Deletions set, mappers return one cell per new
// (non-copy) insertion, in declaration order, and the column layout is
// derived from the directives. Otherwise mappers return full rows and
// Dependencies must be nil.
type Operation struct {
	ID           string
	Description  string
	EngineConfig engine.Config

	// Dependencies lists the columns the mappers read; nil exposes every
	// column
	Dependencies []string
	Insertions   []columns.Insertion
	Deletions    []string

	// PositiveMapper is applied to rows selected by the engine. Nil leaves
	// them as they are.
	PositiveMapper MapperFactory
	// NegativeMapper is applied to the other rows. Nil leaves them as they
	// are, with placeholder cells in inserted columns.
	NegativeMapper MapperFactory

	// Persist caches the positive mapper results in change data named
	// ChangeDataID ("eval" when empty), so an interrupted application is
	// resumed rather than recomputed
	Persist      bool
	ChangeDataID string

	// NewColumnModel replaces the default re-stamping of every column when
	// no insertions are declared
	NewColumnModel func(cm schema.ColumnModel, historyEntryID int64) (schema.ColumnModel, error)

	OverlayModels map[string]grid.OverlayModel
	CreatedFacets []engine.FacetConfig

	// Params are the parameters the operation was built from. They tell
	// operations sharing an ID and description apart.
	Params any
}

// ChangeResult is the outcome of applying an operation
type ChangeResult struct {
	Grid          grid.Grid
	Preservation  grid.Preservation
	CreatedFacets []engine.FacetConfig
}

func (op *Operation) declaresLayout() bool {
	return op.Insertions != nil || op.Deletions != nil
}

func (op *Operation) changeDataID() string {
	if op.ChangeDataID == "" {
		return "eval"
	}
	return op.ChangeDataID
}

// Fingerprint identifies what the operation computes. Two operations with
// the same fingerprint produce the same change data on the same grid.
func (op *Operation) Fingerprint() string {
	b, err := json.Marshal(struct {
		ID           string
		Description  string
		Engine       engine.Config
		Dependencies []string
		Insertions   []columns.Insertion
		Deletions    []string
		ChangeDataID string
		Params       any
	}{op.ID, op.Description, op.EngineConfig, op.Dependencies, op.Insertions, op.Deletions, op.changeDataID(), op.Params})
	if err != nil {
		// unencodable params never match a retry
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
