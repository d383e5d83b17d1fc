package operation

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/leengari/gridops/internal/changedata"
	"github.com/leengari/gridops/internal/changes"
	"github.com/leengari/gridops/internal/columns"
	"github.com/leengari/gridops/internal/domain/data"
	"github.com/leengari/gridops/internal/domain/errors"
	"github.com/leengari/gridops/internal/domain/schema"
	"github.com/leengari/gridops/internal/engine"
	"github.com/leengari/gridops/internal/grid"
	"github.com/leengari/gridops/internal/joiner"
	"github.com/leengari/gridops/internal/metrics"
	"github.com/leengari/gridops/internal/projection"
)

// Applier applies operations to grids and reports lifecycle events to its
// observers
type Applier struct {
	observers []Observer
}

func NewApplier(observers ...Observer) *Applier {
	return &Applier{observers: observers}
}

// AddObserver registers an observer to receive lifecycle events
func (a *Applier) AddObserver(observer Observer) {
	a.observers = append(a.observers, observer)
}

// RemoveObserver unregisters an observer
func (a *Applier) RemoveObserver(observer Observer) {
	for i, o := range a.observers {
		if o == observer {
			a.observers = append(a.observers[:i], a.observers[i+1:]...)
			return
		}
	}
}

func (a *Applier) notify(event Event) {
	event.Timestamp = time.Now()
	for _, o := range a.observers {
		o.OnEvent(event)
	}
}

// Apply applies op to g without observers
func Apply(ctx context.Context, op *Operation, g grid.Grid, cc *changes.Context) (*ChangeResult, error) {
	return NewApplier().Apply(ctx, op, g, cc)
}

// Apply validates op against the column model of g, then maps or joins
// every row. Validation failures are returned before any row is read, as
// *errors.OperationError of kind KindValidation; change data store failures
// have kind KindPersistence.
func (a *Applier) Apply(ctx context.Context, op *Operation, g grid.Grid, cc *changes.Context) (result *ChangeResult, err error) {
	log := cc.Log().With(slog.String("operation", op.ID), slog.String("trace_id", cc.TraceID))
	start := time.Now()
	a.notify(Event{Type: EventApplyStart, Operation: op.ID, TraceID: cc.TraceID, Data: op.Description})
	log.Info("applying operation",
		slog.String("description", op.Description),
		slog.Int64("history_entry_id", cc.HistoryEntryID),
		slog.Int64("rows", g.RowCount()),
	)

	defer func() {
		if err != nil {
			kind := "runtime"
			var opErr *errors.OperationError
			if stderrors.As(err, &opErr) {
				kind = opErr.Kind.String()
			}
			metrics.OperationErrors.WithLabelValues(op.ID, kind).Inc()
			a.notify(Event{Type: EventApplyFailed, Operation: op.ID, TraceID: cc.TraceID, Data: err.Error()})
			log.Error("operation failed", slog.Any("error", err))
			return
		}
		elapsed := time.Since(start)
		metrics.OperationsApplied.WithLabelValues(op.ID, result.Preservation.String()).Inc()
		metrics.ApplyDuration.WithLabelValues(op.ID).Observe(elapsed.Seconds())
		a.notify(Event{Type: EventApplyEnd, Operation: op.ID, TraceID: cc.TraceID, Data: result.Preservation})
		log.Info("operation applied",
			slog.String("preservation", result.Preservation.String()),
			slog.Duration("elapsed", elapsed),
		)
	}()

	p, err := prepare(op, g.ColumnModel(), cc.HistoryEntryID)
	if err != nil {
		return nil, errors.NewValidationError(op.ID, err)
	}
	a.notify(Event{Type: EventLayoutBuilt, Operation: op.ID, TraceID: cc.TraceID, Data: p.newColumnModel.ColumnNames()})
	log.Debug("column layout built",
		slog.Any("columns", p.newColumnModel.ColumnNames()),
		slog.Bool("insertions", p.layout != nil),
		slog.Bool("neutral_engine", p.engine.IsNeutral()),
		slog.String("mode", string(p.engine.Mode())),
	)

	var (
		out          grid.Grid
		preservation grid.Preservation
	)
	if op.Persist {
		out, preservation, err = a.applyPersisted(ctx, op, g, cc, p)
	} else {
		out, preservation, err = applyEphemeral(ctx, g, p)
	}
	if err != nil {
		return nil, err
	}

	overlays := g.OverlayModels()
	maps.Copy(overlays, op.OverlayModels)
	return &ChangeResult{
		Grid:          out.WithOverlayModels(overlays),
		Preservation:  preservation,
		CreatedFacets: op.CreatedFacets,
	}, nil
}

// plan bundles everything Apply derives from an operation before touching
// rows
type plan struct {
	op             *Operation
	engine         *engine.Engine
	positive       grid.RowInRecordMapper
	negative       grid.RowInRecordMapper
	layout         *columns.Layout
	newColumnModel schema.ColumnModel
	// dependencies narrows change data computation; nil means every column
	dependencies []string
}

func prepare(op *Operation, cm schema.ColumnModel, historyEntryID int64) (*plan, error) {
	if op.Dependencies != nil && !op.declaresLayout() {
		return nil, fmt.Errorf("dependencies require column insertions or deletions")
	}
	eng, err := engine.New(cm, op.EngineConfig)
	if err != nil {
		return nil, err
	}
	p := &plan{op: op, engine: eng}

	if p.positive, err = buildMapper(op.PositiveMapper, op.Dependencies, cm); err != nil {
		return nil, err
	}
	if p.negative, err = buildMapper(op.NegativeMapper, op.Dependencies, cm); err != nil {
		return nil, err
	}

	switch {
	case op.declaresLayout():
		p.layout, err = columns.BuildLayout(cm, op.Deletions, op.Insertions, historyEntryID, eng.IsNeutral())
		if err != nil {
			return nil, err
		}
		p.newColumnModel = p.layout.ColumnModel
	case op.NewColumnModel != nil:
		if p.newColumnModel, err = op.NewColumnModel(cm, historyEntryID); err != nil {
			return nil, err
		}
	default:
		p.newColumnModel = cm.MarkModified(historyEntryID)
	}

	if op.Dependencies != nil {
		if engineDeps, ok := eng.ColumnDependencies(); ok {
			p.dependencies = slices.Clone(op.Dependencies)
			for _, d := range engineDeps {
				if !slices.Contains(p.dependencies, d) {
					p.dependencies = append(p.dependencies, d)
				}
			}
		}
	}
	return p, nil
}

// buildMapper instantiates factory for the dependency columns of cm and
// wraps it so it can be fed full rows
func buildMapper(factory MapperFactory, dependencies []string, cm schema.ColumnModel) (grid.RowInRecordMapper, error) {
	if dependencies == nil {
		if factory == nil {
			return nil, nil
		}
		return factory(cm)
	}
	projector, err := projection.NewColumnMapper(dependencies, cm)
	if err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, nil
	}
	m, err := factory(projector.InputColumnModel())
	if err != nil {
		return nil, err
	}
	return projector.TranslateRowInRecordMapper(m), nil
}

// emptyOutput produces no cell for any mapper slot
var emptyOutput = grid.NewMapper(true, func(*data.Record, int64, data.Row) data.Row { return data.Row{} })

// changeMapper is the mapper whose output is stored in change data
func (p *plan) changeMapper() grid.RowInRecordMapper {
	switch {
	case p.positive != nil:
		return p.positive
	case p.layout != nil:
		return emptyOutput
	default:
		return grid.Identity
	}
}

func spliced(m grid.RowInRecordMapper, index columns.IndexMap, preserves bool) grid.RowInRecordMapper {
	return grid.NewMapper(preserves, func(rec *data.Record, rowID int64, row data.Row) data.Row {
		if m == nil {
			return index.SpliceBlank(row)
		}
		mapped := m.MapRow(rec, rowID, row)
		return index.SpliceRow(row, &mapped)
	})
}

// fullPositive maps selected rows to full rows of the new column model
func (p *plan) fullPositive() grid.RowInRecordMapper {
	if p.layout == nil {
		return p.changeMapper()
	}
	return spliced(p.changeMapper(), p.layout.Positive, p.layout.PositivePreservesRecords())
}

// fullNegative maps the other rows to full rows of the new column model
func (p *plan) fullNegative() grid.RowInRecordMapper {
	if p.layout == nil {
		if p.negative == nil {
			return grid.Identity
		}
		return p.negative
	}
	return spliced(p.negative, p.layout.Negative, p.layout.NegativePreservesRecords())
}

func applyEphemeral(ctx context.Context, g grid.Grid, p *plan) (grid.Grid, grid.Preservation, error) {
	positive, negative := p.fullPositive(), p.fullNegative()
	preserves := positive.PreservesRecordStructure() && negative.PreservesRecordStructure()
	if p.layout != nil {
		preserves = p.layout.PreservesRecordStructure()
	}

	var (
		out grid.Grid
		err error
	)
	if p.engine.Mode() == engine.RecordBased {
		out, err = g.MapRecords(ctx, grid.ConditionalRecordMapper(p.engine.CombinedRecordFilter(), positive, negative), p.newColumnModel)
	} else {
		out, err = g.MapRows(ctx, grid.ConditionalRowMapper(p.engine.CombinedRowFilter(), positive, negative), p.newColumnModel)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("operation %s: %w", p.op.ID, err)
	}
	return out, grid.PreservationOf(preserves), nil
}

// rederive compiles the engine and the change mapper against the column
// model of a grid narrowed to the change data dependencies
func (p *plan) rederive(cm schema.ColumnModel) (*engine.Engine, grid.RowInRecordMapper, error) {
	eng, err := engine.New(cm, p.op.EngineConfig)
	if err != nil {
		return nil, nil, err
	}
	positive, err := buildMapper(p.op.PositiveMapper, p.op.Dependencies, cm)
	if err != nil {
		return nil, nil, err
	}
	narrowed := *p
	narrowed.positive = positive
	return eng, narrowed.changeMapper(), nil
}

type joinStrategy interface {
	grid.RowJoiner
	grid.RecordJoiner
}

func (a *Applier) applyPersisted(ctx context.Context, op *Operation, g grid.Grid, cc *changes.Context, p *plan) (grid.Grid, grid.Preservation, error) {
	var j joinStrategy
	if p.layout != nil {
		j = joiner.NewInsertion(p.engine.CombinedRowFilter(), p.engine.CombinedRecordFilter(), p.layout)
	} else {
		j = joiner.NewDefault(p.fullNegative())
	}
	cc.Log().Debug("joining with change data",
		slog.String("operation", op.ID),
		slog.Bool("insertion_aware", p.layout != nil),
		slog.Any("dependencies", p.dependencies),
	)

	var (
		out grid.Grid
		err error
	)
	if p.engine.Mode() == engine.RecordBased {
		compute := func(ctx context.Context, narrowed grid.Grid, partial *changedata.ChangeData[[]data.Row]) (*changedata.ChangeData[[]data.Row], error) {
			eng, mapper, err := p.rederive(narrowed.ColumnModel())
			if err != nil {
				return nil, err
			}
			return narrowed.MapRecordsToChangeData(ctx, eng.CombinedRecordFilter(), mapper, partial)
		}
		var cd *changedata.ChangeData[[]data.Row]
		cd, err = changes.GetChangeData(ctx, cc, g, op.changeDataID(), changedata.RowListSerializer{}, compute, p.dependencies)
		if err != nil {
			return nil, 0, classify(op.ID, err)
		}
		a.notify(Event{Type: EventChangeDataReady, Operation: op.ID, TraceID: cc.TraceID, Data: cd.PartitionCount()})
		out, err = g.JoinRecords(ctx, cd, j, p.newColumnModel)
	} else {
		compute := func(ctx context.Context, narrowed grid.Grid, partial *changedata.ChangeData[data.Row]) (*changedata.ChangeData[data.Row], error) {
			eng, mapper, err := p.rederive(narrowed.ColumnModel())
			if err != nil {
				return nil, err
			}
			return narrowed.MapRowsToChangeData(ctx, eng.CombinedRowFilter(), mapper, partial)
		}
		var cd *changedata.ChangeData[data.Row]
		cd, err = changes.GetChangeData(ctx, cc, g, op.changeDataID(), changedata.RowSerializer{}, compute, p.dependencies)
		if err != nil {
			return nil, 0, classify(op.ID, err)
		}
		a.notify(Event{Type: EventChangeDataReady, Operation: op.ID, TraceID: cc.TraceID, Data: cd.PartitionCount()})
		out, err = g.JoinRows(ctx, cd, j, p.newColumnModel)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("operation %s: %w", op.ID, err)
	}
	return out, grid.PreservationOf(j.PreservesRecordStructure()), nil
}

// classify turns a change data failure into an OperationError
func classify(operation string, err error) error {
	var storeErr *changes.StoreError
	if stderrors.As(err, &storeErr) {
		return errors.NewPersistenceError(operation, err)
	}
	var missing *errors.MissingColumnError
	if stderrors.As(err, &missing) {
		return errors.NewValidationError(operation, err)
	}
	return fmt.Errorf("operation %s: %w", operation, err)
}
