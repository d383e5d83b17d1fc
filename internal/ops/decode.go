package ops

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/leengari/gridops/internal/engine"
	"github.com/leengari/gridops/internal/operation"
)

// hclOperationsFile is the top-level structure of an operations file
type hclOperationsFile struct {
	Operations []*hclOperation `hcl:"operation,block"`
}

// hclOperation holds the union of every operation's arguments. expression
// is a raw HCL expression, not a string: upper(value), not "upper(value)".
type hclOperation struct {
	Kind       string         `hcl:"kind,label"`
	Column     string         `hcl:"column,optional"`
	BaseColumn string         `hcl:"base_column,optional"`
	NewColumn  string         `hcl:"new_column,optional"`
	OldName    string         `hcl:"old_name,optional"`
	NewName    string         `hcl:"new_name,optional"`
	Columns    []string       `hcl:"columns,optional"`
	Expression hcl.Expression `hcl:"expression,optional"`
	OnError    string         `hcl:"on_error,optional"`
	Repeat     int            `hcl:"repeat,optional"`
	Persist    bool           `hcl:"persist,optional"`
	Flagged    *bool          `hcl:"flagged,optional"`
	Starred    *bool          `hcl:"starred,optional"`
	Engine     *engine.Config `hcl:"engine,block"`
}

// Decode reads an operations file
func Decode(path string) ([]*operation.Operation, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read operations file %s: %w", path, err)
	}
	return DecodeBytes(src, path)
}

// DecodeBytes parses operations from HCL source, in declaration order
func DecodeBytes(src []byte, filename string) ([]*operation.Operation, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse operations file %s: %w", filename, diags)
	}

	var parsed hclOperationsFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode operations file %s: %w", filename, diags)
	}

	out := make([]*operation.Operation, 0, len(parsed.Operations))
	for i, block := range parsed.Operations {
		op, err := block.build(file.Bytes)
		if err != nil {
			return nil, fmt.Errorf("operation %d (%s) in %s: %w", i+1, block.Kind, filename, err)
		}
		out = append(out, op)
	}
	return out, nil
}

// expressionSource returns the text of the expression attribute, or "" when
// it is absent
func (b *hclOperation) expressionSource(src []byte) string {
	if b.Expression == nil {
		return ""
	}
	return strings.TrimSpace(string(b.Expression.Range().SliceBytes(src)))
}

func (b *hclOperation) engineConfig() engine.Config {
	if b.Engine == nil {
		return engine.Config{}
	}
	return *b.Engine
}

type builder interface {
	Build() (*operation.Operation, error)
}

func (b *hclOperation) build(src []byte) (*operation.Operation, error) {
	var op builder
	switch b.Kind {
	case ColumnAdditionID:
		op = ColumnAddition{
			Engine:     b.engineConfig(),
			BaseColumn: b.BaseColumn,
			NewColumn:  b.NewColumn,
			Expression: b.expressionSource(src),
			OnError:    OnError(b.OnError),
			Persist:    b.Persist,
		}
	case TextTransformID:
		op = TextTransform{
			Engine:     b.engineConfig(),
			Column:     b.Column,
			Expression: b.expressionSource(src),
			OnError:    OnError(b.OnError),
			Repeat:     b.Repeat,
			Persist:    b.Persist,
		}
	case ColumnRenameID:
		op = ColumnRename{OldName: b.OldName, NewName: b.NewName}
	case ColumnRemovalID:
		op = ColumnRemoval{Columns: b.Columns}
	case RowFlagID:
		op = RowFlag{Engine: b.engineConfig(), Flagged: b.Flagged == nil || *b.Flagged}
	case RowStarID:
		op = RowStar{Engine: b.engineConfig(), Starred: b.Starred == nil || *b.Starred}
	default:
		return nil, fmt.Errorf("unknown operation kind %q", b.Kind)
	}
	return op.Build()
}
