package expression

import (
	"fmt"
	"math/big"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// toCty converts a cell value into a cty value
func toCty(v interface{}) cty.Value {
	switch x := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType)
	case string:
		return cty.StringVal(x)
	case bool:
		return cty.BoolVal(x)
	case int:
		return cty.NumberIntVal(int64(x))
	case int64:
		return cty.NumberIntVal(x)
	case float64:
		return cty.NumberFloatVal(x)
	default:
		return cty.StringVal(fmt.Sprint(x))
	}
}

// fromCty converts an expression result back into a cell value. Numbers
// become int64 when integral, float64 otherwise. Collections are rendered as
// strings.
func fromCty(v cty.Value) (interface{}, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}
	switch v.Type() {
	case cty.String:
		return v.AsString(), nil
	case cty.Bool:
		return v.True(), nil
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return i, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	}
	if v.Type().IsListType() || v.Type().IsTupleType() || v.Type().IsSetType() {
		joined := ""
		i := 0
		for it := v.ElementIterator(); it.Next(); i++ {
			_, elem := it.Element()
			s, err := convert.Convert(elem, cty.String)
			if err != nil {
				return nil, fmt.Errorf("unsupported list element of type %s", elem.Type().FriendlyName())
			}
			if i > 0 {
				joined += ","
			}
			if !s.IsNull() {
				joined += s.AsString()
			}
		}
		return joined, nil
	}
	return nil, fmt.Errorf("unsupported result type %s", v.Type().FriendlyName())
}
