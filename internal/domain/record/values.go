package record

import (
	"encoding/json"

	"github.com/okian/sitelog/internal/domain/model"
	"github.com/shopspring/decimal"
)

// Decimalize converts every number in v, recursively through maps and
// slices, to an exact decimal. Other values are returned as-is.
func Decimalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = Decimalize(e)
		}
		return out
	case Item:
		return Item(Decimalize(map[string]any(x)).(map[string]any))
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Decimalize(e)
		}
		return out
	case []decimal.Decimal:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out
	case map[string]decimal.Decimal:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = e
		}
		return out
	case bool, string, nil, decimal.Decimal:
		return x
	}
	if d, ok := model.Number(v); ok {
		return d
	}
	return v
}

// Plain converts exact decimals back to float64, recursively, for JSON
// serialization.
func Plain(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.InexactFloat64()
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = Plain(e)
		}
		return out
	case Item:
		return Plain(map[string]any(x))
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Plain(e)
		}
		return out
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x.String()
		}
		return f
	default:
		return v
	}
}
