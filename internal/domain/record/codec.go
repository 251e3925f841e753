package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Encode serializes an item losslessly: decimals are written as bare JSON
// numbers with their exact digits.
func Encode(it Item) ([]byte, error) {
	b, err := json.Marshal(numbers(map[string]any(it)))
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return b, nil
}

// Decode is the inverse of Encode.
func Decode(b []byte) (Item, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return Item(Decimalize(m).(map[string]any)), nil
}

// MarshalLine renders an item as one compact JSON line, without the
// trailing newline. Decimals become floats written in shortest round-trip
// form that always carries a fraction or exponent (5.0, 0.12, 1e+16).
// HTML characters are not escaped so URLs stay readable.
func MarshalLine(it Item) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(floatLiterals(Plain(map[string]any(it)))); err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func numbers(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return json.Number(x.String())
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = numbers(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = numbers(e)
		}
		return out
	default:
		return v
	}
}

// floatLiteral is a float64 that always marshals as a float.
type floatLiteral float64

func (f floatLiteral) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("unsupported float: %v", v)
	}
	if a := math.Abs(v); a != 0 && (a < 1e-4 || a >= 1e16) {
		return []byte(strconv.FormatFloat(v, 'e', -1, 64)), nil
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return []byte(s), nil
}

func floatLiterals(v any) any {
	switch x := v.(type) {
	case float64:
		return floatLiteral(x)
	case map[string]any:
		for k, e := range x {
			x[k] = floatLiterals(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = floatLiterals(e)
		}
		return x
	default:
		return v
	}
}
