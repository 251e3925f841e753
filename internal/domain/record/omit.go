package record

import "github.com/shopspring/decimal"

// OmitSingle drops attributes of an individually stored event whose value
// is an empty string or a numeric zero.
func OmitSingle(it Item) Item {
	out := make(Item, len(it))
	for k, v := range it {
		if isEmptyString(v) || isZero(v) {
			continue
		}
		out[k] = v
	}
	return out
}

// OmitBatch drops attributes of a batch record whose value is an empty
// string, list or mapping. Zero numbers and false are kept.
func OmitBatch(it Item) Item {
	out := make(Item, len(it))
	for k, v := range it {
		if isEmptyString(v) || isEmptyCollection(v) {
			continue
		}
		out[k] = v
	}
	return out
}

func isEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && s == ""
}

func isZero(v any) bool {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.IsZero()
	case int:
		return x == 0
	case int64:
		return x == 0
	case float64:
		return x == 0
	}
	return false
}

func isEmptyCollection(v any) bool {
	switch x := v.(type) {
	case []any:
		return len(x) == 0
	case []decimal.Decimal:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	case map[string]decimal.Decimal:
		return len(x) == 0
	}
	return false
}
