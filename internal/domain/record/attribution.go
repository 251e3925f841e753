package record

import "github.com/okian/sitelog/internal/domain/model"

// Traffic is the resolved traffic source of a visit.
type Traffic struct {
	Source   string
	Medium   string
	Category string
}

// ResolveUTM picks first-touch UTM parameters, falling back to current
// touch as a whole.
func ResolveUTM(a model.Attribution) model.UTMParams {
	switch {
	case a.FirstTouch.UTM != nil:
		return *a.FirstTouch.UTM
	case a.CurrentTouch.UTM != nil:
		return *a.CurrentTouch.UTM
	default:
		return model.UTMParams{}
	}
}

// ResolveTraffic prefers first touch per field: each of source, medium and
// category falls back to current touch on its own.
func ResolveTraffic(a model.Attribution) Traffic {
	return Traffic{
		Source:   firstNonEmpty(a.FirstTouch.Source, a.CurrentTouch.Source),
		Medium:   firstNonEmpty(a.FirstTouch.Medium, a.CurrentTouch.Medium),
		Category: firstNonEmpty(a.FirstTouch.Category, a.CurrentTouch.Category),
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
