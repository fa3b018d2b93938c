package query

// typeRank gives the total order over JSON value kinds:
// Null < Bool < Number < String < Array(by length) < Object(by size).
func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	case []any:
		return 4
	case map[string]any:
		return 5
	default:
		return 6
	}
}

// compareValues implements Sentinel's total order over decoded JSON
// values: first by type rank, then by natural order within a type.
// NaN numbers compare equal to each other (they have no natural order).
func compareValues(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return ra - rb
	}

	switch av := a.(type) {
	case nil:
		return 0
	case bool:
		bv := b.(bool)
		if av == bv {
			return 0
		}
		if !av {
			return -1
		}
		return 1
	case float64:
		bv := b.(float64)
		if av != av || bv != bv { // either is NaN
			if av != av && bv != bv {
				return 0
			}
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case string:
		bv := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case []any:
		bv := b.([]any)
		return len(av) - len(bv)
	case map[string]any:
		bv := b.(map[string]any)
		return len(av) - len(bv)
	default:
		return 0
	}
}
