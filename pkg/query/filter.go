// Package query implements Sentinel's document query engine: filter
// predicates evaluated against decoded JSON data, a streaming execution
// path for unsorted queries, a collect-then-sort path when a sort order
// is requested, field projection, and streaming aggregations.
package query

import (
	"errors"
	"strings"
)

// ErrUnsupportedOperator is returned by filter-expression parsers (the CLI's
// field<op>value micro-language) when asked for an operator Sentinel
// deliberately doesn't support, such as "!=": there is no NotEquals filter
// type to alias it to, and silently treating it as Equals would silently
// invert the caller's intent.
var ErrUnsupportedOperator = errors.New("query: unsupported filter operator")

// Filter evaluates a predicate against a document's decoded data.
type Filter interface {
	Match(data map[string]any) bool
}

// Equals matches when data[Field] deep-equals Value.
type Equals struct {
	Field string
	Value any
}

func (f Equals) Match(data map[string]any) bool {
	v, ok := data[f.Field]
	if !ok {
		return false
	}
	return deepEqual(v, f.Value)
}

// comparisonOp identifies a numeric ordering comparison.
type comparisonOp int

const (
	opGreaterThan comparisonOp = iota
	opLessThan
	opGreaterOrEqual
	opLessOrEqual
)

// Comparison matches a numeric ordering between data[Field] and Value.
// Non-numeric operands (on either side) make the filter false.
type Comparison struct {
	Field string
	Op    comparisonOp
	Value float64
}

func GreaterThan(field string, v float64) Comparison    { return Comparison{field, opGreaterThan, v} }
func LessThan(field string, v float64) Comparison        { return Comparison{field, opLessThan, v} }
func GreaterOrEqual(field string, v float64) Comparison   { return Comparison{field, opGreaterOrEqual, v} }
func LessOrEqual(field string, v float64) Comparison      { return Comparison{field, opLessOrEqual, v} }

func (f Comparison) Match(data map[string]any) bool {
	raw, ok := data[f.Field]
	if !ok {
		return false
	}
	n, ok := raw.(float64)
	if !ok {
		return false
	}
	switch f.Op {
	case opGreaterThan:
		return n > f.Value
	case opLessThan:
		return n < f.Value
	case opGreaterOrEqual:
		return n >= f.Value
	case opLessOrEqual:
		return n <= f.Value
	default:
		return false
	}
}

// In matches when data[Field] deep-equals any element of Values.
type In struct {
	Field  string
	Values []any
}

func (f In) Match(data map[string]any) bool {
	v, ok := data[f.Field]
	if !ok {
		return false
	}
	for _, candidate := range f.Values {
		if deepEqual(v, candidate) {
			return true
		}
	}
	return false
}

// Contains matches when data[Field] is a string containing Substr, or an
// array containing a string element that contains Substr.
type Contains struct {
	Field  string
	Substr string
}

func (f Contains) Match(data map[string]any) bool {
	v, ok := data[f.Field]
	if !ok {
		return false
	}
	switch t := v.(type) {
	case string:
		return strings.Contains(t, f.Substr)
	case []any:
		for _, elem := range t {
			if s, ok := elem.(string); ok && strings.Contains(s, f.Substr) {
				return true
			}
		}
	}
	return false
}

// StartsWith matches when data[Field] is a string with the given prefix.
type StartsWith struct {
	Field  string
	Prefix string
}

func (f StartsWith) Match(data map[string]any) bool {
	s, ok := data[f.Field].(string)
	return ok && strings.HasPrefix(s, f.Prefix)
}

// EndsWith matches when data[Field] is a string with the given suffix.
type EndsWith struct {
	Field  string
	Suffix string
}

func (f EndsWith) Match(data map[string]any) bool {
	s, ok := data[f.Field].(string)
	return ok && strings.HasSuffix(s, f.Suffix)
}

// Exists matches when the presence of data[Field] equals Want.
type Exists struct {
	Field string
	Want  bool
}

func (f Exists) Match(data map[string]any) bool {
	_, ok := data[f.Field]
	return ok == f.Want
}

// And is a short-circuiting logical conjunction.
type And struct{ A, B Filter }

func (f And) Match(data map[string]any) bool { return f.A.Match(data) && f.B.Match(data) }

// Or is a short-circuiting logical disjunction.
type Or struct{ A, B Filter }

func (f Or) Match(data map[string]any) bool { return f.A.Match(data) || f.B.Match(data) }

func deepEqual(a, b any) bool {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !deepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bval, ok := bv[k]
			if !ok || !deepEqual(v, bval) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
