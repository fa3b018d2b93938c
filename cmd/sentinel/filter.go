package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sentineldb/sentinel/pkg/query"
)

// parseFilterExpr parses one CLI --filter argument into a query.Filter.
// The micro-language: field=value, field>value, field<value, field>=v,
// field<=v, field~substr (contains), field^prefix, field$suffix,
// "field in:v1,v2", "field exists:true|false". Values are parsed as JSON
// first, falling back to a raw string on failure.
func parseFilterExpr(expr string) (query.Filter, error) {
	if idx := strings.Index(expr, " in:"); idx >= 0 {
		field := strings.TrimSpace(expr[:idx])
		parts := strings.Split(expr[idx+len(" in:"):], ",")
		values := make([]any, len(parts))
		for i, p := range parts {
			values[i] = parseFilterValue(p)
		}
		return query.In{Field: field, Values: values}, nil
	}

	if idx := strings.Index(expr, " exists:"); idx >= 0 {
		field := strings.TrimSpace(expr[:idx])
		want, err := strconv.ParseBool(expr[idx+len(" exists:"):])
		if err != nil {
			return nil, fmt.Errorf("invalid exists value in %q: %w", expr, err)
		}
		return query.Exists{Field: field, Want: want}, nil
	}

	// "!=" has no filter to alias to; reject rather than silently
	// treating it as equals.
	if strings.Contains(expr, "!=") {
		return nil, query.ErrUnsupportedOperator
	}

	// Longer operators must be checked before their single-character
	// prefixes ("=" is a substring of ">=").
	for _, op := range []string{">=", "<=", "=", ">", "<", "~", "^", "$"} {
		idx := strings.Index(expr, op)
		if idx < 0 {
			continue
		}
		field := expr[:idx]
		value := expr[idx+len(op):]
		return buildComparisonFilter(field, op, value)
	}

	return nil, fmt.Errorf("unrecognized filter expression %q", expr)
}

func buildComparisonFilter(field, op, value string) (query.Filter, error) {
	switch op {
	case "=":
		return query.Equals{Field: field, Value: parseFilterValue(value)}, nil
	case "~":
		return query.Contains{Field: field, Substr: value}, nil
	case "^":
		return query.StartsWith{Field: field, Prefix: value}, nil
	case "$":
		return query.EndsWith{Field: field, Suffix: value}, nil
	}

	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("filter %q%s%q: value must be numeric", field, op, value)
	}
	switch op {
	case ">":
		return query.GreaterThan(field, n), nil
	case "<":
		return query.LessThan(field, n), nil
	case ">=":
		return query.GreaterOrEqual(field, n), nil
	case "<=":
		return query.LessOrEqual(field, n), nil
	default:
		return nil, fmt.Errorf("unsupported filter operator %q", op)
	}
}

func parseFilterValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}
