package query

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/sentineldb/sentinel/pkg/document"
	"github.com/stretchr/testify/require"
)

type sliceSource struct {
	envs []*document.Envelope
	pos  int
}

func (s *sliceSource) Next() (*document.Envelope, bool, error) {
	if s.pos >= len(s.envs) {
		return nil, false, nil
	}
	e := s.envs[s.pos]
	s.pos++
	return e, true, nil
}

func envOf(id string, data string) *document.Envelope {
	return &document.Envelope{ID: id, Data: json.RawMessage(data)}
}

func TestEqualsFilter(t *testing.T) {
	data := map[string]any{"name": "Ada", "age": float64(30)}
	require.True(t, Equals{Field: "name", Value: "Ada"}.Match(data))
	require.False(t, Equals{Field: "name", Value: "Bob"}.Match(data))
	require.False(t, Equals{Field: "missing", Value: "x"}.Match(data))
}

func TestComparisonFilters(t *testing.T) {
	data := map[string]any{"age": float64(30)}
	require.True(t, GreaterThan("age", 20).Match(data))
	require.False(t, GreaterThan("age", 30).Match(data))
	require.True(t, GreaterOrEqual("age", 30).Match(data))
	require.True(t, LessThan("age", 40).Match(data))
	require.True(t, LessOrEqual("age", 30).Match(data))
	require.False(t, GreaterThan("name", 1).Match(map[string]any{"name": "x"}))
}

func TestInFilter(t *testing.T) {
	data := map[string]any{"status": "active"}
	require.True(t, In{Field: "status", Values: []any{"active", "pending"}}.Match(data))
	require.False(t, In{Field: "status", Values: []any{"closed"}}.Match(data))
}

func TestContainsFilterStringAndArray(t *testing.T) {
	require.True(t, Contains{Field: "bio", Substr: "engineer"}.Match(map[string]any{"bio": "software engineer"}))
	require.True(t, Contains{Field: "tags", Substr: "go"}.Match(map[string]any{"tags": []any{"golang", "rust"}}))
	require.False(t, Contains{Field: "tags", Substr: "java"}.Match(map[string]any{"tags": []any{"golang"}}))
}

func TestStartsEndsWith(t *testing.T) {
	data := map[string]any{"name": "Alice"}
	require.True(t, StartsWith{Field: "name", Prefix: "Al"}.Match(data))
	require.True(t, EndsWith{Field: "name", Suffix: "ce"}.Match(data))
	require.False(t, StartsWith{Field: "name", Prefix: "Bo"}.Match(data))
}

func TestExistsFilter(t *testing.T) {
	data := map[string]any{"name": "Alice"}
	require.True(t, Exists{Field: "name", Want: true}.Match(data))
	require.True(t, Exists{Field: "missing", Want: false}.Match(data))
	require.False(t, Exists{Field: "missing", Want: true}.Match(data))
}

func TestAndOrShortCircuit(t *testing.T) {
	data := map[string]any{"age": float64(30), "name": "Alice"}
	require.True(t, And{Equals{"name", "Alice"}, GreaterThan("age", 10)}.Match(data))
	require.False(t, And{Equals{"name", "Alice"}, GreaterThan("age", 100)}.Match(data))
	require.True(t, Or{Equals{"name", "Bob"}, GreaterThan("age", 10)}.Match(data))
}

func TestValueOrderingTotalOrder(t *testing.T) {
	values := []any{nil, false, true, float64(1), "a", []any{1.0}, map[string]any{"a": 1.0}}
	for i := 0; i < len(values)-1; i++ {
		require.Negative(t, compareValues(values[i], values[i+1]), "index %d", i)
	}
}

func TestNaNComparesEqual(t *testing.T) {
	require.Zero(t, compareValues(math.NaN(), math.NaN()))
}

func TestRunStreamingWithOffsetLimit(t *testing.T) {
	src := &sliceSource{envs: []*document.Envelope{
		envOf("a", `{"n":1}`),
		envOf("b", `{"n":2}`),
		envOf("c", `{"n":3}`),
	}}
	q := Query{Offset: 1, Limit: 1}
	results, err := q.Run(src)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "b", results[0].ID)
}

func TestRunSortedAscendingAndDescending(t *testing.T) {
	envs := []*document.Envelope{
		envOf("a", `{"n":3}`),
		envOf("b", `{"n":1}`),
		envOf("c", `{"n":2}`),
	}
	q := Query{Sort: &Sort{Field: "n", Order: Ascending}}
	results, err := q.Run(&sliceSource{envs: envs})
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c", "a"}, idsOf(results))

	q.Sort.Order = Descending
	results, err = q.Run(&sliceSource{envs: envs})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c", "b"}, idsOf(results))
}

func idsOf(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestProjectionAppliedAfterSort(t *testing.T) {
	envs := []*document.Envelope{
		envOf("a", `{"n":2,"extra":"x"}`),
		envOf("b", `{"n":1,"extra":"y"}`),
	}
	q := Query{Sort: &Sort{Field: "n", Order: Ascending}, Projection: []string{"n"}}
	results, err := q.Run(&sliceSource{envs: envs})
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a"}, idsOf(results))
	require.Contains(t, results[0].Data, "n")
	require.NotContains(t, results[0].Data, "extra")
}

func TestAggregateCountSumAvgMinMax(t *testing.T) {
	envs := []*document.Envelope{
		envOf("a", `{"n":1}`),
		envOf("b", `{"n":2}`),
		envOf("c", `{"n":3}`),
	}
	q := Query{}

	res, err := q.RunAggregate(&sliceSource{envs: envs}, Aggregate{Func: AggCount})
	require.NoError(t, err)
	require.Equal(t, 3, res.Count)

	res, err = q.RunAggregate(&sliceSource{envs: envs}, Aggregate{Func: AggSum, Field: "n"})
	require.NoError(t, err)
	require.InDelta(t, 6, *res.Value, 0.0001)

	res, err = q.RunAggregate(&sliceSource{envs: envs}, Aggregate{Func: AggAvg, Field: "n"})
	require.NoError(t, err)
	require.InDelta(t, 2, *res.Value, 0.0001)

	res, err = q.RunAggregate(&sliceSource{envs: envs}, Aggregate{Func: AggMin, Field: "n"})
	require.NoError(t, err)
	require.InDelta(t, 1, *res.Value, 0.0001)

	res, err = q.RunAggregate(&sliceSource{envs: envs}, Aggregate{Func: AggMax, Field: "n"})
	require.NoError(t, err)
	require.InDelta(t, 3, *res.Value, 0.0001)
}

func TestAggregateOverZeroMatchesReturnsNil(t *testing.T) {
	q := Query{Filters: []Filter{Equals{Field: "n", Value: float64(999)}}}
	res, err := q.RunAggregate(&sliceSource{envs: []*document.Envelope{envOf("a", `{"n":1}`)}}, Aggregate{Func: AggAvg, Field: "n"})
	require.NoError(t, err)
	require.Nil(t, res.Value)

	res, err = q.RunAggregate(&sliceSource{envs: []*document.Envelope{envOf("a", `{"n":1}`)}}, Aggregate{Func: AggSum, Field: "n"})
	require.NoError(t, err)
	require.InDelta(t, 0, *res.Value, 0.0001)
}
