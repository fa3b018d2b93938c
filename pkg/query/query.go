package query

import (
	"encoding/json"
	"sort"

	"github.com/sentineldb/sentinel/pkg/document"
	"github.com/sentineldb/sentinel/pkg/metrics"
	"github.com/sentineldb/sentinel/pkg/sentinelerr"
)

// Order is the sort direction.
type Order string

const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

// Sort names the field to sort by and the direction.
type Sort struct {
	Field string
	Order Order
}

// Query is the full query value: filters, optional sort, paging, and an
// optional field projection.
type Query struct {
	Filters    []Filter
	Sort       *Sort
	Limit      int // 0 means unlimited
	Offset     int
	Projection []string
}

// Source supplies documents to a Query. collection.DocumentIterator, which
// Collection.All and Collection.Filter return, implements it.
type Source interface {
	Next() (*document.Envelope, bool, error)
}

// Result is one matching document's decoded data, after projection.
type Result struct {
	ID   string
	Data map[string]any
}

func (q Query) matches(data map[string]any) bool {
	for _, f := range q.Filters {
		if !f.Match(data) {
			return false
		}
	}
	return true
}

func decode(env *document.Envelope) (map[string]any, error) {
	var data map[string]any
	if len(env.Data) == 0 {
		return map[string]any{}, nil
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindJSON, "query.decode", err)
	}
	return data, nil
}

func project(id string, data map[string]any, fields []string) Result {
	if len(fields) == 0 {
		return Result{ID: id, Data: data}
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := data[f]; ok {
			out[f] = v
		}
	}
	return Result{ID: id, Data: out}
}

// Run executes the query against src, honoring VerificationOptions'
// Strict/Warn/Silent behavior for documents that fail verification
// upstream (src is expected to have already applied that policy per
// document; Run only handles the filter/sort/projection stage).
func (q Query) Run(src Source) ([]Result, error) {
	if q.Sort != nil {
		return q.runSorted(src)
	}
	return q.runStreaming(src)
}

// RunNamed is Run instrumented with the query duration/result-count
// metrics, labeled by the collection the query ran against. Callers that
// care about observability (the CLI, a future API layer) should prefer
// this over Run; Run itself stays metrics-free so the engine has no
// collection-name dependency in its core path.
func (q Query) RunNamed(src Source, collection string) ([]Result, error) {
	timer := metrics.NewTimer()
	results, err := q.Run(src)
	timer.ObserveDurationVec(metrics.QueryDuration, collection)
	if err == nil {
		metrics.QueryResultsReturned.Observe(float64(len(results)))
	}
	return results, err
}

func (q Query) runStreaming(src Source) ([]Result, error) {
	var out []Result
	skipped := 0
	taken := 0

	for {
		env, ok, err := src.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		data, err := decode(env)
		if err != nil {
			return nil, err
		}
		if !q.matches(data) {
			continue
		}
		if skipped < q.Offset {
			skipped++
			continue
		}
		if q.Limit > 0 && taken >= q.Limit {
			break
		}
		out = append(out, project(env.ID, data, q.Projection))
		taken++
	}
	return out, nil
}

func (q Query) runSorted(src Source) ([]Result, error) {
	type row struct {
		id   string
		data map[string]any
	}
	var rows []row

	for {
		env, ok, err := src.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		data, err := decode(env)
		if err != nil {
			return nil, err
		}
		if !q.matches(data) {
			continue
		}
		rows = append(rows, row{id: env.ID, data: data})
	}

	field := q.Sort.Field
	desc := q.Sort.Order == Descending
	sort.SliceStable(rows, func(i, j int) bool {
		cmp := compareValues(rows[i].data[field], rows[j].data[field])
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})

	start := q.Offset
	if start > len(rows) {
		start = len(rows)
	}
	end := len(rows)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}

	out := make([]Result, 0, end-start)
	for _, r := range rows[start:end] {
		out = append(out, project(r.id, r.data, q.Projection))
	}
	return out, nil
}
