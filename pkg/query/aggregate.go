package query

// AggregateFunc identifies an aggregation over a filtered document stream.
type AggregateFunc string

const (
	AggCount AggregateFunc = "count"
	AggSum   AggregateFunc = "sum"
	AggAvg   AggregateFunc = "avg"
	AggMin   AggregateFunc = "min"
	AggMax   AggregateFunc = "max"
)

// Aggregate names the aggregation to run and, for Sum/Avg/Min/Max, the
// field it reads from each matching document.
type Aggregate struct {
	Func  AggregateFunc
	Field string
}

// AggregateResult is the JSON-compatible aggregation outcome: a count, or
// a nullable float for the numeric aggregations.
type AggregateResult struct {
	Count int
	Value *float64
}

// RunAggregate streams src through the query's filters and folds every
// matching document into a single aggregate, per spec: Count always
// returns an integer; Sum defaults to 0 over zero matches; Avg/Min/Max
// return a nil Value over zero numeric matches.
func (q Query) RunAggregate(src Source, agg Aggregate) (AggregateResult, error) {
	count := 0
	sum := 0.0
	numeric := 0
	var min, max float64
	haveMinMax := false

	for {
		env, ok, err := src.Next()
		if err != nil {
			return AggregateResult{}, err
		}
		if !ok {
			break
		}
		data, err := decode(env)
		if err != nil {
			return AggregateResult{}, err
		}
		if !q.matches(data) {
			continue
		}
		count++

		if agg.Func == AggCount {
			continue
		}

		raw, ok := data[agg.Field]
		if !ok {
			continue
		}
		n, ok := raw.(float64)
		if !ok {
			continue
		}
		sum += n
		numeric++
		if !haveMinMax || n < min {
			min = n
		}
		if !haveMinMax || n > max {
			max = n
		}
		haveMinMax = true
	}

	switch agg.Func {
	case AggCount:
		return AggregateResult{Count: count}, nil
	case AggSum:
		v := sum
		return AggregateResult{Count: count, Value: &v}, nil
	case AggAvg:
		if numeric == 0 {
			return AggregateResult{Count: count}, nil
		}
		v := sum / float64(numeric)
		return AggregateResult{Count: count, Value: &v}, nil
	case AggMin:
		if !haveMinMax {
			return AggregateResult{Count: count}, nil
		}
		v := min
		return AggregateResult{Count: count, Value: &v}, nil
	case AggMax:
		if !haveMinMax {
			return AggregateResult{Count: count}, nil
		}
		v := max
		return AggregateResult{Count: count, Value: &v}, nil
	default:
		return AggregateResult{Count: count}, nil
	}
}
