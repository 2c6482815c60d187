package store

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"time"
)

// Op is a filter operator.
type Op string

const (
	OpEqual         Op = "=="
	OpArrayContains Op = "array-contains"
)

// Direction is a sort direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Filter restricts a query to documents whose field satisfies Op against Value.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query selects documents of one collection. Documents that lack the OrderBy
// field are excluded when ordering is requested.
type Query struct {
	Collection string
	ID         string
	Filters    []Filter
	OrderBy    string
	Direction  Direction
	Limit      int
}

// Collection starts a query over the named collection.
func Collection(name string) Query {
	return Query{Collection: name}
}

// Doc narrows the query to a single document id.
func (q Query) Doc(id string) Query {
	q.ID = id
	return q
}

// Where adds a filter.
func (q Query) Where(field string, op Op, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: op, Value: normalize(value)})
	return q
}

// Order sets the sort field and direction.
func (q Query) Order(field string, dir Direction) Query {
	q.OrderBy = field
	q.Direction = dir
	return q
}

// Take limits the number of returned documents.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

func (q Query) apply(docs []Document) []Document {
	out := docs[:0]
	for _, d := range docs {
		if q.matches(d) {
			out = append(out, d)
		}
	}

	if q.OrderBy != "" {
		ordered := out[:0]
		for _, d := range out {
			if _, ok := d.Data[q.OrderBy]; ok {
				ordered = append(ordered, d)
			}
		}
		out = ordered
		sort.SliceStable(out, func(i, j int) bool {
			c := compareValues(out[i].Data[q.OrderBy], out[j].Data[q.OrderBy])
			if c == 0 {
				c = strings.Compare(out[i].ID, out[j].ID)
			}
			if q.Direction == Desc {
				return c > 0
			}
			return c < 0
		})
	}

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func (q Query) matches(d Document) bool {
	for _, f := range q.Filters {
		v, ok := d.Data[f.Field]
		if !ok {
			return false
		}
		switch f.Op {
		case OpEqual:
			if !reflect.DeepEqual(v, f.Value) {
				return false
			}
		case OpArrayContains:
			arr, ok := v.([]any)
			if !ok {
				return false
			}
			found := false
			for _, el := range arr {
				if reflect.DeepEqual(el, f.Value) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// normalize gives a filter value the same shape a decoded document field has.
func normalize(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case string:
		if bv, ok := b.(string); ok {
			ta, errA := time.Parse(time.RFC3339Nano, av)
			tb, errB := time.Parse(time.RFC3339Nano, bv)
			if errA == nil && errB == nil {
				return ta.Compare(tb)
			}
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			}
			return 1
		}
	}
	return 0
}
