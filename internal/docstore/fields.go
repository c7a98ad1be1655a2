package docstore

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// String returns a string field or "".
func (s *Snapshot) String(key string) string {
	v, _ := s.Fields[key].(string)
	return v
}

// Int returns an integer field or 0. Floats are truncated.
func (s *Snapshot) Int(key string) int64 {
	switch v := s.Fields[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// Float returns a numeric field as float64 or 0.
func (s *Snapshot) Float(key string) float64 {
	switch v := s.Fields[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// Bool returns a boolean field or false.
func (s *Snapshot) Bool(key string) bool {
	v, _ := s.Fields[key].(bool)
	return v
}

// Time returns a timestamp field or the zero time.
func (s *Snapshot) Time(key string) time.Time {
	v, _ := s.Fields[key].(time.Time)
	return v
}

// Strings returns a string array field. Non-string elements are skipped.
func (s *Snapshot) Strings(key string) []string {
	switch v := s.Fields[key].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return []string{}
}

// Maps returns an array-of-maps field, used for nested records such as
// recipe ingredients.
func (s *Snapshot) Maps(key string) []map[string]any {
	switch v := s.Fields[key].(type) {
	case []map[string]any:
		return v
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, e := range v {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return []map[string]any{}
}

// Has reports whether the field is present.
func (s *Snapshot) Has(key string) bool {
	_, ok := s.Fields[key]
	return ok
}

// Clone deep-copies a Fields value so stored documents never share
// maps or slices with callers.
func Clone(f Fields) Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Clone(Fields(t)))
	case Fields:
		return map[string]any(Clone(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = map[string]any(Clone(Fields(e)))
		}
		return out
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case time.Time:
		return t.UTC()
	}
	return v
}

// ApplyUpdate merges update into current and resolves Increment values.
// Incrementing a missing or non-integer field starts from zero.
func ApplyUpdate(current, update Fields) Fields {
	out := Clone(current)
	if out == nil {
		out = Fields{}
	}
	for k, v := range update {
		if n, ok := IncrementValue(v); ok {
			var base int64
			switch cur := out[k].(type) {
			case int64:
				base = cur
			case float64:
				base = int64(cur)
			}
			out[k] = base + n
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

// ResolveIncrements replaces Increment values with their delta, for Set
// and Create where there is no prior value.
func ResolveIncrements(f Fields) Fields {
	return ApplyUpdate(nil, f)
}

// Compare orders two field values of the same kind. ok is false when the
// values are not comparable.
func Compare(a, b any) (c int, ok bool) {
	a, b = cloneValue(a), cloneValue(b)
	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return cmpOrdered(x, y), true
		case float64:
			return cmpOrdered(float64(x), y), true
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return cmpOrdered(x, y), true
		case int64:
			return cmpOrdered(x, float64(y)), true
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, true
			case !x:
				return -1, true
			default:
				return 1, true
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), true
		}
	}
	return 0, false
}

func cmpOrdered[T int64 | float64](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

// Matches reports whether a document satisfies every filter in q.
func Matches(f Fields, filters []Filter) bool {
	for _, flt := range filters {
		v, ok := f[flt.Field]
		if !ok {
			return false
		}
		c, ok := Compare(v, flt.Value)
		if !ok {
			return false
		}
		switch flt.Op {
		case OpEq:
			ok = c == 0
		case OpLt:
			ok = c < 0
		case OpLte:
			ok = c <= 0
		case OpGt:
			ok = c > 0
		case OpGte:
			ok = c >= 0
		default:
			ok = false
		}
		if !ok {
			return false
		}
	}
	return true
}

// Select applies filters, ordering and limit of q to docs in memory.
// Ties on the ordering field are broken by document id.
func Select(docs []*Snapshot, q Query) []*Snapshot {
	out := make([]*Snapshot, 0, len(docs))
	for _, d := range docs {
		if !Matches(d.Fields, q.Filters) {
			continue
		}
		if q.OrderBy != "" {
			if _, ok := d.Fields[q.OrderBy]; !ok {
				continue
			}
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if q.OrderBy != "" {
			c, _ := Compare(out[i].Fields[q.OrderBy], out[j].Fields[q.OrderBy])
			if c != 0 {
				if q.Direction == Desc {
					return c > 0
				}
				return c < 0
			}
		}
		return out[i].Ref.ID < out[j].Ref.ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// ValidateQuery rejects queries the hosted backends cannot serve.
func ValidateQuery(q Query) error {
	if q.Collection == "" {
		return fmt.Errorf("docstore: query without collection")
	}
	if strings.Count(q.Collection, "/")%2 != 0 {
		return fmt.Errorf("docstore: %q is not a collection path", q.Collection)
	}
	for _, f := range q.Filters {
		if f.Op != OpEq && q.OrderBy != "" && f.Field != q.OrderBy {
			return fmt.Errorf("docstore: range filter on %q must match order field %q", f.Field, q.OrderBy)
		}
	}
	return nil
}
