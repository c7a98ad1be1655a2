package docstore

// Op is a filter comparison operator.
type Op string

const (
	OpEq  Op = "=="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

// Direction orders query results.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Filter restricts a query to documents whose field compares to Value.
// Documents without the field never match.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query selects documents from one collection. Range filters and the
// ordering field should be the same field, as Firestore requires.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Direction  Direction
	Limit      int
}

// From starts a query over a collection path.
func From(collection string) Query {
	return Query{Collection: collection}
}

// Where returns a copy of q with an extra filter.
func (q Query) Where(field string, op Op, value any) Query {
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, Filter{Field: field, Op: op, Value: value})
	return q
}

// Order returns a copy of q ordered by field. Documents missing the
// field are excluded from the result.
func (q Query) Order(field string, dir Direction) Query {
	q.OrderBy = field
	q.Direction = dir
	return q
}

// Take returns a copy of q limited to n results. Zero means no limit.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}
