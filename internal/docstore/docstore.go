// Package docstore is the contract between the domain services and the
// document database that holds every entity.
//
// The model follows hosted document databases: documents live in collections,
// a document can own subcollections, and a collection is addressed by its full
// slash-separated path ("communities/abc/posts"). Every backend supports point
// reads, queries with simple filters and one ordering field, atomic increments,
// and multi-document transactions. Backends without native transactions
// simulate them with per-document version fields.
package docstore

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned by Get and Update when the document does not exist.
	ErrNotFound = errors.New("docstore: document not found")

	// ErrAlreadyExists is returned by Create when the document exists.
	ErrAlreadyExists = errors.New("docstore: document already exists")

	// ErrContention means a transaction could not commit after all attempts.
	// The caller may retry the whole operation.
	ErrContention = errors.New("docstore: transaction contention")

	// ErrUnavailable wraps transport failures and expired deadlines.
	ErrUnavailable = errors.New("docstore: store unavailable")

	// ErrReadAfterWrite is returned when a transaction reads after it has
	// already staged a write. Firestore forbids this, so every backend does.
	ErrReadAfterWrite = errors.New("docstore: read after write in transaction")
)

// Ref addresses one document.
type Ref struct {
	Collection string
	ID         string
}

// Doc builds a Ref from alternating collection/id segments:
//
//	Doc("communities", cid, "posts", pid) // communities/cid/posts/pid
func Doc(segments ...string) Ref {
	if len(segments) < 2 || len(segments)%2 != 0 {
		panic("docstore: Doc needs an even number of segments")
	}
	last := len(segments) - 1
	return Ref{
		Collection: strings.Join(segments[:last], "/"),
		ID:         segments[last],
	}
}

// Collection joins collection path segments. It needs an odd number of
// segments: Collection("posts", pid, "comments").
func Collection(segments ...string) string {
	if len(segments)%2 != 1 {
		panic("docstore: Collection needs an odd number of segments")
	}
	return strings.Join(segments, "/")
}

// Path is the full document path.
func (r Ref) Path() string {
	return r.Collection + "/" + r.ID
}

// Sub returns the path of a subcollection owned by this document.
func (r Ref) Sub(name string) string {
	return r.Path() + "/" + name
}

func (r Ref) String() string {
	return r.Path()
}

// Fields is the content of a document. Supported value types are string,
// bool, int64, float64, time.Time, []any, []string and map[string]any.
// Backends normalise integers to int64 on read.
type Fields map[string]any

// Snapshot is a document as read from the store.
type Snapshot struct {
	Ref        Ref
	Fields     Fields
	CreateTime time.Time
	UpdateTime time.Time
}

type increment struct {
	n int64
}

// Increment returns a field value that adds n to the stored integer
// atomically. A missing field counts as zero.
func Increment(n int64) any {
	return increment{n: n}
}

// IncrementValue reports whether v was produced by Increment and its delta.
func IncrementValue(v any) (int64, bool) {
	inc, ok := v.(increment)
	return inc.n, ok
}

// Reader is the read half shared by Store and Tx.
type Reader interface {
	Get(ctx context.Context, ref Ref) (*Snapshot, error)
	Query(ctx context.Context, q Query) ([]*Snapshot, error)
}

// Tx is a transaction. All reads must happen before the first write.
// Writes are applied atomically when the transaction function returns nil.
//
// Why reads before writes?
//   - Firestore rejects a read after a write inside a transaction. Holding
//     every backend to the same rule means service code that passes on the
//     memory store also runs on Firestore.
//   - Every decision a transaction makes is then based on a consistent
//     snapshot: the backend can detect a concurrent change to anything read
//     and retry the whole function.
type Tx interface {
	Get(ref Ref) (*Snapshot, error)
	Query(q Query) ([]*Snapshot, error)

	// Create fails with ErrAlreadyExists if the document exists.
	Create(ref Ref, f Fields) error
	// Set replaces the document.
	Set(ref Ref, f Fields) error
	// Merge upserts the listed fields, keeping the others.
	Merge(ref Ref, f Fields) error
	// Update changes the listed fields and fails with ErrNotFound
	// if the document does not exist. Values may be Increment.
	Update(ref Ref, f Fields) error
	// Delete removes the document. Deleting a missing document is a no-op.
	Delete(ref Ref) error
}

// TxFunc is the body of a transaction. It may run more than once.
type TxFunc func(ctx context.Context, tx Tx) error

// Store is a document database.
type Store interface {
	Reader

	// Count returns the number of documents matching q, ignoring q.Limit.
	Count(ctx context.Context, q Query) (int64, error)

	// RunTransaction runs fn and commits its writes atomically, retrying on
	// contention. It returns ErrContention when all attempts are exhausted.
	RunTransaction(ctx context.Context, fn TxFunc) error

	Close() error
}
