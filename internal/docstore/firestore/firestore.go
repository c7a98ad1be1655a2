// Package firestore adapts Cloud Firestore to docstore.Store. It is the
// production backend: Firestore provides native transactions, atomic
// increments and aggregation counts.
package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/lalith-99/potluck/internal/docstore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const maxAttempts = 5

type Store struct {
	client *firestore.Client
}

// New connects using Application Default Credentials, or the emulator when
// FIRESTORE_EMULATOR_HOST is set.
func New(ctx context.Context, projectID string) (*Store, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) doc(ref docstore.Ref) *firestore.DocumentRef {
	return s.client.Collection(ref.Collection).Doc(ref.ID)
}

func (s *Store) Get(ctx context.Context, ref docstore.Ref) (*docstore.Snapshot, error) {
	snap, err := s.doc(ref).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", ref, mapErr(err))
	}
	return fromSnapshot(ref.Collection, snap), nil
}

func (s *Store) build(q docstore.Query) (firestore.Query, error) {
	if err := docstore.ValidateQuery(q); err != nil {
		return firestore.Query{}, err
	}
	fq := s.client.Collection(q.Collection).Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, string(f.Op), f.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Direction == docstore.Desc {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}
	return fq, nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]*docstore.Snapshot, error) {
	fq, err := s.build(q)
	if err != nil {
		return nil, err
	}
	snaps, err := fq.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, mapErr(err))
	}
	return fromSnapshots(q.Collection, snaps), nil
}

func (s *Store) Count(ctx context.Context, q docstore.Query) (int64, error) {
	q.Limit = 0
	fq, err := s.build(q)
	if err != nil {
		return 0, err
	}
	res, err := fq.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", q.Collection, mapErr(err))
	}
	v, ok := res["all"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("count %s: unexpected aggregation result %T", q.Collection, res["all"])
	}
	return v.GetIntegerValue(), nil
}

func (s *Store) RunTransaction(ctx context.Context, fn docstore.TxFunc) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, ftx *firestore.Transaction) error {
		return fn(ctx, &transaction{store: s, tx: ftx})
	}, firestore.MaxAttempts(maxAttempts))
	if err != nil {
		return mapErr(err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

type transaction struct {
	store  *Store
	tx     *firestore.Transaction
	writes int
}

func (t *transaction) Get(ref docstore.Ref) (*docstore.Snapshot, error) {
	if t.writes > 0 {
		return nil, docstore.ErrReadAfterWrite
	}
	snap, err := t.tx.Get(t.store.doc(ref))
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", ref, mapErr(err))
	}
	return fromSnapshot(ref.Collection, snap), nil
}

func (t *transaction) Query(q docstore.Query) ([]*docstore.Snapshot, error) {
	if t.writes > 0 {
		return nil, docstore.ErrReadAfterWrite
	}
	fq, err := t.store.build(q)
	if err != nil {
		return nil, err
	}
	snaps, err := t.tx.Documents(fq).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, mapErr(err))
	}
	return fromSnapshots(q.Collection, snaps), nil
}

func (t *transaction) Create(ref docstore.Ref, f docstore.Fields) error {
	t.writes++
	return t.tx.Create(t.store.doc(ref), toFirestore(docstore.ResolveIncrements(f)))
}

func (t *transaction) Set(ref docstore.Ref, f docstore.Fields) error {
	t.writes++
	return t.tx.Set(t.store.doc(ref), toFirestore(docstore.ResolveIncrements(f)))
}

func (t *transaction) Merge(ref docstore.Ref, f docstore.Fields) error {
	t.writes++
	return t.tx.Set(t.store.doc(ref), toFirestore(f), firestore.MergeAll)
}

func (t *transaction) Update(ref docstore.Ref, f docstore.Fields) error {
	t.writes++
	updates := make([]firestore.Update, 0, len(f))
	for k, v := range f {
		updates = append(updates, firestore.Update{Path: k, Value: toFirestoreValue(v)})
	}
	return t.tx.Update(t.store.doc(ref), updates)
}

func (t *transaction) Delete(ref docstore.Ref) error {
	t.writes++
	return t.tx.Delete(t.store.doc(ref))
}

func toFirestore(f docstore.Fields) map[string]any {
	out := make(map[string]any, len(f))
	for k, v := range f {
		out[k] = toFirestoreValue(v)
	}
	return out
}

func toFirestoreValue(v any) any {
	if n, ok := docstore.IncrementValue(v); ok {
		return firestore.Increment(n)
	}
	return v
}

func fromSnapshot(collection string, snap *firestore.DocumentSnapshot) *docstore.Snapshot {
	return &docstore.Snapshot{
		Ref:        docstore.Ref{Collection: collection, ID: snap.Ref.ID},
		Fields:     docstore.Clone(snap.Data()),
		CreateTime: snap.CreateTime,
		UpdateTime: snap.UpdateTime,
	}
}

func fromSnapshots(collection string, snaps []*firestore.DocumentSnapshot) []*docstore.Snapshot {
	out := make([]*docstore.Snapshot, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, fromSnapshot(collection, snap))
	}
	return out
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, docstore.ErrReadAfterWrite) || errors.Is(err, docstore.ErrNotFound) ||
		errors.Is(err, docstore.ErrAlreadyExists) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", docstore.ErrUnavailable, err)
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %v", docstore.ErrNotFound, err)
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %v", docstore.ErrAlreadyExists, err)
	case codes.Aborted:
		return fmt.Errorf("%w: %v", docstore.ErrContention, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return fmt.Errorf("%w: %v", docstore.ErrUnavailable, err)
	}
	return err
}
