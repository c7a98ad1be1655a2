// Package memory is an in-process docstore.Store. It backs local
// development and every service test.
//
// Transactions are serialized on a single lock and their writes are staged
// until commit, so a transaction function that fails leaves no trace.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lalith-99/potluck/internal/docstore"
)

const defaultMaxAttempts = 5

type document struct {
	fields    docstore.Fields
	version   int64
	createdAt time.Time
	updatedAt time.Time
}

type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]*document
	now         func() time.Time
	maxAttempts int

	// failCommits makes the next n commits abort, to exercise contention
	// handling in tests.
	failCommits int
}

type Option func(*Store)

// WithClock replaces time.Now for document timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMaxAttempts bounds transaction retries.
func WithMaxAttempts(n int) Option {
	return func(s *Store) { s.maxAttempts = n }
}

func New(opts ...Option) *Store {
	s := &Store{
		collections: make(map[string]map[string]*document),
		now:         time.Now,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FailNextCommits makes the next n transaction commits abort as if another
// writer had won the race.
func (s *Store) FailNextCommits(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCommits = n
}

func (s *Store) Get(ctx context.Context, ref docstore.Ref) (*docstore.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", docstore.ErrUnavailable, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(ref)
}

func (s *Store) get(ref docstore.Ref) (*docstore.Snapshot, error) {
	doc, ok := s.collections[ref.Collection][ref.ID]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", ref, docstore.ErrNotFound)
	}
	return snapshot(ref, doc), nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]*docstore.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", docstore.ErrUnavailable, err)
	}
	if err := docstore.ValidateQuery(q); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query(q), nil
}

func (s *Store) query(q docstore.Query) []*docstore.Snapshot {
	coll := s.collections[q.Collection]
	docs := make([]*docstore.Snapshot, 0, len(coll))
	for id, doc := range coll {
		docs = append(docs, snapshot(docstore.Ref{Collection: q.Collection, ID: id}, doc))
	}
	return docstore.Select(docs, q)
}

func (s *Store) Count(ctx context.Context, q docstore.Query) (int64, error) {
	q.Limit = 0
	docs, err := s.Query(ctx, q)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

func (s *Store) RunTransaction(ctx context.Context, fn docstore.TxFunc) error {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", docstore.ErrUnavailable, err)
		}
		committed, err := s.attempt(ctx, fn)
		if err != nil {
			return err
		}
		if committed {
			return nil
		}
	}
	return fmt.Errorf("after %d attempts: %w", s.maxAttempts, docstore.ErrContention)
}

func (s *Store) attempt(ctx context.Context, fn docstore.TxFunc) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{store: s}
	if err := fn(ctx, tx); err != nil {
		return false, err
	}
	if s.failCommits > 0 {
		s.failCommits--
		return false, nil
	}
	tx.commit()
	return true, nil
}

func (s *Store) Close() error {
	return nil
}

func snapshot(ref docstore.Ref, doc *document) *docstore.Snapshot {
	return &docstore.Snapshot{
		Ref:        ref,
		Fields:     docstore.Clone(doc.fields),
		CreateTime: doc.createdAt,
		UpdateTime: doc.updatedAt,
	}
}

type opKind int

const (
	opCreate opKind = iota
	opSet
	opMerge
	opUpdate
	opDelete
)

type write struct {
	kind   opKind
	ref    docstore.Ref
	fields docstore.Fields
}

// transaction runs with the store lock held for writing.
type transaction struct {
	store  *Store
	writes []write
}

func (t *transaction) Get(ref docstore.Ref) (*docstore.Snapshot, error) {
	if len(t.writes) > 0 {
		return nil, docstore.ErrReadAfterWrite
	}
	return t.store.get(ref)
}

func (t *transaction) Query(q docstore.Query) ([]*docstore.Snapshot, error) {
	if len(t.writes) > 0 {
		return nil, docstore.ErrReadAfterWrite
	}
	if err := docstore.ValidateQuery(q); err != nil {
		return nil, err
	}
	return t.store.query(q), nil
}

// exists answers for the state the transaction will produce, so a Create
// after a staged Delete of the same document succeeds.
func (t *transaction) exists(ref docstore.Ref) bool {
	_, ok := t.store.collections[ref.Collection][ref.ID]
	for _, w := range t.writes {
		if w.ref != ref {
			continue
		}
		ok = w.kind != opDelete
	}
	return ok
}

func (t *transaction) Create(ref docstore.Ref, f docstore.Fields) error {
	if err := checkRef(ref); err != nil {
		return err
	}
	if t.exists(ref) {
		return fmt.Errorf("create %s: %w", ref, docstore.ErrAlreadyExists)
	}
	t.writes = append(t.writes, write{kind: opCreate, ref: ref, fields: docstore.Clone(f)})
	return nil
}

func (t *transaction) Set(ref docstore.Ref, f docstore.Fields) error {
	if err := checkRef(ref); err != nil {
		return err
	}
	t.writes = append(t.writes, write{kind: opSet, ref: ref, fields: docstore.Clone(f)})
	return nil
}

func (t *transaction) Merge(ref docstore.Ref, f docstore.Fields) error {
	if err := checkRef(ref); err != nil {
		return err
	}
	t.writes = append(t.writes, write{kind: opMerge, ref: ref, fields: docstore.Clone(f)})
	return nil
}

func (t *transaction) Update(ref docstore.Ref, f docstore.Fields) error {
	if !t.exists(ref) {
		return fmt.Errorf("update %s: %w", ref, docstore.ErrNotFound)
	}
	t.writes = append(t.writes, write{kind: opUpdate, ref: ref, fields: docstore.Clone(f)})
	return nil
}

func (t *transaction) Delete(ref docstore.Ref) error {
	t.writes = append(t.writes, write{kind: opDelete, ref: ref})
	return nil
}

func (t *transaction) commit() {
	s := t.store
	now := s.now().UTC()
	for _, w := range t.writes {
		coll := s.collections[w.ref.Collection]
		if coll == nil {
			coll = make(map[string]*document)
			s.collections[w.ref.Collection] = coll
		}
		cur, exists := coll[w.ref.ID]

		switch w.kind {
		case opDelete:
			delete(coll, w.ref.ID)
			continue
		case opCreate, opSet:
			doc := &document{fields: docstore.ResolveIncrements(w.fields), version: 1, createdAt: now, updatedAt: now}
			if exists {
				doc.version = cur.version + 1
				doc.createdAt = cur.createdAt
			}
			coll[w.ref.ID] = doc
		case opMerge, opUpdate:
			if !exists {
				coll[w.ref.ID] = &document{fields: docstore.ResolveIncrements(w.fields), version: 1, createdAt: now, updatedAt: now}
				continue
			}
			cur.fields = docstore.ApplyUpdate(cur.fields, w.fields)
			cur.version++
			cur.updatedAt = now
		}
	}
}

func checkRef(ref docstore.Ref) error {
	if ref.ID == "" || strings.Contains(ref.ID, "/") {
		return fmt.Errorf("docstore: invalid document id %q", ref.ID)
	}
	if strings.Count(ref.Collection, "/")%2 != 0 {
		return fmt.Errorf("docstore: %q is not a collection path", ref.Collection)
	}
	return nil
}
