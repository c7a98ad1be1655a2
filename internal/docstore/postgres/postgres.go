// Package postgres stores documents in a single Postgres table and
// implements docstore transactions with SERIALIZABLE isolation.
//
// Each row carries a version that every write bumps, so concurrent writers
// that read the same document conflict and one of them retries.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/potluck/internal/docstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT        NOT NULL,
	id         TEXT        NOT NULL,
	fields     JSONB       NOT NULL,
	version    BIGINT      NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_documents_fields ON documents USING GIN (fields jsonb_path_ops);`

const defaultMaxAttempts = 10

type Store struct {
	pool        *pgxpool.Pool
	maxAttempts int
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, maxAttempts: defaultMaxAttempts}
}

// Migrate creates the documents table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate documents: %w", mapErr(err))
	}
	return nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *Store) Get(ctx context.Context, ref docstore.Ref) (*docstore.Snapshot, error) {
	return get(ctx, s.pool, ref, false)
}

func get(ctx context.Context, q querier, ref docstore.Ref, forUpdate bool) (*docstore.Snapshot, error) {
	query := `
		SELECT fields, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var (
		raw       []byte
		createdAt time.Time
		updatedAt time.Time
	)
	err := q.QueryRow(ctx, query, ref.Collection, ref.ID).Scan(&raw, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get %s: %w", ref, docstore.ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", ref, mapErr(err))
	}
	fields, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ref, err)
	}
	return &docstore.Snapshot{Ref: ref, Fields: fields, CreateTime: createdAt, UpdateTime: updatedAt}, nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]*docstore.Snapshot, error) {
	return query(ctx, s.pool, q)
}

// buildWhere renders the collection and filter predicates. Field names and
// values are always bound as parameters.
func buildWhere(q docstore.Query) (string, []any, error) {
	var (
		sb   strings.Builder
		args = []any{q.Collection}
	)
	sb.WriteString("collection = $1")
	for _, f := range q.Filters {
		op, ok := sqlOps[f.Op]
		if !ok {
			return "", nil, fmt.Errorf("unsupported operator %q", f.Op)
		}
		// jsonb compares strings under the database collation. Range
		// filters on strings compare bytes instead so prefix ranges behave
		// the same on every backend.
		if str, isString := f.Value.(string); isString && f.Op != docstore.OpEq {
			args = append(args, f.Field, str)
			fmt.Fprintf(&sb, " AND jsonb_typeof(fields -> $%[1]d::text) = 'string' AND (fields ->> $%[1]d::text) COLLATE \"C\" %[2]s $%[3]d::text",
				len(args)-1, op, len(args))
			continue
		}
		val, err := encodeValue(f.Value)
		if err != nil {
			return "", nil, err
		}
		args = append(args, f.Field, val)
		fmt.Fprintf(&sb, " AND fields -> $%d::text %s $%d::jsonb", len(args)-1, op, len(args))
	}
	if q.OrderBy != "" {
		args = append(args, q.OrderBy)
		fmt.Fprintf(&sb, " AND fields ? $%d::text", len(args))
	}
	return sb.String(), args, nil
}

// orderBy sorts string values bytewise, matching the range filters above.
// For other types the first key is NULL throughout and jsonb order decides.
func orderBy(arg int, dir string) string {
	return fmt.Sprintf(" ORDER BY (CASE WHEN jsonb_typeof(fields -> $%[1]d::text) = 'string' THEN (fields ->> $%[1]d::text) COLLATE \"C\" END) %[2]s, fields -> $%[1]d::text %[2]s, id ASC",
		arg, dir)
}

var sqlOps = map[docstore.Op]string{
	docstore.OpEq:  "=",
	docstore.OpLt:  "<",
	docstore.OpLte: "<=",
	docstore.OpGt:  ">",
	docstore.OpGte: ">=",
}

func query(ctx context.Context, db querier, q docstore.Query) ([]*docstore.Snapshot, error) {
	if err := docstore.ValidateQuery(q); err != nil {
		return nil, err
	}
	where, args, err := buildWhere(q)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	sql := "SELECT id, fields, created_at, updated_at FROM documents WHERE " + where
	if q.OrderBy != "" {
		dir := "ASC"
		if q.Direction == docstore.Desc {
			dir = "DESC"
		}
		args = append(args, q.OrderBy)
		sql += orderBy(len(args), dir)
	} else {
		sql += " ORDER BY id ASC"
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, mapErr(err))
	}
	defer rows.Close()

	docs := make([]*docstore.Snapshot, 0)
	for rows.Next() {
		var (
			id        string
			raw       []byte
			createdAt time.Time
			updatedAt time.Time
		)
		if err := rows.Scan(&id, &raw, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		fields, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", q.Collection, id, err)
		}
		docs = append(docs, &docstore.Snapshot{
			Ref:        docstore.Ref{Collection: q.Collection, ID: id},
			Fields:     fields,
			CreateTime: createdAt,
			UpdateTime: updatedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", mapErr(err))
	}
	return docs, nil
}

func (s *Store) Count(ctx context.Context, q docstore.Query) (int64, error) {
	if err := docstore.ValidateQuery(q); err != nil {
		return 0, err
	}
	where, args, err := buildWhere(q)
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM documents WHERE "+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.Collection, mapErr(err))
	}
	return n, nil
}

func (s *Store) RunTransaction(ctx context.Context, fn docstore.TxFunc) error {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(ptx pgx.Tx) error {
			tx := &transaction{ctx: ctx, tx: ptx}
			if err := fn(ctx, tx); err != nil {
				return err
			}
			return tx.flush()
		})
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return mapErr(err)
		}
		// Back off a little more on each conflict.
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", docstore.ErrUnavailable, ctx.Err())
		case <-time.After(time.Duration(attempt+1) * 5 * time.Millisecond):
		}
	}
	return fmt.Errorf("after %d attempts: %w", s.maxAttempts, docstore.ErrContention)
}

// Close is a no-op: the pool belongs to internal/db.
func (s *Store) Close() error {
	return nil
}

type writeKind int

const (
	writeCreate writeKind = iota
	writeSet
	writeMerge
	writeUpdate
	writeDelete
)

type stagedWrite struct {
	kind   writeKind
	ref    docstore.Ref
	fields docstore.Fields
}

type transaction struct {
	ctx    context.Context
	tx     pgx.Tx
	writes []stagedWrite
}

func (t *transaction) Get(ref docstore.Ref) (*docstore.Snapshot, error) {
	if len(t.writes) > 0 {
		return nil, docstore.ErrReadAfterWrite
	}
	return get(t.ctx, t.tx, ref, false)
}

func (t *transaction) Query(q docstore.Query) ([]*docstore.Snapshot, error) {
	if len(t.writes) > 0 {
		return nil, docstore.ErrReadAfterWrite
	}
	return query(t.ctx, t.tx, q)
}

func (t *transaction) stage(kind writeKind, ref docstore.Ref, f docstore.Fields) error {
	if ref.ID == "" || strings.Contains(ref.ID, "/") {
		return fmt.Errorf("docstore: invalid document id %q", ref.ID)
	}
	t.writes = append(t.writes, stagedWrite{kind: kind, ref: ref, fields: docstore.Clone(f)})
	return nil
}

func (t *transaction) Create(ref docstore.Ref, f docstore.Fields) error {
	return t.stage(writeCreate, ref, f)
}

func (t *transaction) Set(ref docstore.Ref, f docstore.Fields) error {
	return t.stage(writeSet, ref, f)
}

func (t *transaction) Merge(ref docstore.Ref, f docstore.Fields) error {
	return t.stage(writeMerge, ref, f)
}

func (t *transaction) Update(ref docstore.Ref, f docstore.Fields) error {
	return t.stage(writeUpdate, ref, f)
}

func (t *transaction) Delete(ref docstore.Ref) error {
	return t.stage(writeDelete, ref, nil)
}

func (t *transaction) flush() error {
	for _, w := range t.writes {
		if err := t.apply(w); err != nil {
			return err
		}
	}
	return nil
}

func (t *transaction) apply(w stagedWrite) error {
	ctx := t.ctx
	switch w.kind {
	case writeDelete:
		if _, err := t.tx.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, w.ref.Collection, w.ref.ID); err != nil {
			return fmt.Errorf("delete %s: %w", w.ref, err)
		}
		return nil

	case writeCreate:
		raw, err := encode(docstore.ResolveIncrements(w.fields))
		if err != nil {
			return err
		}
		tag, err := t.tx.Exec(ctx, `
			INSERT INTO documents (collection, id, fields)
			VALUES ($1, $2, $3::jsonb)
			ON CONFLICT (collection, id) DO NOTHING`,
			w.ref.Collection, w.ref.ID, raw)
		if err != nil {
			return fmt.Errorf("create %s: %w", w.ref, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("create %s: %w", w.ref, docstore.ErrAlreadyExists)
		}
		return nil

	case writeSet:
		raw, err := encode(docstore.ResolveIncrements(w.fields))
		if err != nil {
			return err
		}
		return t.upsert(w.ref, raw)
	}

	// Merge and Update resolve increments against the locked current row.
	cur, err := get(ctx, t.tx, w.ref, true)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		if w.kind == writeUpdate {
			return fmt.Errorf("update %s: %w", w.ref, docstore.ErrNotFound)
		}
		cur = &docstore.Snapshot{Fields: docstore.Fields{}}
	case err != nil:
		return err
	}
	raw, err := encode(docstore.ApplyUpdate(cur.Fields, w.fields))
	if err != nil {
		return err
	}
	return t.upsert(w.ref, raw)
}

func (t *transaction) upsert(ref docstore.Ref, raw string) error {
	_, err := t.tx.Exec(t.ctx, `
		INSERT INTO documents (collection, id, fields)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE
		SET fields = EXCLUDED.fields,
		    version = documents.version + 1,
		    updated_at = now()`,
		ref.Collection, ref.ID, raw)
	if err != nil {
		return fmt.Errorf("write %s: %w", ref, err)
	}
	return nil
}

// retryable reports serialization failures and deadlocks.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, docstore.ErrNotFound) || errors.Is(err, docstore.ErrAlreadyExists) ||
		errors.Is(err, docstore.ErrReadAfterWrite) || errors.Is(err, docstore.ErrUnavailable) {
		return err
	}
	var connErr *pgconn.ConnectError
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		pgconn.Timeout(err) || errors.As(err, &connErr) {
		return fmt.Errorf("%w: %v", docstore.ErrUnavailable, err)
	}
	return err
}
