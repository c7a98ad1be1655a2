package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/potluck/internal/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTripsTimesAndIntegers(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 123456000, time.UTC)
	raw, err := encode(docstore.Fields{
		"createdAt": at,
		"count":     int64(9007199254740993),
		"ratio":     0.5,
		"tags":      []any{"a", "b"},
		"nested":    map[string]any{"at": at},
	})
	require.NoError(t, err)

	got, err := decode([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, at, got["createdAt"])
	assert.Equal(t, int64(9007199254740993), got["count"])
	assert.Equal(t, 0.5, got["ratio"])
	assert.Equal(t, []any{"a", "b"}, got["tags"])
	assert.Equal(t, map[string]any{"at": at}, got["nested"])
}

func TestBuildWhereBindsFieldsAsParameters(t *testing.T) {
	where, args, err := buildWhere(docstore.From("posts").
		Where("communityId", docstore.OpEq, "c1").
		Order("createdAt", docstore.Desc))
	require.NoError(t, err)
	assert.Equal(t, "collection = $1 AND fields -> $2::text = $3::jsonb AND fields ? $4::text", where)
	assert.Equal(t, []any{"posts", "communityId", `"c1"`, "createdAt"}, args)
}

func TestBuildWhereComparesStringRangesBytewise(t *testing.T) {
	where, args, err := buildWhere(docstore.From("communities").
		Where("nameLower", docstore.OpGte, "a-").
		Where("nameLower", docstore.OpLt, "a-\uf8ff").
		Order("nameLower", docstore.Asc))
	require.NoError(t, err)
	assert.Equal(t, "collection = $1"+
		" AND jsonb_typeof(fields -> $2::text) = 'string' AND (fields ->> $2::text) COLLATE \"C\" >= $3::text"+
		" AND jsonb_typeof(fields -> $4::text) = 'string' AND (fields ->> $4::text) COLLATE \"C\" < $5::text"+
		" AND fields ? $6::text", where)
	assert.Equal(t, []any{"communities", "nameLower", "a-", "nameLower", "a-\uf8ff", "nameLower"}, args)

	// Non-string ranges keep the jsonb comparison.
	where, _, err = buildWhere(docstore.From("posts").Where("likeCount", docstore.OpGt, int64(3)))
	require.NoError(t, err)
	assert.Equal(t, "collection = $1 AND fields -> $2::text > $3::jsonb", where)
}

func testStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := New(pool)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestPostgresTransactionsAndQueries(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	coll := "test_" + uuid.NewString()[:8]
	ref := docstore.Doc(coll, "counter")

	require.NoError(t, s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return tx.Create(ref, docstore.Fields{"n": 0, "createdAt": time.Now()})
	}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
				return tx.Update(ref, docstore.Fields{"n": docstore.Increment(1)})
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := s.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, int64(20), snap.Int("n"))

	err = s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return tx.Create(ref, docstore.Fields{"n": 1})
	})
	assert.ErrorIs(t, err, docstore.ErrAlreadyExists)

	n, err := s.Count(ctx, docstore.From(coll).Where("n", docstore.OpGte, int64(20)))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPostgresPrefixRangeIgnoresCollation(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	coll := "test_" + uuid.NewString()[:8]

	require.NoError(t, s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		for id, name := range map[string]string{"1": "a-team", "2": "ab club", "3": "a-z bakers", "4": "b"} {
			if err := tx.Create(docstore.Doc(coll, id), docstore.Fields{"nameLower": name}); err != nil {
				return err
			}
		}
		return nil
	}))

	snaps, err := s.Query(ctx, docstore.From(coll).
		Where("nameLower", docstore.OpGte, "a-").
		Where("nameLower", docstore.OpLt, "a-\uf8ff").
		Order("nameLower", docstore.Asc))
	require.NoError(t, err)
	var names []string
	for _, snap := range snaps {
		names = append(names, snap.String("nameLower"))
	}
	assert.Equal(t, []string{"a-team", "a-z bakers"}, names)
}
