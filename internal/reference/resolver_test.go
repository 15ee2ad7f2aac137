package reference

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vinayak1844/Statathon-Project/internal/cache"
	"github.com/Vinayak1844/Statathon-Project/internal/storage"
	"github.com/Vinayak1844/Statathon-Project/internal/storage/storagetest"
)

func newTestResolver(t *testing.T) *SQLResolver {
	t.Helper()
	db := storagetest.NewSQLite(t)
	r, err := NewSQLResolver(db, nil, SQLResolverConfig{
		Table:   storagetest.CodesTable,
		Dialect: storage.SQLite,
	})
	require.NoError(t, err)
	return r
}

func TestSQLResolver_Resolve(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	tests := []struct {
		kind Kind
		name string
		want Code
	}{
		{KindState, "Bihar", int64(10)},
		{KindState, "Tamil Nadu", int64(33)},
		{KindDistrict, "Patna", int64(28)},
		{KindDistrict, "Ernakulam", int64(7)},
	}
	for _, tc := range tests {
		t.Run(string(tc.kind)+"/"+tc.name, func(t *testing.T) {
			code, err := r.Resolve(ctx, tc.kind, tc.name)
			require.NoError(t, err)
			assert.Equal(t, tc.want, code)
		})
	}
}

func TestSQLResolver_Deterministic(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	first, err := r.Resolve(ctx, KindState, "Bihar")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := r.Resolve(ctx, KindState, "Bihar")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSQLResolver_NotFound(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	tests := []struct {
		kind Kind
		name string
		msg  string
	}{
		{KindState, "NoSuchState", "State 'NoSuchState' not found in codes table"},
		{KindState, "bihar", "State 'bihar' not found in codes table"},
		{KindDistrict, "Atlantis", "District 'Atlantis' not found in codes table"},
		{KindState, "Bihar' OR '1'='1", "State 'Bihar' OR '1'='1' not found in codes table"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Resolve(ctx, tc.kind, tc.name)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrReferenceNotFound)

			var nf *NotFoundError
			require.True(t, errors.As(err, &nf))
			assert.Equal(t, tc.kind, nf.Kind)
			assert.Equal(t, tc.name, nf.Name)
			assert.Equal(t, tc.msg, err.Error())
		})
	}
}

func TestSQLResolver_UnknownKind(t *testing.T) {
	r := newTestResolver(t)
	_, err := r.Resolve(context.Background(), Kind("village"), "x")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrReferenceNotFound))
}

func TestNewSQLResolver_ValidatesIdentifiers(t *testing.T) {
	_, err := NewSQLResolver(nil, nil, SQLResolverConfig{Table: "", Dialect: storage.SQLite})
	assert.ErrorIs(t, err, storage.ErrInvalidIdentifier)

	_, err = NewSQLResolver(nil, nil, SQLResolverConfig{
		Table:   "codes",
		Dialect: storage.SQLite,
		Columns: map[Kind]Columns{KindState: {Name: "", Code: "state_code"}},
	})
	assert.ErrorIs(t, err, storage.ErrInvalidIdentifier)
}

type countingResolver struct {
	calls int
	code  Code
	err   error
}

func (c *countingResolver) Resolve(ctx context.Context, kind Kind, name string) (Code, error) {
	c.calls++
	return c.code, c.err
}

func TestCachingResolver_ReadThrough(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryClient(100)
	defer mem.Close()

	inner := &countingResolver{code: int64(10)}
	r := NewCachingResolver(inner, mem, time.Minute, nil)

	for i := 0; i < 3; i++ {
		code, err := r.Resolve(ctx, KindState, "Bihar")
		require.NoError(t, err)
		assert.Equal(t, int64(10), code)
	}
	assert.Equal(t, 1, inner.calls)
}

func TestCachingResolver_DoesNotCacheMisses(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryClient(100)
	defer mem.Close()

	inner := &countingResolver{err: &NotFoundError{Kind: KindState, Name: "Nowhere"}}
	r := NewCachingResolver(inner, mem, time.Minute, nil)

	for i := 0; i < 2; i++ {
		_, err := r.Resolve(ctx, KindState, "Nowhere")
		assert.ErrorIs(t, err, ErrReferenceNotFound)
	}
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 0, mem.Len())
}

func TestCachingResolver_Invalidate(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryClient(100)
	defer mem.Close()
	require.NoError(t, mem.Set(ctx, cache.Key("session", "alice"), []byte("{}"), time.Minute))

	inner := &countingResolver{code: "10"}
	r := NewCachingResolver(inner, mem, time.Minute, nil)

	_, err := r.Resolve(ctx, KindState, "Bihar")
	require.NoError(t, err)
	require.NoError(t, r.Invalidate(ctx))
	_, err = r.Resolve(ctx, KindState, "Bihar")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
	_, err = mem.Get(ctx, cache.Key("session", "alice"))
	assert.NoError(t, err)
}

func TestCodeEncoding(t *testing.T) {
	for _, code := range []Code{int64(28), "DL-01", 2.5} {
		enc, ok := encodeCode(code)
		require.True(t, ok)
		got, ok := decodeCode(enc)
		require.True(t, ok)
		assert.Equal(t, code, got)
	}

	_, ok := encodeCode([]int{1})
	assert.False(t, ok)
	_, ok = decodeCode([]byte("garbage"))
	assert.False(t, ok)
}

func TestKind_Label(t *testing.T) {
	assert.Equal(t, "State", KindState.Label())
	assert.Equal(t, "District", KindDistrict.Label())
}
