package kvtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looply/looply/internal/kv"
)

// RunConformance checks that a Store honors the command semantics the
// repositories rely on. prefix isolates keys on shared backends.
func RunConformance(t *testing.T, s kv.Store, prefix string) {
	t.Helper()
	ctx := context.Background()
	key := func(name string) string { return prefix + name }

	t.Run("get missing", func(t *testing.T) {
		_, ok, err := s.Get(ctx, key("missing"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set get del", func(t *testing.T) {
		k := key("doc")
		value := `{"email":"a b+c@example.com","path":"x/y?z=1&q=%"}`
		require.NoError(t, s.Set(ctx, k, value))

		got, ok, err := s.Get(ctx, k)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, value, got)

		require.NoError(t, s.Del(ctx, k))
		_, ok, err = s.Get(ctx, k)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("lpush is newest first", func(t *testing.T) {
		k := key("list")
		t.Cleanup(func() { _ = s.Del(ctx, k) })

		for i, v := range []string{"a", "b", "c", "d"} {
			n, err := s.LPush(ctx, k, v)
			require.NoError(t, err)
			assert.Equal(t, int64(i+1), n)
		}

		all, err := s.LRange(ctx, k, 0, -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"d", "c", "b", "a"}, all)

		page, err := s.LRange(ctx, k, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b"}, page)

		past, err := s.LRange(ctx, k, 10, 19)
		require.NoError(t, err)
		assert.Empty(t, past)
	})

	t.Run("lrange missing list", func(t *testing.T) {
		items, err := s.LRange(ctx, key("nolist"), 0, 10)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("lrem", func(t *testing.T) {
		k := key("rem")
		t.Cleanup(func() { _ = s.Del(ctx, k) })

		for _, v := range []string{"x", "y", "x", "z", "x"} {
			_, err := s.LPush(ctx, k, v)
			require.NoError(t, err)
		}
		// list: x z x y x

		n, err := s.LRem(ctx, k, 1, "x")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		items, err := s.LRange(ctx, k, 0, -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"z", "x", "y", "x"}, items)

		n, err = s.LRem(ctx, k, -1, "x")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		items, err = s.LRange(ctx, k, 0, -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"z", "x", "y"}, items)

		_, err = s.LPush(ctx, k, "x")
		require.NoError(t, err)
		n, err = s.LRem(ctx, k, 0, "x")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		items, err = s.LRange(ctx, k, 0, -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"z", "y"}, items)
	})

	t.Run("json helpers", func(t *testing.T) {
		k := key("json")
		t.Cleanup(func() { _ = s.Del(ctx, k) })

		type doc struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		}
		require.NoError(t, kv.SetJSON(ctx, s, k, doc{Name: "lead", Count: 3}))

		var got doc
		found, err := kv.GetJSON(ctx, s, k, &got)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, doc{Name: "lead", Count: 3}, got)

		require.NoError(t, s.Set(ctx, k, "not json"))
		found, err = kv.GetJSON(ctx, s, k, &got)
		require.NoError(t, err)
		assert.False(t, found)
	})
}
