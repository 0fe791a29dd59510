package docstore

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterDoc struct {
	ID    string   `json:"id"`
	Owner string   `json:"owner"`
	Done  bool     `json:"done"`
	Items []string `json:"items"`
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "docs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			t.Run("get missing document", func(t *testing.T) {
				_, err := store.Get(ctx, "things", "nope")
				assert.True(t, IsNotFound(err))
			})

			t.Run("set then get", func(t *testing.T) {
				id := store.NewID("things")
				require.NotEmpty(t, id)
				require.NoError(t, store.Set(ctx, "things", id, counterDoc{ID: id, Owner: "a@x.io", Items: []string{"one"}}))

				snap, err := store.Get(ctx, "things", id)
				require.NoError(t, err)
				assert.Equal(t, id, snap.ID())

				var got counterDoc
				require.NoError(t, snap.DataTo(&got))
				assert.Equal(t, "a@x.io", got.Owner)
				assert.Equal(t, []string{"one"}, got.Items)
			})

			t.Run("update merges only given fields", func(t *testing.T) {
				require.NoError(t, store.Set(ctx, "things", "u1", counterDoc{ID: "u1", Owner: "a@x.io", Items: []string{"keep"}}))
				require.NoError(t, store.Update(ctx, "things", "u1", map[string]interface{}{"done": true}))

				snap, err := store.Get(ctx, "things", "u1")
				require.NoError(t, err)
				var got counterDoc
				require.NoError(t, snap.DataTo(&got))
				assert.True(t, got.Done)
				assert.Equal(t, "a@x.io", got.Owner)
				assert.Equal(t, []string{"keep"}, got.Items)
			})

			t.Run("update missing document", func(t *testing.T) {
				err := store.Update(ctx, "things", "ghost", map[string]interface{}{"done": true})
				assert.True(t, IsNotFound(err))
			})

			t.Run("array union skips present values", func(t *testing.T) {
				require.NoError(t, store.Set(ctx, "things", "a1", counterDoc{ID: "a1", Items: []string{"x"}}))
				require.NoError(t, store.ArrayUnion(ctx, "things", "a1", "items", "x", "y"))
				require.NoError(t, store.ArrayUnion(ctx, "things", "a1", "items", "y", "z"))

				snap, err := store.Get(ctx, "things", "a1")
				require.NoError(t, err)
				var got counterDoc
				require.NoError(t, snap.DataTo(&got))
				assert.Equal(t, []string{"x", "y", "z"}, got.Items)
			})

			t.Run("list with filters", func(t *testing.T) {
				coll := "listing"
				require.NoError(t, store.Set(ctx, coll, "l1", counterDoc{ID: "l1", Owner: "a@x.io", Done: true}))
				require.NoError(t, store.Set(ctx, coll, "l2", counterDoc{ID: "l2", Owner: "a@x.io"}))
				require.NoError(t, store.Set(ctx, coll, "l3", counterDoc{ID: "l3", Owner: "b@x.io"}))

				all, err := store.List(ctx, coll)
				require.NoError(t, err)
				assert.Len(t, all, 3)

				mine, err := store.List(ctx, coll, Filter{Field: "owner", Value: "a@x.io"})
				require.NoError(t, err)
				assert.Len(t, mine, 2)

				open, err := store.List(ctx, coll, Filter{Field: "owner", Value: "a@x.io"}, Filter{Field: "done", Value: false})
				require.NoError(t, err)
				require.Len(t, open, 1)
				assert.Equal(t, "l2", open[0].ID())
			})

			t.Run("delete is idempotent", func(t *testing.T) {
				require.NoError(t, store.Set(ctx, "things", "d1", counterDoc{ID: "d1"}))
				require.NoError(t, store.Delete(ctx, "things", "d1"))
				require.NoError(t, store.Delete(ctx, "things", "d1"))
				_, err := store.Get(ctx, "things", "d1")
				assert.True(t, IsNotFound(err))
			})

			t.Run("transaction error rolls back", func(t *testing.T) {
				require.NoError(t, store.Set(ctx, "things", "r1", counterDoc{ID: "r1", Owner: "before"}))
				boom := fmt.Errorf("boom")
				err := store.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
					if _, err := tx.Get("things", "r1"); err != nil {
						return err
					}
					if err := tx.Update("things", "r1", map[string]interface{}{"owner": "after"}); err != nil {
						return err
					}
					return boom
				})
				assert.ErrorIs(t, err, boom)

				snap, err := store.Get(ctx, "things", "r1")
				require.NoError(t, err)
				var got counterDoc
				require.NoError(t, snap.DataTo(&got))
				assert.Equal(t, "before", got.Owner)
			})

			t.Run("concurrent read-modify-write keeps every append", func(t *testing.T) {
				require.NoError(t, store.Set(ctx, "things", "c1", counterDoc{ID: "c1", Items: []string{}}))

				const writers = 20
				var wg sync.WaitGroup
				errs := make(chan error, writers)
				for i := 0; i < writers; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						errs <- store.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
							snap, err := tx.Get("things", "c1")
							if err != nil {
								return err
							}
							var doc counterDoc
							if err := snap.DataTo(&doc); err != nil {
								return err
							}
							doc.Items = append(doc.Items, fmt.Sprintf("item-%d", i))
							return tx.Update("things", "c1", map[string]interface{}{"items": doc.Items})
						})
					}(i)
				}
				wg.Wait()
				close(errs)
				for err := range errs {
					require.NoError(t, err)
				}

				snap, err := store.Get(ctx, "things", "c1")
				require.NoError(t, err)
				var got counterDoc
				require.NoError(t, snap.DataTo(&got))
				assert.Len(t, got.Items, writers)
			})
		})
	}
}

func TestMemoryTransactionRejectsReadAfterWrite(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "things", "x", counterDoc{ID: "x"}))

	err := store.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Set("things", "y", counterDoc{ID: "y"}); err != nil {
			return err
		}
		_, err := tx.Get("things", "x")
		return err
	})
	assert.Error(t, err)
}
