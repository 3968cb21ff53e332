package memory

import (
	"context"
	"sync"
	"testing"

	"newsfeed/internal/storage"
	"newsfeed/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		return New()
	})
}

func TestReturnedValuesAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	key := "secret"
	u, err := s.CreateUser(ctx, storage.NewUser{Username: "alice", Password: "hash", NewsAPIKey: &key})
	require.NoError(t, err)

	*u.NewsAPIKey = "tampered"
	u.Username = "mallory"

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "secret", *got.NewsAPIKey)
}

func TestConcurrentSaveArticle(t *testing.T) {
	s := New()
	ctx := context.Background()
	src := "https://example.com/x"

	var wg sync.WaitGroup
	ids := make([]uint, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := s.SaveArticle(ctx, storage.NewArticle{Title: "x", SourceID: &src})
			if err == nil {
				ids[i] = a.ID
			}
		}(i)
	}
	wg.Wait()

	// 内存后端持锁查重，不会出现重复行
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}
