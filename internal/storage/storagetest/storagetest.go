// Package storagetest 两种存储后端共用的行为测试
package storagetest

import (
	"context"
	"testing"
	"time"

	"newsfeed/internal/models"
	"newsfeed/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

// Run 对 newStore 返回的每个全新实例执行整套用例
func Run(t *testing.T, newStore func(t *testing.T) storage.Storage) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Interests", func(t *testing.T) { testInterests(t, newStore(t)) })
	t.Run("Articles", func(t *testing.T) { testArticles(t, newStore(t)) })
	t.Run("DeleteUserCascade", func(t *testing.T) { testDeleteUserCascade(t, newStore(t)) })
}

func testUsers(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	u, err := s.CreateUser(ctx, storage.NewUser{Username: "alice", Password: "hash", NewsAPIKey: strPtr("")})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.Nil(t, u.NewsAPIKey, "空 key 应保存为 nil")
	assert.Nil(t, u.GeminiAPIKey)

	_, err = s.CreateUser(ctx, storage.NewUser{Username: "alice", Password: "other"})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash", got.Password)

	got, err = s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetUser(ctx, 9999)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	updated, err := s.UpdateUser(ctx, u.ID, storage.UserUpdate{NewsAPIKey: strPtr("news"), GeminiAPIKey: strPtr("gem")})
	require.NoError(t, err)
	require.NotNil(t, updated.NewsAPIKey)
	assert.Equal(t, "news", *updated.NewsAPIKey)
	assert.Equal(t, "gem", *updated.GeminiAPIKey)

	// nil 不修改，空串清空
	updated, err = s.UpdateUser(ctx, u.ID, storage.UserUpdate{GeminiAPIKey: strPtr("")})
	require.NoError(t, err)
	require.NotNil(t, updated.NewsAPIKey)
	assert.Equal(t, "news", *updated.NewsAPIKey)
	assert.Nil(t, updated.GeminiAPIKey)

	_, err = s.UpdateUser(ctx, 9999, storage.UserUpdate{NewsAPIKey: strPtr("x")})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	ok, err := s.DeleteUser(ctx, 9999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testInterests(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	alice, err := s.CreateUser(ctx, storage.NewUser{Username: "alice", Password: "hash"})
	require.NoError(t, err)
	bob, err := s.CreateUser(ctx, storage.NewUser{Username: "bob", Password: "hash"})
	require.NoError(t, err)

	empty, err := s.GetInterests(ctx, alice.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	tech, err := s.CreateInterest(ctx, storage.NewInterest{UserID: alice.ID, Name: "Technology"})
	require.NoError(t, err)
	assert.True(t, tech.Active, "默认启用")

	ai, err := s.CreateInterest(ctx, storage.NewInterest{UserID: alice.ID, Name: "AI", Active: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, ai.Active)

	_, err = s.CreateInterest(ctx, storage.NewInterest{UserID: alice.ID, Name: "Climate", Active: boolPtr(true)})
	require.NoError(t, err)
	_, err = s.CreateInterest(ctx, storage.NewInterest{UserID: bob.ID, Name: "Sports"})
	require.NoError(t, err)

	_, err = s.CreateInterest(ctx, storage.NewInterest{UserID: 9999, Name: "Ghost"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	list, err := s.GetInterests(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"AI", "Climate", "Technology"}, names(list))
	assert.False(t, list[0].Active, "读回时保持 false")

	updated, err := s.UpdateInterest(ctx, ai.ID, storage.InterestUpdate{Active: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, updated.Active)
	assert.Equal(t, "AI", updated.Name)

	updated, err = s.UpdateInterest(ctx, ai.ID, storage.InterestUpdate{Name: strPtr("Robotics")})
	require.NoError(t, err)
	assert.Equal(t, "Robotics", updated.Name)
	assert.True(t, updated.Active)

	_, err = s.UpdateInterest(ctx, 9999, storage.InterestUpdate{Name: strPtr("x")})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	ok, err := s.DeleteInterest(ctx, tech.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.DeleteInterest(ctx, tech.ID)
	require.NoError(t, err)
	assert.False(t, ok, "重复删除返回 false")

	list, err = s.GetInterests(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Climate", "Robotics"}, names(list))

	list, err = s.GetInterests(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sports"}, names(list))
}

func testArticles(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	published := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	first, err := s.SaveArticle(ctx, storage.NewArticle{
		Title:       "Original",
		Description: strPtr("desc"),
		SourceID:    strPtr("https://example.com/a"),
		PublishedAt: &published,
		Summary:     strPtr(""),
	})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.Nil(t, first.Summary)
	require.NotNil(t, first.PublishedAt)
	assert.True(t, published.Equal(*first.PublishedAt))

	// 相同 SourceID 返回旧记录，新字段被忽略
	second, err := s.SaveArticle(ctx, storage.NewArticle{
		Title:    "Changed",
		SourceID: strPtr("https://example.com/a"),
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Original", second.Title)

	// 没有 SourceID 的文章每次都插入
	n1, err := s.SaveArticle(ctx, storage.NewArticle{Title: "No source"})
	require.NoError(t, err)
	n2, err := s.SaveArticle(ctx, storage.NewArticle{Title: "No source", SourceID: strPtr("")})
	require.NoError(t, err)
	assert.NotEqual(t, n1.ID, n2.ID)
	assert.Nil(t, n2.SourceID)

	got, err := s.GetArticleBySourceID(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = s.GetArticleBySourceID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetArticleByID(ctx, 9999)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	withSummary, err := s.UpdateArticleSummary(ctx, first.ID, "short summary")
	require.NoError(t, err)
	require.NotNil(t, withSummary.Summary)
	assert.Equal(t, "short summary", *withSummary.Summary)
	assert.Equal(t, "Original", withSummary.Title)

	got, err = s.GetArticleByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Summary)
	assert.Equal(t, "short summary", *got.Summary)

	_, err = s.UpdateArticleSummary(ctx, 9999, "x")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testDeleteUserCascade(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	u, err := s.CreateUser(ctx, storage.NewUser{Username: "carol", Password: "hash"})
	require.NoError(t, err)
	in, err := s.CreateInterest(ctx, storage.NewInterest{UserID: u.ID, Name: "Space"})
	require.NoError(t, err)
	a, err := s.SaveArticle(ctx, storage.NewArticle{Title: "Shared", SourceID: strPtr("s1")})
	require.NoError(t, err)

	ok, err := s.DeleteUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	list, err := s.GetInterests(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	ok, err = s.DeleteInterest(ctx, in.ID)
	require.NoError(t, err)
	assert.False(t, ok, "兴趣已随用户删除")

	// 文章不属于任何用户
	_, err = s.GetArticleByID(ctx, a.ID)
	assert.NoError(t, err)
}

func names(list []models.Interest) []string {
	out := make([]string, len(list))
	for i, in := range list {
		out[i] = in.Name
	}
	return out
}
