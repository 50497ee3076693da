package shortener

import (
	"context"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Link{}))
	return db
}

func TestShorten_NewAndExisting(t *testing.T) {
	svc := NewService(NewRepo(openTestDB(t)))
	ctx := context.Background()

	link, existed, err := svc.Shorten(ctx, 201, "https://example.com/some/long/path")
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Len(t, link.ShortCode, codeLength)

	again, existed, err := svc.Shorten(ctx, 201, "https://example.com/some/long/path")
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, link.ShortCode, again.ShortCode)

	// same URL for a different user gets its own link
	other, existed, err := svc.Shorten(ctx, 202, "https://example.com/some/long/path")
	require.NoError(t, err)
	assert.False(t, existed)
	assert.NotEqual(t, link.ShortCode, other.ShortCode)
}

func TestShorten_RejectsEmpty(t *testing.T) {
	svc := NewService(NewRepo(openTestDB(t)))

	_, _, err := svc.Shorten(context.Background(), 203, "   ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestResolve_NormalizesScheme(t *testing.T) {
	svc := NewService(NewRepo(openTestDB(t)))
	ctx := context.Background()

	bare, _, err := svc.Shorten(ctx, 204, "example.org/page")
	require.NoError(t, err)

	target, err := svc.Resolve(ctx, bare.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/page", target)

	full, _, err := svc.Shorten(ctx, 204, "http://plain.example.org")
	require.NoError(t, err)

	target, err = svc.Resolve(ctx, full.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "http://plain.example.org", target)
}

func TestResolve_UnknownCode(t *testing.T) {
	svc := NewService(NewRepo(openTestDB(t)))

	_, err := svc.Resolve(context.Background(), "nosuch")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListByUser_NewestFirst(t *testing.T) {
	svc := NewService(NewRepo(openTestDB(t)))
	ctx := context.Background()

	first, _, err := svc.Shorten(ctx, 205, "https://one.example.com")
	require.NoError(t, err)
	second, _, err := svc.Shorten(ctx, 205, "https://two.example.com")
	require.NoError(t, err)

	links, err := svc.ListByUser(ctx, 205)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, second.ID, links[0].ID)
	assert.Equal(t, first.ID, links[1].ID)
}

func TestDelete_OwnershipEnforced(t *testing.T) {
	svc := NewService(NewRepo(openTestDB(t)))
	ctx := context.Background()

	link, _, err := svc.Shorten(ctx, 206, "https://mine.example.com")
	require.NoError(t, err)

	_, err = svc.Delete(ctx, 207, link.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	deleted, err := svc.Delete(ctx, 206, link.ID)
	require.NoError(t, err)
	assert.Equal(t, link.ShortCode, deleted.ShortCode)

	_, err = svc.Resolve(ctx, link.ShortCode)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordClicks(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	svc := NewService(repo)
	ctx := context.Background()

	link, _, err := svc.Shorten(ctx, 208, "https://clicky.example.com")
	require.NoError(t, err)

	require.NoError(t, svc.RecordClicks(ctx, link.ShortCode, 1))
	require.NoError(t, svc.RecordClicks(ctx, link.ShortCode, 2))

	got, err := repo.GetByCode(ctx, link.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), got.Clicks)
}

func TestNormalizeTarget(t *testing.T) {
	assert.Equal(t, "https://a.example", NormalizeTarget("a.example"))
	assert.Equal(t, "http://a.example", NormalizeTarget("http://a.example"))
	assert.Equal(t, "https://a.example", NormalizeTarget("https://a.example"))
}
