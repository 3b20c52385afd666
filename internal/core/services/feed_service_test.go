package services

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
)

func TestPostsOf_RequiresSubscription(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "viewer", "author")

	_, err := f.content.AddPost(ctx, "author", "first", "x")
	require.NoError(t, err)
	_, err = f.content.AddPost(ctx, "author", "second", "x")
	require.NoError(t, err)

	_, err = f.feed.PostsOf(ctx, "viewer", "author", page(0, 10))
	assert.ErrorIs(t, err, domain.ErrNotSubscribed)

	require.NoError(t, f.rel.Subscribe(ctx, "viewer", "author"))
	got, err := f.feed.PostsOf(ctx, "viewer", "author", page(0, 10))
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "second", got.Items[0].Headline)
	assert.Equal(t, "first", got.Items[1].Headline)

	_, err = f.feed.PostsOf(ctx, "viewer", "ghost", page(0, 10))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostsOf_OwnPostsWhenTargetEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "me", "other")

	_, err := f.content.AddPost(ctx, "me", "mine", "x")
	require.NoError(t, err)
	_, err = f.content.AddPost(ctx, "other", "theirs", "x")
	require.NoError(t, err)

	got, err := f.feed.PostsOf(ctx, "me", "", domain.PageRequest{Size: 10})
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "mine", got.Items[0].Headline)
}

func TestPostsOf_Pagination(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "author")

	for i := 1; i <= 7; i++ {
		_, err := f.content.AddPost(ctx, "author", fmt.Sprintf("post-%d", i), "x")
		require.NoError(t, err)
	}

	got, err := f.feed.PostsOf(ctx, "author", "", page(1, 3))
	require.NoError(t, err)
	assert.EqualValues(t, 7, got.TotalItems)
	assert.Equal(t, 3, got.TotalPages)
	assert.Equal(t, 1, got.Page)

	// Plus récent d'abord : rangs 4 à 6 = post-4, post-3, post-2
	headlines := make([]string, 0, len(got.Items))
	for _, p := range got.Items {
		headlines = append(headlines, p.Headline)
	}
	assert.Equal(t, []string{"post-4", "post-3", "post-2"}, headlines)

	last, err := f.feed.PostsOf(ctx, "author", "", page(2, 3))
	require.NoError(t, err)
	assert.Len(t, last.Items, 1)

	beyond, err := f.feed.PostsOf(ctx, "author", "", page(5, 3))
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)

	_, err = f.feed.PostsOf(ctx, "author", "", page(0, 0))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPagination_OutOfRangeIsRejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "author", "reader")
	_, err := f.content.AddPost(ctx, "author", "only", "x")
	require.NoError(t, err)

	huge := domain.PageRequest{Page: math.MaxInt/2 + 1, Size: 2}
	_, err = f.feed.PostsOf(ctx, "author", "", huge)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.feed.Feed(ctx, "reader", huge)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.content.MessageHistory(ctx, "author", "reader", huge)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.feed.PostsOf(ctx, "author", "", page(0, domain.MaxPageSize+1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFeed_MergesSubscriptions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "reader", "x", "y", "z")

	require.NoError(t, f.rel.Subscribe(ctx, "reader", "x"))
	require.NoError(t, f.rel.Subscribe(ctx, "reader", "y"))

	for _, author := range []string{"x", "y", "z", "x"} {
		_, err := f.content.AddPost(ctx, author, "from "+author, "x")
		require.NoError(t, err)
	}

	got, err := f.feed.Feed(ctx, "reader", domain.PageRequest{Size: 10, Sort: domain.SortAsc})
	require.NoError(t, err)
	assert.EqualValues(t, 3, got.TotalItems)
	require.Len(t, got.Items, 3)
	assert.Equal(t, "from x", got.Items[0].Headline)
	assert.Equal(t, "from y", got.Items[1].Headline)

	empty, err := f.feed.Feed(ctx, "z", page(0, 10))
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.Zero(t, empty.TotalPages)
}

func TestScenario_FriendshipFeedAndUnfriend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	u := f.register(t, "alice", "bob")
	alice, bob := u[0], u[1]

	_, err := f.rel.SendFriendRequest(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = f.rel.AcceptFriendRequest(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = f.content.AddPost(ctx, "alice", "Hello", "first post")
	require.NoError(t, err)

	feed, err := f.feed.Feed(ctx, "bob", page(0, 10))
	require.NoError(t, err)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, "Hello", feed.Items[0].Headline)

	// bob retire alice : seul l'abonnement de bob vers alice disparaît
	_, err = f.rel.Unfriend(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, f.has(t, domain.KindSubscription, alice, bob))
	assert.False(t, f.has(t, domain.KindSubscription, bob, alice))

	// L'historique reste intact
	hist, err := f.content.MessageHistory(ctx, "alice", "bob", page(0, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 3, hist.TotalItems)
	own, err := f.feed.PostsOf(ctx, "alice", "", page(0, 10))
	require.NoError(t, err)
	assert.Len(t, own.Items, 1)

	_, err = f.content.AddPost(ctx, "alice", "Later", "after unfriend")
	require.NoError(t, err)
	feed, err = f.feed.Feed(ctx, "bob", page(0, 10))
	require.NoError(t, err)
	assert.Empty(t, feed.Items)

	_, err = f.feed.PostsOf(ctx, "bob", "alice", page(0, 10))
	assert.ErrorIs(t, err, domain.ErrNotSubscribed)
}
