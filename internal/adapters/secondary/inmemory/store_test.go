package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
	"github.com/neon-kni6ht/social-media-api/internal/core/ports"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func mustUser(t *testing.T, s *Store, name string) *domain.User {
	t.Helper()
	u, err := domain.NewUser(name, name+"@example.com", "hash", t0)
	require.NoError(t, err)
	require.NoError(t, s.Users().Save(context.Background(), u))
	return u
}

func TestUsers_UniqueHandleAndEmail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore()
	alice := mustUser(t, s, "alice")

	dup, err := domain.NewUser("alice", "other@example.com", "hash", t0)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Users().Save(ctx, dup), domain.ErrAlreadyRegistered)

	dupMail, err := domain.NewUser("alice2", "alice@example.com", "hash", t0)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Users().Save(ctx, dupMail), domain.ErrAlreadyRegistered)

	got, err := s.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = s.Users().GetByUsername(ctx, "Alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRelations_AddRemoveAreIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore()
	a, b := mustUser(t, s, "a"), mustUser(t, s, "b")

	e, err := domain.NewEdge(domain.KindSubscription, a.ID, b.ID, t0)
	require.NoError(t, err)

	created, err := s.Relations().Add(ctx, e)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.Relations().Add(ctx, e)
	require.NoError(t, err)
	assert.False(t, created)

	out, err := s.Relations().Neighbors(ctx, domain.KindSubscription, a.ID, domain.Outgoing)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, out)

	in, err := s.Relations().Neighbors(ctx, domain.KindSubscription, b.ID, domain.Incoming)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, in)

	removed, err := s.Relations().Remove(ctx, domain.KindSubscription, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Relations().Remove(ctx, domain.KindSubscription, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore()
	a, b := mustUser(t, s, "a"), mustUser(t, s, "b")
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(tx ports.Store) error {
		e, err := domain.NewEdge(domain.KindFriendship, a.ID, b.ID, t0)
		require.NoError(t, err)
		_, err = tx.Relations().Add(ctx, e)
		require.NoError(t, err)
		msg, err := domain.NewRelationEvent(a.ID, b.ID, domain.FriendApprove, t0)
		require.NoError(t, err)
		require.NoError(t, tx.Messages().Save(ctx, msg))
		return boom
	})
	require.ErrorIs(t, err, boom)

	lo, hi := domain.FriendshipKey(a.ID, b.ID)
	ok, err := s.Relations().Exists(ctx, domain.KindFriendship, lo, hi)
	require.NoError(t, err)
	assert.False(t, ok)

	_, total, err := s.Messages().ListBetween(ctx, a.ID, b.ID, domain.PageRequest{Size: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestWithinTx_NestedRollbackKeepsOuterWrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore()
	a, b := mustUser(t, s, "a"), mustUser(t, s, "b")

	err := s.WithinTx(ctx, func(tx ports.Store) error {
		sub, _ := domain.NewEdge(domain.KindSubscription, a.ID, b.ID, t0)
		if _, err := tx.Relations().Add(ctx, sub); err != nil {
			return err
		}
		inner := tx.WithinTx(ctx, func(tx ports.Store) error {
			req, _ := domain.NewEdge(domain.KindFriendRequest, a.ID, b.ID, t0)
			_, _ = tx.Relations().Add(ctx, req)
			return errors.New("inner")
		})
		assert.Error(t, inner)
		return nil
	})
	require.NoError(t, err)

	ok, _ := s.Relations().Exists(ctx, domain.KindSubscription, a.ID, b.ID)
	assert.True(t, ok)
	ok, _ = s.Relations().Exists(ctx, domain.KindFriendRequest, a.ID, b.ID)
	assert.False(t, ok)
}

func TestPosts_ListByAuthorsOrdersAndPages(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore()
	a, b := mustUser(t, s, "a"), mustUser(t, s, "b")

	for i := 0; i < 4; i++ {
		author := a.ID
		if i%2 == 1 {
			author = b.ID
		}
		p, err := domain.NewPost(author, "h", "b", t0.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.NoError(t, s.Posts().Save(ctx, p))
	}

	items, total, err := s.Posts().ListByAuthors(ctx, []string{a.ID, b.ID}, domain.PageRequest{Page: 0, Size: 3, Sort: domain.SortDesc})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, items, 3)
	assert.True(t, items[0].CreatedAt.After(items[1].CreatedAt))

	items, _, err = s.Posts().ListByAuthors(ctx, []string{a.ID}, domain.PageRequest{Page: 0, Size: 10, Sort: domain.SortAsc})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[0].CreatedAt.Before(items[1].CreatedAt))

	deleted, err := s.Posts().Delete(ctx, items[0].ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	_, err = s.Posts().FindByID(ctx, items[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMessages_LatestOfType(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore()
	a, b := mustUser(t, s, "a"), mustUser(t, s, "b")

	first, _ := domain.NewRelationEvent(a.ID, b.ID, domain.FriendRequest, t0)
	second, _ := domain.NewRelationEvent(a.ID, b.ID, domain.FriendRequest, t0.Add(time.Minute))
	dm, _ := domain.NewDirectMessage(b.ID, a.ID, "yo", t0.Add(2*time.Minute))
	for _, m := range []*domain.Message{first, second, dm} {
		require.NoError(t, s.Messages().Save(ctx, m))
	}

	got, err := s.Messages().Latest(ctx, a.ID, b.ID, domain.FriendRequest)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	_, err = s.Messages().Latest(ctx, b.ID, a.ID, domain.FriendRequest)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, total, err := s.Messages().ListBetween(ctx, b.ID, a.ID, domain.PageRequest{Size: 5})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
}
