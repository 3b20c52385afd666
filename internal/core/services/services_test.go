package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/neon-kni6ht/social-media-api/internal/adapters/secondary/inmemory"
	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
	"github.com/neon-kni6ht/social-media-api/internal/core/ports"
)

// --- FIXTURES ---

// tick avance d'une seconde à chaque appel : les dates de création sont distinctes et ordonnées.
type tick struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tick) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "h:" + p, nil }

func (plainHasher) Compare(hash, p string) error {
	if hash != "h:"+p {
		return errors.New("mismatch")
	}
	return nil
}

type fixture struct {
	store   *inmemory.Store
	events  *inmemory.Recorder
	dir     *DirectoryService
	rel     *RelationService
	content *ContentService
	feed    *FeedService
	disc    *DiscoveryService
}

func newFixture(t *testing.T, extra ...Option) *fixture {
	t.Helper()
	clock := &tick{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	opts := append([]Option{WithClock(clock.now)}, extra...)

	store := inmemory.NewStore()
	events := inmemory.NewRecorder()
	return &fixture{
		store:   store,
		events:  events,
		dir:     NewDirectoryService(store.Users(), plainHasher{}, events, opts...),
		rel:     NewRelationService(store, store.Users(), events, opts...),
		content: NewContentService(store, store.Users(), events, opts...),
		feed:    NewFeedService(store, store.Users()),
		disc:    NewDiscoveryService(store, store.Users(), nil),
	}
}

func (f *fixture) register(t *testing.T, names ...string) []*domain.User {
	t.Helper()
	out := make([]*domain.User, 0, len(names))
	for _, n := range names {
		u, err := f.dir.Register(context.Background(), ports.RegisterCmd{
			Username: n,
			Password: "secret",
			Email:    n + "@example.com",
		})
		require.NoError(t, err)
		out = append(out, u)
	}
	return out
}

func (f *fixture) has(t *testing.T, kind domain.RelationKind, a, b *domain.User) bool {
	t.Helper()
	from, to := a.ID, b.ID
	if kind == domain.KindFriendship {
		from, to = domain.FriendshipKey(from, to)
	}
	ok, err := f.store.Relations().Exists(context.Background(), kind, from, to)
	require.NoError(t, err)
	return ok
}

func (f *fixture) messageCount(t *testing.T, a, b *domain.User) int64 {
	t.Helper()
	_, total, err := f.store.Messages().ListBetween(context.Background(), a.ID, b.ID, domain.PageRequest{Size: 100})
	require.NoError(t, err)
	return total
}

func page(p, size int) domain.PageRequest {
	return domain.PageRequest{Page: p, Size: size, Sort: domain.SortDesc}
}
