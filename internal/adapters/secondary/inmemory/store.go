// Package inmemory fournit un Store en mémoire : tests du coeur et APP_STORE=memory.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
	"github.com/neon-kni6ht/social-media-api/internal/core/ports"
)

type edgeKey struct {
	kind     domain.RelationKind
	from, to string
}

type state struct {
	users    map[string]*domain.User
	byName   map[string]string
	byEmail  map[string]string
	edges    map[edgeKey]domain.Edge
	posts    map[string]*domain.Post
	messages []*domain.Message
}

func newState() *state {
	return &state{
		users:   make(map[string]*domain.User),
		byName:  make(map[string]string),
		byEmail: make(map[string]string),
		edges:   make(map[edgeKey]domain.Edge),
		posts:   make(map[string]*domain.Post),
	}
}

// clone copie les index. Les enregistrements eux-mêmes ne sont jamais mutés.
func (s *state) clone() *state {
	c := &state{
		users:    make(map[string]*domain.User, len(s.users)),
		byName:   make(map[string]string, len(s.byName)),
		byEmail:  make(map[string]string, len(s.byEmail)),
		edges:    make(map[edgeKey]domain.Edge, len(s.edges)),
		posts:    make(map[string]*domain.Post, len(s.posts)),
		messages: append([]*domain.Message(nil), s.messages...),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.byName {
		c.byName[k] = v
	}
	for k, v := range s.byEmail {
		c.byEmail[k] = v
	}
	for k, v := range s.edges {
		c.edges[k] = v
	}
	for k, v := range s.posts {
		c.posts[k] = v
	}
	return c
}

// Store : un seul verrou pour tout le magasin. Une transaction le garde
// jusqu'au commit, le rollback restaure l'instantané pris à l'ouverture.
type Store struct {
	mu   *sync.RWMutex
	st   *state
	inTx bool
}

var _ ports.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{mu: &sync.RWMutex{}, st: newState()}
}

func (s *Store) Users() ports.UserRepository         { return userRepo{s} }
func (s *Store) Relations() ports.RelationRepository { return relationRepo{s} }
func (s *Store) Posts() ports.PostRepository         { return postRepo{s} }
func (s *Store) Messages() ports.MessageRepository   { return messageRepo{s} }

func (s *Store) WithinTx(ctx context.Context, fn func(tx ports.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// Transaction imbriquée : équivalent d'un savepoint
	if s.inTx {
		snap := s.st.clone()
		if err := fn(s); err != nil {
			*s.st = *snap
			return err
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.st.clone()
	tx := &Store{mu: s.mu, st: s.st, inTx: true}
	if err := fn(tx); err != nil {
		*s.st = *snap
		return err
	}
	return nil
}

func (s *Store) read(fn func(st *state)) {
	if !s.inTx {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}
	fn(s.st)
}

func (s *Store) write(fn func(st *state) error) error {
	if !s.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.st)
}

// --- USERS ---

type userRepo struct{ s *Store }

func (r userRepo) Save(_ context.Context, u *domain.User) error {
	return r.s.write(func(st *state) error {
		if _, taken := st.byName[u.Username]; taken {
			return fmt.Errorf("%w: username %q", domain.ErrAlreadyRegistered, u.Username)
		}
		if _, taken := st.byEmail[u.Email]; taken {
			return fmt.Errorf("%w: email %q", domain.ErrAlreadyRegistered, u.Email)
		}
		cp := *u
		st.users[u.ID] = &cp
		st.byName[u.Username] = u.ID
		st.byEmail[u.Email] = u.ID
		return nil
	})
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	var u *domain.User
	r.s.read(func(st *state) { u = st.users[id] })
	return found(u)
}

func (r userRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	var u *domain.User
	r.s.read(func(st *state) { u = st.users[st.byName[username]] })
	return found(u)
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	var u *domain.User
	r.s.read(func(st *state) { u = st.users[st.byEmail[email]] })
	return found(u)
}

func (r userRepo) GetByIDs(_ context.Context, ids []string) ([]*domain.User, error) {
	out := make([]*domain.User, 0, len(ids))
	r.s.read(func(st *state) {
		for _, id := range ids {
			if u, ok := st.users[id]; ok {
				cp := *u
				out = append(out, &cp)
			}
		}
	})
	return out, nil
}

func found(u *domain.User) (*domain.User, error) {
	if u == nil {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// --- RELATIONS ---

type relationRepo struct{ s *Store }

func (r relationRepo) Add(_ context.Context, e domain.Edge) (bool, error) {
	var created bool
	err := r.s.write(func(st *state) error {
		k := edgeKey{e.Kind, e.SubjectID, e.ObjectID}
		if _, ok := st.edges[k]; ok {
			return nil
		}
		st.edges[k] = e
		created = true
		return nil
	})
	return created, err
}

func (r relationRepo) Remove(_ context.Context, kind domain.RelationKind, subjectID, objectID string) (bool, error) {
	var removed bool
	err := r.s.write(func(st *state) error {
		k := edgeKey{kind, subjectID, objectID}
		if _, ok := st.edges[k]; ok {
			delete(st.edges, k)
			removed = true
		}
		return nil
	})
	return removed, err
}

func (r relationRepo) Exists(_ context.Context, kind domain.RelationKind, subjectID, objectID string) (bool, error) {
	var ok bool
	r.s.read(func(st *state) { _, ok = st.edges[edgeKey{kind, subjectID, objectID}] })
	return ok, nil
}

// Neighbors trie par date de création puis ID, comme l'adapter Postgres.
func (r relationRepo) Neighbors(_ context.Context, kind domain.RelationKind, userID string, dir domain.Direction) ([]string, error) {
	type hit struct {
		id string
		at time.Time
	}
	var hits []hit
	r.s.read(func(st *state) {
		for k, e := range st.edges {
			if k.kind != kind {
				continue
			}
			if (dir == domain.Outgoing || dir == domain.Either) && k.from == userID {
				hits = append(hits, hit{k.to, e.CreatedAt})
			}
			if (dir == domain.Incoming || dir == domain.Either) && k.to == userID {
				hits = append(hits, hit{k.from, e.CreatedAt})
			}
		}
	})
	sort.Slice(hits, func(i, j int) bool {
		if !hits[i].at.Equal(hits[j].at) {
			return hits[i].at.Before(hits[j].at)
		}
		return hits[i].id < hits[j].id
	})
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	return ids, nil
}

// --- POSTS ---

type postRepo struct{ s *Store }

func (r postRepo) Save(_ context.Context, p *domain.Post) error {
	return r.s.write(func(st *state) error {
		cp := *p
		st.posts[p.ID] = &cp
		return nil
	})
}

func (r postRepo) FindByID(_ context.Context, postID string) (*domain.Post, error) {
	var p *domain.Post
	r.s.read(func(st *state) { p = st.posts[postID] })
	if p == nil {
		return nil, fmt.Errorf("post %s: %w", postID, domain.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (r postRepo) Delete(_ context.Context, postID string) (bool, error) {
	var deleted bool
	err := r.s.write(func(st *state) error {
		if _, ok := st.posts[postID]; ok {
			delete(st.posts, postID)
			deleted = true
		}
		return nil
	})
	return deleted, err
}

func (r postRepo) ListByAuthors(_ context.Context, authorIDs []string, req domain.PageRequest) ([]*domain.Post, int64, error) {
	authors := make(map[string]bool, len(authorIDs))
	for _, id := range authorIDs {
		authors[id] = true
	}

	var all []*domain.Post
	r.s.read(func(st *state) {
		for _, p := range st.posts {
			if authors[p.AuthorID] {
				cp := *p
				all = append(all, &cp)
			}
		}
	})
	sortByTime(all, req.Descending(), func(p *domain.Post) (time.Time, string) { return p.CreatedAt, p.ID })
	return domain.Window(all, req), int64(len(all)), nil
}

// --- MESSAGES ---

type messageRepo struct{ s *Store }

func (r messageRepo) Save(_ context.Context, m *domain.Message) error {
	return r.s.write(func(st *state) error {
		cp := *m
		st.messages = append(st.messages, &cp)
		return nil
	})
}

func (r messageRepo) ListBetween(_ context.Context, a, b string, req domain.PageRequest) ([]*domain.Message, int64, error) {
	in := func(id string) bool { return id == a || id == b }

	var all []*domain.Message
	r.s.read(func(st *state) {
		for _, m := range st.messages {
			if in(m.SenderID) && in(m.RecipientID) {
				cp := *m
				all = append(all, &cp)
			}
		}
	})
	sortByTime(all, req.Descending(), func(m *domain.Message) (time.Time, string) { return m.CreatedAt, m.ID })
	return domain.Window(all, req), int64(len(all)), nil
}

func (r messageRepo) Latest(_ context.Context, senderID, recipientID string, t domain.MessageType) (*domain.Message, error) {
	var latest *domain.Message
	r.s.read(func(st *state) {
		for _, m := range st.messages {
			if m.SenderID != senderID || m.RecipientID != recipientID || m.Type != t {
				continue
			}
			if latest == nil || after(m.CreatedAt, m.ID, latest.CreatedAt, latest.ID) {
				latest = m
			}
		}
	})
	if latest == nil {
		return nil, fmt.Errorf("no %s message: %w", t, domain.ErrNotFound)
	}
	cp := *latest
	return &cp, nil
}

// --- TRI ---

func after(at time.Time, id string, other time.Time, otherID string) bool {
	if !at.Equal(other) {
		return at.After(other)
	}
	return id > otherID
}

func sortByTime[T any](items []T, desc bool, key func(T) (time.Time, string)) {
	sort.Slice(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if desc {
			return after(ti, idi, tj, idj)
		}
		return after(tj, idj, ti, idi)
	})
}
