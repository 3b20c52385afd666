package inmemory

import (
	"context"
	"sync"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
	"github.com/neon-kni6ht/social-media-api/internal/core/ports"
)

// Recorder est un EventPublisher qui garde les événements en mémoire.
// Fail, s'il est renseigné, est renvoyé par chaque Publish (après enregistrement).
type Recorder struct {
	mu       sync.Mutex
	Fail     error
	users    []*domain.User
	posts    []*domain.Post
	edges    []domain.EdgeChange
	messages []*domain.Message
}

var _ ports.EventPublisher = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) PublishUserRegistered(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, u)
	return r.Fail
}

func (r *Recorder) PublishPostCreated(_ context.Context, p *domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts = append(r.posts, p)
	return r.Fail
}

func (r *Recorder) PublishEdgeChanged(_ context.Context, c domain.EdgeChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges = append(r.edges, c)
	return r.Fail
}

func (r *Recorder) PublishRelationEvent(_ context.Context, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
	return r.Fail
}

func (r *Recorder) Users() []*domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.User(nil), r.users...)
}

func (r *Recorder) Posts() []*domain.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.Post(nil), r.posts...)
}

func (r *Recorder) Edges() []domain.EdgeChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.EdgeChange(nil), r.edges...)
}

func (r *Recorder) RelationEvents() []*domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.Message(nil), r.messages...)
}
