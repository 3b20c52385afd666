package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
	"github.com/neon-kni6ht/social-media-api/internal/core/ports"
)

// FriendRequestPolicy tranche le cas d'une demande déjà en attente (ou d'amis déjà établis).
type FriendRequestPolicy string

const (
	// PolicyIgnore garde l'unique arête en attente et ré-émet un FRIEND_REQUEST.
	PolicyIgnore FriendRequestPolicy = "ignore"
	// PolicyReject échoue avec ErrInvalidInput.
	PolicyReject FriendRequestPolicy = "reject"
)

func ParseFriendRequestPolicy(s string) (FriendRequestPolicy, error) {
	switch p := FriendRequestPolicy(s); p {
	case PolicyIgnore, PolicyReject:
		return p, nil
	case "":
		return PolicyIgnore, nil
	}
	return "", fmt.Errorf("unknown friend request policy %q", s)
}

type options struct {
	now    func() time.Time
	policy FriendRequestPolicy
}

// Option configure les services du coeur.
type Option func(*options)

// WithClock remplace time.Now (tests déterministes).
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithFriendRequestPolicy(p FriendRequestPolicy) Option {
	return func(o *options) { o.policy = p }
}

func buildOptions(opts []Option) options {
	o := options{
		now:    func() time.Time { return time.Now().UTC() },
		policy: PolicyIgnore,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// --- RÉSOLUTION DES HANDLES ---

type resolver struct {
	users ports.UserRepository
}

func (r resolver) one(ctx context.Context, handle string) (*domain.User, error) {
	if err := domain.ValidateHandle(handle); err != nil {
		return nil, err
	}
	u, err := r.users.GetByUsername(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", handle, err)
	}
	return u, nil
}

// pair valide les deux handles et refuse l'auto-référence avant tout lookup.
func (r resolver) pair(ctx context.Context, a, b, action string) (*domain.User, *domain.User, error) {
	if err := domain.ValidateHandle(a); err != nil {
		return nil, nil, err
	}
	if err := domain.ValidateHandle(b); err != nil {
		return nil, nil, err
	}
	if a == b {
		return nil, nil, fmt.Errorf("%w: cannot %s self", domain.ErrInvalidInput, action)
	}
	ua, err := r.one(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	ub, err := r.one(ctx, b)
	if err != nil {
		return nil, nil, err
	}
	return ua, ub, nil
}

// hydrate charge les utilisateurs dans l'ordre des IDs.
func (r resolver) hydrate(ctx context.Context, ids []string) ([]*domain.User, error) {
	if len(ids) == 0 {
		return []*domain.User{}, nil
	}
	users, err := r.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	out := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// --- PUBLICATION (best effort, après commit) ---

type noopPublisher struct{}

func (noopPublisher) PublishUserRegistered(context.Context, *domain.User) error   { return nil }
func (noopPublisher) PublishPostCreated(context.Context, *domain.Post) error      { return nil }
func (noopPublisher) PublishEdgeChanged(context.Context, domain.EdgeChange) error { return nil }
func (noopPublisher) PublishRelationEvent(context.Context, *domain.Message) error { return nil }

func publisherOrNoop(p ports.EventPublisher) ports.EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

func warnPublish(what string, err error) {
	if err != nil {
		slog.Warn("event publish failed", "event", what, "error", err)
	}
}
