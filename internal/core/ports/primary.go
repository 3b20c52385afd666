package ports

import (
	"context"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
)

// --- INPUTS ---

type RegisterCmd struct {
	Username string
	Password string
	Email    string
}

// --- PORTS PRIMAIRES (Driving) ---
// L'identité de l'appelant est toujours passée explicitement (handle), jamais lue d'un contexte ambiant.

// Directory résout les handles et garantit l'unicité handle/email.
type Directory interface {
	Resolve(ctx context.Context, handle string) (*domain.User, error)
	Register(ctx context.Context, cmd RegisterCmd) (*domain.User, error)
	Authenticate(ctx context.Context, handle, password string) (*domain.User, error)
}

// RelationGraph est la machine à états abonnement / demande / amitié.
type RelationGraph interface {
	Subscribe(ctx context.Context, subject, object string) error
	Unsubscribe(ctx context.Context, subject, object string) error

	SendFriendRequest(ctx context.Context, from, to string) (*domain.Message, error)
	AcceptFriendRequest(ctx context.Context, requester, approver string) (*domain.Message, error)
	DenyFriendRequest(ctx context.Context, requester, approver string) (*domain.Message, error)
	Unfriend(ctx context.Context, toRemove, asking string) (*domain.Message, error)

	// Vues calculées sur la table de relations
	Status(ctx context.Context, actor, target string) (*domain.RelationStatus, error)
	Subscriptions(ctx context.Context, handle string) ([]*domain.User, error)
	Subscribers(ctx context.Context, handle string) ([]*domain.User, error)
	Friends(ctx context.Context, handle string) ([]*domain.User, error)
	IncomingRequests(ctx context.Context, handle string) ([]*domain.User, error)
	OutgoingRequests(ctx context.Context, handle string) ([]*domain.User, error)
}

// ContentStore gère les posts et les messages (append-only).
type ContentStore interface {
	AddPost(ctx context.Context, author, headline, body string) (string, error)
	GetPost(ctx context.Context, postID string) (*domain.Post, error)
	RemovePost(ctx context.Context, postID string) error

	SendMessage(ctx context.Context, from, to, content string) (*domain.Message, error)
	MessageHistory(ctx context.Context, userA, userB string, req domain.PageRequest) (*domain.Page[*domain.Message], error)
	LatestMessage(ctx context.Context, from, to string, t domain.MessageType) (*domain.Message, error)
}

// Feed applique la visibilité dérivée des abonnements.
type Feed interface {
	PostsOf(ctx context.Context, viewer, target string, req domain.PageRequest) (*domain.Page[*domain.Post], error)
	Feed(ctx context.Context, viewer string, req domain.PageRequest) (*domain.Page[*domain.Post], error)
}

// Discovery propose des comptes à suivre (amis d'amis), lu depuis la projection graphe.
type Discovery interface {
	Suggest(ctx context.Context, handle string, limit int) ([]*domain.User, error)
}
