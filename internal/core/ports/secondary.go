package ports

import (
	"context"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
)

// --- PERSISTANCE ---

// UserRepository : les lookups manquants renvoient domain.ErrNotFound,
// une violation d'unicité renvoie domain.ErrAlreadyRegistered.
type UserRepository interface {
	Save(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*domain.User, error)
}

// RelationRepository est l'unique table d'arêtes. Add et Remove sont idempotents
// et indiquent si une ligne a réellement changé.
type RelationRepository interface {
	Add(ctx context.Context, edge domain.Edge) (bool, error)
	Remove(ctx context.Context, kind domain.RelationKind, subjectID, objectID string) (bool, error)
	Exists(ctx context.Context, kind domain.RelationKind, subjectID, objectID string) (bool, error)
	// Neighbors renvoie les IDs à l'autre bout des arêtes de userID
	Neighbors(ctx context.Context, kind domain.RelationKind, userID string, dir domain.Direction) ([]string, error)
}

type PostRepository interface {
	Save(ctx context.Context, post *domain.Post) error
	FindByID(ctx context.Context, postID string) (*domain.Post, error)
	Delete(ctx context.Context, postID string) (bool, error)
	// ListByAuthors pagine l'union des posts des auteurs, triée par date puis ID.
	ListByAuthors(ctx context.Context, authorIDs []string, req domain.PageRequest) ([]*domain.Post, int64, error)
}

type MessageRepository interface {
	Save(ctx context.Context, msg *domain.Message) error
	// ListBetween : sender et recipient dans {a, b}
	ListBetween(ctx context.Context, a, b string, req domain.PageRequest) ([]*domain.Message, int64, error)
	Latest(ctx context.Context, senderID, recipientID string, t domain.MessageType) (*domain.Message, error)
}

// Store regroupe les repositories et porte la frontière transactionnelle.
// Toute écriture faite via tx dans fn est annulée si fn renvoie une erreur.
type Store interface {
	Users() UserRepository
	Relations() RelationRepository
	Posts() PostRepository
	Messages() MessageRepository
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// --- MESSAGERIE (BROKER) ---

// EventPublisher notifie les autres services. Appelé après commit, en best effort.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, user *domain.User) error
	PublishPostCreated(ctx context.Context, post *domain.Post) error
	PublishEdgeChanged(ctx context.Context, change domain.EdgeChange) error
	PublishRelationEvent(ctx context.Context, msg *domain.Message) error
}

// --- GRAPHE (lecture/projection) ---

// GraphProjection maintient une copie des arêtes dans une base graphe (Neo4j).
type GraphProjection interface {
	Apply(ctx context.Context, change domain.EdgeChange) error
	// SuggestSubscriptions : comptes suivis par mes abonnements, que je ne suis pas encore
	SuggestSubscriptions(ctx context.Context, userID string, limit int) ([]string, error)
}

// --- SÉCURITÉ ---

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenProvider émet et vérifie les jetons d'accès du transport.
type TokenProvider interface {
	GenerateTokens(user *domain.User) (access string, refresh string, err error)
	Validate(token string) (username string, err error)
}
