package eventbroker

import (
	"time"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
)

const (
	StreamName = "SOCIAL"

	SubjectUserRegistered = "social.user.registered"
	SubjectPostCreated    = "social.post.created"
	SubjectEdgePrefix     = "social.edge."   // + added | removed
	SubjectMessagePrefix  = "social.message." // + FRIEND_REQUEST, FRIEND_APPROVE...
	SubjectEdgeWildcard   = "social.edge.>"
)

var streamSubjects = []string{"social.>"}

// --- CONTRATS JSON (partagés avec les consumers) ---

type UserRegisteredEvent struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
}

type PostCreatedEvent struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Headline  string    `json:"headline"`
	CreatedAt time.Time `json:"created_at"`
}

type EdgeChangedEvent struct {
	Op        string    `json:"op"`
	Kind      string    `json:"kind"`
	SubjectID string    `json:"subject_id"`
	ObjectID  string    `json:"object_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ToEdgeChange valide le contrat avant de le rendre au domaine.
func (e EdgeChangedEvent) ToEdgeChange() (domain.EdgeChange, error) {
	op := domain.EdgeOp(e.Op)
	if op != domain.EdgeAdded && op != domain.EdgeRemoved {
		return domain.EdgeChange{}, domain.ErrInvalidInput
	}
	edge, err := domain.NewEdge(domain.RelationKind(e.Kind), e.SubjectID, e.ObjectID, e.CreatedAt)
	if err != nil {
		return domain.EdgeChange{}, err
	}
	return domain.EdgeChange{Op: op, Edge: edge}, nil
}

type RelationEvent struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	CreatedAt   time.Time `json:"created_at"`
}
