package domain

import "time"

// RelationKind désigne l'un des trois ensembles d'arêtes entre utilisateurs.
type RelationKind string

const (
	KindSubscription  RelationKind = "subscription"   // subject suit les posts de object
	KindFriendRequest RelationKind = "friend_request" // demande subject -> object en attente
	KindFriendship    RelationKind = "friendship"     // non dirigée, stockée sous forme canonique
)

// Valid indique si le kind est connu.
func (k RelationKind) Valid() bool {
	switch k {
	case KindSubscription, KindFriendRequest, KindFriendship:
		return true
	}
	return false
}

// Direction sélectionne la vue d'une relation depuis un utilisateur.
type Direction int

const (
	Outgoing Direction = iota // user est le sujet (subscribedTo, pendingOutgoing)
	Incoming                  // user est l'objet (subscribers, pendingIncoming)
	Either                    // les deux côtés (amitié)
)

// Edge est un fait relationnel. Les deux "vues" d'une relation sont des requêtes
// sur le même enregistrement, jamais deux ensembles mutés séparément.
type Edge struct {
	Kind      RelationKind
	SubjectID string
	ObjectID  string
	CreatedAt time.Time
}

// NewEdge construit une arête dirigée. Une amitié est toujours canonisée.
func NewEdge(kind RelationKind, subjectID, objectID string, now time.Time) (Edge, error) {
	if !kind.Valid() {
		return Edge{}, invalid("unknown relation kind %q", kind)
	}
	if subjectID == "" || objectID == "" {
		return Edge{}, invalid("edge endpoints cannot be empty")
	}
	if subjectID == objectID {
		return Edge{}, invalid("self %s is not allowed", kind)
	}
	if kind == KindFriendship {
		subjectID, objectID = FriendshipKey(subjectID, objectID)
	}
	return Edge{Kind: kind, SubjectID: subjectID, ObjectID: objectID, CreatedAt: now.UTC()}, nil
}

// FriendshipKey ordonne la paire pour qu'une amitié n'ait qu'une seule clé :
// friendsWith(A,B) et friendsWith(B,A) lisent la même ligne.
func FriendshipKey(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// EdgeOp décrit la mutation appliquée à une arête.
type EdgeOp string

const (
	EdgeAdded   EdgeOp = "added"
	EdgeRemoved EdgeOp = "removed"
)

// EdgeChange est publié après commit (projection graphe, audit).
type EdgeChange struct {
	Op   EdgeOp
	Edge Edge
	// Seq : position dans le flux (séquence JetStream), 0 si inconnue.
	// Une projection ignore tout changement plus ancien que le dernier appliqué à la paire.
	Seq uint64
}

// RelationStatus résume l'état de la paire (actor, target), vu depuis actor.
type RelationStatus struct {
	IsSubscribed    bool // actor suit target
	IsSubscribedBy  bool // target suit actor
	RequestSent     bool // demande actor -> target en attente
	RequestReceived bool // demande target -> actor en attente
	AreFriends      bool
}
