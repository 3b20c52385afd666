package domain

import (
	"time"

	"github.com/google/uuid"
)

type Post struct {
	ID        string
	AuthorID  string
	Headline  string
	Body      string
	CreatedAt time.Time
}

// NewPost refuse un titre ou un corps vide.
func NewPost(authorID, headline, body string, now time.Time) (*Post, error) {
	if headline == "" || body == "" {
		return nil, invalid("post headline and body are required")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	return &Post{
		ID:        id.String(),
		AuthorID:  authorID,
		Headline:  headline,
		Body:      body,
		CreatedAt: now.UTC(),
	}, nil
}

// MessageType fait du journal de messages la piste d'audit des transitions sociales.
type MessageType string

const (
	DirectMessage MessageType = "DIRECT_MESSAGE"
	FriendRequest MessageType = "FRIEND_REQUEST"
	FriendApprove MessageType = "FRIEND_APPROVE"
	FriendDeny    MessageType = "FRIEND_DENY"
	FriendRemove  MessageType = "FRIEND_REMOVE"
)

// ParseMessageType accepte uniquement les tags connus.
func ParseMessageType(s string) (MessageType, error) {
	switch t := MessageType(s); t {
	case DirectMessage, FriendRequest, FriendApprove, FriendDeny, FriendRemove:
		return t, nil
	}
	return "", invalid("unknown message type %q", s)
}

// IsRelationEvent est vrai pour les messages émis par une transition de relation.
func (t MessageType) IsRelationEvent() bool {
	return t != DirectMessage
}

// Message est append-only. Content est nil pour un événement de relation.
type Message struct {
	ID          string
	SenderID    string
	RecipientID string
	Content     *string
	Type        MessageType
	CreatedAt   time.Time
}

// NewDirectMessage exige un contenu non vide et deux interlocuteurs distincts.
func NewDirectMessage(senderID, recipientID, content string, now time.Time) (*Message, error) {
	if content == "" {
		return nil, invalid("message content cannot be empty")
	}
	return newMessage(senderID, recipientID, &content, DirectMessage, now)
}

// NewRelationEvent crée le message sans contenu associé à une transition.
func NewRelationEvent(senderID, recipientID string, t MessageType, now time.Time) (*Message, error) {
	if !t.IsRelationEvent() {
		return nil, invalid("%s is not a relation event", t)
	}
	return newMessage(senderID, recipientID, nil, t, now)
}

func newMessage(senderID, recipientID string, content *string, t MessageType, now time.Time) (*Message, error) {
	if senderID == recipientID {
		return nil, invalid("cannot send %s to self", t)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	return &Message{
		ID:          id.String(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		Type:        t,
		CreatedAt:   now.UTC(),
	}, nil
}
