package domain

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// --- ENTITÉ ---

// User est identifié par un ID stable. Username est unique et sensible à la casse.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	RegisteredAt time.Time
}

// --- FACTORY ---

// NewUser valide les invariants et génère l'identité (UUIDv7, ordonné dans le temps).
// Le hash est calculé en amont par le PasswordHasher.
func NewUser(username, email, passwordHash string, now time.Time) (*User, error) {
	if err := ValidateHandle(username); err != nil {
		return nil, err
	}
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, invalid("password hash is empty")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	return &User{
		ID:           id.String(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		RegisteredAt: now.UTC(),
	}, nil
}

// ValidateHandle rejette les handles vides ou entourés d'espaces.
// Pas de normalisation : "Alice" et "alice" sont deux handles distincts.
func ValidateHandle(handle string) error {
	if handle == "" {
		return invalid("username cannot be empty")
	}
	if strings.TrimSpace(handle) != handle {
		return invalid("username %q has surrounding whitespace", handle)
	}
	return nil
}

// NormalizeEmail garde l'adresse nue, en minuscules : "Bob <Bob@Example.com>" devient "bob@example.com".
func NormalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", invalid("malformed email %q", raw)
	}
	return strings.ToLower(addr.Address), nil
}
