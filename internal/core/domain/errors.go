package domain

import (
	"errors"
	"fmt"
)

// --- ERREURS DU DOMAINE ---
// Chaque opération du coeur échoue avec exactement une de ces familles.
// Les adapters les comparent avec errors.Is, le détail est ajouté via %w.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyRegistered  = errors.New("already registered")
	ErrNotSubscribed      = errors.New("not subscribed")
	ErrNotFriends         = errors.New("not friends")
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrRequestNotFound est aussi un ErrNotFriends : accept/deny sans demande en attente.
	ErrRequestNotFound = fmt.Errorf("%w: friend request not found", ErrNotFriends)
)

// invalid enrichit ErrInvalidInput avec un message lisible.
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
