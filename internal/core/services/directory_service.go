package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
	"github.com/neon-kni6ht/social-media-api/internal/core/ports"
)

// DirectoryService implémente ports.Directory.
type DirectoryService struct {
	resolver
	hasher ports.PasswordHasher
	broker ports.EventPublisher
	opts   options
}

func NewDirectoryService(
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	broker ports.EventPublisher,
	opts ...Option,
) *DirectoryService {
	return &DirectoryService{
		resolver: resolver{users: users},
		hasher:   hasher,
		broker:   publisherOrNoop(broker),
		opts:     buildOptions(opts),
	}
}

func (s *DirectoryService) Resolve(ctx context.Context, handle string) (*domain.User, error) {
	return s.one(ctx, handle)
}

func (s *DirectoryService) Register(ctx context.Context, cmd ports.RegisterCmd) (*domain.User, error) {
	if err := domain.ValidateHandle(cmd.Username); err != nil {
		return nil, err
	}
	if cmd.Password == "" {
		return nil, fmt.Errorf("%w: password cannot be empty", domain.ErrInvalidInput)
	}
	if cmd.Email == "" {
		return nil, fmt.Errorf("%w: email cannot be empty", domain.ErrInvalidInput)
	}
	email, err := domain.NormalizeEmail(cmd.Email)
	if err != nil {
		return nil, err
	}

	// 1. Fail fast sur l'unicité. La contrainte UNIQUE du store reste l'arbitre final (race).
	if err := s.ensureFree(ctx, cmd.Username, email); err != nil {
		return nil, err
	}

	// 2. Hachage
	hash, err := s.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing failed: %w", err)
	}

	// 3. Agrégat
	user, err := domain.NewUser(cmd.Username, email, hash, s.opts.now())
	if err != nil {
		return nil, err
	}

	// 4. Persistance
	if err := s.users.Save(ctx, user); err != nil {
		if errors.Is(err, domain.ErrAlreadyRegistered) {
			return nil, err
		}
		return nil, fmt.Errorf("repository save failed: %w", err)
	}

	slog.Info("user registered", "user_id", user.ID, "username", user.Username)
	warnPublish("user.registered", s.broker.PublishUserRegistered(ctx, user))

	return user, nil
}

func (s *DirectoryService) ensureFree(ctx context.Context, username, email string) error {
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return fmt.Errorf("%w: username %q is taken", domain.ErrAlreadyRegistered, username)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return fmt.Errorf("%w: email %q is taken", domain.ErrAlreadyRegistered, email)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

// Authenticate ne distingue jamais handle inconnu et mauvais mot de passe.
func (s *DirectoryService) Authenticate(ctx context.Context, handle, password string) (*domain.User, error) {
	if handle == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	user, err := s.users.GetByUsername(ctx, handle)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}
