package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
	"github.com/neon-kni6ht/social-media-api/internal/core/ports"
)

// ContentService implémente ports.ContentStore (posts + messages directs).
type ContentService struct {
	resolver
	store  ports.Store
	broker ports.EventPublisher
	opts   options
}

func NewContentService(
	store ports.Store,
	users ports.UserRepository,
	broker ports.EventPublisher,
	opts ...Option,
) *ContentService {
	return &ContentService{
		resolver: resolver{users: users},
		store:    store,
		broker:   publisherOrNoop(broker),
		opts:     buildOptions(opts),
	}
}

// --- POSTS ---

func (s *ContentService) AddPost(ctx context.Context, author, headline, body string) (string, error) {
	// Validation avant tout lookup
	if headline == "" || body == "" {
		return "", fmt.Errorf("%w: post headline and body are required", domain.ErrInvalidInput)
	}
	u, err := s.one(ctx, author)
	if err != nil {
		return "", err
	}

	post, err := domain.NewPost(u.ID, headline, body, s.opts.now())
	if err != nil {
		return "", err
	}
	if err := s.store.Posts().Save(ctx, post); err != nil {
		return "", fmt.Errorf("saving post: %w", err)
	}

	slog.Info("post created", "post_id", post.ID, "author", author)
	warnPublish("post.created", s.broker.PublishPostCreated(ctx, post))
	return post.ID, nil
}

func (s *ContentService) GetPost(ctx context.Context, postID string) (*domain.Post, error) {
	if postID == "" {
		return nil, fmt.Errorf("%w: post id cannot be empty", domain.ErrInvalidInput)
	}
	return s.store.Posts().FindByID(ctx, postID)
}

// RemovePost échoue avec ErrNotFound si l'ID n'existe pas.
func (s *ContentService) RemovePost(ctx context.Context, postID string) error {
	if postID == "" {
		return fmt.Errorf("%w: post id cannot be empty", domain.ErrInvalidInput)
	}
	deleted, err := s.store.Posts().Delete(ctx, postID)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("post %s: %w", postID, domain.ErrNotFound)
	}
	slog.Info("post removed", "post_id", postID)
	return nil
}

// --- MESSAGES ---

func (s *ContentService) SendMessage(ctx context.Context, from, to, content string) (*domain.Message, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: message content cannot be empty", domain.ErrInvalidInput)
	}
	sender, recipient, err := s.pair(ctx, from, to, "send message to")
	if err != nil {
		return nil, err
	}

	msg, err := domain.NewDirectMessage(sender.ID, recipient.ID, content, s.opts.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Messages().Save(ctx, msg); err != nil {
		return nil, fmt.Errorf("saving message: %w", err)
	}

	slog.Debug("message sent", "message_id", msg.ID, "from", from, "to", to)
	return msg, nil
}

// MessageHistory renvoie les deux sens de la conversation, relations comprises.
func (s *ContentService) MessageHistory(ctx context.Context, userA, userB string, req domain.PageRequest) (*domain.Page[*domain.Message], error) {
	req, err := req.Validate()
	if err != nil {
		return nil, err
	}
	a, err := s.one(ctx, userA)
	if err != nil {
		return nil, err
	}
	b, err := s.one(ctx, userB)
	if err != nil {
		return nil, err
	}
	if a.ID == b.ID {
		// Aucun message ne peut avoir le même émetteur et destinataire
		return domain.NewPage[*domain.Message](nil, req, 0), nil
	}

	items, total, err := s.store.Messages().ListBetween(ctx, a.ID, b.ID, req)
	if err != nil {
		return nil, err
	}
	return domain.NewPage(items, req, total), nil
}

func (s *ContentService) LatestMessage(ctx context.Context, from, to string, t domain.MessageType) (*domain.Message, error) {
	if _, err := domain.ParseMessageType(string(t)); err != nil {
		return nil, err
	}
	sender, recipient, err := s.pair(ctx, from, to, "read messages with")
	if err != nil {
		return nil, err
	}
	return s.store.Messages().Latest(ctx, sender.ID, recipient.ID, t)
}
