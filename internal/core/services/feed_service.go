package services

import (
	"context"
	"fmt"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
	"github.com/neon-kni6ht/social-media-api/internal/core/ports"
)

// FeedService dérive la visibilité des posts des arêtes d'abonnement.
type FeedService struct {
	resolver
	store ports.Store
}

func NewFeedService(store ports.Store, users ports.UserRepository) *FeedService {
	return &FeedService{resolver: resolver{users: users}, store: store}
}

// PostsOf : target vide = les posts du viewer. Sinon il faut un abonnement vivant.
func (s *FeedService) PostsOf(ctx context.Context, viewer, target string, req domain.PageRequest) (*domain.Page[*domain.Post], error) {
	req, err := req.Validate()
	if err != nil {
		return nil, err
	}
	v, err := s.one(ctx, viewer)
	if err != nil {
		return nil, err
	}

	authorID := v.ID
	if target != "" {
		t, err := s.one(ctx, target)
		if err != nil {
			return nil, err
		}
		ok, err := s.store.Relations().Exists(ctx, domain.KindSubscription, v.ID, t.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %q does not follow %q", domain.ErrNotSubscribed, viewer, target)
		}
		authorID = t.ID
	}

	return s.page(ctx, []string{authorID}, req)
}

// Feed fusionne les posts de tous les abonnements courants, paginés sur l'union.
func (s *FeedService) Feed(ctx context.Context, viewer string, req domain.PageRequest) (*domain.Page[*domain.Post], error) {
	req, err := req.Validate()
	if err != nil {
		return nil, err
	}
	v, err := s.one(ctx, viewer)
	if err != nil {
		return nil, err
	}

	authors, err := s.store.Relations().Neighbors(ctx, domain.KindSubscription, v.ID, domain.Outgoing)
	if err != nil {
		return nil, err
	}
	if len(authors) == 0 {
		return domain.NewPage[*domain.Post](nil, req, 0), nil
	}
	return s.page(ctx, authors, req)
}

func (s *FeedService) page(ctx context.Context, authorIDs []string, req domain.PageRequest) (*domain.Page[*domain.Post], error) {
	items, total, err := s.store.Posts().ListByAuthors(ctx, authorIDs, req)
	if err != nil {
		return nil, err
	}
	return domain.NewPage(items, req, total), nil
}
