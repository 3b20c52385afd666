package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
	"github.com/neon-kni6ht/social-media-api/internal/core/ports"
)

const (
	DefaultSuggestions = 10
	MaxSuggestions     = 50
)

// DiscoveryService suggère les comptes suivis par mes abonnements.
// Sans projection graphe (ou si elle échoue), le calcul se fait sur la table de relations.
type DiscoveryService struct {
	resolver
	store ports.Store
	graph ports.GraphProjection
}

func NewDiscoveryService(store ports.Store, users ports.UserRepository, graph ports.GraphProjection) *DiscoveryService {
	return &DiscoveryService{resolver: resolver{users: users}, store: store, graph: graph}
}

func (s *DiscoveryService) Suggest(ctx context.Context, handle string, limit int) ([]*domain.User, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must be >= 0, got %d", domain.ErrInvalidInput, limit)
	}
	if limit == 0 {
		limit = DefaultSuggestions
	}
	if limit > MaxSuggestions {
		limit = MaxSuggestions
	}

	u, err := s.one(ctx, handle)
	if err != nil {
		return nil, err
	}

	if s.graph != nil {
		ids, err := s.graph.SuggestSubscriptions(ctx, u.ID, limit)
		if err == nil {
			return s.hydrate(ctx, ids)
		}
		slog.Warn("graph suggestions failed, falling back to relation store", "user_id", u.ID, "error", err)
	}

	ids, err := s.fromRelations(ctx, u.ID, limit)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, ids)
}

// fromRelations classe les candidats par nombre d'abonnements communs, puis par ID.
func (s *DiscoveryService) fromRelations(ctx context.Context, userID string, limit int) ([]string, error) {
	rel := s.store.Relations()
	following, err := rel.Neighbors(ctx, domain.KindSubscription, userID, domain.Outgoing)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(following)+1)
	known[userID] = true
	for _, id := range following {
		known[id] = true
	}

	score := make(map[string]int)
	for _, id := range following {
		next, err := rel.Neighbors(ctx, domain.KindSubscription, id, domain.Outgoing)
		if err != nil {
			return nil, err
		}
		for _, candidate := range next {
			if !known[candidate] {
				score[candidate]++
			}
		}
	}

	out := make([]string, 0, len(score))
	for id := range score {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		if score[out[i]] != score[out[j]] {
			return score[out[i]] > score[out[j]]
		}
		return out[i] < out[j]
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
