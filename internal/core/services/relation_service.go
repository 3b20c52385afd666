package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
	"github.com/neon-kni6ht/social-media-api/internal/core/ports"
)

// RelationService implémente ports.RelationGraph.
// Chaque transition s'exécute dans une seule transaction : arêtes + message d'audit.
type RelationService struct {
	resolver
	store  ports.Store
	broker ports.EventPublisher
	opts   options
}

func NewRelationService(
	store ports.Store,
	users ports.UserRepository,
	broker ports.EventPublisher,
	opts ...Option,
) *RelationService {
	return &RelationService{
		resolver: resolver{users: users},
		store:    store,
		broker:   publisherOrNoop(broker),
		opts:     buildOptions(opts),
	}
}

// --- ABONNEMENTS ---

// Subscribe est idempotent : se réabonner ne fait rien.
func (s *RelationService) Subscribe(ctx context.Context, subject, object string) error {
	sub, obj, err := s.pair(ctx, subject, object, "subscribe to")
	if err != nil {
		return err
	}
	_, err = s.mutate(ctx, func(ctx context.Context, m *mutation) error {
		return m.add(ctx, domain.KindSubscription, sub.ID, obj.ID)
	})
	return err
}

// Unsubscribe sur une arête absente est un no-op.
func (s *RelationService) Unsubscribe(ctx context.Context, subject, object string) error {
	sub, obj, err := s.pair(ctx, subject, object, "unsubscribe from")
	if err != nil {
		return err
	}
	_, err = s.mutate(ctx, func(ctx context.Context, m *mutation) error {
		_, err := m.remove(ctx, domain.KindSubscription, sub.ID, obj.ID)
		return err
	})
	return err
}

// --- DEMANDES D'AMI ---

func (s *RelationService) SendFriendRequest(ctx context.Context, from, to string) (*domain.Message, error) {
	sender, target, err := s.pair(ctx, from, to, "send friend request to")
	if err != nil {
		return nil, err
	}

	m, err := s.mutate(ctx, func(ctx context.Context, m *mutation) error {
		if s.opts.policy == PolicyReject {
			if err := s.rejectDuplicate(ctx, m.tx, sender, target); err != nil {
				return err
			}
		}
		// Envoyer une demande implique de suivre
		if err := m.add(ctx, domain.KindSubscription, sender.ID, target.ID); err != nil {
			return err
		}
		if err := m.add(ctx, domain.KindFriendRequest, sender.ID, target.ID); err != nil {
			return err
		}
		return m.emit(ctx, sender.ID, target.ID, domain.FriendRequest)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("friend request sent", "from", from, "to", to)
	return m.message, nil
}

func (s *RelationService) rejectDuplicate(ctx context.Context, tx ports.Store, sender, target *domain.User) error {
	pending, err := tx.Relations().Exists(ctx, domain.KindFriendRequest, sender.ID, target.ID)
	if err != nil {
		return err
	}
	if pending {
		return fmt.Errorf("%w: friend request to %q is already pending", domain.ErrInvalidInput, target.Username)
	}
	lo, hi := domain.FriendshipKey(sender.ID, target.ID)
	friends, err := tx.Relations().Exists(ctx, domain.KindFriendship, lo, hi)
	if err != nil {
		return err
	}
	if friends {
		return fmt.Errorf("%w: already friends with %q", domain.ErrInvalidInput, target.Username)
	}
	return nil
}

// AcceptFriendRequest : la suppression de l'arête en attente sert de précondition,
// deux acceptations concurrentes ne peuvent donc pas réussir toutes les deux.
func (s *RelationService) AcceptFriendRequest(ctx context.Context, requester, approver string) (*domain.Message, error) {
	req, appr, err := s.pair(ctx, requester, approver, "accept friend request from")
	if err != nil {
		return nil, err
	}

	m, err := s.mutate(ctx, func(ctx context.Context, m *mutation) error {
		if err := m.consumeRequest(ctx, req, appr); err != nil {
			return err
		}
		if err := m.add(ctx, domain.KindFriendship, req.ID, appr.ID); err != nil {
			return err
		}
		// Amis => abonnés mutuellement
		if err := m.add(ctx, domain.KindSubscription, appr.ID, req.ID); err != nil {
			return err
		}
		if err := m.add(ctx, domain.KindSubscription, req.ID, appr.ID); err != nil {
			return err
		}
		return m.emit(ctx, appr.ID, req.ID, domain.FriendApprove)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("friend request accepted", "requester", requester, "approver", approver)
	return m.message, nil
}

// DenyFriendRequest retire la demande sans toucher à l'abonnement implicite du demandeur.
func (s *RelationService) DenyFriendRequest(ctx context.Context, requester, approver string) (*domain.Message, error) {
	req, appr, err := s.pair(ctx, requester, approver, "deny friend request from")
	if err != nil {
		return nil, err
	}

	m, err := s.mutate(ctx, func(ctx context.Context, m *mutation) error {
		if err := m.consumeRequest(ctx, req, appr); err != nil {
			return err
		}
		return m.emit(ctx, appr.ID, req.ID, domain.FriendDeny)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("friend request denied", "requester", requester, "approver", approver)
	return m.message, nil
}

// Unfriend retire l'amitié des deux côtés mais seulement l'abonnement de celui qui demande.
func (s *RelationService) Unfriend(ctx context.Context, toRemove, asking string) (*domain.Message, error) {
	removed, asker, err := s.pair(ctx, toRemove, asking, "unfriend")
	if err != nil {
		return nil, err
	}

	m, err := s.mutate(ctx, func(ctx context.Context, m *mutation) error {
		ok, err := m.remove(ctx, domain.KindFriendship, removed.ID, asker.ID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %q and %q", domain.ErrNotFriends, asking, toRemove)
		}
		if _, err := m.remove(ctx, domain.KindSubscription, asker.ID, removed.ID); err != nil {
			return err
		}
		return m.emit(ctx, asker.ID, removed.ID, domain.FriendRemove)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("friendship removed", "asking", asking, "removed", toRemove)
	return m.message, nil
}

// --- VUES ---

func (s *RelationService) Status(ctx context.Context, actor, target string) (*domain.RelationStatus, error) {
	a, b, err := s.pair(ctx, actor, target, "inspect relation with")
	if err != nil {
		return nil, err
	}

	rel := s.store.Relations()
	lo, hi := domain.FriendshipKey(a.ID, b.ID)
	checks := []struct {
		kind     domain.RelationKind
		from, to string
		dst      *bool
	}{
		{domain.KindSubscription, a.ID, b.ID, nil},
		{domain.KindSubscription, b.ID, a.ID, nil},
		{domain.KindFriendRequest, a.ID, b.ID, nil},
		{domain.KindFriendRequest, b.ID, a.ID, nil},
		{domain.KindFriendship, lo, hi, nil},
	}
	st := &domain.RelationStatus{}
	checks[0].dst = &st.IsSubscribed
	checks[1].dst = &st.IsSubscribedBy
	checks[2].dst = &st.RequestSent
	checks[3].dst = &st.RequestReceived
	checks[4].dst = &st.AreFriends

	for _, c := range checks {
		ok, err := rel.Exists(ctx, c.kind, c.from, c.to)
		if err != nil {
			return nil, err
		}
		*c.dst = ok
	}
	return st, nil
}

func (s *RelationService) Subscriptions(ctx context.Context, handle string) ([]*domain.User, error) {
	return s.view(ctx, handle, domain.KindSubscription, domain.Outgoing)
}

func (s *RelationService) Subscribers(ctx context.Context, handle string) ([]*domain.User, error) {
	return s.view(ctx, handle, domain.KindSubscription, domain.Incoming)
}

func (s *RelationService) Friends(ctx context.Context, handle string) ([]*domain.User, error) {
	return s.view(ctx, handle, domain.KindFriendship, domain.Either)
}

func (s *RelationService) IncomingRequests(ctx context.Context, handle string) ([]*domain.User, error) {
	return s.view(ctx, handle, domain.KindFriendRequest, domain.Incoming)
}

func (s *RelationService) OutgoingRequests(ctx context.Context, handle string) ([]*domain.User, error) {
	return s.view(ctx, handle, domain.KindFriendRequest, domain.Outgoing)
}

func (s *RelationService) view(ctx context.Context, handle string, kind domain.RelationKind, dir domain.Direction) ([]*domain.User, error) {
	u, err := s.one(ctx, handle)
	if err != nil {
		return nil, err
	}
	ids, err := s.store.Relations().Neighbors(ctx, kind, u.ID, dir)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, ids)
}

// --- UNITÉ DE TRAVAIL ---

// mutation collecte les changements d'arêtes et le message émis pendant la transaction.
type mutation struct {
	tx      ports.Store
	now     time.Time
	changes []domain.EdgeChange
	message *domain.Message
}

func (m *mutation) add(ctx context.Context, kind domain.RelationKind, subjectID, objectID string) error {
	edge, err := domain.NewEdge(kind, subjectID, objectID, m.now)
	if err != nil {
		return err
	}
	created, err := m.tx.Relations().Add(ctx, edge)
	if err != nil {
		return err
	}
	if created {
		m.changes = append(m.changes, domain.EdgeChange{Op: domain.EdgeAdded, Edge: edge})
	}
	return nil
}

func (m *mutation) remove(ctx context.Context, kind domain.RelationKind, subjectID, objectID string) (bool, error) {
	if kind == domain.KindFriendship {
		subjectID, objectID = domain.FriendshipKey(subjectID, objectID)
	}
	removed, err := m.tx.Relations().Remove(ctx, kind, subjectID, objectID)
	if err != nil {
		return false, err
	}
	if removed {
		m.changes = append(m.changes, domain.EdgeChange{
			Op:   domain.EdgeRemoved,
			Edge: domain.Edge{Kind: kind, SubjectID: subjectID, ObjectID: objectID, CreatedAt: m.now},
		})
	}
	return removed, nil
}

func (m *mutation) consumeRequest(ctx context.Context, requester, approver *domain.User) error {
	ok, err := m.remove(ctx, domain.KindFriendRequest, requester.ID, approver.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no request from %q to %q", domain.ErrRequestNotFound, requester.Username, approver.Username)
	}
	return nil
}

func (m *mutation) emit(ctx context.Context, senderID, recipientID string, t domain.MessageType) error {
	msg, err := domain.NewRelationEvent(senderID, recipientID, t, m.now)
	if err != nil {
		return err
	}
	if err := m.tx.Messages().Save(ctx, msg); err != nil {
		return err
	}
	m.message = msg
	return nil
}

// mutate exécute fn dans une transaction puis publie, hors transaction, ce qui a été commité.
func (s *RelationService) mutate(ctx context.Context, fn func(ctx context.Context, m *mutation) error) (*mutation, error) {
	var m *mutation
	err := s.store.WithinTx(ctx, func(tx ports.Store) error {
		m = &mutation{tx: tx, now: s.opts.now()}
		return fn(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	for _, c := range m.changes {
		warnPublish("edge."+string(c.Op), s.broker.PublishEdgeChanged(ctx, c))
	}
	if m.message != nil {
		warnPublish("message."+string(m.message.Type), s.broker.PublishRelationEvent(ctx, m.message))
	}
	return m, nil
}
