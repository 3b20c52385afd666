package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
	"github.com/neon-kni6ht/social-media-api/internal/core/ports"
)

const DefaultTTL = 10 * time.Minute

// RedisDirectory est un cache read-through devant le UserRepository.
// Les utilisateurs sont immuables et jamais supprimés : aucune invalidation n'est nécessaire.
// Une panne Redis dégrade en lecture directe, jamais en erreur.
type RedisDirectory struct {
	next   ports.UserRepository
	client redis.Cmdable
	ttl    time.Duration
}

var _ ports.UserRepository = (*RedisDirectory)(nil)

func NewRedisDirectory(next ports.UserRepository, client redis.Cmdable, ttl time.Duration) *RedisDirectory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisDirectory{next: next, client: client, ttl: ttl}
}

// Format stocké : pas de tags JSON dans le domaine
type cachedUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	RegisteredAt time.Time `json:"registered_at"`
}

func nameKey(username string) string { return "user:name:" + username }
func idKey(id string) string         { return "user:id:" + id }

func (c *RedisDirectory) Save(ctx context.Context, u *domain.User) error {
	return c.next.Save(ctx, u)
}

func (c *RedisDirectory) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return c.next.GetByEmail(ctx, email)
}

func (c *RedisDirectory) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return c.readThrough(ctx, nameKey(username), func() (*domain.User, error) {
		return c.next.GetByUsername(ctx, username)
	})
}

func (c *RedisDirectory) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return c.readThrough(ctx, idKey(id), func() (*domain.User, error) {
		return c.next.GetByID(ctx, id)
	})
}

// GetByIDs : MGET puis un seul appel au repository pour les absents.
func (c *RedisDirectory) GetByIDs(ctx context.Context, ids []string) ([]*domain.User, error) {
	if len(ids) == 0 {
		return []*domain.User{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = idKey(id)
	}

	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		slog.Warn("directory cache unavailable", "op", "mget", "error", err)
		return c.next.GetByIDs(ctx, ids)
	}

	out := make([]*domain.User, 0, len(ids))
	var missing []string
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		u, err := decode(s)
		if err != nil {
			missing = append(missing, ids[i])
			continue
		}
		out = append(out, u)
	}
	if len(missing) == 0 {
		return out, nil
	}

	loaded, err := c.next.GetByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	c.store(ctx, loaded...)
	return append(out, loaded...), nil
}

func (c *RedisDirectory) readThrough(ctx context.Context, key string, load func() (*domain.User, error)) (*domain.User, error) {
	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if u, err := decode(raw); err == nil {
			return u, nil
		}
		slog.Warn("directory cache entry corrupted", "key", key)
	case !errors.Is(err, redis.Nil):
		slog.Warn("directory cache unavailable", "op", "get", "error", err)
	}

	u, err := load()
	if err != nil {
		return nil, err
	}
	c.store(ctx, u)
	return u, nil
}

// store indexe chaque utilisateur par handle et par ID dans un seul pipeline.
func (c *RedisDirectory) store(ctx context.Context, users ...*domain.User) {
	if len(users) == 0 {
		return
	}
	pipe := c.client.Pipeline()
	for _, u := range users {
		data, err := json.Marshal(cachedUser(*u))
		if err != nil {
			continue
		}
		pipe.Set(ctx, nameKey(u.Username), data, c.ttl)
		pipe.Set(ctx, idKey(u.ID), data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("directory cache write failed", "error", err)
	}
}

func decode(raw string) (*domain.User, error) {
	var cu cachedUser
	if err := json.Unmarshal([]byte(raw), &cu); err != nil {
		return nil, err
	}
	u := domain.User(cu)
	return &u, nil
}
