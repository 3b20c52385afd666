package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
)

const userColumns = `id::text, username, email, password_hash, registered_at`

type pgUsers struct {
	db querier
}

func (r *pgUsers) Save(ctx context.Context, u *domain.User) error {
	q := `
		INSERT INTO users (id, username, email, password_hash, registered_at)
		VALUES (@id, @username, @email, @password_hash, @registered_at)
	`
	_, err := r.db.Exec(ctx, q, pgx.NamedArgs{
		"id":            u.ID,
		"username":      u.Username,
		"email":         u.Email,
		"password_hash": u.PasswordHash,
		"registered_at": u.RegisteredAt,
	})
	if err != nil {
		return handleError("save user", err)
	}
	return nil
}

func (r *pgUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.one(ctx, "get user by id", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *pgUsers) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.one(ctx, "get user by username", `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *pgUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.one(ctx, "get user by email", `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// GetByIDs : un seul aller-retour via ANY($1)
func (r *pgUsers) GetByIDs(ctx context.Context, ids []string) ([]*domain.User, error) {
	if len(ids) == 0 {
		return []*domain.User{}, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, handleError("get users by ids", err)
	}
	users, err := pgx.CollectRows(rows, scanUser)
	if err != nil {
		return nil, handleError("get users by ids", err)
	}
	return users, nil
}

func (r *pgUsers) one(ctx context.Context, op, q string, arg string) (*domain.User, error) {
	rows, err := r.db.Query(ctx, q, arg)
	if err != nil {
		return nil, handleError(op, err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		return nil, handleError(op, err)
	}
	return u, nil
}

func scanUser(row pgx.CollectableRow) (*domain.User, error) {
	var (
		u  domain.User
		at time.Time
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &at); err != nil {
		return nil, err
	}
	u.RegisteredAt = at.UTC()
	return &u, nil
}
