package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
	"github.com/neon-kni6ht/social-media-api/internal/core/ports"
)

//go:embed schema.sql
var schema string

// querier est satisfait à la fois par le pool et par une pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implémente ports.Store sur un pgxpool.
// Dans WithinTx, les repositories partagent la même pgx.Tx ; un appel imbriqué ouvre un savepoint.
type PostgresStore struct {
	pool *pgxpool.Pool
	db   querier
	tx   pgx.Tx
}

var _ ports.Store = (*PostgresStore)(nil)

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, db: pool}
}

// EnsureSchema applique le DDL (idempotent).
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("db: ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Users() ports.UserRepository         { return &pgUsers{db: s.db} }
func (s *PostgresStore) Relations() ports.RelationRepository { return &pgRelations{db: s.db} }
func (s *PostgresStore) Posts() ports.PostRepository         { return &pgPosts{db: s.db} }
func (s *PostgresStore) Messages() ports.MessageRepository   { return &pgMessages{db: s.db} }

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx ports.Store) error) error {
	var b beginner = s.pool
	if s.tx != nil {
		b = s.tx
	}
	return pgx.BeginFunc(ctx, b, func(tx pgx.Tx) error {
		return fn(&PostgresStore{pool: s.pool, db: tx, tx: tx})
	})
}

// --- HELPERS ---

// handleError traduit les codes PostgreSQL en erreurs du domaine.
func handleError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("db: %s: %w", op, domain.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("db: %s: %w (%s)", op, domain.ErrAlreadyRegistered, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			return fmt.Errorf("db: %s: %w (%s)", op, domain.ErrNotFound, pgErr.ConstraintName)
		case "23514": // check_violation
			return fmt.Errorf("db: %s: %w (%s)", op, domain.ErrInvalidInput, pgErr.ConstraintName)
		case "22P02": // invalid_text_representation : un id qui n'est pas un UUID n'existe pas
			return fmt.Errorf("db: %s: %w", op, domain.ErrNotFound)
		}
	}
	return fmt.Errorf("db: %s: %w", op, err)
}

// orderBy ne reçoit jamais d'entrée utilisateur brute.
func orderBy(req domain.PageRequest) string {
	if req.Descending() {
		return "created_at DESC, id DESC"
	}
	return "created_at ASC, id ASC"
}
