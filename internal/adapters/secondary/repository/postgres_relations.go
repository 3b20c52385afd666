package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
)

type pgRelations struct {
	db querier
}

// Add : ON CONFLICT DO NOTHING rend l'insertion idempotente.
func (r *pgRelations) Add(ctx context.Context, e domain.Edge) (bool, error) {
	q := `
		INSERT INTO relations (kind, subject_id, object_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (kind, subject_id, object_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, q, string(e.Kind), e.SubjectID, e.ObjectID, e.CreatedAt)
	if err != nil {
		return false, handleError("add "+string(e.Kind), err)
	}
	return tag.RowsAffected() == 1, nil
}

// Remove : deux DELETE concurrents sur la même ligne, un seul voit RowsAffected == 1.
func (r *pgRelations) Remove(ctx context.Context, kind domain.RelationKind, subjectID, objectID string) (bool, error) {
	q := `DELETE FROM relations WHERE kind = $1 AND subject_id = $2 AND object_id = $3`
	tag, err := r.db.Exec(ctx, q, string(kind), subjectID, objectID)
	if err != nil {
		return false, handleError("remove "+string(kind), err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgRelations) Exists(ctx context.Context, kind domain.RelationKind, subjectID, objectID string) (bool, error) {
	q := `SELECT EXISTS (SELECT 1 FROM relations WHERE kind = $1 AND subject_id = $2 AND object_id = $3)`
	var ok bool
	if err := r.db.QueryRow(ctx, q, string(kind), subjectID, objectID).Scan(&ok); err != nil {
		return false, handleError("exists "+string(kind), err)
	}
	return ok, nil
}

func (r *pgRelations) Neighbors(ctx context.Context, kind domain.RelationKind, userID string, dir domain.Direction) ([]string, error) {
	var q string
	switch dir {
	case domain.Outgoing:
		q = `SELECT object_id::text AS other FROM relations WHERE kind = $1 AND subject_id = $2`
	case domain.Incoming:
		q = `SELECT subject_id::text AS other FROM relations WHERE kind = $1 AND object_id = $2`
	default:
		q = `
			SELECT CASE WHEN subject_id = $2 THEN object_id ELSE subject_id END::text AS other
			FROM relations
			WHERE kind = $1 AND (subject_id = $2 OR object_id = $2)
		`
	}
	q += ` ORDER BY created_at, other`

	rows, err := r.db.Query(ctx, q, string(kind), userID)
	if err != nil {
		return nil, handleError("neighbors", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, handleError("neighbors", err)
	}
	return ids, nil
}
