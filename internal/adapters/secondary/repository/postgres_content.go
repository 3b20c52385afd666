package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
)

// --- POSTS ---

const postColumns = `id::text, author_id::text, headline, body, created_at`

type pgPosts struct {
	db querier
}

func (r *pgPosts) Save(ctx context.Context, p *domain.Post) error {
	q := `INSERT INTO posts (id, author_id, headline, body, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.Exec(ctx, q, p.ID, p.AuthorID, p.Headline, p.Body, p.CreatedAt); err != nil {
		return handleError("save post", err)
	}
	return nil
}

func (r *pgPosts) FindByID(ctx context.Context, postID string) (*domain.Post, error) {
	rows, err := r.db.Query(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, postID)
	if err != nil {
		return nil, handleError("find post", err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPost)
	if err != nil {
		return nil, handleError("find post", err)
	}
	return p, nil
}

func (r *pgPosts) Delete(ctx context.Context, postID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, postID)
	if err != nil {
		return false, handleError("delete post", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListByAuthors : pagination par OFFSET, le contrat expose un numéro de page et un total.
func (r *pgPosts) ListByAuthors(ctx context.Context, authorIDs []string, req domain.PageRequest) ([]*domain.Post, int64, error) {
	if len(authorIDs) == 0 {
		return []*domain.Post{}, 0, nil
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM posts WHERE author_id = ANY($1::uuid[])`, authorIDs).Scan(&total); err != nil {
		return nil, 0, handleError("count posts", err)
	}

	q := `SELECT ` + postColumns + ` FROM posts WHERE author_id = ANY($1::uuid[]) ORDER BY ` + orderBy(req) + ` LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, q, authorIDs, req.Size, req.Offset())
	if err != nil {
		return nil, 0, handleError("list posts", err)
	}
	posts, err := pgx.CollectRows(rows, scanPost)
	if err != nil {
		return nil, 0, handleError("list posts", err)
	}
	return posts, total, nil
}

func scanPost(row pgx.CollectableRow) (*domain.Post, error) {
	var (
		p  domain.Post
		at time.Time
	)
	if err := row.Scan(&p.ID, &p.AuthorID, &p.Headline, &p.Body, &at); err != nil {
		return nil, err
	}
	p.CreatedAt = at.UTC()
	return &p, nil
}

// --- MESSAGES ---

const messageColumns = `id::text, sender_id::text, recipient_id::text, content, type, created_at`

type pgMessages struct {
	db querier
}

func (r *pgMessages) Save(ctx context.Context, m *domain.Message) error {
	q := `
		INSERT INTO messages (id, sender_id, recipient_id, content, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.Exec(ctx, q, m.ID, m.SenderID, m.RecipientID, m.Content, string(m.Type), m.CreatedAt); err != nil {
		return handleError("save message", err)
	}
	return nil
}

func (r *pgMessages) ListBetween(ctx context.Context, a, b string, req domain.PageRequest) ([]*domain.Message, int64, error) {
	where := ` WHERE sender_id IN ($1, $2) AND recipient_id IN ($1, $2)`

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM messages`+where, a, b).Scan(&total); err != nil {
		return nil, 0, handleError("count messages", err)
	}

	q := `SELECT ` + messageColumns + ` FROM messages` + where + ` ORDER BY ` + orderBy(req) + ` LIMIT $3 OFFSET $4`
	rows, err := r.db.Query(ctx, q, a, b, req.Size, req.Offset())
	if err != nil {
		return nil, 0, handleError("list messages", err)
	}
	msgs, err := pgx.CollectRows(rows, scanMessage)
	if err != nil {
		return nil, 0, handleError("list messages", err)
	}
	return msgs, total, nil
}

func (r *pgMessages) Latest(ctx context.Context, senderID, recipientID string, t domain.MessageType) (*domain.Message, error) {
	q := `
		SELECT ` + messageColumns + ` FROM messages
		WHERE sender_id = $1 AND recipient_id = $2 AND type = $3
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	rows, err := r.db.Query(ctx, q, senderID, recipientID, string(t))
	if err != nil {
		return nil, handleError("latest message", err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, scanMessage)
	if err != nil {
		return nil, handleError("latest "+string(t), err)
	}
	return m, nil
}

func scanMessage(row pgx.CollectableRow) (*domain.Message, error) {
	var (
		m  domain.Message
		t  string
		at time.Time
	)
	if err := row.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Content, &t, &at); err != nil {
		return nil, err
	}
	m.Type = domain.MessageType(t)
	m.CreatedAt = at.UTC()
	return &m, nil
}
