package rest

import (
	"time"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
)

// --- REQUÊTES ---

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type postRequest struct {
	Header  string `json:"header"`
	Content string `json:"content"`
}

type messageRequest struct {
	Content string `json:"content"`
}

// --- RÉPONSES ---

type idResponse struct {
	ID string `json:"id"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type userResponse struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	RegisteredAt time.Time `json:"registered_at"`
}

type postResponse struct {
	ID       string    `json:"id"`
	AuthorID string    `json:"author_id"`
	Header   string    `json:"header"`
	Content  string    `json:"content"`
	Date     time.Time `json:"date"`
}

type messageResponse struct {
	ID       string    `json:"id"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Content  *string   `json:"content"`
	Type     string    `json:"type"`
	DateTime time.Time `json:"date_time"`
}

type statusResponse struct {
	IsSubscribed    bool `json:"is_subscribed"`
	IsSubscribedBy  bool `json:"is_subscribed_by"`
	RequestSent     bool `json:"request_sent"`
	RequestReceived bool `json:"request_received"`
	AreFriends      bool `json:"are_friends"`
}

// postsPage et messagesPage gardent les clés de pagination historiques (currentPage, totalItems...).
type postsPage struct {
	Posts       []postResponse `json:"posts"`
	CurrentPage int            `json:"currentPage"`
	TotalItems  int64          `json:"totalItems"`
	TotalPages  int            `json:"totalPages"`
}

type messagesPage struct {
	Messages    []messageResponse `json:"messages"`
	CurrentPage int               `json:"currentPage"`
	TotalItems  int64             `json:"totalItems"`
	TotalPages  int               `json:"totalPages"`
}

// --- MAPPERS ---

func toUser(u *domain.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, RegisteredAt: u.RegisteredAt}
}

func toUsers(users []*domain.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUser(u))
	}
	return out
}

func toPost(p *domain.Post) postResponse {
	return postResponse{ID: p.ID, AuthorID: p.AuthorID, Header: p.Headline, Content: p.Body, Date: p.CreatedAt}
}

func toMessage(m *domain.Message) messageResponse {
	return messageResponse{
		ID:       m.ID,
		From:     m.SenderID,
		To:       m.RecipientID,
		Content:  m.Content,
		Type:     string(m.Type),
		DateTime: m.CreatedAt,
	}
}

func toPostsPage(p *domain.Page[*domain.Post]) postsPage {
	out := postsPage{Posts: make([]postResponse, 0, len(p.Items)), CurrentPage: p.Page, TotalItems: p.TotalItems, TotalPages: p.TotalPages}
	for _, post := range p.Items {
		out.Posts = append(out.Posts, toPost(post))
	}
	return out
}

func toMessagesPage(p *domain.Page[*domain.Message]) messagesPage {
	out := messagesPage{Messages: make([]messageResponse, 0, len(p.Items)), CurrentPage: p.Page, TotalItems: p.TotalItems, TotalPages: p.TotalPages}
	for _, m := range p.Items {
		out.Messages = append(out.Messages, toMessage(m))
	}
	return out
}
