package rest

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
	"github.com/neon-kni6ht/social-media-api/internal/core/ports"
)

const (
	defaultPostsPageSize    = 3
	defaultMessagesPageSize = 5
)

// --- AUTH ---

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := a.svc.Directory.Register(r.Context(), ports.RegisterCmd{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: user.ID})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := a.svc.Directory.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	access, refresh, err := a.svc.Tokens.GenerateTokens(user)
	if err != nil {
		writeError(w, r, fmt.Errorf("generate tokens: %w", err))
		return
	}
	w.Header().Set("Authorization", "Bearer "+access)
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer"})
}

// --- RELATIONS ---

func (a *API) subscribe(w http.ResponseWriter, r *http.Request) {
	target, err := requiredParam(r, "subscribeTo")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.svc.Relations.Subscribe(r.Context(), ForContext(r.Context()), target); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *API) unsubscribe(w http.ResponseWriter, r *http.Request) {
	target, err := requiredParam(r, "unsubscribeFrom")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.svc.Relations.Unsubscribe(r.Context(), ForContext(r.Context()), target); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *API) sendFriendRequest(w http.ResponseWriter, r *http.Request) {
	a.relationTransition(w, r, "sendTo", func(me, other string) (*domain.Message, error) {
		return a.svc.Relations.SendFriendRequest(r.Context(), me, other)
	})
}

func (a *API) acceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	a.relationTransition(w, r, "add", func(me, other string) (*domain.Message, error) {
		return a.svc.Relations.AcceptFriendRequest(r.Context(), other, me)
	})
}

func (a *API) denyFriendRequest(w http.ResponseWriter, r *http.Request) {
	a.relationTransition(w, r, "deny", func(me, other string) (*domain.Message, error) {
		return a.svc.Relations.DenyFriendRequest(r.Context(), other, me)
	})
}

func (a *API) unfriend(w http.ResponseWriter, r *http.Request) {
	a.relationTransition(w, r, "remove", func(me, other string) (*domain.Message, error) {
		return a.svc.Relations.Unfriend(r.Context(), other, me)
	})
}

// relationTransition factorise les routes qui renvoient le message d'audit émis.
func (a *API) relationTransition(w http.ResponseWriter, r *http.Request, param string, fn func(me, other string) (*domain.Message, error)) {
	other, err := requiredParam(r, param)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg, err := fn(ForContext(r.Context()), other)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessage(msg))
}

func (a *API) relationStatus(w http.ResponseWriter, r *http.Request) {
	other, err := requiredParam(r, "with")
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err := a.svc.Relations.Status(r.Context(), ForContext(r.Context()), other)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse(*st))
}

func (a *API) relationView(w http.ResponseWriter, r *http.Request) {
	me := ForContext(r.Context())
	var (
		users []*domain.User
		err   error
	)
	switch mux.Vars(r)["view"] {
	case "subscriptions":
		users, err = a.svc.Relations.Subscriptions(r.Context(), me)
	case "subscribers":
		users, err = a.svc.Relations.Subscribers(r.Context(), me)
	case "friends":
		users, err = a.svc.Relations.Friends(r.Context(), me)
	case "incoming":
		users, err = a.svc.Relations.IncomingRequests(r.Context(), me)
	case "outgoing":
		users, err = a.svc.Relations.OutgoingRequests(r.Context(), me)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUsers(users))
}

func (a *API) suggestions(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	users, err := a.svc.Discovery.Suggest(r.Context(), ForContext(r.Context()), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUsers(users))
}

// --- MESSAGES ---

func (a *API) sendMessage(w http.ResponseWriter, r *http.Request) {
	to, err := requiredParam(r, "to")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req messageRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	msg, err := a.svc.Content.SendMessage(r.Context(), ForContext(r.Context()), to, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessage(msg))
}

func (a *API) messageHistory(w http.ResponseWriter, r *http.Request) {
	with, err := requiredParam(r, "with")
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := pageParam(r, defaultMessagesPageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := a.svc.Content.MessageHistory(r.Context(), ForContext(r.Context()), with, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessagesPage(page))
}

// latestMessage : dernier message de type donné envoyé par "from" à l'appelant.
func (a *API) latestMessage(w http.ResponseWriter, r *http.Request) {
	from, err := requiredParam(r, "from")
	if err != nil {
		writeError(w, r, err)
		return
	}
	kind, err := requiredParam(r, "type")
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := domain.ParseMessageType(kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg, err := a.svc.Content.LatestMessage(r.Context(), from, ForContext(r.Context()), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessage(msg))
}

// --- POSTS ---

func (a *API) posts(w http.ResponseWriter, r *http.Request) {
	req, err := pageParam(r, defaultPostsPageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := a.svc.Feed.PostsOf(r.Context(), ForContext(r.Context()), r.URL.Query().Get("user"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPostsPage(page))
}

func (a *API) feed(w http.ResponseWriter, r *http.Request) {
	req, err := pageParam(r, defaultPostsPageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := a.svc.Feed.Feed(r.Context(), ForContext(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPostsPage(page))
}

func (a *API) addPost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := a.svc.Content.AddPost(r.Context(), ForContext(r.Context()), req.Header, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (a *API) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := a.svc.Content.GetPost(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPost(post))
}

// removePost : seul l'auteur peut supprimer son post.
func (a *API) removePost(w http.ResponseWriter, r *http.Request) {
	id, err := requiredParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	me, err := a.svc.Directory.Resolve(r.Context(), ForContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	post, err := a.svc.Content.GetPost(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if post.AuthorID != me.ID {
		writeError(w, r, fmt.Errorf("%w: post %s belongs to another user", errForbidden, id))
		return
	}
	if err := a.svc.Content.RemovePost(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("post removed", "post_id", id, "author", me.Username)
	w.WriteHeader(http.StatusNoContent)
}
