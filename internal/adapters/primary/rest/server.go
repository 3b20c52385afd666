package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/neon-kni6ht/social-media-api/internal/core/ports"
)

// Services regroupe les ports primaires exposés en REST.
type Services struct {
	Directory ports.Directory
	Relations ports.RelationGraph
	Content   ports.ContentStore
	Feed      ports.Feed
	Discovery ports.Discovery
	Tokens    ports.TokenProvider
}

type Options struct {
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	// Ready est appelé par /healthz (ping DB, NATS...). nil = toujours prêt.
	Ready func(ctx context.Context) error
	// Metrics est monté sur /metrics s'il est fourni (promhttp).
	Metrics http.Handler
}

// API adapte les requêtes HTTP vers les ports primaires du coeur.
type API struct {
	svc     Services
	opts    Options
	router  *mux.Router
	limiter *rateLimiter
}

func NewAPI(svc Services, opts Options) *API {
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 5
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 30
	}
	a := &API{
		svc:     svc,
		opts:    opts,
		router:  mux.NewRouter(),
		limiter: newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
	}
	a.routes()
	return a
}

func (a *API) routes() {
	r := a.router
	r.Use(monitor)

	r.HandleFunc("/healthz", a.health).Methods(http.MethodGet)
	if a.opts.Metrics != nil {
		r.Handle("/metrics", a.opts.Metrics).Methods(http.MethodGet)
	}

	// Routes publiques
	public := r.NewRoute().Subrouter()
	public.Use(a.limiter.middleware)
	public.HandleFunc("/register", a.register).Methods(http.MethodPost)
	public.HandleFunc("/login", a.login).Methods(http.MethodPost)

	// Routes protégées : le handle vient du token, jamais d'un paramètre
	api := r.NewRoute().Subrouter()
	api.Use(a.limiter.middleware, requireAuth(a.svc.Tokens))

	api.HandleFunc("/subscribe", a.subscribe).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/subscribe", a.unsubscribe).Methods(http.MethodDelete)

	api.HandleFunc("/friend_request", a.sendFriendRequest).Methods(http.MethodPost)
	api.HandleFunc("/friend_request", a.acceptFriendRequest).Methods(http.MethodGet)
	api.HandleFunc("/friend_request", a.denyFriendRequest).Methods(http.MethodDelete)
	api.HandleFunc("/friend", a.unfriend).Methods(http.MethodDelete)
	api.HandleFunc("/friend/status", a.relationStatus).Methods(http.MethodGet)
	api.HandleFunc("/relations/{view:subscriptions|subscribers|friends|incoming|outgoing}", a.relationView).Methods(http.MethodGet)
	api.HandleFunc("/suggestions", a.suggestions).Methods(http.MethodGet)

	api.HandleFunc("/user", a.sendMessage).Methods(http.MethodPost)
	api.HandleFunc("/user", a.messageHistory).Methods(http.MethodGet)
	api.HandleFunc("/user/latest", a.latestMessage).Methods(http.MethodGet)

	api.HandleFunc("/post", a.posts).Methods(http.MethodGet)
	api.HandleFunc("/post", a.addPost).Methods(http.MethodPost)
	api.HandleFunc("/post", a.removePost).Methods(http.MethodDelete)
	api.HandleFunc("/post/{id}", a.getPost).Methods(http.MethodGet)
	api.HandleFunc("/feed", a.feed).Methods(http.MethodGet)
}

// Handler renvoie la chaîne complète : recovery, CORS, puis OTEL en racine.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.router

	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelError)),
		handlers.PrintRecoveryStack(true),
	)(h)

	origins := a.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	h = cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "baggage", "traceparent"},
		AllowCredentials: true,
	}).Handler(h)

	return otelhttp.NewHandler(h, "social-media-api")
}

// RunJanitor purge périodiquement les limiteurs inactifs jusqu'à l'annulation de ctx.
func (a *API) RunJanitor(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.limiter.sweep(3 * time.Minute)
		}
	}
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	if a.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.opts.Ready(ctx); err != nil {
			slog.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
