package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

// Deps is everything the router needs. Redis and WebDir are optional.
type Deps struct {
	Events        *EventHandler
	Auth          *AuthHandler
	Games         *GameHandler
	Authenticator Authenticator
	Limiter       *RateLimiter
	Redis         *redis.Client
	CacheTTL      time.Duration
	ImageDir      string
	WebDir        string
}

// NewRouter builds the chi router with the global middleware stack.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger)
	r.Use(CORS)
	r.Use(Authenticate(d.Authenticator))

	r.Get("/health", HealthCheck)

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if d.Limiter != nil {
				r.Use(d.Limiter.Middleware)
			}
			r.Post("/register", d.Auth.Register)
			r.Post("/login", d.Auth.Login)
		})
		r.With(RequireUser).Post("/logout", d.Auth.Logout)
	})

	r.Route("/users/me", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(RequireUser)
			r.Get("/", d.Auth.Me)
			r.Get("/events", d.Events.MyEvents)
			r.Get("/events.ics", d.Events.MyCalendar)
		})
	})

	r.Route("/events", func(r chi.Router) {
		r.Get("/", d.Events.ListEvents)
		r.Get("/{id}", d.Events.GetEvent)
		r.With(RequireAdmin).Post("/", d.Events.CreateEvent)

		r.Group(func(r chi.Router) {
			r.Use(RequireUser)
			if d.Limiter != nil {
				r.Use(d.Limiter.Middleware)
			}
			r.Post("/{id}/signup", d.Events.Signup)
			r.Delete("/{id}/signup", d.Events.Withdraw)
		})
	})

	games := r.With()
	if d.Redis != nil {
		games = r.With(ResponseCache(d.Redis, d.CacheTTL))
	}
	games.Get("/games", d.Games.Search)

	if d.ImageDir != "" {
		r.Handle("/img/*", http.StripPrefix("/img/", http.FileServer(http.Dir(d.ImageDir))))
	}
	// Static HTML – serve the web directory at the root.
	if d.WebDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(d.WebDir)))
	}
	return r
}
