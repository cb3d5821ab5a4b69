package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/listkeep/internal/auth"
	"github.com/dukerupert/listkeep/internal/collection"
	"github.com/dukerupert/listkeep/internal/events"
	"github.com/dukerupert/listkeep/internal/handler"
	"github.com/dukerupert/listkeep/internal/identity"
	"github.com/dukerupert/listkeep/internal/middleware"
	"github.com/dukerupert/listkeep/internal/store"
	ws "github.com/dukerupert/listkeep/internal/websocket"
)

// Options carries the server's collaborators. Hub, Notifier and Events
// default to an in-process hub and a log publisher.
type Options struct {
	Provider   handler.IdentityProvider
	Keys       auth.Keys
	SessionTTL time.Duration

	Hub      *ws.Hub
	Notifier ws.Notifier
	Events   events.Publisher

	AuthRateLimit  int
	AuthRateWindow time.Duration
}

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	authH        *handler.AuthHandler
	todoH        *handler.TodoHandler
	journalH     *handler.JournalHandler
	streamH      *handler.StreamHandler
	sessionStore *store.SessionStore
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, opts Options, logger *slog.Logger) *Server {
	hub := opts.Hub
	if hub == nil {
		hub = ws.NewHub(logger.With("component", "websocket"))
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = hub
	}
	pub := opts.Events
	if pub == nil {
		pub = events.NewLogPublisher(logger.With("component", "events"))
	}
	if opts.AuthRateLimit <= 0 {
		opts.AuthRateLimit = 20
	}
	if opts.AuthRateWindow <= 0 {
		opts.AuthRateWindow = time.Minute
	}

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db, opts.Keys.Session)

	collLogger := logger.With("component", "collection")
	todos := collection.NewTodos(store.NewItemStore(db), hub, notifier, pub, collLogger)
	journals := collection.NewJournals(store.NewJournalStore(db), hub, notifier, pub, collLogger)

	v := handler.NewValidator()

	return &Server{
		db:  db,
		hub: hub,
		authH: handler.NewAuthHandler(userStore, sessionStore, opts.Provider,
			identity.NewStateSigner(opts.Keys.State), opts.SessionTTL, logger.With("component", "auth")),
		todoH:        handler.NewTodoHandler(todos, v, logger.With("component", "todo")),
		journalH:     handler.NewJournalHandler(journals, v, logger.With("component", "journal")),
		streamH:      handler.NewStreamHandler(todos, journals, logger.With("component", "stream")),
		sessionStore: sessionStore,
		rateLimiter:  middleware.NewRateLimiter(opts.AuthRateLimit, opts.AuthRateWindow),
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.Handle("GET /auth/login", s.signInLimited(s.authH.Login))
	outerMux.Handle("GET /auth/callback", s.signInLimited(s.authH.Callback))
	outerMux.HandleFunc("POST /auth/logout", s.authH.Logout)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"listeners": s.hub.ListenerCount(),
	})
}

// signInLimited puts h on the shared per-IP sign-in budget.
func (s *Server) signInLimited(h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.rateLimiter, "sign-in", s.logger.With("component", "ratelimit"))(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/me", s.authH.Me)

	// Todo API routes
	mux.HandleFunc("GET /api/todos", s.todoH.List)
	mux.HandleFunc("POST /api/todos", s.todoH.Create)
	mux.HandleFunc("GET /api/todos/stats", s.todoH.Statistics)
	mux.HandleFunc("PATCH /api/todos/{id}", s.todoH.UpdateField)
	mux.HandleFunc("PUT /api/todos/{id}/fields/{field}", s.todoH.MergeField)
	mux.HandleFunc("DELETE /api/todos/{id}", s.todoH.Delete)

	// Journal API routes
	mux.HandleFunc("GET /api/journals", s.journalH.List)
	mux.HandleFunc("POST /api/journals", s.journalH.Create)
	mux.HandleFunc("PUT /api/journals/{id}", s.journalH.Update)
	mux.HandleFunc("DELETE /api/journals/{id}", s.journalH.Delete)

	// Snapshot streams
	mux.HandleFunc("GET /ws/todos", s.streamH.Todos)
	mux.HandleFunc("GET /ws/journals", s.streamH.Journals)
}
