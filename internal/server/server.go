package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/choreboard/internal/chore"
	"github.com/dukerupert/choreboard/internal/config"
	"github.com/dukerupert/choreboard/internal/database"
	"github.com/dukerupert/choreboard/internal/handler"
	"github.com/dukerupert/choreboard/internal/middleware"
	"github.com/dukerupert/choreboard/internal/store"
	ws "github.com/dukerupert/choreboard/internal/websocket"
)

const (
	loginRateWindow = time.Minute
	cleanupInterval = 10 * time.Minute
)

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	authH          *handler.AuthHandler
	familyH        *handler.FamilyHandler
	choreH         *handler.ChoreHandler
	rewardH        *handler.RewardHandler
	sessionStore   *store.SessionStore
	familyStore    *store.FamilyStore
	rateLimiter    *middleware.RateLimiter
	loginRateLimit int
	logger         *slog.Logger
}

func New(db *sql.DB, cfg config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	familyStore := store.NewFamilyStore(db)
	sessionStore := store.NewSessionStore(db)
	choreStore := store.NewChoreStore(db)
	rewardStore := store.NewRewardStore(db)

	choreSvc := chore.NewService(choreStore, logger.With("component", "chore_service"))

	return &Server{
		db:             db,
		hub:            hub,
		authH:          handler.NewAuthHandler(userStore, familyStore, sessionStore, cfg.SessionTTL, cfg.SecureCookies, logger.With("component", "auth")),
		familyH:        handler.NewFamilyHandler(familyStore, userStore, sessionStore, hub, logger.With("component", "family")),
		choreH:         handler.NewChoreHandler(choreStore, familyStore, choreSvc, hub, logger.With("component", "chore")),
		rewardH:        handler.NewRewardHandler(rewardStore, familyStore, hub, logger.With("component", "reward")),
		sessionStore:   sessionStore,
		familyStore:    familyStore,
		rateLimiter:    middleware.NewRateLimiter(),
		loginRateLimit: cfg.LoginRateLimit,
		logger:         logger,
	}
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RunCleanup removes expired sessions and stale rate-limit entries every
// interval until ctx is done.
func (s *Server) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = cleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.sessionStore.DeleteExpired()
			if err != nil {
				s.logger.Error("delete expired sessions", "error", err)
			} else if n > 0 {
				s.logger.Info("deleted expired sessions", "count", n)
			}
			if n := s.rateLimiter.Prune(); n > 0 {
				s.logger.Debug("pruned rate limit windows", "count", n)
			}
		}
	}
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.familyStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	version, err := database.Version(s.db)
	if err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{"status": status, "schema_version": version})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, s.loginRateLimit, loginRateWindow)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func admin(h http.HandlerFunc) http.Handler {
	return middleware.RequireAdmin(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Session
	mux.HandleFunc("POST /api/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)
	mux.HandleFunc("GET /api/families", s.authH.ListFamilies)
	mux.HandleFunc("POST /api/families/switch", s.authH.SwitchFamily)

	// Family
	mux.HandleFunc("GET /api/family", s.familyH.Get)
	mux.Handle("PUT /api/family", admin(s.familyH.Update))
	mux.HandleFunc("GET /api/family/members", s.familyH.ListMembers)
	mux.Handle("POST /api/family/members", admin(s.familyH.AddMember))
	mux.Handle("PUT /api/family/members/{id}", admin(s.familyH.UpdateMember))
	mux.Handle("DELETE /api/family/members/{id}", admin(s.familyH.RemoveMember))
	mux.HandleFunc("GET /api/family/members/{id}/points", s.rewardH.GetPointBalance)
	mux.HandleFunc("GET /api/family/members/{id}/redemptions", s.rewardH.ListRedemptions)

	// Chores
	mux.Handle("POST /api/chores", admin(s.choreH.Create))
	mux.HandleFunc("GET /api/chores", s.choreH.List)
	mux.HandleFunc("GET /api/chores/{id}", s.choreH.Get)
	mux.Handle("PUT /api/chores/{id}", admin(s.choreH.Update))
	mux.Handle("DELETE /api/chores/{id}", admin(s.choreH.Delete))
	mux.HandleFunc("GET /api/chores/{id}/occurrences", s.choreH.Occurrences)
	mux.HandleFunc("GET /api/chores/{id}/instances", s.choreH.History)

	// Day list and instance state
	mux.HandleFunc("GET /api/day", s.choreH.Day)
	mux.HandleFunc("PUT /api/chore-instances", s.choreH.SetInstance)

	// Rewards and points
	mux.Handle("POST /api/rewards", admin(s.rewardH.Create))
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.Handle("PUT /api/rewards/{id}", admin(s.rewardH.Update))
	mux.Handle("DELETE /api/rewards/{id}", admin(s.rewardH.Delete))
	mux.HandleFunc("POST /api/rewards/{id}/redeem", s.rewardH.Redeem)
	mux.HandleFunc("GET /api/points", s.rewardH.GetLeaderboard)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))
}
