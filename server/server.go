// Package server handles HTTP endpoints and request routing.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"contest-notifier/pkg/contest"
)

// Ticker runs one reminder pass.
type Ticker interface {
	Tick(ctx context.Context) error
}

// Store is the persistence surface the HTTP handlers need.
type Store interface {
	UpsertSubscriber(ctx context.Context, sub *contest.Subscriber) (created bool, err error)
	DeleteSubscriber(ctx context.Context, email string) error
	ListContests(ctx context.Context) ([]contest.Contest, error)
}

// Emailer sends welcome emails.
type Emailer interface {
	SendWelcome(ctx context.Context, sub *contest.Subscriber) error
}

// Texter sends welcome texts.
type Texter interface {
	SendWelcome(ctx context.Context, sub *contest.Subscriber) error
}

// IsNotFound reports whether a store error means "record absent".
type IsNotFound func(error) bool

// Server handles HTTP requests.
type Server struct {
	ticker       Ticker
	store        Store
	emailer      Emailer
	texter       Texter
	logger       *slog.Logger
	isNotFound   IsNotFound
	limiter      *ipRateLimiter
	triggerToken string
}

// Config holds server configuration.
type Config struct {
	Ticker       Ticker
	Store        Store
	Emailer      Emailer
	Texter       Texter
	Logger       *slog.Logger
	IsNotFound   IsNotFound
	TriggerToken string
}

// New creates a new HTTP server handler.
func New(cfg *Config) *Server {
	return &Server{
		ticker:       cfg.Ticker,
		store:        cfg.Store,
		emailer:      cfg.Emailer,
		texter:       cfg.Texter,
		logger:       cfg.Logger,
		isNotFound:   cfg.IsNotFound,
		triggerToken: cfg.TriggerToken,
		// 5 subscription calls per IP per hour, refilling continuously.
		limiter: newIPRateLimiter(rate.Every(12*time.Minute), 5),
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/tick", s.handleTick)
	mux.HandleFunc("/contests", s.handleContests)
	mux.HandleFunc("/subscribe", s.handleSubscribe)
	mux.HandleFunc("/unsubscribe", s.handleUnsubscribe)
	return mux
}

// ListenAndServe starts the server. Blocks until the listener fails or ctx
// is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, port string) error {
	// Timeouts prevent resource exhaustion from slow clients.
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      5 * time.Minute, // /tick runs a full pass synchronously
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "port", port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleTick runs one reminder pass synchronously. Callers must present
// the configured bearer token; this is what lets an external scheduler
// (Cloud Scheduler, cron + curl) drive the engine.
func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.authorized(r) {
		s.logger.Warn("Unauthorized tick attempt", "ip", clientIP(r))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	s.logger.Info("Tick endpoint triggered", "ip", clientIP(r))

	if err := s.ticker.Tick(r.Context()); err != nil {
		s.logger.Error("Tick failed", "error", err)
		http.Error(w, "Tick failed", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

// authorized checks the bearer token in constant time. An unset token
// disables the endpoint entirely rather than leaving it open.
func (s *Server) authorized(r *http.Request) bool {
	if s.triggerToken == "" {
		return false
	}
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(s.triggerToken)) == 1
}

type contestItem struct {
	StartsAt        time.Time `json:"starts_at"`
	ID              string    `json:"id"`
	Platform        string    `json:"platform"`
	Name            string    `json:"name"`
	URL             string    `json:"url"`
	DurationSeconds int64     `json:"duration_seconds"`
}

// handleContests returns the current contest cache, ascending by start
// instant. Reads never block on an in-progress tick.
func (s *Server) handleContests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	contests, err := s.store.ListContests(r.Context())
	if err != nil {
		s.logger.Error("Failed to list contests", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	items := make([]contestItem, 0, len(contests))
	for i := range contests {
		c := &contests[i]
		items = append(items, contestItem{
			ID:              c.ID(),
			Platform:        c.Platform.Label(),
			Name:            c.Name,
			URL:             c.URL,
			StartsAt:        c.StartsAt,
			DurationSeconds: int64(c.Duration.Seconds()),
		})
	}

	s.writeJSON(w, http.StatusOK, items)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}
