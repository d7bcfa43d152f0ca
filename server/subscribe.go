package server

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"regexp"
	"strings"

	"contest-notifier/pkg/contest"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

type subscribeRequest struct {
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Channels []string `json:"channels"`
}

type unsubscribeRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ip := clientIP(r)
	if !s.limiter.allow(ip) {
		s.logger.Warn("Rate limit exceeded", "ip", ip)
		http.Error(w, "Too many requests. Please try again later.", http.StatusTooManyRequests)
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if !isValidEmail(email) {
		http.Error(w, "Invalid email address", http.StatusBadRequest)
		return
	}

	phone := normalizePhone(req.Phone)
	if req.Phone != "" && phone == "" {
		http.Error(w, "Invalid phone number", http.StatusBadRequest)
		return
	}

	channels, err := contest.ParseChannels(req.Channels)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if channels == 0 {
		channels = contest.ChannelEmail
	}

	sub := &contest.Subscriber{
		Email:    email,
		Phone:    phone,
		Channels: channels,
	}

	created, err := s.store.UpsertSubscriber(r.Context(), sub)
	if err != nil {
		s.logger.Error("Failed to save subscriber", "email", email, "error", err)
		http.Error(w, "Failed to save subscription", http.StatusInternalServerError)
		return
	}

	// At most one welcome notification, on first creation only. Failures
	// are logged, never surfaced: the subscription itself succeeded.
	if created {
		if sub.WantsEmail() {
			if err := s.emailer.SendWelcome(r.Context(), sub); err != nil {
				s.logger.Warn("Failed to send welcome email", "email", email, "error", err)
			}
		}
		if sub.WantsSMS() {
			if err := s.texter.SendWelcome(r.Context(), sub); err != nil {
				s.logger.Warn("Failed to send welcome SMS", "phone", phone, "error", err)
			}
		}
	}

	s.logger.Info("Subscription saved",
		"email", email,
		"channels", sub.Channels.String(),
		"created", created,
		"ip", ip)

	status := "updated"
	if created {
		status = "subscribed"
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   status,
		"email":    email,
		"channels": sub.Channels.Slice(),
	})
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ip := clientIP(r)
	if !s.limiter.allow(ip) {
		s.logger.Warn("Rate limit exceeded", "ip", ip)
		http.Error(w, "Too many requests. Please try again later.", http.StatusTooManyRequests)
		return
	}

	var req unsubscribeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if !isValidEmail(email) {
		http.Error(w, "Invalid email address", http.StatusBadRequest)
		return
	}

	if err := s.store.DeleteSubscriber(r.Context(), email); err != nil {
		if s.isNotFound(err) {
			s.writeJSON(w, http.StatusNotFound, map[string]string{"status": "not found"})
			return
		}
		s.logger.Error("Failed to delete subscriber", "email", email, "error", err)
		http.Error(w, "Failed to unsubscribe", http.StatusInternalServerError)
		return
	}

	s.logger.Info("Subscription removed", "email", email, "ip", ip)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "unsubscribed"})
}

func isValidEmail(email string) bool {
	if len(email) < 3 || len(email) > 254 {
		return false
	}

	// mail.ParseAddress for robust validation, regex to reject the
	// display-name forms it tolerates.
	_, err := mail.ParseAddress(email)
	return err == nil && emailRegex.MatchString(email)
}

// normalizePhone strips separators and validates an E.164-ish number.
// Returns "" for anything unusable.
func normalizePhone(phone string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))

	if cleaned == "" || !phoneRegex.MatchString(cleaned) {
		return ""
	}
	return cleaned
}
