package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
)

type subscriberStore interface {
	AddSubscriber(email string) (bool, error)
}

type NewsletterHandler struct {
	Store subscriberStore
}

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Subscribe handles POST /api/newsletter.
func (h *NewsletterHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}
	if !emailRegex.MatchString(email) {
		writeError(w, http.StatusBadRequest, "Please enter a valid email address")
		return
	}

	added, err := h.Store.AddSubscriber(email)
	if err != nil {
		slog.Error("Failed to store newsletter subscriber", "error", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}

	if !added {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message":           "You are already subscribed!",
			"alreadySubscribed": true,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Thanks for subscribing!",
	})
}
