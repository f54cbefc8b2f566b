// Package handlers exposes the donation repository and its collaborators as
// a JSON API.
package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/bintangula23/kindbox/config"
	"github.com/bintangula23/kindbox/internal/auth"
	"github.com/bintangula23/kindbox/internal/donation"
	"github.com/bintangula23/kindbox/internal/images"
	"github.com/bintangula23/kindbox/internal/ratings"
	"github.com/bintangula23/kindbox/internal/token"
	"github.com/bintangula23/kindbox/internal/users"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	cfg       *config.Config
	donations *donation.Repository
	users     *users.Service
	ratings   *ratings.Service
	verifier  auth.Verifier
	tokens    *token.Service
	uploader  images.Uploader // nil when image uploads are not configured
}

// New creates a handler. uploader may be nil.
func New(cfg *config.Config, donations *donation.Repository, userSvc *users.Service,
	ratingSvc *ratings.Service, verifier auth.Verifier, tokens *token.Service,
	uploader images.Uploader) *Handler {
	return &Handler{
		cfg:       cfg,
		donations: donations,
		users:     userSvc,
		ratings:   ratingSvc,
		verifier:  verifier,
		tokens:    tokens,
		uploader:  uploader,
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// --- helpers ---

func jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func jsonCreated(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// domainError maps the typed workflow outcomes onto HTTP statuses. Anything
// unrecognized is an internal error and is logged rather than leaked.
func domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, donation.ErrNotFound), errors.Is(err, users.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, donation.ErrNotOwner), errors.Is(err, donation.ErrOwnListing):
		jsonError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, donation.ErrStockExhausted),
		errors.Is(err, donation.ErrInsufficientStock),
		errors.Is(err, donation.ErrNotPending),
		errors.Is(err, ratings.ErrAlreadyRated),
		errors.Is(err, ratings.ErrNotVerified):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, donation.ErrInvalidInput), errors.Is(err, ratings.ErrInvalidValue):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		log.Printf("internal error: %v", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
	}
}
