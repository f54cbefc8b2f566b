package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bintangula23/kindbox/internal/users"
	"github.com/bintangula23/kindbox/pkg/models"
)

// CreateSession exchanges a Firebase ID token for an API session token. The
// profile document is created on first sign-in.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDToken  string `json:"id_token"`
		Name     string `json:"name"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.IDToken == "" {
		jsonError(w, "id_token is required", http.StatusBadRequest)
		return
	}

	identity, err := h.verifier.Verify(r.Context(), req.IDToken)
	if err != nil {
		jsonError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	name := req.Name
	if name == "" {
		name = identity.Email
	}
	username := req.Username
	if username == "" {
		username = identity.Email
	}
	user, err := h.users.Register(r.Context(), users.RegisterInput{
		ID:       identity.UID,
		Name:     name,
		Username: username,
		Email:    identity.Email,
	})
	if err != nil {
		domainError(w, err)
		return
	}

	tok, err := h.tokens.Generate(user.ID, user.Email)
	if err != nil {
		domainError(w, err)
		return
	}

	jsonResponse(w, map[string]interface{}{
		"token": tok,
		"user":  user,
	})
}

// GetProfile returns a user's public profile with goodness level and rating
// summary.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.users.Profile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		domainError(w, err)
		return
	}
	jsonResponse(w, p)
}

// UpdateMe edits the caller's own profile.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserID(r.Context())

	var req struct {
		Name           string `json:"name"`
		Username       string `json:"username"`
		Location       string `json:"location"`
		PhotoURL       string `json:"photo_url"`
		WhatsappNumber string `json:"whatsapp_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.users.Update(r.Context(), uid, users.UpdateInput{
		Name:           req.Name,
		Username:       req.Username,
		Location:       req.Location,
		PhotoURL:       req.PhotoURL,
		WhatsappNumber: req.WhatsappNumber,
	})
	if err != nil {
		domainError(w, err)
		return
	}
	jsonResponse(w, user)
}

// UserDonations returns the listings a user owns.
func (h *Handler) UserDonations(w http.ResponseWriter, r *http.Request) {
	donations, err := h.donations.ListByOwner(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		domainError(w, err)
		return
	}
	if donations == nil {
		donations = []models.Donation{}
	}
	jsonResponse(w, donations)
}

// UserInterests returns the listings a user has joined, in any ledger state.
func (h *Handler) UserInterests(w http.ResponseWriter, r *http.Request) {
	donations, err := h.donations.ListByInterest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		domainError(w, err)
		return
	}
	if donations == nil {
		donations = []models.Donation{}
	}
	jsonResponse(w, donations)
}

// SubmitRating records the caller's rating for a completed donation.
func (h *Handler) SubmitRating(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserID(r.Context())

	var req struct {
		DonationID string  `json:"donation_id"`
		Value      float64 `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.DonationID == "" {
		jsonError(w, "donation_id is required", http.StatusBadRequest)
		return
	}

	rating, err := h.ratings.Submit(r.Context(), req.DonationID, uid, req.Value)
	if err != nil {
		domainError(w, err)
		return
	}
	jsonCreated(w, rating)
}

// PresignUpload hands out a one-time upload URL for a listing photo.
func (h *Handler) PresignUpload(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		jsonError(w, "Image uploads are not configured", http.StatusServiceUnavailable)
		return
	}
	uid, _ := UserID(r.Context())

	var req struct {
		Filename    string `json:"filename"`
		ContentType string `json:"content_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Filename == "" {
		jsonError(w, "filename is required", http.StatusBadRequest)
		return
	}

	uploadURL, publicURL, err := h.uploader.PresignUpload(r.Context(), uid, req.Filename, req.ContentType)
	if err != nil {
		domainError(w, err)
		return
	}
	jsonResponse(w, map[string]string{
		"upload_url": uploadURL,
		"public_url": publicURL,
	})
}
