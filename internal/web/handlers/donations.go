package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bintangula23/kindbox/internal/donation"
	"github.com/bintangula23/kindbox/pkg/models"
)

// donationRequest is the JSON payload for create and update.
type donationRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	ImageURL       string `json:"image_url"`
	Location       string `json:"location"`
	Category       string `json:"category"`
	Condition      string `json:"condition"`
	WhatsappNumber string `json:"whatsapp_number"`
	Quantity       int    `json:"quantity"`
}

// ListDonations returns all listings, optionally filtered by category and
// text search.
func (h *Handler) ListDonations(w http.ResponseWriter, r *http.Request) {
	filter := donation.ListFilter{
		Category:  r.URL.Query().Get("category"),
		Condition: r.URL.Query().Get("condition"),
		Search:    r.URL.Query().Get("q"),
	}

	donations, err := h.donations.List(r.Context(), filter)
	if err != nil {
		domainError(w, err)
		return
	}
	if donations == nil {
		donations = []models.Donation{}
	}
	jsonResponse(w, donations)
}

// GetDonation returns one listing with its derived interest count.
func (h *Handler) GetDonation(w http.ResponseWriter, r *http.Request) {
	d, err := h.donations.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		domainError(w, err)
		return
	}
	jsonResponse(w, d)
}

// CreateDonation creates a listing owned by the caller.
func (h *Handler) CreateDonation(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserID(r.Context())

	var req donationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	d, err := h.donations.Create(r.Context(), donation.CreateInput{
		OwnerID:        uid,
		Title:          req.Title,
		Description:    req.Description,
		ImageURL:       req.ImageURL,
		Location:       req.Location,
		Category:       req.Category,
		Condition:      req.Condition,
		WhatsappNumber: req.WhatsappNumber,
		Quantity:       req.Quantity,
	})
	if err != nil {
		domainError(w, err)
		return
	}
	jsonCreated(w, d)
}

// UpdateDonation applies an owner edit.
func (h *Handler) UpdateDonation(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserID(r.Context())

	var req donationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	d, err := h.donations.Update(r.Context(), chi.URLParam(r, "id"), uid, donation.UpdateInput{
		Title:          req.Title,
		Description:    req.Description,
		ImageURL:       req.ImageURL,
		Location:       req.Location,
		Category:       req.Category,
		Condition:      req.Condition,
		WhatsappNumber: req.WhatsappNumber,
		Quantity:       req.Quantity,
	})
	if err != nil {
		domainError(w, err)
		return
	}
	jsonResponse(w, d)
}

// DeleteDonation removes an owned listing.
func (h *Handler) DeleteDonation(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserID(r.Context())

	if err := h.donations.Delete(r.Context(), chi.URLParam(r, "id"), uid); err != nil {
		domainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExpressInterest adds the caller to a listing's pending set.
func (h *Handler) ExpressInterest(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserID(r.Context())

	result, err := h.donations.ExpressInterest(r.Context(), chi.URLParam(r, "id"), uid)
	if err != nil {
		domainError(w, err)
		return
	}
	jsonResponse(w, result)
}

// verifyRequest is the JSON payload for verification and rejection.
type verifyRequest struct {
	RecipientID string `json:"recipient_id"`
	Quantity    int    `json:"quantity"`
}

// VerifyRecipient accepts a pending recipient. Owner-only.
func (h *Handler) VerifyRecipient(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserID(r.Context())
	id := chi.URLParam(r, "id")

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.RecipientID == "" {
		jsonError(w, "recipient_id is required", http.StatusBadRequest)
		return
	}

	if err := h.requireOwner(r, id, uid); err != nil {
		domainError(w, err)
		return
	}

	result, err := h.donations.VerifyRecipient(r.Context(), id, req.RecipientID, req.Quantity)
	if err != nil {
		domainError(w, err)
		return
	}
	jsonResponse(w, result)
}

// RejectRecipient rejects a pending recipient. Owner-only.
func (h *Handler) RejectRecipient(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserID(r.Context())
	id := chi.URLParam(r, "id")

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.RecipientID == "" {
		jsonError(w, "recipient_id is required", http.StatusBadRequest)
		return
	}

	if err := h.requireOwner(r, id, uid); err != nil {
		domainError(w, err)
		return
	}

	result, err := h.donations.RejectRecipient(r.Context(), id, req.RecipientID)
	if err != nil {
		domainError(w, err)
		return
	}
	jsonResponse(w, result)
}

// requireOwner checks that uid owns the listing. Ownership never changes, so
// a read outside the workflow transaction is sufficient.
func (h *Handler) requireOwner(r *http.Request, donationID, uid string) error {
	d, err := h.donations.Get(r.Context(), donationID)
	if err != nil {
		return err
	}
	if d.OwnerID != uid {
		return donation.ErrNotOwner
	}
	return nil
}
