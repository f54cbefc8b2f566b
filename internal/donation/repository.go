// Package donation holds the listing repository and the interest/verification
// workflow. Every ledger and stock mutation funnels through the store
// transactions in this package; nothing else may write those fields.
package donation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bintangula23/kindbox/internal/store"
	"github.com/bintangula23/kindbox/pkg/models"
)

// Firestore field names, kept identical to the production schema written by
// the mobile clients.
const (
	fieldOwner     = "userId"
	fieldTitle     = "title"
	fieldDesc      = "description"
	fieldImageURL  = "imageUrl"
	fieldLocation  = "location"
	fieldCategory  = "category"
	fieldCondition = "condition"
	fieldWhatsapp  = "whatsappNumber"
	fieldQuantity  = "quantity"
	fieldOriginal  = "originalQuantity"
	fieldCreatedAt = "createdAt"

	fieldPending  = "interestedUserIds"
	fieldVerified = "verifiedRecipients"
	fieldRejected = "rejectedRecipients"

	fieldCompletedCount = "completedDonationCount"
)

// Mirror is a passive read replica of the donations collection. StoreAll is
// best-effort; Fetch reports whether the mirror had anything to serve.
type Mirror interface {
	StoreAll(ctx context.Context, donations []models.Donation)
	Fetch(ctx context.Context) ([]models.Donation, bool)
}

// Repository mediates all access to donation listings.
type Repository struct {
	store  store.Store
	mirror Mirror // may be nil
}

// New creates a repository on the given store. mirror may be nil.
func New(s store.Store, mirror Mirror) *Repository {
	return &Repository{store: s, mirror: mirror}
}

// CreateInput is the payload for a new listing.
type CreateInput struct {
	OwnerID        string
	Title          string
	Description    string
	ImageURL       string
	Location       string
	Category       string
	Condition      string
	WhatsappNumber string
	Quantity       int
}

// UpdateInput is the payload for an owner edit of a listing's descriptive
// fields and total quantity.
type UpdateInput struct {
	Title          string
	Description    string
	ImageURL       string
	Location       string
	Category       string
	Condition      string
	WhatsappNumber string
	Quantity       int
}

// JoinResult is the outcome of ExpressInterest.
type JoinResult struct {
	// AlreadyInterested is true when the user was already in one of the
	// ledger sets and nothing was written.
	AlreadyInterested bool `json:"already_interested"`
	TotalInterest     int  `json:"total_interest"`
}

// VerifyResult is the outcome of a successful VerifyRecipient.
type VerifyResult struct {
	NewRemaining  int `json:"new_remaining"`
	TotalInterest int `json:"total_interest"`
}

// RejectResult is the outcome of a successful RejectRecipient.
type RejectResult struct {
	TotalInterest int `json:"total_interest"`
}

// Create validates and stores a new listing.
func (r *Repository) Create(ctx context.Context, in CreateInput) (*models.Donation, error) {
	if in.OwnerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", ErrInvalidInput)
	}
	if in.Title == "" || in.Location == "" {
		return nil, fmt.Errorf("%w: title and location are required", ErrInvalidInput)
	}
	if in.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}

	id := uuid.New().String()
	now := time.Now()
	doc := store.Document{
		"id":           id,
		fieldOwner:     in.OwnerID,
		fieldTitle:     in.Title,
		fieldDesc:      in.Description,
		fieldImageURL:  in.ImageURL,
		fieldLocation:  in.Location,
		fieldCategory:  in.Category,
		fieldCondition: in.Condition,
		fieldWhatsapp:  in.WhatsappNumber,
		fieldQuantity:  in.Quantity,
		fieldOriginal:  in.Quantity,
		fieldCreatedAt: now,
		fieldPending:   []string{},
		fieldVerified:  []string{},
		fieldRejected:  []string{},
	}

	if err := r.store.Set(ctx, store.Donations, id, doc); err != nil {
		return nil, fmt.Errorf("create donation: %w", err)
	}
	return decode(id, doc), nil
}

// Update applies an owner edit. Editing the quantity rewrites the original
// quantity; the remaining stock becomes the new total minus however many
// units are already allocated to verified recipients, floored at zero.
func (r *Repository) Update(ctx context.Context, id, ownerID string, in UpdateInput) (*models.Donation, error) {
	if in.Title == "" || in.Location == "" {
		return nil, fmt.Errorf("%w: title and location are required", ErrInvalidInput)
	}
	if in.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}

	var updated *models.Donation
	err := r.store.RunTransaction(ctx, func(tx store.Tx) error {
		doc, err := tx.Get(store.Donations, id)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if doc.String(fieldOwner, "") != ownerID {
			return ErrNotOwner
		}

		remaining := doc.Int(fieldQuantity, 1)
		original := doc.Int(fieldOriginal, remaining)
		allocated := original - remaining
		newRemaining := in.Quantity - allocated
		if newRemaining < 0 {
			newRemaining = 0
		}

		tx.Update(store.Donations, id, []store.Update{
			{Path: fieldTitle, Value: in.Title},
			{Path: fieldDesc, Value: in.Description},
			{Path: fieldImageURL, Value: in.ImageURL},
			{Path: fieldLocation, Value: in.Location},
			{Path: fieldCategory, Value: in.Category},
			{Path: fieldCondition, Value: in.Condition},
			{Path: fieldWhatsapp, Value: in.WhatsappNumber},
			{Path: fieldQuantity, Value: newRemaining},
			{Path: fieldOriginal, Value: in.Quantity},
		})

		doc[fieldTitle] = in.Title
		doc[fieldDesc] = in.Description
		doc[fieldImageURL] = in.ImageURL
		doc[fieldLocation] = in.Location
		doc[fieldCategory] = in.Category
		doc[fieldCondition] = in.Condition
		doc[fieldWhatsapp] = in.WhatsappNumber
		doc[fieldQuantity] = newRemaining
		doc[fieldOriginal] = in.Quantity
		updated = decode(id, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a listing. Only the owner may delete.
func (r *Repository) Delete(ctx context.Context, id, ownerID string) error {
	return r.store.RunTransaction(ctx, func(tx store.Tx) error {
		doc, err := tx.Get(store.Donations, id)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if doc.String(fieldOwner, "") != ownerID {
			return ErrNotOwner
		}
		tx.Delete(store.Donations, id)
		return nil
	})
}

// Get reads a single listing with the interest count derived from the ledger.
func (r *Repository) Get(ctx context.Context, id string) (*models.Donation, error) {
	doc, err := r.store.Get(ctx, store.Donations, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(id, doc), nil
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Category  string
	Condition string
	Search    string
}

// List reads all listings, applies the filter, and refreshes the read mirror
// with the unfiltered result. When the backing store is unreachable the
// mirror serves its last known state instead.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Donation, error) {
	docs, err := r.store.List(ctx, store.Donations)
	if err != nil {
		if r.mirror != nil {
			if cached, ok := r.mirror.Fetch(ctx); ok {
				log.Printf("donations list served from mirror: %v", err)
				return applyFilter(cached, filter), nil
			}
		}
		return nil, fmt.Errorf("list donations: %w", err)
	}

	donations := make([]models.Donation, 0, len(docs))
	for _, doc := range docs {
		donations = append(donations, *decode(doc.String("id", ""), doc))
	}

	if r.mirror != nil {
		r.mirror.StoreAll(ctx, donations)
	}
	return applyFilter(donations, filter), nil
}

// ListByOwner reads the listings created by one user ("giving" history).
func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]models.Donation, error) {
	docs, err := r.store.Query(ctx, store.Donations, []store.Filter{
		{Path: fieldOwner, Op: "==", Value: ownerID},
	})
	if err != nil {
		return nil, fmt.Errorf("list donations by owner: %w", err)
	}
	donations := make([]models.Donation, 0, len(docs))
	for _, doc := range docs {
		donations = append(donations, *decode(doc.String("id", ""), doc))
	}
	return donations, nil
}

// ListByInterest reads the listings whose ledger contains the user in any
// state ("interested" history).
func (r *Repository) ListByInterest(ctx context.Context, userID string) ([]models.Donation, error) {
	all, err := r.List(ctx, ListFilter{})
	if err != nil {
		return nil, err
	}
	var out []models.Donation
	for _, d := range all {
		if _, ok := d.StatusOf(userID); ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// ExpressInterest adds userID to the pending set of a listing. The operation
// is idempotent: a user already present in any ledger set is left untouched
// and reported as AlreadyInterested.
func (r *Repository) ExpressInterest(ctx context.Context, donationID, userID string) (*JoinResult, error) {
	var result JoinResult
	err := r.store.RunTransaction(ctx, func(tx store.Tx) error {
		doc, err := tx.Get(store.Donations, donationID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if doc.String(fieldOwner, "") == userID {
			return ErrOwnListing
		}

		d := decode(donationID, doc)
		if _, present := d.StatusOf(userID); present {
			result = JoinResult{AlreadyInterested: true, TotalInterest: d.TotalInterest}
			return nil
		}
		if d.RemainingQuantity <= 0 {
			return ErrStockExhausted
		}

		tx.Update(store.Donations, donationID, []store.Update{
			{Path: fieldPending, Value: store.ArrayUnion(userID)},
		})
		result = JoinResult{AlreadyInterested: false, TotalInterest: d.TotalInterest + 1}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// VerifyRecipient accepts a pending recipient: atomically decrements the
// remaining stock by qty, moves the recipient from pending to verified, and
// increments the owner's lifetime donation counter. qty defaults to 1.
//
// The whole read-modify-write runs as one store transaction; under a write
// conflict the store retries it from the top, so two owners racing for the
// last unit cannot both succeed.
func (r *Repository) VerifyRecipient(ctx context.Context, donationID, recipientID string, qty int) (*VerifyResult, error) {
	if qty < 1 {
		qty = 1
	}

	var result VerifyResult
	err := r.store.RunTransaction(ctx, func(tx store.Tx) error {
		doc, err := tx.Get(store.Donations, donationID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		d := decode(donationID, doc)

		// All reads must precede the first staged write.
		ownerID := d.OwnerID
		ownerExists := true
		if _, err := tx.Get(store.Users, ownerID); errors.Is(err, store.ErrNotFound) {
			ownerExists = false
		} else if err != nil {
			return err
		}

		if d.RemainingQuantity == 0 {
			return ErrStockExhausted
		}
		if d.RemainingQuantity < qty {
			return ErrInsufficientStock
		}
		if status, _ := d.StatusOf(recipientID); status != models.InterestPending {
			return ErrNotPending
		}

		tx.Update(store.Donations, donationID, []store.Update{
			{Path: fieldQuantity, Value: store.Increment(int64(-qty))},
			{Path: fieldPending, Value: store.ArrayRemove(recipientID)},
			{Path: fieldVerified, Value: store.ArrayUnion(recipientID)},
		})

		if ownerExists {
			tx.Update(store.Users, ownerID, []store.Update{
				{Path: fieldCompletedCount, Value: store.Increment(1)},
			})
		} else {
			// Legacy accounts may predate the users collection.
			tx.Set(store.Users, ownerID, store.Document{
				"id":                ownerID,
				fieldCompletedCount: 1,
			})
		}

		// A pure move between sets leaves the union size unchanged.
		result = VerifyResult{
			NewRemaining:  d.RemainingQuantity - qty,
			TotalInterest: d.TotalInterest,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RejectRecipient moves a pending recipient to the rejected set. Stock and
// the owner's counter are untouched.
func (r *Repository) RejectRecipient(ctx context.Context, donationID, recipientID string) (*RejectResult, error) {
	var result RejectResult
	err := r.store.RunTransaction(ctx, func(tx store.Tx) error {
		doc, err := tx.Get(store.Donations, donationID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		d := decode(donationID, doc)
		if status, _ := d.StatusOf(recipientID); status != models.InterestPending {
			return ErrNotPending
		}

		tx.Update(store.Donations, donationID, []store.Update{
			{Path: fieldPending, Value: store.ArrayRemove(recipientID)},
			{Path: fieldRejected, Value: store.ArrayUnion(recipientID)},
		})

		result = RejectResult{TotalInterest: d.TotalInterest}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// decode maps a raw document to the model. The interest count is recomputed
// from the union of the ledger sets on every read, and a missing original
// quantity on legacy documents falls back to the remaining quantity.
func decode(id string, doc store.Document) *models.Donation {
	remaining := doc.Int(fieldQuantity, 1)
	pending := doc.Strings(fieldPending)
	verified := doc.Strings(fieldVerified)
	rejected := doc.Strings(fieldRejected)

	return &models.Donation{
		ID:                id,
		OwnerID:           doc.String(fieldOwner, ""),
		Title:             doc.String(fieldTitle, "Untitled"),
		Description:       doc.String(fieldDesc, ""),
		ImageURL:          doc.String(fieldImageURL, ""),
		Location:          doc.String(fieldLocation, ""),
		Category:          doc.String(fieldCategory, ""),
		Condition:         doc.String(fieldCondition, ""),
		WhatsappNumber:    doc.String(fieldWhatsapp, ""),
		CreatedAt:         doc.Time(fieldCreatedAt),
		RemainingQuantity: remaining,
		OriginalQuantity:  doc.Int(fieldOriginal, remaining),
		Pending:           pending,
		Verified:          verified,
		Rejected:          rejected,
		TotalInterest:     unionSize(pending, verified, rejected),
	}
}

// unionSize counts distinct ids across the three ledger sets. The sets are
// disjoint by construction, but counting the union keeps the derivation
// honest even against malformed legacy documents.
func unionSize(sets ...[]string) int {
	seen := make(map[string]struct{})
	for _, set := range sets {
		for _, id := range set {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

// applyFilter narrows donations by category, condition, and case-insensitive
// text search over title and description.
func applyFilter(donations []models.Donation, filter ListFilter) []models.Donation {
	if filter.Category == "" && filter.Condition == "" && filter.Search == "" {
		return donations
	}
	q := strings.ToLower(filter.Search)
	out := make([]models.Donation, 0, len(donations))
	for _, d := range donations {
		if filter.Category != "" && d.Category != filter.Category {
			continue
		}
		if filter.Condition != "" && d.Condition != filter.Condition {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(d.Title), q) &&
			!strings.Contains(strings.ToLower(d.Description), q) {
			continue
		}
		out = append(out, d)
	}
	return out
}
