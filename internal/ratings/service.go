// Package ratings lets verified recipients leave a star rating for a donor,
// once per donation, and aggregates a donor's average at read time.
package ratings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bintangula23/kindbox/internal/store"
	"github.com/bintangula23/kindbox/pkg/models"
)

var (
	// ErrAlreadyRated is returned when the recipient has already rated this
	// donation.
	ErrAlreadyRated = errors.New("donation already rated by this recipient")

	// ErrNotVerified is returned when the recipient is not in the donation's
	// verified set.
	ErrNotVerified = errors.New("recipient is not verified for this donation")

	// ErrInvalidValue is returned for ratings outside the 1–5 star range.
	ErrInvalidValue = errors.New("rating must be between 1 and 5")
)

// DonationReader supplies the ledger state needed to gate rating submission.
type DonationReader interface {
	Get(ctx context.Context, id string) (*models.Donation, error)
}

// Service stores and aggregates ratings.
type Service struct {
	store     store.Store
	donations DonationReader
}

// New creates a rating service.
func New(s store.Store, donations DonationReader) *Service {
	return &Service{store: s, donations: donations}
}

// Submit records one rating from a verified recipient to the donation's owner.
func (s *Service) Submit(ctx context.Context, donationID, recipientID string, value float64) (*models.Rating, error) {
	if value < 1 || value > 5 {
		return nil, ErrInvalidValue
	}

	d, err := s.donations.Get(ctx, donationID)
	if err != nil {
		return nil, err
	}
	if status, _ := d.StatusOf(recipientID); status != models.InterestVerified {
		return nil, ErrNotVerified
	}

	existing, err := s.store.Query(ctx, store.Ratings, []store.Filter{
		{Path: "donationId", Op: "==", Value: donationID},
		{Path: "recipientId", Op: "==", Value: recipientID},
	})
	if err != nil {
		return nil, fmt.Errorf("check existing rating: %w", err)
	}
	if len(existing) > 0 {
		return nil, ErrAlreadyRated
	}

	rating := &models.Rating{
		ID:          uuid.New().String(),
		DonationID:  donationID,
		DonorID:     d.OwnerID,
		RecipientID: recipientID,
		Value:       value,
		CreatedAt:   time.Now(),
	}
	doc := store.Document{
		"donationId":  rating.DonationID,
		"donorId":     rating.DonorID,
		"recipientId": rating.RecipientID,
		"ratingValue": rating.Value,
		"createdAt":   rating.CreatedAt,
	}
	if err := s.store.Set(ctx, store.Ratings, rating.ID, doc); err != nil {
		return nil, fmt.Errorf("store rating: %w", err)
	}
	return rating, nil
}

// AverageForDonor returns the mean star value across all ratings received by
// a donor, and how many there are. No ratings yields (0, 0, nil).
func (s *Service) AverageForDonor(ctx context.Context, donorID string) (float64, int, error) {
	docs, err := s.store.Query(ctx, store.Ratings, []store.Filter{
		{Path: "donorId", Op: "==", Value: donorID},
	})
	if err != nil {
		return 0, 0, fmt.Errorf("query ratings: %w", err)
	}
	if len(docs) == 0 {
		return 0, 0, nil
	}

	var total float64
	for _, doc := range docs {
		total += doc.Float("ratingValue", 0)
	}
	return total / float64(len(docs)), len(docs), nil
}
