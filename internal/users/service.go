// Package users manages user profile documents. Account credentials live in
// the identity provider; this service only stores the profile fields the app
// shows and the lifetime donation counter the verification transaction
// maintains.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bintangula23/kindbox/internal/store"
	"github.com/bintangula23/kindbox/pkg/models"
)

// ErrNotFound is returned when the user document does not exist.
var ErrNotFound = errors.New("user not found")

// Ratings aggregates the stars a donor has received.
type Ratings interface {
	AverageForDonor(ctx context.Context, donorID string) (avg float64, count int, err error)
}

// Service reads and writes user profiles.
type Service struct {
	store   store.Store
	ratings Ratings // may be nil
}

// New creates a user service. ratings may be nil, in which case profiles
// report a zero average.
func New(s store.Store, ratings Ratings) *Service {
	return &Service{store: s, ratings: ratings}
}

// RegisterInput holds the profile fields captured at sign-up. The ID is the
// uid issued by the identity provider.
type RegisterInput struct {
	ID       string
	Name     string
	Username string
	Email    string
}

// Register creates the profile document for a freshly authenticated account.
// Registering an existing id overwrites nothing and returns the stored user.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if in.ID == "" || in.Name == "" || in.Username == "" {
		return nil, fmt.Errorf("id, name and username are required")
	}

	if existing, err := s.Get(ctx, in.ID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	doc := store.Document{
		"id":        in.ID,
		"name":      in.Name,
		"username":  in.Username,
		"email":     in.Email,
		"createdAt": time.Now(),
	}
	if err := s.store.Set(ctx, store.Users, in.ID, doc); err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}
	return decode(in.ID, doc), nil
}

// Get reads one user.
func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	doc, err := s.store.Get(ctx, store.Users, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(id, doc), nil
}

// Profile reads one user with the derived goodness level and rating average.
func (s *Service) Profile(ctx context.Context, id string) (*models.Profile, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	p := &models.Profile{User: *user, GoodnessLevel: user.GoodnessLevel()}
	if s.ratings != nil {
		avg, count, err := s.ratings.AverageForDonor(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("profile ratings: %w", err)
		}
		p.AverageRating = avg
		p.RatingCount = count
	}
	return p, nil
}

// UpdateInput holds the editable profile fields.
type UpdateInput struct {
	Name           string
	Username       string
	Location       string
	PhotoURL       string
	WhatsappNumber string
}

// Update edits the caller's own profile. The donation counter is not
// touchable here; only the verification transaction moves it.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*models.User, error) {
	err := s.store.Update(ctx, store.Users, id, []store.Update{
		{Path: "name", Value: in.Name},
		{Path: "username", Value: in.Username},
		{Path: "location", Value: in.Location},
		{Path: "photoUrl", Value: in.PhotoURL},
		{Path: "whatsappNumber", Value: in.WhatsappNumber},
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.Get(ctx, id)
}

func decode(id string, doc store.Document) *models.User {
	return &models.User{
		ID:                     id,
		Name:                   doc.String("name", "KindBox User"),
		Username:               doc.String("username", ""),
		Email:                  doc.String("email", ""),
		Location:               doc.String("location", ""),
		PhotoURL:               doc.String("photoUrl", ""),
		WhatsappNumber:         doc.String("whatsappNumber", ""),
		CompletedDonationCount: doc.Int("completedDonationCount", 0),
		CreatedAt:              doc.Time("createdAt"),
	}
}
