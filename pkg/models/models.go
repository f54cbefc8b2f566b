package models

import "time"

// User represents a registered KindBox user. The password never touches this
// service — authentication is delegated to the identity provider, which hands
// us a stable uid.
type User struct {
	ID                     string    `json:"id"`
	Name                   string    `json:"name"`
	Username               string    `json:"username"`
	Email                  string    `json:"email"`
	Location               string    `json:"location"`
	PhotoURL               string    `json:"photo_url"`
	WhatsappNumber         string    `json:"whatsapp_number"`
	CompletedDonationCount int       `json:"completed_donation_count"`
	CreatedAt              time.Time `json:"created_at"`
}

// GoodnessLevel derives the presentational "goodness level" from the lifetime
// donation counter. Level 1 at zero completed donations, +1 every five.
func (u *User) GoodnessLevel() int {
	return u.CompletedDonationCount/5 + 1
}

// Profile is a user plus the read-time aggregates shown on the profile screen.
type Profile struct {
	User
	GoodnessLevel int     `json:"goodness_level"`
	AverageRating float64 `json:"average_rating"`
	RatingCount   int     `json:"rating_count"`
}
