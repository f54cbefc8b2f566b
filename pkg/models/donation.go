package models

import "time"

// InterestStatus is the membership state of a recipient with respect to one
// donation. The three states are mutually exclusive: a user moves from
// pending to exactly one of verified or rejected and never back.
type InterestStatus string

const (
	InterestPending  InterestStatus = "PENDING"
	InterestVerified InterestStatus = "VERIFIED"
	InterestRejected InterestStatus = "REJECTED"
)

// Donation is one listing: an item (or several units of one) offered for
// free by its owner.
type Donation struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	ImageURL       string    `json:"image_url"`
	Location       string    `json:"location"`
	Category       string    `json:"category"`
	Condition      string    `json:"condition"`
	WhatsappNumber string    `json:"whatsapp_number"`
	CreatedAt      time.Time `json:"created_at"`

	// RemainingQuantity is the stock not yet allocated to a verified
	// recipient. Mutated only by the verification transaction.
	RemainingQuantity int `json:"remaining_quantity"`
	// OriginalQuantity is the stock at creation (or last owner edit).
	OriginalQuantity int `json:"original_quantity"`

	// The interest ledger: user ids by membership state.
	Pending  []string `json:"pending"`
	Verified []string `json:"verified"`
	Rejected []string `json:"rejected"`

	// TotalInterest is always derived as the size of the union of the three
	// ledger sets, never read from a stored counter.
	TotalInterest int `json:"total_interest"`
}

// StatusOf reports the ledger state of userID for this donation, and whether
// the user appears in the ledger at all.
func (d *Donation) StatusOf(userID string) (InterestStatus, bool) {
	for _, id := range d.Verified {
		if id == userID {
			return InterestVerified, true
		}
	}
	for _, id := range d.Rejected {
		if id == userID {
			return InterestRejected, true
		}
	}
	for _, id := range d.Pending {
		if id == userID {
			return InterestPending, true
		}
	}
	return "", false
}

// Rating is one star rating left by a verified recipient for a donor.
type Rating struct {
	ID          string    `json:"id"`
	DonationID  string    `json:"donation_id"`
	DonorID     string    `json:"donor_id"`
	RecipientID string    `json:"recipient_id"`
	Value       float64   `json:"value"`
	CreatedAt   time.Time `json:"created_at"`
}
