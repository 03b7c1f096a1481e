package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction statuses. Only completed transactions count towards sales.
const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
	StatusFailed    = "failed"
)

// UserRef is the buyer embedded in a transaction. It may be null when the
// account was removed on the backend.
type UserRef struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// ContentRef is the purchased title embedded in transactions and in the
// top-movies rollup.
type ContentRef struct {
	ID               string           `json:"_id"`
	Title            string           `json:"title"`
	HorizontalPoster string           `json:"horizontal_poster,omitempty"`
	PPVCost          *decimal.Decimal `json:"ppv_cost,omitempty"`
}

// Transaction is a single pay-per-view purchase as reported by the sales
// endpoints. Amount is a whole-currency decimal (rupees, not paise).
// Transactions are immutable once fetched.
type Transaction struct {
	ID               string          `json:"_id"`
	User             *UserRef        `json:"user"`
	Content          *ContentRef     `json:"contentId"`
	ContentType      string          `json:"contentType,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	PaymentReference string          `json:"paymentReference,omitempty"`
}

// UnmarshalJSON decodes a transaction leaving CreatedAt zero when
// created_at is missing, empty or not an RFC 3339 timestamp. Such records
// still list but never land in a daily bucket.
func (t *Transaction) UnmarshalJSON(b []byte) error {
	type plain Transaction
	aux := struct {
		*plain
		CreatedAt json.RawMessage `json:"created_at"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	t.CreatedAt = parseCreatedAt(aux.CreatedAt)
	return nil
}

func parseCreatedAt(raw json.RawMessage) time.Time {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil || s == "" {
		return time.Time{}
	}
	at, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return at
}

// Completed reports whether the transaction counts as a sale.
func (t Transaction) Completed() bool { return t.Status == StatusCompleted }

// ContentID returns the purchased content identifier or "".
func (t Transaction) ContentID() string {
	if t.Content == nil {
		return ""
	}
	return t.Content.ID
}

// BuyerEmail returns the buyer's email with the listing fallback.
func (t Transaction) BuyerEmail() string {
	if t.User == nil || t.User.Email == "" {
		return "Unknown User"
	}
	return t.User.Email
}

// ContentTitle returns the content title with the listing fallback.
func (t Transaction) ContentTitle() string {
	if t.Content == nil || t.Content.Title == "" {
		return "Unknown Content"
	}
	return t.Content.Title
}

// Movie is an entry of the movies catalogue used by the admin page.
type Movie struct {
	ID               string           `json:"_id"`
	Title            string           `json:"title"`
	Description      string           `json:"description,omitempty"`
	HorizontalPoster string           `json:"horizontal_poster,omitempty"`
	PPVCost          *decimal.Decimal `json:"ppv_cost,omitempty"`
}
