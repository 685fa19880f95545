package models

import "time"

type ConsultantProfile struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	FullName         *string   `json:"full_name"`
	Bio              *string   `json:"bio"`
	SessionRateCents *int64    `json:"session_rate_cents"`
	Currency         string    `json:"currency"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ConsultantListing is the directory view: profile plus rating aggregates
// computed from the ratings table on every read.
type ConsultantListing struct {
	ConsultantProfile
	AverageScore *float64 `json:"average_score"`
	ReviewCount  int      `json:"review_count"`
}
