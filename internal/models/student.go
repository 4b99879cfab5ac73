package models

import "time"

// Student is the read-only view of a learner from the student directory. The
// hourly rate is copied onto every session at creation time.
type Student struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	PricePerHour int64     `db:"price_per_hour" json:"pricePerHour"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}
