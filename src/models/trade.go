package models

import "time"

// MTrade represents an executed trade. Trades are read-only historical
// records; this system never creates them.
type MTrade struct {
	ID         int64     `json:"id"`
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	Quantity   float64   `json:"quantity"`
	ExecutedAt time.Time `json:"executed_at"`
}
