package models

import "github.com/google/uuid"

// MWallet represents a user's balance row as stored by the backend service.
// Wallets are read-only from this system's perspective.
type MWallet struct {
	ID      int64     `json:"id"`
	UserID  uuid.UUID `json:"user_id"`
	Asset   string    `json:"asset"`
	Symbol  string    `json:"symbol"`
	Balance float64   `json:"balance"`
}
