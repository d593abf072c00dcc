package models

import "encoding/json"

// -----------------------------------------------------------------------------

// MPriceTick is a single spot-price reading pushed by the polling loop.
type MPriceTick struct {
	AssetID   string  `json:"asset_id"`
	Fiat      string  `json:"fiat"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"` // unix milliseconds
}

// -----------------------------------------------------------------------------

// Change event types delivered by the backend's realtime channel.
const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
)

// MChangeEvent is a row-level change notification for a watched table. The
// record payload is kept raw: panel refreshes always refetch the whole table,
// so nothing downstream inspects individual rows.
type MChangeEvent struct {
	Table  string          `json:"table"`
	Type   string          `json:"type"`
	Record json.RawMessage `json:"record,omitempty"`
}
