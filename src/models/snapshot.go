package models

import "time"

// -----------------------------------------------------------------------------
// Desk Snapshot Structure (full server state pushed to clients)
// -----------------------------------------------------------------------------

// MDeskSnapshot is the rendered state of all four dashboard panels plus the
// market catalog. Snapshots are immutable once produced; every re-render
// replaces the whole thing.
type MDeskSnapshot struct {
	Type         string        `json:"type"` // "INITIAL" or "UPDATE"
	MarketTitle  string        `json:"market_title"`
	Ticker       string        `json:"ticker"`
	Fiat         string        `json:"fiat"`
	Chart        []MChartPoint `json:"chart"`
	Balances     MBalancePanel `json:"balances"`
	OpenOrders   MOrderPanel   `json:"open_orders"`
	RecentTrades MTradePanel   `json:"recent_trades"`
	SignedIn     bool          `json:"signed_in"`
	Markets      []MMarket     `json:"markets"`
	Timestamp    int64         `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// Panel Structures
// -----------------------------------------------------------------------------

// MBalancePanel lists the user's wallets with converted display values.
// Placeholder is set instead of entries when there is nothing to show
// (signed out, no wallets, load error).
type MBalancePanel struct {
	Placeholder string          `json:"placeholder,omitempty"`
	Entries     []MBalanceEntry `json:"entries,omitempty"`
}

type MBalanceEntry struct {
	Asset     string  `json:"asset"`
	Symbol    string  `json:"symbol"`
	Balance   float64 `json:"balance"`
	Converted string  `json:"converted"` // formatted fiat value, or the placeholder dash
}

// -----------------------------------------------------------------------------

type MOrderPanel struct {
	Placeholder string        `json:"placeholder,omitempty"`
	Entries     []MOrderEntry `json:"entries,omitempty"`
}

type MOrderEntry struct {
	Side      string    `json:"side"`
	Quantity  float64   `json:"quantity"`
	Symbol    string    `json:"symbol"`
	Price     string    `json:"price"` // formatted in the selected fiat
	CreatedAt time.Time `json:"created_at"`
}

// -----------------------------------------------------------------------------

type MTradePanel struct {
	Placeholder string        `json:"placeholder,omitempty"`
	Entries     []MTradeEntry `json:"entries,omitempty"`
}

type MTradeEntry struct {
	Quantity   float64   `json:"quantity"`
	Symbol     string    `json:"symbol"`
	Price      string    `json:"price"` // formatted in the selected fiat
	ExecutedAt time.Time `json:"executed_at"`
}
