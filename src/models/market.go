package models

// MMarket represents a tradable asset supported by the dashboard.
// The id field is the market-data provider's asset identifier
// (e.g. "bitcoin"), symbol is the ticker (e.g. "btc").
type MMarket struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// -----------------------------------------------------------------------------

// DefaultMarkets is the static catalog defined at startup. It is never
// mutated after init.
var DefaultMarkets = []MMarket{
	{ID: "bitcoin", Name: "Bitcoin", Symbol: "btc"},
	{ID: "ethereum", Name: "Ethereum", Symbol: "eth"},
	{ID: "litecoin", Name: "Litecoin", Symbol: "ltc"},
}

// -----------------------------------------------------------------------------

// FindMarket looks up a market by provider id. Returns nil if the id is not
// in the catalog.
func FindMarket(id string) *MMarket {
	for i := range DefaultMarkets {
		if DefaultMarkets[i].ID == id {
			return &DefaultMarkets[i]
		}
	}
	return nil
}
