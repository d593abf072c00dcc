package models

// ChartCapacity is the maximum number of points kept in the chart series.
// Oldest points are evicted first once the buffer is full.
const ChartCapacity = 500

// -----------------------------------------------------------------------------

// MChartPoint is a single point of the price chart series. Timestamp is unix
// milliseconds, matching the provider's wire format.
type MChartPoint struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}
