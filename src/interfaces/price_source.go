package interfaces

import (
	"context"
	"sync"

	"crypto-desk/src/models"
)

// -----------------------------------------------------------------------------
// IPriceSource is the contract for the external market-data provider client.
// -----------------------------------------------------------------------------

type IPriceSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// CurrentPrice returns the spot price of an asset in the given fiat.
	CurrentPrice(assetID, fiat string) (float64, error)

	// -----------------------------------------------------------------------------

	// PriceSeries returns the historical price series for a lookback window
	// given in hours. The window is converted to the provider's day-level
	// granularity (rounded up, minimum one day).
	PriceSeries(assetID, fiat string, hours int) ([]models.MChartPoint, error)

	// -----------------------------------------------------------------------------

	// ConvertRate returns the asset→fiat conversion rate, served from a short
	// lived in-process cache when fresh enough.
	ConvertRate(assetID, fiat string) (float64, error)

	// -----------------------------------------------------------------------------

	// UpdateSelection switches the asset/fiat pair the polling loop watches.
	UpdateSelection(assetID, fiat string)

	// -----------------------------------------------------------------------------

	// Start begins the periodic price polling loop.
	// ctx: controls the lifecycle (cancellation stops the source)
	// outputChan: channel ticks are pushed to
	// wg: WaitGroup to signal when the source has fully stopped
	Start(ctx context.Context, outputChan chan<- models.MPriceTick, wg *sync.WaitGroup) error

	// -----------------------------------------------------------------------------

	// Stop terminates the polling loop (manual stop; cancelling the context
	// passed to Start is the preferred path).
	Stop() error
}
