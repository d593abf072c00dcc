package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"crypto-desk/src/helpers"
	"crypto-desk/src/interfaces"
	"crypto-desk/src/logger"
	"crypto-desk/src/models"
)

// -----------------------------------------------------------------------------

// selection is the asset/fiat pair the polling loop watches. Swapped
// atomically as a unit so the loop never sees a half-updated pair.
type selection struct {
	AssetID string
	Fiat    string
}

// -----------------------------------------------------------------------------

type CoinGeckoSource struct {
	Config     *models.MConfig
	Network    interfaces.INetworkManager
	Logger     *logger.Logger
	rates      *RateCache
	selected   atomic.Value // stores selection
	cancelFunc context.CancelFunc
	ctx        context.Context
	outputChan chan<- models.MPriceTick
	isRunning  atomic.Bool
	mu         sync.Mutex
}

// -----------------------------------------------------------------------------

func NewCoinGeckoSource(cfg *models.MConfig, netMgr interfaces.INetworkManager) *CoinGeckoSource {
	s := &CoinGeckoSource{
		Config:  cfg,
		Network: netMgr,
		Logger:  logger.NewLogger(cfg, "CoinGeckoSource"),
		rates:   NewRateCache(time.Duration(cfg.MarketData.RateCacheSeconds) * time.Second),
	}
	s.selected.Store(selection{AssetID: models.DefaultMarkets[0].ID, Fiat: "usd"})
	return s
}

// -----------------------------------------------------------------------------

func (s *CoinGeckoSource) Name() string {
	return "coingecko"
}

// -----------------------------------------------------------------------------
// Provider Response Structures
// -----------------------------------------------------------------------------

// simplePriceResponse mirrors /simple/price: asset id → fiat code → price.
type simplePriceResponse map[string]map[string]float64

// marketChartResponse mirrors /coins/{id}/market_chart. Each price entry is a
// [timestamp_ms, price] pair.
type marketChartResponse struct {
	Prices [][]float64 `json:"prices"`
}

// -----------------------------------------------------------------------------

// CurrentPrice fetches the spot price for an asset in the given fiat. A
// response that lacks the requested asset or fiat key is an error; callers
// log it and keep their previous value.
func (s *CoinGeckoSource) CurrentPrice(assetID, fiat string) (float64, error) {
	url := fmt.Sprintf("%s/simple/price", s.Config.MarketData.BaseURL)
	respBytes, err := s.Network.Get(url, map[string]string{
		"ids":           assetID,
		"vs_currencies": fiat,
	})
	if err != nil {
		return 0, helpers.NewNetworkError(fmt.Sprintf("price fetch failed for %s/%s", assetID, fiat), err)
	}

	var resp simplePriceResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return 0, helpers.NewNetworkError("price response unmarshal failed", err)
	}

	price, ok := resp[assetID][fiat]
	if !ok {
		return 0, helpers.NewNetworkError(fmt.Sprintf("no %s price for %s in response", fiat, assetID), nil)
	}

	return price, nil
}

// -----------------------------------------------------------------------------

// DaysForHours converts a lookback window in hours to the provider's day
// granularity: rounded up, minimum 1.
func DaysForHours(hours int) int {
	days := (hours + 23) / 24
	if days < 1 {
		days = 1
	}
	return days
}

// -----------------------------------------------------------------------------

// PriceSeries fetches the historical series for the given window and maps the
// raw [timestamp, price] pairs to chart points.
func (s *CoinGeckoSource) PriceSeries(assetID, fiat string, hours int) ([]models.MChartPoint, error) {
	url := fmt.Sprintf("%s/coins/%s/market_chart", s.Config.MarketData.BaseURL, assetID)
	respBytes, err := s.Network.Get(url, map[string]string{
		"vs_currency": fiat,
		"days":        fmt.Sprintf("%d", DaysForHours(hours)),
	})
	if err != nil {
		return nil, helpers.NewNetworkError(fmt.Sprintf("chart fetch failed for %s/%s", assetID, fiat), err)
	}

	var resp marketChartResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, helpers.NewNetworkError("chart response unmarshal failed", err)
	}

	series := make([]models.MChartPoint, 0, len(resp.Prices))
	for _, pair := range resp.Prices {
		if len(pair) < 2 {
			continue
		}
		series = append(series, models.MChartPoint{
			Timestamp: int64(pair[0]),
			Price:     pair[1],
		})
	}

	s.Logger.Debug("Fetched %d chart points for %s/%s", len(series), assetID, fiat)
	return series, nil
}

// -----------------------------------------------------------------------------

// ConvertRate returns the asset→fiat rate for balance conversion. Rates are
// served from a short-lived cache so rendering a wallet list does not hammer
// the provider with one call per wallet per render.
func (s *CoinGeckoSource) ConvertRate(assetID, fiat string) (float64, error) {
	if rate, ok := s.rates.Get(assetID, fiat); ok {
		return rate, nil
	}

	rate, err := s.CurrentPrice(assetID, fiat)
	if err != nil {
		return 0, err
	}

	s.rates.Put(assetID, fiat, rate)
	return rate, nil
}

// -----------------------------------------------------------------------------

// UpdateSelection switches the pair watched by the polling loop.
func (s *CoinGeckoSource) UpdateSelection(assetID, fiat string) {
	// Atomic swap
	s.selected.Store(selection{AssetID: assetID, Fiat: fiat})
	s.Logger.Debug("Selection switched to %s/%s", assetID, fiat)
}

// -----------------------------------------------------------------------------

func (s *CoinGeckoSource) getSelection() selection {
	return s.selected.Load().(selection)
}

// -----------------------------------------------------------------------------

// Start begins the periodic polling loop
func (s *CoinGeckoSource) Start(parentCtx context.Context, outputChan chan<- models.MPriceTick, wg *sync.WaitGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning.Load() {
		return fmt.Errorf("source %s is already running", s.Name())
	}

	// Derive a context so we can stop just this source via Stop()
	ctx, cancel := context.WithCancel(parentCtx)
	s.cancelFunc = cancel
	s.ctx = ctx
	s.outputChan = outputChan
	s.isRunning.Store(true)

	wg.Add(1)
	go s.runLoop(ctx, outputChan, wg)
	s.Logger.Info("Started CoinGeckoSource")
	return nil
}

// -----------------------------------------------------------------------------

// Stop signals the run loop to exit
func (s *CoinGeckoSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning.Load() {
		return fmt.Errorf("source %s is not running", s.Name())
	}

	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.isRunning.Store(false)
	s.Logger.Info("Stopped CoinGeckoSource")
	return nil
}

// -----------------------------------------------------------------------------

// push sends a tick to the output channel safely.
func (s *CoinGeckoSource) push(tick models.MPriceTick) error {
	if s.outputChan == nil {
		return fmt.Errorf("output channel is nil")
	}

	select {
	case s.outputChan <- tick:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// -----------------------------------------------------------------------------

// runLoop polls the spot price of the selected pair on a fixed interval for
// the whole lifetime of the process. A failed poll is logged and skipped; the
// next tick proceeds as usual.
func (s *CoinGeckoSource) runLoop(ctx context.Context, outputChan chan<- models.MPriceTick, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(time.Duration(s.Config.MarketData.UpdateIntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sel := s.getSelection()

			price, err := s.CurrentPrice(sel.AssetID, sel.Fiat)
			if err != nil {
				s.Logger.Warning("Poll failed for %s/%s: %v", sel.AssetID, sel.Fiat, err)
				continue
			}

			tick := models.MPriceTick{
				AssetID:   sel.AssetID,
				Fiat:      sel.Fiat,
				Price:     price,
				Timestamp: time.Now().UnixMilli(),
			}

			if err := s.push(tick); err != nil {
				return // Stop if push failed (e.g. context cancelled)
			}
		}
	}
}
