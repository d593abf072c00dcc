package view

import (
	"context"
	"strings"
	"sync"
	"time"

	"crypto-desk/src/helpers"
	"crypto-desk/src/interfaces"
	"crypto-desk/src/logger"
	"crypto-desk/src/models"
	"crypto-desk/src/utils"
)

// -----------------------------------------------------------------------------
// Desk - the view controller. It owns the dashboard's view state (selected
// market, selected fiat, chart series, rendered panels) as one explicit
// object; there is no package-level state. Every mutation is a full
// replacement of the affected panel, and every mutation publishes a fresh
// snapshot ("last response wins" when refreshes race).
// -----------------------------------------------------------------------------

type Desk struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	Source  interfaces.IPriceSource
	Backend interfaces.IBackendClient

	mu            sync.Mutex
	exchanger     interfaces.IDataExchanger
	currentMarket models.MMarket
	selectedFiat  string
	chart         *utils.ChartBuffer
	ticker        string
	balances      models.MBalancePanel
	openOrders    models.MOrderPanel
	recentTrades  models.MTradePanel
	wallets       []models.MWallet
	walletsLoaded bool
	published     bool
}

// -----------------------------------------------------------------------------

func NewDesk(cfg *models.MConfig, source interfaces.IPriceSource, backend interfaces.IBackendClient) *Desk {
	return &Desk{
		Config:        cfg,
		Logger:        logger.NewLogger(cfg, "Desk"),
		Source:        source,
		Backend:       backend,
		currentMarket: models.DefaultMarkets[0],
		selectedFiat:  "usd",
		chart:         utils.NewChartBuffer(models.ChartCapacity),
		ticker:        Placeholder,
	}
}

// -----------------------------------------------------------------------------

// SetExchanger wires the push surface snapshots are broadcast to. Must be
// called before Init.
func (d *Desk) SetExchanger(ex interfaces.IDataExchanger) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.exchanger = ex
}

// -----------------------------------------------------------------------------

// Init performs the initial load: chart + ticker for the default market, then
// all three data panels.
func (d *Desk) Init(ctx context.Context) {
	if err := d.SwitchMarket(ctx, d.CurrentMarket().ID); err != nil {
		d.Logger.Warning("Initial market load: %v", err)
	}
	d.RefreshBalances(ctx)
	d.RefreshOrders(ctx)
	d.RefreshTrades(ctx)
}

// -----------------------------------------------------------------------------
// State Accessors
// -----------------------------------------------------------------------------

func (d *Desk) CurrentMarket() models.MMarket {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.currentMarket
}

func (d *Desk) SelectedFiat() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selectedFiat
}

// -----------------------------------------------------------------------------

// Snapshot renders the full desk state.
func (d *Desk) Snapshot() *models.MDeskSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

func (d *Desk) snapshotLocked() *models.MDeskSnapshot {
	snapType := "UPDATE"
	if !d.published {
		snapType = "INITIAL"
		d.published = true
	}

	return &models.MDeskSnapshot{
		Type:         snapType,
		MarketTitle:  d.currentMarket.Name + " / " + strings.ToUpper(d.selectedFiat),
		Ticker:       d.ticker,
		Fiat:         d.selectedFiat,
		Chart:        d.chart.GetAll(),
		Balances:     d.balances,
		OpenOrders:   d.openOrders,
		RecentTrades: d.recentTrades,
		SignedIn:     d.Backend.CurrentUser() != nil,
		Markets:      models.DefaultMarkets,
		Timestamp:    time.Now().UnixMilli(),
	}
}

// -----------------------------------------------------------------------------

// publish hands the current snapshot to the push surface, if one is wired.
func (d *Desk) publish() {
	d.mu.Lock()
	ex := d.exchanger
	var snap *models.MDeskSnapshot
	if ex != nil {
		snap = d.snapshotLocked()
	}
	d.mu.Unlock()

	if ex != nil {
		ex.Broadcast(snap)
	}
}

// -----------------------------------------------------------------------------
// Market / Fiat Selection
// -----------------------------------------------------------------------------

// SwitchMarket selects a market from the catalog, reloads the chart series
// for the default window and refreshes the ticker. Provider failures degrade:
// the previous series and ticker stay on screen.
func (d *Desk) SwitchMarket(ctx context.Context, marketID string) error {
	market := models.FindMarket(marketID)
	if market == nil {
		return helpers.NewValidationError("unknown market: " + marketID)
	}

	d.mu.Lock()
	d.currentMarket = *market
	fiat := d.selectedFiat
	d.mu.Unlock()

	d.Source.UpdateSelection(market.ID, fiat)
	d.reloadChartAndTicker(market.ID, fiat, d.Config.MarketData.DefaultWindowHours)
	d.publish()
	return nil
}

// -----------------------------------------------------------------------------

// SetFiat switches the display currency: chart and ticker are refetched under
// the new fiat, and balances are re-rendered by reconversion from the cached
// wallet rows without hitting the backend again.
func (d *Desk) SetFiat(ctx context.Context, fiat string) error {
	fiat = strings.ToLower(fiat)
	if !SupportedFiat(fiat) {
		return helpers.NewValidationError("unsupported currency: " + fiat)
	}

	d.mu.Lock()
	d.selectedFiat = fiat
	market := d.currentMarket
	d.mu.Unlock()

	d.Source.UpdateSelection(market.ID, fiat)
	d.reloadChartAndTicker(market.ID, fiat, d.Config.MarketData.DefaultWindowHours)
	d.renderBalancesFromCache()
	d.publish()
	return nil
}

// -----------------------------------------------------------------------------

// SetChartWindow refetches the chart series for a different lookback window.
func (d *Desk) SetChartWindow(ctx context.Context, hours int) error {
	if hours <= 0 {
		return helpers.NewValidationError("chart window must be positive")
	}

	d.mu.Lock()
	market := d.currentMarket
	fiat := d.selectedFiat
	d.mu.Unlock()

	series, err := d.Source.PriceSeries(market.ID, fiat, hours)
	if err != nil {
		d.Logger.Warning("Chart load failed: %v", err)
		return nil // degrade: keep the previous series
	}

	d.mu.Lock()
	d.chart.Reset(series)
	d.mu.Unlock()
	d.publish()
	return nil
}

// -----------------------------------------------------------------------------

// reloadChartAndTicker fetches the series and spot price for a pair. Failures
// are logged and leave the previous values in place.
func (d *Desk) reloadChartAndTicker(assetID, fiat string, hours int) {
	series, err := d.Source.PriceSeries(assetID, fiat, hours)
	if err != nil {
		d.Logger.Warning("Chart load failed: %v", err)
		series = nil
	}

	price, priceErr := d.Source.CurrentPrice(assetID, fiat)
	if priceErr != nil {
		d.Logger.Warning("Price fetch failed: %v", priceErr)
	}

	d.mu.Lock()
	if series != nil {
		d.chart.Reset(series)
	}
	if priceErr == nil {
		d.ticker = FormatFiat(&price, fiat)
	}
	d.mu.Unlock()
}

// -----------------------------------------------------------------------------

// ApplyTick appends a polled spot price to the chart and refreshes the
// ticker. Stale ticks for a pair that is no longer selected are dropped.
func (d *Desk) ApplyTick(tick models.MPriceTick) {
	d.mu.Lock()
	if tick.AssetID != d.currentMarket.ID || tick.Fiat != d.selectedFiat {
		d.mu.Unlock()
		return
	}
	price := tick.Price
	d.ticker = FormatFiat(&price, tick.Fiat)
	d.chart.Append(models.MChartPoint{Timestamp: tick.Timestamp, Price: tick.Price})
	d.mu.Unlock()

	d.publish()
}

// -----------------------------------------------------------------------------
// Auth
// -----------------------------------------------------------------------------

// Connect triggers the passwordless sign-in flow. It does not itself change
// the signed-in state; that happens asynchronously through the auth-state
// callback once the session is installed.
func (d *Desk) Connect(ctx context.Context, email string) error {
	if email == "" {
		return helpers.NewValidationError("email is required")
	}
	return d.Backend.SignInWithMagicLink(ctx, email)
}

// -----------------------------------------------------------------------------

// HandleAuthChange re-renders the user-scoped panels whenever the session is
// set or cleared.
func (d *Desk) HandleAuthChange(user *models.MUser) {
	if user != nil {
		d.Logger.Info("Signed in as %s", user.Email)
	} else {
		d.Logger.Info("Auth state cleared")
		d.mu.Lock()
		d.wallets = nil
		d.walletsLoaded = false
		d.mu.Unlock()
	}
	d.RefreshBalances(context.Background())
	d.RefreshOrders(context.Background())
}

// -----------------------------------------------------------------------------
// Orders
// -----------------------------------------------------------------------------

// SubmitOrder validates and inserts a demo order. Validation failures abort
// before any network call.
func (d *Desk) SubmitOrder(ctx context.Context, side, asset, symbol string, price, quantity float64) error {
	user := d.Backend.CurrentUser()
	if user == nil {
		return helpers.NewValidationError("sign in first")
	}

	order := models.MOrder{
		UserID:   user.ID,
		Side:     side,
		Asset:    asset,
		Symbol:   symbol,
		Price:    price,
		Quantity: quantity,
	}
	if !order.ValidSide() {
		return helpers.NewValidationError("side must be 'buy' or 'sell'")
	}
	if price <= 0 || quantity <= 0 {
		return helpers.NewValidationError("enter valid price & quantity")
	}

	if err := d.Backend.InsertOrder(ctx, order); err != nil {
		d.Logger.Error("Order failed: %v", err)
		return err
	}

	d.Logger.Info("Order placed: %s %f %s", side, quantity, symbol)
	d.RefreshOrders(ctx)
	return nil
}

// -----------------------------------------------------------------------------

// CancelAllOrders removes every order belonging to the signed-in user.
func (d *Desk) CancelAllOrders(ctx context.Context) error {
	user := d.Backend.CurrentUser()
	if user == nil {
		return helpers.NewValidationError("sign in first")
	}

	if err := d.Backend.DeleteAllOrders(ctx, user.ID); err != nil {
		d.Logger.Error("Cancel error: %v", err)
		return err
	}

	d.RefreshOrders(ctx)
	return nil
}

// -----------------------------------------------------------------------------
// Panel Refreshes
// -----------------------------------------------------------------------------

// RefreshBalances refetches the wallet rows and re-renders the balances
// panel. Signed out, it renders the sign-in placeholder without any backend
// call.
func (d *Desk) RefreshBalances(ctx context.Context) {
	user := d.Backend.CurrentUser()
	if user == nil {
		d.setBalances(models.MBalancePanel{Placeholder: "Sign in to see balances."})
		return
	}

	wallets, err := d.Backend.ListWallets(ctx, user.ID)
	if err != nil {
		d.Logger.Error("Error loading balances: %v", err)
		d.setBalances(models.MBalancePanel{Placeholder: "Error loading balances"})
		return
	}

	d.mu.Lock()
	d.wallets = wallets
	d.walletsLoaded = true
	d.mu.Unlock()

	d.renderBalancesFromCache()
}

// -----------------------------------------------------------------------------

// renderBalancesFromCache rebuilds the balances panel from the wallet rows
// already in memory (used by fiat switches, which must not refetch wallets).
func (d *Desk) renderBalancesFromCache() {
	d.mu.Lock()
	loaded := d.walletsLoaded
	wallets := d.wallets
	fiat := d.selectedFiat
	d.mu.Unlock()

	if !loaded {
		return
	}
	if len(wallets) == 0 {
		d.setBalances(models.MBalancePanel{Placeholder: "No balances yet"})
		return
	}

	entries := make([]models.MBalanceEntry, 0, len(wallets))
	for _, w := range wallets {
		entry := models.MBalanceEntry{
			Asset:   w.Asset,
			Symbol:  w.Symbol,
			Balance: w.Balance,
		}

		if strings.ToLower(w.Symbol) == fiat {
			v := w.Balance
			entry.Converted = FormatFiat(&v, fiat)
		} else if rate, err := d.Source.ConvertRate(w.Asset, fiat); err == nil {
			v := w.Balance * rate
			entry.Converted = FormatFiat(&v, fiat)
		} else {
			// Conversion lookup failed: show the raw balance only, keep
			// rendering the rest of the list.
			d.Logger.Warning("Convert err for %s: %v", w.Asset, err)
			entry.Converted = Placeholder
		}

		entries = append(entries, entry)
	}

	d.setBalances(models.MBalancePanel{Entries: entries})
}

// -----------------------------------------------------------------------------

func (d *Desk) setBalances(panel models.MBalancePanel) {
	d.mu.Lock()
	d.balances = panel
	d.mu.Unlock()
	d.publish()
}

// -----------------------------------------------------------------------------

// RefreshOrders refetches and re-renders the open-orders panel.
func (d *Desk) RefreshOrders(ctx context.Context) {
	user := d.Backend.CurrentUser()
	if user == nil {
		d.setOrders(models.MOrderPanel{Placeholder: "Sign in to view"})
		return
	}

	orders, err := d.Backend.ListOrders(ctx, user.ID)
	if err != nil {
		d.Logger.Error("Error loading orders: %v", err)
		d.setOrders(models.MOrderPanel{Placeholder: "Error"})
		return
	}
	if len(orders) == 0 {
		d.setOrders(models.MOrderPanel{Placeholder: "No open orders"})
		return
	}

	fiat := d.SelectedFiat()
	entries := make([]models.MOrderEntry, 0, len(orders))
	for _, o := range orders {
		price := o.Price
		entries = append(entries, models.MOrderEntry{
			Side:      strings.ToUpper(o.Side),
			Quantity:  o.Quantity,
			Symbol:    strings.ToUpper(o.Symbol),
			Price:     FormatFiat(&price, fiat),
			CreatedAt: o.CreatedAt,
		})
	}
	d.setOrders(models.MOrderPanel{Entries: entries})
}

// -----------------------------------------------------------------------------

func (d *Desk) setOrders(panel models.MOrderPanel) {
	d.mu.Lock()
	d.openOrders = panel
	d.mu.Unlock()
	d.publish()
}

// -----------------------------------------------------------------------------

// RefreshTrades refetches and re-renders the recent-trades panel. Trades are
// public; no session is required.
func (d *Desk) RefreshTrades(ctx context.Context) {
	trades, err := d.Backend.ListRecentTrades(ctx, 10)
	if err != nil {
		d.Logger.Error("Error loading trades: %v", err)
		d.setTrades(models.MTradePanel{Placeholder: "Error"})
		return
	}
	if len(trades) == 0 {
		d.setTrades(models.MTradePanel{Placeholder: "No trades"})
		return
	}

	fiat := d.SelectedFiat()
	entries := make([]models.MTradeEntry, 0, len(trades))
	for _, t := range trades {
		price := t.Price
		entries = append(entries, models.MTradeEntry{
			Quantity:   t.Quantity,
			Symbol:     strings.ToUpper(t.Symbol),
			Price:      FormatFiat(&price, fiat),
			ExecutedAt: t.ExecutedAt,
		})
	}
	d.setTrades(models.MTradePanel{Entries: entries})
}

// -----------------------------------------------------------------------------

func (d *Desk) setTrades(panel models.MTradePanel) {
	d.mu.Lock()
	d.recentTrades = panel
	d.mu.Unlock()
	d.publish()
}
