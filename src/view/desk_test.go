package view

import (
	"context"
	"errors"
	"sync"
	"testing"

	"crypto-desk/src/helpers"
	"crypto-desk/src/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Stubs
// -----------------------------------------------------------------------------

type stubSource struct {
	price     float64
	priceErr  error
	series    []models.MChartPoint
	seriesErr error
	rates     map[string]float64 // "asset:fiat" -> rate
	rateErr   error

	selAsset string
	selFiat  string
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) CurrentPrice(assetID, fiat string) (float64, error) {
	return s.price, s.priceErr
}

func (s *stubSource) PriceSeries(assetID, fiat string, hours int) ([]models.MChartPoint, error) {
	return s.series, s.seriesErr
}

func (s *stubSource) ConvertRate(assetID, fiat string) (float64, error) {
	if s.rateErr != nil {
		return 0, s.rateErr
	}
	rate, ok := s.rates[assetID+":"+fiat]
	if !ok {
		return 0, errors.New("no rate")
	}
	return rate, nil
}

func (s *stubSource) UpdateSelection(assetID, fiat string) {
	s.selAsset = assetID
	s.selFiat = fiat
}

func (s *stubSource) Start(ctx context.Context, out chan<- models.MPriceTick, wg *sync.WaitGroup) error {
	return nil
}

func (s *stubSource) Stop() error { return nil }

// -----------------------------------------------------------------------------

type stubBackend struct {
	user *models.MUser

	wallets    []models.MWallet
	walletsErr error
	orders     []models.MOrder
	ordersErr  error
	trades     []models.MTrade
	tradesErr  error
	insertErr  error

	walletCalls int
	orderCalls  int
	tradeCalls  int
	inserted    []models.MOrder
	deletedFor  []uuid.UUID
	magicEmails []string
}

func (b *stubBackend) SignInWithMagicLink(ctx context.Context, email string) error {
	b.magicEmails = append(b.magicEmails, email)
	return nil
}

func (b *stubBackend) SetSession(accessToken string) error      { return nil }
func (b *stubBackend) SignOut()                                 {}
func (b *stubBackend) CurrentUser() *models.MUser               { return b.user }
func (b *stubBackend) OnAuthStateChange(fn func(*models.MUser)) {}

func (b *stubBackend) ListWallets(ctx context.Context, userID uuid.UUID) ([]models.MWallet, error) {
	b.walletCalls++
	return b.wallets, b.walletsErr
}

func (b *stubBackend) InsertOrder(ctx context.Context, order models.MOrder) error {
	if b.insertErr != nil {
		return b.insertErr
	}
	b.inserted = append(b.inserted, order)
	return nil
}

func (b *stubBackend) DeleteAllOrders(ctx context.Context, userID uuid.UUID) error {
	b.deletedFor = append(b.deletedFor, userID)
	return nil
}

func (b *stubBackend) ListOrders(ctx context.Context, userID uuid.UUID) ([]models.MOrder, error) {
	b.orderCalls++
	return b.orders, b.ordersErr
}

func (b *stubBackend) ListRecentTrades(ctx context.Context, limit int) ([]models.MTrade, error) {
	b.tradeCalls++
	return b.trades, b.tradesErr
}

// -----------------------------------------------------------------------------

type stubExchanger struct {
	mu    sync.Mutex
	snaps []*models.MDeskSnapshot
}

func (e *stubExchanger) Broadcast(snap *models.MDeskSnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snaps = append(e.snaps, snap)
}

func (e *stubExchanger) UpdateSnapshot(snap *models.MDeskSnapshot) {}
func (e *stubExchanger) Start() error                             { return nil }
func (e *stubExchanger) Stop() error                              { return nil }

func (e *stubExchanger) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.snaps)
}

// -----------------------------------------------------------------------------

func deskConfig() *models.MConfig {
	return &models.MConfig{
		Name:     "test",
		Host:     "127.0.0.1",
		Port:     8400,
		LogLevel: "ERROR",
		MarketData: models.MMarketDataConfig{
			BaseURL:               "http://unused",
			UpdateIntervalSeconds: 12,
			DefaultWindowHours:    24,
			RateCacheSeconds:      30,
		},
	}
}

func newTestDesk(source *stubSource, backend *stubBackend) (*Desk, *stubExchanger) {
	desk := NewDesk(deskConfig(), source, backend)
	ex := &stubExchanger{}
	desk.SetExchanger(ex)
	return desk, ex
}

// -----------------------------------------------------------------------------
// Snapshot
// -----------------------------------------------------------------------------

func TestSnapshot_InitialThenUpdate(t *testing.T) {
	desk, _ := newTestDesk(&stubSource{}, &stubBackend{})

	first := desk.Snapshot()
	assert.Equal(t, "INITIAL", first.Type)
	assert.Equal(t, "Bitcoin / USD", first.MarketTitle)
	assert.Equal(t, Placeholder, first.Ticker)
	assert.False(t, first.SignedIn)
	assert.Equal(t, models.DefaultMarkets, first.Markets)

	second := desk.Snapshot()
	assert.Equal(t, "UPDATE", second.Type)
}

// -----------------------------------------------------------------------------
// Market / Fiat Selection
// -----------------------------------------------------------------------------

func TestSwitchMarket(t *testing.T) {
	source := &stubSource{
		price:  2000,
		series: []models.MChartPoint{{Timestamp: 1, Price: 1990}, {Timestamp: 2, Price: 2000}},
	}
	desk, ex := newTestDesk(source, &stubBackend{})

	require.NoError(t, desk.SwitchMarket(context.Background(), "ethereum"))

	assert.Equal(t, "ethereum", desk.CurrentMarket().ID)
	assert.Equal(t, "ethereum", source.selAsset)
	assert.Equal(t, "usd", source.selFiat)

	snap := desk.Snapshot()
	assert.Equal(t, "Ethereum / USD", snap.MarketTitle)
	assert.Equal(t, "$2,000.00", snap.Ticker)
	assert.Equal(t, source.series, snap.Chart)
	assert.Greater(t, ex.count(), 0)
}

func TestSwitchMarket_Unknown(t *testing.T) {
	desk, ex := newTestDesk(&stubSource{}, &stubBackend{})

	err := desk.SwitchMarket(context.Background(), "dogecoin")
	assert.True(t, helpers.IsValidation(err))
	assert.Equal(t, "bitcoin", desk.CurrentMarket().ID)
	assert.Equal(t, 0, ex.count())
}

func TestSwitchMarket_ProviderFailureKeepsPreviousChart(t *testing.T) {
	source := &stubSource{
		price:  65000,
		series: []models.MChartPoint{{Timestamp: 1, Price: 64000}},
	}
	desk, _ := newTestDesk(source, &stubBackend{})
	require.NoError(t, desk.SwitchMarket(context.Background(), "bitcoin"))

	// Provider goes down: selection still changes, chart and ticker stay.
	source.priceErr = errors.New("down")
	source.seriesErr = errors.New("down")
	require.NoError(t, desk.SwitchMarket(context.Background(), "ethereum"))

	snap := desk.Snapshot()
	assert.Equal(t, "Ethereum / USD", snap.MarketTitle)
	assert.Equal(t, "$65,000.00", snap.Ticker)
	assert.Len(t, snap.Chart, 1)
}

// -----------------------------------------------------------------------------

func TestSetFiat_Unsupported(t *testing.T) {
	desk, _ := newTestDesk(&stubSource{}, &stubBackend{})

	err := desk.SetFiat(context.Background(), "jpy")
	assert.True(t, helpers.IsValidation(err))
	assert.Equal(t, "usd", desk.SelectedFiat())
}

func TestSetFiat_ReconvertsBalancesWithoutRefetch(t *testing.T) {
	user := &models.MUser{ID: uuid.New(), Email: "a@b.com"}
	source := &stubSource{
		price:  60000,
		series: []models.MChartPoint{{Timestamp: 1, Price: 60000}},
		rates: map[string]float64{
			"bitcoin:usd": 65000,
			"bitcoin:eur": 60000,
		},
	}
	backend := &stubBackend{
		user: user,
		wallets: []models.MWallet{
			{Asset: "bitcoin", Symbol: "btc", Balance: 2},
		},
	}
	desk, _ := newTestDesk(source, backend)

	desk.RefreshBalances(context.Background())
	assert.Equal(t, 1, backend.walletCalls)

	require.NoError(t, desk.SetFiat(context.Background(), "EUR"))

	// Wallets were not refetched; the cached rows were reconverted.
	assert.Equal(t, 1, backend.walletCalls)
	assert.Equal(t, "eur", desk.SelectedFiat())

	snap := desk.Snapshot()
	assert.Equal(t, "Bitcoin / EUR", snap.MarketTitle)
	require.Len(t, snap.Balances.Entries, 1)
	assert.Equal(t, "€120.000,00", snap.Balances.Entries[0].Converted)
}

func TestSetFiat_FiatWalletSkipsConversion(t *testing.T) {
	user := &models.MUser{ID: uuid.New()}
	source := &stubSource{rateErr: errors.New("should not be called for fiat rows")}
	backend := &stubBackend{
		user: user,
		wallets: []models.MWallet{
			{Asset: "us dollar", Symbol: "usd", Balance: 150},
		},
	}
	desk, _ := newTestDesk(source, backend)

	desk.RefreshBalances(context.Background())

	snap := desk.Snapshot()
	require.Len(t, snap.Balances.Entries, 1)
	assert.Equal(t, "$150.00", snap.Balances.Entries[0].Converted)
}

// -----------------------------------------------------------------------------
// Ticks
// -----------------------------------------------------------------------------

func TestApplyTick(t *testing.T) {
	desk, ex := newTestDesk(&stubSource{}, &stubBackend{})

	desk.ApplyTick(models.MPriceTick{AssetID: "bitcoin", Fiat: "usd", Price: 65000, Timestamp: 123})

	snap := desk.Snapshot()
	assert.Equal(t, "$65,000.00", snap.Ticker)
	require.Len(t, snap.Chart, 1)
	assert.Equal(t, models.MChartPoint{Timestamp: 123, Price: 65000}, snap.Chart[0])
	assert.Equal(t, 1, ex.count())
}

func TestApplyTick_StalePairDropped(t *testing.T) {
	desk, ex := newTestDesk(&stubSource{}, &stubBackend{})

	// Selected pair is bitcoin/usd; a leftover ethereum tick must not land.
	desk.ApplyTick(models.MPriceTick{AssetID: "ethereum", Fiat: "usd", Price: 2000, Timestamp: 123})
	desk.ApplyTick(models.MPriceTick{AssetID: "bitcoin", Fiat: "eur", Price: 60000, Timestamp: 124})

	snap := desk.Snapshot()
	assert.Equal(t, Placeholder, snap.Ticker)
	assert.Empty(t, snap.Chart)
	assert.Equal(t, 0, ex.count())
}

// -----------------------------------------------------------------------------
// Auth
// -----------------------------------------------------------------------------

func TestConnect(t *testing.T) {
	backend := &stubBackend{}
	desk, _ := newTestDesk(&stubSource{}, backend)

	assert.True(t, helpers.IsValidation(desk.Connect(context.Background(), "")))
	assert.Empty(t, backend.magicEmails)

	require.NoError(t, desk.Connect(context.Background(), "user@example.com"))
	assert.Equal(t, []string{"user@example.com"}, backend.magicEmails)
}

func TestHandleAuthChange_SignOutClearsWalletCache(t *testing.T) {
	user := &models.MUser{ID: uuid.New()}
	source := &stubSource{rates: map[string]float64{"bitcoin:usd": 65000}}
	backend := &stubBackend{
		user:    user,
		wallets: []models.MWallet{{Asset: "bitcoin", Symbol: "btc", Balance: 1}},
	}
	desk, _ := newTestDesk(source, backend)

	desk.RefreshBalances(context.Background())
	require.Len(t, desk.Snapshot().Balances.Entries, 1)

	// Session cleared.
	backend.user = nil
	desk.HandleAuthChange(nil)

	snap := desk.Snapshot()
	assert.Empty(t, snap.Balances.Entries)
	assert.Equal(t, "Sign in to see balances.", snap.Balances.Placeholder)
	assert.Equal(t, "Sign in to view", snap.OpenOrders.Placeholder)
	assert.False(t, snap.SignedIn)
}

// -----------------------------------------------------------------------------
// Orders
// -----------------------------------------------------------------------------

func TestSubmitOrder_Validation(t *testing.T) {
	backend := &stubBackend{}
	desk, _ := newTestDesk(&stubSource{}, backend)

	// Signed out.
	err := desk.SubmitOrder(context.Background(), "buy", "bitcoin", "btc", 100, 1)
	assert.True(t, helpers.IsValidation(err))

	backend.user = &models.MUser{ID: uuid.New()}

	err = desk.SubmitOrder(context.Background(), "hold", "bitcoin", "btc", 100, 1)
	assert.True(t, helpers.IsValidation(err))

	err = desk.SubmitOrder(context.Background(), "buy", "bitcoin", "btc", 0, 1)
	assert.True(t, helpers.IsValidation(err))

	err = desk.SubmitOrder(context.Background(), "sell", "bitcoin", "btc", 100, -1)
	assert.True(t, helpers.IsValidation(err))

	// None of the rejected submissions reached the backend.
	assert.Empty(t, backend.inserted)
}

func TestSubmitOrder(t *testing.T) {
	user := &models.MUser{ID: uuid.New()}
	backend := &stubBackend{user: user}
	desk, _ := newTestDesk(&stubSource{}, backend)

	require.NoError(t, desk.SubmitOrder(context.Background(), "buy", "bitcoin", "btc", 65000, 0.5))

	require.Len(t, backend.inserted, 1)
	assert.Equal(t, user.ID, backend.inserted[0].UserID)
	assert.Equal(t, 0.5, backend.inserted[0].Quantity)
	// The open-orders panel was refetched after the insert.
	assert.Equal(t, 1, backend.orderCalls)
}

func TestCancelAllOrders(t *testing.T) {
	user := &models.MUser{ID: uuid.New()}
	backend := &stubBackend{user: user}
	desk, _ := newTestDesk(&stubSource{}, backend)

	require.NoError(t, desk.CancelAllOrders(context.Background()))
	assert.Equal(t, []uuid.UUID{user.ID}, backend.deletedFor)
	assert.Equal(t, 1, backend.orderCalls)

	backend.user = nil
	assert.True(t, helpers.IsValidation(desk.CancelAllOrders(context.Background())))
}

// -----------------------------------------------------------------------------
// Panels
// -----------------------------------------------------------------------------

func TestRefreshBalances_SignedOutSkipsBackend(t *testing.T) {
	backend := &stubBackend{}
	desk, _ := newTestDesk(&stubSource{}, backend)

	desk.RefreshBalances(context.Background())

	assert.Equal(t, 0, backend.walletCalls)
	assert.Equal(t, "Sign in to see balances.", desk.Snapshot().Balances.Placeholder)
}

func TestRefreshBalances_Error(t *testing.T) {
	backend := &stubBackend{
		user:       &models.MUser{ID: uuid.New()},
		walletsErr: errors.New("boom"),
	}
	desk, _ := newTestDesk(&stubSource{}, backend)

	desk.RefreshBalances(context.Background())
	assert.Equal(t, "Error loading balances", desk.Snapshot().Balances.Placeholder)
}

func TestRefreshBalances_Empty(t *testing.T) {
	backend := &stubBackend{user: &models.MUser{ID: uuid.New()}}
	desk, _ := newTestDesk(&stubSource{}, backend)

	desk.RefreshBalances(context.Background())
	assert.Equal(t, "No balances yet", desk.Snapshot().Balances.Placeholder)
}

func TestRefreshBalances_ConversionFailureIsPerRow(t *testing.T) {
	backend := &stubBackend{
		user: &models.MUser{ID: uuid.New()},
		wallets: []models.MWallet{
			{Asset: "bitcoin", Symbol: "btc", Balance: 1},
			{Asset: "ethereum", Symbol: "eth", Balance: 2},
		},
	}
	source := &stubSource{rates: map[string]float64{"bitcoin:usd": 65000}}
	desk, _ := newTestDesk(source, backend)

	desk.RefreshBalances(context.Background())

	// One row converts, the other degrades to the dash; both render.
	entries := desk.Snapshot().Balances.Entries
	require.Len(t, entries, 2)
	assert.Equal(t, "$65,000.00", entries[0].Converted)
	assert.Equal(t, Placeholder, entries[1].Converted)
}

// -----------------------------------------------------------------------------

func TestRefreshOrders(t *testing.T) {
	backend := &stubBackend{
		user: &models.MUser{ID: uuid.New()},
		orders: []models.MOrder{
			{Side: "buy", Symbol: "btc", Price: 65000, Quantity: 0.5},
		},
	}
	desk, _ := newTestDesk(&stubSource{}, backend)

	desk.RefreshOrders(context.Background())

	entries := desk.Snapshot().OpenOrders.Entries
	require.Len(t, entries, 1)
	assert.Equal(t, "BUY", entries[0].Side)
	assert.Equal(t, "BTC", entries[0].Symbol)
	assert.Equal(t, "$65,000.00", entries[0].Price)
}

func TestRefreshOrders_EmptyAndError(t *testing.T) {
	backend := &stubBackend{user: &models.MUser{ID: uuid.New()}}
	desk, _ := newTestDesk(&stubSource{}, backend)

	desk.RefreshOrders(context.Background())
	assert.Equal(t, "No open orders", desk.Snapshot().OpenOrders.Placeholder)

	backend.ordersErr = errors.New("boom")
	desk.RefreshOrders(context.Background())
	assert.Equal(t, "Error", desk.Snapshot().OpenOrders.Placeholder)
}

// -----------------------------------------------------------------------------

func TestRefreshTrades_PublicNoSessionNeeded(t *testing.T) {
	backend := &stubBackend{
		trades: []models.MTrade{{Symbol: "btc", Price: 65000, Quantity: 0.1}},
	}
	desk, _ := newTestDesk(&stubSource{}, backend)

	desk.RefreshTrades(context.Background())

	entries := desk.Snapshot().RecentTrades.Entries
	require.Len(t, entries, 1)
	assert.Equal(t, "BTC", entries[0].Symbol)
	assert.Equal(t, "$65,000.00", entries[0].Price)
	assert.Equal(t, 1, backend.tradeCalls)
}

func TestRefreshTrades_Empty(t *testing.T) {
	desk, _ := newTestDesk(&stubSource{}, &stubBackend{})

	desk.RefreshTrades(context.Background())
	assert.Equal(t, "No trades", desk.Snapshot().RecentTrades.Placeholder)
}
