package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"crypto-desk/src/helpers"
	"crypto-desk/src/interfaces"
	"crypto-desk/src/logger"
	"crypto-desk/src/models"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------

// SupabaseClient is a thin wrapper over the backend service's auth and table
// CRUD endpoints. All business logic (persistence, row-level security,
// matching) lives on the service side; this client only shuttles rows.
type SupabaseClient struct {
	Config  *models.MConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger

	mu            sync.RWMutex
	session       *models.MSession
	authCallbacks []func(user *models.MUser)
}

// -----------------------------------------------------------------------------

func NewSupabaseClient(cfg *models.MConfig, netMgr interfaces.INetworkManager) *SupabaseClient {
	return &SupabaseClient{
		Config:  cfg,
		Network: netMgr,
		Logger:  logger.NewLogger(cfg, "SupabaseClient"),
	}
}

// -----------------------------------------------------------------------------
// Endpoint / Header Helpers
// -----------------------------------------------------------------------------

func (c *SupabaseClient) authURL(path string) string {
	return c.Config.Backend.URL + "/auth/v1" + path
}

func (c *SupabaseClient) restURL(table string) string {
	return c.Config.Backend.URL + "/rest/v1/" + table
}

// headers returns the per-request auth headers. The anon key doubles as the
// bearer token until a user session is installed.
func (c *SupabaseClient) headers() map[string]string {
	token := c.Config.Backend.AnonKey

	c.mu.RLock()
	if c.session != nil {
		token = c.session.AccessToken
	}
	c.mu.RUnlock()

	return map[string]string{
		"apikey":        c.Config.Backend.AnonKey,
		"Authorization": "Bearer " + token,
	}
}

// -----------------------------------------------------------------------------
// Auth Operations
// -----------------------------------------------------------------------------

// SignInWithMagicLink initiates passwordless auth: the service emails a
// one-time link. Success here only means the mail was accepted.
func (c *SupabaseClient) SignInWithMagicLink(ctx context.Context, email string) error {
	if email == "" {
		return helpers.NewValidationError("email is required")
	}

	body, err := json.Marshal(map[string]interface{}{
		"email":       email,
		"create_user": true,
	})
	if err != nil {
		return err
	}

	respBody, status, err := c.Network.Do(ctx, http.MethodPost, c.authURL("/otp"), nil, c.headers(), body)
	if err != nil {
		return helpers.NewBackendError("magic link request failed", err)
	}
	if status != http.StatusOK {
		return helpers.NewBackendError(fmt.Sprintf("magic link rejected (%d): %s", status, errorMessage(respBody)), nil)
	}

	c.Logger.Info("Magic link sent to %s", email)
	return nil
}

// -----------------------------------------------------------------------------

// SetSession installs the access token delivered by the auth redirect. The
// token's claims are decoded locally for identity and expiry; the service
// remains the actual verifier on every subsequent call.
func (c *SupabaseClient) SetSession(accessToken string) error {
	user, expiresAt, err := parseAccessToken(accessToken)
	if err != nil {
		return helpers.NewBackendError("invalid access token", err)
	}
	if !expiresAt.IsZero() && time.Now().After(expiresAt) {
		return helpers.NewBackendError("access token is expired", nil)
	}

	c.mu.Lock()
	c.session = &models.MSession{
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		User:        *user,
	}
	callbacks := append([]func(*models.MUser){}, c.authCallbacks...)
	c.mu.Unlock()

	c.Logger.Info("Session established for %s", user.Email)
	for _, fn := range callbacks {
		fn(user)
	}
	return nil
}

// -----------------------------------------------------------------------------

// SignOut clears the session.
func (c *SupabaseClient) SignOut() {
	c.mu.Lock()
	c.session = nil
	callbacks := append([]func(*models.MUser){}, c.authCallbacks...)
	c.mu.Unlock()

	c.Logger.Info("Signed out")
	for _, fn := range callbacks {
		fn(nil)
	}
}

// -----------------------------------------------------------------------------

// CurrentUser returns the signed-in user, or nil when signed out or when the
// session has quietly expired.
func (c *SupabaseClient) CurrentUser() *models.MUser {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.session == nil || c.session.Expired(time.Now()) {
		return nil
	}
	user := c.session.User
	return &user
}

// -----------------------------------------------------------------------------

// OnAuthStateChange registers a callback fired on session set/clear. The
// callback receives the user, or nil on sign-out.
func (c *SupabaseClient) OnAuthStateChange(fn func(user *models.MUser)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authCallbacks = append(c.authCallbacks, fn)
}

// -----------------------------------------------------------------------------
// Table Operations
// -----------------------------------------------------------------------------

// ListWallets returns the user's wallet rows.
func (c *SupabaseClient) ListWallets(ctx context.Context, userID uuid.UUID) ([]models.MWallet, error) {
	params := map[string]string{
		"select":  "*",
		"user_id": "eq." + userID.String(),
	}

	var wallets []models.MWallet
	if err := c.selectRows(ctx, "wallets", params, &wallets); err != nil {
		return nil, err
	}
	return wallets, nil
}

// -----------------------------------------------------------------------------

// InsertOrder creates a new order row.
func (c *SupabaseClient) InsertOrder(ctx context.Context, order models.MOrder) error {
	body, err := json.Marshal([]models.MOrder{order})
	if err != nil {
		return err
	}

	headers := c.headers()
	headers["Prefer"] = "return=minimal"

	respBody, status, err := c.Network.Do(ctx, http.MethodPost, c.restURL("orders"), nil, headers, body)
	if err != nil {
		return helpers.NewBackendError("order insert failed", err)
	}
	if status != http.StatusCreated {
		return helpers.NewBackendError(fmt.Sprintf("order rejected (%d): %s", status, errorMessage(respBody)), nil)
	}
	return nil
}

// -----------------------------------------------------------------------------

// DeleteAllOrders removes every order belonging to the user.
func (c *SupabaseClient) DeleteAllOrders(ctx context.Context, userID uuid.UUID) error {
	params := map[string]string{
		"user_id": "eq." + userID.String(),
	}

	respBody, status, err := c.Network.Do(ctx, http.MethodDelete, c.restURL("orders"), params, c.headers(), nil)
	if err != nil {
		return helpers.NewBackendError("order cancel failed", err)
	}
	if status != http.StatusNoContent && status != http.StatusOK {
		return helpers.NewBackendError(fmt.Sprintf("order cancel rejected (%d): %s", status, errorMessage(respBody)), nil)
	}
	return nil
}

// -----------------------------------------------------------------------------

// ListOrders returns the user's orders, newest first.
func (c *SupabaseClient) ListOrders(ctx context.Context, userID uuid.UUID) ([]models.MOrder, error) {
	params := map[string]string{
		"select":  "*",
		"user_id": "eq." + userID.String(),
		"order":   "created_at.desc",
	}

	var orders []models.MOrder
	if err := c.selectRows(ctx, "orders", params, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// -----------------------------------------------------------------------------

// ListRecentTrades returns the most recent trades, newest first.
func (c *SupabaseClient) ListRecentTrades(ctx context.Context, limit int) ([]models.MTrade, error) {
	if limit <= 0 {
		limit = 10
	}
	params := map[string]string{
		"select": "*",
		"order":  "executed_at.desc",
		"limit":  fmt.Sprintf("%d", limit),
	}

	var trades []models.MTrade
	if err := c.selectRows(ctx, "trades", params, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// -----------------------------------------------------------------------------

// selectRows runs a filtered select against a table and decodes the rows.
func (c *SupabaseClient) selectRows(ctx context.Context, table string, params map[string]string, out interface{}) error {
	respBody, status, err := c.Network.Do(ctx, http.MethodGet, c.restURL(table), params, c.headers(), nil)
	if err != nil {
		return helpers.NewBackendError(fmt.Sprintf("select from %s failed", table), err)
	}
	if status != http.StatusOK {
		return helpers.NewBackendError(fmt.Sprintf("select from %s rejected (%d): %s", table, status, errorMessage(respBody)), nil)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return helpers.NewBackendError(fmt.Sprintf("decode %s rows failed", table), err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// errorMessage extracts the service's error message from a failure payload.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
		Error   string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Message != "":
			return payload.Message
		case payload.Msg != "":
			return payload.Msg
		case payload.Error != "":
			return payload.Error
		}
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
