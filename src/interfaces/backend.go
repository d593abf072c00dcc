package interfaces

import (
	"context"

	"crypto-desk/src/models"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// IBackendClient is the contract for the backend-as-a-service wrapper:
// passwordless auth, table CRUD and session state. All persistence,
// row-level security and matching live on the service side.
// -----------------------------------------------------------------------------

type IBackendClient interface {

	// -----------------------------------------------------------------------------

	// SignInWithMagicLink initiates passwordless auth for the given email.
	// The result is a sent/not-sent notification only; the actual sign-in
	// completes asynchronously via SetSession.
	SignInWithMagicLink(ctx context.Context, email string) error

	// -----------------------------------------------------------------------------

	// SetSession installs an access token obtained from the auth redirect and
	// fires the auth-state callbacks. An invalid or expired token is rejected.
	SetSession(accessToken string) error

	// -----------------------------------------------------------------------------

	// SignOut clears the session and fires the auth-state callbacks.
	SignOut()

	// -----------------------------------------------------------------------------

	// CurrentUser returns the signed-in user, or nil when signed out.
	CurrentUser() *models.MUser

	// -----------------------------------------------------------------------------

	// OnAuthStateChange registers a callback invoked whenever the session is
	// set or cleared.
	OnAuthStateChange(fn func(user *models.MUser))

	// -----------------------------------------------------------------------------

	// ListWallets returns the user's wallet rows.
	ListWallets(ctx context.Context, userID uuid.UUID) ([]models.MWallet, error)

	// -----------------------------------------------------------------------------

	// InsertOrder creates a new order row.
	InsertOrder(ctx context.Context, order models.MOrder) error

	// -----------------------------------------------------------------------------

	// DeleteAllOrders removes every order belonging to the user.
	DeleteAllOrders(ctx context.Context, userID uuid.UUID) error

	// -----------------------------------------------------------------------------

	// ListOrders returns the user's orders, newest first.
	ListOrders(ctx context.Context, userID uuid.UUID) ([]models.MOrder, error)

	// -----------------------------------------------------------------------------

	// ListRecentTrades returns the most recent trades, newest first.
	ListRecentTrades(ctx context.Context, limit int) ([]models.MTrade, error)
}
