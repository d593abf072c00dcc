package interfaces

import "context"

// -----------------------------------------------------------------------------
// INetworkManager defines the contract for HTTP requests with retry logic.
// -----------------------------------------------------------------------------

type INetworkManager interface {

	// -----------------------------------------------------------------------------

	// Get performs a GET request to the specified URL with query parameters.
	// Returns the response body as bytes or an error.
	Get(url string, params map[string]string) ([]byte, error)

	// -----------------------------------------------------------------------------

	// Do performs a request with an arbitrary method, headers and body.
	// Returns the response body and HTTP status code.
	Do(ctx context.Context, method, url string, params, headers map[string]string, body []byte) ([]byte, int, error)
}
