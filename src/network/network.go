package network

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"crypto-desk/src/logger"
	"crypto-desk/src/models"
)

// -----------------------------------------------------------------------------

// AsyncNetworkManager wraps http.Client with retries, backoff and the
// default headers every outbound request carries.
type AsyncNetworkManager struct {
	Config *models.MConfig
	Client *http.Client
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncNetworkManager(cfg *models.MConfig, log *logger.Logger) *AsyncNetworkManager {
	return &AsyncNetworkManager{
		Config: cfg,
		Logger: log,
		Client: &http.Client{
			Timeout: time.Duration(cfg.Network.RequestTimeout) * time.Second,
		},
	}
}

// -----------------------------------------------------------------------------

// Get performs a GET request with retries.
func (nm *AsyncNetworkManager) Get(urlStr string, params map[string]string) ([]byte, error) {
	body, status, err := nm.Do(context.Background(), http.MethodGet, urlStr, params, nil, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("unexpected status %d for %s", status, urlStr)
	}
	return body, nil
}

// -----------------------------------------------------------------------------

// Do performs a request with an arbitrary method, headers and body, retrying
// transport failures and 5xx responses with exponential backoff. The response
// body and status of the final attempt are returned.
func (nm *AsyncNetworkManager) Do(ctx context.Context, method, urlStr string, params, headers map[string]string, reqBody []byte) ([]byte, int, error) {
	reqUrl, err := url.Parse(urlStr)
	if err != nil {
		return nil, 0, err
	}

	q := reqUrl.Query()
	for k, v := range params {
		q.Add(k, v)
	}
	reqUrl.RawQuery = q.Encode()

	finalUrl := reqUrl.String()

	maxRetries := nm.Config.Network.MaxRetries
	var lastErr error
	var lastStatus int
	var lastBody []byte

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			time.Sleep(time.Duration(i*i) * time.Second) // Exponential backoff
		}

		req, err := http.NewRequestWithContext(ctx, method, finalUrl, bytes.NewReader(reqBody))
		if err != nil {
			return nil, 0, err
		}

		if nm.Config.Network.UserAgent != "" {
			req.Header.Set("User-Agent", nm.Config.Network.UserAgent)
		}
		if len(reqBody) > 0 {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := nm.Client.Do(req)
		if err != nil {
			lastErr = err
			nm.Logger.Warning("Request failed (attempt %d/%d) %s %s: %v", i+1, maxRetries+1, method, finalUrl, err)
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		lastStatus = resp.StatusCode
		lastBody = respBody
		lastErr = nil

		// Retry server-side failures; everything else is the caller's call.
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error %d for %s", resp.StatusCode, finalUrl)
			nm.Logger.Warning("Server error (attempt %d/%d) %s %s: %d", i+1, maxRetries+1, method, finalUrl, resp.StatusCode)
			continue
		}

		return respBody, resp.StatusCode, nil
	}

	if lastErr != nil && lastStatus == 0 {
		return nil, 0, lastErr
	}
	return lastBody, lastStatus, lastErr
}
