// Package jurisdiction implements the ZIP-to-tax-rates lookup client with a
// read-through cache.
package jurisdiction

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dealdesk/dealdesk-api/libs/go/logger"
	"github.com/dealdesk/dealdesk-api/libs/go/types/business"
	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

// Client calls the external jurisdiction rate provider. It is the engine's
// only outbound HTTP dependency; callers bound it with a context deadline and
// fall back to state-only rates when it fails.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a rate provider client against the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger.Log,
	}
}

// LookupRates fetches the layered rates for a ZIP code. A 404 maps to
// JurisdictionNotFoundError so callers can distinguish an unmapped ZIP from
// an outage.
func (c *Client) LookupRates(ctx context.Context, zip, stateCode string) (*business.JurisdictionRates, error) {
	endpoint := fmt.Sprintf("%s/v1/rates?%s", c.baseURL, url.Values{
		"zip":   {zip},
		"state": {stateCode},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build rate lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rate lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, &business.JurisdictionNotFoundError{Zip: zip, State: stateCode}
	default:
		return nil, fmt.Errorf("rate lookup returned status %d for zip %s", resp.StatusCode, zip)
	}

	var rates business.JurisdictionRates
	if err := json.NewDecoder(resp.Body).Decode(&rates); err != nil {
		return nil, fmt.Errorf("failed to decode rate lookup response: %w", err)
	}
	if rates.State == "" {
		rates.State = stateCode
	}
	if rates.Zip == "" {
		rates.Zip = zip
	}

	c.logger.Debug("Fetched jurisdiction rates",
		zap.String("zip", zip),
		zap.String("state", stateCode),
		zap.String("combined_rate", rates.CombinedRate().String()))

	return &rates, nil
}
