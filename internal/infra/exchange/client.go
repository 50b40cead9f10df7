package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"racebot/internal/infra"
)

// Client is the exchange REST API boundary: catalogue listing and order
// placement. Streaming lives in internal/stream.
type Client struct {
	baseURL    string
	appKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an exchange API client from config.
func NewClient(cfg *infra.Config) *Client {
	return &Client{
		baseURL: cfg.Exchange.APIURL,
		appKey:  cfg.Exchange.AppKey,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Exchange.RequestTimeoutSec) * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		logger: slog.Default().With("module", "exchange_client"),
	}
}

func (c *Client) doRequest(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Application", c.appKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("exchange api error: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}
	if out != nil {
		if err := json.Unmarshal(bodyBytes, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
