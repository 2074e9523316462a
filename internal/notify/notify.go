// Package notify forwards crawl failures to the external error API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/blocklist-crawler/crawler/pkg/logger"
)

// PayloadKey is the single field of the error API request body.
const PayloadKey = "blocklist_crawler"

type Reporter interface {
	// Report never fails; delivery problems are only logged.
	Report(ctx context.Context, message string)
}

type HTTPReporter struct {
	endpoint string
	client   *http.Client
	log      zerolog.Logger
}

func NewHTTPReporter(endpoint string, timeout time.Duration) *HTTPReporter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPReporter{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		log:      logger.Component("crawler"),
	}
}

func (r *HTTPReporter) Report(ctx context.Context, message string) {
	if r.endpoint == "" {
		r.log.Debug().Str("message", message).Msg("error api not configured, report dropped")
		return
	}
	if err := r.Deliver(ctx, message); err != nil {
		r.log.Info().Err(err).Msg("failed to contact error api")
	}
}

// Deliver posts message to the error API.
func (r *HTTPReporter) Deliver(ctx context.Context, message string) error {
	body, err := json.Marshal(map[string]string{PayloadKey: message})
	if err != nil {
		return fmt.Errorf("notify: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notify: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
