package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"notifyhub/services/resilience"

	"go.uber.org/zap"
)

// Result is the outcome of a content scan.
type Result struct {
	Clean   bool     `json:"clean"`
	Threats []string `json:"threats,omitempty"`
}

// Scanner submits content to the external scanning API. It is shared with
// the file-handling layer; every call goes through the resilience registry
// under the "scan" dependency name.
type Scanner struct {
	apiURL     string
	httpClient *http.Client
	registry   *resilience.Registry
	logger     *zap.Logger
}

// NewScanner creates a scanner for the given API endpoint.
func NewScanner(apiURL string, registry *resilience.Registry, logger *zap.Logger) *Scanner {
	return &Scanner{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		registry:   registry,
		logger:     logger,
	}
}

// Scan submits content and returns the scan verdict. Transient transport and
// 5xx failures are retried behind the circuit breaker; 4xx responses are
// permanent.
func (s *Scanner) Scan(ctx context.Context, content []byte) (*Result, error) {
	var result Result
	err := s.registry.Execute(ctx, resilience.DepScan, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(content))
		if err != nil {
			return resilience.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/octet-stream")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("scan request: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("scan service error: %s", resp.Status)
		case resp.StatusCode >= 400:
			return resilience.Permanent(fmt.Errorf("scan rejected: %s", resp.Status))
		}

		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("decode scan response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.Clean {
		s.logger.Warn("content flagged by scanner", zap.Strings("threats", result.Threats))
	}
	return &result, nil
}
