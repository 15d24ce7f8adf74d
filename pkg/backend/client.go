package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"

	"github.com/cyberwave-os/cyberwave-edge/internal/models"
	"github.com/cyberwave-os/cyberwave-edge/internal/utils"
)

// AuthError is a terminal registration failure: the token or twin UUID
// was rejected. Never retried; the process exits with a distinct code so
// the service manager can decide restart policy.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("backend: authentication rejected (%d): %s", e.StatusCode, e.Message)
}

// Client talks to the Cyberwave control-plane API. It authenticates the
// device and resolves broker connection parameters.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger

	backoffBase time.Duration
	backoffMax  time.Duration
	maxRetries  int
}

// NewClient creates a control-plane client for the given base URL.
func NewClient(baseURL string, backoffBase, backoffMax time.Duration, maxRetries int, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		logger:      logger,
		backoffBase: backoffBase,
		backoffMax:  backoffMax,
		maxRetries:  maxRetries,
	}
}

// Authenticate registers the device and returns broker parameters.
// Retryable failures (network errors, 5xx) back off between bounded
// attempts; 401/403/404 return an AuthError immediately.
func (c *Client) Authenticate(ctx context.Context, req models.AuthRequest) (*models.AuthResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("backend: failed to serialize auth request: %w", err)
	}

	backoff := utils.NewBackoff(c.backoffBase, c.backoffMax)
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoff.Next()
			c.logger.Warn().
				Err(lastErr).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Registration failed, retrying")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.doAuth(ctx, body)
		if err == nil {
			return resp, nil
		}

		var authErr *AuthError
		if errors.As(err, &authErr) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("backend: registration failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *Client) doAuth(ctx context.Context, body []byte) (*models.AuthResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/edge/auth", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("backend: request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var authResp models.AuthResponse
		if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
			return nil, fmt.Errorf("backend: failed to parse auth response: %w", err)
		}
		return &authResp, nil

	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: string(msg)}

	default:
		return nil, fmt.Errorf("backend: unexpected status %d", resp.StatusCode)
	}
}

// VersionOutdated reports whether the running agent is older than the
// backend-advertised minimum. An empty minimum means no constraint.
func VersionOutdated(agentVersion, minVersion string) (bool, error) {
	if minVersion == "" {
		return false, nil
	}

	current, err := semver.NewVersion(agentVersion)
	if err != nil {
		return false, fmt.Errorf("backend: invalid agent version %q: %w", agentVersion, err)
	}
	minimum, err := semver.NewVersion(minVersion)
	if err != nil {
		return false, fmt.Errorf("backend: invalid minimum version %q: %w", minVersion, err)
	}

	return current.LessThan(minimum), nil
}
