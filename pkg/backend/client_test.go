package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberwave-os/cyberwave-edge/internal/models"
)

func newTestClient(baseURL string, maxRetries int) *Client {
	return NewClient(baseURL, time.Millisecond, 4*time.Millisecond, maxRetries, zerolog.Nop())
}

// TestAuthenticate_Success verifies a 200 response yields the broker
// parameters from the backend.
func TestAuthenticate_Success(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/edge/auth", r.URL.Path)

		var req models.AuthRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tok-123", req.Token)

		json.NewEncoder(w).Encode(models.AuthResponse{
			MQTTHost:        "broker.example.com",
			MQTTPort:        1883,
			MinAgentVersion: "1.0.0",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 2)

	resp, err := client.Authenticate(context.Background(), models.AuthRequest{
		Token:    "tok-123",
		TwinUUID: "twin-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "broker.example.com", resp.MQTTHost)
	assert.Equal(t, 1883, resp.MQTTPort)
	assert.Equal(t, int32(1), requests.Load())
}

// TestAuthenticate_InvalidTokenNotRetried verifies a 401 fails immediately
// with an AuthError and no retries.
func TestAuthenticate_InvalidTokenNotRetried(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		http.Error(w, "invalid token", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)

	_, err := client.Authenticate(context.Background(), models.AuthRequest{Token: "bad"})

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Equal(t, int32(1), requests.Load())
}

// TestAuthenticate_ServerErrorsRetried verifies transient 5xx responses
// are retried until the backend recovers.
func TestAuthenticate_ServerErrorsRetried(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if requests.Add(1) <= 2 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(models.AuthResponse{MQTTHost: "broker"})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 5)

	resp, err := client.Authenticate(context.Background(), models.AuthRequest{Token: "tok"})

	require.NoError(t, err)
	assert.Equal(t, "broker", resp.MQTTHost)
	assert.Equal(t, int32(3), requests.Load())
}

// TestAuthenticate_ExhaustsRetries verifies retries stop after the
// configured number of attempts.
func TestAuthenticate_ExhaustsRetries(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 2)

	_, err := client.Authenticate(context.Background(), models.AuthRequest{Token: "tok"})

	require.Error(t, err)
	var authErr *AuthError
	assert.False(t, errors.As(err, &authErr))
	assert.Equal(t, int32(3), requests.Load())
}

// TestAuthenticate_ContextCancelled verifies cancellation interrupts the
// retry loop.
func TestAuthenticate_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, time.Second, 5, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Authenticate(ctx, models.AuthRequest{Token: "tok"})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestVersionOutdated(t *testing.T) {
	outdated, err := VersionOutdated("1.2.0", "2.0.0")
	require.NoError(t, err)
	assert.True(t, outdated)

	outdated, err = VersionOutdated("1.2.0", "1.2.0")
	require.NoError(t, err)
	assert.False(t, outdated)

	outdated, err = VersionOutdated("1.2.0", "")
	require.NoError(t, err)
	assert.False(t, outdated)

	_, err = VersionOutdated("1.2.0", "not-a-version")
	assert.Error(t, err)
}
