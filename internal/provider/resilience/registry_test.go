package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrimind/agrimind/internal/apperr"
	"github.com/agrimind/agrimind/internal/provider/resilience"
)

func register(registry *resilience.Registry, names ...string) {
	for _, name := range names {
		cfg := resilience.DefaultClientConfig(name)
		cfg.Registry = registry
		_ = resilience.NewClient(cfg)
	}
}

func TestRegistry_RegisterOnNewClient(t *testing.T) {
	registry := resilience.NewRegistry()
	cfg := resilience.DefaultClientConfig("model-server")
	cfg.Registry = registry

	client := resilience.NewClient(cfg)

	assert.Equal(t, "model-server", client.Name())
	assert.Equal(t, 1, registry.Len())

	h := registry.Health("model-server")
	require.NotNil(t, h)
	assert.Equal(t, gobreaker.StateClosed, h.CircuitState)
	assert.Equal(t, resilience.StatusUp, h.Status())
}

func TestRegistry_Unregister(t *testing.T) {
	registry := resilience.NewRegistry()
	register(registry, "ollama")

	registry.Unregister("ollama")

	assert.Equal(t, 0, registry.Len())
	assert.Nil(t, registry.Health("ollama"))
}

func TestRegistry_RecordOutcomes(t *testing.T) {
	registry := resilience.NewRegistry()
	register(registry, "data-gov-in")

	registry.RecordSuccess("data-gov-in")
	registry.RecordFailure("data-gov-in", assert.AnError)

	h := registry.Health("data-gov-in")
	require.NotNil(t, h)
	require.NotNil(t, h.LastSuccessAt)
	require.NotNil(t, h.LastFailureAt)
	assert.WithinDuration(t, time.Now(), *h.LastFailureAt, time.Second)
	assert.Equal(t, "upstream error", h.LastError)
}

func TestRegistry_RecordFailureKeepsOnlyClass(t *testing.T) {
	transport := &url.Error{
		Op:  "Get",
		URL: "https://api.data.gov.in/resource/rid?api-key=SECRET-KEY-123",
		Err: errors.New("connect: connection refused"),
	}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unavailable", resilience.Classify(transport), "upstream unavailable"},
		{"timeout", fmt.Errorf("%w: %w", apperr.ErrUpstreamTimeout, transport), "upstream timeout"},
		{"deadline", resilience.Classify(context.DeadlineExceeded), "upstream timeout"},
		{"circuit open", resilience.ErrCircuitOpen, "circuit breaker open"},
		{"server error", &resilience.ServerError{StatusCode: 502}, "server error: Bad Gateway"},
		{"unclassified", transport, "upstream error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := resilience.NewRegistry()
			register(registry, "data-gov-in")

			registry.RecordFailure("data-gov-in", tt.err)

			h := registry.Health("data-gov-in")
			require.NotNil(t, h)
			assert.Equal(t, tt.want, h.LastError)
			assert.NotContains(t, h.LastError, "SECRET-KEY-123")
		})
	}
}

func TestRegistry_UnknownNamesIgnored(t *testing.T) {
	registry := resilience.NewRegistry()

	assert.NotPanics(t, func() {
		registry.RecordSuccess("nope")
		registry.RecordFailure("nope", assert.AnError)
	})
	assert.Nil(t, registry.Health("nope"))
}

func TestRegistry_SnapshotSorted(t *testing.T) {
	registry := resilience.NewRegistry()
	register(registry, "open-meteo", "data-gov-in", "ollama")

	snap := registry.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "data-gov-in", snap[0].Name)
	assert.Equal(t, "ollama", snap[1].Name)
	assert.Equal(t, "open-meteo", snap[2].Name)
}

func TestUpstreamHealth_Status(t *testing.T) {
	tests := []struct {
		state gobreaker.State
		want  resilience.UpstreamStatus
	}{
		{gobreaker.StateClosed, resilience.StatusUp},
		{gobreaker.StateHalfOpen, resilience.StatusDegraded},
		{gobreaker.StateOpen, resilience.StatusDown},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			h := &resilience.UpstreamHealth{CircuitState: tt.state}
			assert.Equal(t, tt.want, h.Status())
		})
	}
}
