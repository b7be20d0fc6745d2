package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	assert.Equal(t, DefaultServiceName, cfg.GetServiceName())
	assert.Equal(t, "unknown", cfg.GetServiceVersion())
	assert.Equal(t, DefaultEndpoint, cfg.GetEndpoint())
	assert.InDelta(t, DefaultSampling, (&TracingConfig{}).GetSampling(), 0.0001)
	assert.Equal(t, DefaultMetricsInterval, (&MetricsConfig{}).GetInterval())

	cfg = &Config{ServiceName: "ccf-controller", ServiceVersion: "1.2.0", Endpoint: "otel:4318"}
	assert.Equal(t, "ccf-controller", cfg.GetServiceName())
	assert.Equal(t, "1.2.0", cfg.GetServiceVersion())
	assert.Equal(t, "otel:4318", cfg.GetEndpoint())
	assert.Equal(t, 15*time.Second, (&MetricsConfig{Interval: "15s"}).GetInterval())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  *Config
		wantErr string
	}{
		{name: "nil config", config: nil},
		{name: "disabled config skips checks", config: &Config{Tracing: &TracingConfig{Enabled: true, Sampling: 7}}},
		{name: "enabled without sections", config: &Config{Enabled: true}},
		{
			name:   "valid sampling",
			config: &Config{Enabled: true, Tracing: &TracingConfig{Enabled: true, Sampling: 1}},
		},
		{
			name:    "sampling above one",
			config:  &Config{Enabled: true, Tracing: &TracingConfig{Enabled: true, Sampling: 1.5}},
			wantErr: "tracing: sampling must be between 0.0 and 1.0",
		},
		{
			name:    "negative sampling",
			config:  &Config{Enabled: true, Tracing: &TracingConfig{Enabled: true, Sampling: -0.1}},
			wantErr: "tracing: sampling",
		},
		{
			name:   "disabled tracing ignores sampling",
			config: &Config{Enabled: true, Tracing: &TracingConfig{Sampling: 3}},
		},
		{
			name:    "invalid metrics interval",
			config:  &Config{Enabled: true, Metrics: &MetricsConfig{Enabled: true, Interval: "often"}},
			wantErr: "metrics: interval must be a valid duration",
		},
		{
			name:    "zero metrics interval",
			config:  &Config{Enabled: true, Metrics: &MetricsConfig{Enabled: true, Interval: "0s"}},
			wantErr: "metrics: interval must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
