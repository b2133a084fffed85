package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/orderbridge/internal/common"
	"github.com/joseph-ayodele/orderbridge/internal/telemetry"
)

func TestSetup_NoEndpointIsNoop(t *testing.T) {
	shutdown, err := telemetry.Setup(t.Context(), common.TelemetryConfig{}, "test", nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(t.Context()))
}

func TestSetup_WithEndpoint(t *testing.T) {
	shutdown, err := telemetry.Setup(t.Context(), common.TelemetryConfig{Endpoint: "127.0.0.1:4317", ServiceName: "orderbridge-test"}, "test", nil)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	// nothing was recorded, so there is nothing to flush
	_ = shutdown(ctx)
}
