package render

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raporhub/rapor-hub/internal/domain/shared"
)

func TestLocalGate(t *testing.T) {
	gate := NewLocalGate(1, 50*time.Millisecond)
	ctx := context.Background()

	release, err := gate.Acquire(ctx)
	require.NoError(t, err)

	_, err = gate.Acquire(ctx)
	assert.ErrorIs(t, err, shared.ErrRenderSlotBusy)
	assert.True(t, shared.IsRendering(err))

	release()

	release, err = gate.Acquire(ctx)
	require.NoError(t, err)
	release()
}
