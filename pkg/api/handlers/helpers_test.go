package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goclaw/slotbus/pkg/diagnostics"
	"github.com/goclaw/slotbus/pkg/logger"
	"github.com/goclaw/slotbus/pkg/signal"
)

func newTestRegistry(t *testing.T) *signal.Registry {
	t.Helper()
	r, err := signal.NewRegistry(
		signal.WithLogger(logger.Nop()),
		signal.WithDiagnostics(diagnostics.Discard),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = r.Shutdown(ctx)
	})
	return r
}

func noopSlot() signal.Invocable {
	return signal.Func(func(context.Context, []any) (any, error) { return nil, nil })
}
