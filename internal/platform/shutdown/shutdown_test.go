package shutdown

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/SlpAus/eastend-save-backend/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestShutdownStopsServicesAndRunsSnapshot(t *testing.T) {
	mgr := lifecycle.NewManager(nil)
	handle, err := mgr.NewServiceHandle("worker")
	require.NoError(t, err)

	exited := make(chan struct{})
	go func() {
		defer close(exited)
		defer handle.Close()
		<-handle.Done()
	}()

	snapshots := 0
	c := NewCoordinator(mgr, zap.NewNop())
	c.FinalSnapshot = func(ctx context.Context) error {
		snapshots++
		return nil
	}

	c.Shutdown(&http.Server{})
	<-exited
	assert.Equal(t, 1, snapshots)
}

func TestShutdownToleratesSnapshotFailure(t *testing.T) {
	c := NewCoordinator(lifecycle.NewManager(nil), zap.NewNop())
	c.FinalSnapshot = func(ctx context.Context) error { return errors.New("redis gone") }

	assert.NotPanics(t, func() { c.Shutdown(&http.Server{}) })
}
