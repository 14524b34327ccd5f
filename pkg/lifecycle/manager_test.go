package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestManagerWaitsForServices(t *testing.T) {
	mgr := NewManager(nil)

	handle, err := mgr.NewServiceHandle("worker")
	require.NoError(t, err)

	stopped := make(chan struct{})
	go func() {
		defer handle.Close()
		for {
			if err := handle.Sleep(time.Hour); err != nil {
				close(stopped)
				return
			}
		}
	}()

	mgr.Shutdown()
	assert.Empty(t, mgr.WaitWithTimeout(time.Second))
	<-stopped
}

func TestManagerReportsStragglers(t *testing.T) {
	mgr := NewManager(nil)

	b, err := mgr.NewServiceHandle("b-stuck")
	require.NoError(t, err)
	a, err := mgr.NewServiceHandle("a-stuck")
	require.NoError(t, err)

	mgr.Shutdown()
	assert.Equal(t, []string{"a-stuck", "b-stuck"}, mgr.WaitWithTimeout(10*time.Millisecond))

	// 释放等待协程
	a.Close()
	b.Close()
	assert.Empty(t, mgr.WaitWithTimeout(time.Second))
}

func TestManagerRejectsDuplicateService(t *testing.T) {
	mgr := NewManager(nil)
	handle, err := mgr.NewServiceHandle("worker")
	require.NoError(t, err)
	defer handle.Close()

	_, err = mgr.NewServiceHandle("worker")
	assert.Error(t, err)
	mgr.Shutdown()
}

func TestHandleCloseIsIdempotent(t *testing.T) {
	mgr := NewManager(nil)
	handle, err := mgr.NewServiceHandle("worker")
	require.NoError(t, err)

	handle.Close()
	handle.Close()
	mgr.Shutdown()
	assert.Empty(t, mgr.WaitWithTimeout(time.Second))
}

func TestHandleSleepCompletes(t *testing.T) {
	mgr := NewManager(nil)
	handle, err := mgr.NewServiceHandle("worker")
	require.NoError(t, err)
	defer handle.Close()

	assert.NoError(t, handle.Sleep(time.Millisecond))
	mgr.Shutdown()
	assert.Error(t, handle.Sleep(time.Hour))
}
