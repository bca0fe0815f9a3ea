package irq

import (
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBridgeHostSignalDispatches(t *testing.T) {
	d := NewDispatcher()
	fired := make(chan struct{}, 1)
	h := d.BindObject(1, func() bool {
		fired <- struct{}{}
		return true
	})
	defer h.Release()

	stop := d.BridgeHostSignal(syscall.SIGUSR1, 1)
	defer stop()

	require := assert.New(t)
	err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1)
	require.NoError(err)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("bridged signal did not dispatch the GSI")
	}
}
