package irq

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// HostSignalUSR1 and HostSignalUSR2 stand in for externally-asserted
// GSI lines on the simulated arch boundary: in lieu of real hardware
// interrupt lines, the host simulation harness (cmd/kernelsim) lets an
// operator trigger a bound IRQ handler by sending one of these
// signals to the process.
var (
	HostSignalUSR1 = unix.SIGUSR1
	HostSignalUSR2 = unix.SIGUSR2
)

// BridgeHostSignal arranges for delivery of sig to call Dispatch(gsi)
// on d, playing the role of the arch layer's interrupt entry point.
// The returned stop func unregisters the bridge.
func (d *Dispatcher) BridgeHostSignal(sig os.Signal, gsi GSI) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sig)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ch:
				d.Dispatch(gsi)
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}
