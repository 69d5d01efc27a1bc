// internal/phone/monitor.go
package phone

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/practiceops/smsbridge-backend/internal/model"
)

const (
	startPollInterval = 500 * time.Millisecond
	startPollAttempts = 20
	deviceGracePeriod = 2 * time.Second
)

// Monitor owns the tethered-phone session lifecycle and is the only writer of
// the connection state it exposes. Dispatch and the relay status endpoint read
// it through IsUsable.
type Monitor struct {
	bridge Bridge
	notify func(string) // operator-visible one-liners

	mu      sync.RWMutex
	state   model.ConnectionState
	started bool
}

func NewMonitor(bridge Bridge, notify func(string)) *Monitor {
	if notify == nil {
		notify = func(msg string) { log.Println("📣", msg) }
	}
	return &Monitor{bridge: bridge, notify: notify}
}

// StartSession connects the bridge once per process; repeat calls are no-ops.
// It polls through the transient starting state for a bounded time; expiry
// leaves the session unusable (callers fall back to relay transport) rather
// than retrying forever.
func (m *Monitor) StartSession() error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	if err := m.bridge.Connect(); err != nil {
		m.notify("We can't send SMS - check the phone tether agent.")
		return err
	}

	st := m.bridge.State()
	for i := 0; i < startPollAttempts && isTransient(st.App); i++ {
		time.Sleep(startPollInterval)
		st = m.bridge.State()
	}

	if isTransient(st.App) {
		m.setState(st)
		log.Println("💥 phone session still starting after bounded wait - SMS unusable on this machine")
		return fmt.Errorf("phone session stuck in %s", st.App)
	}

	if st.App != model.AppConnected {
		m.setState(st)
		m.notify("We can't send SMS - check JustRemote on the phone.")
		return nil
	}

	// Connected: give the device link a moment to report before declaring
	// full readiness.
	time.Sleep(deviceGracePeriod)
	st = m.bridge.State()
	m.setState(st)
	if st.Device == model.DeviceUnknown {
		m.notify("Phone link is up but the handset has not reported in yet.")
	} else {
		log.Println("✅ SMS service is operational")
	}
	return nil
}

// OnStateChanged consumes application-link transitions from the event pump.
// Every transition updates the recorded state, including the ones out of the
// starting state: after a mid-run reconnect this is the only place the final
// StartingSession→Connected hop is seen. Those startup transitions stay quiet,
// they are not live disconnects worth an operator message.
func (m *Monitor) OnStateChanged(newState, oldState model.AppState, device model.DeviceState) {
	m.setState(model.ConnectionState{App: newState, Device: device})

	if oldState == model.AppStartingSession {
		return
	}

	if newState == model.AppConnected && oldState != model.AppConnected {
		m.notify("We can send SMS again.")
	} else if newState != model.AppConnected && oldState == model.AppConnected {
		m.notify("We can no longer send SMS - check JustRemote on the phone.")
	}
}

// IsUsable is a pure read of the direct-send invariant; safe from any
// goroutine.
func (m *Monitor) IsUsable() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Usable()
}

func (m *Monitor) State() model.ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Monitor) setState(st model.ConnectionState) {
	m.mu.Lock()
	m.state = st
	m.mu.Unlock()
}

func isTransient(app model.AppState) bool {
	return app == model.AppStartingSession || app == model.AppConnecting
}
