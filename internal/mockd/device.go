// Package mockd implements a stand-in for the GPIO daemon.
//
// It speaks the same wire protocol and keeps the same device state machine
// but drives no hardware, so the client can be exercised anywhere.
package mockd

import (
	"log/slog"
	"sync"
	"time"

	"github.com/d2verb/gpioctl/internal/protocol"
)

// State represents the simulated device state.
type State string

const (
	StateNormal State = "NORMAL"
	StateReset  State = "RESET"
	StateDFU    State = "DFU"
	StateTest   State = "TEST"
)

// Default pulse lengths, matching the daemon's pin timing.
const (
	DefaultResetPulse = 300 * time.Millisecond
	DefaultDFUPulse   = 200 * time.Millisecond
)

// Device simulates the microcontroller's reset/boot lines.
type Device struct {
	mu    sync.Mutex
	state State // protected by mu

	resetPulse time.Duration
	dfuPulse   time.Duration
	sleep      func(time.Duration)
	logger     *slog.Logger
}

// DeviceOption configures a Device.
type DeviceOption func(*Device)

// WithPulses sets how long the reset and DFU sequences hold their lines.
func WithPulses(reset, dfu time.Duration) DeviceOption {
	return func(d *Device) {
		d.resetPulse = reset
		d.dfuPulse = dfu
	}
}

// WithDeviceLogger sets the logger for state transitions.
func WithDeviceLogger(logger *slog.Logger) DeviceOption {
	return func(d *Device) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDevice creates a device in the normal state.
func NewDevice(opts ...DeviceOption) *Device {
	d := &Device{
		state:      StateNormal,
		resetPulse: DefaultResetPulse,
		dfuPulse:   DefaultDFUPulse,
		sleep:      time.Sleep,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the current state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Device) setState(s State) State {
	d.mu.Lock()
	defer d.mu.Unlock()
	prev := d.state
	d.state = s
	return prev
}

// Handle executes one command token and returns the reply text.
func (d *Device) Handle(token string) string {
	cmd, err := protocol.ParseCommand(token)
	if err != nil {
		d.logger.Warn("unknown command", "token", token)
		return protocol.ErrUnknownCommandReply
	}

	switch cmd {
	case protocol.CmdStatus:
		return protocol.StatusReply(string(d.State()))
	case protocol.CmdNormal:
		d.setState(StateNormal)
		d.logger.Info("set normal state")
		return protocol.OKReply("NORMAL")
	case protocol.CmdReset:
		d.reset()
		return protocol.OKReply("RESET")
	case protocol.CmdDFU:
		d.enterDFU()
		return protocol.OKReply("DFU")
	case protocol.CmdTest:
		d.setState(StateTest)
		d.logger.Info("entered test mode")
		return protocol.OKReply("TEST")
	case protocol.CmdTestExit:
		d.mu.Lock()
		if d.state == StateTest {
			d.state = StateNormal
		}
		d.mu.Unlock()
		d.logger.Info("left test mode")
		return protocol.OKReply("TEST_EXIT")
	default:
		return protocol.ErrUnknownCommandReply
	}
}

// reset holds the reset line for the pulse, then restores DFU or normal.
func (d *Device) reset() {
	prev := d.setState(StateReset)
	d.logger.Info("resetting device", "pulse", d.resetPulse)
	d.sleep(d.resetPulse)

	if prev == StateDFU {
		d.setState(StateDFU)
	} else {
		d.setState(StateNormal)
	}
	d.logger.Info("reset complete", "state", string(d.State()))
}

// enterDFU holds boot low across a reset pulse.
func (d *Device) enterDFU() {
	d.logger.Info("entering DFU mode", "pulse", d.dfuPulse)
	d.sleep(d.dfuPulse)
	d.setState(StateDFU)
}
