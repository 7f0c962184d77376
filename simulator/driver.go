// Package simulator provides a Bluetooth driver that emulates a serial
// accessory. It is used on platforms without a native driver and in tests.
package simulator

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/ftag"
	"go.uber.org/zap"

	"github.com/blocinbloc/native-bluetooth/api/bluetooth"
	"github.com/blocinbloc/native-bluetooth/api/errorkinds"
	"github.com/blocinbloc/native-bluetooth/api/logging"
)

// DefaultFrames holds the frames written by a default simulated accessory.
var DefaultFrames = []string{
	"$GPLLQ,113616.00,041006,1351169.857,M,62440353.754,M,3,12,0.010,55.597,M*37",
}

// DefaultDevice is the accessory listed by a default driver.
var DefaultDevice = bluetooth.DeviceData{
	ConnectionID: "44585484",
	Name:         "Leica GG04 plus",
	Manufacturer: "Leica Geosystems",
}

// Driver describes a simulated Bluetooth stack.
type Driver struct {
	devices  []bluetooth.DeviceData
	frames   []string
	interval time.Duration
	state    bluetooth.ControllerState

	scanDelay time.Duration
	dialErr   error
	notify    func(bluetooth.ControllerState)
	conns     []net.Conn

	started bool
	mu      sync.Mutex
}

// Option configures a simulated driver.
type Option func(*Driver)

// WithDevices sets the listed accessories.
func WithDevices(devices ...bluetooth.DeviceData) Option {
	return func(d *Driver) {
		d.devices = devices
	}
}

// WithFrames sets the frames written in a loop by every opened stream.
// Frames are terminated with "\r\n". With no frames, streams stay idle
// and data can be written through Accessory.
func WithFrames(interval time.Duration, frames ...string) Option {
	return func(d *Driver) {
		d.interval = interval
		d.frames = frames
	}
}

// WithState sets the initial controller state.
func WithState(state bluetooth.ControllerState) Option {
	return func(d *Driver) {
		d.state = state
	}
}

// WithScanDelay makes every scan take the given duration.
func WithScanDelay(delay time.Duration) Option {
	return func(d *Driver) {
		d.scanDelay = delay
	}
}

// NewDriver returns a simulated driver with one powered-on accessory
// writing DefaultFrames every second, unless options say otherwise.
func NewDriver(opts ...Option) *Driver {
	d := &Driver{
		devices:  []bluetooth.DeviceData{DefaultDevice},
		frames:   DefaultFrames,
		interval: time.Second,
		state:    bluetooth.StatePoweredOn,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Start initializes the driver and reports the initial state.
func (d *Driver) Start(notify func(bluetooth.ControllerState)) error {
	d.mu.Lock()
	d.notify = notify
	d.started = true
	state := d.state
	d.mu.Unlock()

	if notify != nil {
		notify(state)
	}

	return nil
}

// Stop closes every opened stream.
func (d *Driver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.started = false
	d.notify = nil
	for _, conn := range d.conns {
		conn.Close()
	}
	d.conns = nil

	return nil
}

// State returns the current controller state.
func (d *Driver) State() bluetooth.ControllerState {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.state
}

// SetState changes the controller state and notifies the bridge.
// Open streams are disconnected when the radio is no longer powered on.
func (d *Driver) SetState(state bluetooth.ControllerState) {
	d.mu.Lock()
	d.state = state
	notify := d.notify
	if !state.Available() {
		for _, conn := range d.conns {
			conn.Close()
		}
		d.conns = nil
	}
	d.mu.Unlock()

	if notify != nil {
		notify(state)
	}
}

// SetDevices replaces the listed accessories.
func (d *Driver) SetDevices(devices ...bluetooth.DeviceData) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.devices = devices
}

// FailDial makes every following Dial return err. A nil error restores dialing.
func (d *Driver) FailDial(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dialErr = err
}

// Disconnect closes all the open streams from the accessory side.
func (d *Driver) Disconnect() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, conn := range d.conns {
		conn.Close()
	}
	d.conns = nil
}

// Devices returns the listed accessories after the configured scan delay.
func (d *Driver) Devices(ctx context.Context) ([]bluetooth.DeviceData, error) {
	d.mu.Lock()
	delay := d.scanDelay
	state := d.state
	devices := append([]bluetooth.DeviceData(nil), d.devices...)
	d.mu.Unlock()

	if !state.Available() {
		return nil, fault.Wrap(errorkinds.ErrAdapterNotPowered,
			fctx.With(ctx, "state", state.String()),
			ftag.With(ftag.PermissionDenied),
		)
	}

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, fault.Wrap(ctx.Err(), ftag.With(ftag.Cancelled))
		case <-time.After(delay):
		}
	}

	return devices, nil
}

// Dial opens a stream to the simulated accessory. The accessory writes its
// frames on the stream until the stream is closed from either side.
func (d *Driver) Dial(ctx context.Context, device bluetooth.DeviceData) (io.ReadWriteCloser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		return nil, fault.Wrap(errorkinds.ErrMethodCall,
			fctx.With(ctx, "error_at", "dial"),
			ftag.With(ftag.Internal),
		)
	}
	if d.dialErr != nil {
		return nil, fault.Wrap(d.dialErr,
			fctx.With(ctx, "connection_id", device.ConnectionID),
			ftag.With(ftag.Internal),
		)
	}

	host, accessory := net.Pipe()
	d.conns = append(d.conns, accessory)

	go d.writeFrames(accessory, device)

	return &hostConn{Conn: host, release: func() { d.release(accessory) }}, nil
}

// release forgets a stream that was closed from either side.
func (d *Driver) release(accessory net.Conn) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, conn := range d.conns {
		if conn == accessory {
			d.conns = append(d.conns[:i], d.conns[i+1:]...)
			return
		}
	}
}

// hostConn is the bridge side of a simulated stream.
type hostConn struct {
	net.Conn

	release func()
	once    sync.Once
}

// Close closes the stream and releases the accessory side.
func (c *hostConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(c.release)

	return err
}

// Accessory returns the accessory side of the last opened stream, if any.
func (d *Driver) Accessory() (net.Conn, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.conns) == 0 {
		return nil, false
	}

	return d.conns[len(d.conns)-1], true
}

func (d *Driver) writeFrames(conn net.Conn, device bluetooth.DeviceData) {
	d.mu.Lock()
	frames := d.frames
	interval := d.interval
	d.mu.Unlock()

	// Without frames the stream stays idle until it is closed.
	if len(frames) == 0 || interval <= 0 {
		return
	}

	defer d.release(conn)
	defer conn.Close()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for index := 0; ; index = (index + 1) % len(frames) {
		if _, err := conn.Write([]byte(frames[index] + "\r\n")); err != nil {
			logging.Logger().Debug("Simulated accessory stream closed",
				zap.String("connection_id", device.ConnectionID),
				zap.Error(err),
			)

			return
		}

		<-ticker.C
	}
}
