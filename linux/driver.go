//go:build linux

package linux

import (
	"context"
	"io"
	"sync"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/blocinbloc/native-bluetooth/api/bluetooth"
	"github.com/blocinbloc/native-bluetooth/api/config"
	"github.com/blocinbloc/native-bluetooth/api/errorkinds"
	"github.com/blocinbloc/native-bluetooth/api/logging"
)

// Driver describes a BlueZ-backed accessory driver.
// Paired devices are listed over D-Bus, and sessions are
// opened as RFCOMM streams.
type Driver struct {
	cfg config.Configuration

	conn    *dbus.Conn
	signals chan *dbus.Signal
	notify  func(bluetooth.ControllerState)

	adapter adapterInfo
	found   bool

	stop context.CancelFunc
	done chan struct{}

	mu sync.Mutex
}

// NewDriver returns a new BlueZ driver.
func NewDriver(cfg config.Configuration) *Driver {
	cfg = cfg.Normalize()

	return &Driver{cfg: cfg}
}

// Start connects to the system bus and watches the adapter state.
func (d *Driver) Start(notify func(bluetooth.ControllerState)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		return nil
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fault.Wrap(err,
			fctx.With(context.Background(), "error_at", "connect-systembus"),
			ftag.With(ftag.Internal),
			fmsg.WithDesc("connect system bus", "Cannot connect to the system bus."),
		)
	}

	for _, opts := range [][]dbus.MatchOption{
		{
			dbus.WithMatchSender(bluezBusName),
			dbus.WithMatchInterface(propertiesInterface),
			dbus.WithMatchMember("PropertiesChanged"),
		},
		{
			dbus.WithMatchSender(bluezBusName),
			dbus.WithMatchInterface(objectManagerInterface),
		},
	} {
		if err := conn.AddMatchSignal(opts...); err != nil {
			conn.Close()
			return fault.Wrap(err,
				fctx.With(context.Background(), "error_at", "add-match-signal"),
				ftag.With(ftag.Internal),
				fmsg.WithDesc("watch adapter", "Cannot watch the Bluetooth adapter."),
			)
		}
	}

	d.conn = conn
	d.notify = notify
	d.signals = make(chan *dbus.Signal, 16)
	conn.Signal(d.signals)

	if err := d.refreshLocked(context.Background()); err != nil {
		logging.Logger().Warn("Cannot query the Bluetooth adapter", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.stop = cancel
	d.done = make(chan struct{})

	go d.watch(ctx)

	d.notifyLocked()

	return nil
}

// Stop stops watching the adapter and closes the system bus connection.
func (d *Driver) Stop() error {
	d.mu.Lock()
	if d.conn == nil {
		d.mu.Unlock()
		return nil
	}

	conn, stop, done := d.conn, d.stop, d.done
	d.conn = nil
	d.mu.Unlock()

	stop()
	conn.RemoveSignal(d.signals)
	<-done

	return conn.Close()
}

// State returns the current state of the adapter.
func (d *Driver) State() bluetooth.ControllerState {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return bluetooth.StateUnknown
	}

	return adapterState(d.adapter, d.found)
}

// Devices returns the paired devices which advertise the configured profile.
func (d *Driver) Devices(ctx context.Context) ([]bluetooth.DeviceData, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return nil, fault.Wrap(errorkinds.ErrMethodCall,
			fctx.With(ctx, "error_at", "list-devices"),
			ftag.With(ftag.Internal),
			fmsg.With("driver not started"),
		)
	}

	objects, err := d.managedObjects(ctx)
	if err != nil {
		return nil, err
	}

	d.adapter, d.found = findAdapter(objects)
	if !d.found {
		return nil, fault.Wrap(errorkinds.ErrAdapterNotFound,
			fctx.With(ctx, "error_at", "list-devices"),
			ftag.With(ftag.NotFound),
			fmsg.WithDesc("adapter not found", "No Bluetooth adapter was found."),
		)
	}

	return pairedDevices(objects, d.adapter.path, d.cfg.ProfileUUID), nil
}

// Dial opens an RFCOMM stream to the device.
func (d *Driver) Dial(ctx context.Context, device bluetooth.DeviceData) (io.ReadWriteCloser, error) {
	address := device.Address
	if address.IsNil() {
		parsed, err := bluetooth.ParseMAC(device.ConnectionID)
		if err != nil {
			return nil, fault.Wrap(err,
				fctx.With(ctx, "error_at", "dial-address", "connection_id", device.ConnectionID),
				ftag.With(ftag.InvalidArgument),
				fmsg.WithDesc("invalid device address", "The accessory has no valid Bluetooth address."),
			)
		}

		address = parsed
	}

	conn, err := dialRFCOMM(ctx, address, d.cfg.RFCOMMChannel)
	if err != nil {
		return nil, fault.Wrap(err,
			fctx.With(ctx, "error_at", "dial-rfcomm", "address", address.String()),
			ftag.With(ftag.Internal),
			fmsg.With("dial rfcomm"),
		)
	}

	return conn, nil
}

func (d *Driver) managedObjects(ctx context.Context) (managedObjects, error) {
	var objects managedObjects

	if err := d.conn.Object(bluezBusName, "/").
		CallWithContext(ctx, getManagedObjects, 0).
		Store(&objects); err != nil {
		kind := ftag.Internal
		if ctx.Err() != nil {
			kind = ftag.Cancelled
		}

		return nil, fault.Wrap(errorkinds.ErrMethodCall,
			fctx.With(ctx, "error_at", "get-managed-objects", "error", err.Error()),
			ftag.With(kind),
			fmsg.WithDesc("get managed objects", "The Bluetooth service did not respond."),
		)
	}

	return objects, nil
}

func (d *Driver) refreshLocked(ctx context.Context) error {
	objects, err := d.managedObjects(ctx)
	if err != nil {
		d.adapter, d.found = adapterInfo{}, false
		return err
	}

	d.adapter, d.found = findAdapter(objects)

	return nil
}

func (d *Driver) notifyLocked() {
	if d.notify != nil {
		d.notify(adapterState(d.adapter, d.found))
	}
}

// watch follows adapter property changes and adapter hotplug.
func (d *Driver) watch(ctx context.Context) {
	defer close(d.done)

	for {
		select {
		case <-ctx.Done():
			return

		case signal, ok := <-d.signals:
			if !ok {
				return
			}

			d.handleSignal(ctx, signal)
		}
	}
}

func (d *Driver) handleSignal(ctx context.Context, signal *dbus.Signal) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return
	}

	previous := adapterState(d.adapter, d.found)

	switch signal.Name {
	case propertiesChanged:
		if !d.found || signal.Path != d.adapter.path || len(signal.Body) < 2 {
			return
		}

		if iface, ok := signal.Body[0].(string); !ok || iface != adapterInterface {
			return
		}

		changed, ok := signal.Body[1].(map[string]dbus.Variant)
		if !ok {
			return
		}

		powered, ok := property[bool](changed, "Powered")
		if !ok {
			return
		}

		d.adapter.powered = powered

	case interfacesAdded, interfacesRemoved:
		if err := d.refreshLocked(ctx); err != nil {
			logging.Logger().Warn("Cannot refresh the Bluetooth adapter", zap.Error(err))
		}

	default:
		return
	}

	if adapterState(d.adapter, d.found) != previous {
		d.notifyLocked()
	}
}
