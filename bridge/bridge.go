// Package bridge implements the host-facing Bluetooth bridge.
//
// A bridge binds to one accessory at a time and keeps at most one open
// session with it. Data received from the accessory, radio state changes
// and diagnostics are delivered to the host asynchronously, through a
// HostDispatcher, as (method name, payload) string pairs.
package bridge

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/blocinbloc/native-bluetooth/api/bluetooth"
	"github.com/blocinbloc/native-bluetooth/api/config"
	"github.com/blocinbloc/native-bluetooth/api/errorkinds"
	"github.com/blocinbloc/native-bluetooth/api/eventbus"
	sstore "github.com/blocinbloc/native-bluetooth/api/helpers/devicestore"
	"github.com/blocinbloc/native-bluetooth/api/logging"
	"github.com/blocinbloc/native-bluetooth/internal/serde"
)

// State describes the position of a bridge in its lifecycle.
type State int

const (
	NoController State = iota
	ControllerBound
	SessionOpen
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case ControllerBound:
		return "controller-bound"
	case SessionOpen:
		return "session-open"
	}

	return "no-controller"
}

// emptyDeviceList is returned when an enumeration fails.
const emptyDeviceList = "[]"

// unexpectedIssue is sent to the host for errors without a description.
const unexpectedIssue = "An unexpected error occurred."

// Stats holds the host event counters of a bridge.
type Stats struct {
	// Published is the number of events queued for the host.
	Published int64

	// Delivered is the number of events handed to the host dispatcher.
	// Published minus Delivered is the number of events in flight or dropped.
	Delivered int64
}

// Bridge describes a Bluetooth bridge.
type Bridge struct {
	cfg        config.Configuration
	driver     bluetooth.Driver
	authorizer bluetooth.AccessAuthorizer
	host       bluetooth.HostDispatcher

	events *eventbus.Emitter
	store  sstore.DeviceStore
	log    *zap.Logger

	bound   *bluetooth.DeviceData
	session *session
	closed  atomic.Bool

	scanID atomic.Int64
	scans  *xsync.MapOf[int64, context.CancelFunc]

	published *xsync.Counter
	delivered *xsync.Counter

	dispatchDone chan struct{}

	// Serializes controller and session transitions.
	sync.Mutex
}

var _ bluetooth.Bridge = (*Bridge)(nil)

// New starts the driver and returns a bridge delivering its events to host.
// A nil authorizer accepts every session, a nil host discards all events.
func New(
	driver bluetooth.Driver,
	host bluetooth.HostDispatcher,
	authorizer bluetooth.AccessAuthorizer,
	cfg config.Configuration,
) (*Bridge, error) {
	if driver == nil {
		return nil, fault.Wrap(errorkinds.ErrNotSupported,
			fctx.With(context.Background(), "error_at", "new-bridge"),
			ftag.With(ftag.InvalidArgument),
			fmsg.WithDesc("no driver", "No Bluetooth driver is available."),
		)
	}
	if host == nil {
		host = bluetooth.NilDispatcher{}
	}
	if authorizer == nil {
		authorizer = bluetooth.DefaultAuthorizer{}
	}

	cfg = cfg.Normalize()

	b := &Bridge{
		cfg:          cfg,
		driver:       driver,
		authorizer:   authorizer,
		host:         host,
		events:       eventbus.New(cfg.EventBuffer),
		store:        sstore.NewDeviceStore(),
		log:          logging.Logger().Named("bridge"),
		scans:        xsync.NewMapOf[int64, context.CancelFunc](),
		published:    xsync.NewCounter(),
		delivered:    xsync.NewCounter(),
		dispatchDone: make(chan struct{}),
	}

	ids := make([]eventbus.EventID, 0, len(bluetooth.Events())+1)
	ids = append(ids, bluetooth.EventNone)
	for _, id := range bluetooth.Events() {
		ids = append(ids, id)
	}
	go b.dispatch(b.events.Subscribe(ids...))

	if err := driver.Start(b.stateChanged); err != nil {
		b.events.Close()
		<-b.dispatchDone

		return nil, fault.Wrap(err,
			fctx.With(context.Background(), "error_at", "start-driver"),
			ftag.With(ftag.Internal),
			fmsg.WithDesc("start driver", "Cannot start the Bluetooth driver."),
		)
	}

	return b, nil
}

// SendEventToHost queues an event for the host and returns immediately.
func (b *Bridge) SendEventToHost(eventName, payload string) {
	b.publishEvent(bluetooth.HostEvent{
		ID:      bluetooth.ParseEventID(eventName),
		Method:  eventName,
		Payload: payload,
	})
}

// EnumerateDevices scans for accessories and returns them as a JSON array.
// A failed or empty scan returns "[]".
func (b *Bridge) EnumerateDevices() string {
	blob, err := b.EnumerateDevicesContext(context.Background())
	if err != nil {
		b.fail("enumerate-devices", err)
	}

	return blob
}

// EnumerateDevicesContext is EnumerateDevices with a caller-provided context.
// The scan is additionally bounded by the configured scan timeout, and is
// cancelled by CloseSession.
func (b *Bridge) EnumerateDevicesContext(ctx context.Context) (string, error) {
	if b.closed.Load() {
		return emptyDeviceList, errorkinds.ErrBridgeClosed
	}

	devices, err := b.scan(ctx)
	if err != nil {
		return emptyDeviceList, err
	}

	blob, err := serde.MarshalJson(devices)
	if err != nil {
		return emptyDeviceList, fault.Wrap(err,
			fctx.With(ctx, "error_at", "encode-devices"),
			ftag.With(ftag.Internal),
		)
	}

	return string(blob), nil
}

// Devices returns the accessories found by the last enumeration.
func (b *Bridge) Devices() []bluetooth.DeviceData {
	return b.store.Devices()
}

// SetupController binds the bridge to the accessory with the given identifier.
// It fails if the identifier is empty or unknown, if the radio is not
// available, or, with the reject rebind policy, if a session is open.
func (b *Bridge) SetupController(connectionID string) bool {
	b.Lock()
	defer b.Unlock()

	if err := b.setupController(connectionID); err != nil {
		b.fail("setup-controller", err)
		return false
	}

	return true
}

// OpenSession opens a session with the bound accessory.
// It fails if no controller is bound, a session is already open,
// or the platform denies access to the accessory.
func (b *Bridge) OpenSession() bool {
	b.Lock()
	defer b.Unlock()

	if err := b.openSession(); err != nil {
		b.fail("open-session", err)
		return false
	}

	return true
}

// CloseSession closes the open session and cancels in-flight scans.
// It does nothing if no session is open.
func (b *Bridge) CloseSession() {
	b.cancelScans()

	b.Lock()
	defer b.Unlock()

	b.closeSession()
}

// ApplicationWillEnterForeground reopens the open session, if any.
// Streams are usually invalidated while the host application is suspended.
func (b *Bridge) ApplicationWillEnterForeground() bool {
	b.Lock()
	defer b.Unlock()

	if b.session == nil {
		return true
	}

	b.closeSession()
	if err := b.openSession(); err != nil {
		b.fail("reopen-session", err)
		return false
	}

	return true
}

// State returns the current state of the bridge.
func (b *Bridge) State() State {
	b.Lock()
	defer b.Unlock()

	switch {
	case b.session != nil:
		return SessionOpen
	case b.bound != nil:
		return ControllerBound
	}

	return NoController
}

// ControllerState returns the current radio state.
func (b *Bridge) ControllerState() bluetooth.ControllerState {
	return b.driver.State()
}

// Stats returns the host event counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Published: b.published.Value(),
		Delivered: b.delivered.Value(),
	}
}

// Close closes the session, stops the driver and waits for the
// queued events to be delivered to the host.
func (b *Bridge) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return errorkinds.ErrBridgeClosed
	}

	b.CloseSession()

	b.Lock()
	b.bound = nil
	b.Unlock()

	err := b.driver.Stop()

	b.events.Close()
	<-b.dispatchDone

	if err != nil {
		return fault.Wrap(err,
			fctx.With(context.Background(), "error_at", "stop-driver"),
			ftag.With(ftag.Internal),
		)
	}

	return nil
}

func (b *Bridge) setupController(connectionID string) error {
	ctx := fctx.WithMeta(context.Background(), "connection_id", connectionID)

	if b.closed.Load() {
		return errorkinds.ErrBridgeClosed
	}

	if connectionID == "" {
		return fault.Wrap(errorkinds.ErrInvalidIdentifier,
			fctx.With(ctx),
			ftag.With(ftag.InvalidArgument),
			fmsg.WithDesc("empty connection identifier", "The connection identifier is empty."),
		)
	}

	if b.session != nil && b.cfg.RebindPolicy == config.RebindReject {
		return fault.Wrap(errorkinds.ErrSessionExists,
			fctx.With(ctx, "bound_id", b.session.device.ConnectionID),
			ftag.With(ftag.AlreadyExists),
			fmsg.WithDesc("rebind rejected", "Close the open session before binding another controller."),
		)
	}

	if err := b.checkRadio(ctx); err != nil {
		return err
	}

	device, ok := b.store.Device(connectionID)
	if !ok {
		if _, err := b.scan(ctx); err != nil {
			return err
		}

		device, ok = b.store.Device(connectionID)
	}
	if !ok {
		return fault.Wrap(errorkinds.ErrControllerNotFound,
			fctx.With(ctx),
			ftag.With(ftag.NotFound),
			fmsg.WithDesc("accessory not found", "The accessory was not found."),
		)
	}

	if b.session != nil {
		b.log.Info("Replacing the open session", zap.String("connection_id", connectionID))
		b.closeSession()
	}

	b.bound = &device
	b.log.Info("Controller bound", zap.String("connection_id", connectionID), zap.String("name", device.Name))

	return nil
}

func (b *Bridge) openSession() error {
	if b.closed.Load() {
		return errorkinds.ErrBridgeClosed
	}

	if b.bound == nil {
		return fault.Wrap(errorkinds.ErrNoController,
			ftag.With(ftag.InvalidArgument),
			fmsg.WithDesc("no controller bound", "No controller is bound."),
		)
	}

	device := *b.bound
	ctx := fctx.WithMeta(context.Background(), "connection_id", device.ConnectionID)

	if b.session != nil {
		return fault.Wrap(errorkinds.ErrSessionExists,
			fctx.With(ctx),
			ftag.With(ftag.AlreadyExists),
			fmsg.WithDesc("session already open", "A session is already open."),
		)
	}

	if err := b.checkRadio(ctx); err != nil {
		return err
	}

	timeout := bluetooth.NewAccessTimeout(b.cfg.AuthTimeout)
	defer timeout.Cancel()

	if err := b.authorizer.AuthorizeSession(timeout, device); err != nil {
		return fault.Wrap(errors.Join(errorkinds.ErrNotAuthorized, err),
			fctx.With(ctx),
			ftag.With(ftag.PermissionDenied),
			fmsg.WithDesc("session access denied", "Access to the accessory was denied."),
		)
	}

	dialCtx, cancel := context.WithTimeout(ctx, b.cfg.DialTimeout)
	defer cancel()

	conn, err := b.driver.Dial(dialCtx, device)
	if err != nil {
		return fault.Wrap(err,
			fctx.With(ctx, "error_at", "dial"),
			ftag.With(ftag.Internal),
			fmsg.WithDesc("dial accessory", "Cannot open a stream to the accessory."),
		)
	}

	b.session = newSession(b, device, conn)
	b.session.start()
	b.session.log.Info("Session opened")

	return nil
}

func (b *Bridge) closeSession() {
	if b.session == nil {
		return
	}

	s := b.session
	b.session = nil

	s.close()
	s.log.Info("Session closed")
}

// sessionEnded is called when the stream of s ends without CloseSession.
func (b *Bridge) sessionEnded(s *session, err error) {
	b.Lock()
	current := b.session == s
	if current {
		b.session = nil
	}
	b.Unlock()

	if !current {
		return
	}

	s.closing.Store(true)
	s.conn.Close()

	s.log.Info("Accessory disconnected", zap.Error(err))
	b.publish(bluetooth.EventAccessoryDisconnect, "")
}

func (b *Bridge) checkRadio(ctx context.Context) error {
	state := b.driver.State()

	switch state {
	case bluetooth.StatePoweredOn:
		return nil

	case bluetooth.StateUnauthorized:
		return fault.Wrap(errorkinds.ErrNotAuthorized,
			fctx.With(ctx, "state", state.String()),
			ftag.With(ftag.PermissionDenied),
			fmsg.WithDesc("radio unauthorized", "Bluetooth access is not authorized."),
		)
	}

	return fault.Wrap(errorkinds.ErrAdapterNotPowered,
		fctx.With(ctx, "state", state.String()),
		ftag.With(ftag.PermissionDenied),
		fmsg.WithDesc("radio unavailable", "Bluetooth is not available."),
	)
}

// scan lists the accessories and replaces the contents of the device store.
func (b *Bridge) scan(ctx context.Context) ([]bluetooth.DeviceData, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.ScanTimeout)
	defer cancel()

	id := b.scanID.Add(1)
	b.scans.Store(id, cancel)
	defer b.scans.Delete(id)

	devices, err := b.driver.Devices(ctx)
	if err != nil {
		return nil, fault.Wrap(err,
			fctx.With(ctx, "error_at", "scan"),
			fmsg.WithDesc("list accessories", "Cannot list Bluetooth accessories."),
		)
	}

	if devices == nil {
		devices = []bluetooth.DeviceData{}
	}
	b.store.Replace(devices)

	b.log.Debug("Scan complete", zap.Int("devices", len(devices)))

	return devices, nil
}

func (b *Bridge) cancelScans() {
	b.scans.Range(func(_ int64, cancel context.CancelFunc) bool {
		cancel()
		return true
	})
}

func (b *Bridge) stateChanged(state bluetooth.ControllerState) {
	b.log.Info("Controller state changed", zap.Stringer("state", state))
	b.publish(bluetooth.EventBluetoothStateChanged, state.Payload())
}

func (b *Bridge) publish(id bluetooth.EventID, payload string) {
	b.publishEvent(bluetooth.HostEvent{ID: id, Method: id.String(), Payload: payload})
}

func (b *Bridge) publishEvent(event bluetooth.HostEvent) {
	if event.Method == "" {
		return
	}

	b.published.Inc()
	b.events.Publish(event.ID, event)
}

// fail logs err and forwards its user-facing message to the host.
func (b *Bridge) fail(op string, err error) {
	b.log.Warn("Bridge operation failed",
		zap.String("op", op),
		zap.String("kind", string(ftag.Get(err))),
		zap.Any("context", fctx.Unwrap(err)),
		zap.Error(err),
	)

	message := fmsg.GetIssue(err)
	if message == "" {
		message = unexpectedIssue
	}

	b.publish(bluetooth.EventBridgeError, op+": "+message)
}
