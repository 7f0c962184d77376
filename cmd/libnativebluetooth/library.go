// Command libnativebluetooth builds the bridge as a C shared library
// for native plugin hosts:
//
//	go build -buildmode=c-shared -o libnativebluetooth.so ./cmd/libnativebluetooth
//
// The host registers a callback with RegisterHostCallback, which receives
// every event as a (method, message) pair of C strings.
package main

import (
	"sync"

	"go.uber.org/zap"

	"github.com/blocinbloc/native-bluetooth/api/bluetooth"
	"github.com/blocinbloc/native-bluetooth/api/config"
	"github.com/blocinbloc/native-bluetooth/api/errorkinds"
	"github.com/blocinbloc/native-bluetooth/api/logging"
	"github.com/blocinbloc/native-bluetooth/bridge"
	"github.com/blocinbloc/native-bluetooth/platform"
)

// hostRelay forwards events to a dispatcher that can be replaced at any time.
type hostRelay struct {
	dispatcher bluetooth.HostDispatcher
	mu         sync.RWMutex
}

func (h *hostRelay) set(dispatcher bluetooth.HostDispatcher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.dispatcher = dispatcher
}

// SendEventToHost forwards the event, or drops it if no dispatcher is set.
func (h *hostRelay) SendEventToHost(methodName, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.dispatcher != nil {
		h.dispatcher.SendEventToHost(methodName, message)
	}
}

// library holds the bridge shared by all exported functions.
type library struct {
	bridge *bridge.Bridge
	host   hostRelay

	newDriver func(config.Configuration) (bluetooth.Driver, platform.PlatformInfo)

	mu sync.Mutex
}

var lib = &library{newDriver: platform.Driver}

// initialize creates the bridge. An empty path selects the default configuration.
// It does nothing if the bridge already exists.
func (l *library) initialize(configPath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.bridge != nil {
		return nil
	}

	cfg := config.New()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}

		cfg = loaded
	}

	logger, err := logging.New(cfg)
	if err != nil {
		return err
	}
	logging.SetLogger(logger)

	driver, info := l.newDriver(cfg)
	b, err := bridge.New(driver, &l.host, nil, cfg)
	if err != nil {
		return err
	}

	logger.Info("Bridge initialized",
		zap.String("os", info.OS),
		zap.Stringer("stack", info.Stack),
		zap.Bool("simulated", info.Simulated()),
	)

	l.bridge = b

	return nil
}

// current returns the bridge, creating it with the default configuration
// if the host did not initialize the library.
func (l *library) current() (*bridge.Bridge, error) {
	if err := l.initialize(""); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.bridge == nil {
		return nil, errorkinds.ErrBridgeClosed
	}

	return l.bridge, nil
}

func (l *library) shutdown() error {
	l.mu.Lock()
	b := l.bridge
	l.bridge = nil
	l.mu.Unlock()

	if b == nil {
		return nil
	}

	return b.Close()
}

func (l *library) getDevices() string {
	b, err := l.current()
	if err != nil {
		logging.Logger().Error("Cannot enumerate devices", zap.Error(err))
		return "[]"
	}

	return b.EnumerateDevices()
}

func (l *library) setupController(connectionID string) bool {
	b, err := l.current()
	if err != nil {
		logging.Logger().Error("Cannot set up controller", zap.Error(err))
		return false
	}

	return b.SetupController(connectionID)
}

func (l *library) openSession() bool {
	b, err := l.current()
	if err != nil {
		logging.Logger().Error("Cannot open session", zap.Error(err))
		return false
	}

	return b.OpenSession()
}

func (l *library) closeSession() {
	l.mu.Lock()
	b := l.bridge
	l.mu.Unlock()

	if b != nil {
		b.CloseSession()
	}
}

func (l *library) enterForeground() bool {
	l.mu.Lock()
	b := l.bridge
	l.mu.Unlock()

	if b == nil {
		return true
	}

	return b.ApplicationWillEnterForeground()
}

func main() {}
