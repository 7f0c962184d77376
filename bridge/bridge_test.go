package bridge

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocinbloc/native-bluetooth/api/bluetooth"
	"github.com/blocinbloc/native-bluetooth/api/config"
	"github.com/blocinbloc/native-bluetooth/api/errorkinds"
	"github.com/blocinbloc/native-bluetooth/internal/serde"
	"github.com/blocinbloc/native-bluetooth/simulator"
)

var (
	gnss  = bluetooth.DeviceData{ConnectionID: "44585484", Name: "Leica GG04 plus", Manufacturer: "Leica Geosystems"}
	spare = bluetooth.DeviceData{ConnectionID: "44585485", Name: "Leica GG04 plus (spare)"}
)

type recordingHost struct {
	events chan bluetooth.HostEvent
}

func newRecordingHost() *recordingHost {
	return &recordingHost{events: make(chan bluetooth.HostEvent, 256)}
}

func (r *recordingHost) SendEventToHost(methodName, message string) {
	r.events <- bluetooth.HostEvent{Method: methodName, Payload: message}
}

// waitFor returns the next event sent to method, skipping other events.
func (r *recordingHost) waitFor(t *testing.T, method string) bluetooth.HostEvent {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-r.events:
			if ev.Method == method {
				return ev
			}

		case <-timeout:
			t.Fatalf("timed out waiting for %s", method)
		}
	}
}

func newTestBridge(t *testing.T, cfg config.Configuration, opts ...simulator.Option) (*Bridge, *simulator.Driver, *recordingHost) {
	t.Helper()

	opts = append([]simulator.Option{
		simulator.WithDevices(gnss, spare),
		simulator.WithFrames(0),
	}, opts...)

	driver := simulator.NewDriver(opts...)
	host := newRecordingHost()

	b, err := New(driver, host, nil, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	return b, driver, host
}

func openTestSession(t *testing.T, b *Bridge) {
	t.Helper()

	require.True(t, b.SetupController(gnss.ConnectionID))
	require.True(t, b.OpenSession())
	require.Equal(t, SessionOpen, b.State())
}

func TestNewWithoutDriver(t *testing.T) {
	_, err := New(nil, nil, nil, config.New())
	assert.ErrorIs(t, err, errorkinds.ErrNotSupported)
}

func TestInitialStateEvent(t *testing.T) {
	b, _, host := newTestBridge(t, config.New())

	ev := host.waitFor(t, "BluetoothStateChanged")
	assert.Equal(t, "5", ev.Payload)
	assert.Equal(t, NoController, b.State())
}

func TestEnumerateDevices(t *testing.T) {
	b, _, _ := newTestBridge(t, config.New())

	var devices []bluetooth.DeviceData
	require.NoError(t, serde.UnmarshalJson([]byte(b.EnumerateDevices()), &devices))

	assert.Equal(t, []bluetooth.DeviceData{gnss, spare}, devices)
	assert.Len(t, b.Devices(), 2)
}

func TestEnumerateNoDevices(t *testing.T) {
	b, _, _ := newTestBridge(t, config.New(), simulator.WithDevices())

	assert.Equal(t, "[]", b.EnumerateDevices())
}

func TestEnumerateRadioOff(t *testing.T) {
	b, _, host := newTestBridge(t, config.New(), simulator.WithState(bluetooth.StatePoweredOff))

	assert.Equal(t, "[]", b.EnumerateDevices())

	ev := host.waitFor(t, "OnBridgeError")
	assert.Contains(t, ev.Payload, "enumerate-devices")
}

func TestSetupControllerEmptyIdentifier(t *testing.T) {
	b, _, host := newTestBridge(t, config.New())

	assert.False(t, b.SetupController(""))
	assert.Equal(t, NoController, b.State())

	ev := host.waitFor(t, "OnBridgeError")
	assert.Equal(t, "setup-controller: The connection identifier is empty.", ev.Payload)
}

func TestSetupControllerUnknownIdentifier(t *testing.T) {
	b, _, _ := newTestBridge(t, config.New())

	assert.False(t, b.SetupController("unknown"))
	assert.Equal(t, NoController, b.State())
}

func TestSetupControllerScansWhenNotEnumerated(t *testing.T) {
	b, _, _ := newTestBridge(t, config.New())

	assert.True(t, b.SetupController(spare.ConnectionID))
	assert.Equal(t, ControllerBound, b.State())
}

func TestSetupControllerUnauthorized(t *testing.T) {
	b, _, _ := newTestBridge(t, config.New(), simulator.WithState(bluetooth.StateUnauthorized))

	assert.False(t, b.SetupController(gnss.ConnectionID))
}

func TestOpenSessionWithoutController(t *testing.T) {
	b, _, host := newTestBridge(t, config.New())

	assert.False(t, b.OpenSession())
	assert.Equal(t, NoController, b.State())

	ev := host.waitFor(t, "OnBridgeError")
	assert.Equal(t, "open-session: No controller is bound.", ev.Payload)
}

func TestBridgeErrorPayloadIsDescription(t *testing.T) {
	b, _, host := newTestBridge(t, config.New(), simulator.WithState(bluetooth.StatePoweredOff))

	assert.False(t, b.SetupController(gnss.ConnectionID))

	ev := host.waitFor(t, "OnBridgeError")
	assert.Equal(t, "setup-controller: Bluetooth is not available.", ev.Payload)
	assert.NotContains(t, ev.Payload, errorkinds.ErrAdapterNotPowered.Error())
	assert.NotContains(t, ev.Payload, "radio unavailable")
}

func TestBridgeErrorWithoutDescription(t *testing.T) {
	b, _, host := newTestBridge(t, config.New())

	b.fail("scan", errors.New("socket: connection reset by peer"))

	ev := host.waitFor(t, "OnBridgeError")
	assert.Equal(t, "scan: "+unexpectedIssue, ev.Payload)
}

func TestOpenSessionTwice(t *testing.T) {
	b, _, _ := newTestBridge(t, config.New())
	openTestSession(t, b)

	assert.False(t, b.OpenSession())
	assert.Equal(t, SessionOpen, b.State())
}

func TestOpenSessionRadioOff(t *testing.T) {
	b, driver, _ := newTestBridge(t, config.New())

	require.True(t, b.SetupController(gnss.ConnectionID))
	driver.SetState(bluetooth.StatePoweredOff)

	assert.False(t, b.OpenSession())
	assert.Equal(t, ControllerBound, b.State())
}

func TestOpenSessionDenied(t *testing.T) {
	driver := simulator.NewDriver(simulator.WithDevices(gnss), simulator.WithFrames(0))
	deny := bluetooth.AuthorizerFunc(func(_ bluetooth.AccessTimeout, device bluetooth.DeviceData) error {
		return fmt.Errorf("user denied access to %s", device.Name)
	})

	b, err := New(driver, nil, deny, config.New())
	require.NoError(t, err)
	defer b.Close()

	require.True(t, b.SetupController(gnss.ConnectionID))
	assert.False(t, b.OpenSession())
	assert.Equal(t, ControllerBound, b.State())
}

func TestOpenSessionDialFailure(t *testing.T) {
	b, driver, _ := newTestBridge(t, config.New())
	driver.FailDial(errors.New("connection refused"))

	require.True(t, b.SetupController(gnss.ConnectionID))
	assert.False(t, b.OpenSession())
	assert.Equal(t, ControllerBound, b.State())

	driver.FailDial(nil)
	assert.True(t, b.OpenSession())
}

func TestCloseSessionIdempotent(t *testing.T) {
	b, _, _ := newTestBridge(t, config.New())

	b.CloseSession()
	assert.Equal(t, NoController, b.State())

	openTestSession(t, b)

	b.CloseSession()
	b.CloseSession()
	assert.Equal(t, ControllerBound, b.State())

	assert.True(t, b.OpenSession())
	assert.Equal(t, SessionOpen, b.State())
}

func TestRebindRejectedWhileSessionOpen(t *testing.T) {
	b, _, _ := newTestBridge(t, config.New())
	openTestSession(t, b)

	assert.False(t, b.SetupController(spare.ConnectionID))
	assert.Equal(t, SessionOpen, b.State())

	b.CloseSession()
	assert.True(t, b.SetupController(spare.ConnectionID))
}

func TestRebindReplacesSession(t *testing.T) {
	cfg := config.New()
	cfg.RebindPolicy = config.RebindReplace

	b, _, _ := newTestBridge(t, cfg)
	openTestSession(t, b)

	assert.True(t, b.SetupController(spare.ConnectionID))
	assert.Equal(t, ControllerBound, b.State())

	require.True(t, b.OpenSession())
	b.Lock()
	assert.Equal(t, spare.ConnectionID, b.session.device.ConnectionID)
	b.Unlock()
}

func TestTramesAcrossReads(t *testing.T) {
	b, driver, host := newTestBridge(t, config.New())
	openTestSession(t, b)

	accessory, ok := driver.Accessory()
	require.True(t, ok)

	_, err := accessory.Write([]byte("$GPGGA,1"))
	require.NoError(t, err)
	_, err = accessory.Write([]byte(",2\r\n$GPRMC,3\r\n"))
	require.NoError(t, err)

	assert.Equal(t, "$GPGGA,1,2", host.waitFor(t, "OnTrameReceived").Payload)
	assert.Equal(t, "$GPRMC,3", host.waitFor(t, "OnTrameReceived").Payload)
}

func TestTramesFromSimulatedAccessory(t *testing.T) {
	b, _, host := newTestBridge(t, config.New(),
		simulator.WithFrames(10*time.Millisecond, "$GPGGA,1", "$GPGGA,2"),
	)
	openTestSession(t, b)

	assert.Equal(t, "$GPGGA,1", host.waitFor(t, "OnTrameReceived").Payload)
	assert.Equal(t, "$GPGGA,2", host.waitFor(t, "OnTrameReceived").Payload)
	assert.Equal(t, "$GPGGA,1", host.waitFor(t, "OnTrameReceived").Payload)
}

func TestVerifyChecksum(t *testing.T) {
	cfg := config.New()
	cfg.VerifyChecksum = true

	b, driver, host := newTestBridge(t, cfg)
	openTestSession(t, b)

	body := "GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"
	valid := "$" + body + "*" + nmea.Checksum(body)
	invalid := "$" + body + "*00"
	unsupported := "$PLEIR,HPR,1*" + nmea.Checksum("PLEIR,HPR,1")

	accessory, ok := driver.Accessory()
	require.True(t, ok)

	_, err := accessory.Write([]byte(invalid + "\r\ngarbage\r\n$" + body + "\r\n" + valid + "\r\n" + unsupported + "\r\n"))
	require.NoError(t, err)

	assert.Equal(t, valid, host.waitFor(t, "OnTrameReceived").Payload)
	assert.Equal(t, unsupported, host.waitFor(t, "OnTrameReceived").Payload)
}

func TestAccessoryDisconnect(t *testing.T) {
	b, driver, host := newTestBridge(t, config.New())
	openTestSession(t, b)

	driver.Disconnect()

	ev := host.waitFor(t, "OnAccessoryDisconnect")
	assert.Equal(t, "", ev.Payload)
	assert.Equal(t, ControllerBound, b.State())

	assert.True(t, b.OpenSession())
}

func TestCloseSessionDoesNotReportDisconnect(t *testing.T) {
	b, _, host := newTestBridge(t, config.New())
	openTestSession(t, b)

	b.CloseSession()
	b.SendEventToHost("Marker", "")

	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-host.events:
			if ev.Method == "Marker" {
				return
			}
			assert.NotEqual(t, "OnAccessoryDisconnect", ev.Method)

		case <-timeout:
			t.Fatal("timed out waiting for Marker")
		}
	}
}

func TestStateChangedEvent(t *testing.T) {
	b, driver, host := newTestBridge(t, config.New())
	host.waitFor(t, "BluetoothStateChanged")

	driver.SetState(bluetooth.StatePoweredOff)

	ev := host.waitFor(t, "BluetoothStateChanged")
	assert.Equal(t, "4", ev.Payload)
	assert.Equal(t, bluetooth.StatePoweredOff, b.ControllerState())
}

func TestCloseSessionCancelsScan(t *testing.T) {
	cfg := config.New()
	cfg.ScanTimeout = time.Minute

	b, _, _ := newTestBridge(t, cfg, simulator.WithScanDelay(time.Minute))

	result := make(chan error, 1)
	go func() {
		_, err := b.EnumerateDevicesContext(context.Background())
		result <- err
	}()

	require.Eventually(t, func() bool { return b.scans.Size() > 0 }, time.Second, time.Millisecond)
	b.CloseSession()

	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scan was not cancelled")
	}
}

func TestScanTimeout(t *testing.T) {
	cfg := config.New()
	cfg.ScanTimeout = 20 * time.Millisecond

	b, _, _ := newTestBridge(t, cfg, simulator.WithScanDelay(time.Minute))

	blob, err := b.EnumerateDevicesContext(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "[]", blob)
}

func TestApplicationWillEnterForeground(t *testing.T) {
	b, driver, host := newTestBridge(t, config.New())

	assert.True(t, b.ApplicationWillEnterForeground())
	assert.Equal(t, NoController, b.State())

	openTestSession(t, b)
	first, _ := driver.Accessory()

	assert.True(t, b.ApplicationWillEnterForeground())
	assert.Equal(t, SessionOpen, b.State())

	second, ok := driver.Accessory()
	require.True(t, ok)
	assert.False(t, first == second)

	_, err := second.Write([]byte("$GPGGA,1\n"))
	require.NoError(t, err)
	assert.Equal(t, "$GPGGA,1", host.waitFor(t, "OnTrameReceived").Payload)
}

func TestSendEventToHost(t *testing.T) {
	b, _, host := newTestBridge(t, config.New())

	b.SendEventToHost("CustomEvent", "payload")
	b.SendEventToHost("", "ignored")

	ev := host.waitFor(t, "CustomEvent")
	assert.Equal(t, "payload", ev.Payload)

	require.Eventually(t, func() bool {
		stats := b.Stats()
		return stats.Published == stats.Delivered
	}, time.Second, time.Millisecond)
}

func TestHostPanicIsRecovered(t *testing.T) {
	calls := make(chan string, 4)
	host := bluetooth.HostDispatcherFunc(func(method, _ string) {
		calls <- method
		if method == "Boom" {
			panic("host failure")
		}
	})

	b, err := New(simulator.NewDriver(), host, nil, config.New())
	require.NoError(t, err)
	defer b.Close()

	b.SendEventToHost("Boom", "")
	b.SendEventToHost("After", "")

	seen := map[string]bool{}
	for len(seen) < 3 {
		select {
		case m := <-calls:
			seen[m] = true
		case <-time.After(2 * time.Second):
			t.Fatal("events were not delivered")
		}
	}

	assert.True(t, seen["After"])
}

func TestClose(t *testing.T) {
	b, _, _ := newTestBridge(t, config.New())
	openTestSession(t, b)

	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.Close(), errorkinds.ErrBridgeClosed)

	assert.Equal(t, NoController, b.State())
	assert.False(t, b.SetupController(gnss.ConnectionID))
	assert.False(t, b.OpenSession())
	assert.Equal(t, "[]", b.EnumerateDevices())

	b.CloseSession()
	b.SendEventToHost("Late", "")
}
