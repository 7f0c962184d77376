package config

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"gopkg.in/yaml.v3"
)

// RebindPolicy describes what SetupController does while a session is open.
type RebindPolicy string

const (
	// RebindReject rejects the new controller and keeps the open session.
	RebindReject RebindPolicy = "reject"

	// RebindReplace closes the open session and binds the new controller.
	RebindReplace RebindPolicy = "replace"
)

const (
	// The default timeout duration for session access requests.
	DefaultAuthTimeout = 10 * time.Second

	// The default duration of a device scan.
	DefaultScanTimeout = 5 * time.Second

	// The default timeout for opening a stream to an accessory.
	DefaultDialTimeout = 10 * time.Second

	DefaultReadBufferSize = 1024
	DefaultEventBuffer    = 256
	DefaultRFCOMMChannel  = 1

	// DefaultProfileUUID is the Serial Port Profile UUID.
	DefaultProfileUUID = "00001101-0000-1000-8000-00805f9b34fb"
)

// Configuration describes a general configuration.
type Configuration struct {
	// AuthTimeout holds the timeout for session access requests.
	AuthTimeout time.Duration `yaml:"auth_timeout"`

	// ScanTimeout bounds the duration of a device enumeration.
	ScanTimeout time.Duration `yaml:"scan_timeout"`

	// DialTimeout bounds the time taken to open a stream to an accessory.
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// RebindPolicy selects the behavior of SetupController while a session is open.
	RebindPolicy RebindPolicy `yaml:"rebind_policy"`

	// ReadBufferSize is the size of a single read from the accessory stream.
	ReadBufferSize int `yaml:"read_buffer_size"`

	// EventBuffer is the capacity of the host event queue.
	// Events published while the queue is full are dropped.
	EventBuffer int `yaml:"event_buffer"`

	// VerifyChecksum drops received trames with an invalid checksum.
	VerifyChecksum bool `yaml:"verify_checksum"`

	// RFCOMMChannel is the RFCOMM channel dialed on Linux.
	RFCOMMChannel uint8 `yaml:"rfcomm_channel"`

	// ProfileUUID filters enumerated devices by an advertised profile.
	// Specific to Linux. An empty value lists all paired devices.
	ProfileUUID string `yaml:"profile_uuid"`

	// Simulate selects the simulated accessory driver on every platform.
	Simulate bool `yaml:"simulate"`

	// LogLevel is one of "debug", "info", "warn" or "error".
	LogLevel string `yaml:"log_level"`

	// LogFormat is either "json" or "console".
	LogFormat string `yaml:"log_format"`
}

// New returns a new configuration with the default values.
func New() Configuration {
	return Configuration{
		AuthTimeout:    DefaultAuthTimeout,
		ScanTimeout:    DefaultScanTimeout,
		DialTimeout:    DefaultDialTimeout,
		RebindPolicy:   RebindReject,
		ReadBufferSize: DefaultReadBufferSize,
		EventBuffer:    DefaultEventBuffer,
		RFCOMMChannel:  DefaultRFCOMMChannel,
		ProfileUUID:    DefaultProfileUUID,
		LogLevel:       "info",
		LogFormat:      "console",
	}
}

// Load reads a YAML configuration file on top of the default values.
func Load(path string) (Configuration, error) {
	cfg := New()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fault.Wrap(err,
			fctx.With(context.Background(), "config_path", path),
			ftag.With(ftag.NotFound),
			fmsg.WithDesc("read config", "Cannot read the configuration file."),
		)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fault.Wrap(err,
			fctx.With(context.Background(), "config_path", path),
			ftag.With(ftag.InvalidArgument),
			fmsg.WithDesc("parse config", "Cannot parse the configuration file."),
		)
	}

	return cfg.Normalize(), nil
}

// Normalize replaces unset or invalid values with their defaults.
func (c Configuration) Normalize() Configuration {
	def := New()

	if c.AuthTimeout <= 0 {
		c.AuthTimeout = def.AuthTimeout
	}
	if c.ScanTimeout <= 0 {
		c.ScanTimeout = def.ScanTimeout
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = def.DialTimeout
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = def.ReadBufferSize
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = def.EventBuffer
	}
	if c.RFCOMMChannel == 0 {
		c.RFCOMMChannel = def.RFCOMMChannel
	}

	switch RebindPolicy(strings.ToLower(string(c.RebindPolicy))) {
	case RebindReplace:
		c.RebindPolicy = RebindReplace
	default:
		c.RebindPolicy = RebindReject
	}

	return c
}
