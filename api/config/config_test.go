package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, DefaultAuthTimeout, cfg.AuthTimeout)
	assert.Equal(t, DefaultScanTimeout, cfg.ScanTimeout)
	assert.Equal(t, DefaultDialTimeout, cfg.DialTimeout)
	assert.Equal(t, RebindReject, cfg.RebindPolicy)
	assert.Equal(t, DefaultReadBufferSize, cfg.ReadBufferSize)
	assert.Equal(t, uint8(DefaultRFCOMMChannel), cfg.RFCOMMChannel)
	assert.False(t, cfg.VerifyChecksum)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	data := `
scan_timeout: 2s
rebind_policy: Replace
verify_checksum: true
rfcomm_channel: 3
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.ScanTimeout)
	assert.Equal(t, RebindReplace, cfg.RebindPolicy)
	assert.True(t, cfg.VerifyChecksum)
	assert.Equal(t, uint8(3), cfg.RFCOMMChannel)
	assert.Equal(t, "debug", cfg.LogLevel)

	// Unset values keep their defaults.
	assert.Equal(t, DefaultAuthTimeout, cfg.AuthTimeout)
	assert.Equal(t, DefaultEventBuffer, cfg.EventBuffer)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ftag.NotFound, ftag.Get(err))
	assert.Equal(t, "Cannot read the configuration file.", fmsg.GetIssue(err))
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scan_timeout: [1, 2"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, ftag.InvalidArgument, ftag.Get(err))
}

func TestNormalize(t *testing.T) {
	cfg := Configuration{RebindPolicy: "unknown", ReadBufferSize: -1}.Normalize()

	assert.Equal(t, RebindReject, cfg.RebindPolicy)
	assert.Equal(t, DefaultReadBufferSize, cfg.ReadBufferSize)
	assert.Equal(t, DefaultScanTimeout, cfg.ScanTimeout)
	assert.Equal(t, uint8(DefaultRFCOMMChannel), cfg.RFCOMMChannel)
}
