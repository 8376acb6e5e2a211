package ssh

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusphere/nimbus/internal/util/keygen"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	kp, err := keygen.GenerateRSAKeyPair(2048)
	require.NoError(t, err)
	return kp.PrivateKey
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()
	key := testKey(t)

	tests := []struct {
		name string
		cfg  *Config
	}{
		{name: "nil config", cfg: nil},
		{name: "missing host", cfg: &Config{User: "root", PrivateKey: key}},
		{name: "missing user", cfg: &Config{Host: "h", PrivateKey: key}},
		{name: "missing key", cfg: &Config{Host: "h", User: "root"}},
		{name: "garbage key", cfg: &Config{Host: "h", User: "root", PrivateKey: []byte("nope")}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewClient(tc.cfg)
			assert.Error(t, err)
		})
	}
}

func TestNewClientDefaults(t *testing.T) {
	t.Parallel()
	c, err := NewClient(&Config{Host: "203.0.113.1", User: "root", PrivateKey: testKey(t)})
	require.NoError(t, err)
	assert.Equal(t, defaultPort, c.config.Port)
	assert.Equal(t, defaultDialTimeout, c.config.DialTimeout)
	assert.Equal(t, defaultMaxRetries, c.config.MaxRetries)
	assert.NotNil(t, c.config.HostKeyCallback)
}

func TestNewClientDoesNotMutateCaller(t *testing.T) {
	t.Parallel()
	cfg := &Config{Host: "203.0.113.1", User: "root", PrivateKey: testKey(t)}
	_, err := NewClient(cfg)
	require.NoError(t, err)
	assert.Zero(t, cfg.Port)
}

func TestPackUnpackRoundTrip(t *testing.T) {
	t.Parallel()
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "logs", "controller"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "logs", "controller", "service.log"), []byte("line one\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "top.log"), []byte("top\n"), 0o600))

	var buf bytes.Buffer
	require.NoError(t, packDir(src, &buf))

	dest := t.TempDir()
	require.NoError(t, unpackStream(&buf, dest))

	data, err := os.ReadFile(filepath.Join(dest, "logs", "controller", "service.log"))
	require.NoError(t, err)
	assert.Equal(t, "line one\n", string(data))

	data, err = os.ReadFile(filepath.Join(dest, "top.log"))
	require.NoError(t, err)
	assert.Equal(t, "top\n", string(data))
}

func TestShellQuote(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "'/var/log/nimbus'", shellQuote("/var/log/nimbus"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}
