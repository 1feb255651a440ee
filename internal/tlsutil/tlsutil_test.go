package tlsutil

import (
	"crypto/tls"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTLSConfig(t *testing.T) {
	cfg := DefaultTLSConfig()
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	assert.NotEmpty(t, cfg.CipherSuites)
}

func TestSecureTransport_PoolDefaults(t *testing.T) {
	tr := SecureTransport(PoolConfig{})
	require.NotNil(t, tr.TLSClientConfig)
	assert.Equal(t, 20, tr.MaxIdleConns)
	assert.Equal(t, 10, tr.MaxIdleConnsPerHost)
	assert.Equal(t, 20, tr.MaxConnsPerHost)
	assert.Equal(t, 120*time.Second, tr.IdleConnTimeout)
}

func TestSecureHTTPClient(t *testing.T) {
	c := SecureHTTPClient(5*time.Second, PoolConfig{MaxConnsPerHost: 4})
	assert.Equal(t, 5*time.Second, c.Timeout)
	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 4, tr.MaxConnsPerHost)
	assert.Equal(t, 10, tr.MaxIdleConnsPerHost)
}
