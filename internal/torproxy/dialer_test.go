package torproxy

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrywatch/threatwatch/internal/common"
)

func TestHealthCheckSucceedsAgainstListeningPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	client, err := NewClient(common.TorConfig{ProxyHost: host, ProxyPort: port, ProxyType: "socks5", Timeout: "5s"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, client.HealthCheck(ctx))
}

func TestHealthCheckFailsWhenNothingListening(t *testing.T) {
	client, err := NewClient(common.TorConfig{ProxyHost: "127.0.0.1", ProxyPort: 1, ProxyType: "socks5", Timeout: "5s"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	assert.Error(t, client.HealthCheck(ctx))
}
