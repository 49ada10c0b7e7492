package logging

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, _, err := New("loud", "")
	assert.Error(t, err)
}

func TestNewTeesIntoGelf(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	logger, closeFn, err := New("debug", pc.LocalAddr().String())
	require.NoError(t, err)
	defer closeFn()

	logger.Debug("hello gelf")

	buf := make([]byte, 4096)
	pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	// the first datagram is the "gelf logging enabled" entry
	for i := 0; i < 2; i++ {
		n, _, err := pc.ReadFrom(buf)
		require.NoError(t, err)
		if i == 1 {
			assert.Contains(t, string(buf[:n]), "hello gelf")
		}
	}
}
