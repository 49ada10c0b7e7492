package gelf

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageMapsZapEntry(t *testing.T) {
	w := &Writer{hostname: "web-1", service: "oxisite"}
	msg := w.Message([]byte(`{"level":"warn","ts":1700000000.5,"msg":"webhook failed","form":"contact","id":7}` + "\n"))

	assert.Equal(t, "webhook failed", msg["short_message"])
	assert.Equal(t, 4, msg["level"])
	assert.Equal(t, 1700000000.5, msg["timestamp"])
	assert.Equal(t, "contact", msg["_form"])
	assert.Equal(t, float64(7), msg["_field_id"])
	assert.Equal(t, "oxisite", msg["_service"])
	assert.Equal(t, "web-1", msg["host"])
}

func TestMessageFallsBackForPlainText(t *testing.T) {
	w := &Writer{hostname: "web-1", service: "oxisite"}
	msg := w.Message([]byte("plain line\n"))
	assert.Equal(t, "plain line", msg["short_message"])
	assert.Equal(t, 6, msg["level"])
}

func TestWriteSendsUDP(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	w, err := New(pc.LocalAddr().String(), "oxisite")
	require.NoError(t, err)
	defer w.Close()

	line := []byte(`{"level":"error","msg":"boom"}`)
	n, err := w.Write(line)
	require.NoError(t, err)
	assert.Equal(t, len(line), n)

	buf := make([]byte, 2048)
	pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err = pc.ReadFrom(buf)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf[:n], &got))
	assert.Equal(t, "boom", got["short_message"])
	assert.Equal(t, float64(3), got["level"])
}
