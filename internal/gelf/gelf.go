package gelf

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"time"
)

// Writer sends GELF messages over UDP. It implements zapcore.WriteSyncer
// and expects one JSON-encoded log entry per Write, as produced by zap's
// JSON encoder.
type Writer struct {
	conn     net.Conn
	hostname string
	service  string
}

// New creates a GELF UDP writer connected to addr (e.g. "172.17.0.1:12201").
func New(addr, service string) (*Writer, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = service + "-server"
	}

	return &Writer{conn: conn, hostname: hostname, service: service}, nil
}

// syslog severities
var levels = map[string]int{
	"debug":  7,
	"info":   6,
	"warn":   4,
	"error":  3,
	"dpanic": 2,
	"panic":  2,
	"fatal":  2,
}

// Message converts one zap JSON entry into a GELF 1.1 payload.
func (w *Writer) Message(entry []byte) map[string]any {
	var fields map[string]any
	if err := json.Unmarshal(entry, &fields); err != nil {
		fields = map[string]any{"msg": strings.TrimRight(string(entry), "\n")}
	}

	msg := map[string]any{
		"version":   "1.1",
		"host":      w.hostname,
		"timestamp": float64(time.Now().UnixNano()) / 1e9,
		"level":     6,
		"_service":  w.service,
	}
	for k, v := range fields {
		switch k {
		case "msg":
			msg["short_message"] = fmt.Sprint(v)
		case "level":
			if lvl, ok := levels[fmt.Sprint(v)]; ok {
				msg["level"] = lvl
			}
		case "ts":
			if ts, ok := v.(float64); ok {
				msg["timestamp"] = ts
			}
		case "stacktrace":
			msg["full_message"] = v
		case "id":
			// "_id" is reserved by the GELF spec
			msg["_field_id"] = v
		default:
			msg["_"+k] = v
		}
	}
	if _, ok := msg["short_message"]; !ok {
		msg["short_message"] = "(no message)"
	}
	return msg
}

// Write implements io.Writer. Each call sends one GELF message.
func (w *Writer) Write(p []byte) (int, error) {
	payload, err := json.Marshal(w.Message(p))
	if err != nil {
		return len(p), nil // don't fail the log call
	}

	// Fire-and-forget
	w.conn.Write(payload)
	return len(p), nil
}

// Sync implements zapcore.WriteSyncer. UDP has nothing to flush.
func (w *Writer) Sync() error { return nil }

// Close closes the UDP socket.
func (w *Writer) Close() error { return w.conn.Close() }
