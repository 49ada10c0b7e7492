// Package oxidb is the wire client for oxidb-server used by the site's
// repositories.
//
// Protocol: each frame is [4-byte little-endian length][JSON payload].
// The server answers {"ok": true, "data": ...} or {"ok": false, "error": "..."}.
// Every call takes a context; its deadline becomes the socket deadline for
// that round trip.
package oxidb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// maxFrame guards against a corrupt length prefix allocating gigabytes.
const maxFrame = 64 << 20

// Client is one TCP connection to oxidb-server. Calls are serialized.
type Client struct {
	conn net.Conn
	mu   sync.Mutex
	addr string
}

// Connect dials oxidb-server at host:port.
func Connect(ctx context.Context, host string, port int, timeout time.Duration) (*Client, error) {
	addr := net.JoinHostPort(host, fmt.Sprint(port))
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("oxidb: connect to %s: %w", addr, err)
	}
	return &Client{conn: conn, addr: addr}, nil
}

// Addr returns the server address this client dialed.
func (c *Client) Addr() string { return c.addr }

// Close closes the TCP connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// ------------------------------------------------------------------
// Framing
// ------------------------------------------------------------------

func writeFrame(w io.Writer, data []byte) error {
	buf := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[4:], data)
	_, err := w.Write(buf)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("read length: %w", err)
	}
	length := binary.LittleEndian.Uint32(lenBuf[:])
	if length > maxFrame {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit", length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return payload, nil
}

type response struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func (c *Client) roundTrip(ctx context.Context, payload map[string]any) (*response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("oxidb: marshal request: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(deadline)
		defer c.conn.SetDeadline(time.Time{})
	}
	if err := writeFrame(c.conn, body); err != nil {
		return nil, &ConnError{Op: "send", Err: err}
	}
	raw, err := readFrame(c.conn)
	if err != nil {
		return nil, &ConnError{Op: "receive", Err: err}
	}
	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("oxidb: unmarshal response: %w", err)
	}
	return &resp, nil
}

// call runs a command and decodes the data member into out (when non-nil).
func (c *Client) call(ctx context.Context, payload map[string]any, out any) error {
	resp, err := c.roundTrip(ctx, payload)
	if err != nil {
		return err
	}
	if !resp.OK {
		msg := resp.Error
		if msg == "" {
			msg = "unknown error"
		}
		if strings.Contains(strings.ToLower(msg), "conflict") {
			return &TransactionConflictError{Msg: msg}
		}
		return &Error{Cmd: fmt.Sprint(payload["cmd"]), Msg: msg}
	}
	if out == nil || len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("oxidb: decode %v result: %w", payload["cmd"], err)
	}
	return nil
}

// ------------------------------------------------------------------
// Utility and collections
// ------------------------------------------------------------------

// Ping checks the connection. The server answers "pong".
func (c *Client) Ping(ctx context.Context) error {
	var s string
	if err := c.call(ctx, map[string]any{"cmd": "ping"}, &s); err != nil {
		return err
	}
	if s != "pong" {
		return fmt.Errorf("oxidb: unexpected ping reply %q", s)
	}
	return nil
}

// ListCollections returns the collection names.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	var names []string
	err := c.call(ctx, map[string]any{"cmd": "list_collections"}, &names)
	return names, err
}

// ------------------------------------------------------------------
// Documents
// ------------------------------------------------------------------

// Insert stores a document and returns the assigned id. Inside a
// transaction the server only buffers the write and the id is empty.
func (c *Client) Insert(ctx context.Context, collection string, doc map[string]any) (string, error) {
	var data any
	if err := c.call(ctx, map[string]any{"cmd": "insert", "collection": collection, "doc": doc}, &data); err != nil {
		return "", err
	}
	if m, ok := data.(map[string]any); ok {
		return IDString(m["id"]), nil
	}
	return "", nil
}

// FindOptions holds optional parameters for Find.
type FindOptions struct {
	Sort  map[string]any
	Skip  int
	Limit int
}

// Find returns documents matching a query.
func (c *Client) Find(ctx context.Context, collection string, query map[string]any, opts *FindOptions) ([]map[string]any, error) {
	payload := map[string]any{"cmd": "find", "collection": collection, "query": query}
	if opts != nil {
		if opts.Sort != nil {
			payload["sort"] = opts.Sort
		}
		if opts.Skip > 0 {
			payload["skip"] = opts.Skip
		}
		if opts.Limit > 0 {
			payload["limit"] = opts.Limit
		}
	}
	var docs []map[string]any
	err := c.call(ctx, payload, &docs)
	return docs, err
}

// FindOne returns the first document matching a query, or nil.
func (c *Client) FindOne(ctx context.Context, collection string, query map[string]any) (map[string]any, error) {
	var doc map[string]any
	err := c.call(ctx, map[string]any{"cmd": "find_one", "collection": collection, "query": query}, &doc)
	return doc, err
}

// UpdateOne applies an update ($set / $unset / $push ...) to the first match.
func (c *Client) UpdateOne(ctx context.Context, collection string, query, update map[string]any) error {
	return c.call(ctx, map[string]any{
		"cmd": "update_one", "collection": collection,
		"query": query, "update": update,
	}, nil)
}

// Update applies an update to every match.
func (c *Client) Update(ctx context.Context, collection string, query, update map[string]any) error {
	return c.call(ctx, map[string]any{
		"cmd": "update", "collection": collection,
		"query": query, "update": update,
	}, nil)
}

// DeleteOne removes the first match.
func (c *Client) DeleteOne(ctx context.Context, collection string, query map[string]any) error {
	return c.call(ctx, map[string]any{"cmd": "delete_one", "collection": collection, "query": query}, nil)
}

// Delete removes every match.
func (c *Client) Delete(ctx context.Context, collection string, query map[string]any) error {
	return c.call(ctx, map[string]any{"cmd": "delete", "collection": collection, "query": query}, nil)
}

// Count returns the number of documents matching a query.
func (c *Client) Count(ctx context.Context, collection string, query map[string]any) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := c.call(ctx, map[string]any{"cmd": "count", "collection": collection, "query": query}, &out)
	return out.Count, err
}

// Aggregate runs an aggregation pipeline.
func (c *Client) Aggregate(ctx context.Context, collection string, pipeline []map[string]any) ([]map[string]any, error) {
	var docs []map[string]any
	err := c.call(ctx, map[string]any{"cmd": "aggregate", "collection": collection, "pipeline": pipeline}, &docs)
	return docs, err
}

// TextSearch queries a collection's text index.
func (c *Client) TextSearch(ctx context.Context, collection, query string, limit int) ([]map[string]any, error) {
	var docs []map[string]any
	err := c.call(ctx, map[string]any{
		"cmd": "text_search", "collection": collection, "query": query, "limit": limit,
	}, &docs)
	return docs, err
}

// Compact rewrites a collection's storage. Returns old_size, new_size, docs_kept.
func (c *Client) Compact(ctx context.Context, collection string) (map[string]any, error) {
	var stats map[string]any
	err := c.call(ctx, map[string]any{"cmd": "compact", "collection": collection}, &stats)
	return stats, err
}

// ------------------------------------------------------------------
// Indexes
// ------------------------------------------------------------------

// IndexSpec describes one index for EnsureIndexes.
type IndexSpec struct {
	Fields []string
	Unique bool
	Text   bool
}

// CreateIndex creates the index described by spec.
func (c *Client) CreateIndex(ctx context.Context, collection string, spec IndexSpec) error {
	payload := map[string]any{"collection": collection}
	switch {
	case spec.Text:
		payload["cmd"] = "create_text_index"
		payload["fields"] = spec.Fields
	case len(spec.Fields) > 1:
		payload["cmd"] = "create_composite_index"
		payload["fields"] = spec.Fields
	case spec.Unique:
		payload["cmd"] = "create_unique_index"
		payload["field"] = spec.Fields[0]
	default:
		payload["cmd"] = "create_index"
		payload["field"] = spec.Fields[0]
	}
	return c.call(ctx, payload, nil)
}

// ListIndexes returns index metadata for a collection.
func (c *Client) ListIndexes(ctx context.Context, collection string) ([]map[string]any, error) {
	var out []map[string]any
	err := c.call(ctx, map[string]any{"cmd": "list_indexes", "collection": collection}, &out)
	return out, err
}

// ------------------------------------------------------------------
// Transactions
// ------------------------------------------------------------------

// WithTransaction runs fn inside a server transaction on this connection.
// The connection must not be shared with other goroutines while fn runs.
// A commit that loses an optimistic version check returns
// *TransactionConflictError.
func (c *Client) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := c.call(ctx, map[string]any{"cmd": "begin_tx"}, nil); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		_ = c.call(context.WithoutCancel(ctx), map[string]any{"cmd": "rollback_tx"}, nil)
		return err
	}
	return c.call(ctx, map[string]any{"cmd": "commit_tx"}, nil)
}

// IDString renders a server id (number or string) as a string.
func IDString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	case json.Number:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}
