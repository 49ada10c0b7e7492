// Package oxidbtest runs an in-memory stand-in for oxidb-server that speaks
// the same framed JSON protocol. It understands the subset of commands the
// repositories issue: equality and $gte/$lte/$in queries, $set/$push updates,
// single-field sorts, unique indexes and buffered transactions.
package oxidbtest

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Server is a fake oxidb-server listening on a loopback port.
type Server struct {
	ln     net.Listener
	mu     sync.Mutex
	nextID int
	colls  map[string][]map[string]any
	unique map[string][]string
	wg     sync.WaitGroup

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

// NewServer starts a server and stops it when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("oxidbtest: listen: %v", err)
	}
	s := &Server{
		ln:     ln,
		colls:  map[string][]map[string]any{},
		unique: map[string][]string{},
		conns:  map[net.Conn]struct{}{},
	}
	s.wg.Add(1)
	go s.accept()
	t.Cleanup(func() {
		ln.Close()
		s.wg.Wait()
	})
	return s
}

// Host returns the listen host.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.ln.Addr().String())
	return host
}

// Port returns the listen port.
func (s *Server) Port() int {
	_, p, _ := net.SplitHostPort(s.ln.Addr().String())
	n, _ := strconv.Atoi(p)
	return n
}

// Docs returns a copy of a collection's documents.
func (s *Server) Docs(collection string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, len(s.colls[collection]))
	for i, d := range s.colls[collection] {
		out[i] = clone(d)
	}
	return out
}

// DropConnections closes every open client connection, as a server restart
// would. The listener keeps accepting and stored documents survive.
func (s *Server) DropConnections() {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	for c := range s.conns {
		c.Close()
	}
}

func (s *Server) accept() {
	defer s.wg.Done()
	var conns sync.WaitGroup
	defer conns.Wait()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.connMu.Lock()
		s.conns[conn] = struct{}{}
		s.connMu.Unlock()
		conns.Add(1)
		go func() {
			defer conns.Done()
			defer func() {
				s.connMu.Lock()
				delete(s.conns, conn)
				s.connMu.Unlock()
			}()
			s.serve(conn)
		}()
	}
}

type txOp struct {
	cmd map[string]any
}

func (s *Server) serve(conn net.Conn) {
	defer conn.Close()
	var tx []txOp
	inTx := false
	for {
		var lenBuf [4]byte
		if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
			return
		}
		body := make([]byte, binary.LittleEndian.Uint32(lenBuf[:]))
		if _, err := io.ReadFull(conn, body); err != nil {
			return
		}
		var cmd map[string]any
		if err := json.Unmarshal(body, &cmd); err != nil {
			return
		}

		var resp map[string]any
		switch name, _ := cmd["cmd"].(string); {
		case name == "begin_tx":
			inTx, tx = true, nil
			resp = ok(map[string]any{"tx_id": 1})
		case name == "rollback_tx":
			inTx, tx = false, nil
			resp = ok("rolled back")
		case name == "commit_tx":
			s.mu.Lock()
			var err error
			for _, op := range tx {
				if _, err = s.apply(op.cmd); err != nil {
					break
				}
			}
			s.mu.Unlock()
			inTx, tx = false, nil
			if err != nil {
				resp = fail(err)
			} else {
				resp = ok("committed")
			}
		case inTx && isWrite(name):
			tx = append(tx, txOp{cmd: cmd})
			resp = ok("buffered")
		default:
			s.mu.Lock()
			data, err := s.apply(cmd)
			s.mu.Unlock()
			if err != nil {
				resp = fail(err)
			} else {
				resp = ok(data)
			}
		}

		out, _ := json.Marshal(resp)
		frame := make([]byte, 4+len(out))
		binary.LittleEndian.PutUint32(frame, uint32(len(out)))
		copy(frame[4:], out)
		if _, err := conn.Write(frame); err != nil {
			return
		}
	}
}

func isWrite(cmd string) bool {
	switch cmd {
	case "insert", "update", "update_one", "delete", "delete_one":
		return true
	}
	return false
}

func ok(data any) map[string]any { return map[string]any{"ok": true, "data": data} }

func fail(err error) map[string]any { return map[string]any{"ok": false, "error": err.Error()} }

func (s *Server) apply(cmd map[string]any) (any, error) {
	coll, _ := cmd["collection"].(string)
	query, _ := cmd["query"].(map[string]any)
	switch cmd["cmd"] {
	case "ping":
		return "pong", nil
	case "list_collections":
		names := make([]string, 0, len(s.colls))
		for n := range s.colls {
			names = append(names, n)
		}
		sort.Strings(names)
		return names, nil
	case "create_index", "create_composite_index", "create_text_index":
		return "ok", nil
	case "create_unique_index":
		field, _ := cmd["field"].(string)
		s.unique[coll] = append(s.unique[coll], field)
		return "ok", nil
	case "list_indexes":
		return []any{}, nil
	case "compact":
		return map[string]any{"docs_kept": len(s.colls[coll])}, nil
	case "insert":
		doc, _ := cmd["doc"].(map[string]any)
		for _, f := range s.unique[coll] {
			for _, d := range s.colls[coll] {
				if v, ok := lookup(doc, f); ok && equal(v, d[f]) {
					return nil, fmt.Errorf("unique constraint violated on %s", f)
				}
			}
		}
		s.nextID++
		doc = clone(doc)
		doc["_id"] = float64(s.nextID)
		s.colls[coll] = append(s.colls[coll], doc)
		return map[string]any{"id": s.nextID}, nil
	case "find":
		docs := s.match(coll, query)
		if srt, ok := cmd["sort"].(map[string]any); ok {
			sortDocs(docs, srt)
		}
		if skip, ok := cmd["skip"].(float64); ok {
			if int(skip) >= len(docs) {
				docs = nil
			} else {
				docs = docs[int(skip):]
			}
		}
		if limit, ok := cmd["limit"].(float64); ok && int(limit) < len(docs) {
			docs = docs[:int(limit)]
		}
		out := make([]any, len(docs))
		for i, d := range docs {
			out[i] = clone(d)
		}
		return out, nil
	case "find_one":
		docs := s.match(coll, query)
		if len(docs) == 0 {
			return nil, nil
		}
		return clone(docs[0]), nil
	case "text_search":
		q, _ := cmd["query"].(string)
		var out []any
		for _, d := range s.colls[coll] {
			raw, _ := json.Marshal(d)
			if strings.Contains(strings.ToLower(string(raw)), strings.ToLower(q)) {
				out = append(out, clone(d))
			}
		}
		return out, nil
	case "count":
		return map[string]any{"count": len(s.match(coll, query))}, nil
	case "update", "update_one":
		update, _ := cmd["update"].(map[string]any)
		n := 0
		for _, d := range s.colls[coll] {
			if !matches(d, query) {
				continue
			}
			applyUpdate(d, update)
			n++
			if cmd["cmd"] == "update_one" {
				break
			}
		}
		return map[string]any{"modified": n}, nil
	case "delete", "delete_one":
		kept := s.colls[coll][:0]
		n := 0
		for _, d := range s.colls[coll] {
			if matches(d, query) && (cmd["cmd"] == "delete" || n == 0) {
				n++
				continue
			}
			kept = append(kept, d)
		}
		s.colls[coll] = kept
		return map[string]any{"deleted": n}, nil
	case "aggregate":
		return []any{}, nil
	}
	return nil, fmt.Errorf("unsupported command %v", cmd["cmd"])
}

func (s *Server) match(coll string, query map[string]any) []map[string]any {
	var out []map[string]any
	for _, d := range s.colls[coll] {
		if matches(d, query) {
			out = append(out, d)
		}
	}
	return out
}

func matches(doc, query map[string]any) bool {
	for field, want := range query {
		got, _ := lookup(doc, field)
		if ops, isOps := want.(map[string]any); isOps && hasOperator(ops) {
			for op, arg := range ops {
				if !compare(op, got, arg) {
					return false
				}
			}
			continue
		}
		if !equal(got, want) {
			return false
		}
	}
	return true
}

func hasOperator(m map[string]any) bool {
	for k := range m {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

func compare(op string, got, arg any) bool {
	switch op {
	case "$in":
		list, _ := arg.([]any)
		for _, v := range list {
			if equal(got, v) {
				return true
			}
		}
		return false
	case "$ne":
		return !equal(got, arg)
	case "$eq":
		return equal(got, arg)
	}
	c, ok := order(got, arg)
	if !ok {
		return false
	}
	switch op {
	case "$gt":
		return c > 0
	case "$gte":
		return c >= 0
	case "$lt":
		return c < 0
	case "$lte":
		return c <= 0
	}
	return false
}

func order(a, b any) (int, bool) {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	}
	return 0, false
}

func equal(a, b any) bool {
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	return string(ja) == string(jb)
}

func lookup(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func setPath(doc map[string]any, path string, v any) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

func applyUpdate(doc, update map[string]any) {
	if set, ok := update["$set"].(map[string]any); ok {
		for k, v := range set {
			setPath(doc, k, v)
		}
	}
	if unset, ok := update["$unset"].(map[string]any); ok {
		for k := range unset {
			delete(doc, k)
		}
	}
	if push, ok := update["$push"].(map[string]any); ok {
		for k, v := range push {
			list, _ := doc[k].([]any)
			doc[k] = append(list, v)
		}
	}
}

func sortDocs(docs []map[string]any, spec map[string]any) {
	for field, dir := range spec {
		desc := false
		if d, ok := dir.(float64); ok && d < 0 {
			desc = true
		}
		sort.SliceStable(docs, func(i, j int) bool {
			a, _ := lookup(docs[i], field)
			b, _ := lookup(docs[j], field)
			c, _ := order(a, b)
			if desc {
				return c > 0
			}
			return c < 0
		})
	}
}

func clone(doc map[string]any) map[string]any {
	raw, _ := json.Marshal(doc)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return out
}
