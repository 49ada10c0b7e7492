package oxidb_test

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/parisxmas/oxisite/internal/oxidb"
	"github.com/parisxmas/oxisite/internal/oxidb/oxidbtest"
)

func getClient(t *testing.T) *oxidb.Client {
	t.Helper()
	srv := oxidbtest.NewServer(t)
	c, err := oxidb.Connect(context.Background(), srv.Host(), srv.Port(), time.Second)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// getLiveClient connects to a real oxidb-server, skipping when none runs.
func getLiveClient(t *testing.T) *oxidb.Client {
	t.Helper()
	host := "127.0.0.1"
	port := 4444
	if h := os.Getenv("OXIDB_HOST"); h != "" {
		host = h
	}
	if p := os.Getenv("OXIDB_PORT"); p != "" {
		port, _ = strconv.Atoi(p)
	}
	c, err := oxidb.Connect(context.Background(), host, port, time.Second)
	if err != nil {
		t.Skipf("oxidb-server not available: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPing(t *testing.T) {
	c := getClient(t)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestInsertAndFind(t *testing.T) {
	c := getClient(t)
	ctx := context.Background()

	id, err := c.Insert(ctx, "leads", map[string]any{"email": "ada@example.com", "score": 40})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id == "" {
		t.Fatal("insert did not return id")
	}

	docs, err := c.Find(ctx, "leads", map[string]any{"email": "ada@example.com"}, nil)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 doc, got %d", len(docs))
	}
	if oxidb.IDString(docs[0]["_id"]) != id {
		t.Fatalf("expected id %s, got %v", id, docs[0]["_id"])
	}

	doc, err := c.FindOne(ctx, "leads", map[string]any{"email": "nobody@example.com"})
	if err != nil {
		t.Fatalf("find_one: %v", err)
	}
	if doc != nil {
		t.Fatalf("expected nil doc, got %v", doc)
	}
}

func TestFindOptions(t *testing.T) {
	c := getClient(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := c.Insert(ctx, "submissions", map[string]any{"n": i}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	docs, err := c.Find(ctx, "submissions", map[string]any{}, &oxidb.FindOptions{
		Sort: map[string]any{"n": -1}, Skip: 1, Limit: 2,
	})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(docs) != 2 || docs[0]["n"] != float64(3) || docs[1]["n"] != float64(2) {
		t.Fatalf("unexpected page: %v", docs)
	}

	n, err := c.Count(ctx, "submissions", map[string]any{"n": map[string]any{"$gte": 3}})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2, got %d", n)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	c := getClient(t)
	ctx := context.Background()
	if _, err := c.Insert(ctx, "forms", map[string]any{"slug": "contact", "status": "draft"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := c.UpdateOne(ctx, "forms", map[string]any{"slug": "contact"},
		map[string]any{"$set": map[string]any{"status": "active"}}); err != nil {
		t.Fatalf("update_one: %v", err)
	}
	doc, err := c.FindOne(ctx, "forms", map[string]any{"slug": "contact"})
	if err != nil || doc["status"] != "active" {
		t.Fatalf("expected active form, got %v (%v)", doc, err)
	}
	if err := c.DeleteOne(ctx, "forms", map[string]any{"slug": "contact"}); err != nil {
		t.Fatalf("delete_one: %v", err)
	}
	if n, _ := c.Count(ctx, "forms", map[string]any{}); n != 0 {
		t.Fatalf("expected empty collection, got %d", n)
	}
}

func TestUniqueIndexViolation(t *testing.T) {
	c := getClient(t)
	ctx := context.Background()
	if err := c.CreateIndex(ctx, "leads", oxidb.IndexSpec{Fields: []string{"email"}, Unique: true}); err != nil {
		t.Fatalf("create index: %v", err)
	}
	if _, err := c.Insert(ctx, "leads", map[string]any{"email": "a@b.com"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_, err := c.Insert(ctx, "leads", map[string]any{"email": "a@b.com"})
	if !oxidb.IsDuplicate(err) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestWithTransactionRollsBack(t *testing.T) {
	c := getClient(t)
	ctx := context.Background()

	err := c.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := c.Insert(ctx, "leads", map[string]any{"email": "tx@example.com"}); err != nil {
			return err
		}
		return context.Canceled
	})
	if err != context.Canceled {
		t.Fatalf("expected fn error, got %v", err)
	}
	if n, _ := c.Count(ctx, "leads", map[string]any{}); n != 0 {
		t.Fatalf("rolled back insert is visible: %d docs", n)
	}

	err = c.WithTransaction(ctx, func(ctx context.Context) error {
		_, err := c.Insert(ctx, "leads", map[string]any{"email": "tx@example.com"})
		return err
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if n, _ := c.Count(ctx, "leads", map[string]any{}); n != 1 {
		t.Fatalf("expected committed insert, got %d docs", n)
	}
}

func TestCanceledContext(t *testing.T) {
	c := getClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Ping(ctx); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDroppedConnection(t *testing.T) {
	srv := oxidbtest.NewServer(t)
	c, err := oxidb.Connect(context.Background(), srv.Host(), srv.Port(), time.Second)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}

	srv.DropConnections()
	err = c.Ping(context.Background())
	if !oxidb.IsConnError(err) {
		t.Fatalf("expected connection error, got %v", err)
	}
	if oxidb.IsDuplicate(err) || oxidb.IsConflict(err) {
		t.Fatalf("transport error misclassified: %v", err)
	}
}

func TestLiveServerPing(t *testing.T) {
	c := getLiveClient(t)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
