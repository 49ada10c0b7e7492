package db

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parisxmas/oxisite/internal/oxidb"
	"github.com/parisxmas/oxisite/internal/oxidb/oxidbtest"
)

func newTestPool(t *testing.T) (*Pool, *oxidbtest.Server) {
	t.Helper()
	srv := oxidbtest.NewServer(t)
	p, err := NewPool(context.Background(), Options{Host: srv.Host(), Port: srv.Port(), Size: 2, TxSize: 1}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p, srv
}

func TestPoolRoundRobin(t *testing.T) {
	p, _ := newTestPool(t)
	a, b := p.Get(), p.Get()
	assert.NotSame(t, a, b)
	assert.Same(t, a, p.Get())
	require.NoError(t, a.Ping(context.Background()))
}

func TestPoolTxCommitsAndRollsBack(t *testing.T) {
	p, srv := newTestPool(t)
	ctx := context.Background()

	err := p.Tx(ctx, 3, func(ctx context.Context, c *oxidb.Client) error {
		_, err := c.Insert(ctx, "forms", map[string]any{"slug": "contact"})
		return err
	})
	require.NoError(t, err)
	assert.Len(t, srv.Docs("forms"), 1)

	boom := errors.New("boom")
	err = p.Tx(ctx, 3, func(ctx context.Context, c *oxidb.Client) error {
		if _, err := c.Insert(ctx, "forms", map[string]any{"slug": "other"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, srv.Docs("forms"), 1)
}

func TestPoolTxRetriesConflicts(t *testing.T) {
	p, _ := newTestPool(t)
	calls := 0
	err := p.Tx(context.Background(), 3, func(ctx context.Context, c *oxidb.Client) error {
		calls++
		return &oxidb.TransactionConflictError{Msg: "version mismatch"}
	})
	assert.True(t, oxidb.IsConflict(err))
	assert.Equal(t, 3, calls)
}

func TestPoolTxAfterClose(t *testing.T) {
	p, _ := newTestPool(t)
	p.Close()
	p.Close()
	err := p.Tx(context.Background(), 1, func(ctx context.Context, c *oxidb.Client) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPoolTxSurvivesDroppedConnection(t *testing.T) {
	p, srv := newTestPool(t)
	ctx := context.Background()
	insert := func(slug string) error {
		return p.Tx(ctx, 3, func(ctx context.Context, c *oxidb.Client) error {
			_, err := c.Insert(ctx, "forms", map[string]any{"slug": slug})
			return err
		})
	}
	require.NoError(t, insert("one"))

	srv.DropConnections()
	require.NoError(t, insert("two"), "stale connection is redialed before the transaction starts")
	require.NoError(t, insert("three"))
	assert.Len(t, srv.Docs("forms"), 3)
}

func TestPoolTxReplacesConnectionBrokenMidTransaction(t *testing.T) {
	p, srv := newTestPool(t)
	ctx := context.Background()

	err := p.Tx(ctx, 3, func(ctx context.Context, c *oxidb.Client) error {
		srv.DropConnections()
		_, err := c.Insert(ctx, "forms", map[string]any{"slug": "lost"})
		return err
	})
	require.Error(t, err)
	assert.True(t, oxidb.IsConnError(err))
	assert.Empty(t, srv.Docs("forms"))

	err = p.Tx(ctx, 1, func(ctx context.Context, c *oxidb.Client) error {
		_, err := c.Insert(ctx, "forms", map[string]any{"slug": "kept"})
		return err
	})
	require.NoError(t, err)
	assert.Len(t, srv.Docs("forms"), 1)
}

func TestPoolTxReturnAfterCloseClosesConnection(t *testing.T) {
	p, _ := newTestPool(t)
	entered, proceed := make(chan *oxidb.Client), make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- p.Tx(context.Background(), 1, func(ctx context.Context, c *oxidb.Client) error {
			entered <- c
			<-proceed
			return nil
		})
	}()
	c := <-entered
	p.Close()
	close(proceed)
	require.NoError(t, <-done)

	err := c.Ping(context.Background())
	assert.True(t, errors.Is(err, net.ErrClosed), "got %v", err)
	assert.Empty(t, p.txConns)
}
