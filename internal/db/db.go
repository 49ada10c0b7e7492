package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/oxisite/internal/oxidb"
)

const dialTimeout = 5 * time.Second

// ErrClosed is returned by Tx after Close.
var ErrClosed = errors.New("pool: closed")

// Pool is a round-robin connection pool for OxiDB with auto-reconnect.
//
// Shared clients serve ordinary commands. Transactions are bound to a
// connection on the server, so Tx checks out one of a separate set of
// connections for the duration of the transaction.
type Pool struct {
	host    string
	port    int
	clients []*oxidb.Client
	mu      []sync.RWMutex
	idx     uint64
	txConns chan *oxidb.Client
	stop    chan struct{}
	once    sync.Once
	log     *zap.Logger

	// txMu orders transaction connection returns against Close.
	txMu     sync.Mutex
	txClosed bool
}

// Options sizes the pool.
type Options struct {
	Host      string
	Port      int
	Size      int
	TxSize    int
	Keepalive time.Duration
}

// NewPool dials opts.Size shared connections and opts.TxSize transaction
// connections.
func NewPool(ctx context.Context, opts Options, log *zap.Logger) (*Pool, error) {
	if opts.Size < 1 {
		opts.Size = 1
	}
	if opts.TxSize < 1 {
		opts.TxSize = 1
	}
	if opts.Keepalive <= 0 {
		opts.Keepalive = 10 * time.Second
	}
	p := &Pool{
		host:    opts.Host,
		port:    opts.Port,
		clients: make([]*oxidb.Client, opts.Size),
		mu:      make([]sync.RWMutex, opts.Size),
		txConns: make(chan *oxidb.Client, opts.TxSize),
		stop:    make(chan struct{}),
		log:     log.Named("pool"),
	}
	for i := range p.clients {
		c, err := oxidb.Connect(ctx, p.host, p.port, dialTimeout)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("pool: connect client %d: %w", i, err)
		}
		p.clients[i] = c
	}
	for i := 0; i < opts.TxSize; i++ {
		c, err := oxidb.Connect(ctx, p.host, p.port, dialTimeout)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("pool: connect tx client %d: %w", i, err)
		}
		p.txConns <- c
	}
	// keepalive pings stop the server's idle timeout from dropping us
	go p.keepalive(opts.Keepalive)
	return p, nil
}

// Get returns the next shared client in round-robin order.
func (p *Pool) Get() *oxidb.Client {
	n := atomic.AddUint64(&p.idx, 1)
	i := n % uint64(len(p.clients))
	p.mu[i].RLock()
	defer p.mu[i].RUnlock()
	return p.clients[i]
}

// Ping checks one shared connection.
func (p *Pool) Ping(ctx context.Context) error {
	return p.Get().Ping(ctx)
}

// Tx runs fn inside a server transaction on an exclusive connection.
// Conflicting commits are retried up to attempts times with a short backoff.
// A connection that breaks is replaced before it goes back to the pool, and
// one that is found broken before fn ran is redialed and the attempt rerun.
func (p *Pool) Tx(ctx context.Context, attempts int, fn func(ctx context.Context, c *oxidb.Client) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var c *oxidb.Client
	select {
	case c = <-p.txConns:
	case <-p.stop:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { p.release(c) }()

	var err error
	redialed := false
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt*10) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if c == nil {
			if c, err = p.dialTx(ctx); err != nil {
				return err
			}
		}
		ran := false
		err = c.WithTransaction(ctx, func(ctx context.Context) error {
			ran = true
			return fn(ctx, c)
		})
		if oxidb.IsConnError(err) {
			p.log.Warn("transaction connection broken", zap.Bool("fn_ran", ran), zap.Error(err))
			c.Close()
			c = nil
			if ran || redialed {
				return err
			}
			// nothing was sent inside the transaction yet
			redialed = true
			attempt--
			continue
		}
		if !oxidb.IsConflict(err) {
			return err
		}
		p.log.Debug("transaction conflict, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return err
}

func (p *Pool) dialTx(ctx context.Context) (*oxidb.Client, error) {
	c, err := oxidb.Connect(ctx, p.host, p.port, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("pool: redial tx client: %w", err)
	}
	return c, nil
}

// release returns a transaction connection. A nil c keeps the slot and is
// redialed on next use. After Close the connection is closed instead.
func (p *Pool) release(c *oxidb.Client) {
	p.txMu.Lock()
	defer p.txMu.Unlock()
	if p.txClosed {
		if c != nil {
			c.Close()
		}
		return
	}
	p.txConns <- c
}

func (p *Pool) reconnect(i int) {
	c, err := oxidb.Connect(context.Background(), p.host, p.port, dialTimeout)
	if err != nil {
		p.log.Warn("reconnect failed", zap.Int("client", i), zap.Error(err))
		return
	}
	p.mu[i].Lock()
	old := p.clients[i]
	p.clients[i] = c
	p.mu[i].Unlock()
	if old != nil {
		old.Close()
	}
}

func (p *Pool) keepalive(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			for i := range p.clients {
				ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
				p.mu[i].RLock()
				err := p.clients[i].Ping(ctx)
				p.mu[i].RUnlock()
				cancel()
				if err != nil {
					p.log.Warn("ping failed, reconnecting", zap.Int("client", i), zap.Error(err))
					p.reconnect(i)
				}
			}
		}
	}
}

// Close closes all connections. Safe to call more than once.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.stop)
		p.txMu.Lock()
		p.txClosed = true
		p.txMu.Unlock()
		for _, c := range p.clients {
			if c != nil {
				c.Close()
			}
		}
		for {
			select {
			case c := <-p.txConns:
				if c != nil {
					c.Close()
				}
			default:
				return
			}
		}
	})
}
