// internal/pool/pool.go
//
// Bounded checkout pool for database connections.
//
// Context
// -------
// database/sql already pools driver connections, but it offers no explicit
// checkout, no minimum size, and no idle timeout shorter than the global
// lifetime.  The admin backend wants all three: a request checks out one
// connection for the duration of an ORM call, returns it, and a background
// reaper closes connections that have sat idle longer than `IdleTimeout`
// while never dropping below `Min`.
//
// Shape
// -----
//   • `slots` is a counting semaphore of size `Max`; holding a slot is what
//     entitles a caller to a connection.  A new connection is opened only
//     when a slot is held and the idle stack is empty, so open ≤ Max.
//   • Idle connections live on a stack (most-recently released on top); the
//     reaper walks it from the bottom, where the oldest entries sit.
//   • `inUse` tracks checkouts so a connection can never be handed out twice
//     and a double Release is detected.
//
// Instrumentation
// ---------------
//   • Gauges `adminkit_pool_open_conns` and `adminkit_pool_in_use_conns`.
//   • Counters for reaped connections and acquire timeouts.
//   • Reaper failures are aggregated with multierr and logged once per sweep.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.
package pool

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/yanizio/adminkit/internal/apperr"
	"github.com/yanizio/adminkit/internal/metrics"
)

var (
	// ErrPoolExhausted is returned when no slot frees up within the acquire
	// timeout.  It is wrapped as apperr.Exhausted.
	ErrPoolExhausted = errors.New("pool: no connection available")

	// ErrClosed is returned by Acquire after Shutdown.
	ErrClosed = errors.New("pool: closed")
)

// Conn is the subset of *sqlx.Conn the ORM needs.  It satisfies
// sqlx.QueryerContext and sqlx.ExecerContext, so sqlx.GetContext and
// sqlx.SelectContext accept it directly.
type Conn interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Close() error
}

// Opener dials one new connection.
type Opener func(ctx context.Context) (Conn, error)

// FromDB returns an Opener that checks dedicated connections out of db.
func FromDB(db *sqlx.DB) Opener {
	return func(ctx context.Context) (Conn, error) { return db.Connx(ctx) }
}

// Options sizes the pool.  Now is injectable for tests.
type Options struct {
	Min            int
	Max            int
	IdleTimeout    time.Duration
	AcquireTimeout time.Duration
	Now            func() time.Time
}

type idleConn struct {
	conn     Conn
	lastUsed time.Time
}

// Pool hands out exclusive connections.
type Pool struct {
	open  Opener
	opts  Options
	slots chan struct{}

	mu     sync.Mutex
	idle   []idleConn
	inUse  map[Conn]struct{}
	closed bool
}

// New builds a Pool and opens Min connections up front.  A failure while
// warming closes whatever was opened and returns the error.
func New(ctx context.Context, open Opener, opts Options) (*Pool, error) {
	if opts.Max < 1 {
		opts.Max = 1
	}
	if opts.Min < 0 {
		opts.Min = 0
	}
	if opts.Min > opts.Max {
		opts.Min = opts.Max
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	p := &Pool{
		open:  open,
		opts:  opts,
		slots: make(chan struct{}, opts.Max),
		inUse: make(map[Conn]struct{}),
	}

	for i := 0; i < opts.Min; i++ {
		c, err := open(ctx)
		if err != nil {
			return nil, multierr.Append(err, p.Shutdown())
		}
		p.idle = append(p.idle, idleConn{conn: c, lastUsed: opts.Now()})
	}
	p.publish()
	zap.L().Info("pool ready",
		zap.Int("min", opts.Min),
		zap.Int("max", opts.Max),
		zap.Duration("idle_timeout", opts.IdleTimeout))
	return p, nil
}

// Acquire checks out a connection, waiting at most AcquireTimeout (or until
// ctx ends) for a free slot.
func (p *Pool) Acquire(ctx context.Context) (Conn, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	waitCtx := ctx
	if p.opts.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, p.opts.AcquireTimeout)
		defer cancel()
	}

	select {
	case p.slots <- struct{}{}:
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		metrics.PoolAcquireTimeouts.Inc()
		return nil, apperr.Wrap(apperr.Exhausted, ErrPoolExhausted)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.slots
		return nil, ErrClosed
	}
	if n := len(p.idle); n > 0 {
		c := p.idle[n-1].conn
		p.idle = p.idle[:n-1]
		p.inUse[c] = struct{}{}
		p.publishLocked()
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	c, err := p.open(ctx)
	if err != nil {
		<-p.slots
		return nil, err
	}

	p.mu.Lock()
	p.inUse[c] = struct{}{}
	p.publishLocked()
	p.mu.Unlock()
	return c, nil
}

// Release returns c to the idle stack.  Releasing a connection the pool
// does not consider checked out is logged and ignored.
func (p *Pool) Release(c Conn) {
	p.checkin(c, false)
}

// Discard closes c instead of pooling it.  Use it after a driver error
// leaves the connection in an unknown state.
func (p *Pool) Discard(c Conn) {
	p.checkin(c, true)
}

func (p *Pool) checkin(c Conn, discard bool) {
	p.mu.Lock()
	if _, ok := p.inUse[c]; !ok {
		p.mu.Unlock()
		zap.L().Warn("pool release of unknown connection")
		return
	}
	delete(p.inUse, c)
	closeIt := discard || p.closed
	if !closeIt {
		p.idle = append(p.idle, idleConn{conn: c, lastUsed: p.opts.Now()})
	}
	p.publishLocked()
	p.mu.Unlock()

	<-p.slots
	if closeIt {
		if err := c.Close(); err != nil {
			zap.L().Warn("pool close on checkin", zap.Error(err))
		}
	}
}

// ReapIdle closes idle connections unused for longer than IdleTimeout, never
// letting the open count drop below Min.  It returns how many were closed and
// the combined close errors; one failing close does not stop the sweep.
func (p *Pool) ReapIdle() (int, error) {
	now := p.opts.Now()

	p.mu.Lock()
	open := len(p.idle) + len(p.inUse)
	var victims []Conn
	kept := p.idle[:0]
	for _, ic := range p.idle {
		if open > p.opts.Min && now.Sub(ic.lastUsed) > p.opts.IdleTimeout {
			victims = append(victims, ic.conn)
			open--
			continue
		}
		kept = append(kept, ic)
	}
	for i := len(kept); i < len(p.idle); i++ {
		p.idle[i] = idleConn{}
	}
	p.idle = kept
	p.publishLocked()
	p.mu.Unlock()

	var errs error
	for _, c := range victims {
		errs = multierr.Append(errs, c.Close())
	}
	metrics.PoolReapedTotal.Add(float64(len(victims)))
	return len(victims), errs
}

// Run drives ReapIdle every max(IdleTimeout/5, 1s) until ctx ends.
func (p *Pool) Run(ctx context.Context) {
	interval := p.opts.IdleTimeout / 5
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := p.ReapIdle()
			if n > 0 {
				zap.L().Debug("pool reaped idle connections", zap.Int("count", n))
			}
			if err != nil {
				zap.L().Warn("pool reap errors",
					zap.Int("failed", len(multierr.Errors(err))),
					zap.Error(err))
			}
		}
	}
}

// Shutdown closes every idle connection and marks the pool closed.
// Checked-out connections are closed as they are released.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.publishLocked()
	p.mu.Unlock()

	var errs error
	for _, ic := range idle {
		errs = multierr.Append(errs, ic.conn.Close())
	}
	return errs
}

// Stats reports idle and checked-out counts.
func (p *Pool) Stats() (idle, inUse int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle), len(p.inUse)
}

func (p *Pool) publish() {
	p.mu.Lock()
	p.publishLocked()
	p.mu.Unlock()
}

func (p *Pool) publishLocked() {
	metrics.PoolOpen.Set(float64(len(p.idle) + len(p.inUse)))
	metrics.PoolInUse.Set(float64(len(p.inUse)))
}
