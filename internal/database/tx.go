package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/paulmach/orb"

	"github.com/jengzang/antrak/internal/observability"
	"github.com/jengzang/antrak/internal/spatial"
)

// ErrInvariant is the panic value wrapped when the nesting depth and the
// held connection disagree.
var ErrInvariant = errors.New("database: transaction manager invariant violated")

// Connector hands out dedicated connections. *sql.DB implements it.
type Connector interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

// TxManager shares one connection and transaction between nested
// persistence calls.
//
// The first call of a call chain (depth 0 to 1) takes a connection from
// the pool, binds the geometry codec to it and begins a transaction.
// Calls made with the context handed to fn join that transaction through
// a savepoint. The connection is closed when the outermost call returns,
// on every exit path.
//
// Only one call chain is in the open state at a time: unrelated chains
// wait for the outermost call of the current chain to return.
type TxManager struct {
	db    Connector
	codec spatial.Codec
	log   *slog.Logger

	owner chan struct{}

	mu      sync.Mutex
	depth   int
	session *Session
	opened  int64
	closed  int64
}

// Stats counts connection lifecycle events.
type Stats struct {
	Opened int64
	Closed int64
	Depth  int
}

// Session is the shared state of one open call chain.
type Session struct {
	conn  *sql.Conn
	tx    *sql.Tx
	codec spatial.Codec
	m     *TxManager
	done  bool
}

type sessionKey struct{}

// NewTxManager creates a manager over db. A nil codec means WKB.
func NewTxManager(db Connector, codec spatial.Codec) *TxManager {
	if codec == nil {
		codec = spatial.WKBCodec{}
	}
	return &TxManager{
		db:    db,
		codec: codec,
		log:   slog.Default().With(slog.String("component", "tx")),
		owner: make(chan struct{}, 1),
	}
}

// Stats returns a snapshot of the lifecycle counters.
func (m *TxManager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Opened: m.opened, Closed: m.closed, Depth: m.depth}
}

// Do runs fn inside a transaction scope. If ctx already carries an open
// session of m, the scope is nested in it; otherwise a connection is
// established first. fn must use the context it is given for nested
// calls; calling Do from inside fn with an unrelated context blocks
// until the current chain ends. An error or panic from fn rolls the scope
// back.
func (m *TxManager) Do(ctx context.Context, fn func(ctx context.Context, s *Session) error) (err error) {
	nested := m.joins(ctx)
	if !nested {
		select {
		case m.owner <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	depth := m.enter()
	defer m.exit(nested)

	var s *Session
	if depth == 1 {
		s, err = m.open(ctx)
		if err != nil {
			return err
		}
		ctx = context.WithValue(ctx, sessionKey{}, s)
	} else {
		m.mu.Lock()
		s = m.session
		m.mu.Unlock()
		m.log.Debug("reusing db connection", slog.Int("depth", depth))
	}

	return s.scope(ctx, depth, fn)
}

// joins reports whether ctx carries a live session of m.
func (m *TxManager) joins(ctx context.Context) bool {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	if !ok || s.m != m {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return !s.done && m.session == s
}

func (m *TxManager) enter() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.depth++
	observability.TxDepth.Set(float64(m.depth))
	return m.depth
}

// open establishes the connection and binds the codec. On failure no
// session is kept.
func (m *TxManager) open(ctx context.Context) (*Session, error) {
	m.log.Debug("create db connection")
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Session{conn: conn, codec: m.codec, m: m}

	m.mu.Lock()
	m.session = s
	m.opened++
	m.mu.Unlock()
	observability.ConnectionsOpened.Inc()
	return s, nil
}

func (m *TxManager) exit(nested bool) {
	defer func() {
		if !nested {
			<-m.owner
		}
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.depth--
	observability.TxDepth.Set(float64(m.depth))
	if m.depth == 0 && m.session != nil {
		m.log.Debug("closing connection")
		if err := m.session.conn.Close(); err != nil {
			m.log.Warn("failed to close connection", slog.Any("error", err))
		}
		m.session.done = true
		m.session = nil
		m.closed++
		observability.ConnectionsClosed.Inc()
	}

	if m.depth < 0 || (m.session != nil) != (m.depth > 0) {
		panic(fmt.Errorf("%w: depth=%d connection=%t", ErrInvariant, m.depth, m.session != nil))
	}
}

// scope runs fn in a transaction at depth 1 and in a savepoint deeper.
func (s *Session) scope(ctx context.Context, depth int, fn func(context.Context, *Session) error) (err error) {
	var commit, rollback func() error
	if depth == 1 {
		tx, err := s.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		s.tx = tx
		commit = tx.Commit
		rollback = tx.Rollback
		defer func() { s.tx = nil }()
	} else {
		name := fmt.Sprintf("sp_%d", depth)
		if _, err := s.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
			return fmt.Errorf("failed to create savepoint: %w", err)
		}
		commit = func() error {
			_, err := s.tx.ExecContext(ctx, "RELEASE "+name)
			return err
		}
		rollback = func() error {
			if _, err := s.tx.ExecContext(ctx, "ROLLBACK TO "+name); err != nil {
				return err
			}
			_, err := s.tx.ExecContext(ctx, "RELEASE "+name)
			return err
		}
	}

	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, s); err != nil {
		if rbErr := rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ExecContext runs a statement in the session transaction.
func (s *Session) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.tx.ExecContext(ctx, query, args...)
}

// QueryContext runs a query in the session transaction.
func (s *Session) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.tx.QueryContext(ctx, query, args...)
}

// QueryRowContext runs a single row query in the session transaction.
func (s *Session) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.tx.QueryRowContext(ctx, query, args...)
}

// PrepareContext prepares a statement bound to the session transaction.
func (s *Session) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return s.tx.PrepareContext(ctx, query)
}

// EncodePoint converts p with the codec bound to the connection.
func (s *Session) EncodePoint(p orb.Point) ([]byte, error) {
	return s.codec.Encode(p)
}

// DecodePoint is the reverse of EncodePoint.
func (s *Session) DecodePoint(data []byte) (orb.Point, error) {
	return s.codec.Decode(data)
}
