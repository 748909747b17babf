// Package app builds and tracks the per-visitor application context.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ziadkadry99/jsonstore/internal/catalog"
	"github.com/ziadkadry99/jsonstore/internal/db"
	"github.com/ziadkadry99/jsonstore/internal/storage"
)

// ErrClosed is returned by Session once the manager has been closed.
var ErrClosed = errors.New("session manager closed")

// Options configures a Manager.
type Options struct {
	// DB backs every session's storage. When nil, storage is kept in
	// memory for the life of the process.
	DB *db.DB
	// Catalog is the catalog resource every route activation fetches.
	Catalog catalog.Source
	// IdleTimeout evicts sessions unused for this long. Zero disables
	// eviction.
	IdleTimeout time.Duration
	Logger      *zap.Logger
}

// Manager creates sessions on demand and evicts idle ones. Evicting a
// session only drops its in-memory state; its cart stays in storage and is
// reloaded when the visitor returns.
type Manager struct {
	opts Options
	log  *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	memory   map[string]*storage.MemoryKV // only without a DB; empty stores go with their session
	closed   bool

	// building collapses concurrent first requests for one id.
	building singleflight.Group

	stop chan struct{}
	wg   sync.WaitGroup
	now  func() time.Time
}

// NewManager creates a Manager and starts its idle-session janitor.
func NewManager(opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		opts:     opts,
		log:      log,
		sessions: make(map[string]*Session),
		memory:   make(map[string]*storage.MemoryKV),
		stop:     make(chan struct{}),
		now:      time.Now,
	}

	if opts.IdleTimeout > 0 {
		m.wg.Add(1)
		go m.janitor(opts.IdleTimeout)
	}
	return m
}

// Session returns the session for id, creating it when id is unknown. An
// id that is not a valid session id gets a fresh one; the returned
// session's ID is the one to hand back to the visitor.
//
// Sessions are built outside the manager lock, so a slow cart load only
// delays requests for the same id.
func (m *Manager) Session(ctx context.Context, id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if s, ok := m.sessions[id]; ok {
		s.touch(m.now())
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	v, err, _ := m.building.Do(id, func() (any, error) {
		return m.build(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	s := v.(*Session)
	s.touch(m.now())
	return s, nil
}

func (m *Manager) build(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	if s, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return s, nil
	}
	kv := m.storageFor(id)
	m.mu.Unlock()

	s, err := NewSession(ctx, id, kv, m.opts.Catalog, m.log)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		s.Close()
		return nil, ErrClosed
	}
	s.touch(m.now())
	m.sessions[id] = s
	m.log.Info("session started", zap.String("session", id), zap.Int("cart_count", s.Cart.Count()))
	return s, nil
}

// Lookup returns an existing session without creating one.
func (m *Manager) Lookup(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// storageFor returns the KV backing id. Callers hold m.mu.
func (m *Manager) storageFor(id string) storage.KV {
	if m.opts.DB != nil {
		return storage.NewSQLiteKV(m.opts.DB, id)
	}
	kv, ok := m.memory[id]
	if !ok {
		kv = storage.NewMemoryKV()
		m.memory[id] = kv
	}
	return kv
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// EvictIdle closes sessions not used for longer than maxIdle and returns
// how many were evicted. Sessions with an attached feed are kept. Without a
// DB, the in-memory store of an evicted session is dropped too when its
// cart is empty, so visitors who never add anything do not accumulate.
func (m *Manager) EvictIdle(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if !s.idle(cutoff) {
			continue
		}
		idle = append(idle, s)
		delete(m.sessions, id)
		if kv, ok := m.memory[id]; ok && kv.Len() == 0 {
			delete(m.memory, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Close()
		m.log.Debug("session evicted", zap.String("session", s.ID))
	}
	return len(idle)
}

// MemoryStores returns how many in-memory session stores are held.
func (m *Manager) MemoryStores() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.memory)
}

func (m *Manager) janitor(idle time.Duration) {
	defer m.wg.Done()

	interval := idle / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if n := m.EvictIdle(idle); n > 0 {
				m.log.Info("evicted idle sessions", zap.Int("count", n))
			}
		}
	}
}

// Close stops the janitor and closes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	close(m.stop)
	m.wg.Wait()

	for _, s := range sessions {
		s.Close()
	}
}
