package connection

import (
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Registry tracks open connections by identity.
//
// The transport opens and closes entries; the dispatcher looks them up. Workers
// never see the registry.
type Registry struct {
	cfg    RegistryConfig
	logger *slog.Logger

	mu     sync.RWMutex
	conns  map[int64]*Conn
	lastID int64
	stats  RegistryStats
}

// NewRegistry creates an empty registry. The first identity handed out is 1.
func NewRegistry(cfg RegistryConfig, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxID < 1 {
		cfg.MaxID = DefaultRegistryConfig().MaxID
	}

	return &Registry{
		cfg:    cfg,
		logger: logger,
		conns:  make(map[int64]*Conn),
	}
}

// Open registers a connection and assigns it the next free identity.
func (r *Registry) Open(kind Kind, sender Sender) (*Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if int64(len(r.conns)) >= r.cfg.MaxID {
		return nil, ErrIdentitiesInUse
	}

	id := r.nextID()
	for r.conns[id] != nil {
		id = r.nextID()
	}

	conn := &Conn{
		ID:       id,
		Kind:     kind,
		OpenedAt: time.Now(),
		sender:   sender,
	}
	r.conns[id] = conn
	r.stats.Opened++

	r.logger.Debug("connection opened", "conn_id", id, "kind", kind)
	return conn, nil
}

// Close forgets id. It reports whether id was open.
func (r *Registry) Close(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[id]
	if !ok {
		return false
	}
	delete(r.conns, id)
	r.stats.Closed++

	r.logger.Debug("connection closed",
		"conn_id", id,
		"kind", conn.Kind,
		"duration", time.Since(conn.OpenedAt),
	)
	return true
}

// Lookup returns the open connection holding id.
func (r *Registry) Lookup(id int64) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[id]
	return conn, ok
}

// Broadcast returns every open broadcast-subscribed connection, ordered by identity.
func (r *Registry) Broadcast() []*Conn {
	r.mu.RLock()
	conns := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		if c.Subscribed() {
			conns = append(conns, c)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(conns, func(a, b *Conn) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return conns
}

// Len returns the number of open connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Stats returns current statistics.
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := r.stats
	stats.Open = len(r.conns)
	for _, c := range r.conns {
		if c.Subscribed() {
			stats.Subscribed++
		}
	}
	return stats
}

// nextID advances the identity counter, wrapping past MaxID to 1.
// Must be called with mu held.
func (r *Registry) nextID() int64 {
	if r.lastID >= r.cfg.MaxID {
		r.lastID = 1
		r.stats.Wraps++
		return r.lastID
	}
	r.lastID++
	return r.lastID
}
