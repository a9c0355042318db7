package rcon

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/craftlink/whitelistd/internal/models"
	"github.com/craftlink/whitelistd/internal/monitoring"
	"github.com/craftlink/whitelistd/pkg/logger"
)

// probeCommand is the trivially harmless command used for liveness
// probes and heartbeats.
const probeCommand = "list"

// PoolOptions tunes the connection pool. Zero values fall back to the
// defaults below.
type PoolOptions struct {
	MaxSize           int
	ConnectTimeout    time.Duration
	HeartbeatInterval time.Duration
	MaxIdle           time.Duration
	SweepInterval     time.Duration
}

func (o *PoolOptions) withDefaults() {
	if o.MaxSize <= 0 {
		o.MaxSize = 8
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 5 * time.Second
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 60 * time.Second
	}
	if o.MaxIdle <= 0 {
		o.MaxIdle = 10 * time.Minute
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = 5 * time.Minute
	}
}

// PoolConn is a pooled RCON connection. The wire mutex serializes every
// Execute on the underlying transport, so heartbeats can never
// interleave with application commands on the same socket.
type PoolConn struct {
	serverID string
	conn     Conn

	wireMu sync.Mutex

	// Guarded by the owning pool's mutex.
	lastUsed      time.Time
	reconnecting  bool
	heartbeatStop chan struct{}
}

// Execute sends one command over the wire. The RCON protocol carries no
// request ids, so calls hold the wire mutex for the whole round trip.
func (c *PoolConn) Execute(command string) (string, error) {
	c.wireMu.Lock()
	defer c.wireMu.Unlock()
	return c.conn.Execute(command)
}

// Pool owns at most one live connection per server id, created lazily,
// probed before reuse, heartbeated while idle, and evicted LRU when the
// capacity bound is hit.
type Pool struct {
	mu      sync.Mutex
	records map[string]*PoolConn
	dial    Dialer
	opts    PoolOptions

	sweepStop chan struct{}
	closed    bool
}

// NewPool constructs a pool and starts its idle sweeper.
func NewPool(dial Dialer, opts PoolOptions) *Pool {
	opts.withDefaults()
	p := &Pool{
		records:   map[string]*PoolConn{},
		dial:      dial,
		opts:      opts,
		sweepStop: make(chan struct{}),
	}
	go p.sweepLoop()
	return p
}

// Get returns a live connection for the server, probing any cached one
// and reconnecting when the probe fails. A single call never retries
// the dial; that choice belongs to the caller.
func (p *Pool) Get(server *models.ServerConfig) (*PoolConn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	rec := p.records[server.ID]
	live := rec != nil && !rec.reconnecting
	p.mu.Unlock()

	if live {
		if _, err := rec.Execute(probeCommand); err == nil {
			p.touch(server.ID)
			return rec, nil
		}
		logger.Debug("Cached RCON connection failed probe, reconnecting", map[string]interface{}{
			"server_id": server.ID,
		})
		p.Reset(server.ID)
	}

	return p.create(server)
}

func (p *Pool) create(server *models.ServerConfig) (*PoolConn, error) {
	if err := validateAddress(server); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.mu.Unlock()

	conn, err := p.dial(server.Address, server.Password, p.opts.ConnectTimeout)
	if err != nil {
		return nil, err
	}

	rec := &PoolConn{
		serverID:      server.ID,
		conn:          conn,
		lastUsed:      time.Now(),
		heartbeatStop: make(chan struct{}),
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = conn.Close()
		return nil, ErrPoolClosed
	}
	if existing := p.records[server.ID]; existing != nil && !existing.reconnecting {
		// Lost a creation race; keep the record that is already pooled.
		p.mu.Unlock()
		_ = conn.Close()
		return existing, nil
	}
	// Capacity is enforced here, in the same critical section as the
	// insert, so concurrent creates cannot overshoot the bound.
	if len(p.records) >= p.opts.MaxSize {
		p.pruneOldestLocked()
	}
	p.records[server.ID] = rec
	size := len(p.records)
	p.mu.Unlock()

	monitoring.PoolConnections.Set(float64(size))
	go p.heartbeatLoop(rec)

	logger.Info("RCON connection established", map[string]interface{}{
		"server_id": server.ID,
		"address":   server.Address,
	})
	return rec, nil
}

// Reset tears down the server's connection: marks it reconnecting so
// concurrent resets are no-ops, stops the heartbeat, closes the
// transport best-effort, and drops the record.
func (p *Pool) Reset(serverID string) {
	p.mu.Lock()
	rec := p.records[serverID]
	if rec == nil || rec.reconnecting {
		p.mu.Unlock()
		return
	}
	rec.reconnecting = true
	close(rec.heartbeatStop)
	delete(p.records, serverID)
	size := len(p.records)
	p.mu.Unlock()

	if err := rec.conn.Close(); err != nil {
		logger.Debug("Error closing RCON connection", map[string]interface{}{
			"server_id": serverID,
			"error":     RedactSecrets(err.Error()),
		})
	}
	monitoring.PoolConnections.Set(float64(size))
}

// Close drains every record. The pool is unusable afterwards.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.sweepStop)
	ids := make([]string, 0, len(p.records))
	for id := range p.records {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		p.Reset(id)
	}
	logger.Info("RCON pool drained", map[string]interface{}{"connections": len(ids)})
}

// Size reports the number of pooled connections.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}

func (p *Pool) touch(serverID string) {
	p.mu.Lock()
	if rec := p.records[serverID]; rec != nil {
		rec.lastUsed = time.Now()
	}
	p.mu.Unlock()
}

// pruneOldestLocked evicts the least-recently-used non-reconnecting
// record. Caller holds p.mu.
func (p *Pool) pruneOldestLocked() {
	var oldest *PoolConn
	for _, rec := range p.records {
		if rec.reconnecting {
			continue
		}
		if oldest == nil || rec.lastUsed.Before(oldest.lastUsed) {
			oldest = rec
		}
	}
	if oldest == nil {
		return
	}
	oldest.reconnecting = true
	close(oldest.heartbeatStop)
	delete(p.records, oldest.serverID)
	go func(rec *PoolConn) {
		_ = rec.conn.Close()
	}(oldest)
	logger.Debug("Evicted LRU RCON connection", map[string]interface{}{
		"server_id": oldest.serverID,
	})
}

func (p *Pool) heartbeatLoop(rec *PoolConn) {
	ticker := time.NewTicker(p.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rec.heartbeatStop:
			return
		case <-ticker.C:
			if _, err := rec.Execute(probeCommand); err != nil {
				logger.Warn("RCON heartbeat failed, resetting connection", map[string]interface{}{
					"server_id": rec.serverID,
					"error":     RedactSecrets(err.Error()),
				})
				p.Reset(rec.serverID)
				return
			}
		}
	}
}

func (p *Pool) sweepLoop() {
	ticker := time.NewTicker(p.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.sweepStop:
			return
		case <-ticker.C:
			p.cleanIdle()
		}
	}
}

func (p *Pool) cleanIdle() {
	cutoff := time.Now().Add(-p.opts.MaxIdle)
	p.mu.Lock()
	var stale []string
	for id, rec := range p.records {
		if !rec.reconnecting && rec.lastUsed.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	p.mu.Unlock()

	for _, id := range stale {
		logger.Debug("Closing idle RCON connection", map[string]interface{}{"server_id": id})
		p.Reset(id)
	}
}

func validateAddress(server *models.ServerConfig) error {
	host, portStr, err := net.SplitHostPort(server.Address)
	if err != nil || host == "" {
		return fmt.Errorf("%w: bad address %q for server %s", ErrConfig, server.Address, server.ID)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%w: bad port %q for server %s", ErrConfig, portStr, server.ID)
	}
	return nil
}
