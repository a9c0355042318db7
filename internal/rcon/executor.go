package rcon

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/craftlink/whitelistd/internal/models"
	"github.com/craftlink/whitelistd/internal/monitoring"
	"github.com/craftlink/whitelistd/pkg/logger"
)

// ExecutorOptions tunes command execution. Zero values fall back to the
// defaults below.
type ExecutorOptions struct {
	ExecuteTimeout time.Duration
	LockAttempts   int
	LockRetryDelay time.Duration
	RateLimit      int
	RateWindow     time.Duration
}

func (o *ExecutorOptions) withDefaults() {
	if o.ExecuteTimeout <= 0 {
		o.ExecuteTimeout = 10 * time.Second
	}
	if o.LockAttempts <= 0 {
		o.LockAttempts = 10
	}
	if o.LockRetryDelay <= 0 {
		o.LockRetryDelay = 100 * time.Millisecond
	}
	if o.RateLimit <= 0 {
		o.RateLimit = 10
	}
	if o.RateWindow <= 0 {
		o.RateWindow = 3 * time.Second
	}
}

// commandLock is the per-server mutual exclusion around the wire. It is
// not a sync.Mutex because acquisition is bounded: after LockAttempts
// failed tries the executor takes the lock by force rather than queueing
// forever. That bounds worst-case latency at the cost of a rare overlap
// window under heavy contention; the wire mutex on PoolConn keeps even
// that window from interleaving bytes on the socket.
type commandLock struct {
	mu   sync.Mutex
	held bool
}

func (l *commandLock) tryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false
	}
	l.held = true
	return true
}

func (l *commandLock) forceAcquire() {
	l.mu.Lock()
	l.held = true
	l.mu.Unlock()
}

func (l *commandLock) release() {
	l.mu.Lock()
	l.held = false
	l.mu.Unlock()
}

// Executor serializes commands per server, rate-limits mutating
// commands, races sends against a fixed timeout, and rewrites transport
// errors into the typed taxonomy with credentials redacted.
type Executor struct {
	pool    *Pool
	limiter *slidingWindow
	opts    ExecutorOptions

	mu    sync.Mutex
	locks map[string]*commandLock
}

// NewExecutor wraps a pool.
func NewExecutor(pool *Pool, opts ExecutorOptions) *Executor {
	opts.withDefaults()
	return &Executor{
		pool:    pool,
		limiter: newSlidingWindow(opts.RateLimit, opts.RateWindow),
		opts:    opts,
		locks:   map[string]*commandLock{},
	}
}

// Execute runs one command against the server and returns the raw
// response text.
func (e *Executor) Execute(server *models.ServerConfig, command string) (string, error) {
	if isMutating(server, command) && !e.limiter.Allow(server.ID) {
		monitoring.CommandsRateLimited.WithLabelValues(server.ID).Inc()
		return "", fmt.Errorf("%w: server %s", ErrRateLimited, server.ID)
	}

	lock := e.lockFor(server.ID)
	e.acquire(lock, server.ID)
	defer lock.release()

	conn, err := e.pool.Get(server)
	if err != nil {
		e.record(server.ID, err)
		return "", err
	}

	type result struct {
		response string
		err      error
	}
	done := make(chan result, 1)
	go func() {
		resp, execErr := conn.Execute(command)
		done <- result{resp, execErr}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			err := classifySendErr(res.err, server.ID)
			if errors.Is(err, ErrNetwork) {
				e.pool.Reset(server.ID)
			}
			e.record(server.ID, err)
			logger.Warn("RCON command failed", map[string]interface{}{
				"server_id": server.ID,
				"command":   RedactCommand(command),
				"error":     RedactSecrets(err.Error()),
			})
			return "", err
		}
		e.record(server.ID, nil)
		return res.response, nil
	case <-time.After(e.opts.ExecuteTimeout):
		err := fmt.Errorf("%w: command on %s timed out after %s",
			ErrNetwork, server.ID, e.opts.ExecuteTimeout)
		e.pool.Reset(server.ID)
		e.record(server.ID, err)
		logger.Warn("RCON command timed out", map[string]interface{}{
			"server_id": server.ID,
			"command":   RedactCommand(command),
			"timeout":   e.opts.ExecuteTimeout.String(),
		})
		return "", err
	}
}

// acquire takes the per-server lock with bounded retries, then by force.
// Lock contention never fails a command.
func (e *Executor) acquire(lock *commandLock, serverID string) {
	for i := 0; i < e.opts.LockAttempts; i++ {
		if lock.tryAcquire() {
			return
		}
		time.Sleep(e.opts.LockRetryDelay)
	}
	logger.Warn("Forcing RCON command lock after bounded wait", map[string]interface{}{
		"server_id": serverID,
		"attempts":  e.opts.LockAttempts,
	})
	lock.forceAcquire()
}

func (e *Executor) lockFor(serverID string) *commandLock {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[serverID]
	if !ok {
		lock = &commandLock{}
		e.locks[serverID] = lock
	}
	return lock
}

func (e *Executor) record(serverID string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	monitoring.CommandsExecuted.WithLabelValues(serverID, result).Inc()
}

// isMutating reports whether the command matches the server's
// add-command shape, which is the class of commands the rate limiter
// throttles.
func isMutating(server *models.ServerConfig, command string) bool {
	prefix := server.AddCommand
	if i := strings.Index(prefix, models.PlaceholderID); i >= 0 {
		prefix = prefix[:i]
	}
	prefix = strings.TrimSpace(prefix)
	return prefix != "" && strings.HasPrefix(command, prefix)
}
