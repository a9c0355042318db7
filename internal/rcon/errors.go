package rcon

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	gorcon "github.com/gorcon/rcon"
)

// Sentinel errors classifying everything the RCON core can fail with.
// Callers branch with errors.Is.
var (
	// ErrNetwork covers refused, reset and timed-out connects and sends.
	ErrNetwork = errors.New("rcon: network failure")

	// ErrAuth means the server rejected the configured password.
	ErrAuth = errors.New("rcon: authentication failed")

	// ErrConfig means the server entry itself is unusable (bad address,
	// out-of-range port).
	ErrConfig = errors.New("rcon: invalid server configuration")

	// ErrRateLimited means the mutating-command window for the server is
	// exhausted; the caller should retry later.
	ErrRateLimited = errors.New("rcon: rate limit exceeded")

	// ErrPoolClosed is returned after Close has drained the pool.
	ErrPoolClosed = errors.New("rcon: pool closed")
)

// classifyDialErr maps transport errors raised while connecting or
// authenticating into the sentinel taxonomy.
func classifyDialErr(err error, addr string) error {
	if errors.Is(err, gorcon.ErrAuthFailed) {
		return fmt.Errorf("%w: %s", ErrAuth, addr)
	}
	return fmt.Errorf("%w: connect %s: %s", ErrNetwork, addr, redactedErr(err))
}

// classifySendErr maps transport errors raised mid-command.
func classifySendErr(err error, serverID string) error {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: send to %s timed out", ErrNetwork, serverID)
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, net.ErrClosed):
		return fmt.Errorf("%w: send to %s: %s", ErrNetwork, serverID, redactedErr(err))
	case errors.Is(err, gorcon.ErrAuthFailed):
		return fmt.Errorf("%w: %s", ErrAuth, serverID)
	}
	return fmt.Errorf("rcon: command on %s failed: %s", serverID, redactedErr(err))
}

// redactedErr renders an error for logging with anything that looks like
// a credential or a command argument masked out.
func redactedErr(err error) string {
	return RedactSecrets(err.Error())
}

// secretMarkers flag substrings after which the rest of a message is
// considered sensitive.
var secretMarkers = []string{"password", "passwd", "secret", "token"}

// RedactSecrets masks the remainder of any line containing a credential
// marker. Raw command arguments are redacted separately via
// RedactCommand before they ever reach a log line.
func RedactSecrets(msg string) string {
	lower := strings.ToLower(msg)
	cut := len(msg)
	for _, marker := range secretMarkers {
		if i := strings.Index(lower, marker); i >= 0 && i+len(marker) < cut {
			cut = i + len(marker)
		}
	}
	if cut == len(msg) {
		return msg
	}
	return msg[:cut] + "=****"
}

// RedactCommand keeps the command verb (first two tokens) and masks the
// arguments, which may carry player identifiers.
func RedactCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) <= 2 {
		return command
	}
	return strings.Join(fields[:2], " ") + " ***"
}
