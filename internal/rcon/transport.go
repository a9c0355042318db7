package rcon

import (
	"time"

	gorcon "github.com/gorcon/rcon"
)

// Conn is the transport primitive the pool manages: a single
// authenticated RCON connection carrying one un-correlated
// request/response channel.
type Conn interface {
	Execute(command string) (string, error)
	Close() error
}

// Dialer opens an authenticated connection to addr. The pool calls it
// lazily on first use of a server and again after every reset.
type Dialer func(addr, password string, timeout time.Duration) (Conn, error)

// DialRCON is the production Dialer backed by gorcon.
func DialRCON(addr, password string, timeout time.Duration) (Conn, error) {
	conn, err := gorcon.Dial(addr, password, gorcon.SetDialTimeout(timeout))
	if err != nil {
		return nil, classifyDialErr(err, addr)
	}
	return conn, nil
}
