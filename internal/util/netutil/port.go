// Package netutil provides the readiness poller used to wait for remote
// platform services to start accepting TCP connections.
package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

const (
	defaultInterval    = 1 * time.Second
	defaultDialTimeout = 2 * time.Second
)

// ErrDeadlineExceeded is returned when a bounded wait runs out of time
// before the endpoint accepts a connection.
var ErrDeadlineExceeded = errors.New("deadline exceeded")

// Poller repeatedly probes a TCP endpoint until it accepts a connection.
// Each probe opens and closes its own connection; nothing is leaked across
// attempts. The zero value uses sensible defaults.
type Poller struct {
	// Interval is the pause between probes. Defaults to one second.
	Interval time.Duration

	// DialTimeout bounds a single probe. Defaults to two seconds.
	DialTimeout time.Duration
}

// WaitForPort blocks until host:port accepts a TCP connection or the
// timeout elapses. A timeout of zero or less fails immediately unless the
// very first probe succeeds within the remaining budget.
func (p Poller) WaitForPort(ctx context.Context, host string, port int, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Wait(ctx, net.JoinHostPort(host, strconv.Itoa(port)))
}

// Wait blocks until address accepts a TCP connection or ctx is done.
// Without a context deadline the wait is unbounded.
func (p Poller) Wait(ctx context.Context, address string) error {
	interval := p.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	// Probe immediately so an already-open port returns without waiting
	// for the first tick.
	if err := p.probe(ctx, address); err == nil {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("waiting for %s: %w", address, ErrDeadlineExceeded)
			}
			return ctx.Err()
		case <-ticker.C:
			if err := p.probe(ctx, address); err == nil {
				return nil
			}
		}
	}
}

// probe attempts a single connection, capped by both DialTimeout and the
// context's remaining budget.
func (p Poller) probe(ctx context.Context, address string) error {
	timeout := p.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}

	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return err
	}
	return conn.Close()
}
