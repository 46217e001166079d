// Package coa sends RADIUS dynamic-authorization requests to NAS devices.
package coa

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"layeh.com/radius"
	"layeh.com/radius/rfc2866"
)

// Disconnect outcomes. Callers only learn success or failure, never protocol
// detail.
var (
	ErrDisconnectFailed  = errors.New("session disconnect failed")
	ErrDisconnectTimeout = errors.New("session disconnect timeout")
)

const (
	// DefaultPort is the well-known RADIUS dynamic-authorization port.
	DefaultPort = 3799

	// DefaultTimeout bounds the single disconnect exchange.
	DefaultTimeout = 30 * time.Second
)

// Disconnector issues Disconnect-Requests to NAS devices using a shared,
// preconfigured secret. One attempt per call, no retry.
type Disconnector struct {
	secret  string
	port    int
	timeout time.Duration
	client  *radius.Client
}

// NewDisconnector creates a Disconnector. Zero port and timeout fall back to
// the defaults.
func NewDisconnector(secret string, port int, timeout time.Duration) *Disconnector {
	if port == 0 {
		port = DefaultPort
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Disconnector{
		secret:  secret,
		port:    port,
		timeout: timeout,
		// Retry zero disables retransmission; the context deadline is the
		// only bound on the exchange.
		client: &radius.Client{Retry: 0},
	}
}

// Disconnect asks the NAS at nasAddr to terminate the session identified by
// sessionID. Returns nil only when the NAS acknowledges the disconnect.
func (d *Disconnector) Disconnect(ctx context.Context, sessionID, nasAddr string) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	packet := radius.New(radius.CodeDisconnectRequest, []byte(d.secret))
	if err := rfc2866.AcctSessionID_SetString(packet, sessionID); err != nil {
		return fmt.Errorf("%w: %v", ErrDisconnectFailed, err)
	}

	addr := net.JoinHostPort(nasAddr, strconv.Itoa(d.port))
	response, err := d.client.Exchange(ctx, packet, addr)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrDisconnectTimeout
		}
		return fmt.Errorf("%w: %v", ErrDisconnectFailed, err)
	}
	if response.Code != radius.CodeDisconnectACK {
		return ErrDisconnectFailed
	}
	return nil
}
