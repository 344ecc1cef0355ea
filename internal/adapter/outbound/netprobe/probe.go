// Package netprobe detects connectivity by dialing the backend host.
// It stands in for the browser's online/offline signal.
package netprobe

import (
	"context"
	"net"
	"net/url"
	"time"
)

// DefaultTimeout bounds one connectivity check.
const DefaultTimeout = 2 * time.Second

// Dialer reports the device online when a TCP connection to the
// backend host succeeds within the timeout.
type Dialer struct {
	addr    string
	timeout time.Duration
}

// New creates a Dialer probing the host of the given backend URL.
// Port defaults follow the URL scheme.
func New(backendURL string, timeout time.Duration) (*Dialer, error) {
	u, err := url.Parse(backendURL)
	if err != nil {
		return nil, err
	}
	host := u.Host
	if u.Port() == "" {
		port := "443"
		if u.Scheme == "http" {
			port = "80"
		}
		host = net.JoinHostPort(u.Hostname(), port)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dialer{addr: host, timeout: timeout}, nil
}

// Online implements cache.Probe.
func (d *Dialer) Online(ctx context.Context) bool {
	dialCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", d.addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
