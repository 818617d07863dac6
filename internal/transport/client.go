package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"electrumsmart/internal/domain"
	"electrumsmart/internal/electrum"
)

// link is the connection slot shared by a client and its clones.
type link struct {
	mu   sync.Mutex
	conn *conn
}

// Client is a handle on an Electrum server connection. The zero value is an
// unconfigured client.
type Client struct {
	mu         sync.Mutex
	cfg        Config
	configured bool
	link       *link
	log        *slog.Logger
}

var _ domain.Transport = (*Client)(nil)

// New returns an unconnected client for cfg. A nil logger discards.
func New(cfg Config, log *slog.Logger) *Client {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Client{
		cfg:        cfg,
		configured: true,
		link:       &link{},
		log:        log.With("component", "transport"),
	}
}

// NewTCP returns a plain TCP client.
func NewTCP(host string, port uint16) *Client {
	return New(Config{Host: host, Port: port}, nil)
}

// NewSSL returns a TLS client that verifies the server certificate.
func NewSSL(host string, port uint16) *Client {
	return New(Config{Host: host, Port: port, TLS: true, VerifyCertificate: true}, nil)
}

// NewSSLMaybe returns NewSSL when ssl is set and NewTCP otherwise.
func NewSSLMaybe(host string, port uint16, ssl bool) *Client {
	if ssl {
		return NewSSL(host, port)
	}
	return NewTCP(host, port)
}

// Config returns a copy of the handle's configuration.
func (c *Client) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// setConfig applies fn to the config of a configured, unconnected client.
func (c *Client) setConfig(fn func(*Config)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.configured {
		return ErrNotConfigured
	}
	if c.connectedLocked() {
		return ErrAlreadyConnected
	}
	fn(&c.cfg)
	return nil
}

func (c *Client) SetHost(host string) error {
	return c.setConfig(func(cfg *Config) { cfg.Host = host })
}

func (c *Client) SetPort(port uint16) error {
	return c.setConfig(func(cfg *Config) { cfg.Port = port })
}

// SetVerifyCertificate toggles certificate checks. It has no effect on a
// plain TCP client.
func (c *Client) SetVerifyCertificate(verify bool) error {
	return c.setConfig(func(cfg *Config) {
		if cfg.TLS {
			cfg.VerifyCertificate = verify
		}
	})
}

// SetReadTimeout applies to the next receive, including on a live
// connection. Zero disables it.
func (c *Client) SetReadTimeout(d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.configured {
		return ErrNotConfigured
	}
	c.cfg.ReadTimeout = d
	return nil
}

// SetWriteTimeout applies to the next send, including on a live connection.
func (c *Client) SetWriteTimeout(d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.configured {
		return ErrNotConfigured
	}
	c.cfg.WriteTimeout = d
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectedLocked()
}

func (c *Client) connectedLocked() bool {
	if !c.configured {
		return false
	}
	c.link.mu.Lock()
	defer c.link.mu.Unlock()
	return c.link.conn != nil && c.link.conn.alive()
}

// Connect dials the server and, for TLS, completes the handshake with SNI
// set to the configured host.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.configured {
		return ErrNotConfigured
	}
	c.link.mu.Lock()
	defer c.link.mu.Unlock()
	if c.link.conn != nil && c.link.conn.alive() {
		return ErrAlreadyConnected
	}

	cfg := c.cfg
	addr := cfg.Addr()
	dialer := net.Dialer{Timeout: cfg.DialTimeout}
	nc, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("transport dial %s: %w", addr, err)
	}
	if cfg.TLS {
		tc := tls.Client(nc, &tls.Config{
			ServerName:         cfg.Host,
			InsecureSkipVerify: !cfg.VerifyCertificate,
			MinVersion:         tls.VersionTLS12,
		})
		hctx := ctx
		if cfg.DialTimeout > 0 {
			var cancel context.CancelFunc
			hctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
			defer cancel()
		}
		if err := tc.HandshakeContext(hctx); err != nil {
			_ = nc.Close()
			return fmt.Errorf("transport tls handshake %s: %w", addr, err)
		}
		nc = tc
	}
	if stale := c.link.conn; stale != nil {
		_ = stale.close()
	}
	c.link.conn = newConn(nc, addr, c.log)
	c.log.Debug("connected", "addr", addr, "scheme", cfg.scheme(), "verify", cfg.VerifyCertificate)
	return nil
}

// ConnectRetry calls Connect, retrying up to retries more times with a
// constant delay. Configuration errors are returned at once.
func (c *Client) ConnectRetry(ctx context.Context, retries uint64, delay time.Duration) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), retries),
		ctx,
	)
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := c.Connect(ctx)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrNotConfigured), errors.Is(err, ErrAlreadyConnected):
			return backoff.Permanent(err)
		}
		c.log.Warn("connect failed", "addr", c.Config().Addr(), "attempt", attempt, "err", err)
		return err
	}, policy)
}

// active returns the live connection together with the handle's config.
func (c *Client) active() (*conn, Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.configured {
		return nil, Config{}, ErrNotConfigured
	}
	c.link.mu.Lock()
	cn := c.link.conn
	c.link.mu.Unlock()
	if cn == nil || cn.closedLocally() {
		return nil, c.cfg, ErrNotConnected
	}
	return cn, c.cfg, nil
}

// SendRaw writes line followed by a newline.
func (c *Client) SendRaw(line string) error {
	cn, cfg, err := c.active()
	if err != nil {
		return err
	}
	return cn.write(line, cfg.WriteTimeout)
}

// Send writes one request.
func (c *Client) Send(req electrum.Request) error {
	b, err := req.Marshal()
	if err != nil {
		return fmt.Errorf("transport marshal %s: %w", req.Method, err)
	}
	return c.SendRaw(string(b))
}

// SendBatch writes reqs as a single JSON array line.
func (c *Client) SendBatch(reqs []electrum.Request) error {
	if len(reqs) == 0 {
		return ErrEmptyBatch
	}
	b, err := electrum.MarshalBatch(reqs)
	if err != nil {
		return fmt.Errorf("transport marshal batch: %w", err)
	}
	return c.SendRaw(string(b))
}

// RecvRaw blocks for the next line, without its newline. It fails with
// ErrTimeout once the read timeout elapses and with ErrClosed when the server
// hangs up and every buffered line was consumed.
func (c *Client) RecvRaw(ctx context.Context) (string, error) {
	cn, cfg, err := c.active()
	if err != nil {
		return "", err
	}
	var timeout <-chan time.Time
	if cfg.ReadTimeout > 0 {
		t := time.NewTimer(cfg.ReadTimeout)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case line, ok := <-cn.lines:
		if !ok {
			return "", cn.failure()
		}
		return line, nil
	case <-timeout:
		return "", fmt.Errorf("%w: no line from %s within %s", ErrTimeout, cfg.Addr(), cfg.ReadTimeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// TryRecvRaw returns a buffered line if there is one. ok is false when
// nothing is waiting.
func (c *Client) TryRecvRaw() (line string, ok bool, err error) {
	cn, _, err := c.active()
	if err != nil {
		return "", false, err
	}
	select {
	case line, open := <-cn.lines:
		if !open {
			return "", false, cn.failure()
		}
		return line, true, nil
	default:
		return "", false, nil
	}
}

// Recv receives one line and parses it against index.
func (c *Client) Recv(ctx context.Context, index electrum.Index) ([]electrum.Response, error) {
	line, err := c.RecvRaw(ctx)
	if err != nil {
		return nil, err
	}
	return electrum.ParseResponses(line, index)
}

// TryRecv is the non-blocking form of Recv.
func (c *Client) TryRecv(index electrum.Index) ([]electrum.Response, bool, error) {
	line, ok, err := c.TryRecvRaw()
	if err != nil || !ok {
		return nil, false, err
	}
	resps, err := electrum.ParseResponses(line, index)
	if err != nil {
		return nil, true, err
	}
	return resps, true, nil
}

// Clone returns a handle that shares c's connection slot. Configuration is
// copied; connecting or closing either handle affects both.
func (c *Client) Clone() *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.configured {
		return &Client{}
	}
	return &Client{cfg: c.cfg, configured: true, link: c.link, log: c.log}
}

// Close shuts the shared connection. It is a no-op on an unconfigured client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.configured {
		return nil
	}
	c.link.mu.Lock()
	defer c.link.mu.Unlock()
	cn := c.link.conn
	if cn == nil {
		return ErrNotConnected
	}
	c.link.conn = nil
	return cn.close()
}
