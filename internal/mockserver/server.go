package mockserver

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"electrumsmart/internal/electrum"
)

// maxLine bounds a single request line.
const maxLine = 4 << 20

// Server is an in-memory Electrum server.
type Server struct {
	log      *slog.Logger
	requests *prometheus.CounterVec

	mu    sync.RWMutex
	state state

	connMu   sync.Mutex
	ln       net.Listener
	conns    map[*peerConn]struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

// New returns a server seeded with defaults. A nil logger discards.
func New(log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Server{
		log: log.With("component", "mockserver"),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "electrum_mockserver_requests_total",
			Help: "Requests handled by the mock Electrum server, by method and outcome.",
		}, []string{"method", "outcome"}),
		state: newState(),
		conns: make(map[*peerConn]struct{}),
		stop:  make(chan struct{}),
	}
}

// Collector exposes the request counter for registration.
func (s *Server) Collector() prometheus.Collector { return s.requests }

// Listen binds addr. With a non-nil tlsCfg connections are TLS.
func (s *Server) Listen(addr string, tlsCfg *tls.Config) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.ln != nil {
		return ErrListening
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("mockserver listen %s: %w", addr, err)
	}
	if tlsCfg != nil {
		ln = tls.NewListener(ln, tlsCfg)
	}
	s.ln = ln
	s.log.Info("listening", "addr", ln.Addr().String(), "tls", tlsCfg != nil)
	return nil
}

// Addr returns the bound address, nil before Listen.
func (s *Server) Addr() net.Addr {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Port returns the bound TCP port, 0 before Listen.
func (s *Server) Port() uint16 {
	if addr, ok := s.Addr().(*net.TCPAddr); ok {
		return uint16(addr.Port)
	}
	return 0
}

// Serve accepts connections until ctx ends or Close is called. It returns
// nil on a clean shutdown.
func (s *Server) Serve(ctx context.Context) error {
	s.connMu.Lock()
	ln := s.ln
	s.connMu.Unlock()
	if ln == nil {
		return ErrNotListening
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-gctx.Done():
			s.Close()
		case <-s.stop:
		}
		return nil
	})
	g.Go(func() error {
		for {
			nc, err := ln.Accept()
			if err != nil {
				if s.stopped() {
					return nil
				}
				return fmt.Errorf("mockserver accept: %w", err)
			}
			pc, ok := s.track(nc)
			if !ok {
				_ = nc.Close()
				return nil
			}
			g.Go(func() error {
				s.handle(pc)
				return nil
			})
		}
	})
	return g.Wait()
}

// Close stops accepting and drops every connection.
func (s *Server) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.connMu.Lock()
		defer s.connMu.Unlock()
		if s.ln != nil {
			_ = s.ln.Close()
		}
		for pc := range s.conns {
			_ = pc.nc.Close()
		}
	})
}

// DropConnections closes every client connection but keeps listening.
func (s *Server) DropConnections() {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	for pc := range s.conns {
		_ = pc.nc.Close()
	}
}

func (s *Server) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (s *Server) track(nc net.Conn) (*peerConn, bool) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.stopped() {
		return nil, false
	}
	pc := &peerConn{nc: nc, scripts: make(map[electrum.ScriptHash]struct{})}
	s.conns[pc] = struct{}{}
	return pc, true
}

func (s *Server) untrack(pc *peerConn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	delete(s.conns, pc)
}

func (s *Server) handle(pc *peerConn) {
	remote := pc.nc.RemoteAddr().String()
	s.log.Debug("client connected", "remote", remote)
	defer func() {
		s.untrack(pc)
		_ = pc.nc.Close()
		s.log.Debug("client disconnected", "remote", remote)
	}()

	scanner := bufio.NewScanner(pc.nc)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLine)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		out := s.handleLine(pc, line)
		if err := pc.writeLine(out); err != nil {
			s.log.Debug("write failed", "remote", remote, "err", err)
			return
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.log.Debug("read failed", "remote", remote, "err", err)
	}
}

// peerConn is one client connection and its subscriptions.
type peerConn struct {
	nc      net.Conn
	writeMu sync.Mutex

	subMu   sync.Mutex
	headers bool
	scripts map[electrum.ScriptHash]struct{}
}

func (pc *peerConn) writeLine(b []byte) error {
	pc.writeMu.Lock()
	defer pc.writeMu.Unlock()
	_, err := pc.nc.Write(append(b, '\n'))
	return err
}

func (pc *peerConn) subscribedHeaders() bool {
	pc.subMu.Lock()
	defer pc.subMu.Unlock()
	return pc.headers
}

func (pc *peerConn) subscribedScript(sh electrum.ScriptHash) bool {
	pc.subMu.Lock()
	defer pc.subMu.Unlock()
	_, ok := pc.scripts[sh]
	return ok
}

func (s *Server) snapshotConns() []*peerConn {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	out := make([]*peerConn, 0, len(s.conns))
	for pc := range s.conns {
		out = append(out, pc)
	}
	return out
}

func (s *Server) notifyHeader(info electrum.HeaderInfo) {
	b, err := json.Marshal(electrum.HeaderNotification{Headers: []electrum.HeaderInfo{info}})
	if err != nil {
		s.log.Error("encode header notification", "err", err)
		return
	}
	for _, pc := range s.snapshotConns() {
		if pc.subscribedHeaders() {
			_ = pc.writeLine(b)
		}
	}
}

func (s *Server) notifyScriptHash(sh electrum.ScriptHash, status *string) {
	b, err := json.Marshal(electrum.ScriptHashNotification{ScriptHash: sh, Status: status})
	if err != nil {
		s.log.Error("encode scripthash notification", "err", err)
		return
	}
	for _, pc := range s.snapshotConns() {
		if pc.subscribedScript(sh) {
			_ = pc.writeLine(b)
		}
	}
}
