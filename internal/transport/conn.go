package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
)

// lineBuffer bounds how many unread lines a connection holds before the
// reader stops pulling from the socket.
const lineBuffer = 256

// conn is one live socket plus its reader goroutine.
type conn struct {
	nc   net.Conn
	log  *slog.Logger
	addr string

	lines chan string
	quit  chan struct{}
	done  chan struct{}

	writeMu sync.Mutex

	mu       sync.Mutex
	readErr  error
	shutdown bool
}

func newConn(nc net.Conn, addr string, log *slog.Logger) *conn {
	c := &conn{
		nc:    nc,
		log:   log,
		addr:  addr,
		lines: make(chan string, lineBuffer),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *conn) readLoop() {
	defer close(c.done)
	defer close(c.lines)

	r := bufio.NewReader(c.nc)
	for {
		line, err := r.ReadString('\n')
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			select {
			case c.lines <- line:
			case <-c.quit:
				c.setReadErr(ErrClosed)
				return
			}
		}
		if err != nil {
			c.setReadErr(err)
			// The peer is gone; release the socket without waiting for close.
			_ = c.nc.Close()
			return
		}
	}
}

func (c *conn) setReadErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.shutdown, errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed), errors.Is(err, ErrClosed):
		c.readErr = ErrClosed
	default:
		c.readErr = fmt.Errorf("transport read %s: %w", c.addr, err)
	}
	c.log.Debug("reader stopped", "addr", c.addr, "err", c.readErr)
}

// failure is the error receivers see once lines is drained and closed.
func (c *conn) failure() error {
	<-c.done
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr == nil {
		return ErrClosed
	}
	return c.readErr
}

// alive reports whether the reader is still running and Close was not called.
func (c *conn) alive() bool {
	select {
	case <-c.done:
		return false
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.shutdown
}

func (c *conn) closedLocally() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shutdown
}

func (c *conn) write(line string, timeout time.Duration) error {
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := c.nc.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("transport set write deadline: %w", err)
	}
	if _, err := io.WriteString(c.nc, line); err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return fmt.Errorf("%w: write %s: %v", ErrTimeout, c.addr, err)
		}
		if c.closedLocally() {
			return ErrNotConnected
		}
		return fmt.Errorf("transport write %s: %w", c.addr, err)
	}
	return nil
}

func (c *conn) close() error {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.shutdown = true
	c.mu.Unlock()

	close(c.quit)
	err := c.nc.Close()
	<-c.done
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("transport close %s: %w", c.addr, err)
	}
	return nil
}
