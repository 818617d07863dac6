package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"electrumsmart/internal/domain"
	"electrumsmart/internal/electrum"
	"electrumsmart/internal/transport"
)

var (
	// ErrNotStarted is returned by calls made before Start.
	ErrNotStarted = errors.New("session: not started")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("session: already started")
	// ErrClosed wraps the cause once the pump has stopped.
	ErrClosed = errors.New("session: closed")
	// ErrUnexpectedResponse is returned when a typed helper gets a response
	// of another kind than its method implies.
	ErrUnexpectedResponse = errors.New("session: unexpected response type")
)

// NotificationBuffer is the capacity of the Notifications channel.
const NotificationBuffer = 64

type result struct {
	resp electrum.Response
	err  error
}

// waiter is a caller blocked on one id. group is the first id of the round
// trip the request went out in.
type waiter struct {
	ch    chan result
	group uint64
}

// Service runs request/response correlation over one transport.
//
// A Service owns its transport once started:
//   - ids are assigned from 1 upwards and never reused;
//   - every in-flight request sits in the index until its response arrives;
//   - one pump goroutine reads lines, parses them against the index and
//     wakes the waiting caller;
//   - notifications go to a bounded channel and are dropped, with a warning,
//     when nobody drains it;
//   - a server error with a null id goes to the outstanding round trip when
//     there is exactly one, otherwise it is logged and the callers keep
//     waiting for their own ids or their context.
//
// When the pump stops (connection lost, Close) every waiting call fails with
// the cause and later calls fail fast with ErrClosed.
type Service struct {
	transport domain.Transport
	log       *slog.Logger
	metrics   *Metrics

	mu      sync.Mutex
	nextID  uint64
	index   electrum.Index
	pending map[uint64]waiter
	started bool
	err     error
	cancel  context.CancelFunc
	done    chan struct{}

	notifications chan electrum.Response
}

var _ domain.SessionService = (*Service)(nil)

// New constructs a Service over t. A nil logger discards; nil metrics
// record nothing.
func New(t domain.Transport, log *slog.Logger, metrics *Metrics) *Service {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{
		transport:     t,
		log:           log.With("component", "session"),
		metrics:       metrics,
		index:         electrum.Index{},
		pending:       make(map[uint64]waiter),
		done:          make(chan struct{}),
		notifications: make(chan electrum.Response, NotificationBuffer),
	}
}

// Start connects the transport if needed and launches the pump. The pump
// runs until ctx ends, Close is called or the connection drops.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	if !s.transport.IsConnected() {
		if err := s.transport.Connect(ctx); err != nil {
			return fmt.Errorf("session start: %w", err)
		}
	}
	pumpCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.started = true
	go s.pump(pumpCtx)
	return nil
}

// Notifications delivers header and scripthash notifications. It is closed
// when the pump stops.
func (s *Service) Notifications() <-chan electrum.Response { return s.notifications }

// Done is closed once the pump has stopped.
func (s *Service) Done() <-chan struct{} { return s.done }

// Err returns why the pump stopped, nil while it runs.
func (s *Service) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops the pump and closes the transport.
func (s *Service) Close() error {
	s.mu.Lock()
	started, cancel := s.started, s.cancel
	s.mu.Unlock()
	if !started {
		return nil
	}
	cancel()
	err := s.transport.Close()
	<-s.done
	if err != nil && !errors.Is(err, transport.ErrNotConnected) {
		return fmt.Errorf("session close: %w", err)
	}
	return nil
}

// Call sends req and waits for its response. A server error comes back as
// an *electrum.ErrorResponse error.
func (s *Service) Call(ctx context.Context, req electrum.Request) (electrum.Response, error) {
	resps, err := s.roundTrip(ctx, []electrum.Request{req}, false)
	if err != nil {
		return nil, err
	}
	if e, ok := resps[0].(*electrum.ErrorResponse); ok {
		return nil, e
	}
	return resps[0], nil
}

// Batch sends reqs as one JSON array and returns their responses in request
// order. Server errors stay in the slice as *electrum.ErrorResponse.
func (s *Service) Batch(ctx context.Context, reqs []electrum.Request) ([]electrum.Response, error) {
	if len(reqs) == 0 {
		return nil, transport.ErrEmptyBatch
	}
	return s.roundTrip(ctx, reqs, true)
}

func (s *Service) roundTrip(ctx context.Context, reqs []electrum.Request, batch bool) ([]electrum.Response, error) {
	start := time.Now()

	// Register every request before anything hits the wire so the pump can
	// never see a response for an id it does not know.
	sent := make([]electrum.Request, len(reqs))
	waits := make([]chan result, len(reqs))
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil, ErrNotStarted
	}
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %w", ErrClosed, err)
	}
	group := s.nextID + 1
	for i, r := range reqs {
		s.nextID++
		sent[i] = r.WithID(s.nextID)
		waits[i] = make(chan result, 1)
		s.index[s.nextID] = sent[i]
		s.pending[s.nextID] = waiter{ch: waits[i], group: group}
	}
	s.mu.Unlock()

	var err error
	if batch {
		err = s.transport.SendBatch(sent)
	} else {
		err = s.transport.Send(sent[0])
	}
	if err != nil {
		s.forget(sent)
		s.record(sent, "error", start)
		return nil, fmt.Errorf("session send: %w", err)
	}

	out := make([]electrum.Response, len(sent))
	for i, ch := range waits {
		select {
		case res := <-ch:
			if res.err != nil {
				s.forget(sent[i+1:])
				s.record(sent, "error", start)
				return nil, res.err
			}
			out[i] = res.resp
		case <-ctx.Done():
			s.forget(sent[i:])
			s.record(sent, "error", start)
			return nil, ctx.Err()
		}
	}
	for i, r := range out {
		outcome := "ok"
		if _, isErr := r.(*electrum.ErrorResponse); isErr {
			outcome = "server_error"
		}
		s.metrics.observe(sent[i].Method.String(), outcome, time.Since(start).Seconds())
	}
	return out, nil
}

func (s *Service) record(reqs []electrum.Request, outcome string, start time.Time) {
	elapsed := time.Since(start).Seconds()
	for _, r := range reqs {
		s.metrics.observe(r.Method.String(), outcome, elapsed)
	}
}

func (s *Service) forget(reqs []electrum.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range reqs {
		delete(s.index, r.ID)
		delete(s.pending, r.ID)
	}
}

func (s *Service) pump(ctx context.Context) {
	var cause error
	defer func() {
		s.shutdown(cause)
		close(s.notifications)
		close(s.done)
	}()

	for {
		line, err := s.transport.RecvRaw(ctx)
		switch {
		case err == nil:
			s.dispatch(line)
		case errors.Is(err, transport.ErrTimeout):
			// Idle connection; subscriptions may stay quiet for a long time.
			continue
		case ctx.Err() != nil:
			cause = ErrClosed
			return
		default:
			s.log.Warn("receive failed", "err", err)
			cause = err
			return
		}
	}
}

// shutdown records the terminal error and fails every waiting call.
func (s *Service) shutdown(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = cause
	for id, w := range s.pending {
		w.ch <- result{err: fmt.Errorf("%w: %w", ErrClosed, cause)}
		delete(s.pending, id)
		delete(s.index, id)
	}
}

func (s *Service) dispatch(line string) {
	for _, raw := range splitBatch(line) {
		s.mu.Lock()
		resp, err := electrum.ParseResponse(raw, s.index)
		s.mu.Unlock()
		if err != nil {
			if id, ok := responseID(raw); ok && s.resolve(id, result{err: err}) {
				continue
			}
			s.log.Warn("dropping unparseable message", "err", err)
			continue
		}

		switch r := resp.(type) {
		case *electrum.HeaderNotification:
			s.notify(electrum.MethodHeadersSubscribe, r)
		case *electrum.ScriptHashNotification:
			s.notify(electrum.MethodScriptHashSubscribe, r)
		case interface{ RequestID() uint64 }:
			if s.resolve(r.RequestID(), result{resp: resp}) {
				continue
			}
			if e, ok := resp.(*electrum.ErrorResponse); ok && e.RequestID() == 0 && s.resolveUnaddressed(e) {
				continue
			}
			s.log.Warn("response for unknown request", "id", r.RequestID())
		}
	}
}

func (s *Service) resolve(id uint64, res result) bool {
	s.mu.Lock()
	w, ok := s.pending[id]
	delete(s.pending, id)
	delete(s.index, id)
	s.mu.Unlock()
	if ok {
		w.ch <- res
	}
	return ok
}

// resolveUnaddressed fails every call of the only outstanding round trip
// with e. Ids start at 1, so a null id decodes to 0 and matches nothing.
func (s *Service) resolveUnaddressed(e *electrum.ErrorResponse) bool {
	s.mu.Lock()
	var group uint64
	for _, w := range s.pending {
		if group != 0 && w.group != group {
			s.mu.Unlock()
			return false
		}
		group = w.group
	}
	chans := make([]chan result, 0, len(s.pending))
	for id, w := range s.pending {
		chans = append(chans, w.ch)
		delete(s.pending, id)
		delete(s.index, id)
	}
	s.mu.Unlock()
	for _, ch := range chans {
		ch <- result{resp: e}
	}
	return len(chans) > 0
}

func (s *Service) notify(method electrum.Method, n electrum.Response) {
	select {
	case s.notifications <- n:
		s.metrics.notification(method.String(), "delivered")
	default:
		s.metrics.notification(method.String(), "dropped")
		s.log.Warn("notification channel full, dropping", "method", method)
	}
}

// splitBatch returns the elements of a batch line, or the line itself.
func splitBatch(line string) []string {
	trimmed := bytes.TrimSpace([]byte(line))
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return []string{line}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return []string{line}
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = string(item)
	}
	return out
}

// responseID extracts a numeric id from a message the parser rejected.
func responseID(raw string) (uint64, bool) {
	var probe struct {
		ID *uint64 `json:"id"`
	}
	if json.Unmarshal([]byte(raw), &probe) != nil || probe.ID == nil {
		return 0, false
	}
	return *probe.ID, true
}
