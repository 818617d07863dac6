package watch

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"electrumsmart/internal/chain"
	"electrumsmart/internal/domain"
	"electrumsmart/internal/electrum"
)

var (
	// ErrEmptyScript is returned by Add for a zero-length script.
	ErrEmptyScript = errors.New("watch: empty script")
	// ErrNotificationsClosed is returned by Listen when the session stops
	// delivering notifications.
	ErrNotificationsClosed = errors.New("watch: notification stream closed")
)

// Options tunes a Service.
type Options struct {
	// ResyncInterval makes Listen re-run Sync periodically, which recovers
	// changes whose notifications were dropped. Zero disables it.
	ResyncInterval time.Duration
}

// Service maintains the watch-list against a server.
//
// Flow:
//   - Add/Remove/List only touch the store.
//   - Sync subscribes every entry in one batch and persists the statuses.
//   - Listen consumes scripthash notifications from the session and persists
//     each change before reporting it.
type Service struct {
	store   domain.WatchStore
	session domain.SessionService
	log     *slog.Logger
	metrics *Metrics
	opts    Options
	now     func() time.Time
}

var _ domain.WatchService = (*Service)(nil)

// New constructs a watch Service. session may be nil for offline use of
// Add, Remove and List.
func New(
	store domain.WatchStore,
	session domain.SessionService,
	log *slog.Logger,
	metrics *Metrics,
	opts Options,
) *Service {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store:   store,
		session: session,
		log:     log.With("component", "watch"),
		metrics: metrics,
		opts:    opts,
		now:     time.Now,
	}
}

// Add puts script on the watch-list under label. The status stays unknown
// until the next Sync.
func (s *Service) Add(label domain.Label, script []byte) (domain.WatchEntry, error) {
	if len(script) == 0 {
		return domain.WatchEntry{}, ErrEmptyScript
	}
	entry := domain.WatchEntry{
		Label:      label,
		Script:     hex.EncodeToString(script),
		ScriptHash: electrum.NewScriptHash(script),
		UpdatedAt:  s.now().UTC(),
	}
	if err := s.store.AddEntry(entry); err != nil {
		return domain.WatchEntry{}, err
	}
	s.log.Info("watching script", "label", label, "script", chain.Fingerprint(script), "scripthash", entry.ScriptHash)
	return entry, nil
}

func (s *Service) Remove(label domain.Label) error {
	if err := s.store.RemoveEntry(label); err != nil {
		return err
	}
	s.log.Info("stopped watching", "label", label)
	return nil
}

func (s *Service) List() ([]domain.WatchEntry, error) {
	return s.store.ListEntries()
}

// Sync subscribes every entry and records the current statuses. It returns
// the entries whose status differs from the stored one. Entries the server
// rejects are skipped and reported in the joined error; the others are
// still recorded.
func (s *Service) Sync(ctx context.Context) ([]domain.StatusChange, error) {
	changes, n, err := s.sync(ctx)
	s.metrics.synced(n, len(changes), err)
	return changes, err
}

func (s *Service) sync(ctx context.Context) ([]domain.StatusChange, int, error) {
	if s.session == nil {
		return nil, 0, errors.New("watch: sync needs a session")
	}
	entries, err := s.store.ListEntries()
	if err != nil {
		return nil, 0, err
	}
	if len(entries) == 0 {
		return nil, 0, nil
	}

	// Entries sharing a script share one subscription.
	var (
		reqs   []electrum.Request
		hashes []electrum.ScriptHash
		seen   = make(map[electrum.ScriptHash]bool)
	)
	for _, e := range entries {
		if seen[e.ScriptHash] {
			continue
		}
		script, err := e.ScriptBytes()
		if err != nil {
			return nil, len(entries), fmt.Errorf("watch: entry %s: %w", e.Label, err)
		}
		seen[e.ScriptHash] = true
		reqs = append(reqs, electrum.ScriptHashSubscribe(script))
		hashes = append(hashes, e.ScriptHash)
	}

	resps, err := s.session.Batch(ctx, reqs)
	if err != nil {
		return nil, len(entries), fmt.Errorf("watch sync: %w", err)
	}

	var (
		changes []domain.StatusChange
		errs    []error
	)
	at := s.now()
	for i, resp := range resps {
		switch r := resp.(type) {
		case *electrum.ScriptHashSubscribeResponse:
			c, err := s.store.UpdateStatus(hashes[i], r.Status, at)
			if err != nil {
				return changes, len(entries), err
			}
			changes = append(changes, c...)
		case *electrum.ErrorResponse:
			errs = append(errs, fmt.Errorf("watch: subscribe %s: %w", hashes[i], r))
		default:
			errs = append(errs, fmt.Errorf("watch: subscribe %s: unexpected %T", hashes[i], resp))
		}
	}
	s.log.Debug("synced", "entries", len(entries), "changes", len(changes))
	return changes, len(entries), errors.Join(errs...)
}

// Listen reports status changes of watched scripts until ctx ends. It
// returns ErrNotificationsClosed when the session stops. Call Sync first so
// the server knows what to push.
func (s *Service) Listen(ctx context.Context, fn func(domain.StatusChange)) error {
	if s.session == nil {
		return errors.New("watch: listen needs a session")
	}
	var fnMu sync.Mutex
	report := func(changes []domain.StatusChange) {
		fnMu.Lock()
		defer fnMu.Unlock()
		for _, c := range changes {
			fn(c)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		notes := s.session.Notifications()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case n, ok := <-notes:
				if !ok {
					return ErrNotificationsClosed
				}
				sn, isScript := n.(*electrum.ScriptHashNotification)
				if !isScript {
					continue
				}
				changes, err := s.store.UpdateStatus(sn.ScriptHash, sn.Status, s.now())
				if err != nil {
					return err
				}
				s.metrics.changed(len(changes))
				report(changes)
			}
		}
	})
	if s.opts.ResyncInterval > 0 {
		g.Go(func() error {
			t := time.NewTicker(s.opts.ResyncInterval)
			defer t.Stop()
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-t.C:
					changes, err := s.Sync(gctx)
					if err != nil {
						s.log.Warn("resync failed", "err", err)
						continue
					}
					report(changes)
				}
			}
		})
	}

	err := g.Wait()
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}
