package watch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"electrumsmart/internal/domain"
	"electrumsmart/internal/electrum"
	"electrumsmart/internal/mockserver"
	"electrumsmart/internal/services/session"
	"electrumsmart/internal/services/watch"
	"electrumsmart/internal/store"
	"electrumsmart/internal/transport"
)

type fixture struct {
	srv     *mockserver.Server
	session *session.Service
	store   *store.WatchFileStore
	reg     *prometheus.Registry
	svc     *watch.Service
}

func newFixture(t *testing.T, opts watch.Options) *fixture {
	t.Helper()
	srv := mockserver.New(nil)
	if err := srv.Listen("127.0.0.1:0", nil); err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx)
	}()

	sess := session.New(transport.NewTCP("127.0.0.1", srv.Port()), nil, nil)
	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("session: %v", err)
	}
	t.Cleanup(func() {
		_ = sess.Close()
		cancel()
		<-done
	})

	reg := prometheus.NewRegistry()
	metrics, err := watch.NewMetrics(reg)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	ws := store.NewWatchFileStore(t.TempDir())
	return &fixture{
		srv:     srv,
		session: sess,
		store:   ws,
		reg:     reg,
		svc:     watch.New(ws, sess, nil, metrics, opts),
	}
}

func sampleHistory(t *testing.T, height int64) []electrum.HistoryItem {
	t.Helper()
	txid, err := electrum.ParseTxid("b14edd61d6902890932be0d4386c79ca64a8dea345e9b9c95b2e8a825316cfc0")
	if err != nil {
		t.Fatalf("txid: %v", err)
	}
	return []electrum.HistoryItem{{Height: height, Txid: txid}}
}

func TestAddRejectsEmptyScript(t *testing.T) {
	svc := watch.New(store.NewWatchFileStore(t.TempDir()), nil, nil, nil, watch.Options{})
	if _, err := svc.Add("x", nil); !errors.Is(err, watch.ErrEmptyScript) {
		t.Fatalf("add = %v", err)
	}
	e, err := svc.Add("x", []byte{0x51})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if e.Script != "51" || e.ScriptHash != electrum.NewScriptHash([]byte{0x51}) || e.Status != nil {
		t.Fatalf("entry = %+v", e)
	}
	if _, err := svc.Add("x", []byte{0x52}); !errors.Is(err, store.ErrExists) {
		t.Fatalf("duplicate add = %v", err)
	}
	if _, err := svc.Sync(context.Background()); err == nil {
		t.Fatalf("sync without a session succeeded")
	}
}

func TestSyncRecordsStatuses(t *testing.T) {
	f := newFixture(t, watch.Options{})
	funded, empty := []byte{0x00}, []byte{0x51}
	history := sampleHistory(t, 100)
	f.srv.SetHistory(electrum.NewScriptHash(funded), history)

	for label, script := range map[domain.Label][]byte{"funded": funded, "empty": empty, "funded-too": funded} {
		if _, err := f.svc.Add(label, script); err != nil {
			t.Fatalf("add %s: %v", label, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	changes, err := f.svc.Sync(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("changes = %+v, want the two funded entries", changes)
	}
	want := *mockserver.Status(history)
	for _, c := range changes {
		if c.Previous != nil || c.Entry.Status == nil || *c.Entry.Status != want {
			t.Fatalf("change = %+v", c)
		}
	}

	again, err := f.svc.Sync(ctx)
	if err != nil || len(again) != 0 {
		t.Fatalf("second sync = %v, %v", again, err)
	}

	if n, err := testutil.GatherAndCount(f.reg, "electrum_watch_syncs_total"); err != nil || n != 1 {
		t.Fatalf("sync series = %d, %v; want only outcome=ok", n, err)
	}
}

func TestListenReportsChanges(t *testing.T) {
	f := newFixture(t, watch.Options{})
	script := []byte{0x00}
	if _, err := f.svc.Add("wallet", script); err != nil {
		t.Fatalf("add: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := f.svc.Sync(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}

	got := make(chan domain.StatusChange, 1)
	listenErr := make(chan error, 1)
	lctx, stop := context.WithCancel(ctx)
	go func() {
		listenErr <- f.svc.Listen(lctx, func(c domain.StatusChange) { got <- c })
	}()

	history := sampleHistory(t, 5)
	f.srv.SetHistory(electrum.NewScriptHash(script), history)

	select {
	case c := <-got:
		if c.Entry.Label != "wallet" || c.Previous != nil || *c.Entry.Status != *mockserver.Status(history) {
			t.Fatalf("change = %+v", c)
		}
	case <-ctx.Done():
		t.Fatalf("no change reported")
	}

	stored, _, err := f.store.GetEntry("wallet")
	if err != nil || stored.Status == nil {
		t.Fatalf("stored = %+v, %v", stored, err)
	}

	stop()
	if err := <-listenErr; err != nil {
		t.Fatalf("listen after cancel = %v", err)
	}
}

func TestListenStopsWhenSessionCloses(t *testing.T) {
	f := newFixture(t, watch.Options{})
	done := make(chan error, 1)
	go func() {
		done <- f.svc.Listen(context.Background(), func(domain.StatusChange) {})
	}()

	f.srv.DropConnections()
	select {
	case err := <-done:
		if !errors.Is(err, watch.ErrNotificationsClosed) {
			t.Fatalf("listen = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("listen did not return after the connection dropped")
	}
}

func TestResyncPicksUpMissedChanges(t *testing.T) {
	f := newFixture(t, watch.Options{ResyncInterval: 20 * time.Millisecond})
	script := []byte{0x00}
	if _, err := f.svc.Add("wallet", script); err != nil {
		t.Fatalf("add: %v", err)
	}

	// Never subscribed, so only the periodic resync can notice the history.
	f.srv.SetHistory(electrum.NewScriptHash(script), sampleHistory(t, 9))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got := make(chan domain.StatusChange, 4)
	go func() { _ = f.svc.Listen(ctx, func(c domain.StatusChange) { got <- c }) }()

	select {
	case c := <-got:
		if c.Entry.Label != "wallet" {
			t.Fatalf("change = %+v", c)
		}
	case <-ctx.Done():
		t.Fatalf("resync never reported the change")
	}

	if n, err := testutil.GatherAndCount(f.reg, "electrum_watch_syncs_total"); err != nil || n == 0 {
		t.Fatalf("no sync recorded: %v", err)
	}
}
