package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"electrumsmart/internal/domain"
	"electrumsmart/internal/electrum"
	"electrumsmart/internal/store"
)

func entry(label string, script []byte) domain.WatchEntry {
	return domain.WatchEntry{
		Label:      domain.Label(label),
		Script:     "00",
		ScriptHash: electrum.NewScriptHash(script),
	}
}

func TestWatch_AddListRemove(t *testing.T) {
	home := t.TempDir()
	var ws domain.WatchStore = store.NewWatchFileStore(home)

	for _, l := range []string{"savings", "cold", "hot"} {
		if err := ws.AddEntry(entry(l, []byte(l))); err != nil {
			t.Fatalf("add %s: %v", l, err)
		}
	}
	if err := ws.AddEntry(entry("hot", []byte{1})); !errors.Is(err, store.ErrExists) {
		t.Fatalf("duplicate add = %v, want ErrExists", err)
	}
	if err := ws.AddEntry(entry("", []byte{1})); !errors.Is(err, store.ErrNoLabel) {
		t.Fatalf("empty label = %v", err)
	}

	list, err := ws.ListEntries()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var labels []domain.Label
	for _, e := range list {
		labels = append(labels, e.Label)
	}
	if diff := cmp.Diff([]domain.Label{"cold", "hot", "savings"}, labels); diff != "" {
		t.Fatalf("labels (-want +got):\n%s", diff)
	}

	if err := ws.RemoveEntry("hot"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := ws.RemoveEntry("hot"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second remove = %v, want ErrNotFound", err)
	}
	if _, ok, err := ws.GetEntry("hot"); ok || err != nil {
		t.Fatalf("get removed = %v, %v", ok, err)
	}
}

func TestWatch_PersistsAcrossInstances(t *testing.T) {
	home := t.TempDir()
	if err := store.NewWatchFileStore(home).AddEntry(entry("a", []byte{1})); err != nil {
		t.Fatalf("add: %v", err)
	}

	got, ok, err := store.NewWatchFileStore(home).GetEntry("a")
	if err != nil || !ok {
		t.Fatalf("get = %v, %v", ok, err)
	}
	if got.ScriptHash != electrum.NewScriptHash([]byte{1}) {
		t.Fatalf("scripthash = %s", got.ScriptHash)
	}

	info, err := os.Stat(filepath.Join(home, store.WatchFilename))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v", info.Mode().Perm())
	}
	leftovers, _ := filepath.Glob(filepath.Join(home, "*.tmp-*"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestWatch_UpdateStatus(t *testing.T) {
	ws := store.NewWatchFileStore(t.TempDir())
	script := []byte{0x00}
	for _, l := range []string{"b", "a"} {
		if err := ws.AddEntry(entry(l, script)); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if err := ws.AddEntry(entry("other", []byte{0x51})); err != nil {
		t.Fatalf("add: %v", err)
	}

	sh := electrum.NewScriptHash(script)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	// No history yet: nothing changes.
	if changes, err := ws.UpdateStatus(sh, nil, at); err != nil || len(changes) != 0 {
		t.Fatalf("nil status changes = %v, %v", changes, err)
	}

	status := "aa"
	changes, err := ws.UpdateStatus(sh, &status, at)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(changes) != 2 || changes[0].Entry.Label != "a" || changes[1].Entry.Label != "b" {
		t.Fatalf("changes = %+v", changes)
	}
	if changes[0].Previous != nil || *changes[0].Entry.Status != "aa" || !changes[0].Entry.UpdatedAt.Equal(at) {
		t.Fatalf("change = %+v", changes[0])
	}

	// Same status again is not a change.
	if again, err := ws.UpdateStatus(sh, &status, at.Add(time.Minute)); err != nil || len(again) != 0 {
		t.Fatalf("repeat = %v, %v", again, err)
	}

	other, _, _ := ws.GetEntry("other")
	if other.Status != nil {
		t.Fatalf("unrelated entry touched: %+v", other)
	}
}

func TestWatch_CorruptFile(t *testing.T) {
	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, store.WatchFilename), []byte("{"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := store.NewWatchFileStore(home).ListEntries(); err == nil {
		t.Fatal("expected error for corrupt watch file")
	}
}
