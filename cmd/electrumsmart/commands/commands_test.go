package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"electrumsmart/internal/electrum"
	"electrumsmart/internal/mockserver"
)

const (
	genesisHeader = "0100000000000000000000000000000000000000000000000000000000000000000000003ba3edfd7a7b12b27ac72c3e67768f617fc81bc3888a51323a9fb8aa4b1e5e4a29ab5f49ffff001d1dac2b7c"
	genesisTxid   = "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"
)

type harness struct {
	t    *testing.T
	srv  *mockserver.Server
	home string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := mockserver.New(nil)
	if err := srv.Listen("127.0.0.1:0", nil); err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return &harness{t: t, srv: srv, home: t.TempDir()}
}

// run executes the CLI against the mock server and returns stdout.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	base := []string{
		"--home", h.home,
		"--host", "127.0.0.1",
		"--port", strconv.Itoa(int(h.srv.Port())),
		"--tls=false",
		"--retries", "0",
		"--log-level", "error",
	}
	var stdout, stderr bytes.Buffer
	err := run(append(base, args...), &stdout, &stderr)
	return stdout.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("%v: %v", args, err)
	}
	return out
}

func TestPingAndBanner(t *testing.T) {
	h := newHarness(t)
	h.srv.SetBanner("hi there")

	if out := h.mustRun("ping"); strings.TrimSpace(out) != "pong" {
		t.Fatalf("ping = %q", out)
	}
	if out := h.mustRun("banner"); !strings.Contains(out, "hi there") {
		t.Fatalf("banner = %q", out)
	}
	out := h.mustRun("version", "-o", "json")
	var v struct {
		Protocol string `json:"protocol"`
	}
	if err := json.Unmarshal([]byte(out), &v); err != nil || v.Protocol != mockserver.ProtocolVersion {
		t.Fatalf("version = %q (%v)", out, err)
	}
}

func TestBalanceByScript(t *testing.T) {
	h := newHarness(t)
	script := []byte{0x00, 0x14}
	script = append(script, bytes.Repeat([]byte{0x01}, 20)...)
	h.srv.SetBalance(electrum.NewScriptHash(script), electrum.Balance{Confirmed: 1500, Unconfirmed: -20})

	out := h.mustRun("balance", "--script", "0014"+strings.Repeat("01", 20), "-o", "json")
	var bal electrum.Balance
	if err := json.Unmarshal([]byte(out), &bal); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if bal.Confirmed != 1500 || bal.Unconfirmed != -20 {
		t.Fatalf("balance = %+v", bal)
	}

	if _, err := h.run("balance"); err == nil {
		t.Fatalf("balance without a script succeeded")
	}
}

func TestHeaderAndMerkleVerify(t *testing.T) {
	h := newHarness(t)
	h.srv.AddHeader(0, genesisHeader)
	txid, err := electrum.ParseTxid(genesisTxid)
	if err != nil {
		t.Fatalf("txid: %v", err)
	}
	h.srv.SetBlockTxids(0, []electrum.Txid{txid})

	out := h.mustRun("header", "0")
	if !strings.Contains(out, "000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f") {
		t.Fatalf("header = %s", out)
	}
	out = h.mustRun("merkle", genesisTxid, "0", "--verify", "-o", "json")
	if !strings.Contains(out, `"verified": true`) {
		t.Fatalf("merkle = %s", out)
	}
}

func TestRawCall(t *testing.T) {
	h := newHarness(t)
	h.srv.AddHeader(0, genesisHeader)

	out := h.mustRun("raw", "blockchain.block.header", "0", "-o", "json")
	if !strings.Contains(out, genesisHeader) {
		t.Fatalf("raw = %s", out)
	}
	if _, err := h.run("raw", "server.nope"); err == nil {
		t.Fatalf("unknown method accepted")
	}
}

func TestRawParam(t *testing.T) {
	if got, ok := rawParam("12").(json.Number); !ok || got != "12" {
		t.Fatalf("number = %#v", rawParam("12"))
	}
	if got := rawParam("true"); got != true {
		t.Fatalf("bool = %#v", got)
	}
	if got := rawParam("abc"); got != "abc" {
		t.Fatalf("bare word = %#v", got)
	}
}

func TestWatchFlow(t *testing.T) {
	h := newHarness(t)
	script := []byte{0x00, 0x14}
	script = append(script, bytes.Repeat([]byte{0x02}, 20)...)
	sh := electrum.NewScriptHash(script)

	h.mustRun("watch", "add", "savings", "--script", "0014"+strings.Repeat("02", 20))
	if out := h.mustRun("watch", "list"); !strings.Contains(out, "savings") {
		t.Fatalf("list = %s", out)
	}

	txid, err := electrum.ParseTxid(genesisTxid)
	if err != nil {
		t.Fatalf("txid: %v", err)
	}
	h.srv.SetHistory(sh, []electrum.HistoryItem{{Height: 1, Txid: txid}})
	want := mockserver.Status([]electrum.HistoryItem{{Height: 1, Txid: txid}})

	if out := h.mustRun("watch", "sync"); !strings.Contains(out, *want) {
		t.Fatalf("sync = %s", out)
	}
	// A second sync has nothing new to report.
	if out := h.mustRun("watch", "sync", "-o", "json"); strings.TrimSpace(out) != "null" && strings.TrimSpace(out) != "[]" {
		t.Fatalf("second sync = %s", out)
	}

	h.mustRun("watch", "remove", "savings")
	if _, err := h.run("watch", "remove", "savings"); err == nil {
		t.Fatalf("removing twice succeeded")
	}
}

func TestConfigInitAndShow(t *testing.T) {
	h := newHarness(t)
	h.mustRun("config", "init")
	if _, err := os.Stat(filepath.Join(h.home, "config.yaml")); err != nil {
		t.Fatalf("config file: %v", err)
	}
	if _, err := h.run("config", "init"); err == nil {
		t.Fatalf("second init without --force succeeded")
	}
	h.mustRun("config", "init", "--force")

	out := h.mustRun("config", "show", "-o", "json")
	var view map[string]string
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if view["server"] != "127.0.0.1:"+strconv.Itoa(int(h.srv.Port())) || view["tls"] != "false" {
		t.Fatalf("view = %v", view)
	}
}

func TestUnknownOutputFormat(t *testing.T) {
	h := newHarness(t)
	if _, err := h.run("ping", "-o", "xml"); err == nil {
		t.Fatalf("xml output accepted")
	}
}

func TestWatchAddByPubkey(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("watch", "add", "key", "--pubkey",
		"0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798", "-o", "json")
	var entry struct {
		Script string `json:"script"`
	}
	if err := json.Unmarshal([]byte(out), &entry); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if entry.Script != "0014751e76e8199196d454941c45d1b3a323f1433bd6" {
		t.Fatalf("script = %s", entry.Script)
	}
	if _, err := h.run("watch", "add", "bad", "--pubkey", "02ab"); err == nil {
		t.Fatalf("short pubkey accepted")
	}
}
