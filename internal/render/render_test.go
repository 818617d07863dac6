package render_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"electrumsmart/internal/electrum"
	"electrumsmart/internal/render"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]render.Format{
		"text": render.FormatText,
		"JSON": render.FormatJSON,
		"yml":  render.FormatYAML,
	} {
		got, err := render.ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := render.ParseFormat("xml"); !errors.Is(err, render.ErrUnknownFormat) {
		t.Fatalf("xml = %v", err)
	}
}

func TestYAMLKeepsWireForm(t *testing.T) {
	txid, err := electrum.ParseTxid("b14edd61d6902890932be0d4386c79ca64a8dea345e9b9c95b2e8a825316cfc0")
	if err != nil {
		t.Fatalf("txid: %v", err)
	}
	var buf bytes.Buffer
	item := electrum.HistoryItem{Height: 5, Txid: txid}
	if err := render.New(&buf, render.FormatYAML).Print(item, nil); err != nil {
		t.Fatalf("print: %v", err)
	}
	if !strings.Contains(buf.String(), "tx_hash: b14edd61") {
		t.Fatalf("yaml = %s", buf.String())
	}
}

func TestJSONAndText(t *testing.T) {
	var buf bytes.Buffer
	fee := electrum.Fee{}
	if err := render.New(&buf, render.FormatJSON).Print(fee, nil); err != nil {
		t.Fatalf("print: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "-1" {
		t.Fatalf("json = %q", buf.String())
	}

	buf.Reset()
	p := render.New(&buf, render.FormatText)
	err := p.Print(fee, func(p *render.Printer) {
		p.KV(render.Pair("fee", fee), render.Pair("status", render.Optional(nil)))
		p.Table([]string{"a", "b"}, [][]string{{"1", "2"}})
		p.Table([]string{"a"}, nil)
	})
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"fee:", "unknown", "none", "(none)", "1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("text output missing %q:\n%s", want, out)
		}
	}
}
