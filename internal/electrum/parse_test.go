package electrum_test

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"electrumsmart/internal/electrum"
)

func parseSingle(t *testing.T, raw string, req electrum.Request) electrum.Response {
	t.Helper()
	got, err := electrum.ParseResponses(raw, electrum.NewIndex(req))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d responses, want 1", len(got))
	}
	return got[0]
}

func ptr[T any](v T) *T { return &v }

func TestParseHeadersSubscribe(t *testing.T) {
	raw := `{"id":3,"jsonrpc":"2.0","result":{"height":119367,"hex":"00000020835fdbdeeadd23463fad98b4e21aaa8519afde89eecd0eb224001317421cbb5f5e636df02303e51280b586bc596ee9326bc849bbb5993e121a8cab7e6b60e8ab593fe166ffff7f2000000000"}}`
	got := parseSingle(t, raw, electrum.SubscribeHeaders().WithID(3))
	want := &electrum.HeadersSubscribeResponse{
		Envelope: electrum.Envelope{ID: 3},
		Header: electrum.HeaderInfo{
			Height: 119367,
			Hex:    "00000020835fdbdeeadd23463fad98b4e21aaa8519afde89eecd0eb224001317421cbb5f5e636df02303e51280b586bc596ee9326bc849bbb5993e121a8cab7e6b60e8ab593fe166ffff7f2000000000",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("headers subscribe (-want +got):\n%s", diff)
	}
}

func TestParseHeader(t *testing.T) {
	raw := `{"id":0,"jsonrpc":"2.0","result":"000000206e59d4b0d8d5b9daa4d3ad3093975b0f2a18a6909533350cbfb4b7a04adc6f5f380884ecf7425e488e7f2b249de516e839a5b2d48bcc9b65d45387ce5081c1e8563fe166ffff7f2001000000"}`
	got, ok := parseSingle(t, raw, electrum.Header(1)).(*electrum.HeaderResponse)
	if !ok {
		t.Fatalf("not a header response")
	}
	if len(got.Header) != 160 {
		t.Fatalf("header hex length = %d", len(got.Header))
	}
}

func TestParseHeaders(t *testing.T) {
	raw := `{"id":0,"jsonrpc":"2.0","result":{"count":2,"hex":"000000206e59d4b0d8d5b9daa4d3ad3093975b0f2a18a6909533350cbfb4b7a04adc6f5f380884ecf7425e488e7f2b249de516e839a5b2d48bcc9b65d45387ce5081c1e8563fe166ffff7f200100000000000020e4a9efb184a77e3b3d75c374823a808f437c5d04fc322f6585c1682ea859a379874002727ca2397cbf8b45bffbd0463c1a8e4f52c23af48b3d8e30c0c4556bd1563fe166ffff7f2001000000","max":2016}}`
	got, ok := parseSingle(t, raw, electrum.Headers(1, 2)).(*electrum.HeadersResponse)
	if !ok {
		t.Fatalf("not a headers response")
	}
	if got.Headers.Count != 2 || got.Headers.Max != 2016 || len(got.Headers.Hex) != 320 {
		t.Fatalf("headers = %+v", got.Headers)
	}
}

func TestParseVersion(t *testing.T) {
	single := parseSingle(t, `{"id":0,"jsonrpc":"2.0","result":["electrs/0.10.5","1.4"]}`, electrum.Version("smart", "1.4"))
	want := &electrum.VersionResponse{ServerSoftware: "electrs/0.10.5", Protocol: electrum.SingleVersion("1.4")}
	if diff := cmp.Diff(want, single); diff != "" {
		t.Fatalf("single version (-want +got):\n%s", diff)
	}

	ranged := parseSingle(t, `{"id":0,"jsonrpc":"2.0","result":["electrs/0.10.5",["1.1","1.4"]]}`, electrum.VersionRange("smart", "1.1", "1.4"))
	want = &electrum.VersionResponse{ServerSoftware: "electrs/0.10.5", Protocol: electrum.ProtocolRange("1.1", "1.4")}
	if diff := cmp.Diff(want, ranged); diff != "" {
		t.Fatalf("range version (-want +got):\n%s", diff)
	}
}

func TestParseScriptHashSubscribeBatch(t *testing.T) {
	var b strings.Builder
	b.WriteString(`[{"id":14,"jsonrpc":"2.0","result":"1c8606707de065bef7474d719b76fb41cdff0090fffb78ca6b640c66ba9a9542"}`)
	index := electrum.NewIndex(electrum.ScriptHashSubscribe([]byte{0x00}).WithID(14))
	for id := 15; id <= 34; id++ {
		b.WriteString(`,{"id":`)
		b.WriteString(strconv.Itoa(id))
		b.WriteString(`,"jsonrpc":"2.0","result":null}`)
		index.Add(electrum.ScriptHashSubscribe([]byte{byte(id)}).WithID(uint64(id)))
	}
	b.WriteString("]")

	got, err := electrum.ParseResponses(b.String(), index)
	if err != nil {
		t.Fatalf("parse batch: %v", err)
	}
	if len(got) != 21 {
		t.Fatalf("batch len = %d, want 21", len(got))
	}
	first := got[0].(*electrum.ScriptHashSubscribeResponse)
	if first.ID != 14 || first.Status == nil || *first.Status != "1c8606707de065bef7474d719b76fb41cdff0090fffb78ca6b640c66ba9a9542" {
		t.Fatalf("first = %+v", first)
	}
	fifth := got[5].(*electrum.ScriptHashSubscribeResponse)
	if fifth.ID != 19 || fifth.Status != nil {
		t.Fatalf("fifth = %+v", fifth)
	}
}

func TestParseErrorResponse(t *testing.T) {
	raw := `{"error":{"code":1,"message":"unsupported request Single(\"0.4\") by smart"},"id":0,"jsonrpc":"2.0"}`
	got, err := electrum.ParseResponses(raw, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	e, ok := got[0].(*electrum.ErrorResponse)
	if !ok {
		t.Fatalf("got %T, want *ErrorResponse", got[0])
	}
	if e.ID != 0 || e.Err.Code != 1 || e.Err.Message != `unsupported request Single("0.4") by smart` {
		t.Fatalf("error = %+v", e)
	}

	nullID := `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"parse error"}}`
	got, err = electrum.ParseResponses(nullID, nil)
	if err != nil {
		t.Fatalf("null id: %v", err)
	}
	if e := got[0].(*electrum.ErrorResponse); e.ID != 0 || e.Err.Code != -32700 {
		t.Fatalf("null id error = %+v", e)
	}
}

func TestParseScriptHashResults(t *testing.T) {
	script := []byte{0x00}

	unsub := parseSingle(t, `{"id":0,"jsonrpc":"2.0","result":false}`, electrum.ScriptHashUnsubscribe(script))
	if r := unsub.(*electrum.ScriptHashUnsubscribeResponse); r.Removed {
		t.Fatalf("unsubscribe = %+v", r)
	}

	sub := parseSingle(t, `{"id":1,"jsonrpc":"2.0","result":null}`, electrum.ScriptHashSubscribe(script).WithID(1))
	if r := sub.(*electrum.ScriptHashSubscribeResponse); r.ID != 1 || r.Status != nil {
		t.Fatalf("subscribe null = %+v", r)
	}
	sub = parseSingle(t, `{"id":1,"jsonrpc":"2.0","result":"some_garbage_string"}`, electrum.ScriptHashSubscribe(script).WithID(1))
	if r := sub.(*electrum.ScriptHashSubscribeResponse); r.Status == nil || *r.Status != "some_garbage_string" {
		t.Fatalf("subscribe status = %+v", r)
	}

	txid := mustTxid(t, "b14edd61d6902890932be0d4386c79ca64a8dea345e9b9c95b2e8a825316cfc0")

	unspent := parseSingle(t, `{"jsonrpc": "2.0", "result": [{"tx_hash": "b14edd61d6902890932be0d4386c79ca64a8dea345e9b9c95b2e8a825316cfc0", "tx_pos": 1, "height": 861250, "value": 566888}], "id": 0}`, electrum.ScriptHashListUnspent(script))
	wantUnspent := &electrum.ListUnspentResponse{Unspent: []electrum.Utxo{{Height: 861250, Txid: txid, Pos: 1, Value: 566888}}}
	if diff := cmp.Diff(wantUnspent, unspent); diff != "" {
		t.Fatalf("listunspent (-want +got):\n%s", diff)
	}

	balance := parseSingle(t, `{"jsonrpc": "2.0", "result": {"confirmed": 566888, "unconfirmed": 0}, "id": 0}`, electrum.ScriptHashGetBalance(script))
	if diff := cmp.Diff(&electrum.BalanceResponse{Balance: electrum.Balance{Confirmed: 566888}}, balance); diff != "" {
		t.Fatalf("balance (-want +got):\n%s", diff)
	}

	history := parseSingle(t, `{"jsonrpc": "2.0", "result": [{"tx_hash": "b14edd61d6902890932be0d4386c79ca64a8dea345e9b9c95b2e8a825316cfc0", "height": 861250}], "id": 0}`, electrum.ScriptHashGetHistory(script))
	if diff := cmp.Diff(&electrum.HistoryResponse{History: []electrum.HistoryItem{{Height: 861250, Txid: txid}}}, history); diff != "" {
		t.Fatalf("history (-want +got):\n%s", diff)
	}

	mempool := parseSingle(t, `{"jsonrpc": "2.0", "result": [{"tx_hash": "b14edd61d6902890932be0d4386c79ca64a8dea345e9b9c95b2e8a825316cfc0", "height": -1, "fee": 250}], "id": 0}`, electrum.ScriptHashGetMempool(script))
	wantMempool := &electrum.MempoolResponse{Mempool: []electrum.HistoryItem{{Height: -1, Txid: txid, Fee: ptr(uint64(250))}}}
	if diff := cmp.Diff(wantMempool, mempool); diff != "" {
		t.Fatalf("mempool (-want +got):\n%s", diff)
	}
}

func TestParseScriptHashNotification(t *testing.T) {
	raw := ` {"jsonrpc":"2.0","method":"blockchain.scripthash.subscribe","params":["95ebd95e7c0763b785d12b1d20d9f548fa5bb809f120afb0dd11276fa1ce8352","9bf1d98ff899eafd048290199144aed63e3d7ccbc8925e8351a4c1e8af2137f4"]}`
	n, err := electrum.ParseScriptHashNotification(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if n.Method != electrum.MethodScriptHashSubscribe {
		t.Fatalf("method = %s", n.Method)
	}
	if n.ScriptHash.String() != "95ebd95e7c0763b785d12b1d20d9f548fa5bb809f120afb0dd11276fa1ce8352" {
		t.Fatalf("scripthash = %s", n.ScriptHash)
	}
	if n.Status == nil || *n.Status != "9bf1d98ff899eafd048290199144aed63e3d7ccbc8925e8351a4c1e8af2137f4" {
		t.Fatalf("status = %v", n.Status)
	}

	cleared := `{"jsonrpc":"2.0","method":"blockchain.scripthash.subscribe","params":["95ebd95e7c0763b785d12b1d20d9f548fa5bb809f120afb0dd11276fa1ce8352",null]}`
	if n, err := electrum.ParseScriptHashNotification(cleared); err != nil || n.Status != nil {
		t.Fatalf("cleared status: %v %+v", err, n)
	}
}

func TestParseHeaderNotification(t *testing.T) {
	raw := `{"jsonrpc":"2.0","method":"blockchain.headers.subscribe","params":[{"height":520481,"hex":"00"}]}`
	got, err := electrum.ParseResponses(raw, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := &electrum.HeaderNotification{
		Method:  electrum.MethodHeadersSubscribe,
		Headers: []electrum.HeaderInfo{{Height: 520481, Hex: "00"}},
	}
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Fatalf("notification (-want +got):\n%s", diff)
	}
}

func TestParseFeatures(t *testing.T) {
	raw := `{"jsonrpc": "2.0", "result": {"hosts": {}, "pruning": null, "server_version": "ElectrumX 1.15.0", "protocol_min": "1.4", "protocol_max": "1.4.2", "genesis_hash": "000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f", "hash_function": "sha256", "services": []}, "id": 0}`
	got := parseSingle(t, raw, electrum.Features()).(*electrum.FeaturesResponse)
	f := got.Features
	if f.Pruning != nil || f.ServerVersion != "ElectrumX 1.15.0" || f.ProtocolMin != "1.4" || f.ProtocolMax != "1.4.2" || f.HashFunction != "sha256" {
		t.Fatalf("features = %+v", f)
	}
	if f.Services == nil || len(f.Services) != 0 {
		t.Fatalf("services = %#v, want empty non-nil", f.Services)
	}
	if f.Hosts.Single == nil || f.Hosts.Single.TCPPort != nil {
		t.Fatalf("empty hosts = %+v", f.Hosts)
	}

	raw = `{
	  "id": 0,
	  "jsonrpc": "2.0",
	  "result": {
	    "genesis_hash": "abc",
	    "hash_function": "sha256",
	    "hosts": {"tcp_port": 46771},
	    "protocol_max": "1.4",
	    "protocol_min": "1.4",
	    "pruning": null,
	    "server_version": "toto"
	  }
	}`
	got = parseSingle(t, raw, electrum.Features()).(*electrum.FeaturesResponse)
	want := &electrum.FeaturesResponse{Features: electrum.FeaturesResult{
		GenesisHash:   "abc",
		Hosts:         electrum.Hosts{Single: &electrum.Host{TCPPort: ptr(electrum.Port("46771"))}},
		ProtocolMax:   "1.4",
		ProtocolMin:   "1.4",
		ServerVersion: "toto",
		HashFunction:  "sha256",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("features (-want +got):\n%s", diff)
	}

	raw = `{"id":0,"jsonrpc":"2.0","result":{"genesis_hash":"abc","hash_function":"sha256","hosts":{"electrum.example.org":{"ssl_port":"50002","tcp_port":null}},"protocol_max":"1.4","protocol_min":"1.4","pruning":1000,"server_version":"toto"}}`
	got = parseSingle(t, raw, electrum.Features()).(*electrum.FeaturesResponse)
	host, ok := got.Features.Hosts.ByName["electrum.example.org"]
	if !ok || host.SSLPort == nil || *host.SSLPort != "50002" || host.TCPPort != nil {
		t.Fatalf("named hosts = %+v", got.Features.Hosts)
	}
	if got.Features.Pruning == nil || *got.Features.Pruning != 1000 {
		t.Fatalf("pruning = %v", got.Features.Pruning)
	}
}

func TestParseServerResults(t *testing.T) {
	donation := parseSingle(t, `{"jsonrpc": "2.0", "result": "make_me_rich", "id": 0}`, electrum.Donation())
	if d := donation.(*electrum.DonationResponse); d.Address == nil || *d.Address != "make_me_rich" {
		t.Fatalf("donation = %+v", d)
	}

	fee := parseSingle(t, `{"jsonrpc": "2.0", "result": 3.006e-05, "id": 0}`, electrum.EstimateFee(6))
	if f := fee.(*electrum.EstimateFeeResponse).Fee; !f.Known || f.Rate != 0.00003006 {
		t.Fatalf("estimate fee = %+v", f)
	}
	unknown := parseSingle(t, `{"jsonrpc": "2.0", "result": -1, "id": 0}`, electrum.EstimateFee(6))
	if f := unknown.(*electrum.EstimateFeeResponse).Fee; f.Known || f.String() != "unknown" {
		t.Fatalf("unknown fee = %+v", f)
	}

	relay := parseSingle(t, `{"jsonrpc": "2.0", "result": 1e-05, "id": 0}`, electrum.RelayFee())
	if f := relay.(*electrum.RelayFeeResponse).Fee; !f.Known || f.Rate != 0.00001 {
		t.Fatalf("relay fee = %+v", f)
	}

	histogram := parseSingle(t, `{"jsonrpc": "2.0", "result": [[5, 103673], [3, 238053], [2, 12058673], [1, 34188435]], "id": 0}`, electrum.FeeHistogram())
	want := &electrum.FeeHistogramResponse{Histogram: []electrum.FeeBucket{
		{FeeRate: 5, VSize: 103673},
		{FeeRate: 3, VSize: 238053},
		{FeeRate: 2, VSize: 12058673},
		{FeeRate: 1, VSize: 34188435},
	}}
	if diff := cmp.Diff(want, histogram); diff != "" {
		t.Fatalf("histogram (-want +got):\n%s", diff)
	}

	peers := parseSingle(t, `{"jsonrpc":"2.0","id":0,"result":[["107.150.45.210","e.anonyhost.org",["v1.0","p10000","t","s995"]]]}`, electrum.SubscribePeers())
	wantPeers := &electrum.PeersResponse{Peers: []electrum.Peer{{IP: "107.150.45.210", Host: "e.anonyhost.org", Features: []string{"v1.0", "p10000", "t", "s995"}}}}
	if diff := cmp.Diff(wantPeers, peers); diff != "" {
		t.Fatalf("peers (-want +got):\n%s", diff)
	}

	txid := mustTxid(t, sampleTxid)
	broadcast := parseSingle(t, `{"jsonrpc":"2.0","id":0,"result":"`+sampleTxid+`"}`, electrum.TransactionBroadcast("00"))
	if b := broadcast.(*electrum.BroadcastResponse); b.Txid != txid {
		t.Fatalf("broadcast = %s", b.Txid)
	}
}

func TestParseTransactionResults(t *testing.T) {
	txid := mustTxid(t, sampleTxid)

	merkle := parseSingle(t, `{"jsonrpc": "2.0", "result": {"block_height": 200000, "merkle": ["ffa0267c8f2af736858894d6f3e5081a05e2ec16dc98f78a80f376ce35077491", "d0039b6be844e631698f57fa02bbfbfb5e8b680f3ebb17646631e6ec9f91f6e6"], "pos": 2}, "id": 0}`, electrum.TransactionGetMerkle(txid, 200000))
	wantMerkle := &electrum.MerkleResponse{Proof: electrum.MerkleProof{
		Merkle: []string{
			"ffa0267c8f2af736858894d6f3e5081a05e2ec16dc98f78a80f376ce35077491",
			"d0039b6be844e631698f57fa02bbfbfb5e8b680f3ebb17646631e6ec9f91f6e6",
		},
		BlockHeight: 200000,
		Pos:         2,
	}}
	if diff := cmp.Diff(wantMerkle, merkle); diff != "" {
		t.Fatalf("merkle (-want +got):\n%s", diff)
	}

	simple := parseSingle(t, `{"jsonrpc": "2.0", "result": "ffa0267c8f2af736858894d6f3e5081a05e2ec16dc98f78a80f376ce35077491", "id": 0}`, electrum.TransactionFromPosition(200000, 2, false))
	wantSimple := &electrum.TxFromPosResponse{Result: electrum.TxFromPos{Txid: mustTxid(t, "ffa0267c8f2af736858894d6f3e5081a05e2ec16dc98f78a80f376ce35077491")}}
	if diff := cmp.Diff(wantSimple, simple); diff != "" {
		t.Fatalf("tx from pos (-want +got):\n%s", diff)
	}

	withMerkle := parseSingle(t, `{"jsonrpc": "2.0", "result": {"tx_hash": "9cc064bbce74a2c56ce12b0b59fc7267a2618a35e1d8c66f642efd6d033a9681", "merkle": ["e48b08df0afa01a7339335fb6b6964100d11985765cbc6afcde990fd65856a9b"]}, "id": 1}`, electrum.TransactionFromPosition(1, 0, true).WithID(1))
	wantWithMerkle := &electrum.TxFromPosResponse{
		Envelope: electrum.Envelope{ID: 1},
		Result: electrum.TxFromPos{
			Txid:   mustTxid(t, "9cc064bbce74a2c56ce12b0b59fc7267a2618a35e1d8c66f642efd6d033a9681"),
			Merkle: []string{"e48b08df0afa01a7339335fb6b6964100d11985765cbc6afcde990fd65856a9b"},
		},
	}
	if diff := cmp.Diff(wantWithMerkle, withMerkle); diff != "" {
		t.Fatalf("tx from pos merkle (-want +got):\n%s", diff)
	}

	raw := parseSingle(t, `{"jsonrpc":"2.0","id":0,"result":"0200"}`, electrum.TransactionGet(txid))
	if r := raw.(*electrum.TransactionGetResponse); r.Tx.Raw != "0200" || r.Tx.Verbose != nil {
		t.Fatalf("raw tx = %+v", r.Tx)
	}
	verbose := parseSingle(t, `{"jsonrpc":"2.0","id":0,"result":{"hex":"0200","txid":"`+sampleTxid+`","locktime":0,"size":2,"version":2,"confirmations":3}}`, electrum.TransactionGetVerbose(txid))
	if r := verbose.(*electrum.TransactionGetResponse); r.Tx.Verbose == nil || r.Tx.Verbose.Txid != txid || r.Tx.Raw != "0200" || r.Tx.Verbose.Confirmations != 3 {
		t.Fatalf("verbose tx = %+v", r.Tx)
	}
}

func TestParseFailures(t *testing.T) {
	index := electrum.NewIndex(electrum.Ping().WithID(1), electrum.Banner().WithID(2))

	var rawErr *electrum.RawResponseParsingError
	if _, err := electrum.ParseResponses("not json", index); !errors.As(err, &rawErr) || rawErr.Raw != "not json" {
		t.Fatalf("garbage err = %v", err)
	}
	if _, err := electrum.ParseResponses(`{"jsonrpc":"2.0","result":null}`, index); !errors.As(err, &rawErr) {
		t.Fatalf("missing id err = %v", err)
	}

	var idErr *electrum.ResponseIDError
	if _, err := electrum.ParseResponses(`{"jsonrpc":"2.0","id":99,"result":null}`, index); !errors.As(err, &idErr) || idErr.ID != 99 {
		t.Fatalf("unknown id err = %v", err)
	}

	var parseErr *electrum.ResponseParsingError
	if _, err := electrum.ParseResponses(`{"jsonrpc":"2.0","id":2,"result":42}`, index); !errors.As(err, &parseErr) || parseErr.Method != electrum.MethodBanner {
		t.Fatalf("wrong shape err = %v", err)
	}

	if _, err := electrum.ParseResponses(`{"jsonrpc":"2.0","method":"server.banner","params":[]}`, index); !errors.Is(err, electrum.ErrWrongMethod) {
		t.Fatalf("wrong notification err = %v", err)
	}

	batch := `[{"jsonrpc":"2.0","id":1,"result":null},{"jsonrpc":"2.0","id":77,"result":null}]`
	_, err := electrum.ParseResponses(batch, index)
	if !errors.Is(err, electrum.ErrBatchParsing) || !errors.As(err, &idErr) {
		t.Fatalf("batch err = %v", err)
	}
}
