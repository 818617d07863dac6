package electrum

import (
	"encoding/json"
	"fmt"
)

// Method is an Electrum RPC method name as it appears on the wire.
type Method string

const (
	MethodBanner                Method = "server.banner"
	MethodBlockHeader           Method = "blockchain.block.header"
	MethodBlockHeaders          Method = "blockchain.block.headers"
	MethodTransactionBroadcast  Method = "blockchain.transaction.broadcast"
	MethodDonation              Method = "server.donation_address"
	MethodEstimateFee           Method = "blockchain.estimatefee"
	MethodFeatures              Method = "server.features"
	MethodHeadersSubscribe      Method = "blockchain.headers.subscribe"
	MethodFeeHistogram          Method = "mempool.get_fee_histogram"
	MethodListPeers             Method = "server.peers.subscribe"
	MethodPing                  Method = "server.ping"
	MethodRelayFee              Method = "blockchain.relayfee"
	MethodScriptHashGetBalance  Method = "blockchain.scripthash.get_balance"
	MethodScriptHashGetHistory  Method = "blockchain.scripthash.get_history"
	MethodScriptHashGetMempool  Method = "blockchain.scripthash.get_mempool"
	MethodScriptHashListUnspent Method = "blockchain.scripthash.listunspent"
	MethodScriptHashSubscribe   Method = "blockchain.scripthash.subscribe"
	MethodScriptHashUnsubscribe Method = "blockchain.scripthash.unsubscribe"
	MethodTransactionGet        Method = "blockchain.transaction.get"
	MethodTransactionGetMerkle  Method = "blockchain.transaction.get_merkle"
	MethodTransactionFromPos    Method = "blockchain.transaction.id_from_pos"
	MethodVersion               Method = "server.version"
)

// Methods lists every method this package can build and parse.
var Methods = []Method{
	MethodBanner,
	MethodBlockHeader,
	MethodBlockHeaders,
	MethodTransactionBroadcast,
	MethodDonation,
	MethodEstimateFee,
	MethodFeatures,
	MethodHeadersSubscribe,
	MethodFeeHistogram,
	MethodListPeers,
	MethodPing,
	MethodRelayFee,
	MethodScriptHashGetBalance,
	MethodScriptHashGetHistory,
	MethodScriptHashGetMempool,
	MethodScriptHashListUnspent,
	MethodScriptHashSubscribe,
	MethodScriptHashUnsubscribe,
	MethodTransactionGet,
	MethodTransactionGetMerkle,
	MethodTransactionFromPos,
	MethodVersion,
}

var knownMethods = func() map[Method]struct{} {
	m := make(map[Method]struct{}, len(Methods))
	for _, method := range Methods {
		m[method] = struct{}{}
	}
	return m
}()

// String returns the wire name.
func (m Method) String() string { return string(m) }

// Valid reports whether m is a known protocol method.
func (m Method) Valid() bool {
	_, ok := knownMethods[m]
	return ok
}

// ParseMethod maps a wire name to a Method.
func ParseMethod(s string) (Method, error) {
	m := Method(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrMethodNotFound, s)
	}
	return m, nil
}

// UnmarshalJSON rejects names outside the protocol.
func (m *Method) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseMethod(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
