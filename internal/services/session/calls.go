package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-version"

	"electrumsmart/internal/electrum"
)

// ErrUnsupportedProtocol is returned by Negotiate when the server speaks a
// protocol older than MinProtocol.
var ErrUnsupportedProtocol = errors.New("session: unsupported protocol version")

// MinProtocol is the lowest protocol version this client negotiates.
const MinProtocol = "1.4"

// call runs req and asserts the response type.
func call[T electrum.Response](ctx context.Context, s *Service, req electrum.Request) (T, error) {
	var zero T
	resp, err := s.Call(ctx, req)
	if err != nil {
		return zero, err
	}
	typed, ok := resp.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s got %T", ErrUnexpectedResponse, req.Method, resp)
	}
	return typed, nil
}

// Negotiate sends server.version and checks the agreed protocol.
func (s *Service) Negotiate(ctx context.Context, clientName string) (*electrum.VersionResponse, error) {
	resp, err := call[*electrum.VersionResponse](ctx, s, electrum.VersionRange(clientName, MinProtocol, MinProtocol))
	if err != nil {
		return nil, err
	}
	agreed, err := version.NewVersion(resp.Protocol.Lowest())
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProtocol, resp.Protocol.String())
	}
	if agreed.LessThan(version.Must(version.NewVersion(MinProtocol))) {
		return nil, fmt.Errorf("%w: server speaks %s", ErrUnsupportedProtocol, agreed)
	}
	s.log.Debug("protocol negotiated", "server", resp.ServerSoftware, "protocol", resp.Protocol.String())
	return resp, nil
}

func (s *Service) Ping(ctx context.Context) error {
	_, err := call[*electrum.PingResponse](ctx, s, electrum.Ping())
	return err
}

func (s *Service) Banner(ctx context.Context) (string, error) {
	resp, err := call[*electrum.BannerResponse](ctx, s, electrum.Banner())
	if err != nil {
		return "", err
	}
	return resp.Banner, nil
}

// Donation returns the server's donation address, nil when it has none.
func (s *Service) Donation(ctx context.Context) (*string, error) {
	resp, err := call[*electrum.DonationResponse](ctx, s, electrum.Donation())
	if err != nil {
		return nil, err
	}
	return resp.Address, nil
}

func (s *Service) Features(ctx context.Context) (electrum.FeaturesResult, error) {
	resp, err := call[*electrum.FeaturesResponse](ctx, s, electrum.Features())
	if err != nil {
		return electrum.FeaturesResult{}, err
	}
	return resp.Features, nil
}

func (s *Service) Peers(ctx context.Context) ([]electrum.Peer, error) {
	resp, err := call[*electrum.PeersResponse](ctx, s, electrum.SubscribePeers())
	if err != nil {
		return nil, err
	}
	return resp.Peers, nil
}

func (s *Service) RelayFee(ctx context.Context) (electrum.Fee, error) {
	resp, err := call[*electrum.RelayFeeResponse](ctx, s, electrum.RelayFee())
	if err != nil {
		return electrum.Fee{}, err
	}
	return resp.Fee, nil
}

// EstimateFee asks for the rate needed to confirm within target blocks.
func (s *Service) EstimateFee(ctx context.Context, target uint16) (electrum.Fee, error) {
	resp, err := call[*electrum.EstimateFeeResponse](ctx, s, electrum.EstimateFee(target))
	if err != nil {
		return electrum.Fee{}, err
	}
	return resp.Fee, nil
}

func (s *Service) FeeHistogram(ctx context.Context) ([]electrum.FeeBucket, error) {
	resp, err := call[*electrum.FeeHistogramResponse](ctx, s, electrum.FeeHistogram())
	if err != nil {
		return nil, err
	}
	return resp.Histogram, nil
}

// SubscribeHeaders returns the current tip. Later tips arrive on
// Notifications as *electrum.HeaderNotification.
func (s *Service) SubscribeHeaders(ctx context.Context) (electrum.HeaderInfo, error) {
	resp, err := call[*electrum.HeadersSubscribeResponse](ctx, s, electrum.SubscribeHeaders())
	if err != nil {
		return electrum.HeaderInfo{}, err
	}
	return resp.Header, nil
}

func (s *Service) Header(ctx context.Context, height uint64) (string, error) {
	resp, err := call[*electrum.HeaderResponse](ctx, s, electrum.Header(height))
	if err != nil {
		return "", err
	}
	return resp.Header, nil
}

func (s *Service) Headers(ctx context.Context, start, count uint64) (electrum.HeadersResult, error) {
	resp, err := call[*electrum.HeadersResponse](ctx, s, electrum.Headers(start, count))
	if err != nil {
		return electrum.HeadersResult{}, err
	}
	return resp.Headers, nil
}

func (s *Service) Balance(ctx context.Context, script []byte) (electrum.Balance, error) {
	resp, err := call[*electrum.BalanceResponse](ctx, s, electrum.ScriptHashGetBalance(script))
	if err != nil {
		return electrum.Balance{}, err
	}
	return resp.Balance, nil
}

func (s *Service) History(ctx context.Context, script []byte) ([]electrum.HistoryItem, error) {
	resp, err := call[*electrum.HistoryResponse](ctx, s, electrum.ScriptHashGetHistory(script))
	if err != nil {
		return nil, err
	}
	return resp.History, nil
}

func (s *Service) Mempool(ctx context.Context, script []byte) ([]electrum.HistoryItem, error) {
	resp, err := call[*electrum.MempoolResponse](ctx, s, electrum.ScriptHashGetMempool(script))
	if err != nil {
		return nil, err
	}
	return resp.Mempool, nil
}

func (s *Service) ListUnspent(ctx context.Context, script []byte) ([]electrum.Utxo, error) {
	resp, err := call[*electrum.ListUnspentResponse](ctx, s, electrum.ScriptHashListUnspent(script))
	if err != nil {
		return nil, err
	}
	return resp.Unspent, nil
}

// Subscribe returns the current status of script, nil for an empty history.
// Changes arrive on Notifications as *electrum.ScriptHashNotification.
func (s *Service) Subscribe(ctx context.Context, script []byte) (*string, error) {
	resp, err := call[*electrum.ScriptHashSubscribeResponse](ctx, s, electrum.ScriptHashSubscribe(script))
	if err != nil {
		return nil, err
	}
	return resp.Status, nil
}

func (s *Service) Unsubscribe(ctx context.Context, script []byte) (bool, error) {
	resp, err := call[*electrum.ScriptHashUnsubscribeResponse](ctx, s, electrum.ScriptHashUnsubscribe(script))
	if err != nil {
		return false, err
	}
	return resp.Removed, nil
}

func (s *Service) Broadcast(ctx context.Context, rawTxHex string) (electrum.Txid, error) {
	resp, err := call[*electrum.BroadcastResponse](ctx, s, electrum.TransactionBroadcast(rawTxHex))
	if err != nil {
		return electrum.Txid{}, err
	}
	return resp.Txid, nil
}

// Transaction fetches txid. With verbose the result carries the decoded form
// too.
func (s *Service) Transaction(ctx context.Context, txid electrum.Txid, verbose bool) (electrum.TxResult, error) {
	req := electrum.TransactionGet(txid)
	if verbose {
		req = electrum.TransactionGetVerbose(txid)
	}
	resp, err := call[*electrum.TransactionGetResponse](ctx, s, req)
	if err != nil {
		return electrum.TxResult{}, err
	}
	return resp.Tx, nil
}

func (s *Service) Merkle(ctx context.Context, txid electrum.Txid, height uint64) (electrum.MerkleProof, error) {
	resp, err := call[*electrum.MerkleResponse](ctx, s, electrum.TransactionGetMerkle(txid, height))
	if err != nil {
		return electrum.MerkleProof{}, err
	}
	return resp.Proof, nil
}

func (s *Service) TxFromPosition(ctx context.Context, height, pos uint64, merkle bool) (electrum.TxFromPos, error) {
	resp, err := call[*electrum.TxFromPosResponse](ctx, s, electrum.TransactionFromPosition(height, pos, merkle))
	if err != nil {
		return electrum.TxFromPos{}, err
	}
	return resp.Result, nil
}
