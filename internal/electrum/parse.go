package electrum

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Index maps request ids to the requests that were sent with them. Replies
// are decoded according to the method of the indexed request.
type Index map[uint64]Request

// NewIndex indexes reqs by id.
func NewIndex(reqs ...Request) Index {
	ix := make(Index, len(reqs))
	ix.Add(reqs...)
	return ix
}

// Add indexes reqs, replacing earlier requests with the same id.
func (ix Index) Add(reqs ...Request) {
	for _, r := range reqs {
		ix[r.ID] = r
	}
}

var responseFactories = map[Method]func() Response{
	MethodBanner:                func() Response { return new(BannerResponse) },
	MethodBlockHeader:           func() Response { return new(HeaderResponse) },
	MethodBlockHeaders:          func() Response { return new(HeadersResponse) },
	MethodTransactionBroadcast:  func() Response { return new(BroadcastResponse) },
	MethodDonation:              func() Response { return new(DonationResponse) },
	MethodEstimateFee:           func() Response { return new(EstimateFeeResponse) },
	MethodFeatures:              func() Response { return new(FeaturesResponse) },
	MethodHeadersSubscribe:      func() Response { return new(HeadersSubscribeResponse) },
	MethodFeeHistogram:          func() Response { return new(FeeHistogramResponse) },
	MethodListPeers:             func() Response { return new(PeersResponse) },
	MethodPing:                  func() Response { return new(PingResponse) },
	MethodRelayFee:              func() Response { return new(RelayFeeResponse) },
	MethodScriptHashGetBalance:  func() Response { return new(BalanceResponse) },
	MethodScriptHashGetHistory:  func() Response { return new(HistoryResponse) },
	MethodScriptHashGetMempool:  func() Response { return new(MempoolResponse) },
	MethodScriptHashListUnspent: func() Response { return new(ListUnspentResponse) },
	MethodScriptHashSubscribe:   func() Response { return new(ScriptHashSubscribeResponse) },
	MethodScriptHashUnsubscribe: func() Response { return new(ScriptHashUnsubscribeResponse) },
	MethodTransactionGet:        func() Response { return new(TransactionGetResponse) },
	MethodTransactionGetMerkle:  func() Response { return new(MerkleResponse) },
	MethodTransactionFromPos:    func() Response { return new(TxFromPosResponse) },
	MethodVersion:               func() Response { return new(VersionResponse) },
}

var errMissingID = errors.New("missing id")

// probe holds the members that decide how a message is decoded.
type probe struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Error  json.RawMessage `json:"error"`
}

func isNull(b json.RawMessage) bool {
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}

// ParseResponses parses one server line, single or batch. Batch elements keep
// their order; any failing element fails the whole batch.
func ParseResponses(raw string, index Index) ([]Response, error) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBatchParsing, &RawResponseParsingError{Raw: raw, Err: err})
		}
		out := make([]Response, 0, len(items))
		for _, item := range items {
			r, err := parseOne(item, index)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrBatchParsing, err)
			}
			out = append(out, r)
		}
		return out, nil
	}
	r, err := parseOne(trimmed, index)
	if err != nil {
		return nil, err
	}
	return []Response{r}, nil
}

// ParseResponse parses a line holding exactly one message.
func ParseResponse(raw string, index Index) (Response, error) {
	return parseOne(bytes.TrimSpace([]byte(raw)), index)
}

func parseOne(b []byte, index Index) (Response, error) {
	var p probe
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, &RawResponseParsingError{Raw: string(b), Err: err}
	}

	if !isNull(p.Error) {
		var e ErrorResponse
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, &RawResponseParsingError{Raw: string(b), Err: err}
		}
		return &e, nil
	}

	if p.Method != "" && isNull(p.ID) {
		return parseNotification(b, Method(p.Method))
	}

	if isNull(p.ID) {
		return nil, &RawResponseParsingError{Raw: string(b), Err: errMissingID}
	}
	id, err := strconv.ParseUint(string(p.ID), 10, 64)
	if err != nil {
		return nil, &RawResponseParsingError{Raw: string(b), Err: fmt.Errorf("id %s: %w", p.ID, err)}
	}
	req, ok := index[id]
	if !ok {
		return nil, &ResponseIDError{ID: id}
	}
	factory, ok := responseFactories[req.Method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMethodNotFound, req.Method)
	}
	resp := factory()
	if err := json.Unmarshal(b, resp); err != nil {
		return nil, &ResponseParsingError{Method: req.Method, Raw: string(b), Err: err}
	}
	return resp, nil
}

func parseNotification(b []byte, method Method) (Response, error) {
	switch method {
	case MethodHeadersSubscribe:
		var n HeaderNotification
		if err := json.Unmarshal(b, &n); err != nil {
			return nil, &ResponseParsingError{Method: method, Raw: string(b), Err: err}
		}
		return &n, nil
	case MethodScriptHashSubscribe:
		var n ScriptHashNotification
		if err := json.Unmarshal(b, &n); err != nil {
			return nil, &ResponseParsingError{Method: method, Raw: string(b), Err: err}
		}
		return &n, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrWrongMethod, method)
	}
}

// ParseScriptHashNotification parses a raw scripthash push notification.
func ParseScriptHashNotification(raw string) (*ScriptHashNotification, error) {
	r, err := ParseResponse(raw, nil)
	if err != nil {
		return nil, err
	}
	n, ok := r.(*ScriptHashNotification)
	if !ok {
		return nil, fmt.Errorf("%w: not a scripthash notification", ErrWrongMethod)
	}
	return n, nil
}
