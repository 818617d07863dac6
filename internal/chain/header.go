package chain

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/wire"
)

// HeaderSize is the serialized size of a block header.
const HeaderSize = 80

var ErrHeaderLength = errors.New("chain: bad header length")

// DecodeHeader decodes one raw header from hex.
func DecodeHeader(hexHeader string) (*wire.BlockHeader, error) {
	headers, err := DecodeHeaders(hexHeader, 1)
	if err != nil {
		return nil, err
	}
	return &headers[0], nil
}

// DecodeHeaders decodes count concatenated raw headers, as returned by
// blockchain.block.headers.
func DecodeHeaders(hexHeaders string, count uint64) ([]wire.BlockHeader, error) {
	raw, err := hex.DecodeString(hexHeaders)
	if err != nil {
		return nil, fmt.Errorf("decode headers hex: %w", err)
	}
	if uint64(len(raw)) != count*HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes for %d headers", ErrHeaderLength, len(raw), count)
	}
	out := make([]wire.BlockHeader, count)
	r := bytes.NewReader(raw)
	for i := range out {
		if err := out[i].Deserialize(r); err != nil {
			return nil, fmt.Errorf("header %d: %w", i, err)
		}
	}
	return out, nil
}
