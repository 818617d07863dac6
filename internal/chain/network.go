package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

var (
	ErrUnknownNetwork = errors.New("chain: unknown network")
	ErrWrongNetwork   = errors.New("chain: address is for another network")
)

// Networks lists the accepted network names.
var Networks = []string{"mainnet", "testnet", "signet", "regtest"}

// Network maps a network name to its chain parameters.
func Network(name string) (*chaincfg.Params, error) {
	switch strings.ToLower(name) {
	case "mainnet", "bitcoin", "main":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3", "test":
		return &chaincfg.TestNet3Params, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
}

// ScriptForAddress decodes addr for params and returns the output script it
// pays to.
func ScriptForAddress(addr string, params *chaincfg.Params) ([]byte, error) {
	decoded, err := btcutil.DecodeAddress(addr, params)
	if err != nil {
		return nil, fmt.Errorf("decode address %q: %w", addr, err)
	}
	if !decoded.IsForNet(params) {
		return nil, fmt.Errorf("%w: %q is not a %s address", ErrWrongNetwork, addr, params.Name)
	}
	script, err := txscript.PayToAddrScript(decoded)
	if err != nil {
		return nil, fmt.Errorf("script for %q: %w", addr, err)
	}
	return script, nil
}
