package electrum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// ScriptHash converts a Bitcoin address into the Electrum script hash
// used to key all scripthash.* queries: the SHA-256 of the address's
// scriptPubKey, byte-reversed, hex encoded. The address must belong to
// the given network.
func ScriptHash(address string, params *chaincfg.Params) (string, error) {
	script, err := PayScript(address, params)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(script)
	for i, j := 0, len(sum)-1; i < j; i, j = i+1, j-1 {
		sum[i], sum[j] = sum[j], sum[i]
	}
	return hex.EncodeToString(sum[:]), nil
}

// PayScript decodes an address and returns its scriptPubKey.
func PayScript(address string, params *chaincfg.Params) ([]byte, error) {
	addr, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return nil, fmt.Errorf("decoding address %q: %w", address, err)
	}
	if !addr.IsForNet(params) {
		return nil, fmt.Errorf("address %q is not a %s address", address, params.Name)
	}

	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, fmt.Errorf("building scriptPubKey: %w", err)
	}
	return script, nil
}
