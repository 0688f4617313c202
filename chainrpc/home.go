package chainrpc

import (
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/ybbus/jsonrpc"
)

// base units per whole KALD
const kaldBaseUnits = 100_000_000

// HomeClient talks JSON-RPC to the Kaldera home-ledger node wallet.
type HomeClient struct {
	rpc jsonrpc.RPCClient
}

func NewHomeClient(url, user, pass string) *HomeClient {
	opts := &jsonrpc.RPCClientOpts{}
	if user != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
		opts.CustomHeaders = map[string]string{"Authorization": "Basic " + auth}
	}
	return &HomeClient{rpc: jsonrpc.NewClientWithOpts(url, opts)}
}

func (c *HomeClient) Height() (uint64, error) {
	var height uint64
	if err := c.rpc.CallFor(&height, "getblockcount"); err != nil {
		return 0, err
	}
	return height, nil
}

func (c *HomeClient) Balance() (float64, error) {
	var balance float64
	if err := c.rpc.CallFor(&balance, "getbalance"); err != nil {
		return 0, err
	}
	return balance, nil
}

func (c *HomeClient) ValidateAddress(address string) (bool, error) {
	var res struct {
		IsValid bool `json:"isvalid"`
	}
	if err := c.rpc.CallFor(&res, "validateaddress", address); err != nil {
		return false, err
	}
	return res.IsValid, nil
}

// SendToAddress pays out amount (in base units) from the custodian wallet and
// returns the transaction id.
func (c *HomeClient) SendToAddress(address string, amount *big.Int) (string, error) {
	if amount == nil || amount.Sign() <= 0 {
		return "", fmt.Errorf("non-positive send amount")
	}
	coins, _ := new(big.Rat).SetFrac(amount, big.NewInt(kaldBaseUnits)).Float64()

	var txid string
	if err := c.rpc.CallFor(&txid, "sendtoaddress", address, coins); err != nil {
		return "", err
	}
	return txid, nil
}
