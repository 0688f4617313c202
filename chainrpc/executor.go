package chainrpc

import (
	"context"
	"fmt"
	"log"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"gokaldbridge/registry"
	"gokaldbridge/types"
)

// erc20 transfer(address,uint256) selector
var transferSelector = []byte{0xa9, 0x05, 0x9c, 0xbb}

const evmGasLimit = uint64(200000)

// Executor moves the destination leg of a confirmed transfer: a wKALD token
// transfer on EVM chains, a wallet payout on the home ledger. Funds come from
// the bridge custodian wallet on either side.
type Executor struct {
	reg           *registry.Registry
	home          *HomeClient
	custodianAddr string
	custodianKey  string
}

func NewExecutor(reg *registry.Registry, home *HomeClient, custodianAddr, custodianKey string) *Executor {
	return &Executor{
		reg:           reg,
		home:          home,
		custodianAddr: custodianAddr,
		custodianKey:  custodianKey,
	}
}

func (x *Executor) Execute(t *types.BridgeTransfer) (string, error) {
	dest, err := x.reg.Describe(t.DestChain)
	if err != nil {
		return "", err
	}

	switch dest.Family {
	case types.FAMILY_HOME:
		log.Printf("Sending %s base units KALD to %s for transfer %s", t.NetAmount(), t.DestAddress, t.ID)
		return x.home.SendToAddress(t.DestAddress, t.NetAmount())
	case types.FAMILY_EVM:
		log.Printf("Sending %s wKALD(%s) to %s for transfer %s", t.NetAmount(), dest.Name, t.DestAddress, t.ID)
		return x.sendWrapped(dest, t.DestAddress, t.NetAmount())
	}
	return "", fmt.Errorf("no executor for chain family %q", dest.Family)
}

func (x *Executor) sendWrapped(chain types.ChainDescriptor, address string, amount *big.Int) (string, error) {
	privateKey, err := crypto.HexToECDSA(x.custodianKey)
	if err != nil {
		return "", fmt.Errorf("error instantiating private key: %s", err)
	}

	return WithClient(chain.RPCList, func(client *ethclient.Client) (string, error) {
		ctx := context.Background()

		nonce, err := client.PendingNonceAt(ctx, common.HexToAddress(x.custodianAddr))
		if err != nil {
			return "", fmt.Errorf("error getting nonce for wallet: %s", err)
		}

		gasPrice, err := client.SuggestGasPrice(ctx)
		if err != nil {
			return "", fmt.Errorf("error getting suggested gas price: %s", err)
		}
		if chain.ID != 1 {
			gasPrice = gasPrice.Mul(gasPrice, big.NewInt(2))
		}

		data := make([]byte, 0, 4+32+32)
		data = append(data, transferSelector...)
		data = append(data, common.LeftPadBytes(common.HexToAddress(address).Bytes(), 32)...)
		data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)

		tx := ethtypes.NewTransaction(nonce, common.HexToAddress(chain.BridgeContract), big.NewInt(0), evmGasLimit, gasPrice, data)
		signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(big.NewInt(int64(chain.ID))), privateKey)
		if err != nil {
			return "", fmt.Errorf("error signing transfer transaction: %s", err)
		}

		if err := client.SendTransaction(ctx, signed); err != nil {
			return "", fmt.Errorf("error submitting transfer transaction: %s", err)
		}

		return signed.Hash().Hex(), nil
	})
}
