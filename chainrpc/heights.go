package chainrpc

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"

	"gokaldbridge/types"
)

// Heights reads current chain heights for timeout bookkeeping.
type Heights struct {
	home *HomeClient
}

func NewHeights(home *HomeClient) *Heights {
	return &Heights{home: home}
}

func (h *Heights) Height(chain types.ChainDescriptor) (uint64, error) {
	switch chain.Family {
	case types.FAMILY_HOME:
		return h.home.Height()
	case types.FAMILY_EVM:
		return WithClient(chain.RPCList, func(client *ethclient.Client) (uint64, error) {
			return client.BlockNumber(context.Background())
		})
	}
	return 0, fmt.Errorf("no height source for chain family %q", chain.Family)
}
