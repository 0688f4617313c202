package chainrpc

import (
	"fmt"
	"log"

	"github.com/ethereum/go-ethereum/ethclient"
)

// WithClient runs f against the first EVM RPC endpoint that both connects and
// answers, falling through the list on error.
func WithClient[T any](rpcURLs []string, f func(client *ethclient.Client) (T, error)) (res T, err error) {
	for _, url := range rpcURLs {
		var client *ethclient.Client
		client, err = ethclient.Dial(url)
		if err != nil {
			log.Println(fmt.Sprintf("Error connecting to %s: %s", url, err.Error()))
			continue
		}

		res, err = f(client)
		client.Close()
		if err == nil {
			return
		}
	}
	return
}
