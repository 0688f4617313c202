package config

import (
	"gokaldbridge/types"
)

type Configuration struct {
	// Server config
	Server struct {
		UseSSL    bool   `yaml:"ssl"`
		Port      int    `yaml:"port"`
		RedisPort int    `yaml:"redis_port"`
		RedisHost string `yaml:"redis_host"`
	} `yaml:"server"`
	// Kaldera home-ledger RPC config
	Home struct {
		RPCURL string `yaml:"rpc_url"`
		// important private stuff
		RPCUser     string `yaml:"rpc_user"`
		RPCPassword string `yaml:"rpc_pass"`
	} `yaml:"home"`
	// custodian wallet executing destination-side transactions
	Custodian struct {
		PublicAddress string `yaml:"address"`
		PrivateKey    string `yaml:"private_key"`
	} `yaml:"custodian"`
	Bridge struct {
		FeePercentage      int    `yaml:"fee_percentage"`
		MinTransferAmount  string `yaml:"min_transfer_amount"` // base units, decimal string
		MaxTransferAmount  string `yaml:"max_transfer_amount"`
		MonitorIntervalSec int    `yaml:"monitor_interval_sec"`
		StatsIntervalSec   int    `yaml:"stats_interval_sec"`
	} `yaml:"bridge"`
}

// maximum number of EVM RPC retries
const EVM_RETRIES = 3

// DefaultChains returns the table of supported networks. Callers receive a
// fresh map so the registry owns its own copy.
func DefaultChains() map[int]types.ChainDescriptor {
	return map[int]types.ChainDescriptor{
		0: {
			ID:                    0,
			Name:                  "Kaldera",
			Family:                types.FAMILY_HOME,
			NativeSymbol:          "KALD",
			BlockIntervalSec:      60,
			RequiredConfirmations: 6,
			TimeoutBlocks:         60,
		},
		1: {
			ID:                    1,
			Name:                  "Eth",
			Family:                types.FAMILY_EVM,
			NativeSymbol:          "ETH",
			BlockIntervalSec:      12,
			BridgeContract:        "0x5D1cbadF8b1D39bC6c6b2A6eC8a4a793c15B8e4A",
			RequiredConfirmations: 3,
			TimeoutBlocks:         300,
			RPCList:               []string{"https://eth.drpc.org", "https://eth.llamarpc.com"},
		},
		10: {
			ID:                    10,
			Name:                  "Optimism",
			Family:                types.FAMILY_EVM,
			NativeSymbol:          "ETH",
			BlockIntervalSec:      2,
			BridgeContract:        "0x5D1cbadF8b1D39bC6c6b2A6eC8a4a793c15B8e4A",
			RequiredConfirmations: 3,
			TimeoutBlocks:         1800,
			RPCList:               []string{"https://rpc.ankr.com/optimism", "https://optimism.drpc.org"},
		},
		56: {
			ID:                    56,
			Name:                  "BNB",
			Family:                types.FAMILY_EVM,
			NativeSymbol:          "BNB",
			BlockIntervalSec:      3,
			BridgeContract:        "0x5D1cbadF8b1D39bC6c6b2A6eC8a4a793c15B8e4A",
			RequiredConfirmations: 3,
			TimeoutBlocks:         1200,
			RPCList:               []string{"https://rpc.ankr.com/bsc", "https://bsc.drpc.org", "https://bsc.meowrpc.com"},
		},
		42161: {
			ID:                    42161,
			Name:                  "Arbitrum",
			Family:                types.FAMILY_EVM,
			NativeSymbol:          "ETH",
			BlockIntervalSec:      1,
			BridgeContract:        "0x5D1cbadF8b1D39bC6c6b2A6eC8a4a793c15B8e4A",
			RequiredConfirmations: 3,
			TimeoutBlocks:         3600,
			RPCList:               []string{"https://rpc.ankr.com/arbitrum", "https://arbitrum.meowrpc.com"},
		},
	}
}
