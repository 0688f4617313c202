package main

import (
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"gokaldbridge/bridge"
	"gokaldbridge/chainrpc"
	"gokaldbridge/config"
	"gokaldbridge/pool"
	"gokaldbridge/redis"
	"gokaldbridge/registry"
	"gokaldbridge/signer"
	"gokaldbridge/workers"
	"gokaldbridge/workers/handlers"
)

func main() {
	log.Print("Starting KALD/wKALD bridge")

	f, err := os.OpenFile(fmt.Sprintf("logs/log_%s.txt", time.Now().Format("2006-01-02")), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file for writing: %v", err)
	}
	defer f.Close()

	log.SetOutput(f)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	// connect to Redis, without persistence do not continue
	store := redis.New(cfg.Server.RedisHost, cfg.Server.RedisPort)
	if err := store.Ping(); err != nil {
		log.Fatalf("error reaching Redis: %v", err)
	}

	reg := registry.New(config.DefaultChains())
	pools := pool.NewManager()
	home := chainrpc.NewHomeClient(cfg.Home.RPCURL, cfg.Home.RPCUser, cfg.Home.RPCPassword)

	opts := bridge.Options{FeePercentage: cfg.Bridge.FeePercentage}
	if cfg.Bridge.MinTransferAmount != "" {
		v, ok := new(big.Int).SetString(cfg.Bridge.MinTransferAmount, 10)
		if !ok {
			log.Fatalf("invalid min_transfer_amount %q", cfg.Bridge.MinTransferAmount)
		}
		opts.MinTransferAmount = v
	}
	if cfg.Bridge.MaxTransferAmount != "" {
		v, ok := new(big.Int).SetString(cfg.Bridge.MaxTransferAmount, 10)
		if !ok {
			log.Fatalf("invalid max_transfer_amount %q", cfg.Bridge.MaxTransferAmount)
		}
		opts.MaxTransferAmount = v
	}

	engine, err := bridge.New(
		reg,
		pools,
		store,
		signer.NewEthVerifier(),
		bridge.SystemClock{},
		chainrpc.NewHeights(home),
		chainrpc.NewExecutor(reg, home, cfg.Custodian.PublicAddress, cfg.Custodian.PrivateKey),
		opts,
	)
	if err != nil {
		log.Fatalf("error building bridge engine: %v", err)
	}

	agg := bridge.NewAggregator(store, pools, bridge.SystemClock{})
	if err := agg.Recompute(); err != nil {
		log.Printf("Initial statistics refresh failed, will retry: %v", err)
	}

	// background loops: confirmation monitoring and statistics refresh;
	// the HTTP service serves as the main worker thread
	monitor := workers.NewMonitor(engine, time.Duration(cfg.Bridge.MonitorIntervalSec)*time.Second)
	statsWorker := workers.NewStatsWorker(agg, time.Duration(cfg.Bridge.StatsIntervalSec)*time.Second)
	monitor.Start()
	statsWorker.Start()

	workers.Worker_HTTP(cfg, handlers.New(engine, agg, reg, home), func() {
		monitor.Stop()
		statsWorker.Stop()
	})
}
