package redis

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/google/uuid"

	"gokaldbridge/types"
)

// note that multiple sets must not contain one transfer
var statusSets = map[types.TransferStatus]string{
	types.StatusPending:   "transfers:pending",
	types.StatusConfirmed: "transfers:confirmed",
	types.StatusCompleted: "transfers:completed",
	types.StatusFailed:    "transfers:failed",
	types.StatusRefunded:  "transfers:refunded",
}

const poolSet = "pools"

// Store persists bridge transfers and pool snapshots in Redis. Records are
// JSON blobs keyed by status and id, with one Redis set per status.
type Store struct {
	pool *redis.Pool
}

func timeoutDialOptions() []redis.DialOption {
	return []redis.DialOption{
		redis.DialConnectTimeout(5 * time.Second),
		redis.DialReadTimeout(5 * time.Second),
		redis.DialWriteTimeout(5 * time.Second),
	}
}

func New(host string, port int) *Store {
	redisAddr := fmt.Sprintf("%s:%d", host, port)
	return &Store{
		pool: &redis.Pool{
			MaxIdle: 5,
			Dial:    func() (redis.Conn, error) { return redis.Dial("tcp", redisAddr, timeoutDialOptions()...) },
		},
	}
}

// Ping verifies connectivity; without persistence the service must not start.
func (s *Store) Ping() error {
	conn := s.pool.Get()
	defer conn.Close()

	_, err := conn.Do("PING")
	return err
}

func transferKey(status types.TransferStatus, id string) string {
	return fmt.Sprintf("transfer:%s:%s", status, id)
}

func poolKey(chain int, asset string) string {
	return fmt.Sprintf("pool:%d:%s", chain, asset)
}

func (s *Store) SaveTransfer(t *types.BridgeTransfer) error {
	conn := s.pool.Get()
	defer conn.Close()

	if t == nil {
		return errors.New("null object to store")
	}
	if t.Status == "" {
		return errors.New("transfer cannot have empty status")
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}

	recordKey := transferKey(t.Status, t.ID)

	tJSON, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("cannot marshal transfer to JSON: %s", err.Error())
	}

	if _, err = conn.Do("SET", recordKey, tJSON); err != nil {
		log.Printf("error Redis SET: %s", err.Error())
		return err
	}

	if _, err = conn.Do("SADD", statusSets[t.Status], recordKey); err != nil {
		log.Printf("error Redis SADD: %s", err.Error())
		return err
	}

	return nil
}

func (s *Store) UpdateTransferStatus(t *types.BridgeTransfer, prev types.TransferStatus) error {
	conn := s.pool.Get()
	defer conn.Close()

	if t == nil {
		return errors.New("null object to store")
	}
	if t.Status == "" || t.ID == "" {
		return errors.New("transfer cannot have empty status or id")
	}

	prevRecordKey := transferKey(prev, t.ID)
	recordKey := transferKey(t.Status, t.ID)

	tJSON, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("cannot marshal transfer to JSON: %s", err.Error())
	}

	if _, err = conn.Do("SREM", statusSets[prev], prevRecordKey); err != nil {
		log.Printf("error Redis SREM: %s", err.Error())
		return err
	}
	if _, err = conn.Do("DEL", prevRecordKey); err != nil {
		log.Printf("error Redis DEL: %s", err.Error())
		return err
	}
	if _, err = conn.Do("SET", recordKey, tJSON); err != nil {
		log.Printf("error Redis SET: %s", err.Error())
		return err
	}
	if _, err = conn.Do("SADD", statusSets[t.Status], recordKey); err != nil {
		log.Printf("error Redis SADD: %s", err.Error())
		return err
	}

	return nil
}

// FindTransfer looks one transfer up by id across every status set.
func (s *Store) FindTransfer(id string) (*types.BridgeTransfer, error) {
	conn := s.pool.Get()
	defer conn.Close()

	for _, status := range types.AllStatuses {
		raw, err := redis.Bytes(conn.Do("GET", transferKey(status, id)))
		if errors.Is(err, redis.ErrNil) {
			continue
		}
		if err != nil {
			log.Printf("error Redis GET: %s", err.Error())
			return nil, err
		}

		var t types.BridgeTransfer
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, err
		}
		return &t, nil
	}

	return nil, nil
}

// FindTransfersByStatus scans one status set. Older sets keep growing, which
// is fine for audit but O(n) for the caller.
func (s *Store) FindTransfersByStatus(status types.TransferStatus) ([]*types.BridgeTransfer, error) {
	conn := s.pool.Get()
	defer conn.Close()

	setKey, ok := statusSets[status]
	if !ok {
		return nil, errors.New("redis key not found for status")
	}

	transfers := make([]*types.BridgeTransfer, 0)

	var cursor int64
	for {
		values, err := redis.Values(conn.Do("SSCAN", setKey, cursor))
		if err != nil {
			return nil, err
		}

		var recordKeys []string
		if _, err = redis.Scan(values, &cursor, &recordKeys); err != nil {
			return nil, err
		}

		for _, key := range recordKeys {
			raw, err := redis.Bytes(conn.Do("GET", key))
			if errors.Is(err, redis.ErrNil) {
				// record can be missing if a move raced the scan
				continue
			}
			if err != nil {
				log.Printf("error Redis GET: %s", err.Error())
				return nil, err
			}

			var t types.BridgeTransfer
			if err := json.Unmarshal(raw, &t); err != nil {
				return nil, err
			}
			if t.Status == status {
				transfers = append(transfers, &t)
			}
		}

		if cursor == 0 {
			break
		}
	}

	return transfers, nil
}

func (s *Store) SavePool(p types.LiquidityPool) error {
	conn := s.pool.Get()
	defer conn.Close()

	key := poolKey(p.Chain, p.Asset)

	pJSON, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("cannot marshal pool snapshot to JSON: %s", err.Error())
	}

	if _, err = conn.Do("SET", key, pJSON); err != nil {
		log.Printf("error Redis SET: %s", err.Error())
		return err
	}
	if _, err = conn.Do("SADD", poolSet, key); err != nil {
		log.Printf("error Redis SADD: %s", err.Error())
		return err
	}

	return nil
}

func (s *Store) LoadPools() ([]types.LiquidityPool, error) {
	conn := s.pool.Get()
	defer conn.Close()

	pools := make([]types.LiquidityPool, 0)

	var cursor int64
	for {
		values, err := redis.Values(conn.Do("SSCAN", poolSet, cursor))
		if err != nil {
			return nil, err
		}

		var keys []string
		if _, err = redis.Scan(values, &cursor, &keys); err != nil {
			return nil, err
		}

		for _, key := range keys {
			raw, err := redis.Bytes(conn.Do("GET", key))
			if errors.Is(err, redis.ErrNil) {
				continue
			}
			if err != nil {
				log.Printf("error Redis GET: %s", err.Error())
				return nil, err
			}

			var p types.LiquidityPool
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, err
			}
			pools = append(pools, p)
		}

		if cursor == 0 {
			break
		}
	}

	return pools, nil
}
