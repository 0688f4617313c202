package bridge

import (
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gokaldbridge/pool"
	"gokaldbridge/registry"
	"gokaldbridge/types"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	mu        sync.Mutex
	transfers map[string]types.BridgeTransfer
	pools     map[types.PoolKey]types.LiquidityPool
	failSave  bool
	failScan  bool
}

func newMemStore() *memStore {
	return &memStore{
		transfers: make(map[string]types.BridgeTransfer),
		pools:     make(map[types.PoolKey]types.LiquidityPool),
	}
}

func (s *memStore) SaveTransfer(t *types.BridgeTransfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return errors.New("store unavailable")
	}
	s.transfers[t.ID] = *t
	return nil
}

func (s *memStore) UpdateTransferStatus(t *types.BridgeTransfer, prev types.TransferStatus) error {
	return s.SaveTransfer(t)
}

func (s *memStore) FindTransfer(id string) (*types.BridgeTransfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.transfers[id]; ok {
		c := t
		return &c, nil
	}
	return nil, nil
}

func (s *memStore) FindTransfersByStatus(status types.TransferStatus) ([]*types.BridgeTransfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failScan {
		return nil, errors.New("store unavailable")
	}
	out := make([]*types.BridgeTransfer, 0)
	for _, t := range s.transfers {
		if t.Status == status {
			c := t
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *memStore) SavePool(p types.LiquidityPool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools[types.PoolKey{Chain: p.Chain, Asset: p.Asset}] = p
	return nil
}

func (s *memStore) LoadPools() ([]types.LiquidityPool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.LiquidityPool, 0, len(s.pools))
	for _, p := range s.pools {
		out = append(out, p)
	}
	return out, nil
}

type stubVerifier struct{ ok bool }

func (v *stubVerifier) Verify(message []byte, signature string, claimedSigner string) bool {
	return v.ok
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stubExecutor struct {
	mu    sync.Mutex
	tx    string
	err   error
	calls int
}

func (x *stubExecutor) Execute(t *types.BridgeTransfer) (string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.calls++
	return x.tx, x.err
}

type stubHeights struct {
	mu sync.Mutex
	h  uint64
}

func (s *stubHeights) Height(chain types.ChainDescriptor) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h, nil
}

func (s *stubHeights) set(h uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.h = h
}

func testRegistry() *registry.Registry {
	return registry.New(map[int]types.ChainDescriptor{
		0: {Name: "Kaldera", Family: types.FAMILY_HOME, NativeSymbol: "KALD",
			BlockIntervalSec: 60, RequiredConfirmations: 2, TimeoutBlocks: 10},
		1: {Name: "Eth", Family: types.FAMILY_EVM, NativeSymbol: "ETH",
			BlockIntervalSec: 12, RequiredConfirmations: 3, TimeoutBlocks: 50},
	})
}

type testEnv struct {
	engine   *Engine
	store    *memStore
	pools    *pool.Manager
	clock    *fakeClock
	exec     *stubExecutor
	verifier *stubVerifier
	heights  *stubHeights
}

func newTestEnv(t *testing.T, withHeights bool) *testEnv {
	env := &testEnv{
		store:    newMemStore(),
		pools:    pool.NewManager(),
		clock:    &fakeClock{now: time.Unix(1_700_000_000, 0)},
		exec:     &stubExecutor{tx: "0xdesttx"},
		verifier: &stubVerifier{ok: true},
	}

	var heights HeightSource
	if withHeights {
		env.heights = &stubHeights{h: 100}
		heights = env.heights
	}

	engine, err := New(testRegistry(), env.pools, env.store, env.verifier, env.clock, heights, env.exec, Options{
		FeePercentage:     1,
		MinTransferAmount: big.NewInt(10),
		MaxTransferAmount: big.NewInt(1_000_000),
	})
	require.NoError(t, err)
	env.engine = engine

	require.NoError(t, engine.AddLiquidity(0, "KALD", big.NewInt(1000), "lp-1"))
	return env
}

func (env *testEnv) initiate(t *testing.T, amount int64) *types.BridgeTransfer {
	tr, err := env.engine.Initiate(0, 1, "kald1qfrom", "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B", big.NewInt(amount), "KALD", "0xsig")
	require.NoError(t, err)
	return tr
}

func (env *testEnv) available(t *testing.T, chain int, asset string) *big.Int {
	p, err := env.pools.Get(chain, asset)
	require.NoError(t, err)
	return p.AvailableLiquidity
}

func TestInitiate(t *testing.T) {
	env := newTestEnv(t, false)

	tr := env.initiate(t, 100)

	require.Equal(t, types.StatusPending, tr.Status)
	require.Equal(t, big.NewInt(1), tr.Fee, "1 percent of 100")
	require.Equal(t, 2, tr.RequiredConfirmations, "copied from source chain policy")
	require.Equal(t, env.clock.Now().Unix()+600, tr.TimeoutDeadline, "block interval times timeout blocks")
	require.NotEmpty(t, tr.ID)

	require.Equal(t, big.NewInt(900), env.available(t, 0, "KALD"))

	pending := env.engine.ListPendingTransfers()
	require.Len(t, pending, 1)
	require.Equal(t, tr.ID, pending[0].ID)

	stored, err := env.store.FindTransfer(tr.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, types.StatusPending, stored.Status)
}

func TestInitiateValidationLeavesNoSideEffects(t *testing.T) {
	env := newTestEnv(t, false)

	cases := []struct {
		name string
		run  func() error
		want error
	}{
		{"unsupported source", func() error {
			_, err := env.engine.Initiate(99, 1, "a", "b", big.NewInt(100), "KALD", "0xsig")
			return err
		}, types.ErrUnsupportedChain},
		{"unsupported destination", func() error {
			_, err := env.engine.Initiate(0, 99, "a", "b", big.NewInt(100), "KALD", "0xsig")
			return err
		}, types.ErrUnsupportedChain},
		{"below minimum", func() error {
			_, err := env.engine.Initiate(0, 1, "a", "b", big.NewInt(5), "KALD", "0xsig")
			return err
		}, types.ErrAmountOutOfRange},
		{"above maximum", func() error {
			_, err := env.engine.Initiate(0, 1, "a", "b", big.NewInt(2_000_000), "KALD", "0xsig")
			return err
		}, types.ErrAmountOutOfRange},
		{"nil amount", func() error {
			_, err := env.engine.Initiate(0, 1, "a", "b", nil, "KALD", "0xsig")
			return err
		}, types.ErrAmountOutOfRange},
		{"insufficient liquidity", func() error {
			_, err := env.engine.Initiate(0, 1, "a", "b", big.NewInt(5000), "KALD", "0xsig")
			return err
		}, types.ErrInsufficientLiquidity},
		{"unknown pool", func() error {
			_, err := env.engine.Initiate(0, 1, "a", "b", big.NewInt(100), "XYZ", "0xsig")
			return err
		}, types.ErrPoolNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, tc.run(), tc.want)
			require.Equal(t, big.NewInt(1000), env.available(t, 0, "KALD"), "no partial reservation")
			require.Empty(t, env.engine.ListPendingTransfers())
		})
	}
}

func TestInitiateInvalidSignature(t *testing.T) {
	env := newTestEnv(t, false)
	env.verifier.ok = false

	_, err := env.engine.Initiate(0, 1, "a", "b", big.NewInt(100), "KALD", "0xbad")
	require.ErrorIs(t, err, types.ErrInvalidSignature)
	require.Equal(t, big.NewInt(1000), env.available(t, 0, "KALD"))
}

func TestInitiateStoreFailureRollsBackReservation(t *testing.T) {
	env := newTestEnv(t, false)
	env.store.failSave = true

	_, err := env.engine.Initiate(0, 1, "a", "b", big.NewInt(100), "KALD", "0xsig")
	require.Error(t, err)

	require.Equal(t, big.NewInt(1000), env.available(t, 0, "KALD"))
	require.Empty(t, env.engine.ListPendingTransfers())
}

func TestConfirmBelowThresholdIsIdempotent(t *testing.T) {
	env := newTestEnv(t, false)
	tr := env.initiate(t, 100)

	require.NoError(t, env.engine.Confirm(tr.ID, "0xsrctx", 1))

	pending := env.engine.ListPendingTransfers()
	require.Len(t, pending, 1)
	require.Equal(t, types.StatusPending, pending[0].Status)
	require.Equal(t, 1, pending[0].Confirmations)
	require.Equal(t, "0xsrctx", pending[0].SourceTxHash)
	require.Equal(t, 0, env.exec.calls, "no destination execution below threshold")

	// a stale lower count must not regress the stored count
	require.NoError(t, env.engine.Confirm(tr.ID, "0xsrctx", 1))
	require.Equal(t, 1, env.engine.ListPendingTransfers()[0].Confirmations)
}

func TestConfirmThresholdCompletes(t *testing.T) {
	env := newTestEnv(t, false)
	tr := env.initiate(t, 100)

	require.NoError(t, env.engine.Confirm(tr.ID, "0xsrctx", 2))
	require.Equal(t, 1, env.exec.calls)

	stored, err := env.store.FindTransfer(tr.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusCompleted, stored.Status)
	require.Equal(t, "0xdesttx", stored.DestTxHash)
	require.Equal(t, env.clock.Now().Unix(), stored.TsCompleted)

	// destination pool credited with amount minus fee
	require.Equal(t, big.NewInt(99), env.available(t, 1, "KALD"))
	// source reservation stays consumed
	require.Equal(t, big.NewInt(900), env.available(t, 0, "KALD"))

	require.Empty(t, env.engine.ListPendingTransfers())

	// second terminal transition is illegal
	require.ErrorIs(t, env.engine.Confirm(tr.ID, "0xsrctx", 3), types.ErrNotPending)
	require.ErrorIs(t, env.engine.CompleteFromExternalProof(tr.ID, "0xother"), types.ErrNotPending)
}

func TestConfirmPersistFailureIsRetryable(t *testing.T) {
	env := newTestEnv(t, false)
	tr := env.initiate(t, 100)

	env.store.failSave = true
	require.Error(t, env.engine.Confirm(tr.ID, "0xsrctx", 2))
	require.Equal(t, 0, env.exec.calls, "no execution on a failed persist")

	// the transfer stays pending, a later Confirm completes it
	pending := env.engine.ListPendingTransfers()
	require.Len(t, pending, 1)
	require.Equal(t, types.StatusPending, pending[0].Status)

	env.store.failSave = false
	require.NoError(t, env.engine.Confirm(tr.ID, "0xsrctx", 2))
	require.Equal(t, 1, env.exec.calls)

	stored, err := env.store.FindTransfer(tr.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusCompleted, stored.Status)
	require.Equal(t, big.NewInt(99), env.available(t, 1, "KALD"))
}

func TestConfirmExecutionFailureParksTransfer(t *testing.T) {
	env := newTestEnv(t, false)
	env.exec.err = errors.New("destination node down")
	tr := env.initiate(t, 100)

	// not a caller error: the failure lands in the record
	require.NoError(t, env.engine.Confirm(tr.ID, "0xsrctx", 2))

	stored, err := env.store.FindTransfer(tr.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusFailed, stored.Status)
	require.Contains(t, stored.Message, "destination execution failed")

	// no fund movement anywhere: destination never credited, source
	// reservation kept for manual remediation
	_, err = env.pools.Get(1, "KALD")
	require.ErrorIs(t, err, types.ErrPoolNotFound)
	require.Equal(t, big.NewInt(900), env.available(t, 0, "KALD"))

	require.ErrorIs(t, env.engine.Confirm(tr.ID, "0xsrctx", 5), types.ErrNotPending)
}

func TestConfirmUnknownTransfer(t *testing.T) {
	env := newTestEnv(t, false)

	require.ErrorIs(t, env.engine.Confirm("no-such-id", "0x", 1), types.ErrTransferNotFound)
	require.ErrorIs(t, env.engine.CompleteFromExternalProof("no-such-id", "0x"), types.ErrTransferNotFound)
}

func TestCompleteFromExternalProof(t *testing.T) {
	env := newTestEnv(t, false)
	tr := env.initiate(t, 100)

	require.NoError(t, env.engine.CompleteFromExternalProof(tr.ID, "0xrelayed"))

	stored, err := env.store.FindTransfer(tr.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusCompleted, stored.Status)
	require.Equal(t, "0xrelayed", stored.DestTxHash)

	require.Equal(t, big.NewInt(99), env.available(t, 1, "KALD"))
	require.Equal(t, 0, env.exec.calls, "proof path bypasses the executor")

	require.ErrorIs(t, env.engine.CompleteFromExternalProof(tr.ID, "0xagain"), types.ErrNotPending)
}

func TestExpireTimedOutRefunds(t *testing.T) {
	env := newTestEnv(t, false)
	tr := env.initiate(t, 100)
	require.Equal(t, big.NewInt(900), env.available(t, 0, "KALD"))

	// before the deadline nothing happens
	require.Equal(t, 0, env.engine.ExpireTimedOut(env.clock.Now()))

	env.clock.advance(601 * time.Second)
	require.Equal(t, 1, env.engine.ExpireTimedOut(env.clock.Now()))

	stored, err := env.store.FindTransfer(tr.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusRefunded, stored.Status)

	require.Equal(t, big.NewInt(1000), env.available(t, 0, "KALD"), "reservation fully returned")
	require.Empty(t, env.engine.ListPendingTransfers())

	// repeat scan finds nothing
	require.Equal(t, 0, env.engine.ExpireTimedOut(env.clock.Now()))
}

func TestExpireSkipsConfirmed(t *testing.T) {
	env := newTestEnv(t, false)
	tr := env.initiate(t, 100)

	env.engine.mu.Lock()
	env.engine.active[tr.ID].Status = types.StatusConfirmed
	env.engine.mu.Unlock()

	env.clock.advance(24 * time.Hour)
	require.Equal(t, 0, env.engine.ExpireTimedOut(env.clock.Now()))
	require.Equal(t, big.NewInt(900), env.available(t, 0, "KALD"), "committed funds stay reserved")
}

func TestExpireByHeight(t *testing.T) {
	env := newTestEnv(t, true)
	tr := env.initiate(t, 100)
	require.Equal(t, uint64(110), tr.TimeoutHeight, "initiation height plus timeout blocks")

	// wall clock has not elapsed but the chain has advanced past the limit
	env.heights.set(111)
	require.Equal(t, 1, env.engine.ExpireTimedOut(env.clock.Now()))

	stored, err := env.store.FindTransfer(tr.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusRefunded, stored.Status)
	require.Equal(t, big.NewInt(1000), env.available(t, 0, "KALD"))
}

func TestRestoreActiveIndexAtStartup(t *testing.T) {
	env := newTestEnv(t, false)
	tr := env.initiate(t, 100)

	// a second engine over the same store picks up where the first left off
	pools2 := pool.NewManager()
	engine2, err := New(testRegistry(), pools2, env.store, env.verifier, env.clock, nil, env.exec, Options{FeePercentage: 1})
	require.NoError(t, err)

	pending := engine2.ListPendingTransfers()
	require.Len(t, pending, 1)
	require.Equal(t, tr.ID, pending[0].ID)

	// pool snapshots restored too
	p, err := pools2.Get(0, "KALD")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(900), p.AvailableLiquidity)
	require.Equal(t, big.NewInt(1000), p.TotalLiquidity)
}

func TestLiquidityOperations(t *testing.T) {
	env := newTestEnv(t, false)

	require.ErrorIs(t, env.engine.AddLiquidity(99, "KALD", big.NewInt(10), "lp-1"), types.ErrUnsupportedChain)
	require.ErrorIs(t, env.engine.RemoveLiquidity(99, "KALD", big.NewInt(10), "lp-1"), types.ErrUnsupportedChain)

	require.ErrorIs(t, env.engine.RemoveLiquidity(0, "KALD", big.NewInt(5000), "lp-1"), types.ErrInsufficientLiquidity)

	require.NoError(t, env.engine.RemoveLiquidity(0, "KALD", big.NewInt(400), "lp-1"))
	require.Equal(t, big.NewInt(600), env.available(t, 0, "KALD"))

	// in-flight reservations block provider withdrawal
	env.initiate(t, 500)
	require.ErrorIs(t, env.engine.RemoveLiquidity(0, "KALD", big.NewInt(200), "lp-1"), types.ErrInsufficientLiquidity)
}

func TestConcurrentInitiateNoOverReservation(t *testing.T) {
	env := newTestEnv(t, false)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.engine.Initiate(0, 1, "a", "b", big.NewInt(100), "KALD", "0xsig")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, types.ErrInsufficientLiquidity)
		}
	}
	require.Equal(t, 10, succeeded)
	require.Equal(t, big.NewInt(0), env.available(t, 0, "KALD"))
	require.Len(t, env.engine.ListPendingTransfers(), 10)
}
