package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gokaldbridge/types"
)

func testChains() map[int]types.ChainDescriptor {
	return map[int]types.ChainDescriptor{
		0:  {Name: "Kaldera", Family: types.FAMILY_HOME, NativeSymbol: "KALD"},
		1:  {Name: "Eth", Family: types.FAMILY_EVM, NativeSymbol: "ETH"},
		56: {Name: "BNB", Family: types.FAMILY_EVM, NativeSymbol: "BNB"},
	}
}

func TestDescribe(t *testing.T) {
	r := New(testChains())

	c, err := r.Describe(1)
	require.NoError(t, err)
	require.Equal(t, "Eth", c.Name)
	require.Equal(t, 1, c.ID)

	_, err = r.Describe(99999)
	require.ErrorIs(t, err, types.ErrUnsupportedChain)
}

func TestAllOrdered(t *testing.T) {
	r := New(testChains())

	all := r.All()
	require.Len(t, all, 3)
	require.Equal(t, []int{0, 1, 56}, []int{all[0].ID, all[1].ID, all[2].ID})
}

func TestOwnsItsCopy(t *testing.T) {
	chains := testChains()
	r := New(chains)

	// mutating the source map after construction must not leak in
	chains[7] = types.ChainDescriptor{Name: "Rogue"}
	delete(chains, 0)

	_, err := r.Describe(7)
	require.ErrorIs(t, err, types.ErrUnsupportedChain)

	_, err = r.Describe(0)
	require.NoError(t, err)
}
