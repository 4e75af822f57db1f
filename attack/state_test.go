package attack

import (
	"testing"

	ie "github.com/sahib/dca/errors"
	"github.com/sahib/dca/spn"
	"github.com/stretchr/testify/require"
)

func TestStateOrder(t *testing.T) {
	shape, err := spn.HeysShape(4)
	require.Nil(t, err)

	st := NewState(shape)
	require.Equal(t, 5, st.Next())
	require.Equal(t, 0, st.Snapshot().Len())

	// Inner keys can not come first:
	require.True(t, ie.IsConfigurationError(st.Recover(4, 0x1)))
	require.True(t, ie.IsConfigurationError(st.Recover(6, 0x1)))

	require.Nil(t, st.Recover(5, 0xDEF0))
	require.True(t, ie.IsConfigurationError(st.Recover(5, 0x0)))
	require.Nil(t, st.Recover(4, 0x9ABC))

	key, ok := st.Subkey(5)
	require.True(t, ok)
	require.Equal(t, spn.Block(0xDEF0), key)

	_, ok = st.Subkey(3)
	require.False(t, ok)

	snap := st.Snapshot()
	require.Equal(t, []spn.Block{0xDEF0, 0x9ABC}, snap.Slice())

	// Snapshots do not follow later changes:
	require.Nil(t, st.Recover(3, 0x5678))
	require.Equal(t, 2, snap.Len())
	require.Equal(t, 3, st.Snapshot().Len())

	require.False(t, st.Complete())
	require.Nil(t, st.Recover(2, 0xABCD))
	require.Nil(t, st.Recover(1, 0x1234))
	require.True(t, st.Complete())
	require.Equal(t, 0, st.Next())
	require.Equal(t, []spn.Block{0x1234, 0xABCD, 0x5678, 0x9ABC, 0xDEF0}, st.Subkeys())
}
