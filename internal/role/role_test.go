package role

import (
	"sync"
	"testing"

	"github.com/heyvito/pofswitch/internal/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func masters(a Arbiter) []ConnID {
	var out []ConnID
	for _, e := range a.Snapshot() {
		if e.Role == Master {
			out = append(out, e.ID)
		}
	}
	return out
}

func TestArbiter_RegisterStartsEqual(t *testing.T) {
	a := NewArbiter(zap.NewNop())
	id := a.Register()
	r, err := a.Role(id)
	require.NoError(t, err)
	assert.Equal(t, Equal, r)

	_, ok := a.Master()
	assert.False(t, ok)
}

func TestArbiter_MasterDemotesOthers(t *testing.T) {
	a := NewArbiter(zap.NewNop())
	c1, c2, c3 := a.Register(), a.Register(), a.Register()

	out, err := a.RequestRole(c1, Master)
	require.NoError(t, err)
	assert.Equal(t, Master, out.Role)
	assert.True(t, out.Changed)
	assert.Empty(t, out.Demoted)

	out, err = a.RequestRole(c2, Master)
	require.NoError(t, err)
	assert.Equal(t, Master, out.Role)
	assert.Equal(t, []ConnID{c1}, out.Demoted)

	assert.Equal(t, []ConnID{c2}, masters(a))
	r, _ := a.Role(c1)
	assert.Equal(t, Slave, r)
	r, _ = a.Role(c3)
	assert.Equal(t, Equal, r)

	m, ok := a.Master()
	assert.True(t, ok)
	assert.Equal(t, c2, m)
	assert.True(t, a.IsMaster(c2))
	assert.False(t, a.IsMaster(c1))
}

func TestArbiter_EqualClearsMaster(t *testing.T) {
	a := NewArbiter(zap.NewNop())
	c1, c2 := a.Register(), a.Register()

	_, err := a.RequestRole(c1, Master)
	require.NoError(t, err)
	_, err = a.RequestRole(c2, Master)
	require.NoError(t, err)

	out, err := a.RequestRole(c2, Equal)
	require.NoError(t, err)
	assert.Equal(t, Equal, out.Role)
	assert.Equal(t, Master, out.Previous)

	_, ok := a.Master()
	assert.False(t, ok)
	assert.Empty(t, masters(a))

	// c1 stays demoted; nobody is promoted implicitly.
	r, _ := a.Role(c1)
	assert.Equal(t, Slave, r)
}

func TestArbiter_EqualFromNonMasterKeepsSingleton(t *testing.T) {
	a := NewArbiter(zap.NewNop())
	c1, c2 := a.Register(), a.Register()
	_, err := a.RequestRole(c1, Master)
	require.NoError(t, err)

	_, err = a.RequestRole(c2, Equal)
	require.NoError(t, err)

	m, ok := a.Master()
	assert.True(t, ok)
	assert.Equal(t, c1, m)
}

func TestArbiter_SlaveAndNoChangeAreNoops(t *testing.T) {
	a := NewArbiter(zap.NewNop())
	c1 := a.Register()
	_, err := a.RequestRole(c1, Master)
	require.NoError(t, err)

	for _, req := range []Role{Slave, proto.RoleNoChange} {
		out, err := a.RequestRole(c1, req)
		require.NoError(t, err)
		assert.Equal(t, Master, out.Role)
		assert.False(t, out.Changed)
		assert.True(t, a.IsMaster(c1))
	}
}

func TestArbiter_UnregisterMaster(t *testing.T) {
	a := NewArbiter(zap.NewNop())
	c1 := a.Register()
	_, err := a.RequestRole(c1, Master)
	require.NoError(t, err)

	a.Unregister(c1)
	_, ok := a.Master()
	assert.False(t, ok)
	assert.False(t, a.IsMaster(c1))

	_, err = a.RequestRole(c1, Master)
	assert.ErrorIs(t, err, ErrUnknownConnection)
	_, err = a.Role(c1)
	assert.ErrorIs(t, err, ErrUnknownConnection)
}

func TestArbiter_ConcurrentMasterRequests(t *testing.T) {
	a := NewArbiter(zap.NewNop())
	ids := make([]ConnID, 16)
	for i := range ids {
		ids[i] = a.Register()
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id ConnID) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, _ = a.RequestRole(id, Master)
				_, _ = a.RequestRole(id, Equal)
				_, _ = a.RequestRole(id, Master)
			}
		}(id)
	}
	wg.Wait()

	assert.LessOrEqual(t, len(masters(a)), 1)
	m, ok := a.Master()
	if ok {
		assert.Equal(t, []ConnID{m}, masters(a))
	} else {
		assert.Empty(t, masters(a))
	}
}
