package subnet

import (
	"errors"
	"math/rand/v2"
	"net/netip"
	"testing"

	"github.com/kompox/pgcluster/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_PrefixBounds(t *testing.T) {
	for _, p := range []int{0, 22, 23, 29, 32} {
		_, err := New("10.33.0.0/16", p)
		assert.ErrorIs(t, err, model.ErrConfiguration, "prefix %d", p)
	}
	for _, p := range []int{24, 25, 26, 27, 28} {
		_, err := New("10.33.0.0/16", p)
		assert.NoError(t, err, "prefix %d", p)
	}
}

func TestNew_InvalidNetwork(t *testing.T) {
	_, err := New("not-a-cidr", 28)
	assert.ErrorIs(t, err, model.ErrConfiguration)
	_, err = New("10.0.0.0/26", 24)
	assert.ErrorIs(t, err, model.ErrConfiguration)
	_, err = New("fd00::/64", 28)
	assert.ErrorIs(t, err, model.ErrConfiguration)
	_, err = New("10.0.0.0/4", 28)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestTake_Disjoint(t *testing.T) {
	a, err := New("10.33.0.0/16", 28)
	require.NoError(t, err)

	got, err := a.Take(4)
	require.NoError(t, err)
	require.Len(t, got, 4)

	network := netip.MustParsePrefix("10.33.0.0/16")
	for i, p := range got {
		assert.Equal(t, 28, p.Bits())
		assert.True(t, network.Contains(p.Addr()), "%s outside %s", p, network)
		for _, q := range got[i+1:] {
			assert.False(t, p.Overlaps(q), "%s overlaps %s", p, q)
		}
	}
	assert.Equal(t, "10.33.0.0/28", got[0].String())
	assert.Equal(t, "10.33.0.48/28", got[3].String())
}

func TestExclude(t *testing.T) {
	a, err := New("10.33.0.0/16", 28)
	require.NoError(t, err)
	require.NoError(t, a.Exclude([]string{"10.33.0.16/28", "10.33.0.64/26", "10.33.0.130"}))

	got, err := a.Take(5)
	require.NoError(t, err)
	var names []string
	for _, p := range got {
		names = append(names, p.String())
	}
	assert.Equal(t, []string{"10.33.0.0/28", "10.33.0.32/28", "10.33.0.48/28", "10.33.0.144/28", "10.33.0.160/28"}, names)

	assert.ErrorIs(t, a.Exclude([]string{"bogus"}), model.ErrConfiguration)
}

func TestTake_Capacity(t *testing.T) {
	a, err := New("10.33.0.0/16", 24)
	require.NoError(t, err)

	_, err = a.Take(1000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrCapacity))
	assert.Contains(t, err.Error(), "10.33.0.0/16")
	assert.Contains(t, err.Error(), "1000")
	assert.Contains(t, err.Error(), "/24")

	got, err := a.Take(256)
	require.NoError(t, err)
	assert.Len(t, got, 256)

	require.NoError(t, a.Exclude([]string{"10.33.7.0/24"}))
	_, err = a.Take(256)
	assert.ErrorIs(t, err, model.ErrCapacity)
}

func TestShuffle(t *testing.T) {
	a, err := New("10.33.0.0/16", 28)
	require.NoError(t, err)
	require.NoError(t, a.Exclude([]string{"10.33.0.0/17"}))
	a.Shuffle(rand.New(rand.NewPCG(1, 2)))

	got, err := a.Take(50)
	require.NoError(t, err)
	seen := map[netip.Prefix]bool{}
	upper := netip.MustParsePrefix("10.33.128.0/17")
	inOrder := true
	for i, p := range got {
		assert.False(t, seen[p], "duplicate %s", p)
		seen[p] = true
		assert.True(t, upper.Contains(p.Addr()), "excluded range returned: %s", p)
		if i > 0 && p.Addr().Less(got[i-1].Addr()) {
			inOrder = false
		}
	}
	assert.False(t, inOrder, "shuffled subnets came out in address order")

	a.NoShuffle()
	first, err := a.Take(1)
	require.NoError(t, err)
	assert.Equal(t, "10.33.128.0/28", first[0].String())
}

func TestAll_Restartable(t *testing.T) {
	a, err := New("192.168.0.0/24", 26)
	require.NoError(t, err)
	count := func() int {
		n := 0
		for range a.All() {
			n++
		}
		return n
	}
	assert.Equal(t, 4, count())
	assert.Equal(t, 4, count())
	assert.Equal(t, 4, a.Count())
}
