package leader_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polybase/solid/leader"
	"github.com/polybase/solid/types"
)

func peers() types.PeerSet {
	return types.PeerSet{
		types.NewPeerID([]byte{1}),
		types.NewPeerID([]byte{2}),
		types.NewPeerID([]byte{3}),
	}
}

func TestForSkipsWrapsAround(t *testing.T) {
	p := peers()

	assert.Equal(t, p[0], leader.ForSkips(0, p))
	assert.Equal(t, p[1], leader.ForSkips(1, p))
	assert.Equal(t, p[2], leader.ForSkips(2, p))
	assert.Equal(t, p[0], leader.ForSkips(3, p))
	assert.Equal(t, p[1], leader.ForSkips(4, p))
}

func TestForSkipsIndependentOfHeight(t *testing.T) {
	p := peers()

	// The whole point of skip-indexed (not height-indexed) rotation: the
	// same skips value always yields the same leader, regardless of which
	// height the round happens to be at.
	assert.Equal(t, leader.ForSkips(1, p), leader.ForSkips(1, p))
}

func TestIsLeader(t *testing.T) {
	p := peers()

	assert.True(t, leader.IsLeader(p[1], 1, p))
	assert.False(t, leader.IsLeader(p[0], 1, p))
}

func TestForSkipsPanicsOnEmptyPeers(t *testing.T) {
	require.Panics(t, func() {
		leader.ForSkips(0, types.PeerSet{})
	})
}
