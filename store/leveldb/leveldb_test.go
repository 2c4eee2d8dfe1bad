package leveldb_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polybase/solid/store/leveldb"
	"github.com/polybase/solid/types"
)

func open(t *testing.T) *leveldb.Store {
	t.Helper()
	s, err := leveldb.Open(filepath.Join(t.TempDir(), "solid.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLastConfirmedDefaultsToGenesis(t *testing.T) {
	s := open(t)

	hash, height, err := s.LastConfirmed()
	require.NoError(t, err)
	assert.Equal(t, types.GenesisHash, hash)
	assert.Zero(t, height)
}

func TestCommitManifestPersistsAtomically(t *testing.T) {
	s := open(t)

	m := &types.ProposalManifest{
		LastProposalHash: types.GenesisHash,
		Height:           1,
		Skips:            0,
		LeaderID:         types.NewPeerID([]byte{1}),
		Peers:            types.PeerSet{types.NewPeerID([]byte{1})},
		Txns:             []types.Txn{{ID: []byte{9}, Data: []byte("payload")}},
	}
	hash := m.Hash(types.DefaultDigest)

	require.NoError(t, s.CommitManifest(hash, m))

	gotHash, gotHeight, err := s.LastConfirmed()
	require.NoError(t, err)
	assert.Equal(t, hash, gotHash)
	assert.Equal(t, uint64(1), gotHeight)

	stored, ok, err := s.ManifestAt(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, m.Height, stored.Height)
	assert.Equal(t, m.LeaderID, stored.LeaderID)
	require.Len(t, stored.Txns, 1)
	assert.Equal(t, m.Txns[0].Data, stored.Txns[0].Data)
}

func TestManifestAtMissingHeight(t *testing.T) {
	s := open(t)

	_, ok, err := s.ManifestAt(42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommitManifestOverwritesLastConfirmed(t *testing.T) {
	s := open(t)

	peers := types.PeerSet{types.NewPeerID([]byte{1})}
	m1 := &types.ProposalManifest{LastProposalHash: types.GenesisHash, Height: 1, LeaderID: peers[0], Peers: peers}
	h1 := m1.Hash(types.DefaultDigest)
	require.NoError(t, s.CommitManifest(h1, m1))

	m2 := &types.ProposalManifest{LastProposalHash: h1, Height: 2, LeaderID: peers[0], Peers: peers}
	h2 := m2.Hash(types.DefaultDigest)
	require.NoError(t, s.CommitManifest(h2, m2))

	gotHash, gotHeight, err := s.LastConfirmed()
	require.NoError(t, err)
	assert.Equal(t, h2, gotHash)
	assert.Equal(t, uint64(2), gotHeight)

	_, ok, err := s.ManifestAt(1)
	require.NoError(t, err)
	assert.True(t, ok, "earlier heights remain readable for out-of-sync catch-up")
}
