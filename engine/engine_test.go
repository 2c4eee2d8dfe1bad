package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polybase/solid/engine"
	"github.com/polybase/solid/leader"
	"github.com/polybase/solid/mempool"
	"github.com/polybase/solid/types"
)

func testPeers() types.PeerSet {
	return types.PeerSet{
		types.NewPeerID([]byte{0}),
		types.NewPeerID([]byte{1}),
		types.NewPeerID([]byte{2}),
	}
}

func baseConfig(self types.PeerID) engine.Config {
	return engine.Config{
		Peers:        testPeers(),
		SelfID:       self,
		RoundTimeout: time.Hour, // never fires during these tests
	}
}

func findOutProposal(events []engine.OutEvent) (*types.ProposalManifest, bool) {
	for _, e := range events {
		if p, ok := e.(engine.OutProposal); ok {
			return p.Manifest, true
		}
	}
	return nil, false
}

func findOutAccept(events []engine.OutEvent) (*engine.OutAccept, bool) {
	for _, e := range events {
		if a, ok := e.(engine.OutAccept); ok {
			return &a, true
		}
	}
	return nil, false
}

func findOutCommit(events []engine.OutEvent) (*types.ProposalManifest, bool) {
	for _, e := range events {
		if c, ok := e.(engine.OutCommit); ok {
			return c.Manifest, true
		}
	}
	return nil, false
}

func TestStartAsLeaderProposes(t *testing.T) {
	peers := testPeers()
	e := engine.New(baseConfig(peers[0]), nil, nil)

	events := e.Start()

	m, ok := findOutProposal(events)
	require.True(t, ok, "leader must propose on round entry")
	assert.Equal(t, uint64(1), m.Height)
	assert.Equal(t, uint64(0), m.Skips)
	assert.Equal(t, peers[0], m.LeaderID)

	a, ok := findOutAccept(events)
	require.True(t, ok)
	assert.Equal(t, m.Hash(types.DefaultDigest), a.Accept.ProposalHash)
}

func TestStartAsFollowerSendsSkipSentinel(t *testing.T) {
	peers := testPeers()
	e := engine.New(baseConfig(peers[1]), nil, nil)

	events := e.Start()

	_, hasProposal := findOutProposal(events)
	assert.False(t, hasProposal, "non-leader must not propose")

	a, ok := findOutAccept(events)
	require.True(t, ok)
	assert.Equal(t, types.SkipSentinel, a.Accept.ProposalHash)
	assert.Equal(t, uint64(1), a.Accept.Height)
	assert.Equal(t, uint64(0), a.Accept.Skips)
}

func TestHandleProposalDuplicate(t *testing.T) {
	peers := testPeers()
	e := engine.New(baseConfig(peers[1]), nil, nil)
	e.Start()

	m := &types.ProposalManifest{
		LastProposalHash: types.GenesisHash,
		Height:           1,
		Skips:            0,
		LeaderID:         peers[0],
		Peers:            peers,
	}

	first := e.HandleProposal(m)
	_, dup := findOutAccept(first)
	assert.True(t, dup)

	second := e.HandleProposal(m)
	require.Len(t, second, 1)
	_, isDuplicateEvent := second[0].(engine.OutDuplicate)
	assert.True(t, isDuplicateEvent)
}

func TestHandleProposalOutOfDate(t *testing.T) {
	peers := testPeers()
	cfg := baseConfig(peers[1])
	cfg.Genesis = &engine.Genesis{Hash: types.NewProposalHash(make([]byte, 32)), Height: 5}
	e := engine.New(cfg, nil, nil)
	e.Start()

	m := &types.ProposalManifest{
		LastProposalHash: types.GenesisHash,
		Height:           3,
		Skips:            0,
		LeaderID:         leader.ForSkips(0, peers),
		Peers:            peers,
	}

	out := e.HandleProposal(m)
	require.Len(t, out, 1)
	_, ok := out[0].(engine.OutOutOfDate)
	assert.True(t, ok)
}

func TestHandleProposalOutOfSync(t *testing.T) {
	peers := testPeers()
	e := engine.New(baseConfig(peers[1]), nil, nil)
	e.Start()

	m := &types.ProposalManifest{
		LastProposalHash: types.NewProposalHash(make([]byte, 32)),
		Height:           9,
		Skips:            0,
		LeaderID:         leader.ForSkips(0, peers),
		Peers:            peers,
	}

	out := e.HandleProposal(m)
	require.Len(t, out, 1)
	oos, ok := out[0].(engine.OutOutOfSync)
	require.True(t, ok)
	assert.Equal(t, uint64(9), oos.TargetHeight)
}

// TestQuorumOfAcceptsCommits picks self to be round (1,0)'s own leader —
// the recipient of real-hash accepts for that round (see acceptRecipient
// in engine.go) — and drives it through its own self-collected vote plus
// one external vote to confirm commit fires exactly on reaching quorum
// and not before (spec.md §8, property 3, "Quorum necessity"). Before the
// routing fix, the round's leader never received its own vote at all —
// real accepts went to leader_for(skips+1) — so this quorum could never
// be reached by the leader itself.
func TestQuorumOfAcceptsCommits(t *testing.T) {
	peers := testPeers()
	leaderID := leader.ForSkips(0, peers)
	e := engine.New(baseConfig(leaderID), nil, nil)

	events := e.Start()
	m, ok := findOutProposal(events)
	require.True(t, ok, "round (1,0)'s leader must propose on round entry")
	hash := m.Hash(types.DefaultDigest)

	_, committed := findOutCommit(events)
	assert.False(t, committed, "must not commit on the leader's own vote alone")

	var followers []types.PeerID
	for _, p := range peers {
		if p != leaderID {
			followers = append(followers, p)
		}
	}
	require.Len(t, followers, 2)

	out := e.HandleAccept(&types.Accept{ProposalHash: hash, Height: 1, Skips: 0, From: followers[0]})
	manifest, committed := findOutCommit(out)
	require.True(t, committed, "quorum must trigger commit")
	assert.Equal(t, hash, manifest.Hash(types.DefaultDigest))

	// The engine must have advanced into the next height's round.
	assert.Equal(t, engine.Round{Height: 2, Skips: 0}, e.Round())
}

// TestStaleAcceptForSurpassedRoundIsDiscarded exercises the off-by-one
// this engine used to have in its staleness guard: an accept for the
// height just committed must be dropped outright, not tallied into a
// fresh bag and used to regress the round backward (spec.md §4.4,
// "Accepts arriving for a round already surpassed: discarded silently").
func TestStaleAcceptForSurpassedRoundIsDiscarded(t *testing.T) {
	peers := testPeers()
	leaderID := leader.ForSkips(0, peers)
	e := engine.New(baseConfig(leaderID), nil, nil)

	events := e.Start()
	m, ok := findOutProposal(events)
	require.True(t, ok)
	hash := m.Hash(types.DefaultDigest)

	var followers []types.PeerID
	for _, p := range peers {
		if p != leaderID {
			followers = append(followers, p)
		}
	}
	require.Len(t, followers, 2)

	out := e.HandleAccept(&types.Accept{ProposalHash: hash, Height: 1, Skips: 0, From: followers[0]})
	_, committed := findOutCommit(out)
	require.True(t, committed)
	require.Equal(t, engine.Round{Height: 2, Skips: 0}, e.Round())

	// Both followers' skip-accepts for the just-surpassed round (1,0)
	// arrive late, e.g. redelivered after a network retry. Together they
	// would reach quorum on a fresh accept tally were the staleness guard
	// not tight enough.
	stale := types.Accept{ProposalHash: types.SkipSentinel, Height: 1, Skips: 0}

	stale.From = followers[0]
	out = e.HandleAccept(&stale)
	assert.Empty(t, out, "a stale accept for a surpassed round must be dropped")

	stale.From = followers[1]
	out = e.HandleAccept(&stale)
	assert.Empty(t, out, "a stale accept must never regress the round even once its peer reaches quorum")
	assert.Equal(t, engine.Round{Height: 2, Skips: 0}, e.Round())
}

// TestZeroMaxProposalTxnsReapsUnbounded wires a real *mempool.Mempool with
// pending transactions into an engine whose Config.MaxProposalTxns is left
// at its Go zero value, the exact "embedder builds engine.Config{} without
// setting a cap" scenario the field's doc comment promises "no cap" for.
// Before mempool.Reap treated maxTxns <= 0 as unbounded, this proposal
// would have come back empty with no test anywhere to catch it.
func TestZeroMaxProposalTxnsReapsUnbounded(t *testing.T) {
	peers := testPeers()
	pool := mempool.New()
	pool.Add(types.Txn{ID: []byte{1}, Data: []byte("a")})
	pool.Add(types.Txn{ID: []byte{2}, Data: []byte("b")})

	cfg := baseConfig(peers[0]) // MaxProposalTxns left at zero value
	e := engine.New(cfg, pool, nil)

	events := e.Start()
	m, ok := findOutProposal(events)
	require.True(t, ok)
	assert.Len(t, m.Txns, 2, "MaxProposalTxns == 0 must mean unbounded, not empty")
}

func TestSkipQuorumPromotesRound(t *testing.T) {
	peers := testPeers()
	recipient := leader.ForSkips(1, peers)
	e := engine.New(baseConfig(recipient), nil, nil)
	e.Start()

	var voter types.PeerID
	for _, p := range peers {
		if p != recipient {
			voter = p
			break
		}
	}

	out := e.HandleAccept(&types.Accept{ProposalHash: types.SkipSentinel, Height: 1, Skips: 0, From: voter})
	require.NotEmpty(t, out)
	assert.Equal(t, engine.Round{Height: 1, Skips: 1}, e.Round())
}

func TestDuplicateAcceptIsIdempotent(t *testing.T) {
	peers := testPeers()
	recipient := leader.ForSkips(1, peers)
	e := engine.New(baseConfig(recipient), nil, nil)
	e.Start()

	var voter types.PeerID
	for _, p := range peers {
		if p != recipient {
			voter = p
			break
		}
	}

	a := &types.Accept{ProposalHash: types.SkipSentinel, Height: 1, Skips: 0, From: voter}
	first := e.HandleAccept(a)
	assert.NotEmpty(t, first)

	second := e.HandleAccept(a)
	assert.Empty(t, second, "duplicate accept must not re-trigger promotion")
}

func TestSyncCompleteResumesAtNextHeight(t *testing.T) {
	peers := testPeers()
	e := engine.New(baseConfig(peers[1]), nil, nil)
	e.Start()

	m := &types.ProposalManifest{
		LastProposalHash: types.NewProposalHash(make([]byte, 32)),
		Height:           9,
		Skips:            0,
		LeaderID:         leader.ForSkips(0, peers),
		Peers:            peers,
	}
	e.HandleProposal(m)

	hash := m.Hash(types.DefaultDigest)
	out := e.SyncComplete(hash, 9)

	assert.Equal(t, engine.Round{Height: 10, Skips: 0}, e.Round())
	assert.NotEmpty(t, out)
}

func TestTickReArmsAndSendsSkip(t *testing.T) {
	peers := testPeers()
	e := engine.New(baseConfig(peers[1]), nil, nil)
	e.Start()

	out := e.Tick()
	a, ok := findOutAccept(out)
	require.True(t, ok)
	assert.True(t, a.Accept.IsSkip())
	assert.Equal(t, uint64(0), a.Accept.Skips)
}
