package types

// Txn is an opaque transaction payload. Solid is deliberately agnostic of
// payload semantics (spec.md §1): a transaction is a byte sequence supplied
// by the host and returned to it on commit.
type Txn struct {
	// ID uniquely identifies the transaction for host-side deduplication
	// (mempool bookkeeping). It is never interpreted by the core.
	ID []byte `codec:"id"`

	// Data is the opaque payload.
	Data []byte `codec:"data"`
}

// ProposalManifest is the leader's request to extend the chain (spec.md
// §3). It is content-addressed: hashing its canonical encoding yields the
// ProposalHash that identifies it everywhere else in the protocol.
type ProposalManifest struct {
	// LastProposalHash is the hash of the proposal this one extends.
	LastProposalHash ProposalHash `codec:"last_proposal_hash"`

	// Skips is the number of leader changes since the last commit at this
	// height.
	Skips uint64 `codec:"skips"`

	// Height is the count of committed blocks this manifest would become
	// if confirmed.
	Height uint64 `codec:"height"`

	// LeaderID is the proposer. It must equal leader.ForSkips(Skips, Peers).
	LeaderID PeerID `codec:"leader_id"`

	// Peers is the frozen peer set this manifest was proposed against. It
	// must equal the local peer set for the manifest to be accepted.
	Peers PeerSet `codec:"peers"`

	// Txns is the opaque transaction payload included in this block.
	Txns []Txn `codec:"txns"`
}

// Hash computes the manifest's ProposalHash using digest.
func (m *ProposalManifest) Hash(digest Digest) ProposalHash {
	return HashManifest(m, digest)
}

// Genesis returns the height-0, skips-0 manifest a fresh peer set starts
// from when no durable state exists (spec.md §6, "genesis: None"). Its
// LeaderID is peers[0], matching leader.ForSkips(0, peers).
func Genesis(peers PeerSet) *ProposalManifest {
	var leader PeerID
	if len(peers) > 0 {
		leader = peers[0]
	}
	return &ProposalManifest{
		LastProposalHash: GenesisHash,
		Skips:            0,
		Height:           0,
		LeaderID:         leader,
		Peers:            peers,
		Txns:             nil,
	}
}

// Accept is a peer's vote endorsing a proposal, or an explicit skip, for a
// specific round (spec.md §3).
type Accept struct {
	// ProposalHash is the hash of the manifest being endorsed, or
	// SkipSentinel when this is a skip-Accept.
	ProposalHash ProposalHash `codec:"proposal_hash"`

	// Height is the height of the round being voted on.
	Height uint64 `codec:"height"`

	// Skips is the round's skip count.
	Skips uint64 `codec:"skips"`

	// From is the peer that cast this accept.
	From PeerID `codec:"from"`

	// Signature is an optional per-peer signature over the canonical
	// encoding of the (ProposalHash, Height, Skips) triple, populated only
	// when Config.RequireSignedAccepts is set. See package quorumcert.
	Signature []byte `codec:"signature,omitempty"`
}

// IsSkip reports whether this accept endorses a skip rather than a concrete
// proposal.
func (a *Accept) IsSkip() bool {
	return a.ProposalHash == SkipSentinel
}

// Triple identifies the (height, skips, hash) key an accept is tallied
// under in the Accept Register.
type Triple struct {
	Height uint64
	Skips  uint64
	Hash   ProposalHash
}

// Triple returns the tally key for this accept.
func (a *Accept) Triple() Triple {
	return Triple{Height: a.Height, Skips: a.Skips, Hash: a.ProposalHash}
}

// Commit is emitted exactly once per committed block on each correct node
// (spec.md §3).
type Commit struct {
	ProposalHash ProposalHash
	Height       uint64
}
