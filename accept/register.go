// Package accept implements the Accept Register (spec.md §4.3): a bag of
// accept votes tallied per (height, skips, proposal_hash) triple, exposing
// quorum detection.
//
// Grounded on the teacher's SlotVoteSet (consensus/types/slot_vote_set.go),
// which nests a per-slot voteSet keyed by round; generalized here to key
// directly by the full (height, skips, hash) triple since Solid tallies
// accepts per triple rather than per slot, matching the original Solid
// source's ProposalAccept bookkeeping (proposal.rs, incoming_accepts:
// HashMap<usize, HashSet<PeerId>>, one bucket per skip count).
package accept

import (
	"github.com/polybase/solid/types"
)

// bag tracks the distinct peers that have voted for one triple.
type bag map[types.PeerID]struct{}

// Register is the Accept Register. Not safe for concurrent use; the event
// loop is its only caller.
type Register struct {
	quorum int
	votes  map[types.Triple]bag
}

// New builds an empty Accept Register requiring quorum distinct votes to
// consider a triple accepted. Callers typically pass peers.Quorum()
// (spec.md §4, "quorum: floor(N/2)+1").
func New(quorum int) *Register {
	return &Register{
		quorum: quorum,
		votes:  make(map[types.Triple]bag),
	}
}

// recorded reports whether from already voted for triple.
func (r *Register) recorded(triple types.Triple, from types.PeerID) bool {
	b, ok := r.votes[triple]
	if !ok {
		return false
	}
	_, ok = b[from]
	return ok
}

// Record inserts a into the bag for its triple. Idempotent on
// (triple, from): recording the same peer's accept for the same triple
// twice has no additional effect (spec.md §4.3, "record(accept): inserts
// into the bag; idempotent on (triple, from)"). Returns true if this call
// caused the triple to newly reach quorum.
func (r *Register) Record(a *types.Accept) (reachedQuorum bool) {
	triple := a.Triple()
	alreadyHadQuorum := r.HasQuorum(triple)

	b, ok := r.votes[triple]
	if !ok {
		b = make(bag)
		r.votes[triple] = b
	}
	b[a.From] = struct{}{}

	return !alreadyHadQuorum && r.HasQuorum(triple)
}

// HasQuorum reports whether triple has at least quorum distinct votes.
func (r *Register) HasQuorum(triple types.Triple) bool {
	return len(r.votes[triple]) >= r.quorum
}

// Count returns the number of distinct votes recorded for triple.
func (r *Register) Count(triple types.Triple) int {
	return len(r.votes[triple])
}

// DropBelow removes every tallied triple with height <= height. Called
// after a commit or sync_complete, mirroring the Proposal Register's
// PruneBelow (spec.md §4.3 `drop_below(height)`).
func (r *Register) DropBelow(height uint64) {
	for triple := range r.votes {
		if triple.Height <= height {
			delete(r.votes, triple)
		}
	}
}
