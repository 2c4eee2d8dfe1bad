// Package leader implements Solid's leader schedule: a pure, deterministic
// function from (skips, peer set) to the peer expected to propose.
//
// Grounded on the teacher's ValidatorSet.GetProposer
// (types/validator_set.go: "idx := current.Mod(len(vals.Validators))"),
// generalized from height-indexed proposer rotation to skip-indexed
// rotation, matching the original Solid source's
// Proposal::get_next_leader (skip % len(peers)).
package leader

import "github.com/polybase/solid/types"

// ForSkips returns the peer expected to lead round (height, skips) for any
// height, given peers. Because the result depends only on skips — not
// height — a skip at height h deterministically promotes the next peer in
// order without any coordination beyond the skip count itself (spec.md
// §4.1, "Rationale").
//
// ForSkips panics if peers is empty: an empty peer set is a host
// misconfiguration, not a runtime condition the core can recover from.
func ForSkips(skips uint64, peers types.PeerSet) types.PeerID {
	n := len(peers)
	if n == 0 {
		panic("leader: empty peer set")
	}
	return peers[int(skips%uint64(n))]
}

// IsLeader reports whether self is expected to lead round (height, skips).
func IsLeader(self types.PeerID, skips uint64, peers types.PeerSet) bool {
	return ForSkips(skips, peers) == self
}
