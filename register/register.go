// Package register implements the Proposal Register (spec.md §4.2): the
// in-memory DAG of proposals seen but not yet committed, keyed by hash and
// indexed by parent/child adjacency for fork traversal.
//
// Grounded on the teacher's BlockTree (types/block_tree.go), generalized
// from a single-parent multi-way tree walked breadth-first to a
// hash-indexed adjacency map, matching the original Solid source's
// ProposalCache (cache.rs) which keeps proposals in a HashMap<Hash,
// Proposal> plus a HashMap<Hash, Vec<Hash>> of children. The register is
// owned exclusively by the event loop (spec.md §4.4, "Scheduling model"),
// so unlike the teacher's BlockTree it carries no internal locking.
package register

import (
	"github.com/polybase/solid/types"
)

// InsertResult reports the outcome of Insert.
type InsertResult uint8

const (
	// Fresh means the manifest was accepted and stored.
	Fresh InsertResult = iota
	// Duplicate means a manifest with this hash was already stored.
	Duplicate
)

// entry pairs a stored manifest with its precomputed hash, so repeated
// lookups and child traversal never re-encode or re-hash it.
type entry struct {
	manifest *types.ProposalManifest
	hash     types.ProposalHash
}

// Register is the Proposal Register. Not safe for concurrent use; the
// event loop is its only caller.
type Register struct {
	digest types.Digest

	byHash   map[types.ProposalHash]*entry
	children map[types.ProposalHash][]types.ProposalHash

	lastConfirmedHash   types.ProposalHash
	lastConfirmedHeight uint64
}

// New builds an empty register anchored at lastConfirmed. digest computes
// ProposalHash from canonical manifest bytes; pass types.DefaultDigest
// unless the host supplies its own (spec.md §6, "digest: pluggable hash
// function").
func New(digest types.Digest, lastConfirmedHash types.ProposalHash, lastConfirmedHeight uint64) *Register {
	return &Register{
		digest:              digest,
		byHash:              make(map[types.ProposalHash]*entry),
		children:            make(map[types.ProposalHash][]types.ProposalHash),
		lastConfirmedHash:   lastConfirmedHash,
		lastConfirmedHeight: lastConfirmedHeight,
	}
}

// LastConfirmed returns the (hash, height) the register is anchored at.
func (r *Register) LastConfirmed() (types.ProposalHash, uint64) {
	return r.lastConfirmedHash, r.lastConfirmedHeight
}

// Validate runs the insert-time validation rules of spec.md §4.2 against
// localPeers, without mutating the register. It returns the classified
// error, or nil if the manifest is admissible.
func (r *Register) Validate(m *types.ProposalManifest, localPeers types.PeerSet, expectedLeader types.PeerID) *types.Error {
	if m.LeaderID != expectedLeader {
		return types.NewError(types.ErrValidation, "leader_id does not match leader schedule")
	}
	if !m.Peers.Equal(localPeers) {
		return types.NewError(types.ErrValidation, "peers do not match local peer set")
	}
	if m.Height <= r.lastConfirmedHeight {
		return types.NewError(types.ErrOutOfDate, "height at or below last confirmed")
	}
	if m.Height == r.lastConfirmedHeight+1 && m.LastProposalHash != r.lastConfirmedHash {
		return types.NewError(types.ErrValidation, "last_proposal_hash does not chain from last confirmed")
	}
	return nil
}

// Insert computes m's hash and, unless that hash is already stored, stores
// m and links it under its parent's children. Insert performs no
// validation: callers run Validate first to reject ErrValidation/
// ErrOutOfDate manifests. Insert itself only ever returns Fresh or Duplicate,
// mirroring spec.md's `insert(manifest) → {Fresh, Duplicate}` signature.
func (r *Register) Insert(m *types.ProposalManifest) (types.ProposalHash, InsertResult) {
	hash := m.Hash(r.digest)
	if _, ok := r.byHash[hash]; ok {
		return hash, Duplicate
	}
	r.byHash[hash] = &entry{manifest: m, hash: hash}
	r.children[m.LastProposalHash] = append(r.children[m.LastProposalHash], hash)
	return hash, Fresh
}

// Get returns the manifest stored under hash, if any.
func (r *Register) Get(hash types.ProposalHash) (*types.ProposalManifest, bool) {
	e, ok := r.byHash[hash]
	if !ok {
		return nil, false
	}
	return e.manifest, true
}

// ChildrenOf returns the hashes of proposals whose LastProposalHash is
// hash, in insertion order.
func (r *Register) ChildrenOf(hash types.ProposalHash) []types.ProposalHash {
	return r.children[hash]
}

// IsDescendant reports whether candidate is ancestor itself or reachable
// from ancestor by following ChildrenOf edges. Used at commit time to identify
// forks that must be dropped (spec.md §4.4, "On commit of p at height h").
func (r *Register) IsDescendant(ancestor, candidate types.ProposalHash) bool {
	if ancestor == candidate {
		return true
	}
	stack := append([]types.ProposalHash(nil), r.children[ancestor]...)
	for len(stack) > 0 {
		n := len(stack) - 1
		h := stack[n]
		stack = stack[:n]
		if h == candidate {
			return true
		}
		stack = append(stack, r.children[h]...)
	}
	return false
}

// PruneBelow removes every stored proposal with height <= height, except
// the current last-confirmed entry, and advances the register's anchor to
// (confirmedHash, height). Called after a commit or after sync_complete
// (spec.md §4.2 `prune_below`, §4.4 "prune register below h", §4.5
// "Proposal Register is pruned and the round is reset").
func (r *Register) PruneBelow(height uint64, confirmedHash types.ProposalHash) {
	for hash, e := range r.byHash {
		if e.manifest.Height <= height && hash != confirmedHash {
			delete(r.byHash, hash)
			delete(r.children, hash)
		}
	}
	r.lastConfirmedHash = confirmedHash
	r.lastConfirmedHeight = height
}

// DropForks removes every stored proposal at height > h that is not a
// descendant of keep. Called when a commit at height h leaves sibling
// branches stranded (spec.md §4.4, "If Proposal Register has any pending
// proposals with height > h that are not descendants of p ... drop them").
func (r *Register) DropForks(h uint64, keep types.ProposalHash) {
	for hash, e := range r.byHash {
		if e.manifest.Height > h && !r.IsDescendant(keep, hash) {
			delete(r.byHash, hash)
			delete(r.children, hash)
		}
	}
}

// Len reports how many proposals are currently stored.
func (r *Register) Len() int {
	return len(r.byHash)
}
