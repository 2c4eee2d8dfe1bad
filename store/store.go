// Package store defines Solid's host persistence contract (spec.md §6,
// "Persisted state: last_confirmed (hash, height), and whatever else the
// host wants durable"). The core engine itself holds no reference to a
// Store — hosts call it explicitly from OutCommit handling and at
// startup, the same separation the teacher keeps between ConsensusState
// and its KVStore (consensus/state.go never imports store directly;
// the host wires them together).
package store

import "github.com/polybase/solid/types"

// Store persists committed manifests and the last_confirmed marker.
// Implementations must make CommitManifest atomic: a crash between
// writing the manifest and advancing last_confirmed must never be
// observable by LastConfirmed.
type Store interface {
	// CommitManifest durably records m as committed at m.Height and
	// advances last_confirmed to (hash, m.Height) in one atomic write.
	CommitManifest(hash types.ProposalHash, m *types.ProposalManifest) error

	// LastConfirmed returns the most recently committed (hash, height),
	// or (zero-hash, 0) if nothing has been committed yet.
	LastConfirmed() (types.ProposalHash, uint64, error)

	// ManifestAt returns the committed manifest at height, used to answer
	// a peer's out-of-sync catch-up request (spec.md §4.5).
	ManifestAt(height uint64) (*types.ProposalManifest, bool, error)

	// Close releases underlying resources.
	Close() error
}
