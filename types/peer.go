package types

import (
	"encoding/hex"
)

// PeerID identifies a member of the fixed peer set. It is an opaque byte
// sequence supplied by the host: the core never inspects, signs, or
// authenticates it.
type PeerID string

// NewPeerID wraps raw bytes as a PeerID.
func NewPeerID(b []byte) PeerID {
	return PeerID(b)
}

// Bytes returns the raw bytes backing the id.
func (p PeerID) Bytes() []byte {
	return []byte(p)
}

// String renders the id as lowercase hex, matching the teacher's
// PeerId.prefix()/Display convention for log-friendly ids.
func (p PeerID) String() string {
	return hex.EncodeToString([]byte(p))
}

// PeerSet is the ordered, fixed peer list frozen at startup. Index defines
// leader order (leader.ForSkips indexes into this slice by skips mod N).
type PeerSet []PeerID

// Len is a convenience wrapper used throughout leader/quorum arithmetic.
func (s PeerSet) Len() int {
	return len(s)
}

// Contains reports whether id is a member of the set.
func (s PeerSet) Contains(id PeerID) bool {
	for _, p := range s {
		if p == id {
			return true
		}
	}
	return false
}

// IndexOf returns the position of id in the set, or -1 if absent.
func (s PeerSet) IndexOf(id PeerID) int {
	for i, p := range s {
		if p == id {
			return i
		}
	}
	return -1
}

// Equal reports whether two peer sets have the same members in the same
// order. ProposalManifest validation (spec.md §4.2, rule 2) requires the
// manifest's peers to equal the local peer set exactly.
func (s PeerSet) Equal(other PeerSet) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Quorum returns floor(N/2)+1, the strict majority over an odd peer count.
func (s PeerSet) Quorum() int {
	return len(s)/2 + 1
}
