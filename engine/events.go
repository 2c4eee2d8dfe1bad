package engine

import "github.com/polybase/solid/types"

// Round is the coordinate a proposal attempt is identified by (spec.md
// §3, "Round coordinate: (height, skips)").
type Round struct {
	Height uint64
	Skips  uint64
}

// OutEvent is any event the engine emits for the host to act on (spec.md
// §6, "Outbound events"). Concrete types below.
type OutEvent interface {
	isOutEvent()
}

// OutProposal is broadcast to all peers.
type OutProposal struct {
	Manifest *types.ProposalManifest
}

// OutAccept is unicast to a single recipient: the round's own leader for
// a real-hash accept, or leader_for(skips+1) for a skip-sentinel one
// (see engine.acceptRecipient).
type OutAccept struct {
	Accept *types.Accept
	To     types.PeerID
}

// OutCommit instructs the host to apply the committed manifest's payload.
type OutCommit struct {
	Manifest *types.ProposalManifest
}

// OutOutOfSync escalates a future-height observation; the host must
// obtain a snapshot and call SyncComplete.
type OutOutOfSync struct {
	TargetHeight uint64
}

// OutOutOfDate reports a message at or below last_confirmed.height. The
// host may discard it.
type OutOutOfDate struct {
	Hash types.ProposalHash
}

// OutDuplicate reports a hash already present in the register. The host
// may discard it.
type OutDuplicate struct {
	Hash types.ProposalHash
}

func (OutProposal) isOutEvent()  {}
func (OutAccept) isOutEvent()    {}
func (OutCommit) isOutEvent()    {}
func (OutOutOfSync) isOutEvent() {}
func (OutOutOfDate) isOutEvent() {}
func (OutDuplicate) isOutEvent() {}
