package engine

import (
	"time"

	"github.com/polybase/solid/quorumcert"
	"github.com/polybase/solid/types"
)

// Genesis restores an engine from durable state (spec.md §6,
// "genesis: either None ... or Some((hash, height))").
type Genesis struct {
	Hash   types.ProposalHash
	Height uint64
}

// Config parameterizes an Engine (spec.md §6, "Configuration").
type Config struct {
	// Peers is the ordered, fixed peer set.
	Peers types.PeerSet

	// SelfID is this node's peer id; must appear in Peers.
	SelfID types.PeerID

	// RoundTimeout is the duration before a round is considered
	// skippable. Default is chosen by the host; there is no core default
	// because it depends on expected network round-trip.
	RoundTimeout time.Duration

	// Genesis is nil for a cold start (last_confirmed = (zero-hash, 0));
	// otherwise it restores from durable state.
	Genesis *Genesis

	// Digest computes ProposalHash from canonical manifest bytes.
	// Defaults to types.DefaultDigest.
	Digest types.Digest

	// MaxProposalTxns bounds how many pending transactions a
	// self-produced proposal includes. Zero means no cap.
	MaxProposalTxns int

	// RequireSignedAccepts gates whether the engine signs its own
	// outgoing Accepts with quorumcert.SignAccept and verifies inbound
	// ones with quorumcert.VerifyPartial before tallying them (spec.md
	// §9, "Open questions: accept authentication left to the host").
	RequireSignedAccepts bool

	// KeyShare is this node's share of the threshold signing key.
	// Required when RequireSignedAccepts is set; ignored otherwise.
	KeyShare quorumcert.KeyShare
}

func (c Config) quorum() int {
	return c.Peers.Quorum()
}

func (c Config) lastConfirmed() (types.ProposalHash, uint64) {
	if c.Genesis != nil {
		return c.Genesis.Hash, c.Genesis.Height
	}
	return types.GenesisHash, 0
}

func (c Config) digest() types.Digest {
	if c.Digest != nil {
		return c.Digest
	}
	return types.DefaultDigest
}
