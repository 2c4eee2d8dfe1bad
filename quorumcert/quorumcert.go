// Package quorumcert implements optional BLS threshold quorum
// certificates over Accepts (spec.md §9, "Open questions: accept
// authentication left to the host"). It is opt-in: Config.RequireSignedAccepts
// gates whether the engine populates and checks Accept.Signature at all.
//
// Grounded on the teacher pack's gitzhang10-GradedDAG CBC reactor
// (gradeddag/rcbc.go), which signs a partial threshold signature per vote
// with sign.SignTSPartial and recovers a group signature once quorumNum
// partials are in. Solid has no vendored `sign` package, so partial signing
// and recovery here call go.dedis.ch/kyber/v3/sign/tbls directly — the
// same primitive that helper almost certainly wraps, and the natural
// companion to the share.PubPoly/share.PriShare types the teacher pack
// already threads through its config and CBC state.
package quorumcert

import (
	"go.dedis.ch/kyber/v3/pairing/bn256"
	"go.dedis.ch/kyber/v3/share"
	"go.dedis.ch/kyber/v3/sign/bls"
	"go.dedis.ch/kyber/v3/sign/tbls"

	"github.com/polybase/solid/types"
)

// Suite is the pairing suite used throughout this package. BN256 is
// kyber's standard pairing-friendly curve for BLS threshold signatures.
var Suite = bn256.NewSuite()

// KeyShare is one peer's share of the threshold signing key, distributed
// out of band at startup (dealt by whatever process stood up the peer
// set — outside the scope of the core, same as spec.md leaves peer set
// bootstrapping to the host).
type KeyShare struct {
	Public    *share.PubPoly
	Private   *share.PriShare
	Threshold int
	NumPeers  int
}

// SignAccept produces a's partial threshold signature over the canonical
// encoding of its (ProposalHash, Height, Skips) triple and stores it in
// a.Signature. Callers do this once per locally-produced Accept before
// emitting it, when Config.RequireSignedAccepts is set.
func SignAccept(ks KeyShare, a *types.Accept) error {
	msg := tripleBytes(a.Triple())
	sig, err := tbls.Sign(Suite, ks.Private, msg)
	if err != nil {
		return err
	}
	a.Signature = sig
	return nil
}

// VerifyPartial checks a's partial signature against ks's public
// commitment, without needing the other shares. Used to reject malformed
// or forged accepts before they are handed to a Collector.
func VerifyPartial(ks KeyShare, a *types.Accept) error {
	msg := tripleBytes(a.Triple())
	return tbls.Verify(Suite, ks.Public, msg, a.Signature)
}

// Cert is a recovered group signature over a triple, proof that at least
// quorum distinct peers signed it.
type Cert struct {
	Triple    types.Triple
	Signature []byte
}

// Collector accumulates partial signatures for triples until threshold is
// reached, then recovers the group signature. One Collector instance is
// enough for the engine's whole lifetime; recovered triples are dropped
// after DropBelow the same way accept.Register is.
type Collector struct {
	ks     KeyShare
	quorum int

	partials map[types.Triple][]partial
	done     map[types.Triple]bool
}

type partial struct {
	from types.PeerID
	sig  []byte
}

// NewCollector builds a Collector requiring quorum partials to recover.
func NewCollector(ks KeyShare, quorum int) *Collector {
	return &Collector{
		ks:       ks,
		quorum:   quorum,
		partials: make(map[types.Triple][]partial),
		done:     make(map[types.Triple]bool),
	}
}

// Add records a's partial signature. It returns a non-nil *Cert exactly
// once per triple, the moment the threshold is first reached — mirroring
// accept.Register.Record's report-once-at-quorum contract.
func (c *Collector) Add(a *types.Accept) (*Cert, error) {
	t := a.Triple()
	if c.done[t] {
		return nil, nil
	}

	for _, p := range c.partials[t] {
		if p.from == a.From {
			return nil, nil
		}
	}
	c.partials[t] = append(c.partials[t], partial{from: a.From, sig: a.Signature})

	if len(c.partials[t]) < c.quorum {
		return nil, nil
	}

	sigs := make([][]byte, len(c.partials[t]))
	for i, p := range c.partials[t] {
		sigs[i] = p.sig
	}
	msg := tripleBytes(t)
	group, err := tbls.Recover(Suite, c.ks.Public, msg, sigs, c.quorum, c.ks.NumPeers)
	if err != nil {
		return nil, err
	}

	c.done[t] = true
	delete(c.partials, t)
	return &Cert{Triple: t, Signature: group}, nil
}

// DropBelow forgets in-progress partials for triples at or below height,
// called after a commit or sync_complete the same as accept.Register.
func (c *Collector) DropBelow(height uint64) {
	for t := range c.partials {
		if t.Height <= height {
			delete(c.partials, t)
		}
	}
	for t := range c.done {
		if t.Height <= height {
			delete(c.done, t)
		}
	}
}

// VerifyCert checks a recovered group signature against ks's public
// commitment. A host persisting committed blocks alongside their Cert
// calls this to confirm the quorum genuinely signed off before trusting
// the record.
func VerifyCert(ks KeyShare, cert *Cert) error {
	msg := tripleBytes(cert.Triple)
	return bls.Verify(Suite, ks.Public.Commit(), msg, cert.Signature)
}

func tripleBytes(t types.Triple) []byte {
	buf := make([]byte, 0, 8+8+types.HashSize)
	buf = appendUint64(buf, t.Height)
	buf = appendUint64(buf, t.Skips)
	buf = append(buf, t.Hash[:]...)
	return buf
}

func appendUint64(buf []byte, v uint64) []byte {
	for i := 0; i < 8; i++ {
		buf = append(buf, byte(v>>(56-8*i)))
	}
	return buf
}
