// Package engine implements Solid's event loop (spec.md §4.4): the
// single-threaded state machine that consumes inbound proposals, accepts
// and timer ticks, mutates the Proposal and Accept Registers, and emits
// outbound events.
//
// Grounded on the teacher's ConsensusState.recieveRoutine
// (consensus/state.go), which serially drains peerMsgQueue,
// internalMsgQueue and the slot-clock channel through one select loop and
// dispatches to handleMsg/handleTimeOut. Run (run.go) reproduces that shape
// with Solid's three inbound channels (proposals, accepts, host commands)
// plus the round timer. The transition logic itself (round entry, commit,
// promotion, out-of-sync) is grounded on the original Solid source's
// ProposalStore (store.rs: process_next/skip/add_accept), adapted to the
// literal (height, skips) round semantics described in the written
// specification rather than store.rs's slightly different bootstrapping
// details — see DESIGN.md for the specific departures.
package engine

import (
	"github.com/tendermint/tendermint/libs/log"

	"github.com/polybase/solid/accept"
	"github.com/polybase/solid/leader"
	"github.com/polybase/solid/quorumcert"
	"github.com/polybase/solid/register"
	"github.com/polybase/solid/timeout"
	"github.com/polybase/solid/types"
)

// TxSource reaps pending transactions for inclusion in a self-produced
// proposal. *mempool.Mempool satisfies this; engines may also run with no
// TxSource, in which case ProposeTransactions feeds an internal buffer
// instead.
type TxSource interface {
	Reap(maxTxns int) []types.Txn
}

// TxRemover drops transactions once their proposal commits. *mempool.
// Mempool satisfies this in addition to TxSource.
type TxRemover interface {
	Remove(ids ...[]byte)
}

// Engine is the Solid event loop. Not safe for concurrent use directly —
// HandleProposal, HandleAccept, Tick, ProposeTransactions and SyncComplete
// must all be invoked from the same goroutine (spec.md §5, "single-
// threaded cooperative"). Run provides that serialization for hosts that
// want a background goroutine driven by channels.
type Engine struct {
	cfg    Config
	peers  types.PeerSet
	self   types.PeerID
	quorum int
	digest types.Digest

	logger log.Logger

	reg *register.Register
	acc *accept.Register

	timer *timeout.Timer

	round Round

	// proposalForRound remembers, for a round this node has seen a fresh
	// proposal for, that proposal's hash — the "received/just-proposed
	// manifest at height h" spec.md §4.4 refers to at round entry.
	proposalForRound map[Round]types.ProposalHash

	// orphanAccepts holds accepts referencing a proposal hash not yet in
	// the register, replayed once that proposal arrives (spec.md §4.4,
	// "Accepts arriving before their proposal: buffered; revalidated
	// when a matching proposal arrives").
	orphanAccepts map[types.ProposalHash][]*types.Accept

	outOfSync  bool
	syncTarget uint64

	mempool TxSource
	pending []types.Txn

	// requireSigned/keyShare/certs wire quorumcert's BLS threshold
	// signatures onto accept traffic (spec.md §9, "accept authentication
	// left to the host"). certs is nil unless RequireSignedAccepts is
	// set, in which case it mirrors acc's quorum tracking one triple at
	// a time and recovers a Cert alongside every commit.
	requireSigned bool
	keyShare      quorumcert.KeyShare
	certs         *quorumcert.Collector
}

// New builds an Engine from cfg. Call Start to perform the initial round
// entry before feeding it any events.
func New(cfg Config, mempool TxSource, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	hash, height := cfg.lastConfirmed()
	e := &Engine{
		cfg:              cfg,
		peers:            cfg.Peers,
		self:             cfg.SelfID,
		quorum:           cfg.quorum(),
		digest:           cfg.digest(),
		logger:           logger,
		reg:              register.New(cfg.digest(), hash, height),
		acc:              accept.New(cfg.quorum()),
		timer:            timeout.New(),
		proposalForRound: make(map[Round]types.ProposalHash),
		orphanAccepts:    make(map[types.ProposalHash][]*types.Accept),
		mempool:          mempool,
		requireSigned:    cfg.RequireSignedAccepts,
		keyShare:         cfg.KeyShare,
	}
	if cfg.RequireSignedAccepts {
		e.certs = quorumcert.NewCollector(cfg.KeyShare, cfg.quorum())
	}
	return e
}

// Start performs the initial round entry at (last_confirmed.height+1, 0)
// and returns whatever events that produces (an OutProposal if this node
// leads the first round, plus its own OutAccept).
func (e *Engine) Start() []OutEvent {
	_, height := e.reg.LastConfirmed()
	return e.enterRound(height+1, 0)
}

// Round reports the round the engine currently considers itself in.
func (e *Engine) Round() Round {
	return e.round
}

// TimeoutChan exposes the round timer's channel for hosts that drive the
// engine from their own select loop instead of calling Run.
func (e *Engine) TimeoutChan() <-chan struct{} {
	return e.timer.Chan()
}

// acceptRecipient is spec.md §4.4's addressing rule for an outgoing
// Accept: a real-hash accept goes to the round's own leader, the one
// process that can certify a proposal at (skips, hash) into a quorum; a
// skip-sentinel accept goes to leader_for(skips+1), the peer being
// promoted to lead the next round. Grounded on the original Solid
// source's ProposalStore::get_next_accept (store.rs), which computes
// leader_id as last_confirmed.get_next_leader(skips) for a real accept —
// the round's own leader, not skips+1.
func acceptRecipient(a *types.Accept, peers types.PeerSet) types.PeerID {
	if a.IsSkip() {
		return leader.ForSkips(a.Skips+1, peers)
	}
	return leader.ForSkips(a.Skips, peers)
}

// sign populates a.Signature with this node's partial threshold
// signature when RequireSignedAccepts is set (spec.md §9). A no-op
// otherwise, so callers can call it unconditionally on every
// locally-produced Accept before it is emitted or self-recorded.
func (e *Engine) sign(a *types.Accept) {
	if !e.requireSigned {
		return
	}
	if err := quorumcert.SignAccept(e.keyShare, a); err != nil {
		e.logger.Error("sign accept failed", "err", err, "height", a.Height, "skips", a.Skips)
	}
}

// enterRound is spec.md §4.4 "On round entry (h, s)".
func (e *Engine) enterRound(h, s uint64) []OutEvent {
	e.round = Round{Height: h, Skips: s}

	var out []OutEvent

	leaderID := leader.ForSkips(s, e.peers)
	knownHash, known := e.proposalForRound[e.round]

	if !known && leaderID == e.self {
		m := e.synthesize(h, s)
		hash, res := e.reg.Insert(m)
		if res == register.Fresh {
			e.proposalForRound[e.round] = hash
			knownHash = hash
			known = true
			out = append(out, OutProposal{Manifest: m})
		}
	}

	if !known {
		knownHash = types.SkipSentinel
	}

	e.timer.Reset(e.cfg.RoundTimeout)

	a := &types.Accept{ProposalHash: knownHash, Height: h, Skips: s, From: e.self}
	e.sign(a)
	to := acceptRecipient(a, e.peers)
	out = append(out, OutAccept{Accept: a, To: to})
	if to == e.self {
		out = append(out, e.recordAccept(a)...)
	}

	return out
}

// synthesize builds a fresh manifest for round (h, s), reaping pending
// transactions from the mempool or the internal buffer.
func (e *Engine) synthesize(h, s uint64) *types.ProposalManifest {
	lastHash, _ := e.reg.LastConfirmed()
	return &types.ProposalManifest{
		LastProposalHash: lastHash,
		Height:           h,
		Skips:            s,
		LeaderID:         e.self,
		Peers:            e.peers,
		Txns:             e.reapTxns(),
	}
}

func (e *Engine) reapTxns() []types.Txn {
	if e.mempool != nil {
		return e.mempool.Reap(e.cfg.MaxProposalTxns)
	}
	txns := e.pending
	e.pending = nil
	return txns
}

// ProposeTransactions accepts a host-supplied payload for the next
// locally produced proposal (spec.md §6, "ProposeTransactions"). It only
// has an effect when the engine was built without a TxSource, in which
// case txns are buffered until the next round this node leads.
func (e *Engine) ProposeTransactions(txns []types.Txn) {
	if e.mempool != nil {
		return
	}
	e.pending = append(e.pending, txns...)
}

// HandleProposal is spec.md §4.4 "On InProposal(m)".
func (e *Engine) HandleProposal(m *types.ProposalManifest) []OutEvent {
	hash := m.Hash(e.digest)
	_, lastHeight := e.reg.LastConfirmed()

	expectedLeader := leader.ForSkips(m.Skips, e.peers)
	if verr := e.reg.Validate(m, e.peers, expectedLeader); verr != nil {
		if verr.Kind == types.ErrOutOfDate {
			return []OutEvent{OutOutOfDate{Hash: hash}}
		}
		e.logger.Debug("dropping invalid proposal", "err", verr, "hash", hash)
		return nil
	}

	if _, res := e.reg.Insert(m); res == register.Duplicate {
		return []OutEvent{OutDuplicate{Hash: hash}}
	}

	if m.Height > lastHeight+1 {
		e.outOfSync = true
		if m.Height > e.syncTarget {
			e.syncTarget = m.Height
		}
		return []OutEvent{OutOutOfSync{TargetHeight: m.Height}}
	}

	var out []OutEvent
	round := Round{Height: m.Height, Skips: m.Skips}
	e.proposalForRound[round] = hash

	if orphans, ok := e.orphanAccepts[hash]; ok {
		delete(e.orphanAccepts, hash)
		for _, oa := range orphans {
			out = append(out, e.recordAccept(oa)...)
		}
	}

	if m.Height == e.round.Height {
		e.round.Skips = m.Skips
		a := &types.Accept{ProposalHash: hash, Height: m.Height, Skips: m.Skips, From: e.self}
		e.sign(a)
		to := acceptRecipient(a, e.peers)
		out = append(out, OutAccept{Accept: a, To: to})
		if to == e.self {
			out = append(out, e.recordAccept(a)...)
		}
	}

	return out
}

// HandleAccept is spec.md §4.3's validity check plus §4.4 "On InAccept(a)
// when self is the intended recipient".
func (e *Engine) HandleAccept(a *types.Accept) []OutEvent {
	if !e.peers.Contains(a.From) {
		e.logger.Debug("dropping accept from unknown peer", "from", a.From)
		return nil
	}

	_, lastHeight := e.reg.LastConfirmed()
	// A height at or below the last confirmed one is always for a round
	// already surpassed — including the height just committed, whose
	// accept tally was already dropped by commit's DropBelow. Letting it
	// through here would let a stale accept rebuild a fresh tally on a
	// height that can never advance again (spec.md §4.4, "Accepts
	// arriving for a round already surpassed: discarded silently").
	if a.Height <= lastHeight {
		return nil
	}
	if a.Height == e.round.Height && a.Skips < e.round.Skips {
		return nil
	}

	if e.requireSigned {
		if err := quorumcert.VerifyPartial(e.keyShare, a); err != nil {
			e.logger.Debug("dropping accept with invalid signature", "err", err, "from", a.From)
			return nil
		}
	}

	// Only the accept's addressed recipient processes it: a real-hash
	// accept is addressed to the round's own leader, a skip-sentinel one
	// to leader_for(skips+1) (see acceptRecipient).
	if acceptRecipient(a, e.peers) != e.self {
		return nil
	}

	if a.Height == lastHeight+1 && !a.IsSkip() {
		if _, ok := e.reg.Get(a.ProposalHash); !ok {
			e.orphanAccepts[a.ProposalHash] = append(e.orphanAccepts[a.ProposalHash], a)
			return nil
		}
	}

	return e.recordAccept(a)
}

// recordAccept tallies a and, if it newly reaches quorum, triggers either
// leader promotion (skip-accept) or a commit (real-hash accept).
func (e *Engine) recordAccept(a *types.Accept) []OutEvent {
	reached := e.acc.Record(a)

	if e.certs != nil {
		if cert, err := e.certs.Add(a); err != nil {
			e.logger.Error("collect partial signature failed", "err", err, "height", a.Height, "skips", a.Skips)
		} else if cert != nil {
			e.logger.Debug("recovered quorum certificate", "height", cert.Triple.Height, "skips", cert.Triple.Skips)
		}
	}

	if !reached {
		return nil
	}

	if a.IsSkip() {
		return e.enterRound(a.Height, a.Skips+1)
	}

	p, ok := e.reg.Get(a.ProposalHash)
	if !ok {
		return nil
	}
	return e.commit(p, a.ProposalHash)
}

// commit is spec.md §4.4 "On commit of p at height h".
func (e *Engine) commit(p *types.ProposalManifest, hash types.ProposalHash) []OutEvent {
	if e.outOfSync {
		return nil
	}

	e.reg.DropForks(p.Height, hash)
	e.acc.DropBelow(p.Height)
	if e.certs != nil {
		e.certs.DropBelow(p.Height)
	}
	e.reg.PruneBelow(p.Height, hash)
	e.pruneRoundsBelow(p.Height)

	if remover, ok := e.mempool.(TxRemover); ok {
		ids := make([][]byte, 0, len(p.Txns))
		for _, t := range p.Txns {
			ids = append(ids, t.ID)
		}
		remover.Remove(ids...)
	}

	out := []OutEvent{OutCommit{Manifest: p}}
	out = append(out, e.enterRound(p.Height+1, 0)...)
	return out
}

func (e *Engine) pruneRoundsBelow(height uint64) {
	for r := range e.proposalForRound {
		if r.Height <= height {
			delete(e.proposalForRound, r)
		}
	}
}

// Tick is spec.md §4.4 "On Timeout for round (h, s)". Hosts call it when
// the channel returned by TimeoutChan fires.
func (e *Engine) Tick() []OutEvent {
	h, s := e.round.Height, e.round.Skips

	var out []OutEvent
	a := &types.Accept{ProposalHash: types.SkipSentinel, Height: h, Skips: s, From: e.self}
	e.sign(a)
	to := acceptRecipient(a, e.peers)
	out = append(out, OutAccept{Accept: a, To: to})
	if to == e.self {
		out = append(out, e.recordAccept(a)...)
	}

	// Re-arm so a round that never converges keeps re-broadcasting its
	// skip-accept; liveness (spec.md §8 property 6) depends on this,
	// since nothing else would trigger a retry.
	e.timer.Reset(e.cfg.RoundTimeout)

	return out
}

// SyncComplete is spec.md §4.5 "sync_complete": the host's response to
// OutOutOfSync, restoring the engine to (hash, height) and resuming
// progress at round (height+1, 0).
func (e *Engine) SyncComplete(hash types.ProposalHash, height uint64) []OutEvent {
	e.outOfSync = false
	e.syncTarget = 0
	e.reg.PruneBelow(height, hash)
	e.acc.DropBelow(height)
	if e.certs != nil {
		e.certs.DropBelow(height)
	}
	e.pruneRoundsBelow(height)
	return e.enterRound(height+1, 0)
}

// Shutdown stops the round timer. The engine must not be used afterward.
func (e *Engine) Shutdown() {
	e.timer.Stop()
}
