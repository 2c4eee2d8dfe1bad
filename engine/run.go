package engine

import (
	"github.com/polybase/solid/types"
)

// syncCompleteMsg carries the payload of a SyncComplete host command
// through the inbox channel.
type syncCompleteMsg struct {
	hash   types.ProposalHash
	height uint64
}

// Inbox is the merged stream of {inbound message, timer tick, host
// command} spec.md §5 describes the event loop as consuming. Hosts feed
// it serially; Run is the only reader.
type Inbox struct {
	proposals chan *types.ProposalManifest
	accepts   chan *types.Accept
	txns      chan []types.Txn
	sync      chan syncCompleteMsg
	quit      chan struct{}
}

// NewInbox builds an Inbox with reasonably sized buffers so a bursty
// transport does not block on a slow-draining engine goroutine.
func NewInbox() *Inbox {
	return &Inbox{
		proposals: make(chan *types.ProposalManifest, 64),
		accepts:   make(chan *types.Accept, 256),
		txns:      make(chan []types.Txn, 16),
		sync:      make(chan syncCompleteMsg, 1),
		quit:      make(chan struct{}),
	}
}

// SubmitProposal enqueues an inbound proposal.
func (i *Inbox) SubmitProposal(m *types.ProposalManifest) { i.proposals <- m }

// Proposals exposes the raw proposal channel for hosts that drive the
// engine from their own select loop instead of calling Run, and for tests
// that need to observe delivery without a full engine attached.
func (i *Inbox) Proposals() <-chan *types.ProposalManifest { return i.proposals }

// Accepts exposes the raw accept channel, the counterpart to Proposals.
func (i *Inbox) Accepts() <-chan *types.Accept { return i.accepts }

// SubmitAccept enqueues an inbound accept.
func (i *Inbox) SubmitAccept(a *types.Accept) { i.accepts <- a }

// SubmitTransactions enqueues a host-supplied transaction payload.
func (i *Inbox) SubmitTransactions(txns []types.Txn) { i.txns <- txns }

// SubmitSyncComplete enqueues the host's response to OutOutOfSync.
func (i *Inbox) SubmitSyncComplete(hash types.ProposalHash, height uint64) {
	i.sync <- syncCompleteMsg{hash: hash, height: height}
}

// Shutdown stops Run's loop. Safe to call once.
func (i *Inbox) Shutdown() { close(i.quit) }

// Run drives e from in until Shutdown is called, forwarding every
// resulting OutEvent to out. Grounded on the teacher's
// ConsensusState.recieveRoutine (consensus/state.go): one select loop
// over peer messages, internal messages and the round timer, dispatching
// to the corresponding handler and never processing two events
// concurrently — the discipline spec.md §5 requires of the core.
func Run(e *Engine, in *Inbox, out chan<- OutEvent) {
	emit := func(events []OutEvent) {
		for _, ev := range events {
			out <- ev
		}
	}

	emit(e.Start())

	for {
		select {
		case <-in.quit:
			e.Shutdown()
			return

		case m := <-in.proposals:
			emit(e.HandleProposal(m))

		case a := <-in.accepts:
			emit(e.HandleAccept(a))

		case txns := <-in.txns:
			e.ProposeTransactions(txns)

		case sc := <-in.sync:
			emit(e.SyncComplete(sc.hash, sc.height))

		case <-e.TimeoutChan():
			emit(e.Tick())
		}
	}
}
