// Package memnet is an in-process, byte-exact loopback Network for tests
// and the single-process devnet: every peer's inbox is a buffered Go
// channel, and Bus.Node's BroadcastProposal/SendAccept push directly onto
// the recipients' engine.Inbox — no encoding, no real I/O.
//
// Grounded on the teacher's inmemPeer/inmemory transport used by its own
// reactor tests (consensus/reactor_test.go builds a fully in-process
// Switch-based network for the same reason: exercise the state machine
// without touching a socket).
package memnet

import (
	"fmt"
	"sync"

	"github.com/polybase/solid/engine"
	"github.com/polybase/solid/types"
)

// Bus wires a fixed set of peers together. Node looks up an inbox by
// PeerID and pushes proposals/accepts directly onto it.
type Bus struct {
	mtx     sync.RWMutex
	inboxes map[types.PeerID]*engine.Inbox
}

// NewBus builds an empty Bus.
func NewBus() *Bus {
	return &Bus{inboxes: make(map[types.PeerID]*engine.Inbox)}
}

// Register associates id with in, so future broadcasts/sends addressed to
// id land on it. Hosts call this once per node at startup.
func (b *Bus) Register(id types.PeerID, in *engine.Inbox) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.inboxes[id] = in
}

// Node returns a Network bound to self: BroadcastProposal fans out to
// every registered peer except self, SendAccept delivers to exactly one.
func (b *Bus) Node(self types.PeerID) *Node {
	return &Node{bus: b, self: self}
}

// Node is a Bus-backed Network for one peer.
type Node struct {
	bus  *Bus
	self types.PeerID
}

// BroadcastProposal delivers m to every peer registered on the bus other
// than self.
func (n *Node) BroadcastProposal(m *types.ProposalManifest) error {
	n.bus.mtx.RLock()
	defer n.bus.mtx.RUnlock()
	for id, in := range n.bus.inboxes {
		if id == n.self {
			continue
		}
		in.SubmitProposal(m)
	}
	return nil
}

// SendAccept delivers a to the inbox registered under to.
func (n *Node) SendAccept(to types.PeerID, a *types.Accept) error {
	n.bus.mtx.RLock()
	in, ok := n.bus.inboxes[to]
	n.bus.mtx.RUnlock()
	if !ok {
		return fmt.Errorf("memnet: no peer registered for %s", to)
	}
	in.SubmitAccept(a)
	return nil
}
