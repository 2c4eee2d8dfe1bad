// Package p2p wires an engine.Inbox to real peers over
// github.com/tendermint/tendermint/p2p: a Reactor with two channels
// (ProposalChannel, AcceptChannel), marshaling messages with
// github.com/tendermint/tendermint/libs/json exactly as the teacher's
// consensus.Reactor does for its ProposalChannel/VoteChannel.
//
// Grounded on consensus/reactor.go: same BaseReactor embedding,
// GetChannels/AddPeer/Receive shape, same tmjson.Marshal/Unmarshal wire
// format, same "validate then push onto an internal queue" Receive body —
// here the queue is engine.Inbox instead of ConsensusState's
// peerMsgQueue, and outbound broadcast/unicast is driven by
// network.Pump rather than an eventSwitch subscription. The peer table
// also follows consensus/reactor.go's lead: AddPeer/RemovePeer fire from
// the switch's own peer-lifecycle goroutines while SendAccept is called
// from whatever goroutine drives the engine, so it is a
// github.com/tendermint/tendermint/libs/cmap.CMap rather than a bare map.
package p2p

import (
	"fmt"

	"github.com/tendermint/tendermint/libs/cmap"
	tmjson "github.com/tendermint/tendermint/libs/json"
	"github.com/tendermint/tendermint/p2p"

	"github.com/polybase/solid/engine"
	"github.com/polybase/solid/types"
)

const (
	// ProposalChannel carries InProposal messages.
	ProposalChannel = byte(0x21)
	// AcceptChannel carries InAccept messages.
	AcceptChannel = byte(0x22)

	maxMsgSize = 1 << 20
)

// Reactor implements p2p.Reactor, forwarding InProposal/InAccept messages
// off the wire into an engine.Inbox and knowing how to reach a peer by
// PeerID for unicast accepts.
type Reactor struct {
	p2p.BaseReactor

	self  types.PeerID
	inbox *engine.Inbox

	// byPeerID maps a types.PeerID (as its string form) to the connected
	// p2p.Peer. AddPeer/RemovePeer are called from the switch's peer
	// goroutines while SendAccept is called from the engine's own
	// goroutine, so this needs cmap's built-in locking rather than a
	// bare map (consensus/reactor.go's Reactor.peers has the same
	// concurrent-access shape for the same reason).
	byPeerID *cmap.CMap
}

// NewReactor builds a Reactor that feeds in and records self as its own
// id (self is stored but not read by the Reactor; the wire protocol
// doesn't need it).
func NewReactor(self types.PeerID, in *engine.Inbox) *Reactor {
	r := &Reactor{self: self, inbox: in, byPeerID: cmap.NewCMap()}
	r.BaseReactor = *p2p.NewBaseReactor("Solid", r)
	return r
}

// GetChannels is p2p.Reactor.GetChannels.
func (r *Reactor) GetChannels() []*p2p.ChannelDescriptor {
	return []*p2p.ChannelDescriptor{
		{ID: ProposalChannel, Priority: 10, SendQueueCapacity: 100, RecvBufferCapacity: maxMsgSize},
		{ID: AcceptChannel, Priority: 10, SendQueueCapacity: 100, RecvBufferCapacity: maxMsgSize},
	}
}

// AddPeer is p2p.Reactor.AddPeer.
func (r *Reactor) AddPeer(peer p2p.Peer) {
	id := types.NewPeerID([]byte(peer.ID()))
	r.byPeerID.Set(string(id), peer)
}

// RemovePeer is p2p.Reactor.RemovePeer.
func (r *Reactor) RemovePeer(peer p2p.Peer, reason interface{}) {
	id := types.NewPeerID([]byte(peer.ID()))
	r.byPeerID.Delete(string(id))
}

// Receive is p2p.Reactor.Receive: unmarshal the wire message and push it
// onto the inbox for the engine's own goroutine to consume.
func (r *Reactor) Receive(chID byte, src p2p.Peer, msgBytes []byte) {
	switch chID {
	case ProposalChannel:
		var m types.ProposalManifest
		if err := tmjson.Unmarshal(msgBytes, &m); err != nil {
			r.Logger.Error("unmarshal proposal failed", "err", err, "src", src.ID())
			return
		}
		r.inbox.SubmitProposal(&m)

	case AcceptChannel:
		var a types.Accept
		if err := tmjson.Unmarshal(msgBytes, &a); err != nil {
			r.Logger.Error("unmarshal accept failed", "err", err, "src", src.ID())
			return
		}
		r.inbox.SubmitAccept(&a)

	default:
		r.Logger.Error(fmt.Sprintf("unknown channel %X", chID))
	}
}

// BroadcastProposal is network.Network.BroadcastProposal.
func (r *Reactor) BroadcastProposal(m *types.ProposalManifest) error {
	b, err := tmjson.Marshal(m)
	if err != nil {
		return err
	}
	r.Switch.Broadcast(ProposalChannel, b)
	return nil
}

// SendAccept is network.Network.SendAccept.
func (r *Reactor) SendAccept(to types.PeerID, a *types.Accept) error {
	v := r.byPeerID.Get(string(to))
	peer, ok := v.(p2p.Peer)
	if !ok {
		return fmt.Errorf("p2p: no connected peer for %s", to)
	}
	b, err := tmjson.Marshal(a)
	if err != nil {
		return err
	}
	if !peer.Send(AcceptChannel, b) {
		return fmt.Errorf("p2p: send to %s failed", to)
	}
	return nil
}
