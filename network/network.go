// Package network defines the host transport contract Solid's engine
// events are pumped through (spec.md §1, "the peer-to-peer transport
// [is] out of scope" for the core; §6 lists it as an external
// collaborator). The core itself never touches a Network — hosts drain
// engine.OutEvent and call it, and feed inbound wire messages into an
// engine.Inbox.
package network

import (
	"github.com/polybase/solid/engine"
	"github.com/polybase/solid/types"
)

// Network sends this node's outbound proposals and accepts to peers.
// Implementations decide how "broadcast" and "unicast" actually reach the
// wire; the core only ever asks for these two operations (spec.md §6,
// "Outbound events: OutProposal (broadcast), OutAccept(to, accept)
// (unicast)").
type Network interface {
	// BroadcastProposal sends m to every peer.
	BroadcastProposal(m *types.ProposalManifest) error

	// SendAccept unicasts a to the peer identified by to.
	SendAccept(to types.PeerID, a *types.Accept) error
}

// Pump drains out and dispatches each OutProposal to net.BroadcastProposal
// and each OutAccept to net.SendAccept, ignoring every other event kind —
// callers still need to observe OutCommit/OutOutOfSync/etc. themselves,
// typically via a fan-out that also feeds a separate channel before
// events reach Pump. Pump returns when out is closed.
func Pump(out <-chan engine.OutEvent, net Network, onError func(err error, event string)) {
	for ev := range out {
		var err error
		switch e := ev.(type) {
		case engine.OutProposal:
			err = net.BroadcastProposal(e.Manifest)
			if err != nil {
				report(onError, err, "broadcast_proposal")
			}
		case engine.OutAccept:
			err = net.SendAccept(e.To, e.Accept)
			if err != nil {
				report(onError, err, "send_accept")
			}
		}
	}
}

func report(onError func(err error, event string), err error, event string) {
	if onError != nil {
		onError(err, event)
	}
}

// Tee duplicates every event off in onto two output channels, closing
// both when in closes. Hosts that need more than network delivery per
// event (store commits, metrics, an rpc feed) run one branch through Pump
// and consume the other themselves, rather than racing two independent
// readers against the same channel.
func Tee(in <-chan engine.OutEvent) (a, b <-chan engine.OutEvent) {
	chA := make(chan engine.OutEvent, cap(in))
	chB := make(chan engine.OutEvent, cap(in))
	go func() {
		defer close(chA)
		defer close(chB)
		for ev := range in {
			chA <- ev
			chB <- ev
		}
	}()
	return chA, chB
}
