// Package node assembles a single, p2p-networked Solid node: transport,
// switch, reactor, engine, store and rpc server, all started and stopped
// together.
//
// Grounded on the teacher's node.go (createTransport/createSwitch/
// makeNodeInfo/NewNode/OnStart/OnStop), generalized from a single fixed
// "CONSENSUS" test reactor to network/p2p.Reactor carrying Solid's own
// wire messages, and from a Tendermint p2p.Switch config to the reduced
// set soliddemo actually needs (no PEX, no persistent-peer reconnection
// beyond the initial dial).
package node

import (
	"context"
	"fmt"

	tmcfg "github.com/tendermint/tendermint/config"
	"github.com/tendermint/tendermint/libs/log"
	"github.com/tendermint/tendermint/p2p"
	"github.com/tendermint/tendermint/p2p/conn"
	"github.com/tendermint/tendermint/version"

	"github.com/polybase/solid/engine"
	"github.com/polybase/solid/network"
	solidp2p "github.com/polybase/solid/network/p2p"
	"github.com/polybase/solid/rpc"
	"github.com/polybase/solid/store"
	"github.com/polybase/solid/types"
)

// ProposalChannel/AcceptChannel are announced in NodeInfo so peers admit
// the connection; the actual channel descriptors come from the reactor.
var channels = []byte{solidp2p.ProposalChannel, solidp2p.AcceptChannel}

// Node runs one Solid peer: the p2p transport/switch carrying consensus
// traffic, the engine consuming it, the store persisting commits, and an
// rpc.Server exposing status.
type Node struct {
	logger log.Logger

	nodeKey   *p2p.NodeKey
	transport *p2p.MultiplexTransport
	sw        *p2p.Switch
	reactor   *solidp2p.Reactor

	engine *engine.Engine
	inbox  *engine.Inbox
	out    chan engine.OutEvent

	store   store.Store
	rpc     *rpc.Server
	metrics *rpc.Metrics

	digest types.Digest

	listenAddr string
	rpcAddr    string
}

// New builds a Node. cfg must already have Peers/SelfID resolved
// (config.Config.EngineConfig); nodeKey identifies this process on the
// p2p wire, independent of the consensus-level PeerID cfg.SelfID carries.
func New(cfg engine.Config, nodeKey *p2p.NodeKey, st store.Store, mempool engine.TxSource, listenAddr, rpcAddr string, logger log.Logger) (*Node, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	inbox := engine.NewInbox()
	reactor := solidp2p.NewReactor(cfg.SelfID, inbox)
	reactor.SetLogger(logger.With("module", "p2p"))

	nodeInfo := p2p.DefaultNodeInfo{
		ProtocolVersion: p2p.NewProtocolVersion(8, 11, 0),
		DefaultNodeID:   nodeKey.ID(),
		Network:         "solid",
		Version:         version.TMCoreSemVer,
		Channels:        channels,
		Moniker:         cfg.SelfID.String(),
		ListenAddr:      listenAddr,
		Other: p2p.DefaultNodeInfoOther{
			TxIndex:    "off",
			RPCAddress: rpcAddr,
		},
	}
	if err := nodeInfo.Validate(); err != nil {
		return nil, fmt.Errorf("node: invalid node info: %w", err)
	}

	transport := p2p.NewMultiplexTransport(nodeInfo, *nodeKey, conn.DefaultMConnConfig())

	sw := p2p.NewSwitch(tmcfg.DefaultP2PConfig(), transport)
	sw.SetLogger(logger.With("module", "switch"))
	sw.AddReactor("SOLID", reactor)
	sw.SetNodeInfo(nodeInfo)
	sw.SetNodeKey(nodeKey)

	digest := cfg.Digest
	if digest == nil {
		digest = types.DefaultDigest
	}

	eng := engine.New(cfg, mempool, logger.With("module", "engine"))

	metrics := rpc.NewMetrics()
	status := &engineStatus{engine: eng, sw: sw}
	rpcServer := rpc.NewServer(status, metrics, logger.With("module", "rpc"))

	return &Node{
		logger:      logger,
		nodeKey:     nodeKey,
		transport:   transport,
		sw:          sw,
		reactor:     reactor,
		engine:      eng,
		inbox:       inbox,
		out:         make(chan engine.OutEvent, 256),
		store:       st,
		rpc:         rpcServer,
		metrics:     metrics,
		digest:      digest,
		listenAddr:  listenAddr,
		rpcAddr:     rpcAddr,
	}, nil
}

// engineStatus adapts *engine.Engine and *p2p.Switch onto rpc.StatusProvider.
type engineStatus struct {
	engine *engine.Engine
	sw     *p2p.Switch
}

func (s *engineStatus) Round() engine.Round { return s.engine.Round() }
func (s *engineStatus) PeerCount() int      { return s.sw.Peers().Size() }

// Start dials the transport and switch, launches the engine's event loop,
// and tees its output onto the reactor (network.Pump) and the store/
// metrics/rpc observer (observe). persistentPeers are dialed
// asynchronously once the switch is up.
func (n *Node) Start(ctx context.Context, persistentPeers []string) error {
	addr, err := p2p.NewNetAddressString(p2p.IDAddressString(n.nodeKey.ID(), n.listenAddr))
	if err != nil {
		return err
	}
	if err := n.transport.Listen(*addr); err != nil {
		return fmt.Errorf("node: listen: %w", err)
	}
	if err := n.sw.Start(); err != nil {
		return fmt.Errorf("node: switch start: %w", err)
	}
	if len(persistentPeers) > 0 {
		if err := n.sw.DialPeersAsync(persistentPeers); err != nil {
			return fmt.Errorf("node: dial persistent peers: %w", err)
		}
	}

	netCh, obsCh := network.Tee(n.out)
	go network.Pump(netCh, n.reactor, func(err error, event string) {
		n.logger.Error("network dispatch failed", "event", event, "err", err)
	})
	go n.observe(obsCh)
	go engine.Run(n.engine, n.inbox, n.out)

	go func() {
		<-ctx.Done()
		n.Stop()
	}()

	n.logger.Info("node started", "id", n.nodeKey.ID(), "listen", n.listenAddr, "rpc", n.rpcAddr)
	return nil
}

// observe drains the non-network branch of the engine's tee'd output:
// durable commits to the store, metrics, and the rpc event feed. The
// network branch is handled by network.Pump against n.reactor instead.
func (n *Node) observe(out <-chan engine.OutEvent) {
	for ev := range out {
		n.rpc.Broadcast(ev)

		switch e := ev.(type) {
		case engine.OutProposal:
			n.metrics.Observe("proposal", e.Manifest.Height, e.Manifest.Skips)
		case engine.OutAccept:
			n.metrics.Observe("accept", e.Accept.Height, e.Accept.Skips)
		case engine.OutCommit:
			n.metrics.Observe("commit", e.Manifest.Height, e.Manifest.Skips)
			hash := e.Manifest.Hash(n.digest)
			if err := n.store.CommitManifest(hash, e.Manifest); err != nil {
				n.logger.Error("commit to store failed", "err", err, "height", e.Manifest.Height)
			}
		case engine.OutOutOfSync:
			n.metrics.Observe("out_of_sync", e.TargetHeight, 0)
			n.logger.Info("out of sync, host recovery required", "target_height", e.TargetHeight)
		}
	}
}

// Stop tears down the switch, transport and store, in reverse order of
// Start.
func (n *Node) Stop() {
	n.inbox.Shutdown()
	n.sw.Stop()
	n.transport.Close()
	if err := n.store.Close(); err != nil {
		n.logger.Error("closing store failed", "err", err)
	}
}

// RPCHandler exposes the node's rpc.Server for the host process to attach
// to an http.Server at rpcAddr.
func (n *Node) RPCHandler() *rpc.Server { return n.rpc }

// Engine exposes the underlying engine for hosts that need to call
// ProposeTransactions directly.
func (n *Node) Engine() *engine.Engine { return n.engine }

// ID returns this node's p2p identity, the value other nodes'
// --persistent-peers dial strings (id@host:port) must name.
func (n *Node) ID() p2p.ID { return n.nodeKey.ID() }

// PeerCount reports how many peers this node's switch currently carries.
func (n *Node) PeerCount() int { return n.sw.Peers().Size() }
