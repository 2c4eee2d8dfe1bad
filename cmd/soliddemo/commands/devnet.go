package commands

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/polybase/solid/engine"
	"github.com/polybase/solid/mempool"
	"github.com/polybase/solid/network"
	"github.com/polybase/solid/network/memnet"
	"github.com/polybase/solid/rpc"
	"github.com/polybase/solid/store/leveldb"
	"github.com/polybase/solid/types"
)

var (
	devnetN            int
	devnetRoundTimeout time.Duration
	devnetRPCBase      int
	devnetDataDir      string
)

func init() {
	DevnetCmd.Flags().IntVar(&devnetN, "n", 4, "number of nodes in the devnet")
	DevnetCmd.Flags().DurationVar(&devnetRoundTimeout, "round-timeout", 2*time.Second, "round timeout for every node")
	DevnetCmd.Flags().IntVar(&devnetRPCBase, "rpc-base-port", 26701, "first rpc port; node i listens on rpc-base-port+i")
	DevnetCmd.Flags().StringVar(&devnetDataDir, "data-dir", "", "directory for per-node leveldb stores (temp dir if empty)")
	RootCmd.AddCommand(DevnetCmd)
}

// DevnetCmd runs n Solid nodes in one process, wired together over
// network/memnet instead of real sockets, the single-binary devnet
// SPEC_FULL.md's cmd/soliddemo component names, grounded on
// consensus/reactor_test.go's in-process multi-reactor harness but run as
// a long-lived process instead of a bounded test.
var DevnetCmd = &cobra.Command{
	Use:   "devnet",
	Short: "Run an N-node in-process devnet over an in-memory network",
	RunE:  runDevnet,
}

type devnetNode struct {
	id      types.PeerID
	engine  *engine.Engine
	inbox   *engine.Inbox
	out     chan engine.OutEvent
	store   *leveldb.Store
	metrics *rpc.Metrics
	rpc     *rpc.Server
	rpcAddr string
}

func runDevnet(cmd *cobra.Command, args []string) error {
	if devnetN < 1 {
		return fmt.Errorf("devnet: -n must be at least 1")
	}

	dataDir := devnetDataDir
	if dataDir == "" {
		tmp, err := os.MkdirTemp("", "soliddemo-devnet-")
		if err != nil {
			return err
		}
		dataDir = tmp
		fmt.Println("data dir:", dataDir)
	}

	peers := make(types.PeerSet, devnetN)
	for i := range peers {
		peers[i] = types.NewPeerID([]byte{byte(i + 1)})
	}

	bus := memnet.NewBus()
	nodes := make([]*devnetNode, devnetN)

	for i := 0; i < devnetN; i++ {
		self := peers[i]
		logger := rootLogger.With("node", self.String())

		st, err := leveldb.Open(fmt.Sprintf("%s/node-%d", dataDir, i), logger)
		if err != nil {
			return fmt.Errorf("devnet: open store for node %d: %w", i, err)
		}

		hash, height, err := st.LastConfirmed()
		if err != nil {
			return err
		}
		var genesis *engine.Genesis
		if height > 0 {
			genesis = &engine.Genesis{Hash: hash, Height: height}
		}

		cfg := engine.Config{
			Peers:           peers,
			SelfID:          self,
			RoundTimeout:    devnetRoundTimeout,
			Genesis:         genesis,
			MaxProposalTxns: 500,
		}

		mp := mempool.New()
		eng := engine.New(cfg, mp, logger)
		inbox := engine.NewInbox()
		bus.Register(self, inbox)

		metrics := rpc.NewMetrics()
		status := &engineOnlyStatus{engine: eng, peerCount: devnetN - 1}
		rpcAddr := fmt.Sprintf("127.0.0.1:%d", devnetRPCBase+i)
		server := rpc.NewServer(status, metrics, logger)

		nodes[i] = &devnetNode{
			id:      self,
			engine:  eng,
			inbox:   inbox,
			out:     make(chan engine.OutEvent, 256),
			store:   st,
			metrics: metrics,
			rpc:     server,
			rpcAddr: rpcAddr,
		}
	}

	httpServers := make([]*http.Server, devnetN)
	for i, n := range nodes {
		net := bus.Node(n.id)
		go devnetDispatch(n, net)
		go engine.Run(n.engine, n.inbox, n.out)

		srv := &http.Server{Addr: n.rpcAddr, Handler: n.rpc.Handler()}
		httpServers[i] = srv
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				rootLogger.Error("rpc server failed", "err", err)
			}
		}()
		rootLogger.Info("devnet node up", "id", n.id.String(), "rpc", n.rpcAddr)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	rootLogger.Info("shutting down devnet")

	for i, n := range nodes {
		n.inbox.Shutdown()
		_ = httpServers[i].Close()
		_ = n.store.Close()
	}
	return nil
}

// devnetDispatch drains one node's output channel exactly once per event,
// forwarding to the memnet bus and updating metrics/rpc in the same pass —
// splitting this across two independent readers of n.out would race each
// event to whichever goroutine happened to receive it first.
func devnetDispatch(n *devnetNode, net network.Network) {
	for ev := range n.out {
		n.rpc.Broadcast(ev)

		var err error
		switch e := ev.(type) {
		case engine.OutProposal:
			n.metrics.Observe("proposal", e.Manifest.Height, e.Manifest.Skips)
			err = net.BroadcastProposal(e.Manifest)
		case engine.OutAccept:
			n.metrics.Observe("accept", e.Accept.Height, e.Accept.Skips)
			err = net.SendAccept(e.To, e.Accept)
		case engine.OutCommit:
			n.metrics.Observe("commit", e.Manifest.Height, e.Manifest.Skips)
			hash := e.Manifest.Hash(types.DefaultDigest)
			if cerr := n.store.CommitManifest(hash, e.Manifest); cerr != nil {
				rootLogger.Error("devnet commit to store failed", "node", n.id.String(), "err", cerr)
			}
		case engine.OutOutOfSync:
			n.metrics.Observe("out_of_sync", e.TargetHeight, 0)
		}
		if err != nil {
			rootLogger.Error("devnet dispatch failed", "node", n.id.String(), "err", err)
		}
	}
}

type engineOnlyStatus struct {
	engine    *engine.Engine
	peerCount int
}

func (s *engineOnlyStatus) Round() engine.Round { return s.engine.Round() }
func (s *engineOnlyStatus) PeerCount() int      { return s.peerCount }
