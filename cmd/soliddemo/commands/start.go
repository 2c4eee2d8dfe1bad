package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	rpchttp "net/http"

	"github.com/spf13/cobra"
	"github.com/tendermint/tendermint/p2p"

	"github.com/polybase/solid/engine"
	"github.com/polybase/solid/mempool"
	"github.com/polybase/solid/node"
	"github.com/polybase/solid/store/leveldb"
)

var persistentPeers string

func init() {
	StartCmd.Flags().StringVar(&persistentPeers, "persistent-peers", "", "comma-separated id@host:port peers to dial on startup")
	RootCmd.AddCommand(StartCmd)
}

// StartCmd runs a single, real p2p-networked Solid node, the counterpart
// to the teacher's NewRunNodeCmd(nodeFunc) — DefaultNewNode there builds
// exactly the node/store/reactor stack node.New builds here, just for
// Solid's own engine instead of Tendermint's full blockchain stack.
var StartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run a single Solid node over real p2p networking",
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Network != "p2p" {
		return fmt.Errorf("start: config network is %q, want \"p2p\" (use the devnet command for memnet)", cfg.Network)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("start: create data dir: %w", err)
	}

	st, err := leveldb.Open(filepath.Join(cfg.DataDir, "store"), rootLogger)
	if err != nil {
		return fmt.Errorf("start: open store: %w", err)
	}

	hash, height, err := st.LastConfirmed()
	if err != nil {
		return err
	}
	var genesis *engine.Genesis
	if height > 0 {
		genesis = &engine.Genesis{Hash: hash, Height: height}
	}
	engineCfg, err := cfg.EngineConfig(genesis)
	if err != nil {
		return err
	}

	nodeKeyFile := filepath.Join(cfg.DataDir, "node_key.json")
	nodeKey, err := p2p.LoadOrGenNodeKey(nodeKeyFile)
	if err != nil {
		return fmt.Errorf("start: node key: %w", err)
	}

	mp := mempool.New()
	n, err := node.New(engineCfg, nodeKey, st, mp, cfg.ListenAddr, cfg.RPCAddr, rootLogger)
	if err != nil {
		return fmt.Errorf("start: build node: %w", err)
	}

	peers := splitAndTrim(persistentPeers)
	if err := n.Start(cmd.Context(), peers); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	rpcServer := &rpchttp.Server{Addr: cfg.RPCAddr, Handler: n.RPCHandler().Handler()}
	go func() {
		if err := rpcServer.ListenAndServe(); err != nil && err != rpchttp.ErrServerClosed {
			rootLogger.Error("rpc server failed", "err", err)
		}
	}()

	rootLogger.Info("solid node running", "config", cfg.String())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	_ = rpcServer.Close()
	n.Stop()
	return nil
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
