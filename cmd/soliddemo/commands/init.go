package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/polybase/solid/config"
)

var initOut string

func init() {
	InitCmd.Flags().StringVar(&initOut, "out", "solid.toml", "path to write the generated config file")
	RootCmd.AddCommand(InitCmd)
}

// InitCmd writes a config file for one node of a cluster, grounded on
// the teacher's initFiles (cmd/commands/init.go): where that command
// generates a private-validator key, a node key and a genesis file on
// disk, InitCmd generates the equivalent for Solid — a config file
// naming the peer set and this node's place in it. Every other option is
// written at its DefaultConfig value, including network = "memnet", which
// `start` rejects until the file is edited to network = "p2p".
var InitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a soliddemo config file for one cluster member",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	peers, err := cmd.Flags().GetStringSlice("peers")
	if err != nil {
		return err
	}
	selfID, err := cmd.Flags().GetString("self-id")
	if err != nil {
		return err
	}

	def := config.DefaultConfig()
	def.Peers = peers
	def.SelfID = selfID

	if err := def.Validate(); err != nil {
		return err
	}

	out := viper.New()
	out.SetConfigType("toml")
	out.Set("chain_id", def.ChainID)
	out.Set("data_dir", def.DataDir)
	out.Set("listen_addr", def.ListenAddr)
	out.Set("rpc_addr", def.RPCAddr)
	out.Set("network", def.Network)
	out.Set("log_level", def.LogLevel)
	out.Set("peers", def.Peers)
	out.Set("self_id", def.SelfID)
	out.Set("round_timeout_ms", def.RoundTimeoutMS)
	out.Set("max_proposal_txns", def.MaxProposalTxns)
	out.Set("require_signed_accepts", def.RequireSignedAccepts)

	if err := out.SafeWriteConfigAs(initOut); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	fmt.Println("wrote", initOut)
	return nil
}
