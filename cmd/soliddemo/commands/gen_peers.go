package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	tmrand "github.com/tendermint/tendermint/libs/rand"
)

var genPeersCount int

func init() {
	GenPeersCmd.Flags().IntVar(&genPeersCount, "count", 4, "number of peer ids to generate")
	RootCmd.AddCommand(GenPeersCmd)
}

// GenPeersCmd prints a fresh, ordered set of hex-encoded PeerIDs for a
// new cluster, the Solid-scoped counterpart to the teacher's
// GenNodeKeyCmd (which generates one p2p identity and prints its ID).
// Solid's PeerID carries no cryptographic meaning to the core (spec.md
// §6: "opaque, host-defined"), so devnet/testing peers are just random
// byte strings rather than derived from a keypair.
var GenPeersCmd = &cobra.Command{
	Use:   "gen-peers",
	Short: "Generate a fresh ordered peer set for a new cluster",
	RunE:  genPeers,
}

func genPeers(cmd *cobra.Command, args []string) error {
	if genPeersCount <= 0 {
		return fmt.Errorf("gen-peers: --count must be positive")
	}
	for i := 0; i < genPeersCount; i++ {
		id := tmrand.Bytes(20)
		fmt.Println(hex.EncodeToString(id))
	}
	return nil
}
