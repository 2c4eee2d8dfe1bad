// Command soliddemo boots a Solid consensus node or an in-process
// devnet, grounded on the teacher's cmd/main.go (RootCmd assembly,
// NewRunNodeCmd(nodeFunc) wiring a *node.Node the same way DefaultNewNode
// wires a Tendermint one).
package main

import (
	"fmt"
	"os"

	"github.com/tendermint/tendermint/libs/cli"

	"github.com/polybase/solid/cmd/soliddemo/commands"
)

func main() {
	root := cli.PrepareBaseCmd(commands.RootCmd, "SOLID", os.ExpandEnv("$HOME/.soliddemo"))
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
