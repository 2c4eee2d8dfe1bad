// Package commands holds soliddemo's Cobra command tree: init, gen-peers,
// devnet and start, mirroring the shape of the teacher's cmd/commands
// package (InitFilesCmd, GenNodeKeyCmd, GenGenesisCmd, NewRunNodeCmd)
// adapted from Tendermint's *cfg.Config to Solid's own config.Config.
package commands

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	tmlog "github.com/tendermint/tendermint/libs/log"

	"github.com/polybase/solid/config"
	"github.com/polybase/solid/logging"
)

// RootCmd is soliddemo's entrypoint command, assembled by main.go.
var RootCmd = &cobra.Command{
	Use:   "soliddemo",
	Short: "Run or bootstrap a Solid consensus node or devnet",
}

var (
	v          = viper.New()
	cfgFile    string
	rootLogger tmlog.Logger
)

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a soliddemo config file (toml/yaml/json)")
	// config.AddFlags registers --log-level itself (bound through to
	// Config.LogLevel); read it back here rather than declaring a second
	// flag of the same name on the same FlagSet.
	config.AddFlags(RootCmd, v)

	cobra.OnInitialize(func() {
		level, err := RootCmd.PersistentFlags().GetString("log-level")
		if err != nil {
			level = "info"
		}
		logger, err := logging.New(level, os.Stdout)
		if err != nil {
			logger, _ = logging.New("info", os.Stdout)
		}
		rootLogger = logger
	})
}

// loadConfig reads soliddemo's config the same way for every subcommand
// that needs a fully resolved node: config file (if --config was given),
// SOLID_ environment overrides, then bound flags, in that precedence
// order (config.Load's viper instance handles the merge).
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
