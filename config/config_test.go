package config_test

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polybase/solid/config"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "solid.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAppliesDefaultsWhenFileOmitsFields(t *testing.T) {
	path := writeConfigFile(t, `
peers = ["01", "02", "03"]
self_id = "02"
`)
	cfg, err := config.Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "solid-devnet", cfg.ChainID)
	assert.Equal(t, "memnet", cfg.Network)
	assert.EqualValues(t, 2000, cfg.RoundTimeoutMS)
	assert.Equal(t, []string{"01", "02", "03"}, cfg.Peers)
}

func TestValidateRejectsSelfIDNotInPeers(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Peers = []string{"01", "02"}
	cfg.SelfID = "ff"

	err := cfg.Validate()
	assert.Error(t, err)
}

func TestValidateRejectsUnknownNetwork(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Peers = []string{"01"}
	cfg.SelfID = "01"
	cfg.Network = "carrier-pigeon"

	err := cfg.Validate()
	assert.Error(t, err)
}

func TestPeerSetAndSelfDecodeHex(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Peers = []string{"01", "02", "03"}
	cfg.SelfID = "02"

	peers, err := cfg.PeerSet()
	require.NoError(t, err)
	require.Len(t, peers, 3)
	assert.Equal(t, []byte{0x02}, peers[1].Bytes())

	self, err := cfg.Self()
	require.NoError(t, err)
	assert.Equal(t, peers[1], self)
}

func TestEngineConfigBuildsFromDecodedPeers(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Peers = []string{"01", "02", "03"}
	cfg.SelfID = "01"
	cfg.RoundTimeoutMS = 500

	ec, err := cfg.EngineConfig(nil)
	require.NoError(t, err)
	assert.Len(t, ec.Peers, 3)
	assert.Equal(t, cfg.RoundTimeoutMS, ec.RoundTimeout.Milliseconds())
	assert.Nil(t, ec.Genesis)
}

func TestGenesisRejectsBadHash(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.GenesisHash = hex.EncodeToString([]byte("too short"))
	cfg.GenesisHeight = 5

	_, err := cfg.Genesis()
	assert.Error(t, err)
}
