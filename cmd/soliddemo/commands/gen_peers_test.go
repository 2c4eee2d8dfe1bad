package commands

import (
	"bufio"
	"encoding/hex"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureStdout(t *testing.T, fn func()) []string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()
	require.NoError(t, w.Close())

	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func TestGenPeersPrintsDistinctHexIDs(t *testing.T) {
	genPeersCount = 5
	lines := captureStdout(t, func() {
		require.NoError(t, genPeers(GenPeersCmd, nil))
	})

	require.Len(t, lines, 5)
	seen := make(map[string]bool)
	for _, line := range lines {
		b, err := hex.DecodeString(line)
		require.NoError(t, err)
		assert.Len(t, b, 20)
		assert.False(t, seen[line], "gen-peers printed a duplicate id")
		seen[line] = true
	}
}

func TestGenPeersRejectsNonPositiveCount(t *testing.T) {
	genPeersCount = 0
	err := genPeers(GenPeersCmd, nil)
	assert.Error(t, err)
}

func TestSplitAndTrimIgnoresBlankEntries(t *testing.T) {
	got := splitAndTrim(" a@1:1 , , b@2:2,")
	assert.Equal(t, []string{"a@1:1", "b@2:2"}, got)
}

func TestSplitAndTrimEmptyStringIsNil(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
}
