package rpc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/polybase/solid/rpc"
)

func TestObserveUpdatesCountersAndGauges(t *testing.T) {
	m := rpc.NewMetrics()

	m.Observe("proposal", 5, 1)
	m.Observe("commit", 5, 1)
	m.Observe("commit", 6, 0)

	snap := m.Snapshot()
	assert.EqualValues(t, 1, snap["solid_proposals_seen"])
	assert.EqualValues(t, 2, snap["solid_commits"])
	assert.EqualValues(t, 6, snap["solid_height"])
	assert.EqualValues(t, 0, snap["solid_skip"])
}

func TestObserveUnknownKindStillUpdatesGauges(t *testing.T) {
	m := rpc.NewMetrics()
	m.Observe("nonsense", 3, 2)

	snap := m.Snapshot()
	assert.EqualValues(t, 3, snap["solid_height"])
	assert.EqualValues(t, 2, snap["solid_skip"])
	assert.EqualValues(t, 0, snap["solid_commits"])
}
