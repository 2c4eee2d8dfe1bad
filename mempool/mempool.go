// Package mempool implements a pending-transaction pool that the engine
// reaps from when synthesizing a proposal (spec.md §6, "host supplies a
// payload"; not otherwise detailed by spec.md).
//
// Grounded on the teacher's ListMempool (mempool/list_mempool.go), which
// keeps transactions in a tendermint/libs/clist.CList backed by a sync.Map
// for O(1) existence checks. Generalized from Tendermint's opaque
// types.Tx/TxInfo/PreCheckFunc machinery (ABCI-oriented, out of scope
// here) down to Solid's plain types.Txn, keeping the CList for ordered,
// concurrent-safe iteration and the id-keyed map for dedup and removal.
package mempool

import (
	"sync"

	"github.com/tendermint/tendermint/libs/clist"

	"github.com/polybase/solid/types"
)

// Mempool is a FIFO pool of pending transactions awaiting inclusion in a
// proposal. Safe for concurrent use: hosts typically feed it from a
// separate transaction-ingress goroutine while the engine reaps from its
// own event loop goroutine.
type Mempool struct {
	mtx sync.Mutex

	txs   *clist.CList
	byID  map[string]*clist.CElement
	bytes int
}

// New builds an empty Mempool.
func New() *Mempool {
	return &Mempool{
		txs:  clist.New(),
		byID: make(map[string]*clist.CElement),
	}
}

// Add appends txn to the pool. It is a no-op if a transaction with the
// same ID is already present, mirroring the teacher's txsMap dedup check
// in ListMempool.CheckTx.
func (m *Mempool) Add(txn types.Txn) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	key := string(txn.ID)
	if _, ok := m.byID[key]; ok {
		return
	}

	e := m.txs.PushBack(txn)
	m.byID[key] = e
	m.bytes += len(txn.Data)
}

// Reap returns pending transactions in FIFO order without removing them,
// capped at maxTxns. maxTxns <= 0 means unbounded, matching
// engine.Config.MaxProposalTxns's "zero means no cap" contract. The engine
// calls Reap when it synthesizes a proposal on entering a round it leads;
// transactions are only removed once their proposal
// commits (see Remove), so a proposal that never commits leaves its
// transactions eligible for the next attempt.
func (m *Mempool) Reap(maxTxns int) []types.Txn {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.txs.Len() == 0 {
		return nil
	}
	if maxTxns <= 0 {
		maxTxns = m.txs.Len()
	}

	out := make([]types.Txn, 0, maxTxns)
	for e := m.txs.Front(); e != nil && len(out) < maxTxns; e = e.Next() {
		out = append(out, e.Value.(types.Txn))
	}
	return out
}

// Remove drops the given transaction ids from the pool, called by the
// engine on OutCommit so committed transactions are never reaped again.
func (m *Mempool) Remove(ids ...[]byte) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	for _, id := range ids {
		key := string(id)
		e, ok := m.byID[key]
		if !ok {
			continue
		}
		txn := e.Value.(types.Txn)
		m.bytes -= len(txn.Data)
		m.txs.Remove(e)
		e.DetachPrev()
		delete(m.byID, key)
	}
}

// Size reports the number of pending transactions.
func (m *Mempool) Size() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.txs.Len()
}
