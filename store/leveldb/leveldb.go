// Package leveldb implements store.Store on top of
// github.com/syndtr/goleveldb/leveldb, driven directly rather than through
// Tendermint's tm-db wrapper.
//
// Grounded on the teacher's KVStore (store/kv_store.go): same
// batch-per-commit shape (kv.kvDB.NewBatch() / batch.Set / batch.Write),
// same log.Logger field, same one-struct-wraps-one-db layout. The teacher
// gets its goleveldb handle through tm-db's goleveldb.NewDB wrapper; that
// indirection exists to let Tendermint swap backends (badger, boltdb,
// memdb) behind one interface, which duplicates the abstraction
// store.Store already provides here — adding it back would be two
// interfaces doing the same job. So this package imports
// github.com/syndtr/goleveldb/leveldb directly, keeping tm-db's own
// default backend without tm-db's indirection (see DESIGN.md).
package leveldb

import (
	"encoding/binary"
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/polybase/solid/store"
	"github.com/polybase/solid/types"
)

var (
	lastConfirmedKey = []byte("last_confirmed")
	manifestPrefix   = []byte("manifest/")
)

// Store is a store.Store backed by a single goleveldb database.
type Store struct {
	db     *leveldb.DB
	logger log.Logger
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if necessary) a leveldb database at dir.
func Open(dir string, logger log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, logger: logger}, nil
}

func manifestKey(height uint64) []byte {
	key := make([]byte, len(manifestPrefix)+8)
	copy(key, manifestPrefix)
	binary.BigEndian.PutUint64(key[len(manifestPrefix):], height)
	return key
}

func encodeLastConfirmed(hash types.ProposalHash, height uint64) []byte {
	buf := make([]byte, types.HashSize+8)
	copy(buf, hash[:])
	binary.BigEndian.PutUint64(buf[types.HashSize:], height)
	return buf
}

func decodeLastConfirmed(b []byte) (types.ProposalHash, uint64, error) {
	if len(b) != types.HashSize+8 {
		return types.ProposalHash{}, 0, errors.New("leveldb: corrupt last_confirmed record")
	}
	hash := types.NewProposalHash(b[:types.HashSize])
	height := binary.BigEndian.Uint64(b[types.HashSize:])
	return hash, height, nil
}

// CommitManifest is store.Store.CommitManifest: writes the manifest and
// advances last_confirmed in one leveldb.Batch, mirroring the teacher's
// CommitBlock (new batch, apply writes, single Write call).
func (s *Store) CommitManifest(hash types.ProposalHash, m *types.ProposalManifest) error {
	batch := new(leveldb.Batch)
	batch.Put(manifestKey(m.Height), types.EncodeManifest(m))
	batch.Put(lastConfirmedKey, encodeLastConfirmed(hash, m.Height))
	if err := s.db.Write(batch, nil); err != nil {
		s.logger.Error("commit manifest failed", "height", m.Height, "err", err)
		return err
	}
	return nil
}

// LastConfirmed is store.Store.LastConfirmed.
func (s *Store) LastConfirmed() (types.ProposalHash, uint64, error) {
	b, err := s.db.Get(lastConfirmedKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return types.GenesisHash, 0, nil
	}
	if err != nil {
		return types.ProposalHash{}, 0, err
	}
	return decodeLastConfirmed(b)
}

// ManifestAt is store.Store.ManifestAt.
func (s *Store) ManifestAt(height uint64) (*types.ProposalManifest, bool, error) {
	b, err := s.db.Get(manifestKey(height), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	m, err := types.DecodeManifest(b)
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

// Close is store.Store.Close.
func (s *Store) Close() error {
	return s.db.Close()
}
