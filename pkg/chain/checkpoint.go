package chain

import (
	"encoding/binary"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

var bucketCheckpoint = []byte("checkpoint")
var keyBlockNumber = []byte("block_number")

// Checkpoint persists the last block number the node has fully processed,
// so Subscribe can resume the chain's event stream after a restart
// (spec.md §4.6 "restartable from a checkpoint block").
type Checkpoint struct {
	db *bolt.DB
}

// OpenCheckpoint opens (creating if absent) the bbolt file at path.
func OpenCheckpoint(path string) (*Checkpoint, error) {
	db, err := bolt.Open(filepath.Clean(path), 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: open checkpoint %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCheckpoint)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("chain: init checkpoint bucket: %w", err)
	}
	return &Checkpoint{db: db}, nil
}

func (c *Checkpoint) Close() error { return c.db.Close() }

// Load returns the last saved block number, or 0 if none was ever saved.
func (c *Checkpoint) Load() (uint64, error) {
	var block uint64
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketCheckpoint).Get(keyBlockNumber)
		if v != nil {
			block = binary.BigEndian.Uint64(v)
		}
		return nil
	})
	return block, err
}

// Save records block as the last fully processed block.
func (c *Checkpoint) Save(block uint64) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		var v [8]byte
		binary.BigEndian.PutUint64(v[:], block)
		return tx.Bucket(bucketCheckpoint).Put(keyBlockNumber, v[:])
	})
}
