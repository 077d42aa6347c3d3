package storage

import (
	"encoding/binary"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

var bucketBlobSizes = []byte("blob_sizes")

// index is the filesystem backend's local bookkeeping: a small bbolt
// database caching each stored blob's size so Size doesn't need a stat
// round-trip, adapted from the teacher's bbolt bucket idiom
// (create-bucket-if-not-exists, Update/View closures) down to the single
// bucket this backend actually needs.
type index struct {
	db *bolt.DB
}

func openIndex(dataDir string) (*index, error) {
	dbPath := filepath.Join(dataDir, "storage-index.db")
	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: open index: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBlobSizes)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: init index bucket: %w", err)
	}
	return &index{db: db}, nil
}

func (i *index) Close() error { return i.db.Close() }

func (i *index) putSize(addr string, size uint64) error {
	return i.db.Update(func(tx *bolt.Tx) error {
		var v [8]byte
		binary.BigEndian.PutUint64(v[:], size)
		return tx.Bucket(bucketBlobSizes).Put([]byte(addr), v[:])
	})
}

func (i *index) getSize(addr string) (uint64, bool, error) {
	var size uint64
	var found bool
	err := i.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBlobSizes).Get([]byte(addr))
		if v == nil {
			return nil
		}
		found = true
		size = binary.BigEndian.Uint64(v)
		return nil
	})
	return size, found, err
}

func (i *index) deleteSize(addr string) error {
	return i.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobSizes).Delete([]byte(addr))
	})
}
