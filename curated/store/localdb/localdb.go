// Copyright (c) 2020-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package localdb

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/decred/curate/curated/store"
	"github.com/decred/curate/util"
	"github.com/marcopeereboom/sbox"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

const (
	// storeDirname contains the directory name that the leveldb
	// database will be saved to.
	storeDirname = "store"
)

var (
	_ store.BlobKV = (*localdb)(nil)
)

// localdb implements the store BlobKV interface using leveldb.
//
// All exported calls are locked against concurrent access. A tx holds the
// lock for its entire lifetime and writes its changes as a single atomic
// leveldb batch on commit.
//
// Blobs are encrypted with a secretbox key when one is provided. Blobs are
// encrypted using random 24 byte nonces.
type localdb struct {
	sync.Mutex
	db       *leveldb.DB
	key      *[32]byte
	shutdown bool
}

// encrypt encrypts the provided data blob when an encryption key is set.
func (l *localdb) encrypt(data []byte) ([]byte, error) {
	if l.key == nil {
		return data, nil
	}
	return sbox.Encrypt(0, l.key, data)
}

// decrypt decrypts the provided data blob if it carries an sbox header.
func (l *localdb) decrypt(data []byte) ([]byte, error) {
	if !util.IsEncrypted(data) {
		return data, nil
	}
	if l.key == nil {
		return nil, errors.Errorf("encrypted blob found but no " +
			"encryption key is loaded")
	}
	b, _, err := sbox.Decrypt(l.key, data)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return b, nil
}

// has returns whether the key exists on disk.
func (l *localdb) has(key string) (bool, error) {
	ok, err := l.db.Has([]byte(key), nil)
	if err != nil {
		return false, errors.WithStack(err)
	}
	return ok, nil
}

// put encrypts and saves the blobs to the batch.
func (l *localdb) put(blobs map[string][]byte, batch *leveldb.Batch) error {
	for k, v := range blobs {
		e, err := l.encrypt(v)
		if err != nil {
			return err
		}
		batch.Put([]byte(k), e)
	}
	return nil
}

// get returns the decrypted blob for the key.
func (l *localdb) get(key string) ([]byte, error) {
	b, err := l.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, errors.WithStack(err)
	}
	return l.decrypt(b)
}

// getBatch returns the decrypted blobs that exist for the provided keys.
func (l *localdb) getBatch(keys []string) (map[string][]byte, error) {
	blobs := make(map[string][]byte, len(keys))
	for _, k := range keys {
		b, err := l.get(k)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		blobs[k] = b
	}
	return blobs, nil
}

// write writes the batch to disk.
func (l *localdb) write(batch *leveldb.Batch) error {
	err := l.db.Write(batch, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// Insert inserts the provided key-value pairs. ErrDuplicateKey is returned if
// any of the keys already exist.
//
// This function satisfies the store BlobKV interface.
func (l *localdb) Insert(blobs map[string][]byte) error {
	log.Tracef("Insert: %v blobs", len(blobs))

	l.Lock()
	defer l.Unlock()
	if l.shutdown {
		return store.ErrShutdown
	}

	for k := range blobs {
		ok, err := l.has(k)
		if err != nil {
			return err
		}
		if ok {
			return errors.Wrap(store.ErrDuplicateKey, k)
		}
	}
	batch := new(leveldb.Batch)
	err := l.put(blobs, batch)
	if err != nil {
		return err
	}

	return l.write(batch)
}

// Put saves the provided key-value pairs to the store. This operation is
// performed atomically.
//
// This function satisfies the store BlobKV interface.
func (l *localdb) Put(blobs map[string][]byte) error {
	log.Tracef("Put: %v blobs", len(blobs))

	l.Lock()
	defer l.Unlock()
	if l.shutdown {
		return store.ErrShutdown
	}

	batch := new(leveldb.Batch)
	err := l.put(blobs, batch)
	if err != nil {
		return err
	}
	err = l.write(batch)
	if err != nil {
		return err
	}

	log.Debugf("Saved blobs (%v) to store", len(blobs))

	return nil
}

// Del deletes the provided blobs from the store. This operation is performed
// atomically.
//
// This function satisfies the store BlobKV interface.
func (l *localdb) Del(keys []string) error {
	log.Tracef("Del: %v", keys)

	l.Lock()
	defer l.Unlock()
	if l.shutdown {
		return store.ErrShutdown
	}

	batch := new(leveldb.Batch)
	for _, k := range keys {
		batch.Delete([]byte(k))
	}

	return l.write(batch)
}

// Get returns the blob for the provided key.
//
// This function satisfies the store BlobKV interface.
func (l *localdb) Get(key string) ([]byte, error) {
	log.Tracef("Get: %v", key)

	l.Lock()
	defer l.Unlock()
	if l.shutdown {
		return nil, store.ErrShutdown
	}

	return l.get(key)
}

// GetBatch returns blobs from the store for the provided keys.
//
// This function satisfies the store BlobKV interface.
func (l *localdb) GetBatch(keys []string) (map[string][]byte, error) {
	log.Tracef("GetBatch: %v", keys)

	l.Lock()
	defer l.Unlock()
	if l.shutdown {
		return nil, store.ErrShutdown
	}

	return l.getBatch(keys)
}

// Tx returns a new database transaction as well as the cancel function that
// releases all resources associated with it.
//
// This function satisfies the store BlobKV interface.
func (l *localdb) Tx() (store.Tx, func(), error) {
	log.Tracef("Tx")

	t, cancel := newTx(l)
	if l.shutdown {
		cancel()
		return nil, nil, store.ErrShutdown
	}

	return t, cancel, nil
}

// Close closes the store connection.
//
// This function satisfies the store BlobKV interface.
func (l *localdb) Close() {
	log.Tracef("Close")

	l.Lock()
	defer l.Unlock()

	l.shutdown = true
	if l.key != nil {
		util.Zero(l.key[:])
	}
	l.db.Close()
}

// New returns a new localdb that saves its data to the provided data dir.
// The key is optional. Blobs are saved unencrypted when it is nil.
func New(dataDir string, key *[32]byte) (*localdb, error) {
	if dataDir == "" {
		return nil, errors.Errorf("data dir not provided")
	}

	fp := filepath.Join(dataDir, storeDirname)
	err := os.MkdirAll(fp, 0700)
	if err != nil {
		return nil, err
	}
	db, err := leveldb.OpenFile(fp, nil)
	if err != nil {
		return nil, err
	}

	log.Infof("Leveldb store: %v", fp)

	return &localdb{
		db:  db,
		key: key,
	}, nil
}

// NewMemory returns a new localdb that is backed by memory only. Its
// contents are lost on Close.
func NewMemory(key *[32]byte) (*localdb, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &localdb{
		db:  db,
		key: key,
	}, nil
}
