// Copyright (c) 2021-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package localdb

import (
	"github.com/decred/curate/curated/store"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
)

var (
	_ store.Tx = (*tx)(nil)
)

// tx implements the store Tx interface using leveldb.
//
// leveldb does not support transactions, but we are able to implement our own
// transaction by locking against concurrent access on transaction
// initialization then using leveldb's atomic batch writes to put/del data when
// the caller commits the transaction. The lock is not released until the
// transaction is committed, rolled back, or canceled.
//
// Pending writes are kept in an overlay so that reads performed through the
// tx observe them.
type tx struct {
	localdb *localdb
	pending map[string][]byte   // Unencrypted pending writes
	deleted map[string]struct{} // Pending deletes

	// The cancel function starts off as a function that releases the
	// localdb lock when invoked. Once the tx has been committed or rolled
	// back it is replaced with an empty function so that a deferred
	// invocation does not unlock an already unlocked mutex.
	cancel func()
}

// newTx returns a new localdb tx and the cancel function that releases all
// resources associated with the tx.
func newTx(l *localdb) (*tx, func()) {
	l.Lock()

	t := &tx{
		localdb: l,
		pending: make(map[string][]byte),
		deleted: make(map[string]struct{}),
		cancel: func() {
			l.Unlock()
		},
	}

	return t, func() {
		t.cancel()
	}
}

// done releases the lock and disarms the cancel function.
func (t *tx) done() {
	t.cancel()
	t.cancel = func() {}
}

// exists returns whether the key exists from the point of view of the tx.
func (t *tx) exists(key string) (bool, error) {
	if _, ok := t.pending[key]; ok {
		return true, nil
	}
	if _, ok := t.deleted[key]; ok {
		return false, nil
	}
	return t.localdb.has(key)
}

// Insert inserts the provided key-value pairs. ErrDuplicateKey is returned if
// any of the keys already exist.
//
// This function satisfies the store Tx interface.
func (t *tx) Insert(blobs map[string][]byte) error {
	for k := range blobs {
		ok, err := t.exists(k)
		if err != nil {
			return err
		}
		if ok {
			return errors.Wrap(store.ErrDuplicateKey, k)
		}
	}
	return t.Put(blobs)
}

// Put saves the provided key-value pairs to the tx.
//
// This function satisfies the store Tx interface.
func (t *tx) Put(blobs map[string][]byte) error {
	for k, v := range blobs {
		delete(t.deleted, k)
		t.pending[k] = v
	}
	return nil
}

// Del deletes the provided keys.
//
// This function satisfies the store Tx interface.
func (t *tx) Del(keys []string) error {
	for _, k := range keys {
		delete(t.pending, k)
		t.deleted[k] = struct{}{}
	}
	return nil
}

// Get returns the blob for the key.
//
// This function satisfies the store Tx interface.
func (t *tx) Get(key string) ([]byte, error) {
	if b, ok := t.pending[key]; ok {
		return b, nil
	}
	if _, ok := t.deleted[key]; ok {
		return nil, store.ErrNotFound
	}
	return t.localdb.get(key)
}

// GetBatch returns the blobs that exist for the provided keys.
//
// This function satisfies the store Tx interface.
func (t *tx) GetBatch(keys []string) (map[string][]byte, error) {
	blobs := make(map[string][]byte, len(keys))
	for _, k := range keys {
		b, err := t.Get(k)
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

// Rollback aborts the transaction.
//
// This function satisfies the store Tx interface.
func (t *tx) Rollback() error {
	log.Tracef("Rollback")

	t.pending = nil
	t.deleted = nil
	t.done()

	return nil
}

// Commit writes all pending changes as one atomic batch.
//
// This function satisfies the store Tx interface.
func (t *tx) Commit() error {
	log.Tracef("Commit: %v puts, %v dels", len(t.pending), len(t.deleted))

	defer t.done()

	batch := new(leveldb.Batch)
	for k := range t.deleted {
		batch.Delete([]byte(k))
	}
	err := t.localdb.put(t.pending, batch)
	if err != nil {
		return err
	}

	return t.localdb.write(batch)
}
