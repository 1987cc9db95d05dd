// Copyright (c) 2020-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store

import (
	"errors"
)

var (
	// ErrShutdown is returned when a action is attempted against a
	// store that is shutdown.
	ErrShutdown = errors.New("store is shutdown")

	// ErrNotFound is returned when a requested key does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an insert is attempted on a key that
	// already exists.
	ErrDuplicateKey = errors.New("duplicate key")
)

// Getter describes the get methods that are present on both the BlobKV
// interface and the Tx interface. This allows us to use the same code for
// executing individual reads and reads that are part of a transaction.
type Getter interface {
	// Get returns the blob for the key. ErrNotFound is returned if the
	// key does not exist.
	Get(key string) ([]byte, error)

	// GetBatch returns the blobs for the provided keys. An entry will
	// not exist in the returned map for any keys that are not found. It
	// is the responsibility of the caller to ensure a blob was returned
	// for all provided keys.
	GetBatch(keys []string) (map[string][]byte, error)
}

// Tx represents an in-progess database transaction. All actions performed
// using a Tx are guaranteed to be atomic. Reads performed through a Tx see
// the writes that were previously made by the same Tx.
//
// A transaction must end with a call to Commit or Rollback.
type Tx interface {
	Getter

	// Insert inserts the provided key-value pairs. ErrDuplicateKey is
	// returned if any of the keys already exist.
	Insert(blobs map[string][]byte) error

	// Put saves the provided key-value pairs, overwriting any existing
	// entries.
	Put(blobs map[string][]byte) error

	// Del deletes the provided keys.
	Del(keys []string) error

	// Rollback aborts the transaction.
	Rollback() error

	// Commit commits the transaction.
	Commit() error
}

// BlobKV represents a blob key-value store. Implementations encrypt blobs at
// rest when they are configured with an encryption key. Reads transparently
// decrypt.
type BlobKV interface {
	Getter

	// Insert inserts the provided key-value pairs atomically.
	Insert(blobs map[string][]byte) error

	// Put saves the provided key-value pairs atomically.
	Put(blobs map[string][]byte) error

	// Del deletes the provided keys atomically.
	Del(keys []string) error

	// Tx returns a new database transaction and a cancel function
	// for the transaction.
	//
	// The cancel function is used until the tx is committed or rolled
	// backed. Invoking the cancel function rolls the tx back and
	// releases all resources associated with it. This allows the
	// caller to defer the cancel function in order to rollback the
	// tx on unexpected errors. Once the tx is successfully committed
	// the deferred invocation does nothing.
	Tx() (Tx, func(), error)

	// Close closes the store connection.
	Close()
}
