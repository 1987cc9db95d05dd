// Copyright (c) 2021-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store

import (
	"bytes"

	"github.com/pkg/errors"
)

// TestBlobKV runs through a series of BlobKV operations to verify that basic
// functionality of the BlobKV implementation is working correctly.
//
// These are not unit tests. These are intended to be run against an actual
// database on initialization of a BlobKV implemenation.
func TestBlobKV(kv BlobKV) error {
	var (
		key = "selftest-key"

		batchKey1 = "selftest-batch-1"
		batchKey2 = "selftest-batch-2"
		jsonKey   = "selftest-json"

		value1 = []byte("value-1")
		value2 = []byte("value-2")
		value3 = []byte("value-3")
	)

	// Clear out any previous test data
	err := kv.Del([]string{key, batchKey1, batchKey2, jsonKey})
	if err != nil {
		return err
	}

	// Verify that the entry doesn't exist
	_, err = kv.Get(key)
	if !errors.Is(err, ErrNotFound) {
		return errors.Errorf("got error %v, want %v", err, ErrNotFound)
	}

	// Insert a new entry and verify it
	err = kv.Insert(map[string][]byte{key: value1})
	if err != nil {
		return err
	}
	b, err := kv.Get(key)
	if err != nil {
		return err
	}
	if !bytes.Equal(b, value1) {
		return errors.Errorf("got %s, want %s", b, value1)
	}

	// Verify that duplicate keys are not allowed
	err = kv.Insert(map[string][]byte{key: value2})
	if !errors.Is(err, ErrDuplicateKey) {
		return errors.Errorf("got error %v, want %v", err, ErrDuplicateKey)
	}

	// Overwrite the entry
	err = kv.Put(map[string][]byte{key: value2})
	if err != nil {
		return err
	}
	b, err = kv.Get(key)
	if err != nil {
		return err
	}
	if !bytes.Equal(b, value2) {
		return errors.Errorf("got %s, want %s", b, value2)
	}

	// Roll back a tx and verify nothing was written
	tx, cancel, err := kv.Tx()
	if err != nil {
		return err
	}
	err = tx.Put(map[string][]byte{batchKey1: value1})
	if err != nil {
		cancel()
		return err
	}
	b, err = tx.Get(batchKey1)
	if err != nil {
		cancel()
		return errors.Errorf("tx read of own write: %v", err)
	}
	if !bytes.Equal(b, value1) {
		cancel()
		return errors.Errorf("tx read got %s, want %s", b, value1)
	}
	err = tx.Rollback()
	if err != nil {
		cancel()
		return err
	}
	cancel()
	_, err = kv.Get(batchKey1)
	if !errors.Is(err, ErrNotFound) {
		return errors.Errorf("rolled back write: got error %v, want %v",
			err, ErrNotFound)
	}

	// Commit a tx and verify the batch
	tx, cancel, err = kv.Tx()
	if err != nil {
		return err
	}
	defer cancel()
	err = tx.Put(map[string][]byte{batchKey1: value1, batchKey2: value3})
	if err != nil {
		return err
	}
	err = tx.Del([]string{key})
	if err != nil {
		return err
	}
	err = tx.Commit()
	if err != nil {
		return err
	}
	blobs, err := kv.GetBatch([]string{key, batchKey1, batchKey2})
	if err != nil {
		return err
	}
	if len(blobs) != 2 {
		return errors.Errorf("got %v blobs, want 2", len(blobs))
	}
	if !bytes.Equal(blobs[batchKey1], value1) ||
		!bytes.Equal(blobs[batchKey2], value3) {
		return errors.Errorf("unexpected batch contents")
	}

	// Round trip a JSON record within a tx
	type record struct {
		Day    uint64 `json:"day"`
		Amount string `json:"amount"`
	}
	want := record{Day: 7, Amount: "100000"}
	tx, cancel2, err := kv.Tx()
	if err != nil {
		return err
	}
	defer cancel2()
	var got record
	ok, err := GetJSON(tx, jsonKey, &got)
	if err != nil {
		return err
	}
	if ok {
		return errors.Errorf("%v found before insert", jsonKey)
	}
	err = InsertJSON(tx, jsonKey, want)
	if err != nil {
		return err
	}
	err = tx.Commit()
	if err != nil {
		return err
	}
	ok, err = GetJSON(kv, jsonKey, &got)
	if err != nil {
		return err
	}
	if !ok || got != want {
		return errors.Errorf("got %+v, want %+v", got, want)
	}

	// Clean up
	return kv.Del([]string{batchKey1, batchKey2, jsonKey})
}
