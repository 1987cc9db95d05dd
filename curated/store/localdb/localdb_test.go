// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package localdb

import (
	"errors"
	"testing"

	"github.com/decred/curate/curated/store"
	"github.com/decred/curate/util"
	"github.com/go-test/deep"
	"github.com/marcopeereboom/sbox"
)

func newTestLocalDB(t *testing.T, encrypt bool) *localdb {
	t.Helper()

	var key *[32]byte
	if encrypt {
		var err error
		key, err = sbox.NewKey()
		if err != nil {
			t.Fatal(err)
		}
	}
	l, err := NewMemory(key)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(l.Close)

	return l
}

func TestBlobKV(t *testing.T) {
	for _, encrypt := range []bool{false, true} {
		l := newTestLocalDB(t, encrypt)
		err := store.TestBlobKV(l)
		if err != nil {
			t.Errorf("encrypt %v: %v", encrypt, err)
		}
	}
}

func TestEncryptedAtRest(t *testing.T) {
	l := newTestLocalDB(t, true)

	value := []byte("plaintext")
	err := l.Put(map[string][]byte{"k": value})
	if err != nil {
		t.Fatal(err)
	}

	// Read the raw blob underneath the store
	raw, err := l.db.Get([]byte("k"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !util.IsEncrypted(raw) {
		t.Fatalf("blob was not encrypted")
	}

	b, err := l.Get("k")
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != string(value) {
		t.Fatalf("got %s, want %s", b, value)
	}
}

func TestTxInsertDuplicate(t *testing.T) {
	l := newTestLocalDB(t, false)

	tx, cancel, err := l.Tx()
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	err = tx.Insert(map[string][]byte{"once": []byte("a")})
	if err != nil {
		t.Fatal(err)
	}

	// A pending insert counts as existing
	err = tx.Insert(map[string][]byte{"once": []byte("b")})
	if !errors.Is(err, store.ErrDuplicateKey) {
		t.Fatalf("got err %v, want %v", err, store.ErrDuplicateKey)
	}

	// A pending delete frees the key
	err = tx.Del([]string{"once"})
	if err != nil {
		t.Fatal(err)
	}
	err = tx.Insert(map[string][]byte{"once": []byte("c")})
	if err != nil {
		t.Fatal(err)
	}
	err = tx.Commit()
	if err != nil {
		t.Fatal(err)
	}

	b, err := l.Get("once")
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "c" {
		t.Fatalf("got %s, want c", b)
	}

	// The deferred cancel must be a no-op after commit. Verify the lock
	// was released by running another tx.
	cancel()
	_, cancel2, err := l.Tx()
	if err != nil {
		t.Fatal(err)
	}
	cancel2()
}

func TestShutdown(t *testing.T) {
	l, err := NewMemory(nil)
	if err != nil {
		t.Fatal(err)
	}
	l.Close()

	_, err = l.Get("k")
	if !errors.Is(err, store.ErrShutdown) {
		t.Fatalf("got err %v, want %v", err, store.ErrShutdown)
	}
	_, _, err = l.Tx()
	if !errors.Is(err, store.ErrShutdown) {
		t.Fatalf("got err %v, want %v", err, store.ErrShutdown)
	}
}

func TestGetBatch(t *testing.T) {
	l := newTestLocalDB(t, true)

	blobs := map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
	}
	err := l.Insert(blobs)
	if err != nil {
		t.Fatal(err)
	}

	// Missing keys are left out of the reply
	got, err := l.GetBatch([]string{"a", "b", "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(got, blobs); diff != nil {
		t.Error(diff)
	}
}
