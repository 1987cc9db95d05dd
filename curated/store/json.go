// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// GetJSON reads the blob for the key and decodes it into v. The returned bool
// is false when the key does not exist, in which case v is left untouched.
func GetJSON(g Getter, key string, v interface{}) (bool, error) {
	b, err := g.Get(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	err = json.Unmarshal(b, v)
	if err != nil {
		return false, errors.Wrapf(err, "decode %v", key)
	}
	return true, nil
}

// PutJSON encodes v and saves it to the key.
func PutJSON(tx Tx, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %v", key)
	}
	return tx.Put(map[string][]byte{key: b})
}

// InsertJSON encodes v and inserts it at the key. ErrDuplicateKey is
// returned if the key already exists.
func InsertJSON(tx Tx, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %v", key)
	}
	return tx.Insert(map[string][]byte{key: b})
}
