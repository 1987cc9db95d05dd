// Copyright (c) 2020-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util

import (
	"bytes"
	"fmt"
	"os"

	"github.com/decred/slog"
	"github.com/marcopeereboom/sbox"
)

// sboxPrefix is the leading magic of every sbox encrypted blob.
var sboxPrefix = []byte("sbox")

// Zero zeros out a byte slice.
func Zero(in []byte) {
	for i := range in {
		in[i] ^= in[i]
	}
}

// IsEncrypted returns whether the blob was produced by sbox.Encrypt.
func IsEncrypted(b []byte) bool {
	return bytes.HasPrefix(b, sboxPrefix)
}

// LoadEncryptionKey loads the encryption key at the provided file path. If a
// key does not exists at the file path then a new secretbox key is created
// and saved to the file path before returning the key.
func LoadEncryptionKey(log slog.Logger, keyFile string) (*[32]byte, error) {
	if keyFile == "" {
		return nil, fmt.Errorf("no key file provided")
	}

	if !FileExists(keyFile) {
		log.Infof("Generating encryption key")
		key, err := sbox.NewKey()
		if err != nil {
			return nil, err
		}
		err = os.WriteFile(keyFile, key[:], 0400)
		Zero(key[:])
		if err != nil {
			return nil, err
		}
		log.Infof("Encryption key created: %v", keyFile)
	}

	b, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, err
	}
	defer Zero(b)
	var key [32]byte
	if len(b) != len(key) {
		return nil, fmt.Errorf("invalid encryption key length: %v", len(b))
	}
	copy(key[:], b)

	log.Infof("Encryption key: %v", keyFile)

	return &key, nil
}
