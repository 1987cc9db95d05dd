// Copyright (c) 2020-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util

import (
	"golang.org/x/crypto/argon2"
)

// Argon2Params represent the argon2 key derivation parameters that are used
// to derive the encryption keys of the stores.
type Argon2Params struct {
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory"`
	Threads uint8  `json:"threads"`
	KeyLen  uint32 `json:"keylen"`
	Salt    []byte `json:"salt"`
}

// NewArgon2Params returns a new Argon2Params with default values and a fresh
// random salt.
func NewArgon2Params() (*Argon2Params, error) {
	salt, err := Random(16)
	if err != nil {
		return nil, err
	}
	return &Argon2Params{
		Time:    1,
		Memory:  64 * 1024, // In KiB
		Threads: 4,
		KeyLen:  32,
		Salt:    salt,
	}, nil
}

// DeriveKey derives a 32 byte secretbox key from the password using the
// argon2id parameters.
func (p Argon2Params) DeriveKey(password string) *[32]byte {
	k := argon2.IDKey([]byte(password), p.Salt, p.Time, p.Memory,
		p.Threads, p.KeyLen)
	var key [32]byte
	copy(key[:], k)
	Zero(k)
	return &key
}
