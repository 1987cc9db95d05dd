// Copyright (c) 2020-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mysql

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"

	"github.com/decred/curate/curated/store"
	"github.com/decred/curate/util"
	"github.com/marcopeereboom/sbox"
	"github.com/pkg/errors"
)

const (
	// encryptionKeyParamsKey is the kv store key for the encryption
	// key params that are saved on initial key derivation.
	encryptionKeyParamsKey = "store-mysql-encryptionkeyparams"
)

// encryptionKeyParams is saved to the kv store on initial derivation of the
// encryption key. It contains the params that were used to derive the key and
// a SHA256 digest of the key. Subsequent derivations will use the existing
// params to derive the key and will use the digest to verify that the
// encryption key has not changed.
type encryptionKeyParams struct {
	Digest []byte            `json:"digest"` // SHA256 digest
	Params util.Argon2Params `json:"params"`
}

// deriveEncryptionKey derives a 32 byte key from the provided password using
// the argon2id key derivation function. The params are created on first use
// and saved unencrypted to the kv store.
func (s *mysql) deriveEncryptionKey(password string) error {
	log.Infof("Deriving encryption key")

	var (
		save bool
		ekp  encryptionKeyParams
	)
	b, err := s.Get(encryptionKeyParamsKey)
	switch {
	case err == nil:
		log.Debugf("Encryption key params found in kv store")
		err = json.Unmarshal(b, &ekp)
		if err != nil {
			return err
		}
	case errors.Is(err, store.ErrNotFound):
		log.Infof("Encryption key params not found; creating new ones")
		p, err := util.NewArgon2Params()
		if err != nil {
			return err
		}
		ekp.Params = *p
		save = true
	default:
		return err
	}

	key := ekp.Params.DeriveKey(password)
	digest := sha256.Sum256(key[:])

	if save {
		ekp.Digest = digest[:]
		b, err := json.Marshal(ekp)
		if err != nil {
			return err
		}
		// The params are written before the key is set so that they
		// are stored unencrypted.
		err = s.Insert(map[string][]byte{encryptionKeyParamsKey: b})
		if err != nil {
			return errors.Wrap(err, "insert")
		}
		log.Infof("Encryption key params saved to kv store")
	} else if !bytes.Equal(ekp.Digest, digest[:]) {
		util.Zero(key[:])
		return errors.Errorf("attempting to use different encryption key")
	}

	s.key = key

	return nil
}

func (s *mysql) encrypt(data []byte) ([]byte, error) {
	if s.key == nil {
		return data, nil
	}
	return sbox.Encrypt(0, s.key, data)
}

func (s *mysql) decrypt(data []byte) ([]byte, error) {
	if !util.IsEncrypted(data) {
		return data, nil
	}
	if s.key == nil {
		return nil, errors.Errorf("encrypted blob found but no " +
			"encryption key is loaded")
	}
	b, _, err := sbox.Decrypt(s.key, data)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return b, nil
}
