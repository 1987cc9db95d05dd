// Copyright (c) 2021-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mysql

import (
	"context"
	"database/sql"

	"github.com/decred/curate/curated/store"
	"github.com/pkg/errors"
)

var (
	_ store.Tx = (*sqlTx)(nil)
)

// sqlTx implements the store Tx interface using a sql transaction.
type sqlTx struct {
	mysql *mysql
	ctx   context.Context
	tx    *sql.Tx
}

// Insert inserts the provided key-value pairs.
//
// This function satisfies the store Tx interface.
func (s *sqlTx) Insert(blobs map[string][]byte) error {
	return s.mysql.exec(s.ctx, s.tx, queryInsert, blobs)
}

// Put saves the provided key-value pairs.
//
// This function satisfies the store Tx interface.
func (s *sqlTx) Put(blobs map[string][]byte) error {
	return s.mysql.exec(s.ctx, s.tx, queryPut, blobs)
}

// Del deletes the provided keys.
//
// This function satisfies the store Tx interface.
func (s *sqlTx) Del(keys []string) error {
	return s.mysql.del(s.ctx, s.tx, keys)
}

// Get returns the blob for the key.
//
// This function satisfies the store Tx interface.
func (s *sqlTx) Get(key string) ([]byte, error) {
	return s.mysql.get(s.ctx, s.tx, key)
}

// GetBatch returns the blobs that exist for the provided keys.
//
// This function satisfies the store Tx interface.
func (s *sqlTx) GetBatch(keys []string) (map[string][]byte, error) {
	return s.mysql.getBatch(s.ctx, s.tx, keys)
}

// Rollback aborts the transaction.
//
// This function satisfies the store Tx interface.
func (s *sqlTx) Rollback() error {
	return s.tx.Rollback()
}

// Commit commits the transaction.
//
// This function satisfies the store Tx interface.
func (s *sqlTx) Commit() error {
	return s.tx.Commit()
}

// Tx returns a new database transaction as well as the cancel function that
// releases all resources associated with it.
//
// This function satisfies the store BlobKV interface.
func (s *mysql) Tx() (store.Tx, func(), error) {
	if s.isShutdown() {
		return nil, nil, store.ErrShutdown
	}

	ctx, cancelCtx := ctxWithTimeout()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		cancelCtx()
		return nil, nil, errors.Wrap(err, "begin tx")
	}

	// Rolling back a committed tx returns sql.ErrTxDone, which makes the
	// deferred cancel a no-op after a successful commit.
	cancel := func() {
		err := tx.Rollback()
		if err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Errorf("cancel tx: %v", err)
		}
		cancelCtx()
	}

	return &sqlTx{
		mysql: s,
		ctx:   ctx,
		tx:    tx,
	}, cancel, nil
}
