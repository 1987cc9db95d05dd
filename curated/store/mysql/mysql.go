// Copyright (c) 2020-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/decred/curate/curated/store"
	"github.com/decred/curate/util"
	driver "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

const (
	// Database options
	connTimeout     = 1 * time.Minute
	connMaxLifetime = 1 * time.Minute
	maxOpenConns    = 0 // 0 is unlimited
	maxIdleConns    = 100

	// Database table names
	tableNameKeyValue = "kv"

	// selectSizeLimit is the maximum number of placeholders that are
	// included in a single select statement.
	selectSizeLimit = 1000

	// errDuplicateEntry is the mysql error number for a unique key
	// violation.
	errDuplicateEntry = 1062
)

// tableKeyValue defines the key-value table.
const tableKeyValue = `
  k VARCHAR(255) NOT NULL PRIMARY KEY,
  v LONGBLOB NOT NULL
`

const (
	queryInsert = "INSERT INTO kv (k, v) VALUES (?, ?)"
	queryPut    = "INSERT INTO kv (k, v) VALUES (?, ?) " +
		"ON DUPLICATE KEY UPDATE v = VALUES(v)"
	queryDel = "DELETE FROM kv WHERE k = ?"
	queryGet = "SELECT v FROM kv WHERE k = ?"
)

var (
	_ store.BlobKV = (*mysql)(nil)
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// mysql implements the store BlobKV interface using a mysql driver.
type mysql struct {
	shutdown uint64
	db       *sql.DB
	key      *[32]byte
}

func ctxWithTimeout() (context.Context, func()) {
	return context.WithTimeout(context.Background(), connTimeout)
}

func (s *mysql) isShutdown() bool {
	return atomic.LoadUint64(&s.shutdown) != 0
}

// sortedKeys returns the map keys in a deterministic order.
func sortedKeys(blobs map[string][]byte) []string {
	keys := make([]string, 0, len(blobs))
	for k := range blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// isDuplicateEntry returns whether the error is a mysql unique key violation.
func isDuplicateEntry(err error) bool {
	var e *driver.MySQLError
	return errors.As(err, &e) && e.Number == errDuplicateEntry
}

// exec runs the query once per key-value pair.
func (s *mysql) exec(ctx context.Context, q querier, query string, blobs map[string][]byte) error {
	for _, k := range sortedKeys(blobs) {
		v, err := s.encrypt(blobs[k])
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, query, k, v)
		if err != nil {
			if isDuplicateEntry(err) {
				return errors.Wrap(store.ErrDuplicateKey, k)
			}
			return errors.Wrapf(err, "exec %v", k)
		}
	}
	return nil
}

func (s *mysql) del(ctx context.Context, q querier, keys []string) error {
	for _, k := range keys {
		_, err := q.ExecContext(ctx, queryDel, k)
		if err != nil {
			return errors.Wrapf(err, "del %v", k)
		}
	}
	return nil
}

func (s *mysql) get(ctx context.Context, q querier, key string) ([]byte, error) {
	var v []byte
	err := q.QueryRowContext(ctx, queryGet, key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get %v", key)
	}
	return s.decrypt(v)
}

func (s *mysql) getBatch(ctx context.Context, q querier, keys []string) (map[string][]byte, error) {
	reply := make(map[string][]byte, len(keys))
	for _, ss := range buildSelectStatements(keys, selectSizeLimit) {
		err := func() error {
			rows, err := q.QueryContext(ctx, ss.Query, ss.Args...)
			if err != nil {
				return errors.Wrap(err, "query")
			}
			defer rows.Close()

			for rows.Next() {
				var (
					k string
					v []byte
				)
				err = rows.Scan(&k, &v)
				if err != nil {
					return errors.Wrap(err, "scan")
				}
				b, err := s.decrypt(v)
				if err != nil {
					return err
				}
				reply[k] = b
			}
			return rows.Err()
		}()
		if err != nil {
			return nil, err
		}
	}
	return reply, nil
}

// withTx runs fn inside of a new sql transaction.
func (s *mysql) withTx(fn func(context.Context, *sql.Tx) error) error {
	if s.isShutdown() {
		return store.ErrShutdown
	}

	ctx, cancel := ctxWithTimeout()
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	err = fn(ctx, tx)
	if err != nil {
		if err2 := tx.Rollback(); err2 != nil {
			// We're in trouble!
			panic(fmt.Sprintf("%v, unable to rollback: %v", err, err2))
		}
		return err
	}

	return tx.Commit()
}

// Insert inserts the provided key-value pairs atomically.
//
// This function satisfies the store BlobKV interface.
func (s *mysql) Insert(blobs map[string][]byte) error {
	log.Tracef("Insert: %v blobs", len(blobs))

	return s.withTx(func(ctx context.Context, tx *sql.Tx) error {
		return s.exec(ctx, tx, queryInsert, blobs)
	})
}

// Put saves the provided key-value pairs to the store. This operation is
// performed atomically.
//
// This function satisfies the store BlobKV interface.
func (s *mysql) Put(blobs map[string][]byte) error {
	log.Tracef("Put: %v blobs", len(blobs))

	err := s.withTx(func(ctx context.Context, tx *sql.Tx) error {
		return s.exec(ctx, tx, queryPut, blobs)
	})
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
func (s *mysql) Del(keys []string) error {
	log.Tracef("Del: %v", keys)

	return s.withTx(func(ctx context.Context, tx *sql.Tx) error {
		return s.del(ctx, tx, keys)
	})
}

// Get returns the blob for the provided key.
//
// This function satisfies the store BlobKV interface.
func (s *mysql) Get(key string) ([]byte, error) {
	log.Tracef("Get: %v", key)

	if s.isShutdown() {
		return nil, store.ErrShutdown
	}

	ctx, cancel := ctxWithTimeout()
	defer cancel()

	return s.get(ctx, s.db, key)
}

// GetBatch returns blobs from the store for the provided keys.
//
// This function satisfies the store BlobKV interface.
func (s *mysql) GetBatch(keys []string) (map[string][]byte, error) {
	log.Tracef("GetBatch: %v", keys)

	if s.isShutdown() {
		return nil, store.ErrShutdown
	}

	ctx, cancel := ctxWithTimeout()
	defer cancel()

	return s.getBatch(ctx, s.db, keys)
}

// Close closes the blob store connection.
//
// This function satisfies the store BlobKV interface.
func (s *mysql) Close() {
	log.Tracef("Close")

	atomic.AddUint64(&s.shutdown, 1)
	if s.key != nil {
		util.Zero(s.key[:])
	}
	s.db.Close()
}

// selectStatement is a select query and the arguments for its placeholders.
type selectStatement struct {
	Query string
	Args  []interface{}
}

// buildSelectQuery returns a select query for the provided number of keys.
//
// Ex 3 keys: "SELECT k, v FROM kv WHERE k IN (?,?,?)"
func buildSelectQuery(keys int) string {
	return "SELECT k, v FROM kv WHERE k IN " + buildPlaceholders(keys)
}

// buildPlaceholders returns a parenthesized, comma separated list of sql
// placeholders.
func buildPlaceholders(n int) string {
	var b strings.Builder
	b.WriteString("(")
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
	}
	b.WriteString(")")
	return b.String()
}

// buildSelectStatements splits the keys into select statements that each
// contain at most sizeLimit placeholders.
func buildSelectStatements(keys []string, sizeLimit int) []selectStatement {
	statements := make([]selectStatement, 0, len(keys)/sizeLimit+1)
	for start := 0; start < len(keys); start += sizeLimit {
		end := start + sizeLimit
		if end > len(keys) {
			end = len(keys)
		}
		args := make([]interface{}, 0, end-start)
		for _, k := range keys[start:end] {
			args = append(args, k)
		}
		statements = append(statements, selectStatement{
			Query: buildSelectQuery(end - start),
			Args:  args,
		})
	}
	return statements
}

// New connects to the mysql database and returns a new mysql store. When
// encrypt is set the blob encryption key is derived from the password.
func New(host, user, password, dbname string, encrypt bool) (*mysql, error) {
	log.Infof("MySQL host: %v:[password]@tcp(%v)/%v", user, host, dbname)

	h := fmt.Sprintf("%v:%v@tcp(%v)/%v", user, password, host, dbname)
	db, err := sql.Open("mysql", h)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)

	err = db.Ping()
	if err != nil {
		return nil, errors.Wrap(err, "db ping")
	}

	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %v (%v)`,
		tableNameKeyValue, tableKeyValue)
	_, err = db.Exec(q)
	if err != nil {
		return nil, errors.Wrap(err, "create kv table")
	}

	s := &mysql{
		db: db,
	}
	if encrypt {
		if password == "" {
			return nil, errors.Errorf("password is required to derive " +
				"the encryption key")
		}
		err = s.deriveEncryptionKey(password)
		if err != nil {
			return nil, errors.Wrap(err, "deriveEncryptionKey")
		}
	}

	return s, nil
}
