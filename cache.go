// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package lightsql

import (
	"context"
	"database/sql"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultStmtCacheSize is the capacity of a StmtCache created with a
// non-positive size.
const DefaultStmtCacheSize = 256

// StmtCache is a Conn preparing each distinct SQL text once on a database.
// Prepared statements are closed when they are evicted from the cache and
// when the cache is closed. A statement in use by the executor when it is
// evicted is closed once the executor is done with it.
type StmtCache struct {
	db    *sql.DB
	mutex sync.Mutex
	stmts *lru.Cache[string, *cachedStmt]
}

// cachedStmt counts the executions using a prepared statement. All its
// fields are guarded by the mutex of the cache.
type cachedStmt struct {
	stmt    *sql.Stmt
	users   int
	evicted bool
}

// NewStmtCache returns a statement cache of the given size over db.
func NewStmtCache(db *sql.DB, size int) (*StmtCache, error) {
	if db == nil {
		return nil, invariantf("nil database")
	}
	if size <= 0 {
		size = DefaultStmtCacheSize
	}
	// Evictions happen in Add and Purge, with the mutex held.
	stmts, err := lru.NewWithEvict(size, func(_ string, cs *cachedStmt) {
		cs.evicted = true
		if cs.users == 0 {
			cs.stmt.Close()
		}
	})
	if err != nil {
		return nil, err
	}
	return &StmtCache{db: db, stmts: stmts}, nil
}

// PrepareContext returns the statement prepared for query, preparing it if
// it is not in the cache. The statement belongs to the cache and is closed
// when it is evicted.
func (sc *StmtCache) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	stmt, done, err := sc.lend(ctx, query)
	if err != nil {
		return nil, err
	}
	done()
	return stmt, nil
}

// lend returns the statement prepared for query and a function to call
// once the statement is no longer used. The statement is not closed before
// that function is called, even if it is evicted meanwhile.
func (sc *StmtCache) lend(ctx context.Context, query string) (*sql.Stmt, func(), error) {
	sc.mutex.Lock()
	if cs, ok := sc.stmts.Get(query); ok {
		cs.users++
		sc.mutex.Unlock()
		return cs.stmt, sc.giveBack(cs), nil
	}
	sc.mutex.Unlock()

	stmt, err := sc.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	// Check if a statement has been inserted by someone else since we last
	// checked.
	if other, ok := sc.stmts.Get(query); ok {
		stmt.Close()
		other.users++
		return other.stmt, sc.giveBack(other), nil
	}
	cs := &cachedStmt{stmt: stmt, users: 1}
	sc.stmts.Add(query, cs)
	return stmt, sc.giveBack(cs), nil
}

func (sc *StmtCache) giveBack(cs *cachedStmt) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			sc.mutex.Lock()
			defer sc.mutex.Unlock()
			cs.users--
			if cs.users == 0 && cs.evicted {
				cs.stmt.Close()
			}
		})
	}
}

// Len returns the number of cached statements.
func (sc *StmtCache) Len() int {
	return sc.stmts.Len()
}

// DB returns the database statements are prepared on.
func (sc *StmtCache) DB() *sql.DB {
	return sc.db
}

// Close closes every cached statement that is not in use, and the others
// once they are no longer used. The database is left open.
func (sc *StmtCache) Close() error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	sc.stmts.Purge()
	return nil
}

// statementLender is implemented by connections owning the statements
// they prepare. done must be called once stmt is no longer used.
type statementLender interface {
	lend(ctx context.Context, query string) (stmt *sql.Stmt, done func(), err error)
}
