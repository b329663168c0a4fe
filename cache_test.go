// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package lightsql_test

import (
	"context"
	"errors"

	. "gopkg.in/check.v1"

	"github.com/canonical/lightsql"
)

type CacheSuite struct{}

var _ = Suite(&CacheSuite{})

func (s *CacheSuite) TearDownTest(c *C) {
	// Check every test finishes cleanly.
	s.checkDriverStmtsAllClosed(c)
}

func (s *CacheSuite) TearDownSuite(_ *C) {
	stmtRegistryMutex.Lock()
	defer stmtRegistryMutex.Unlock()

	// Reset prepared statements trackers.
	closedStmts = map[string]map[uintptr]bool{}
	openedStmts = map[string]map[uintptr]string{}

	queriesRunMutex.Lock()
	defer queriesRunMutex.Unlock()
	stmtQueriesRun = map[string]int{}
}

func (s *CacheSuite) TestPreparedStatementReuse(c *C) {
	db := openDB(c, checkedDriver)
	defer db.Close()
	db.SetMaxOpenConns(1)
	cache, err := lightsql.NewStmtCache(db, 0)
	c.Assert(err, IsNil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := lightsql.New[Contact]().Context(sqliteEnv).Connection(cache).Where("{id} = {}", i).SelectCount(ctx)
		c.Assert(err, IsNil)
	}

	// Running the statement again does not prepare a second statement.
	c.Check(cache.Len(), Equals, 1)
	c.Check(cache.Contains("SELECT COUNT(*) FROM Contact WHERE id = ?"), Equals, true)
	s.checkDriverStmtsOpened(c, 1)
	s.checkQueriesRunOnStmt(c, 3)

	// Closing the cache closes its statements.
	c.Assert(cache.Close(), IsNil)
	c.Check(cache.Len(), Equals, 0)
}

func (s *CacheSuite) TestEvictionClosesStatement(c *C) {
	db := openDB(c, checkedDriver)
	defer db.Close()
	db.SetMaxOpenConns(1)
	cache, err := lightsql.NewStmtCache(db, 1)
	c.Assert(err, IsNil)
	ctx := context.Background()

	_, err = lightsql.New[Contact]().Context(sqliteEnv).Connection(cache).Insert(ctx, &Contact{ID: 1, FamilyName: "Apple"})
	c.Assert(err, IsNil)
	_, err = lightsql.New[Contact]().Context(sqliteEnv).Connection(cache).SelectCount(ctx)
	c.Assert(err, IsNil)

	c.Check(cache.Len(), Equals, 1)
	s.checkDriverStmtsOpened(c, 2)
	s.checkDriverStmtsClosed(c, 1)

	c.Assert(cache.Close(), IsNil)
}

func (s *CacheSuite) TestEvictionWaitsForStatementInUse(c *C) {
	db := openDB(c, checkedDriver)
	defer db.Close()
	fill(c, db)
	db.SetMaxOpenConns(1)
	cache, err := lightsql.NewStmtCache(db, 1)
	c.Assert(err, IsNil)
	ctx := context.Background()

	const query = "SELECT COUNT(*) FROM Phone"
	stmt, done, err := cache.Lend(ctx, query)
	c.Assert(err, IsNil)

	// Another statement evicts the lent one.
	count, err := lightsql.New[Contact]().Context(sqliteEnv).Connection(cache).SelectCount(ctx)
	c.Assert(err, IsNil)
	c.Check(count, Equals, 4)
	c.Check(cache.Contains(query), Equals, false)
	s.checkDriverStmtsClosed(c, 0)

	// The lent statement is still usable until it is given back.
	var phones int
	c.Assert(stmt.QueryRowContext(ctx).Scan(&phones), IsNil)
	c.Check(phones, Equals, 3)
	done()
	done()
	s.checkDriverStmtsClosed(c, 1)

	c.Assert(cache.Close(), IsNil)
}

func (s *CacheSuite) TestCloseWaitsForStatementInUse(c *C) {
	db := openDB(c, checkedDriver)
	defer db.Close()
	db.SetMaxOpenConns(1)
	cache, err := lightsql.NewStmtCache(db, 0)
	c.Assert(err, IsNil)
	ctx := context.Background()

	stmt, done, err := cache.Lend(ctx, "SELECT COUNT(*) FROM Contact")
	c.Assert(err, IsNil)
	c.Assert(cache.Close(), IsNil)
	s.checkDriverStmtsClosed(c, 0)

	var contacts int
	c.Assert(stmt.QueryRowContext(ctx).Scan(&contacts), IsNil)
	c.Check(contacts, Equals, 0)
	done()
	s.checkDriverStmtsClosed(c, 1)
}

func (s *CacheSuite) TestStatementsClosedWithoutCache(c *C) {
	db := openDB(c, checkedDriver)
	defer db.Close()
	db.SetMaxOpenConns(1)
	ctx := context.Background()

	_, err := lightsql.New[Contact]().Context(sqliteEnv).Connection(db).InsertAll(ctx, contacts())
	c.Assert(err, IsNil)
	err = lightsql.New[Contact]().Context(sqliteEnv).Connection(db).Select(ctx, func(*Contact) error { return nil })
	c.Assert(err, IsNil)

	// Each execution prepares its own statement.
	s.checkDriverStmtsOpened(c, 5)
	s.checkQueriesRunOnStmt(c, 5)
}

func (s *CacheSuite) TestNewStmtCache(c *C) {
	_, err := lightsql.NewStmtCache(nil, 1)
	c.Check(errors.Is(err, lightsql.ErrInvariant), Equals, true)
}

func (s *CacheSuite) checkDriverStmtsAllClosed(c *C) {
	stmtRegistryMutex.RLock()
	defer stmtRegistryMutex.RUnlock()
	c.Check(len(openedStmts[testName(c)]), Equals, len(closedStmts[testName(c)]))
}

func (s *CacheSuite) checkDriverStmtsOpened(c *C, n int) {
	stmtRegistryMutex.RLock()
	defer stmtRegistryMutex.RUnlock()
	c.Check(openedStmts[testName(c)], HasLen, n)
}

func (s *CacheSuite) checkDriverStmtsClosed(c *C, n int) {
	stmtRegistryMutex.RLock()
	defer stmtRegistryMutex.RUnlock()
	c.Check(closedStmts[testName(c)], HasLen, n)
}

func (s *CacheSuite) checkQueriesRunOnStmt(c *C, n int) {
	queriesRunMutex.RLock()
	defer queriesRunMutex.RUnlock()
	c.Check(stmtQueriesRun[testName(c)], Equals, n)
}
