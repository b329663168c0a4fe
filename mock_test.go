// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package lightsql_test

import (
	"context"
	"errors"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	. "gopkg.in/check.v1"

	"github.com/canonical/lightsql"
)

type MockSuite struct{}

var _ = Suite(&MockSuite{})

func (s *MockSuite) newMock(c *C) (lightsql.Conn, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	c.Assert(err, IsNil)
	return db, mock
}

func (s *MockSuite) TestPostgreSQLPlaceholders(c *C) {
	db, mock := s.newMock(c)
	env := lightsql.NewEnv(lightsql.WithDialect(lightsql.PostgreSQL))

	mock.ExpectPrepare("SELECT id, familyName, givenName, birthday FROM Contact WHERE familyName = $1 AND givenName <> $2 AND '?' <> familyName").
		ExpectQuery().
		WithArgs("Apple", "Akiyo").
		WillReturnRows(sqlmock.NewRows([]string{"id", "familyName", "givenName", "birthday"}).
			AddRow(int64(2), []byte("Apple"), []byte("Yukari"), time.Date(2002, time.February, 2, 0, 0, 0, 0, time.UTC)))

	q := lightsql.New[Contact]().Context(env).Connection(db).
		Where("{familyName} = {} AND {givenName} <> {} AND '?' <> {familyName}", "Apple", "Akiyo")
	e, found, err := q.SelectOne(context.Background())
	c.Assert(err, IsNil)
	c.Assert(found, Equals, true)
	c.Check(e.ID, Equals, int64(2))
	c.Check(e.GivenName, Equals, "Yukari")
	c.Check(e.Birthday.String(), Equals, "2002-02-02")

	// The generated SQL is kept with the placeholders of the statement.
	c.Check(q.GeneratedSQL(), Equals, "SELECT id, familyName, givenName, birthday FROM Contact WHERE familyName = ? AND givenName <> ? AND '?' <> familyName")
	c.Check(mock.ExpectationsWereMet(), IsNil)
}

func (s *MockSuite) TestMySQLDeleteWithAlias(c *C) {
	db, mock := s.newMock(c)
	env := lightsql.NewEnv(lightsql.WithDialect(lightsql.MySQL))

	mock.ExpectPrepare("DELETE C FROM Contact C WHERE C.id = ?").
		ExpectExec().
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := lightsql.New[Contact]("C").Context(env).Connection(db).Where("{id} = {}", 1).Delete(context.Background())
	c.Assert(err, IsNil)
	c.Check(n, Equals, 1)
	c.Check(mock.ExpectationsWereMet(), IsNil)
}

func (s *MockSuite) TestMySQLReadsTextBytes(c *C) {
	db, mock := s.newMock(c)
	env := lightsql.NewEnv(lightsql.WithDialect(lightsql.MySQL))

	mock.ExpectPrepare("SELECT contactId, childIndex, label, content FROM Phone WHERE contactId = ? ORDER BY childIndex").
		ExpectQuery().
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"contactId", "childIndex", "label", "content"}).
			AddRow(int64(1), int64(0), []byte("home"), []byte("01-1111")).
			AddRow(int64(1), int64(1), []byte("work"), nil))

	var got []*Phone
	err := lightsql.New[Phone]().Context(env).Connection(db).
		Where("{contactID} = {}", 1).
		OrderBy("{childIndex}").
		Select(context.Background(), func(p *Phone) error {
			got = append(got, p)
			return nil
		})
	c.Assert(err, IsNil)
	c.Assert(got, HasLen, 2)
	c.Check(*got[0], Equals, Phone{ContactID: 1, ChildIndex: 0, Label: "home", Content: "01-1111"})
	c.Check(*got[1], Equals, Phone{ContactID: 1, ChildIndex: 1, Label: "work"})
	c.Check(mock.ExpectationsWereMet(), IsNil)
}

func (s *MockSuite) TestPrepareError(c *C) {
	db, mock := s.newMock(c)
	boom := errors.New("boom")
	mock.ExpectPrepare("INSERT INTO Contact (id, familyName, givenName, birthday) VALUES (?, ?, ?, NULL)").
		WillReturnError(boom)

	q := lightsql.New[Contact]().Connection(db)
	_, err := q.Insert(context.Background(), &Contact{ID: 1})
	c.Check(errors.Is(err, boom), Equals, true)
	c.Check(errors.Is(err, lightsql.ErrExecution), Equals, true)
	var ee *lightsql.ExecutionError
	c.Assert(errors.As(err, &ee), Equals, true)
	c.Check(ee.SQL, Equals, q.GeneratedSQL())
	c.Check(mock.ExpectationsWereMet(), IsNil)
}

func (s *MockSuite) TestOracleSkipsRows(c *C) {
	db, mock := s.newMock(c)
	env := lightsql.NewEnv(lightsql.WithDialect(lightsql.Oracle))

	rows := sqlmock.NewRows([]string{"id"})
	for i := 1; i <= 5; i++ {
		rows.AddRow(int64(i))
	}
	mock.ExpectPrepare("SELECT id FROM Contact ORDER BY id").
		ExpectQuery().
		WillReturnRows(rows)

	var ids []int64
	err := lightsql.New[Contact]().Context(env).Connection(db).
		Columns("id").
		OrderBy("{id}").
		Offset(3).
		Limit(10).
		Select(context.Background(), func(e *Contact) error {
			ids = append(ids, e.ID)
			return nil
		})
	c.Assert(err, IsNil)
	c.Check(ids, DeepEquals, []int64{4, 5})
	c.Check(mock.ExpectationsWereMet(), IsNil)
}

func (s *MockSuite) TestEnvOfContext(c *C) {
	db, mock := s.newMock(c)
	env := lightsql.NewEnv(lightsql.WithDialect(lightsql.PostgreSQL))
	ctx := lightsql.WithEnv(context.Background(), env)
	c.Check(lightsql.EnvFrom(ctx), Equals, env)
	c.Check(lightsql.EnvFrom(context.Background()), Equals, lightsql.Default())

	mock.ExpectPrepare("SELECT COUNT(*) FROM Contact WHERE familyName = $1").
		ExpectQuery().
		WithArgs("Apple").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(int64(2)))
	mock.ExpectPrepare("SELECT COUNT(*) FROM Contact WHERE familyName = ?").
		ExpectQuery().
		WithArgs("Apple").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(int64(2)))

	// A builder without an Env executes in the Env of its context.
	n, err := lightsql.New[Contact]().Connection(db).Where("{familyName} = {}", "Apple").SelectCount(ctx)
	c.Assert(err, IsNil)
	c.Check(n, Equals, 2)

	// An Env set with Context wins over the Env of the context.
	n, err = lightsql.New[Contact]().Context(lightsql.NewEnv(lightsql.WithDialect(lightsql.MySQL))).Connection(db).
		Where("{familyName} = {}", "Apple").SelectCount(ctx)
	c.Assert(err, IsNil)
	c.Check(n, Equals, 2)
	c.Check(mock.ExpectationsWereMet(), IsNil)
}
