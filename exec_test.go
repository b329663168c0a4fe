// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package lightsql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	. "gopkg.in/check.v1"

	"github.com/canonical/lightsql"
	"github.com/canonical/lightsql/typeconv"
)

type ExecSuite struct{}

var _ = Suite(&ExecSuite{})

var sqliteEnv = lightsql.NewEnv(lightsql.WithDialect(lightsql.SQLite))

// fill inserts the contacts and phones fixtures.
func fill(c *C, db *sql.DB) {
	ctx := context.Background()
	n, err := lightsql.New[Contact]().Context(sqliteEnv).Connection(db).InsertAll(ctx, contacts())
	c.Assert(err, IsNil)
	c.Assert(n, Equals, 4)
	n, err = lightsql.New[Phone]().Context(sqliteEnv).Connection(db).InsertAll(ctx, phones())
	c.Assert(err, IsNil)
	c.Assert(n, Equals, 3)
}

func (s *ExecSuite) TestSelect(c *C) {
	db := openDB(c, "sqlite3")
	defer db.Close()
	fill(c, db)

	q := lightsql.New[Contact]().Context(sqliteEnv).Connection(db).
		Where("{familyName} = {}", "Apple").
		OrderBy("{id}")
	var got []*Contact
	err := q.Select(context.Background(), func(e *Contact) error {
		got = append(got, e)
		return nil
	})
	c.Assert(err, IsNil)
	c.Check(q.GeneratedSQL(), Equals, "SELECT id, familyName, givenName, birthday FROM Contact WHERE familyName = ? ORDER BY id")
	c.Check(q.Params(), DeepEquals, []any{"Apple"})
	c.Assert(got, HasLen, 2)
	c.Check(got[0].ID, Equals, int64(1))
	c.Check(got[0].GivenName, Equals, "Akiyo")
	c.Assert(got[0].Birthday, NotNil)
	c.Check(got[0].Birthday.String(), Equals, "2001-01-01")
	c.Check(got[1].GivenName, Equals, "Yukari")
}

func (s *ExecSuite) TestSelectNullProperty(c *C) {
	db := openDB(c, "sqlite3")
	defer db.Close()
	fill(c, db)

	e, found, err := lightsql.New[Contact]().Context(sqliteEnv).Connection(db).Where("{id} = {}", 3).SelectOne(context.Background())
	c.Assert(err, IsNil)
	c.Assert(found, Equals, true)
	c.Check(e.FamilyName, Equals, "Orange")
	c.Check(e.Birthday, IsNil)
}

func (s *ExecSuite) TestSelectOne(c *C) {
	db := openDB(c, "sqlite3")
	defer db.Close()
	fill(c, db)
	ctx := context.Background()

	_, found, err := lightsql.New[Contact]().Context(sqliteEnv).Connection(db).Where("{id} = {}", 42).SelectOne(ctx)
	c.Assert(err, IsNil)
	c.Check(found, Equals, false)

	q := lightsql.New[Contact]().Context(sqliteEnv).Connection(db).Where("{familyName} = {}", "Apple")
	_, _, err = q.SelectOne(ctx)
	c.Check(errors.Is(err, lightsql.ErrManyRows), Equals, true)
	var mre *lightsql.ManyRowsError
	c.Assert(errors.As(err, &mre), Equals, true)
	c.Check(mre.SQL, Equals, "SELECT id, familyName, givenName, birthday FROM Contact WHERE familyName = ?")
}

func (s *ExecSuite) TestSelectAs(c *C) {
	db := openDB(c, "sqlite3")
	defer db.Close()
	fill(c, db)

	q := lightsql.New[Contact]().Context(sqliteEnv).Connection(db).Where("{id} <= {}", 2).OrderBy("{id}")
	var names []string
	err := lightsql.SelectAs(context.Background(), q, func(n *ContactName) error {
		names = append(names, n.GivenName+" "+n.FamilyName)
		return nil
	})
	c.Assert(err, IsNil)
	c.Check(q.GeneratedSQL(), Equals, "SELECT familyName, givenName FROM Contact WHERE id <= ? ORDER BY id")
	c.Check(names, DeepEquals, []string{"Akiyo Apple", "Yukari Apple"})

	n, found, err := lightsql.SelectOneAs[Contact, ContactName](context.Background(),
		lightsql.New[Contact]().Context(sqliteEnv).Connection(db).Where("{id} = {}", 4))
	c.Assert(err, IsNil)
	c.Assert(found, Equals, true)
	c.Check(n.GivenName, Equals, "Taro")
}

func (s *ExecSuite) TestSelectJoined(c *C) {
	db := openDB(c, "sqlite3")
	defer db.Close()
	fill(c, db)

	q := lightsql.New[Contact]("C").Context(sqliteEnv).Connection(db).
		InnerJoin(Phone{}, "P", "{P.contactID} = {C.id}").
		OrderBy("{C.id}").
		OrderBy("{P.childIndex}")
	var got []string
	err := lightsql.Select2(context.Background(), q,
		func(e *Contact) error {
			got = append(got, e.GivenName)
			return nil
		},
		func(p *Phone) error {
			got = append(got, p.Label+":"+p.Content)
			return nil
		})
	c.Assert(err, IsNil)
	c.Check(q.GeneratedSQL(), Equals, "SELECT "+contactColumns+", "+phoneColumns+
		" FROM Contact C INNER JOIN Phone P ON P.contactId = C.id ORDER BY C.id, P.childIndex")
	c.Check(got, DeepEquals, []string{
		"Akiyo", "home:01-1111",
		"Akiyo", "work:01-2222",
		"Yukari", "home:02-1111",
	})
}

func (s *ExecSuite) TestSelectJoinedProjectsTargetsOnly(c *C) {
	db := openDB(c, "sqlite3")
	defer db.Close()
	fill(c, db)

	// The second join only filters: its columns are not read.
	q := lightsql.New[Contact]("C").Context(sqliteEnv).Connection(db).
		InnerJoin(Phone{}, "P", "{P.contactID} = {C.id} AND {P.childIndex} = 0").
		InnerJoin(Phone{}, "W", "{W.contactID} = {C.id} AND {W.label} = 'work'")
	var ids []int64
	err := lightsql.Select2(context.Background(), q,
		func(e *Contact) error {
			ids = append(ids, e.ID)
			return nil
		},
		func(p *Phone) error {
			ids = append(ids, p.ContactID)
			return nil
		})
	c.Assert(err, IsNil)
	c.Check(q.GeneratedSQL(), Equals, "SELECT "+contactColumns+", "+phoneColumns+
		" FROM Contact C INNER JOIN Phone P ON P.contactId = C.id AND P.childIndex = 0"+
		" INNER JOIN Phone W ON W.contactId = C.id AND W.label = 'work'")
	c.Check(ids, DeepEquals, []int64{1, 1})
}

func (s *ExecSuite) TestSelectJoinedErrors(c *C) {
	db := openDB(c, "sqlite3")
	defer db.Close()
	ctx := context.Background()
	none := func(*Phone) error { return nil }
	all := func(*Contact) error { return nil }

	err := lightsql.Select2(ctx, lightsql.New[Contact]("C").Connection(db), all, none)
	c.Check(err, ErrorMatches, "invalid builder state: select of 2 tables with 0 joins")

	q := lightsql.New[Contact]("C").Connection(db).InnerJoin(Contact{}, "D", "{D.id} = {C.id}")
	err = lightsql.Select2(ctx, q, all, none)
	c.Check(err, ErrorMatches, `invalid builder state: joined table "D" is lightsql_test.Contact, not lightsql_test.Phone`)
}

func (s *ExecSuite) TestSelectCount(c *C) {
	db := openDB(c, "sqlite3")
	defer db.Close()
	fill(c, db)

	q := lightsql.New[Contact]().Context(sqliteEnv).Connection(db).
		Where("{familyName} = {}", "Apple").
		OrderBy("{id}").
		Limit(1)
	n, err := q.SelectCount(context.Background())
	c.Assert(err, IsNil)
	c.Check(n, Equals, 2)
	c.Check(q.GeneratedSQL(), Equals, "SELECT COUNT(*) FROM Contact WHERE familyName = ?")
}

func (s *ExecSuite) TestLimitOffset(c *C) {
	db := openDB(c, "sqlite3")
	defer db.Close()
	fill(c, db)

	for _, d := range []lightsql.Dialect{lightsql.SQLite, lightsql.Oracle} {
		env := lightsql.NewEnv(lightsql.WithDialect(d))
		var ids []int64
		err := lightsql.New[Contact]().Context(env).Connection(db).
			OrderBy("{id}").
			Offset(1).
			Limit(2).
			Select(context.Background(), func(e *Contact) error {
				ids = append(ids, e.ID)
				return nil
			})
		c.Assert(err, IsNil)
		c.Check(ids, DeepEquals, []int64{2, 3}, Commentf("dialect %s", d.Name()))
	}
}

func (s *ExecSuite) TestOffsetWithoutLimit(c *C) {
	db := openDB(c, "sqlite3")
	defer db.Close()
	fill(c, db)

	var ids []int64
	err := lightsql.New[Contact]().Context(sqliteEnv).Connection(db).
		OrderBy("{id}").
		Offset(2).
		Select(context.Background(), func(e *Contact) error {
			ids = append(ids, e.ID)
			return nil
		})
	c.Assert(err, IsNil)
	c.Check(ids, DeepEquals, []int64{3, 4})
}

func (s *ExecSuite) TestConsumerError(c *C) {
	db := openDB(c, "sqlite3")
	defer db.Close()
	fill(c, db)

	stop := errors.New("stop")
	n := 0
	err := lightsql.New[Contact]().Context(sqliteEnv).Connection(db).Select(context.Background(), func(*Contact) error {
		n++
		return stop
	})
	c.Check(err, Equals, stop)
	c.Check(n, Equals, 1)
}

func (s *ExecSuite) TestRows(c *C) {
	db := openDB(c, "sqlite3")
	defer db.Close()
	fill(c, db)

	var names []string
	for e, err := range lightsql.New[Contact]().Context(sqliteEnv).Connection(db).OrderBy("{id}").Rows(context.Background()) {
		c.Assert(err, IsNil)
		names = append(names, e.GivenName)
		if len(names) == 2 {
			break
		}
	}
	c.Check(names, DeepEquals, []string{"Akiyo", "Yukari"})

	var errs []error
	for e, err := range lightsql.New[NoKey]().Context(sqliteEnv).Connection(db).Rows(context.Background()) {
		c.Check(e, IsNil)
		errs = append(errs, err)
	}
	c.Assert(errs, HasLen, 1)
	c.Check(errors.Is(errs[0], lightsql.ErrExecution), Equals, true)
}

func (s *ExecSuite) TestInsertUpdateDelete(c *C) {
	db := openDB(c, "sqlite3")
	defer db.Close()
	fill(c, db)
	ctx := context.Background()

	contact := &Contact{ID: 5, FamilyName: "Apple", GivenName: "Sachiko", Birthday: date(2005, 5, 5)}
	q := lightsql.New[Contact]().Context(sqliteEnv).Connection(db)
	n, err := q.Insert(ctx, contact)
	c.Assert(err, IsNil)
	c.Check(n, Equals, 1)
	c.Check(q.GeneratedSQL(), Equals, "INSERT INTO Contact (id, familyName, givenName, birthday) VALUES (?, ?, ?, ?)")

	contact.GivenName = "Hanako"
	q = lightsql.New[Contact]().Context(sqliteEnv).Connection(db)
	n, err = q.Update(ctx, contact)
	c.Assert(err, IsNil)
	c.Check(n, Equals, 1)
	c.Check(q.GeneratedSQL(), Equals, "UPDATE Contact SET familyName = ?, givenName = ?, birthday = ? WHERE id = ?")
	c.Check(q.Params(), HasLen, 4)

	got, found, err := lightsql.New[Contact]().Context(sqliteEnv).Connection(db).WhereEntity(contact).SelectOne(ctx)
	c.Assert(err, IsNil)
	c.Assert(found, Equals, true)
	c.Check(got.GivenName, Equals, "Hanako")
	c.Check(got.Birthday.String(), Equals, "2005-05-05")

	// Update of selected columns with a condition.
	q = lightsql.New[Contact]().Context(sqliteEnv).Connection(db).
		Columns("familyName").
		Where("{familyName} = {}", "Apple")
	n, err = q.Update(ctx, &Contact{FamilyName: "Apricot"})
	c.Assert(err, IsNil)
	c.Check(n, Equals, 3)
	c.Check(q.GeneratedSQL(), Equals, "UPDATE Contact SET familyName = ? WHERE familyName = ?")

	n, err = lightsql.New[Contact]().Context(sqliteEnv).Connection(db).DeleteEntity(ctx, contact)
	c.Assert(err, IsNil)
	c.Check(n, Equals, 1)

	n, err = lightsql.New[Contact]().Context(sqliteEnv).Connection(db).DeleteAll(ctx, []*Contact{{ID: 1}, {ID: 2}, {ID: 99}})
	c.Assert(err, IsNil)
	c.Check(n, Equals, 2)

	count, err := lightsql.New[Contact]().Context(sqliteEnv).Connection(db).SelectCount(ctx)
	c.Assert(err, IsNil)
	c.Check(count, Equals, 2)
}

func (s *ExecSuite) TestUpdateAll(c *C) {
	db := openDB(c, "sqlite3")
	defer db.Close()
	fill(c, db)
	ctx := context.Background()

	ps := phones()
	for _, p := range ps {
		p.Content = strings.ReplaceAll(p.Content, "-", "")
	}
	n, err := lightsql.New[Phone]().Context(sqliteEnv).Connection(db).UpdateAll(ctx, ps)
	c.Assert(err, IsNil)
	c.Check(n, Equals, 3)

	var contents []string
	err = lightsql.New[Phone]().Context(sqliteEnv).Connection(db).
		OrderBy("{contactID}").OrderBy("{childIndex}").
		Select(ctx, func(p *Phone) error {
			contents = append(contents, p.Content)
			return nil
		})
	c.Assert(err, IsNil)
	c.Check(contents, DeepEquals, []string{"011111", "012222", "021111"})
}

func (s *ExecSuite) TestDelete(c *C) {
	db := openDB(c, "sqlite3")
	defer db.Close()
	fill(c, db)
	ctx := context.Background()

	// Without a WHERE condition nothing happens.
	q := lightsql.New[Phone]().Context(sqliteEnv).Connection(db)
	n, err := q.Delete(ctx)
	c.Assert(err, IsNil)
	c.Check(n, Equals, 0)
	c.Check(q.GeneratedSQL(), Equals, "")

	q = lightsql.New[Phone]().Context(sqliteEnv).Connection(db).Where("{label} = {}", "home")
	n, err = q.Delete(ctx)
	c.Assert(err, IsNil)
	c.Check(n, Equals, 2)
	c.Check(q.GeneratedSQL(), Equals, "DELETE FROM Phone WHERE label = ?")

	q = lightsql.New[Phone]().Context(sqliteEnv).Connection(db).WhereCond(lightsql.All)
	n, err = q.Delete(ctx)
	c.Assert(err, IsNil)
	c.Check(n, Equals, 1)
	c.Check(q.GeneratedSQL(), Equals, "DELETE FROM Phone")
}

func (s *ExecSuite) TestExecutionError(c *C) {
	db := openDB(c, "sqlite3")
	defer db.Close()

	q := lightsql.New[NoKey]().Context(sqliteEnv).Connection(db)
	err := q.Select(context.Background(), func(*NoKey) error { return nil })
	c.Check(errors.Is(err, lightsql.ErrExecution), Equals, true)
	c.Check(err, ErrorMatches, `cannot execute statement "SELECT name FROM NoKey": .*no such table: NoKey.*`)
	c.Check(q.GeneratedSQL(), Equals, "SELECT name FROM NoKey")

	_, err = lightsql.New[Contact]().Context(sqliteEnv).Insert(context.Background(), &Contact{ID: 1})
	c.Check(err, ErrorMatches, "invalid builder state: no connection for Contact and no supplier")
}

func (s *ExecSuite) TestLifecycle(c *C) {
	db := openDB(c, "sqlite3")
	defer db.Close()
	ctx := context.Background()

	cnt := &Counter{Label: "  first "}
	n, err := lightsql.New[Counter]().Context(sqliteEnv).Connection(db).Insert(ctx, cnt)
	c.Assert(err, IsNil)
	c.Check(n, Equals, 1)
	c.Check(cnt.ID, Equals, int64(1))
	c.Check(cnt.Label, Equals, "first")

	cnt = &Counter{Label: "second"}
	_, err = lightsql.New[Counter]().Context(sqliteEnv).Connection(db).Insert(ctx, cnt)
	c.Assert(err, IsNil)
	c.Check(cnt.ID, Equals, int64(2))

	family := &Family{ID: 10, Name: "Apple", Phones: []*Phone{
		{Label: "home", Content: "10-1111"},
		{Label: "work", Content: "10-2222"},
	}}
	n, err = lightsql.New[Family]().Context(sqliteEnv).Connection(db).Insert(ctx, family)
	c.Assert(err, IsNil)
	c.Check(n, Equals, 3)

	got, found, err := lightsql.New[Family]().Context(sqliteEnv).Connection(db).Where("{id} = {}", 10).SelectOne(ctx)
	c.Assert(err, IsNil)
	c.Assert(found, Equals, true)
	c.Check(got.loaded, Equals, true)
	c.Assert(got.Phones, HasLen, 2)
	c.Check(got.Phones[1].Content, Equals, "10-2222")
	c.Check(got.Phones[1].ChildIndex, Equals, int16(1))

	got.Phones = got.Phones[1:]
	n, err = lightsql.New[Family]().Context(sqliteEnv).Connection(db).Update(ctx, got)
	c.Assert(err, IsNil)
	c.Check(n, Equals, 4)

	n, err = lightsql.New[Family]().Context(sqliteEnv).Connection(db).DeleteEntity(ctx, got)
	c.Assert(err, IsNil)
	c.Check(n, Equals, 2)

	count, err := lightsql.New[Phone]().Context(sqliteEnv).Connection(db).SelectCount(ctx)
	c.Assert(err, IsNil)
	c.Check(count, Equals, 0)
}

func (s *ExecSuite) TestTransaction(c *C) {
	db := openDB(c, "sqlite3")
	defer db.Close()
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	c.Assert(err, IsNil)
	_, err = lightsql.New[Contact]().Context(sqliteEnv).Connection(tx).InsertAll(ctx, contacts())
	c.Assert(err, IsNil)
	c.Assert(tx.Rollback(), IsNil)

	n, err := lightsql.New[Contact]().Context(sqliteEnv).Connection(db).SelectCount(ctx)
	c.Assert(err, IsNil)
	c.Check(n, Equals, 0)
}

func (s *ExecSuite) TestMiddleware(c *C) {
	db := openDB(c, "sqlite3")
	defer db.Close()
	fill(c, db)

	var trace []string
	record := func(name string) lightsql.Middleware {
		return func(next lightsql.Handler) lightsql.Handler {
			return func(ctx context.Context, qc *lightsql.QueryContext) *lightsql.QueryResult {
				trace = append(trace, name+" "+qc.Type+" "+qc.Table)
				res := next(ctx, qc)
				trace = append(trace, fmt.Sprintf("%s %d %v", name, res.Rows, res.Err))
				return res
			}
		}
	}
	env := lightsql.NewEnv(
		lightsql.WithDialect(lightsql.SQLite),
		lightsql.WithMiddlewares(record("outer")),
		lightsql.WithMiddlewares(record("inner")),
	)

	n, err := lightsql.New[Phone]().Context(env).Connection(db).Where("{label} = {}", "home").Delete(context.Background())
	c.Assert(err, IsNil)
	c.Check(n, Equals, 2)
	c.Check(trace, DeepEquals, []string{
		"outer DELETE Phone",
		"inner DELETE Phone",
		"inner 2 <nil>",
		"outer 2 <nil>",
	})

	// Middleware can answer in place of the database.
	blocked := errors.New("blocked")
	env = lightsql.NewEnv(lightsql.WithMiddlewares(func(next lightsql.Handler) lightsql.Handler {
		return func(ctx context.Context, qc *lightsql.QueryContext) *lightsql.QueryResult {
			return &lightsql.QueryResult{Err: blocked}
		}
	}))
	q := lightsql.New[Contact]().Context(env).Connection(db)
	_, err = q.Insert(context.Background(), &Contact{ID: 9})
	c.Check(err, Equals, blocked)
	c.Check(q.GeneratedSQL(), Equals, "INSERT INTO Contact (id, familyName, givenName, birthday) VALUES (?, ?, ?, NULL)")

	env = lightsql.NewEnv(lightsql.WithMiddlewares(func(next lightsql.Handler) lightsql.Handler {
		return func(ctx context.Context, qc *lightsql.QueryContext) *lightsql.QueryResult { return nil }
	}))
	_, err = lightsql.New[Contact]().Context(env).Connection(db).Insert(context.Background(), &Contact{ID: 9})
	c.Check(errors.Is(err, lightsql.ErrExecution), Equals, true)
}

// countingSupplier lends the same database and counts the loans.
type countingSupplier struct {
	db                 *sql.DB
	acquired, released int
	err, releaseErr    error
}

func (cs *countingSupplier) Acquire(ctx context.Context) (lightsql.Conn, error) {
	if cs.err != nil {
		return nil, cs.err
	}
	cs.acquired++
	return cs.db, nil
}

func (cs *countingSupplier) Release(conn lightsql.Conn) error {
	cs.released++
	return cs.releaseErr
}

func (s *ExecSuite) TestSupplier(c *C) {
	db := openDB(c, "sqlite3")
	defer db.Close()
	ctx := context.Background()

	supplier := &countingSupplier{db: db}
	env := lightsql.NewEnv(lightsql.WithDialect(lightsql.SQLite), lightsql.WithSupplier(supplier))
	n, err := lightsql.New[Contact]().Context(env).InsertAll(ctx, contacts())
	c.Assert(err, IsNil)
	c.Check(n, Equals, 4)
	c.Check(supplier.acquired, Equals, 1)
	c.Check(supplier.released, Equals, 1)

	count, err := lightsql.New[Contact]().Context(env).SelectCount(ctx)
	c.Assert(err, IsNil)
	c.Check(count, Equals, 4)
	c.Check(supplier.acquired, Equals, 2)
	c.Check(supplier.released, Equals, 2)

	supplier.err = errors.New("pool exhausted")
	_, err = lightsql.New[Contact]().Context(env).SelectCount(ctx)
	c.Check(errors.Is(err, lightsql.ErrExecution), Equals, true)
	c.Check(err, ErrorMatches, "cannot execute statement: pool exhausted")
}

func (s *ExecSuite) TestReleaseError(c *C) {
	db := openDB(c, "sqlite3")
	defer db.Close()
	ctx := context.Background()

	supplier := &countingSupplier{db: db, releaseErr: errors.New("connection is broken")}
	env := lightsql.NewEnv(lightsql.WithDialect(lightsql.SQLite), lightsql.WithSupplier(supplier))
	_, err := lightsql.New[Contact]().Context(env).Insert(ctx, &Contact{ID: 1, FamilyName: "Apple"})
	c.Check(errors.Is(err, lightsql.ErrExecution), Equals, true)
	c.Check(err, ErrorMatches, ".*cannot release connection: connection is broken")
	c.Check(supplier.released, Equals, 1)

	_, err = lightsql.New[Contact]().Context(env).SelectCount(ctx)
	c.Check(err, ErrorMatches, ".*cannot release connection: connection is broken")

	// The error of the statement wins over the error of the release.
	_, err = lightsql.New[Contact]().Context(env).Where("nope = 1").SelectCount(ctx)
	c.Check(err, ErrorMatches, ".*no such column.*")
	c.Check(supplier.released, Equals, 3)
}

func (s *ExecSuite) TestDefaultEnv(c *C) {
	db := openDB(c, "sqlite3")
	defer db.Close()
	defer lightsql.SetDefault(nil)

	lightsql.SetDefault(lightsql.NewEnv(lightsql.WithDialect(lightsql.SQLite), lightsql.WithSupplier(&countingSupplier{db: db})))
	n, err := lightsql.New[Contact]().Insert(context.Background(), &Contact{ID: 1, FamilyName: "Apple"})
	c.Assert(err, IsNil)
	c.Check(n, Equals, 1)
}

func (s *ExecSuite) TestInlineLiterals(c *C) {
	db := openDB(c, "sqlite3")
	defer db.Close()
	ctx := context.Background()

	d, err := lightsql.NewDialect("SQLite", lightsql.DialectOptions{Limits: typeconv.DefaultLimits, InlineLiterals: true})
	c.Assert(err, IsNil)
	env := lightsql.NewEnv(lightsql.WithDialect(d))

	q := lightsql.New[Contact]().Context(env).Connection(db)
	_, err = q.Insert(ctx, &Contact{ID: 1, FamilyName: "O'Hara", GivenName: "Scarlett", Birthday: date(1990, 3, 4)})
	c.Assert(err, IsNil)
	c.Check(q.GeneratedSQL(), Equals, "INSERT INTO Contact (id, familyName, givenName, birthday) VALUES (1, 'O''Hara', 'Scarlett', '1990-03-04')")
	c.Check(q.Params(), HasLen, 0)

	got, found, err := lightsql.New[Contact]().Context(env).Connection(db).Where("{familyName} = {}", "O'Hara").SelectOne(ctx)
	c.Assert(err, IsNil)
	c.Assert(found, Equals, true)
	c.Check(got.Birthday.String(), Equals, "1990-03-04")
}

func (s *ExecSuite) TestReaderParameter(c *C) {
	db := openDB(c, "sqlite3")
	defer db.Close()
	fill(c, db)

	q := lightsql.New[Contact]().Context(sqliteEnv).Connection(db).Where("{givenName} = {}", strings.NewReader("Taro"))
	e, found, err := q.SelectOne(context.Background())
	c.Assert(err, IsNil)
	c.Assert(found, Equals, true)
	c.Check(e.ID, Equals, int64(4))
}
