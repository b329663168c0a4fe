// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package example is an address book kept with lightsql: contacts owning
// phones, keys taken from a sequence table and computed columns.
package example

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/canonical/lightsql"
	"github.com/canonical/lightsql/typeconv"
)

// Schema creates the tables of the example on SQLite.
const Schema = `
CREATE TABLE Sequence (
	name text PRIMARY KEY,
	nextId integer
);
INSERT INTO Sequence (name, nextId) VALUES ('Contact', 1);
CREATE TABLE Contact (
	id integer PRIMARY KEY,
	firstName text,
	lastName text,
	birthday date,
	updateCount integer DEFAULT 0
);
CREATE TABLE Phone (
	contactId integer,
	childIndex integer,
	label text,
	content text,
	PRIMARY KEY (contactId, childIndex)
);
`

func date(year int, month time.Month, day int) *typeconv.Date {
	d := typeconv.NewDate(year, month, day)
	return &d
}

// Run fills the address book of db, then reports on it to w.
func Run(ctx context.Context, db *sql.DB, env *lightsql.Env, w io.Writer) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return err
	}

	contacts := []*Contact{
		(&Contact{Name: Name{"Akiyo", "Apple"}, Birthday: date(2001, time.January, 1)}).
			AddPhone("home", "01-1111").AddPhone("work", "01-2222"),
		(&Contact{Name: Name{"Yukari", "Apple"}, Birthday: date(2002, time.February, 2)}).
			AddPhone("home", "02-1111"),
		{Name: Name{"Hiroko", "Orange"}},
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := lightsql.New[Contact]().Context(env).Connection(tx).InsertAll(ctx, contacts); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	err = SelectPersons(env).Connection(db).OrderBy("{id}").Select(ctx, func(p *Person) error {
		phones := make([]string, len(p.Phones))
		for i, ph := range p.Phones {
			phones[i] = ph.Label + " " + ph.Content
		}
		fmt.Fprintf(w, "%d %s [%s]\n", p.ID, p.FullName, strings.Join(phones, ", "))
		return nil
	})
	if err != nil {
		return err
	}

	// Yukari moves to the Orange family and drops her phone.
	yukari := contacts[1]
	yukari.Name.Last = "Orange"
	yukari.Phones = nil
	if _, err := lightsql.New[Contact]().Context(env).Connection(db).Update(ctx, yukari); err != nil {
		return err
	}
	orange, found, err := lightsql.New[Contact]().Context(env).Connection(db).
		Where("{name.first} = {}", "Yukari").
		SelectOne(ctx)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("Yukari not found")
	}
	fmt.Fprintf(w, "%s %s updated %d time(s), %d phone(s)\n", orange.Name.First, orange.Name.Last, orange.UpdateCount, len(orange.Phones))

	// Contacts without phones.
	n, err := lightsql.New[Contact]("C").Context(env).Connection(db).
		WhereSub("NOT EXISTS", lightsql.New[Phone]("P").Where("{P.contactID} = {C.id}")).
		SelectCount(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d contact(s) without phone\n", n)

	// Born this century, per family.
	q := lightsql.New[Contact]("C").Context(env).Connection(db).
		Where("{C.birthday} >= {}", typeconv.NewDate(2000, time.January, 1)).
		OrderBy("{C.name.last}").OrderBy("{C.name.first}")
	for c, err := range q.Rows(ctx) {
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s %s born %s\n", c.Name.First, c.Name.Last, c.Birthday)
	}

	n, err = lightsql.New[Contact]().Context(env).Connection(db).DeleteEntity(ctx, contacts[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d row(s) deleted with %s\n", n, contacts[0].Name.First)
	return nil
}
