// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package example

import (
	"context"
	"fmt"

	"github.com/canonical/lightsql"
	"github.com/canonical/lightsql/entity"
	"github.com/canonical/lightsql/typeconv"
)

type Name struct {
	First string `db:"firstName"`
	Last  string `db:"lastName"`
}

// Contact owns its phones. Its id is taken from the Contact row of the
// Sequence table when it is inserted. Its methods run their statements in
// the Env of the statement calling them.
type Contact struct {
	ID          int64 `db:"id,key"`
	Name        Name
	Birthday    *typeconv.Date
	UpdateCount int      `db:",noinsert" update:"{updateCount}+1"`
	Phones      []*Phone `db:"-"`
}

func (c *Contact) AddPhone(label, content string) *Contact {
	c.Phones = append(c.Phones, &Phone{Label: label, Content: content})
	return c
}

func (c *Contact) PreInsert(ctx context.Context, conn lightsql.Conn) (int, error) {
	env := lightsql.EnvFrom(ctx)
	seq, found, err := lightsql.New[Sequence]().Context(env).Connection(conn).Where("{name} = {}", "Contact").SelectOne(ctx)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("no Contact sequence")
	}
	c.ID = seq.NextID
	return lightsql.New[Sequence]().Context(env).Connection(conn).Update(ctx, seq)
}

func (c *Contact) PostSelect(ctx context.Context, conn lightsql.Conn) error {
	c.Phones = nil
	return lightsql.New[Phone]().
		Context(lightsql.EnvFrom(ctx)).
		Connection(conn).
		Where("{contactID} = {}", c.ID).
		OrderBy("{childIndex}").
		Select(ctx, func(p *Phone) error {
			c.Phones = append(c.Phones, p)
			return nil
		})
}

func (c *Contact) PostInsert(ctx context.Context, conn lightsql.Conn) (int, error) {
	for i, p := range c.Phones {
		p.ContactID = c.ID
		p.ChildIndex = int16(i)
	}
	return lightsql.New[Phone]().Context(lightsql.EnvFrom(ctx)).Connection(conn).InsertAll(ctx, c.Phones)
}

// PostUpdate replaces the phones of the contact.
func (c *Contact) PostUpdate(ctx context.Context, conn lightsql.Conn) (int, error) {
	deleted, err := c.PostDelete(ctx, conn)
	if err != nil {
		return deleted, err
	}
	inserted, err := c.PostInsert(ctx, conn)
	return deleted + inserted, err
}

func (c *Contact) PostDelete(ctx context.Context, conn lightsql.Conn) (int, error) {
	return lightsql.New[Phone]().Context(lightsql.EnvFrom(ctx)).Connection(conn).Where("{contactID} = {}", c.ID).Delete(ctx)
}

type Phone struct {
	ContactID  int64 `db:"contactId,key"`
	ChildIndex int16 `db:"childIndex,key"`
	Label      string
	Content    string
}

// Sequence numbers the rows of a table.
type Sequence struct {
	Name   string `db:"name,key"`
	NextID int64  `db:"nextId" update:"{nextID}+1"`
}

// Person is a contact read with its full name.
type Person struct {
	Contact
	FullName string `db:",noinsert,noupdate" select:"{name.first}||' '||{name.last}"`
}

func (*Person) TableName() string { return entity.SuperTable }

// fullNames are the expressions of Person.FullName for the dialects that
// do not concatenate with ||.
var fullNames = map[string]string{
	"MySQL":     "CONCAT({name.first},' ',{name.last})",
	"MariaDB":   "CONCAT({name.first},' ',{name.last})",
	"SQLServer": "{name.first}+' '+{name.last}",
}

// SelectPersons returns a builder of persons whose full name is computed
// with the dialect of env.
func SelectPersons(env *lightsql.Env) *lightsql.Sql[Person] {
	q := lightsql.New[Person]().Context(env)
	d := env.Dialect
	if d == nil {
		d = lightsql.Standard
	}
	if expr, ok := fullNames[d.Name()]; ok {
		q.Expression("fullName", expr)
	}
	return q
}
