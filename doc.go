/*
Package lightsql builds and executes SQL statements on tables mapped to Go structs.

Each exported struct type is an entity mapped to a table named after the type.
Its fields are the columns of the table, named after the field in lower camel case unless a `db` tag says otherwise.
See package entity for the mapping rules.

	type Contact struct {
		ID         int64 `db:"id,key"`
		FamilyName string
		GivenName  string
		Birthday   typeconv.Date
	}

# Statements

A statement is built with a Sql builder and executed by one of its terminals.
Conditions and other clauses are expressions in which placeholders are replaced as the SQL is generated:

	{}         the next argument
	{prop}     the column of a property of the main table
	{A.prop}   the column of a property of the table with alias A
	{A_prop}   the label of a column in the SELECT list
	{#prop}    the value of a property of the current entity

For example:

	err := lightsql.New[Contact]().
		Connection(db).
		Where("{familyName} = {}", "Apple").
		Select(ctx, func(c *Contact) error {
			contacts = append(contacts, c)
			return nil
		})

generates

	SELECT id, familyName, givenName, birthday FROM Contact WHERE familyName = ?

Values are bound as parameters. A dialect created with InlineLiterals renders short values as SQL literals instead.

Conditions are composed with And, Or and Not.
Empty and All are the neutral conditions: a WHERE of All is left out of the statement, and Delete refuses to run with an Empty WHERE.

# Joins

Joined tables are aliased and read along with the main table by Select2 to Select5:

	err := lightsql.Select2(ctx,
		lightsql.New[Contact]("C").InnerJoin(Phone{}, "P", "{P.contactId} = {C.id}").Connection(db),
		func(c *Contact) error { ... },
		func(p *Phone) error { ... },
	)

Each column is labelled with its alias, here C_id, P_contactId and so on.

# Dialects

The SQL of a statement depends on the Dialect of the Env of its builder.
Standard, MySQL, MariaDB, PostgreSQL, SQLite, Oracle, SQLServer and DB2 are predefined.
DialectFor finds the dialect of a connection URL such as "sql:postgres:host=db user=app".

# Lifecycle

Entities may implement PreStorer, PreInserter, PostLoader and Composite to run code and statements
when they are stored, inserted, read, updated and deleted.
*/
package lightsql
