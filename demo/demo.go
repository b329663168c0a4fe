// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Demo runs a few queries on the database named by the file of the
// LIGHTSQL_CONFIG environment variable, or on an in-memory SQLite
// database when it is not set.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/canonical/lightsql"
	"github.com/canonical/lightsql/config"
	"github.com/canonical/lightsql/connection"
	"github.com/canonical/lightsql/middleware/querylog"
)

type Person struct {
	Name     string `db:"name,key"`
	Height   int    `db:"height_cm"`
	HomeTown string `db:"home_town"`
}

func (Person) TableName() string { return "people" }

type Place struct {
	Name       string `db:"town_name,key"`
	Population int
}

func (Place) TableName() string { return "location" }

var schema = []string{`
CREATE TABLE people (
	name text,
	height_cm integer,
	home_town text
)`, `
CREATE TABLE location (
	town_name text,
	population integer
)`}

func run(ctx context.Context, cfg *config.Config, w io.Writer, verbose bool) error {
	var opts []lightsql.Option
	if verbose {
		ql := querylog.NewMiddlewareBuilder().LogFunc(func(_ context.Context, query string, params []any) {
			fmt.Fprintf(w, "-- %s %v\n", query, params)
		})
		opts = append(opts, lightsql.WithMiddlewares(ql.Build()))
	}
	env, supplier, err := connection.NewEnv(cfg, opts...)
	if err != nil {
		return err
	}
	if supplier == nil {
		return fmt.Errorf("no url in configuration")
	}
	defer supplier.Close()

	for _, ddl := range schema {
		if _, err := supplier.DB().ExecContext(ctx, ddl); err != nil {
			return err
		}
	}

	people := []*Person{{"Jim", 150, "Kabul"}, {"Saba", 162, "Berlin"}, {"Dave", 169, "Brasília"}, {"Sophie", 174, "Berlin"}, {"Kiri", 168, "Cape Town"}}
	places := []*Place{{"Kabul", 13000000}, {"Berlin", 3677472}, {"Brasília", 3039444}, {"Cape Town", 4710000}}
	if _, err := lightsql.New[Person]().Context(env).InsertAll(ctx, people); err != nil {
		return err
	}
	if _, err := lightsql.New[Place]().Context(env).InsertAll(ctx, places); err != nil {
		return err
	}

	// Find people taller than Jim.
	jim := people[0]
	taller := lightsql.New[Person]().Context(env).
		Where("{height} > {}", jim.Height).
		OrderBy("{height}")
	for p, err := range taller.Rows(ctx) {
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s is taller than %s.\n", p.Name, jim.Name)
	}

	// Find the towns of people taller than Jim.
	q := lightsql.New[Person]("p").Context(env).
		InnerJoin(Place{}, "l", "{l.name} = {p.homeTown}").
		Where("{p.height} > {}", jim.Height).
		OrderBy("{l.population}").Desc().OrderBy("{p.name}")
	var name string
	err = lightsql.Select2(ctx, q,
		func(p *Person) error {
			name = p.Name
			return nil
		},
		func(l *Place) error {
			fmt.Fprintf(w, "%s lives in %s (population %d).\n", name, l.Name, l.Population)
			return nil
		})
	if err != nil {
		return err
	}

	towns, err := lightsql.New[Place]().Context(env).
		WhereSub("{name} IN", lightsql.New[Person]("p").Columns("p.homeTown").Where("{p.height} > {}", 165)).
		SelectCount(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d town(s) with people taller than 165cm.\n", towns)
	return nil
}

func main() {
	verbose := flag.Bool("v", false, "print the statements executed")
	flag.Parse()

	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.URL == "" {
		cfg.Database = "SQLite"
		cfg.URL = "sql:sqlite3:file:demo?mode=memory&cache=shared"
	}
	if err := run(context.Background(), cfg, os.Stdout, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
