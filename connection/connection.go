// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package connection supplies database connections to lightsql
// environments and registers the SQL drivers they open.
//
// Connection URLs have the form "sql:<vendor>:<dsn>", where dsn is in the
// format of the driver of the vendor:
//
//	sql:mysql:app:secret@tcp(db:3306)/app
//	sql:postgres:host=db user=app password=secret
//	sql:postgres://app:secret@db:5432/app
//	sql:sqlite3:file:app.db?cache=shared
//	sql:sqlite::memory:
package connection

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/canonical/lightsql"
)

// Supplier is a lightsql.Supplier owning the database it lends
// connections of.
type Supplier interface {
	lightsql.Supplier
	io.Closer

	// DB returns the database of the supplier.
	DB() *sql.DB
}

// Factory opens a Supplier for a connection URL.
type Factory func(url string, logger *slog.Logger) (Supplier, error)

var (
	registryMutex sync.RWMutex
	// drivers maps the vendor tokens of URLs to database/sql drivers.
	drivers = map[string]string{
		"mysql":      "mysql",
		"mariadb":    "mysql",
		"postgres":   "postgres",
		"postgresql": "postgres",
		"sqlite3":    "sqlite3",
		"sqlite":     "sqlite",
	}
	suppliers = map[string]Factory{
		"DB":        func(url string, l *slog.Logger) (Supplier, error) { return OpenDB(url, l) },
		"Conn":      func(url string, l *slog.Logger) (Supplier, error) { return OpenConns(url, l) },
		"StmtCache": func(url string, l *slog.Logger) (Supplier, error) { return OpenStmtCache(url, 0, l) },
	}
)

// RegisterDriver makes URLs with the given vendor token open the named
// database/sql driver.
func RegisterDriver(vendor, driverName string) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	drivers[vendor] = driverName
}

// RegisterSupplier makes a supplier available to configurations by name.
func RegisterSupplier(name string, f Factory) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	suppliers[name] = f
}

// NewSupplier opens the supplier registered as name for url.
func NewSupplier(name, url string, logger *slog.Logger) (Supplier, error) {
	registryMutex.RLock()
	f, ok := suppliers[name]
	registryMutex.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown connection supplier %q", lightsql.ErrConfig, name)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return f(url, logger)
}

// ParseURL returns the database/sql driver name and data source name of a
// connection URL.
func ParseURL(url string) (driverName, dsn string, err error) {
	rest := strings.TrimPrefix(url, "sql:")
	vendor, dsn, ok := strings.Cut(rest, ":")
	if !ok || vendor == "" {
		return "", "", fmt.Errorf("%w: malformed connection URL %q", lightsql.ErrConfig, maskPassword(url))
	}
	if strings.HasPrefix(dsn, "//") {
		dsn = vendor + ":" + dsn
	}
	registryMutex.RLock()
	driverName, ok = drivers[vendor]
	registryMutex.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("%w: no driver for vendor %q", lightsql.ErrConfig, vendor)
	}
	return driverName, dsn, nil
}

// open opens the database of url and logs it with its password masked.
func open(url, supplier string, logger *slog.Logger) (*sql.DB, error) {
	driverName, dsn, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open %q: %s", lightsql.ErrConfig, maskPassword(url), err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("opened database", "supplier", supplier, "driver", driverName, "url", maskPassword(url))
	return db, nil
}

func maskPassword(url string) string {
	d, err := lightsql.DialectFor(url)
	if err != nil {
		d = lightsql.Standard
	}
	return d.MaskPassword(url)
}

// DB lends the same *sql.DB to every terminal. Terminals run on pooled
// connections of their own.
type DB struct {
	db *sql.DB
}

// NewDB returns a supplier lending db. Closing it closes db.
func NewDB(db *sql.DB) *DB {
	return &DB{db: db}
}

// OpenDB opens the database of url.
func OpenDB(url string, logger *slog.Logger) (*DB, error) {
	db, err := open(url, "DB", logger)
	if err != nil {
		return nil, err
	}
	return NewDB(db), nil
}

func (s *DB) Acquire(ctx context.Context) (lightsql.Conn, error) {
	return s.db, nil
}

func (s *DB) Release(conn lightsql.Conn) error {
	return nil
}

func (s *DB) DB() *sql.DB {
	return s.db
}

func (s *DB) Close() error {
	return s.db.Close()
}

// Conns lends a dedicated connection of its pool for each terminal,
// returned to the pool on release.
type Conns struct {
	db *sql.DB
}

// NewConns returns a supplier lending connections of db. Closing it closes
// db.
func NewConns(db *sql.DB) *Conns {
	return &Conns{db: db}
}

// OpenConns opens the database of url.
func OpenConns(url string, logger *slog.Logger) (*Conns, error) {
	db, err := open(url, "Conn", logger)
	if err != nil {
		return nil, err
	}
	return NewConns(db), nil
}

func (s *Conns) Acquire(ctx context.Context) (lightsql.Conn, error) {
	return s.db.Conn(ctx)
}

func (s *Conns) Release(conn lightsql.Conn) error {
	c, ok := conn.(*sql.Conn)
	if !ok {
		return fmt.Errorf("%w: cannot release %T", lightsql.ErrInvariant, conn)
	}
	return c.Close()
}

func (s *Conns) DB() *sql.DB {
	return s.db
}

func (s *Conns) Close() error {
	return s.db.Close()
}

// StmtCache lends a statement cache shared by every terminal, so that each
// distinct statement is prepared once.
type StmtCache struct {
	cache *lightsql.StmtCache
}

// OpenStmtCache opens the database of url with a statement cache of the
// given size. A non-positive size selects lightsql.DefaultStmtCacheSize.
func OpenStmtCache(url string, size int, logger *slog.Logger) (*StmtCache, error) {
	db, err := open(url, "StmtCache", logger)
	if err != nil {
		return nil, err
	}
	cache, err := lightsql.NewStmtCache(db, size)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &StmtCache{cache: cache}, nil
}

func (s *StmtCache) Acquire(ctx context.Context) (lightsql.Conn, error) {
	return s.cache, nil
}

func (s *StmtCache) Release(conn lightsql.Conn) error {
	return nil
}

func (s *StmtCache) DB() *sql.DB {
	return s.cache.DB()
}

// Cache returns the statement cache of the supplier.
func (s *StmtCache) Cache() *lightsql.StmtCache {
	return s.cache
}

// Close closes the cached statements, then the database.
func (s *StmtCache) Close() error {
	err := s.cache.Close()
	if dbErr := s.cache.DB().Close(); err == nil {
		err = dbErr
	}
	return err
}
