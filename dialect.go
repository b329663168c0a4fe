// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package lightsql

import (
	"reflect"
	"strings"
	"sync"

	"github.com/canonical/lightsql/typeconv"
)

// Dialect generates the SQL of statements for one kind of database and
// converts values between Go and that database.
//
// The SQL methods append the parameters of the statement to params, in
// the order of their placeholders.
type Dialect interface {
	// Name is the short name of the dialect, e.g. "MySQL".
	Name() string

	// SupportsOffsetLimit reports whether SELECT statements carry their
	// LIMIT and OFFSET. When they do not, the executor skips and stops
	// reading rows itself.
	SupportsOffsetLimit() bool

	SelectSQL(stmt *Statement, params *[]any) (string, error)

	// SubSelectSQL is SelectSQL without ORDER BY, LIMIT, OFFSET and
	// FOR UPDATE.
	SubSelectSQL(stmt *Statement, params *[]any) (string, error)

	// SubSelectColumnsSQL is SubSelectSQL selecting columns instead of the
	// columns of the statement, e.g. "COUNT(*)".
	SubSelectColumnsSQL(stmt *Statement, columns string, params *[]any) (string, error)

	InsertSQL(stmt *Statement, params *[]any) (string, error)
	UpdateSQL(stmt *Statement, params *[]any) (string, error)
	DeleteSQL(stmt *Statement, params *[]any) (string, error)

	// Converters returns the converters of the dialect.
	Converters() *typeconv.Registry

	// Convert converts a value to the type typ.
	Convert(value any, typ reflect.Type) (any, error)

	// ToSQL renders a value as a literal or a parameter.
	ToSQL(value any) (typeconv.SQLString, error)

	// MaskPassword hides the password of a connection URL.
	MaskPassword(url string) string

	// ReadValue returns the value of a column of a result row.
	ReadValue(row *Row, label string) (any, error)
}

// Rebinder is implemented by dialects whose drivers do not accept "?"
// placeholders. Rebind is applied to the SQL just before it is prepared.
type Rebinder interface {
	Rebind(query string) string
}

// DialectOptions configure how a dialect renders values.
type DialectOptions struct {
	Limits typeconv.Limits

	// InlineLiterals renders values as SQL literals when the converters of
	// the dialect allow it. Values are otherwise bound as parameters.
	InlineLiterals bool
}

// DefaultDialectOptions are the options of the predefined dialects.
var DefaultDialectOptions = DialectOptions{Limits: typeconv.DefaultLimits}

// dialectBuilders build the predefined dialects by name.
var dialectBuilders = map[string]func(DialectOptions) *Emitter{
	"Standard":   newStandard,
	"MySQL":      newMySQL,
	"MariaDB":    newMariaDB,
	"PostgreSQL": newPostgreSQL,
	"SQLite":     newSQLite,
	"Oracle":     newOracle,
	"SQLServer":  newSQLServer,
	"DB2":        newDB2,
}

// The predefined dialects, with the default options.
var (
	Standard   = newStandard(DefaultDialectOptions)
	MySQL      = newMySQL(DefaultDialectOptions)
	MariaDB    = newMariaDB(DefaultDialectOptions)
	PostgreSQL = newPostgreSQL(DefaultDialectOptions)
	SQLite     = newSQLite(DefaultDialectOptions)
	Oracle     = newOracle(DefaultDialectOptions)
	SQLServer  = newSQLServer(DefaultDialectOptions)
	DB2        = newDB2(DefaultDialectOptions)
)

var (
	dialectsMutex sync.RWMutex
	// dialects maps the vendor tokens of connection URLs to dialects.
	dialects = map[string]Dialect{
		"standard":   Standard,
		"mysql":      MySQL,
		"mariadb":    MariaDB,
		"postgresql": PostgreSQL,
		"postgres":   PostgreSQL,
		"sqlite":     SQLite,
		"sqlite3":    SQLite,
		"oracle":     Oracle,
		"sqlserver":  SQLServer,
		"db2":        DB2,
	}
)

// RegisterDialect makes a dialect resolvable from connection URLs holding
// token.
func RegisterDialect(token string, d Dialect) {
	dialectsMutex.Lock()
	defer dialectsMutex.Unlock()
	dialects[token] = d
}

// DialectFor returns the dialect of a connection URL of the form
// "protocol:vendor:...", e.g. "sql:postgres:host=db user=app". The tokens
// following the protocol are matched case-sensitively against the
// registered vendor tokens, and the first match wins.
func DialectFor(url string) (Dialect, error) {
	tokens := strings.Split(url, ":")
	if len(tokens) > 1 {
		tokens = tokens[1:]
	}
	dialectsMutex.RLock()
	defer dialectsMutex.RUnlock()
	for _, token := range tokens {
		if d, ok := dialects[token]; ok {
			return d, nil
		}
	}
	return nil, configf("no dialect for URL %q", maskURL(url))
}

// DialectByName returns a predefined dialect by name. The name may be
// qualified by a package, as in "lightsql.MySQL". Registered vendor tokens
// are accepted too.
func DialectByName(name string) (Dialect, error) {
	short := name[strings.LastIndexByte(name, '.')+1:]
	switch short {
	case "Standard":
		return Standard, nil
	case "MySQL":
		return MySQL, nil
	case "MariaDB":
		return MariaDB, nil
	case "PostgreSQL":
		return PostgreSQL, nil
	case "SQLite":
		return SQLite, nil
	case "Oracle":
		return Oracle, nil
	case "SQLServer":
		return SQLServer, nil
	case "DB2":
		return DB2, nil
	}
	dialectsMutex.RLock()
	defer dialectsMutex.RUnlock()
	if d, ok := dialects[name]; ok {
		return d, nil
	}
	return nil, configf("unknown dialect %q", name)
}

// NewDialect returns a predefined dialect configured with opts.
func NewDialect(name string, opts DialectOptions) (Dialect, error) {
	short := name[strings.LastIndexByte(name, '.')+1:]
	build, ok := dialectBuilders[short]
	if !ok {
		return nil, configf("unknown dialect %q", name)
	}
	if opts.Limits.MaxStringLiteralLength < 0 || opts.Limits.MaxBinaryLiteralLength < 0 {
		return nil, configf("negative literal length limit")
	}
	return build(opts), nil
}

// Row is a row of a result set. Its values are found by column label,
// ignoring case if no label matches exactly.
type Row struct {
	labels []string
	values []any
	dest   []any
	index  map[string]int
	folded map[string]int
}

func newRow(labels []string) *Row {
	row := &Row{
		labels: labels,
		values: make([]any, len(labels)),
		dest:   make([]any, len(labels)),
		index:  make(map[string]int, len(labels)),
		folded: make(map[string]int, len(labels)),
	}
	for i, label := range labels {
		row.dest[i] = &row.values[i]
		if _, ok := row.index[label]; !ok {
			row.index[label] = i
		}
		if _, ok := row.folded[strings.ToLower(label)]; !ok {
			row.folded[strings.ToLower(label)] = i
		}
	}
	return row
}

// Labels returns the column labels of the result set.
func (row *Row) Labels() []string {
	return append([]string(nil), row.labels...)
}

// Value returns the value of the column with the given label.
func (row *Row) Value(label string) (any, bool) {
	i, ok := row.index[label]
	if !ok {
		i, ok = row.folded[strings.ToLower(label)]
	}
	if !ok {
		return nil, false
	}
	return row.values[i], true
}

// Index returns the value of the i-th column.
func (row *Row) Index(i int) any {
	return row.values[i]
}
