// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package lightsql

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/canonical/lightsql/typeconv"
)

func newEmitter(name string, opts DialectOptions) *Emitter {
	return &Emitter{
		name:        name,
		offsetLimit: true,
		forUpdate:   true,
		options:     opts,
		converters:  typeconv.Standard(opts.Limits),
	}
}

func newStandard(opts DialectOptions) *Emitter {
	e := newEmitter("Standard", opts)
	e.noWait = true
	return e
}

func newMySQL(opts DialectOptions) *Emitter {
	e := newEmitter("MySQL", opts)
	e.noWait = true
	e.deleteAlias = true
	e.textBytes = true
	e.unboundedLimit = "18446744073709551615"
	e.maskDSN = maskMySQL
	limits := opts.Limits
	e.converters.Put(
		boolAsInt,
		typeconv.New(func(s string) (typeconv.SQLString, error) {
			if len(s) > limits.MaxStringLiteralLength {
				return typeconv.Param(s), nil
			}
			return typeconv.Literal(backslashQuote(s)), nil
		}),
	)
	return e
}

func newMariaDB(opts DialectOptions) *Emitter {
	e := newMySQL(opts)
	e.name = "MariaDB"
	e.waitN = true
	return e
}

func newPostgreSQL(opts DialectOptions) *Emitter {
	e := newEmitter("PostgreSQL", opts)
	e.noWait = true
	e.dollar = true
	e.textBytes = true
	limits := opts.Limits
	e.converters.Put(
		typeconv.New(func(s string) (typeconv.SQLString, error) {
			if len(s) > limits.MaxStringLiteralLength {
				return typeconv.Param(s), nil
			}
			if hasControl(s) || strings.ContainsRune(s, '\\') {
				return typeconv.Literal("E" + backslashQuote(s)), nil
			}
			return typeconv.Literal(typeconv.QuoteString(s)), nil
		}),
		typeconv.New(func(b []byte) (typeconv.SQLString, error) {
			if len(b) > limits.MaxBinaryLiteralLength {
				return typeconv.Param(b), nil
			}
			return typeconv.Literal(`E'\\x` + upperHex(b) + "'"), nil
		}),
	)
	return e
}

func newSQLite(opts DialectOptions) *Emitter {
	e := newEmitter("SQLite", opts)
	e.forUpdate = false
	e.dmlAS = true
	e.unboundedLimit = "-1"
	e.converters.Put(
		boolAsInt,
		typeconv.New(func(t time.Time) (typeconv.SQLString, error) {
			return typeconv.Literal(typeconv.QuoteString(t.Format(typeconv.TimestampLayout))), nil
		}),
		typeconv.New(func(d typeconv.Date) (typeconv.SQLString, error) {
			return typeconv.Literal(typeconv.QuoteString(d.String())), nil
		}),
		typeconv.New(func(t typeconv.TimeOfDay) (typeconv.SQLString, error) {
			return typeconv.Literal(typeconv.QuoteString(t.String())), nil
		}),
		typeconv.New(func(b []byte) (typeconv.SQLString, error) {
			return typeconv.Param(b), nil
		}),
	)
	return e
}

func newOracle(opts DialectOptions) *Emitter {
	e := newEmitter("Oracle", opts)
	e.offsetLimit = false
	e.noWait = true
	e.waitN = true
	limits := opts.Limits
	e.converters.Put(
		boolAsInt,
		typeconv.New(func(s string) (typeconv.SQLString, error) {
			if len(s) > limits.MaxStringLiteralLength {
				return typeconv.Param(s), nil
			}
			return typeconv.Literal(concatLiteral(s, "||", "CHR")), nil
		}),
		typeconv.New(func(b []byte) (typeconv.SQLString, error) {
			if len(b) > limits.MaxBinaryLiteralLength {
				return typeconv.Param(b), nil
			}
			return typeconv.Literal("HEXTORAW('" + upperHex(b) + "')"), nil
		}),
	)
	return e
}

func newSQLServer(opts DialectOptions) *Emitter {
	e := newEmitter("SQLServer", opts)
	e.offsetLimit = false
	e.forUpdate = false
	limits := opts.Limits
	e.converters.Put(
		boolAsInt,
		typeconv.New(func(s string) (typeconv.SQLString, error) {
			if len(s) > limits.MaxStringLiteralLength {
				return typeconv.Param(s), nil
			}
			return typeconv.Literal(concatLiteral(s, "+", "CHAR")), nil
		}),
		typeconv.New(func(b []byte) (typeconv.SQLString, error) {
			if len(b) > limits.MaxBinaryLiteralLength {
				return typeconv.Param(b), nil
			}
			return typeconv.Literal("0x" + upperHex(b)), nil
		}),
		typeconv.New(func(t time.Time) (typeconv.SQLString, error) {
			return typeconv.Literal(typeconv.QuoteString(t.Format(typeconv.TimestampLayout))), nil
		}),
		typeconv.New(func(d typeconv.Date) (typeconv.SQLString, error) {
			return typeconv.Literal(typeconv.QuoteString(d.String())), nil
		}),
		typeconv.New(func(t typeconv.TimeOfDay) (typeconv.SQLString, error) {
			return typeconv.Literal(typeconv.QuoteString(t.String())), nil
		}),
	)
	return e
}

func newDB2(opts DialectOptions) *Emitter {
	e := newEmitter("DB2", opts)
	limits := opts.Limits
	e.converters.Put(
		typeconv.New(func(b []byte) (typeconv.SQLString, error) {
			if len(b) > limits.MaxBinaryLiteralLength {
				return typeconv.Param(b), nil
			}
			return typeconv.Literal("BX'" + upperHex(b) + "'"), nil
		}),
	)
	return e
}

var boolAsInt = typeconv.New(func(b bool) (typeconv.SQLString, error) {
	if b {
		return typeconv.Literal("1"), nil
	}
	return typeconv.Literal("0"), nil
})

func upperHex(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}

func hasControl(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r < 0x20 || r == 0x7f }) >= 0
}

// backslashQuote quotes s with the backslash escapes of MySQL and of
// PostgreSQL E'' strings.
func backslashQuote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('\'')
	for _, r := range s {
		switch r {
		case 0:
			sb.WriteString(`\0`)
		case '\b':
			sb.WriteString(`\b`)
		case '\t':
			sb.WriteString(`\t`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\\':
			sb.WriteString(`\\`)
		case '\'':
			sb.WriteString(`''`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&sb, `\x%02X`, r)
				continue
			}
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}

// concatLiteral renders s as quoted runs joined by op with its control
// characters, e.g. 'a'||CHR(10)||'b'.
func concatLiteral(s, op, char string) string {
	var parts []string
	var run strings.Builder
	flush := func() {
		if run.Len() > 0 {
			parts = append(parts, typeconv.QuoteString(run.String()))
			run.Reset()
		}
	}
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			flush()
			parts = append(parts, fmt.Sprintf("%s(%d)", char, r))
			continue
		}
		run.WriteRune(r)
	}
	flush()
	if len(parts) == 0 {
		return "''"
	}
	return strings.Join(parts, op)
}

// maskMySQL masks the password of a URL ending with a MySQL DSN, as in
// "sql:mysql:user:secret@tcp(db:3306)/app".
func maskMySQL(url string) string {
	i := strings.Index(url, "mysql:")
	if i < 0 {
		return url
	}
	dsn := url[i+len("mysql:"):]
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil || cfg.Passwd == "" {
		return url
	}
	return url[:i+len("mysql:")] + strings.Replace(dsn, ":"+cfg.Passwd+"@", ":****@", 1)
}
