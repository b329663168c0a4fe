// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package typeconv

import (
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Limits bounds the size of inlined literals. Longer values are bound as
// parameters.
type Limits struct {
	MaxStringLiteralLength int
	MaxBinaryLiteralLength int
}

// DefaultLimits are used when no configuration overrides them.
var DefaultLimits = Limits{MaxStringLiteralLength: 128, MaxBinaryLiteralLength: 128}

var (
	int64Type    = reflect.TypeOf(int64(0))
	uint64Type   = reflect.TypeOf(uint64(0))
	float64Type  = reflect.TypeOf(float64(0))
	stringType   = reflect.TypeOf("")
	stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
)

var (
	intTypes = []reflect.Type{
		reflect.TypeOf(int(0)), reflect.TypeOf(int8(0)), reflect.TypeOf(int16(0)),
		reflect.TypeOf(int32(0)), int64Type,
	}
	uintTypes = []reflect.Type{
		reflect.TypeOf(uint(0)), reflect.TypeOf(uint8(0)), reflect.TypeOf(uint16(0)),
		reflect.TypeOf(uint32(0)), uint64Type,
	}
	floatTypes = []reflect.Type{reflect.TypeOf(float32(0)), float64Type}
)

// Standard returns a registry holding the dialect independent converters:
// rendering of booleans, numbers, strings, times, byte slices, UUIDs,
// decimals and enumerations into SQL, and reading of driver values into
// property types.
func Standard(limits Limits) *Registry {
	r := NewRegistry()
	putNumeric(r)
	putText(r, limits)
	putTime(r)
	putMisc(r, limits)
	return r
}

func putNumeric(r *Registry) {
	for _, t := range intTypes {
		t := t
		r.Put(Func(t, sqlStringType, func(v any) (any, error) {
			return Literal(strconv.FormatInt(reflect.ValueOf(v).Int(), 10)), nil
		}))
		r.Put(Func(int64Type, t, func(v any) (any, error) {
			return setInt(t, v.(int64))
		}))
		r.Put(Func(float64Type, t, func(v any) (any, error) {
			f := v.(float64)
			if f != math.Trunc(f) {
				return nil, fmt.Errorf("%v is not an integer", f)
			}
			return setInt(t, int64(f))
		}))
		r.Put(Func(stringType, t, func(v any) (any, error) {
			n, err := strconv.ParseInt(strings.TrimSpace(v.(string)), 10, t.Bits())
			if err != nil {
				return nil, err
			}
			return setInt(t, n)
		}))
		if t != int64Type {
			r.Put(Func(t, int64Type, func(v any) (any, error) {
				return reflect.ValueOf(v).Int(), nil
			}))
		}
	}
	for _, t := range uintTypes {
		t := t
		r.Put(Func(t, sqlStringType, func(v any) (any, error) {
			return Literal(strconv.FormatUint(reflect.ValueOf(v).Uint(), 10)), nil
		}))
		r.Put(Func(int64Type, t, func(v any) (any, error) {
			n := v.(int64)
			if n < 0 {
				return nil, fmt.Errorf("%d overflows %s", n, t)
			}
			return setUint(t, uint64(n))
		}))
		r.Put(Func(stringType, t, func(v any) (any, error) {
			n, err := strconv.ParseUint(strings.TrimSpace(v.(string)), 10, t.Bits())
			if err != nil {
				return nil, err
			}
			return setUint(t, n)
		}))
	}
	for _, t := range floatTypes {
		t := t
		r.Put(Func(t, sqlStringType, func(v any) (any, error) {
			f := reflect.ValueOf(v).Float()
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return Param(v), nil
			}
			return Literal(strconv.FormatFloat(f, 'g', -1, t.Bits())), nil
		}))
		r.Put(Func(float64Type, t, func(v any) (any, error) {
			return reflect.ValueOf(v).Convert(t).Interface(), nil
		}))
		r.Put(Func(int64Type, t, func(v any) (any, error) {
			return reflect.ValueOf(float64(v.(int64))).Convert(t).Interface(), nil
		}))
		r.Put(Func(stringType, t, func(v any) (any, error) {
			f, err := strconv.ParseFloat(strings.TrimSpace(v.(string)), t.Bits())
			if err != nil {
				return nil, err
			}
			return reflect.ValueOf(f).Convert(t).Interface(), nil
		}))
	}

	r.Put(
		New(func(b bool) (SQLString, error) {
			if b {
				return Literal("TRUE"), nil
			}
			return Literal("FALSE"), nil
		}),
		New(func(n int64) (bool, error) {
			switch n {
			case 0:
				return false, nil
			case 1:
				return true, nil
			}
			return false, fmt.Errorf("%d is not a boolean", n)
		}),
		New(func(s string) (bool, error) {
			switch strings.ToUpper(strings.TrimSpace(s)) {
			case "0", "F", "FALSE", "N", "NO":
				return false, nil
			case "1", "T", "TRUE", "Y", "YES":
				return true, nil
			}
			return false, fmt.Errorf("%q is not a boolean", s)
		}),
		New(func(b bool) (int64, error) {
			if b {
				return 1, nil
			}
			return 0, nil
		}),
		New(func(d decimal.Decimal) (SQLString, error) {
			return Literal(d.String()), nil
		}),
		New(func(f float64) (decimal.Decimal, error) {
			return decimal.NewFromFloat(f), nil
		}),
		New(func(n int64) (decimal.Decimal, error) {
			return decimal.NewFromInt(n), nil
		}),
		New(func(s string) (decimal.Decimal, error) {
			return decimal.NewFromString(strings.TrimSpace(s))
		}),
		New(func(b []byte) (decimal.Decimal, error) {
			return decimal.NewFromString(string(b))
		}),
		New(func(n *big.Int) (SQLString, error) {
			return Literal(n.String()), nil
		}),
		New(func(s string) (*big.Int, error) {
			n, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
			if !ok {
				return nil, fmt.Errorf("%q is not an integer", s)
			}
			return n, nil
		}),
		New(func(n int64) (*big.Int, error) {
			return big.NewInt(n), nil
		}),
	)
}

func setInt(t reflect.Type, n int64) (any, error) {
	v := reflect.New(t).Elem()
	if v.OverflowInt(n) {
		return nil, fmt.Errorf("%d overflows %s", n, t)
	}
	v.SetInt(n)
	return v.Interface(), nil
}

func setUint(t reflect.Type, n uint64) (any, error) {
	v := reflect.New(t).Elem()
	if v.OverflowUint(n) {
		return nil, fmt.Errorf("%d overflows %s", n, t)
	}
	v.SetUint(n)
	return v.Interface(), nil
}

// QuoteString wraps s in single quotes, doubling embedded quotes.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// hasControl reports whether s contains a control character.
func hasControl(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r < 0x20 || r == 0x7f }) >= 0
}

func putText(r *Registry, limits Limits) {
	r.Put(
		New(func(s string) (SQLString, error) {
			// Plain SQL has no escape for control characters.
			if len(s) > limits.MaxStringLiteralLength || hasControl(s) {
				return Param(s), nil
			}
			return Literal(QuoteString(s)), nil
		}),
		New(func(b []byte) (string, error) {
			return string(b), nil
		}),
		New(func(s string) ([]byte, error) {
			return []byte(s), nil
		}),
		New(func(n int64) (string, error) {
			return strconv.FormatInt(n, 10), nil
		}),
		New(func(f float64) (string, error) {
			return strconv.FormatFloat(f, 'g', -1, 64), nil
		}),
		New(func(b bool) (string, error) {
			return strconv.FormatBool(b), nil
		}),
		New(func(b []byte) (int64, error) {
			return strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
		}),
		New(func(b []byte) (float64, error) {
			return strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
		}),
		// Enumerations render by name.
		Delegate(stringerType, sqlStringType, func(v any) (any, error) {
			return v.(fmt.Stringer).String(), nil
		}),
	)
}

func putTime(r *Registry) {
	r.Put(
		New(func(t time.Time) (SQLString, error) {
			return Literal("TIMESTAMP'" + t.Format(TimestampLayout) + "'"), nil
		}),
		New(func(d Date) (SQLString, error) {
			return Literal("DATE'" + d.String() + "'"), nil
		}),
		New(func(t TimeOfDay) (SQLString, error) {
			return Literal("TIME'" + t.String() + "'"), nil
		}),
		New(ParseTime),
		New(func(b []byte) (time.Time, error) {
			return ParseTime(string(b))
		}),
		New(func(t time.Time) (string, error) {
			return t.Format(TimestampLayout), nil
		}),
		New(func(t time.Time) (int64, error) {
			return t.UnixMilli(), nil
		}),
		New(func(n int64) (time.Time, error) {
			return time.UnixMilli(n).UTC(), nil
		}),
		New(func(t time.Time) (Date, error) {
			return DateOf(t), nil
		}),
		New(func(s string) (Date, error) {
			var d Date
			err := d.Scan(s)
			return d, err
		}),
		New(func(d Date) (time.Time, error) {
			return d.Time, nil
		}),
		New(func(d Date) (string, error) {
			return d.String(), nil
		}),
		New(func(t time.Time) (TimeOfDay, error) {
			return TimeOfDayOf(t), nil
		}),
		New(func(s string) (TimeOfDay, error) {
			var t TimeOfDay
			err := t.Scan(s)
			return t, err
		}),
		New(func(t TimeOfDay) (string, error) {
			return t.String(), nil
		}),
	)
}

func putMisc(r *Registry, limits Limits) {
	r.Put(
		New(func(b []byte) (SQLString, error) {
			if len(b) > limits.MaxBinaryLiteralLength {
				return Param(b), nil
			}
			return Literal("X'" + strings.ToUpper(hex.EncodeToString(b)) + "'"), nil
		}),
		New(func(id uuid.UUID) (SQLString, error) {
			return Literal(QuoteString(id.String())), nil
		}),
		New(func(s string) (uuid.UUID, error) {
			return uuid.Parse(s)
		}),
		New(func(b []byte) (uuid.UUID, error) {
			if len(b) == 16 {
				return uuid.FromBytes(b)
			}
			return uuid.ParseBytes(b)
		}),
		New(func(id uuid.UUID) (string, error) {
			return id.String(), nil
		}),
	)
}
