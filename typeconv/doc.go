// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

/*
Package typeconv converts values between Go types for lightsql.

A Registry holds Converters keyed by their (source, destination) type pair.
It serves two purposes:

  - rendering: any value is converted to a SQLString, which is either SQL
    text to inline into a statement or the "?" placeholder with the value
    to bind;
  - reading: a value returned by a database driver is converted to the
    declared type of the entity property that receives it.

Standard returns the converters every dialect starts from. Dialects clone it
and replace the converters whose SQL encoding differs.
*/
package typeconv
