// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

/*
Package typeinfo contains code relating to Go struct types and their use as
entities in lightsql. As much as possible, reflection code is limited to this
package. It flattens a struct type into an ordered list of members addressed
by dotted property paths, parses the struct tags that describe columns, and
gets, sets and allocates member values through field index paths.
*/
package typeinfo
