// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

/*
Package entity holds the metadata registry of entity types.

An entity is a Go struct mapped to one table. Its exported fields are its
properties. Fields of nested struct types contribute properties with a
dotted path ("name.first"), fields of embedded structs are promoted and are
listed before the fields of the embedding struct.

Column names default to the last segment of the property path. The "db"
struct tag renames a column and sets options:

	type Contact struct {
		ID      int    `db:"id,key"`
		Name    Name
		Updated int    `db:",noinsert" update:"{updated}+1"`
		Notes   string `db:"-"`
	}

Entities implementing Optioner adjust the mapping in code and those
implementing TableNamer name their table. The Info of an entity type is
built once, on first use, and is shared by all goroutines.
*/
package entity
