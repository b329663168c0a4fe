// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package lightsql

import "context"

// PreStorer is implemented by entities preparing themselves before they
// are inserted or updated.
type PreStorer interface {
	PreStore()
}

// PreInserter is implemented by entities running statements before they
// are inserted, such as allocating their key. PreInsert returns the number
// of rows it affected.
type PreInserter interface {
	PreInsert(ctx context.Context, conn Conn) (int, error)
}

// PostLoader is implemented by entities completing themselves after they
// have been read.
type PostLoader interface {
	PostLoad()
}

// Composite is implemented by entities owning other entities, which are
// read, inserted, updated and deleted along with them. The Post methods
// other than PostSelect return the number of rows they affected.
type Composite interface {
	PostSelect(ctx context.Context, conn Conn) error
	PostInsert(ctx context.Context, conn Conn) (int, error)
	PostUpdate(ctx context.Context, conn Conn) (int, error)
	PostDelete(ctx context.Context, conn Conn) (int, error)
}
