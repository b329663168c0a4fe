package lightsql

import (
	"context"
	"database/sql"
)

// RenderCondition renders cond as a condition of the statement stmt.
func RenderCondition(d Dialect, stmt *Statement, cond Condition) (string, []any, error) {
	var params []any
	r := newRenderer(d, stmt, &params)
	if err := cond.render(r); err != nil {
		return "", nil, err
	}
	return r.String(), params, nil
}

// SetEntity sets the current entity of stmt.
func SetEntity(stmt *Statement, e any) {
	stmt.entity = e
}

var MatchColumn = matchColumn

func (sc *StmtCache) Contains(query string) bool {
	return sc.stmts.Contains(query)
}

// Lend lends the statement prepared for query by sc.
func (sc *StmtCache) Lend(ctx context.Context, query string) (*sql.Stmt, func(), error) {
	return sc.lend(ctx, query)
}
