package storage

import (
	"context"
	"database/sql"

	"github.com/georgysavva/scany/v2/sqlscan"
)

// Execer is an interface for executing SQL statements
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ExecQuerier is satisfied by *sql.DB and *sql.Tx
type ExecQuerier interface {
	Execer
	sqlscan.Querier
}
