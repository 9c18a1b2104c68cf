// Package store persists scenario fixtures and reads the dialog pipeline's
// event log, identity mappings and content previews from PostgreSQL.
//
// Queries are built with entgo's dialect/sql builder and executed on the
// shared database/sql pool.
package store

import (
	"errors"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// ErrNotFound is returned when a requested fixture does not exist.
var ErrNotFound = errors.New("not found")

// InvalidFixtureError reports a fixture that does not satisfy the scenario schema.
type InvalidFixtureError struct {
	Name string
	Err  error
}

func (e *InvalidFixtureError) Error() string {
	return fmt.Sprintf("invalid fixture %q: %v", e.Name, e.Err)
}

func (e *InvalidFixtureError) Unwrap() error {
	return e.Err
}

func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.Postgres)
}

func toArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
