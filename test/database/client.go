package database

import (
	"testing"

	"github.com/codeready-toolchain/dialogreplay/pkg/database"
	"github.com/codeready-toolchain/dialogreplay/test/util"
)

// NewTestClient creates a database client bound to a fresh, migrated schema.
// In CI (when CI_DATABASE_URL is set): connects to external PostgreSQL service container.
// In local dev: uses a shared testcontainer with PostgreSQL.
// Cleanup (schema drop and connection close) is handled by util.SetupTestDatabase.
func NewTestClient(t *testing.T) *database.Client {
	return database.NewClientFromDB(util.SetupTestDatabase(t))
}
