package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

// memoryLedgerDSN names an in-memory database after the test so subtests and
// parallel tests never share rows. cache=shared lets the writer and reader
// pools see the same database. journal_mode is left out because WAL does not
// apply in memory, and foreign_keys is left out because usage_records has no
// foreign keys to enforce.
func memoryLedgerDSN(t *testing.T) string {
	return fmt.Sprintf(
		"file:ledger-%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)",
		url.PathEscape(t.Name()),
	)
}

func openLedgerPool(t *testing.T, dsn string, maxConns int) *sql.DB {
	t.Helper()

	pool, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	pool.SetMaxOpenConns(maxConns)
	t.Cleanup(func() { _ = pool.Close() })

	require.NoError(t, pool.PingContext(context.Background()))
	return pool
}

// newLedgerTestDB returns a migrated usage ledger that lives for one test.
// Pools are closed in reverse order by t.Cleanup, reader first.
func newLedgerTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := memoryLedgerDSN(t)
	writer := openLedgerPool(t, dsn, 1)
	reader := openLedgerPool(t, dsn, 4)

	require.NoError(t, RunMigrations(writer), "migrating usage ledger")

	return &DB{Writer: writer, Reader: reader, path: dsn}
}
