// Package testdb provides helpers for PostgreSQL integration tests.
//
// Tests call Open, which skips the test unless NAMEGEN_TEST_DATABASE_URL is
// set, connects, applies the embedded migrations and closes the connection
// when the test ends:
//
//	func TestSomething(t *testing.T) {
//	    db := testdb.Open(t)
//	    testdb.Reset(t, db)
//	    ...
//	}
//
// WithTx runs a function in a transaction that is always rolled back, for
// tests that write rows directly and must leave no trace.
package testdb
