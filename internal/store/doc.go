// Package store defines the persistence port for tasks.
// Implementations live in internal/store/memory, internal/platform/postgres
// and internal/platform/redis; all of them satisfy the shared conformance
// suite in internal/store/storetest.
package store
