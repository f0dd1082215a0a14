// Package dispatch runs name generation for pending tasks in the background.
//
// A Dispatcher owns a bounded in-memory queue and a fixed pool of workers.
// Each queued task gets exactly one generator call, bounded by the engine
// timeout, and exactly one outcome written back to the task store. Tasks that
// cannot be queued, and pending tasks left behind by a previous process, are
// marked failed rather than retried. Completion is observed by polling the
// store.
package dispatch
