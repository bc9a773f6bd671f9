// Package memory holds the per-job record of every task's resolved input and
// produced output, keyed by task name.
//
// A job owns exactly one store for its whole lifetime. Entries are upserted,
// never deleted, and iteration follows insertion order so diagnostics list
// tasks the way they ran. The store is safe for concurrent use, which the
// concurrent job relies on when sibling tasks record results at the same time.
package memory
