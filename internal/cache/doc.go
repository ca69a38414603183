// Package cache defines the content-record store and its implementations.
// The disk store maps every (contentId, minor, commitId) identifier to one
// file under <root>/shard/<hh>/<hh>/<id>.rec, writes through a temp file +
// rename so readers never see partial records, and defers fsync to an
// explicit Sync barrier. The datastore store offers the same contract over any
// go-datastore backend (memory map, badger), and Instrument wraps either with
// logging and Prometheus metrics. Callers depend only on the Store interface.
package cache
