// Package cache provides the sharded LRU used to share derived tables
// between pipeline instances.
//
// A cluster renders the same frame on several displays, each with its own
// depth-of-field instance but identical lens settings. Bokeh tap tables are
// keyed by the lens parameters and computed once per process:
//
//	taps := tables.GetOrCreate(key, func() Taps { return compute(key) })
//
// ShardedCache is safe for concurrent use and must not be copied.
package cache
