// Package transient memoizes expensive status checks behind a time-boxed
// key/value store.
//
// A Store persists Records (SQLite by default, LevelDB or in-memory on
// request). Cache[T] layers typed JSON values, TTL handling and in-process
// collapsing of concurrent misses on top of a Store. Keys are built inside
// the nppp namespace so InvalidateNamespace clears exactly the entries this
// engine owns and verifies that they are gone.
package transient
