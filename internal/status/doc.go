// Package status composes the preload tracker, cache inventory, nginx
// configuration and identity checks into a Report built from a closed set
// of status codes.
//
// The aggregator adds no policy of its own beyond the precedence rules of
// each row. Expensive rows (cache permissions, cache keys, nginx cache
// paths, web server user) are memoized in the transient store and survive
// until their TTL elapses or ClearCache drops the namespace.
package status
