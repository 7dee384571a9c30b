// Package cacheinv inspects the nginx FastCGI cache directory.
//
// CountCachedURLs walks every cache entry, skips redirects and non-GET
// requests, validates the cache key pattern once against the first eligible
// entry and counts the entries it matches. CheckPermissions verifies the
// effective user can manage the tree, and ListURLs reconstructs the cached
// page URLs. Every operation reports a tagged Outcome instead of failing.
package cacheinv
