// Package watch invalidates memoized status checks when the nginx
// configuration changes on disk.
//
// A Watcher observes the directories holding the located nginx.conf files
// (recursively, so conf.d and sites-enabled are covered) and emits one
// debounced signal per burst of relevant changes. Run drives a handler
// from those signals until the context ends.
package watch
