// Package identity resolves the user the engine runs as and the user the
// front-end web server runs as, and compares them.
//
// The server user is reconciled from two sources: the nginx "user"
// directive and the owners of running server processes. A declared user
// that also appears among the observed owners wins; otherwise the declared
// user, then the first observed user, then NotDetermined.
package identity
