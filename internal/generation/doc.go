// Package generation drives one streaming generation run against a loaded
// engine handle: tokenize, prime, then decode one token at a time, forwarding
// every fragment to a Sink until a stop condition is met.
//
// Run holds no locks. The caller (normally manager.Manager) guarantees that a
// handle is driven by at most one Run at a time.
package generation
