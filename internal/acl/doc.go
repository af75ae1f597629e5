// Package acl evaluates IPv4 access control lists.
//
// A list is a comma separated, ordered set of entries "<+|-><ipv4>[/<bits>|/<dotted mask>]".
// An empty list allows everything. A non-empty list denies by default and every
// matching entry overrides the decision, so the last match wins. A malformed
// list fails closed.
package acl
