// Package query implements the stock-query operations on top of the cache and
// the pagination session.
//
// Every fetch goes through the cache first, keyed by a fingerprint of the
// request and stored with the TTL of its data category. Screen and search
// results are registered with the session so later page requests are served
// from memory without touching the cache or the provider. Session conditions
// such as "no query yet" or "already on the last page" come back as notice
// replies, not errors.
package query
