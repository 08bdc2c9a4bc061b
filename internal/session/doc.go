// Package session holds the pagination cursor over the result set of the most
// recent paged query.
//
// A Session is either Empty or Active. Start replaces the active query
// wholesale and resets the cursor to page 1; NextPage, PrevPage and GotoPage
// only move the cursor and fail with an *OutOfRangeError at the boundaries.
// Page requests are served purely from memory.
//
// A Session idle for longer than its timeout behaves as Empty. A Registry
// keeps several sessions keyed by a ULID handle.
package session
