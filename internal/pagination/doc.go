// Package pagination provides page arithmetic, pagination metadata and row
// sorting shared by the session manager and the query layer.
//
// Pages are 1-based. A result set of n rows split into pages of size s has
// ceil(n/s) pages; an empty result set has zero pages and every page view of
// it is empty.
package pagination
