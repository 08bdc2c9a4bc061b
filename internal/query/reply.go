package query

import (
	"github.com/rshade/stork/internal/frame"
	"github.com/rshade/stork/internal/pagination"
	"github.com/rshade/stork/internal/session"
)

// ReplyKind identifies what a Reply carries.
type ReplyKind string

// Reply kinds.
const (
	ReplyQuote   ReplyKind = "quote"
	ReplyHistory ReplyKind = "history"
	ReplyPage    ReplyKind = "page"
	ReplyExport  ReplyKind = "export"
	ReplyCompare ReplyKind = "compare"
	// ReplyNotice is user guidance: nothing was fetched or moved.
	ReplyNotice ReplyKind = "notice"
)

// Reply is the result of a query operation. Message is a short human-readable
// summary; the other fields carry the data for renderers.
type Reply struct {
	Kind    ReplyKind `json:"kind"`
	Message string    `json:"message"`
	// Cached reports that the data came from the cache.
	Cached bool `json:"cached,omitempty"`

	Quote      *Quote                     `json:"quote,omitempty"`
	History    *frame.Frame               `json:"-"`
	Rows       []session.Row              `json:"rows,omitempty"`
	Page       *pagination.PaginationMeta `json:"page,omitempty"`
	Comparison *Comparison                `json:"comparison,omitempty"`
	ExportPath string                     `json:"export_path,omitempty"`
}

// IsNotice reports whether the reply is guidance rather than data.
func (r Reply) IsNotice() bool {
	return r.Kind == ReplyNotice
}
