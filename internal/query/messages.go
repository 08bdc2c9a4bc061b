package query

import (
	"errors"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rshade/stork/internal/session"
)

// Guidance messages.
const (
	msgNoActiveQuery = "No query in progress. Run a screen or search first."
	msgNothingExport = "Nothing to export. Run a screen or search first."
	msgFirstPage     = "Already on the first page."
	msgEmptyResult   = "The query returned no results."
)

func newPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

func (s *Service) pageMessage(view session.View, kind session.Kind) string {
	if view.TotalItems == 0 {
		return msgEmptyResult
	}
	return s.printer.Sprintf("%s page %d/%d: showing %d of %d results",
		kind, view.Page, view.TotalPages, len(view.Rows), view.TotalItems)
}

// sessionNotice turns a session condition into a notice reply. Other errors
// are returned unchanged.
func (s *Service) sessionNotice(err error, noSession string) (Reply, error) {
	if errors.Is(err, session.ErrNoActiveSession) {
		return Reply{Kind: ReplyNotice, Message: noSession}, nil
	}

	var oor *session.OutOfRangeError
	if errors.As(err, &oor) {
		switch {
		case oor.TotalPages == 0:
			return Reply{Kind: ReplyNotice, Message: msgEmptyResult}, nil
		case oor.Direction == session.DirectionNext:
			return Reply{
				Kind:    ReplyNotice,
				Message: s.printer.Sprintf("Already on the last page (page %d/%d).", oor.CurrentPage, oor.TotalPages),
			}, nil
		case oor.Direction == session.DirectionPrev:
			return Reply{Kind: ReplyNotice, Message: msgFirstPage}, nil
		default:
			return Reply{
				Kind: ReplyNotice,
				Message: s.printer.Sprintf("Page %d does not exist; choose a page between 1 and %d.",
					oor.Requested, oor.TotalPages),
			}, nil
		}
	}
	return Reply{}, err
}
