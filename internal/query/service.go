package query

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rshade/stork/internal/cache"
	"github.com/rshade/stork/internal/frame"
	"github.com/rshade/stork/internal/logging"
	"github.com/rshade/stork/internal/pagination"
	"github.com/rshade/stork/internal/session"
)

// Query errors.
var (
	ErrEmptyCode    = errors.New("stock code cannot be empty")
	ErrEmptyKeyword = errors.New("search keyword cannot be empty")
	ErrInvalidDays  = errors.New("days must be positive")
	ErrNoExporter   = errors.New("no exporter configured")
)

// Service runs stock queries through the cache and the pagination session.
type Service struct {
	provider Provider
	store    cache.Store
	session  *session.Session
	exporter Exporter
	pageSize int
	sorter   *pagination.RowSorter
	printer  *message.Printer
	log      zerolog.Logger

	group singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithExporter sets the exporter used by Export.
func WithExporter(e Exporter) Option {
	return func(s *Service) {
		s.exporter = e
	}
}

// WithPageSize sets the page size used when a paged query does not name one.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithLanguage selects the language used to format numbers in messages.
func WithLanguage(tag language.Tag) Option {
	return func(s *Service) {
		s.printer = newPrinter(tag)
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.log = logging.ComponentLogger(l, "query")
	}
}

// NewService creates a Service. sess holds the paged result set; store may
// be a disabled cache.
func NewService(provider Provider, store cache.Store, sess *session.Session, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		store:    store,
		session:  sess,
		pageSize: pagination.DefaultPageSize,
		sorter:   pagination.NewRowSorter(),
		printer:  newPrinter(language.English),
		log:      logging.ComponentLogger(logging.Default(), "query"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session returns the session the service pages through.
func (s *Service) Session() *session.Session {
	return s.session
}

// Quote returns the realtime quote for code. refresh drops any cached quote first.
func (s *Service) Quote(ctx context.Context, code string, refresh bool) (Reply, error) {
	if strings.TrimSpace(code) == "" {
		return Reply{}, ErrEmptyCode
	}
	code = cache.NormalizeCode(code)
	ctx = s.traced(ctx)

	key := cache.NewKeyBuilder(cache.CategoryRealtime).Code(code).Build()
	if refresh {
		s.invalidate(ctx, key)
	}

	q, hit, err := cached(ctx, s, key, cache.CategoryRealtime, func(ctx context.Context) (Quote, error) {
		return s.provider.Quote(ctx, code)
	})
	if err != nil {
		return Reply{}, fmt.Errorf("fetching quote for %s: %w", code, err)
	}

	return Reply{
		Kind:    ReplyQuote,
		Message: s.printer.Sprintf("%s (%s): %.2f (%+.2f%%)", q.Name, q.Code, q.Price, q.ChangePct),
		Cached:  hit,
		Quote:   &q,
	}, nil
}

// History returns the last days daily bars for code.
func (s *Service) History(ctx context.Context, code string, days int) (Reply, error) {
	f, hit, err := s.history(s.traced(ctx), code, days)
	if err != nil {
		return Reply{}, err
	}

	return Reply{
		Kind:    ReplyHistory,
		Message: s.printer.Sprintf("%s: %d daily bars", cache.NormalizeCode(code), f.Len()),
		Cached:  hit,
		History: f,
	}, nil
}

func (s *Service) history(ctx context.Context, code string, days int) (*frame.Frame, bool, error) {
	if strings.TrimSpace(code) == "" {
		return nil, false, ErrEmptyCode
	}
	if days <= 0 {
		return nil, false, fmt.Errorf("%w: got %d", ErrInvalidDays, days)
	}
	code = cache.NormalizeCode(code)

	key := cache.NewKeyBuilder(cache.CategoryHistory).Code(code).Param("days", days).Build()
	f, hit, err := cached(ctx, s, key, cache.CategoryHistory, func(ctx context.Context) (*frame.Frame, error) {
		return s.provider.History(ctx, code, days)
	})
	if err != nil {
		return nil, false, fmt.Errorf("fetching history for %s: %w", code, err)
	}
	return f, hit, nil
}

// Screen runs a screen, registers the full result set with the session and
// returns page. pageSize 0 selects the default page size.
func (s *Service) Screen(ctx context.Context, criteria Criteria, page, pageSize int) (Reply, error) {
	ctx = s.traced(ctx)

	filter, sortField, sortOrder, err := splitSort(criteria)
	if err != nil {
		return Reply{}, err
	}

	key := cache.NewKeyBuilder(cache.CategoryScreen).Params(filter).Build()
	rows, hit, err := cached(ctx, s, key, cache.CategoryScreen, func(ctx context.Context) (session.RowSet, error) {
		return s.provider.Screen(ctx, filter)
	})
	if err != nil {
		return Reply{}, fmt.Errorf("running screen: %w", err)
	}

	return s.startPaged(ctx, session.KindScreen, criteria, s.sorter.Sort(rows, sortField, sortOrder), page, pageSize, hit)
}

// Search finds stocks by code or name and pages the matches by limit rows.
func (s *Service) Search(ctx context.Context, keyword string, limit int) (Reply, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return Reply{}, ErrEmptyKeyword
	}
	ctx = s.traced(ctx)

	category := cache.CategoryForIntent("search")
	key := cache.NewKeyBuilder(category).Param("keyword", keyword).Build()
	rows, hit, err := cached(ctx, s, key, category, func(ctx context.Context) (session.RowSet, error) {
		return s.provider.Search(ctx, keyword)
	})
	if err != nil {
		return Reply{}, fmt.Errorf("searching %q: %w", keyword, err)
	}

	return s.startPaged(ctx, session.KindSearch, Criteria{"keyword": keyword}, rows, 1, limit, hit)
}

func (s *Service) startPaged(
	ctx context.Context,
	kind session.Kind,
	criteria Criteria,
	rows []session.Row,
	page, pageSize int,
	hit bool,
) (Reply, error) {
	if pageSize <= 0 {
		pageSize = s.pageSize
	}
	if page <= 0 {
		page = pagination.DefaultPage
	}

	if err := s.session.Start(kind, criteria, rows, pageSize); err != nil {
		return Reply{}, err
	}

	logging.FromContext(ctx).Debug().
		Ctx(ctx).
		Str("component", "query").
		Str("kind", string(kind)).
		Int("rows", len(rows)).
		Int("page", page).
		Bool("cached", hit).
		Msg("paged query started")

	var (
		view session.View
		err  error
	)
	if page == pagination.DefaultPage {
		view, err = s.session.CurrentPageView()
	} else {
		view, err = s.session.GotoPage(page)
	}
	if err != nil {
		return s.sessionNotice(err, msgNoActiveQuery)
	}

	reply := s.pageReply(view, kind)
	reply.Cached = hit
	return reply, nil
}

// NextPage returns the next page of the active screen or search.
func (s *Service) NextPage(_ context.Context) (Reply, error) {
	view, err := s.session.NextPage()
	if err != nil {
		return s.sessionNotice(err, msgNoActiveQuery)
	}
	return s.pageReply(view, s.session.Kind()), nil
}

// PrevPage returns the previous page of the active screen or search.
func (s *Service) PrevPage(_ context.Context) (Reply, error) {
	view, err := s.session.PrevPage()
	if err != nil {
		return s.sessionNotice(err, msgNoActiveQuery)
	}
	return s.pageReply(view, s.session.Kind()), nil
}

// GotoPage jumps to page n of the active screen or search.
func (s *Service) GotoPage(_ context.Context, n int) (Reply, error) {
	view, err := s.session.GotoPage(n)
	if err != nil {
		return s.sessionNotice(err, msgNoActiveQuery)
	}
	return s.pageReply(view, s.session.Kind()), nil
}

// Export hands the full active result set to the exporter.
func (s *Service) Export(ctx context.Context, format string) (Reply, error) {
	snapshot, err := s.session.ExportSnapshot()
	if err != nil {
		return s.sessionNotice(err, msgNothingExport)
	}
	if s.exporter == nil {
		return Reply{}, ErrNoExporter
	}

	path, err := s.exporter.Export(s.traced(ctx), snapshot, format)
	if err != nil {
		return Reply{}, fmt.Errorf("exporting %d rows as %s: %w", len(snapshot.Rows), format, err)
	}

	return Reply{
		Kind:       ReplyExport,
		Message:    s.printer.Sprintf("Exported %d rows to %s", len(snapshot.Rows), path),
		ExportPath: path,
	}, nil
}

func (s *Service) pageReply(view session.View, kind session.Kind) Reply {
	meta := pagination.NewPaginationMeta(view.Page, 0, view.TotalItems)
	if info, err := s.session.Info(); err == nil {
		meta = info
	}
	return Reply{
		Kind:    ReplyPage,
		Message: s.pageMessage(view, kind),
		Rows:    view.Rows,
		Page:    &meta,
	}
}

func (s *Service) invalidate(ctx context.Context, key string) {
	if err := s.store.Invalidate(key); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		logging.FromContext(ctx).Warn().
			Ctx(ctx).
			Str("component", "query").
			Str("key", key).
			Err(err).
			Msg("failed to invalidate cache entry")
	}
}

// traced attaches the service logger and a trace ID to ctx.
func (s *Service) traced(ctx context.Context) context.Context {
	if logging.TraceIDFromContext(ctx) == "" {
		ctx = logging.ContextWithTraceID(ctx, logging.GetOrGenerateTraceID(ctx))
	}
	if zerolog.Ctx(ctx).GetLevel() == zerolog.Disabled {
		ctx = s.log.WithContext(ctx)
	}
	return ctx
}

type sharedResult[T any] struct {
	value T
	hit   bool
}

// cached is cache.Remember with concurrent identical misses coalesced into a
// single provider call.
func cached[T any](
	ctx context.Context,
	s *Service,
	key string,
	category cache.Category,
	fetch func(context.Context) (T, error),
) (T, bool, error) {
	v, err, shared := s.group.Do(key, func() (any, error) {
		value, hit, fetchErr := cache.Remember(ctx, s.store, key, category, fetch)
		if fetchErr != nil {
			return nil, fetchErr
		}
		return sharedResult[T]{value: value, hit: hit}, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	if shared {
		logging.FromContext(ctx).Debug().Ctx(ctx).Str("component", "query").Str("key", key).Msg("coalesced fetch")
	}
	r := v.(sharedResult[T]) //nolint:errcheck,forcetypeassert // only sharedResult[T] is stored per key
	return r.value, r.hit, nil
}

// splitSort separates the sort expression from the filter criteria.
//
//nolint:nonamedreturns // Named returns improve readability for this multi-value function.
func splitSort(criteria Criteria) (filter Criteria, field, order string, err error) {
	filter = maps.Clone(criteria)
	if filter == nil {
		filter = Criteria{}
	}

	raw, ok := filter[SortKey]
	if !ok {
		return filter, pagination.DefaultSortField, pagination.DefaultSortOrder, nil
	}
	delete(filter, SortKey)

	expr, isString := raw.(string)
	if !isString {
		return nil, "", "", fmt.Errorf("%w: sort must be a string, got %T", pagination.ErrInvalidSortFormat, raw)
	}
	field, order, err = pagination.ParseSort(expr)
	if err != nil {
		return nil, "", "", err
	}
	return filter, field, order, nil
}
