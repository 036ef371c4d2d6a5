// Package search debounces place-name lookups typed by a user.
package search

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kjstillabower/skyhue-weather/internal/client"
	"github.com/kjstillabower/skyhue-weather/internal/models"
	"github.com/kjstillabower/skyhue-weather/internal/observability"
)

// DefaultDelay is the quiet period before a query is sent.
const DefaultDelay = 300 * time.Millisecond

// Searcher looks up place names; client.GeocodingClient satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.CityCandidate, error)
}

// Result is delivered once per query that survives the quiet period.
type Result struct {
	Query  string
	Cities []models.CityCandidate
	Err    error
}

// Debouncer runs at most one search per quiet period. A newer Submit cancels the
// pending or in-flight search, and results of superseded queries are dropped.
type Debouncer struct {
	searcher Searcher
	delay    time.Duration
	deliver  func(Result)
	logger   *zap.Logger

	mu      sync.Mutex
	gen     uint64
	timer   *time.Timer
	cancel  context.CancelFunc
	stopped bool

	// deliverMu serializes the generation check with the deliver call, so a
	// result is never handed over after a newer query's result.
	deliverMu sync.Mutex
	// afterCheck, when set, runs between the generation check and deliver.
	afterCheck func()
}

// NewDebouncer calls deliver from its own goroutine for debounced results, and
// from the Submit caller for short queries. Calls to deliver never overlap, and
// deliver must not call Submit.
func NewDebouncer(searcher Searcher, delay time.Duration, deliver func(Result), logger *zap.Logger) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{
		searcher: searcher,
		delay:    delay,
		deliver:  deliver,
		logger:   observability.OrNop(logger),
	}
}

func (d *Debouncer) Submit(query string) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.gen++
	gen := d.gen
	d.cancelLocked()

	if utf8.RuneCountInString(strings.TrimSpace(query)) < client.MinQueryLength {
		d.mu.Unlock()
		d.deliverIfCurrent(gen, Result{Query: query, Cities: []models.CityCandidate{}})
		return
	}

	d.timer = time.AfterFunc(d.delay, func() { d.run(gen, query) })
	d.mu.Unlock()
}

// Stop cancels pending work. Later Submits are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.gen++
	d.cancelLocked()
}

func (d *Debouncer) cancelLocked() {
	if d.timer != nil && d.timer.Stop() {
		observability.SearchDebounceCanceledTotal.Inc()
	}
	d.timer = nil
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

func (d *Debouncer) run(gen uint64, query string) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.mu.Unlock()
	defer cancel()

	cities, err := d.searcher.Search(ctx, query)
	d.deliverIfCurrent(gen, Result{Query: query, Cities: cities, Err: err})
}

func (d *Debouncer) deliverIfCurrent(gen uint64, r Result) {
	d.deliverMu.Lock()
	defer d.deliverMu.Unlock()

	d.mu.Lock()
	current := gen == d.gen
	d.mu.Unlock()
	if !current {
		d.logger.Debug("dropping superseded search", zap.String("query", r.Query))
		return
	}
	if d.afterCheck != nil {
		d.afterCheck()
	}
	d.deliver(r)
}
