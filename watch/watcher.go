package watch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/s0up4200/lolzmarket/filter"
	"github.com/s0up4200/lolzmarket/lolz"
)

// Market is the part of the API client a watcher needs
type Market interface {
	List(ctx context.Context, params lolz.ListParams) (*lolz.ItemList, error)
	FastBuy(ctx context.Context, id int64) (*lolz.ActionResult, error)
}

// Match is a listing that passed the watch filter for the first time
type Match struct {
	Watch      string
	Item       lolz.Item
	Bought     bool
	WouldBuy   bool
	BuyError   string
	DetectedAt time.Time
}

// PollResult summarises one poll
type PollResult struct {
	Listed  int
	Matched int
	Matches []Match
	Bought  int
}

// Option configures a Watcher
type Option func(*Watcher)

// WithFilter only reports items matching f. The evaluator is optional.
func WithFilter(f filter.CompiledFilter, evaluator filter.Evaluator) Option {
	return func(w *Watcher) {
		w.filter = f
		w.evaluator = evaluator
	}
}

// WithNotifiers adds notifiers for new matches
func WithNotifiers(notifiers ...Notifier) Option {
	return func(w *Watcher) {
		w.notifiers = append(w.notifiers, notifiers...)
	}
}

// WithAutoBuy fast-buys new matches priced at or below maxPrice, at most
// maxPerPoll per poll. Zero maxPerPoll means no per poll limit.
func WithAutoBuy(maxPrice float64, maxPerPoll int) Option {
	return func(w *Watcher) {
		w.autoBuy = true
		w.maxPrice = maxPrice
		w.maxBuysPerPoll = maxPerPoll
	}
}

// WithDryRun reports what would be bought without buying
func WithDryRun(dryRun bool) Option {
	return func(w *Watcher) {
		w.dryRun = dryRun
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) {
		w.now = now
	}
}

// Watcher polls one market search and reports new matches
type Watcher struct {
	name      string
	market    Market
	params    lolz.ListParams
	store     SeenStore
	filter    filter.CompiledFilter
	evaluator filter.Evaluator
	notifiers []Notifier
	logger    zerolog.Logger
	now       func() time.Time

	autoBuy        bool
	maxPrice       float64
	maxBuysPerPoll int
	dryRun         bool
}

// New creates a watcher for the search described by params
func New(name string, market Market, params lolz.ListParams, store SeenStore, logger zerolog.Logger, opts ...Option) (*Watcher, error) {
	if name == "" {
		return nil, errors.New("watch name is required")
	}
	if market == nil {
		return nil, errors.New("market client is required")
	}
	if store == nil {
		store = NewMemoryStore()
	}

	w := &Watcher{
		name:   name,
		market: market,
		params: params,
		store:  store,
		logger: logger.With().Str("watch", name).Logger(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.autoBuy && w.maxPrice <= 0 {
		return nil, fmt.Errorf("watch %s: auto buy needs a positive max price", name)
	}

	return w, nil
}

// Name returns the watch name
func (w *Watcher) Name() string {
	return w.name
}

// Poll lists the market once, reports unseen matches and optionally buys
// them. Notifier failures are logged and do not fail the poll.
func (w *Watcher) Poll(ctx context.Context) (PollResult, error) {
	var result PollResult

	list, err := w.market.List(ctx, w.params)
	if err != nil {
		return result, fmt.Errorf("failed to list market: %w", err)
	}
	result.Listed = len(list.Items)

	candidates, err := w.apply(ctx, list.Items)
	if err != nil {
		return result, err
	}

	ids := make([]int64, len(candidates))
	for i, item := range candidates {
		ids[i] = item.ItemID
	}
	fresh, err := w.store.MarkSeen(ctx, w.name, ids)
	if err != nil {
		return result, fmt.Errorf("failed to update seen items: %w", err)
	}

	freshSet := make(map[int64]struct{}, len(fresh))
	for _, id := range fresh {
		freshSet[id] = struct{}{}
	}

	for _, item := range candidates {
		if _, ok := freshSet[item.ItemID]; !ok {
			continue
		}

		match := Match{
			Watch:      w.name,
			Item:       item,
			DetectedAt: w.now(),
		}
		if w.shouldBuy(item, result.Bought) {
			w.buy(ctx, &match)
			if match.Bought || match.WouldBuy {
				result.Bought++
			}
		}

		w.notify(ctx, match)
		result.Matches = append(result.Matches, match)
	}
	result.Matched = len(result.Matches)

	w.logger.Debug().
		Int("listed", result.Listed).
		Int("candidates", len(candidates)).
		Int("new", result.Matched).
		Int("bought", result.Bought).
		Msg("Poll finished")

	return result, nil
}

func (w *Watcher) apply(ctx context.Context, items []lolz.Item) ([]lolz.Item, error) {
	if w.filter == nil {
		return items, nil
	}
	if w.evaluator != nil {
		matches, err := w.evaluator.Evaluate(ctx, w.filter, items)
		if err != nil {
			return nil, fmt.Errorf("failed to apply filter: %w", err)
		}
		return matches, nil
	}

	matches := make([]lolz.Item, 0, len(items))
	for _, item := range items {
		if w.filter.Evaluate(item) {
			matches = append(matches, item)
		}
	}
	return matches, nil
}

func (w *Watcher) shouldBuy(item lolz.Item, boughtSoFar int) bool {
	if !w.autoBuy || item.Price > w.maxPrice {
		return false
	}
	return w.maxBuysPerPoll <= 0 || boughtSoFar < w.maxBuysPerPoll
}

func (w *Watcher) buy(ctx context.Context, match *Match) {
	if w.dryRun {
		match.WouldBuy = true
		return
	}

	if _, err := w.market.FastBuy(ctx, match.Item.ItemID); err != nil {
		match.BuyError = err.Error()
		w.logger.Warn().
			Err(err).
			Int64("item_id", match.Item.ItemID).
			Msg("Failed to buy matching item")
		return
	}
	match.Bought = true
}

func (w *Watcher) notify(ctx context.Context, match Match) {
	for _, notifier := range w.notifiers {
		if err := notifier.Notify(ctx, match); err != nil {
			w.logger.Error().
				Err(err).
				Int64("item_id", match.Item.ItemID).
				Msg("Failed to send notification")
		}
	}
}
