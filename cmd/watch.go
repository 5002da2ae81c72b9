package cmd

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/olekukonko/tablewriter"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/s0up4200/lolzmarket/config"
	"github.com/s0up4200/lolzmarket/filter"
	"github.com/s0up4200/lolzmarket/lolz"
	"github.com/s0up4200/lolzmarket/watch"
)

var (
	watchOnce  bool
	watchNames []string
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch market categories for new matching items",
	Long: `Poll the configured watches on their schedules and report new items that
pass each watch's filter. Watches with auto_buy enabled fast-buy matches at or
below max_price; --dry-run only reports what would be bought.

Seen items are kept in memory or in Redis (watch.store.type), and matches are
logged and optionally published to NATS (notify.nats).`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "poll every watch once and exit")
	watchCmd.Flags().StringSliceVar(&watchNames, "name", nil, "only run the named watches")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	entries := selectWatches(cfg.Watch.Watches, watchNames)
	if len(entries) == 0 {
		return fmt.Errorf("no watches configured. Please add entries under watch.watches in config")
	}

	store, err := newSeenStore(ctx, cfg.Watch.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	notifiers, closeNotifiers, err := newNotifiers(cfg.Notify)
	if err != nil {
		return err
	}
	defer closeNotifiers()

	manager, evaluator, err := newFilterManager()
	if err != nil {
		return err
	}
	defer manager.Close(context.Background())

	watchers := make([]*watch.Watcher, 0, len(entries))
	for _, entry := range entries {
		w, err := newWatcher(entry, manager, evaluator, store, notifiers)
		if err != nil {
			return err
		}
		watchers = append(watchers, w)
	}

	if cfg.Safety.DryRun {
		logger.Info().Msg("Dry run: matches will not be bought")
	}

	if watchOnce {
		return pollOnce(ctx, cmd, watchers)
	}

	scheduler := watch.NewScheduler(logger, cfg.Watch.Timeout)
	for i, w := range watchers {
		if err := scheduler.Add(entries[i].Schedule, w); err != nil {
			return err
		}
	}

	scheduler.Start()
	logger.Info().
		Int("watches", len(watchers)).
		Msg("Watching market, press Ctrl+C to stop")

	<-ctx.Done()

	logger.Info().Msg("Stopping watches...")
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return scheduler.Stop(stopCtx)
}

func pollOnce(ctx context.Context, cmd *cobra.Command, watchers []*watch.Watcher) error {
	type pollSummary struct {
		Watch  string           `json:"watch"`
		Result watch.PollResult `json:"result"`
		Error  string           `json:"error,omitempty"`
	}

	summaries := make([]pollSummary, 0, len(watchers))
	var failed int
	for _, w := range watchers {
		result, err := w.Poll(ctx)
		summary := pollSummary{Watch: w.Name(), Result: result}
		if err != nil {
			failed++
			summary.Error = err.Error()
			logger.Error().Err(err).Str("watch", w.Name()).Msg("Watch poll failed")
		}
		summaries = append(summaries, summary)
	}

	err := render(cmd, summaries, func(out io.Writer) error {
		table := tablewriter.NewWriter(out)
		table.Header("Watch", "Listed", "New", "Bought", "Error")
		for _, s := range summaries {
			_ = table.Append(
				s.Watch,
				strconv.Itoa(s.Result.Listed),
				strconv.Itoa(s.Result.Matched),
				strconv.Itoa(s.Result.Bought),
				s.Error,
			)
		}
		return table.Render()
	})
	if err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d watches failed", failed, len(watchers))
	}
	return nil
}

func selectWatches(entries []config.WatchEntry, names []string) []config.WatchEntry {
	if len(names) == 0 {
		return entries
	}
	selected := make([]config.WatchEntry, 0, len(names))
	for _, entry := range entries {
		if slices.Contains(names, entry.Name) {
			selected = append(selected, entry)
		}
	}
	return selected
}

func newWatcher(entry config.WatchEntry, manager *filter.Manager, evaluator filter.Evaluator, store watch.SeenStore, notifiers []watch.Notifier) (*watch.Watcher, error) {
	category, err := lolz.ParseCategory(entry.Category)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", entry.Name, err)
	}

	params := lolz.ListParams{
		Category: category,
		Title:    entry.Title,
		PriceMin: entry.PriceMin,
		PriceMax: entry.PriceMax,
		OrderBy:  "pdate_to_down",
	}
	if len(entry.Params) > 0 {
		params.Extra = url.Values{}
		for k, v := range entry.Params {
			params.Extra.Set(k, v)
		}
	}

	opts := []watch.Option{
		watch.WithNotifiers(notifiers...),
		watch.WithDryRun(cfg.Safety.DryRun),
	}
	if entry.Filter != "" {
		compiled, err := manager.Resolve(entry.Filter)
		if err != nil {
			return nil, fmt.Errorf("watch %s: invalid filter: %w", entry.Name, err)
		}
		opts = append(opts, watch.WithFilter(compiled, evaluator))
	}
	if entry.AutoBuy {
		opts = append(opts, watch.WithAutoBuy(entry.MaxPrice, entry.MaxBuysPerPoll))
	}

	return watch.New(entry.Name, client, params, store, logger, opts...)
}

func newSeenStore(ctx context.Context, storeCfg config.StoreConfig) (watch.SeenStore, error) {
	switch storeCfg.Type {
	case "redis":
		store, err := watch.NewRedisStore(ctx, &redis.Options{
			Addr:     storeCfg.Redis.Addr,
			Password: storeCfg.Redis.Password,
			DB:       storeCfg.Redis.DB,
		}, storeCfg.Redis.Prefix, storeCfg.Redis.TTL)
		if err != nil {
			return nil, err
		}
		logger.Debug().Str("addr", storeCfg.Redis.Addr).Msg("Using redis seen store")
		return store, nil
	default:
		return watch.NewMemoryStore(), nil
	}
}

// newNotifiers returns the configured notifiers and a function releasing
// their connections
func newNotifiers(notifyCfg config.NotifyConfig) ([]watch.Notifier, func(), error) {
	var notifiers []watch.Notifier
	closeFn := func() {}

	if notifyCfg.Log {
		notifiers = append(notifiers, watch.NewLogNotifier(logger))
	}

	if notifyCfg.NATS.Enabled {
		conn, err := nats.Connect(notifyCfg.NATS.URL, nats.Name(notifyCfg.NATS.Name))
		if err != nil {
			return nil, closeFn, fmt.Errorf("failed to connect to NATS at %s: %w", notifyCfg.NATS.URL, err)
		}
		notifiers = append(notifiers, watch.NewNATSNotifier(conn, notifyCfg.NATS.Subject))
		closeFn = func() {
			if err := conn.Drain(); err != nil {
				logger.Warn().Err(err).Msg("Failed to drain NATS connection")
			}
		}
		logger.Debug().Str("url", notifyCfg.NATS.URL).Msg("Publishing matches to NATS")
	}

	return notifiers, closeFn, nil
}
