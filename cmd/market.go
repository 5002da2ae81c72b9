package cmd

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/lolzmarket/filter"
	"github.com/s0up4200/lolzmarket/lolz"
)

var (
	listTitle     string
	listPriceMin  float64
	listPriceMax  float64
	listPage      int
	listOrderBy   string
	listOrigins   []string
	listParams    []string
	listFilter    string
	itemAs        string
	stickyListing bool
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list [category]",
	Short: "List market items",
	Long: `List items of a market category, or the latest items across all categories
when no category is given. Search parameters only apply with a category.

Results can be narrowed further on the client with --filter, which takes a
preset name from the config or an expression:

  lolzmarket list steam --pmax 300 --filter 'daysSince(Published) < 1 && hasTag("prime")'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

// viewedCmd represents the viewed command
var viewedCmd = &cobra.Command{
	Use:   "viewed",
	Short: "List recently viewed items",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := client.Viewed(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get viewed items: %w", err)
		}
		return renderItems(cmd, list.Items, list)
	},
}

// faveCmd represents the fave command
var faveCmd = &cobra.Command{
	Use:   "fave",
	Short: "List favourite items",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := client.Fave(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get favourite items: %w", err)
		}
		return renderItems(cmd, list.Items, list)
	},
}

// itemCmd represents the item command
var itemCmd = &cobra.Command{
	Use:   "item <id> [id...]",
	Short: "Show one or more items",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runItem,
}

func init() {
	rootCmd.AddCommand(listCmd, viewedCmd, faveCmd, itemCmd)

	listCmd.Flags().StringVar(&listTitle, "title", "", "search the title")
	listCmd.Flags().Float64Var(&listPriceMin, "pmin", 0, "minimum price")
	listCmd.Flags().Float64Var(&listPriceMax, "pmax", 0, "maximum price")
	listCmd.Flags().IntVar(&listPage, "page", 0, "result page")
	listCmd.Flags().StringVar(&listOrderBy, "order", "", "sort order (e.g. price_to_up, pdate_to_down)")
	listCmd.Flags().StringSliceVar(&listOrigins, "origin", nil, "item origins to include")
	listCmd.Flags().StringArrayVar(&listParams, "param", nil, "extra category parameter as key=value (repeatable)")
	listCmd.Flags().StringVarP(&listFilter, "filter", "f", "", "filter preset name or expression")
	listCmd.Flags().BoolVar(&stickyListing, "sticky", false, "include sticky items")

	itemCmd.Flags().StringVar(&itemAs, "as", "", "decode as a category specific item (telegram, war-thunder)")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	params := lolz.ListParams{
		Title:            listTitle,
		PriceMin:         listPriceMin,
		PriceMax:         listPriceMax,
		Page:             listPage,
		OrderBy:          listOrderBy,
		ParseStickyItems: stickyListing,
	}
	for _, origin := range listOrigins {
		params.Origin = append(params.Origin, lolz.ItemOrigin(strings.TrimSpace(origin)))
	}

	extra, err := parseParams(listParams)
	if err != nil {
		return err
	}
	params.Extra = extra

	if len(args) == 1 {
		category, err := lolz.ParseCategory(args[0])
		if err != nil {
			return err
		}
		params.Category = category
	} else if hasSearchFlags(cmd) {
		logger.Warn().Msg("Search parameters are ignored without a category")
	}

	list, err := client.List(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}

	items := list.Items
	if listFilter != "" {
		manager, _, err := newFilterManager()
		if err != nil {
			return err
		}
		defer manager.Close(ctx)

		compiled, err := manager.Resolve(listFilter)
		if err != nil {
			return fmt.Errorf("invalid filter: %w", err)
		}

		items, err = manager.Apply(ctx, compiled, items)
		if err != nil {
			return fmt.Errorf("failed to apply filter: %w", err)
		}

		logger.Debug().
			Int("listed", len(list.Items)).
			Int("matched", len(items)).
			Msg("Applied filter")

		list.Items = items
	}

	return renderItems(cmd, items, list)
}

func runItem(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	if itemAs != "" {
		if len(ids) != 1 {
			return fmt.Errorf("--as takes a single item id")
		}
		return renderSpecialized(cmd, ids[0])
	}

	if len(ids) == 1 {
		item, err := client.Item(ctx, ids[0])
		if err != nil {
			return fmt.Errorf("failed to get item %d: %w", ids[0], err)
		}
		return renderItem(cmd, item, item)
	}

	found, err := client.Items(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to get items: %w", err)
	}

	items := make([]lolz.Item, len(found))
	for i, item := range found {
		items[i] = *item
	}
	return renderItems(cmd, items, found)
}

func renderSpecialized(cmd *cobra.Command, id int64) error {
	ctx := cmd.Context()

	switch lolz.Category(strings.ToLower(itemAs)) {
	case lolz.CategoryTelegram:
		item, err := lolz.ItemAs[lolz.TelegramItem](ctx, client, id)
		if err != nil {
			return fmt.Errorf("failed to get item %d: %w", id, err)
		}
		return renderItem(cmd, &item.Item, item)
	case lolz.CategoryWarThunder:
		item, err := lolz.ItemAs[lolz.WarThunderItem](ctx, client, id)
		if err != nil {
			return fmt.Errorf("failed to get item %d: %w", id, err)
		}
		return renderItem(cmd, &item.Item, item)
	default:
		return fmt.Errorf("unsupported item type: %s (use telegram or war-thunder)", itemAs)
	}
}

// parseParams turns key=value pairs into query values
func parseParams(pairs []string) (url.Values, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	values := url.Values{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected key=value", pair)
		}
		values.Add(key, strings.TrimSpace(value))
	}
	return values, nil
}

func hasSearchFlags(cmd *cobra.Command) bool {
	for _, name := range []string{"title", "pmin", "pmax", "page", "order", "origin", "param", "sticky"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// newFilterManager registers the configured presets. The returned evaluator
// is the one the manager uses.
func newFilterManager() (*filter.Manager, *filter.ConcurrentEvaluator, error) {
	var opts []filter.EvaluatorOption
	if cfg.Filter.Workers > 0 {
		opts = append(opts, filter.WithWorkers(cfg.Filter.Workers))
	}
	evaluator := filter.NewConcurrentEvaluator(opts...)

	manager := filter.NewManager(
		filter.WithCompiler(filter.NewExprCompiler(filter.WithCache(cfg.Filter.CacheSize))),
		filter.WithEvaluator(evaluator),
	)
	if err := manager.RegisterFilters(cfg.Filter.Presets); err != nil {
		return nil, nil, fmt.Errorf("failed to load filter presets: %w", err)
	}
	return manager, evaluator, nil
}
