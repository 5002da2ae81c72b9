package cmd

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/s0up4200/lolzmarket/filter"
	"github.com/s0up4200/lolzmarket/lolz"
)

// presetsCmd represents the presets command
var presetsCmd = &cobra.Command{
	Use:     "presets",
	Aliases: []string{"preset"},
	Short:   "Inspect the filter presets from the config",
}

var presetsListCmd = &cobra.Command{
	Use:         "list",
	Short:       "List configured filter presets",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{configOnly: "true"},
	RunE:        runPresetsList,
}

var presetsTestCmd = &cobra.Command{
	Use:   "test <category> [preset...]",
	Short: "Count how many items on the first page each preset matches",
	Long: `Fetch the newest page of a category and run every preset against it, or
only the named ones.

  lolzmarket presets test telegram cheap-tg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPresetsTest,
}

func init() {
	rootCmd.AddCommand(presetsCmd)
	presetsCmd.AddCommand(presetsListCmd, presetsTestCmd)
}

type presetInfo struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

func runPresetsList(cmd *cobra.Command, args []string) error {
	manager, _, err := newFilterManager()
	if err != nil {
		return err
	}
	defer manager.Close(cmd.Context())

	presets := make([]presetInfo, 0)
	for _, name := range manager.ListFilters() {
		compiled, _ := manager.GetFilter(name)
		presets = append(presets, presetInfo{Name: name, Expression: compiled.Expression()})
	}

	return render(cmd, presets, func(w io.Writer) error {
		if len(presets) == 0 {
			fmt.Fprintln(w, "No presets configured")
			return nil
		}
		table := tablewriter.NewWriter(w)
		table.Header("Name", "Expression")
		for _, p := range presets {
			_ = table.Append(p.Name, p.Expression)
		}
		return table.Render()
	})
}

type presetMatches struct {
	Preset  string  `json:"preset"`
	Matched int     `json:"matched"`
	ItemIDs []int64 `json:"item_ids"`
}

func runPresetsTest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	category, err := lolz.ParseCategory(args[0])
	if err != nil {
		return err
	}

	manager, _, err := newFilterManager()
	if err != nil {
		return err
	}
	defer manager.Close(ctx)

	if len(manager.ListFilters()) == 0 {
		return fmt.Errorf("no filter presets configured")
	}

	list, err := client.List(ctx, lolz.ListParams{Category: category, OrderBy: "pdate_to_down"})
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}

	var results map[string][]lolz.Item
	if names := args[1:]; len(names) > 0 {
		results, err = manager.EvaluateSelected(ctx, names, list.Items)
	} else {
		results, err = manager.EvaluateAll(ctx, list.Items)
	}
	if errors.Is(err, filter.ErrUnknownFilter) {
		return fmt.Errorf("%w (see 'lolzmarket presets list')", err)
	}
	if err != nil {
		return fmt.Errorf("failed to evaluate presets: %w", err)
	}

	summary := summarizeMatches(results)
	return render(cmd, summary, func(w io.Writer) error {
		table := tablewriter.NewWriter(w)
		table.Header("Preset", "Matched", "Items")
		for _, s := range summary {
			ids := make([]string, len(s.ItemIDs))
			for i, id := range s.ItemIDs {
				ids[i] = strconv.FormatInt(id, 10)
			}
			_ = table.Append(s.Preset, fmt.Sprintf("%d/%d", s.Matched, len(list.Items)), truncate(strings.Join(ids, ", "), 60))
		}
		return table.Render()
	})
}

// summarizeMatches orders results by preset name
func summarizeMatches(results map[string][]lolz.Item) []presetMatches {
	summary := make([]presetMatches, 0, len(results))
	for name, items := range results {
		ids := make([]int64, len(items))
		for i, item := range items {
			ids[i] = item.ItemID
		}
		summary = append(summary, presetMatches{Preset: name, Matched: len(items), ItemIDs: ids})
	}
	slices.SortFunc(summary, func(a, b presetMatches) int {
		return strings.Compare(a.Preset, b.Preset)
	})
	return summary
}
