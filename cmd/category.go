package cmd

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/s0up4200/lolzmarket/lolz"
)

// categoryCmd groups category lookups
var categoryCmd = &cobra.Command{
	Use:     "category",
	Aliases: []string{"categories"},
	Short:   "Inspect market categories",
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known categories",
	Args:  cobra.NoArgs,
	Annotations: map[string]string{
		skipInit: "true",
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-4s %s\n", "ID", "SLUG")
		for _, category := range lolz.Categories() {
			fmt.Fprintf(out, "%-4d %s\n", category.ID(), category)
		}
		return nil
	},
}

var categoryParamsCmd = &cobra.Command{
	Use:   "params <category>",
	Short: "Show the search parameters a category accepts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, err := lolz.ParseCategory(args[0])
		if err != nil {
			return err
		}

		params, err := client.CategoryParams(cmd.Context(), category)
		if err != nil {
			return fmt.Errorf("failed to get parameters of %s: %w", category, err)
		}

		return render(cmd, params, func(w io.Writer) error {
			table := tablewriter.NewWriter(w)
			table.Header("Name", "Input", "Description")
			for _, p := range params.BaseParams {
				_ = table.Append(p.Name, p.Input, p.Description)
			}
			for _, p := range params.Params {
				_ = table.Append(p.Name, p.Input, p.Description)
			}
			return table.Render()
		})
	},
}

var categoryGamesCmd = &cobra.Command{
	Use:   "games <category>",
	Short: "List the games of a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, err := lolz.ParseCategory(args[0])
		if err != nil {
			return err
		}

		games, err := client.CategoryGames(cmd.Context(), category)
		if err != nil {
			return fmt.Errorf("failed to get games of %s: %w", category, err)
		}

		return render(cmd, games, func(w io.Writer) error {
			if len(games.Games) == 0 {
				fmt.Fprintln(w, "No games found")
				return nil
			}
			table := tablewriter.NewWriter(w)
			table.Header("App ID", "Title", "Abbr")
			for _, game := range games.Games {
				_ = table.Append(game.AppID.String(), game.Title, game.Abbr)
			}
			if err := table.Render(); err != nil {
				return err
			}
			fmt.Fprintf(w, "%d games in %s\n", len(games.Games), category)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(categoryCmd)
	categoryCmd.AddCommand(categoryListCmd, categoryParamsCmd, categoryGamesCmd)
}
