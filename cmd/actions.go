package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/s0up4200/lolzmarket/lolz"
)

var (
	reservePrice float64
	emailAddress string
	deleteReason string
)

// itemAction is a market operation that takes only an item id
type itemAction func(ctx context.Context, id int64) (*lolz.ActionResult, error)

// newActionCmd builds a command that runs action for a single item id. verb
// completes "failed to ..." and done describes the item afterwards.
func newActionCmd(use, short, verb, done string, action func() itemAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			result, err := action()(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to %s item %d: %w", verb, id, err)
			}
			return renderAction(cmd, done, id, result)
		},
	}
}

var cancelReserveCmd = newActionCmd("cancel-reserve", "Cancel a reservation", "cancel reservation of", "no longer reserved",
	func() itemAction { return client.CancelReserve })

var checkCmd = newActionCmd("check", "Check a reserved account before buying", "check", "checked",
	func() itemAction { return client.CheckAccount })

var confirmBuyCmd = newActionCmd("confirm-buy", "Confirm the purchase of a checked account", "confirm purchase of", "bought",
	func() itemAction { return client.ConfirmBuy })

var refuseGuaranteeCmd = newActionCmd("refuse-guarantee", "Refuse the guarantee of a bought account", "refuse guarantee of", "guarantee refused",
	func() itemAction { return client.RefuseGuarantee })

var changePasswordCmd = newActionCmd("change-password", "Change the password of a bought account", "change password of", "password changed",
	func() itemAction { return client.ChangePassword })

// reserveCmd represents the reserve command
var reserveCmd = &cobra.Command{
	Use:   "reserve <id>",
	Short: "Reserve an item",
	Long:  `Reserve an item for purchase. Without --price the current listing price is used.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		result, err := client.Reserve(cmd.Context(), id, reservePrice)
		if err != nil {
			return fmt.Errorf("failed to reserve item %d: %w", id, err)
		}
		return renderAction(cmd, "reserved", id, result)
	},
}

// buyCmd represents the buy command
var buyCmd = &cobra.Command{
	Use:   "buy <id>",
	Short: "Buy an item immediately",
	Long: `Reserve, check and buy an item in one step (fast-buy).

The purchase is confirmed interactively unless --yes is given or
safety.confirm_purchase is disabled. With --dry-run nothing is bought.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuy,
}

// emailCodeCmd represents the email-code command
var emailCodeCmd = &cobra.Command{
	Use:   "email-code <id>",
	Short: "Get the latest confirmation code sent to an account's email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if emailAddress == "" {
			return fmt.Errorf("--email is required")
		}

		code, err := client.EmailCode(cmd.Context(), id, emailAddress)
		if err != nil {
			return fmt.Errorf("failed to get email code for item %d: %w", id, err)
		}

		return render(cmd, code, func(w io.Writer) error {
			if code.CodeData.Code == "" {
				fmt.Fprintln(w, "No code received yet")
				return nil
			}
			fmt.Fprintf(w, "Code: %s\n", code.CodeData.Code)
			fmt.Fprintf(w, "Received: %s\n", formatTime(code.CodeData.Received()))
			return nil
		})
	},
}

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one of your listings",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

// bumpCmd represents the bump command
var bumpCmd = &cobra.Command{
	Use:   "bump <id> [id...]",
	Short: "Bump listings to the top of their category",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBump,
}

func init() {
	rootCmd.AddCommand(
		reserveCmd,
		cancelReserveCmd,
		checkCmd,
		confirmBuyCmd,
		buyCmd,
		emailCodeCmd,
		refuseGuaranteeCmd,
		changePasswordCmd,
		deleteCmd,
		bumpCmd,
	)

	reserveCmd.Flags().Float64Var(&reservePrice, "price", 0, "price to reserve at (default: current price)")
	emailCodeCmd.Flags().StringVar(&emailAddress, "email", "", "email address of the account")
	deleteCmd.Flags().StringVar(&deleteReason, "reason", "", "reason for deletion (required)")
}

func runBuy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	item, err := client.Item(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get item %d: %w", id, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", item.Title)
	fmt.Fprintf(out, "Price: %s\n", formatPrice(item.Price, item.PriceCurrency))

	if cfg.Safety.DryRun {
		fmt.Fprintf(out, "[DRY RUN] Would buy item %d\n", id)
		return nil
	}

	if cfg.Safety.ConfirmPurchase && !confirm(cmd, fmt.Sprintf("Buy item %d for %s?", id, formatPrice(item.Price, item.PriceCurrency))) {
		fmt.Fprintln(out, "Purchase cancelled.")
		return nil
	}

	result, err := client.FastBuy(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to buy item %d: %w", id, err)
	}

	logger.Info().
		Int64("item_id", id).
		Float64("price", item.Price).
		Msg("Bought item")

	if result.Item != nil {
		return renderItem(cmd, result.Item, result)
	}
	return renderAction(cmd, "bought", id, result)
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if deleteReason == "" {
		return fmt.Errorf("--reason is required")
	}

	out := cmd.OutOrStdout()
	if cfg.Safety.DryRun {
		fmt.Fprintf(out, "[DRY RUN] Would delete item %d (reason: %s)\n", id, deleteReason)
		return nil
	}

	if cfg.Safety.ConfirmDelete && !confirm(cmd, fmt.Sprintf("Delete item %d?", id)) {
		fmt.Fprintln(out, "Deletion cancelled.")
		return nil
	}

	result, err := client.Delete(cmd.Context(), id, deleteReason)
	if err != nil {
		return fmt.Errorf("failed to delete item %d: %w", id, err)
	}
	return renderAction(cmd, "deleted", id, result)
}

func runBump(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	if len(ids) == 1 {
		result, err := client.Bump(cmd.Context(), ids[0])
		if err != nil {
			return fmt.Errorf("failed to bump item %d: %w", ids[0], err)
		}
		return renderAction(cmd, "bumped", ids[0], result)
	}

	result := client.BumpAll(cmd.Context(), ids)

	err = render(cmd, result, func(w io.Writer) error {
		table := tablewriter.NewWriter(w)
		table.Header("ID", "Result")
		for _, id := range result.Successful {
			_ = table.Append(strconv.FormatInt(id, 10), "✓ bumped")
		}
		for _, failure := range result.Failed {
			_ = table.Append(strconv.FormatInt(failure.ItemID, 10), "✗ "+failure.Err.Error())
		}
		if err := table.Render(); err != nil {
			return err
		}
		fmt.Fprintf(w, "\n✓ Bumped %d of %d items\n", len(result.Successful), result.Requested)
		return nil
	})
	if err != nil {
		return err
	}

	if len(result.Failed) > 0 {
		return fmt.Errorf("%d of %d bumps failed", len(result.Failed), result.Requested)
	}
	return nil
}
