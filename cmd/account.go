package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/s0up4200/lolzmarket/lolz"
)

var (
	paymentType     string
	paymentPage     int
	paymentPriceMin float64
	paymentPriceMax float64
	paymentSender   string
	paymentReceiver string
	paymentSince    string
	paymentUntil    string
	paymentComment  string
	paymentHold     bool

	transferUser       string
	transferUserID     int64
	transferAmount     float64
	transferCurrency   string
	transferComment    string
	transferSecret     string
	transferHoldLength int
	transferHoldPeriod string

	linkComment string
	linkHold    bool
)

// meCmd represents the me command
var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the authenticated user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := client.Me(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}

		return render(cmd, user, func(w io.Writer) error {
			table := tablewriter.NewWriter(w)
			table.Header("Property", "Value")
			_ = table.Append("User ID", strconv.FormatInt(user.UserID, 10))
			_ = table.Append("Username", user.Username)
			if user.UserTitle != "" {
				_ = table.Append("Title", user.UserTitle)
			}
			if group := user.PrimaryGroup(); group != nil {
				_ = table.Append("Group", group.UserGroupTitle)
			}
			_ = table.Append("Messages", strconv.Itoa(user.UserMessageCount))
			_ = table.Append("Likes", strconv.Itoa(user.UserLikeCount))
			_ = table.Append("Registered", formatTime(user.Registered()))
			_ = table.Append("Last seen", formatTime(user.LastSeen()))
			_ = table.Append("Profile", user.Links.Permalink)
			return table.Render()
		})
	},
}

// paymentsCmd represents the payments command
var paymentsCmd = &cobra.Command{
	Use:   "payments",
	Short: "Show balance operations",
	Long: `Show the balance history of the authenticated user, newest first.

Dates accept YYYY-MM-DD or RFC 3339.`,
	Args: cobra.NoArgs,
	RunE: runPayments,
}

// transferCmd represents the transfer command
var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Transfer balance to another user",
	Long: `Transfer balance to another user, identified by --user or --user-id.

The secret answer is read from --secret, the LOLZ_SECRET_ANSWER environment
variable, or prompted for without echo.`,
	Args: cobra.NoArgs,
	RunE: runTransfer,
}

// transferLinkCmd represents the transfer-link command
var transferLinkCmd = &cobra.Command{
	Use:   "transfer-link <amount>",
	Short: "Print a link others can use to pay you",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseFloat(args[0], 64)
		if err != nil || amount <= 0 {
			return fmt.Errorf("invalid amount: %q", args[0])
		}
		var hold *bool
		if cmd.Flags().Changed("hold") {
			hold = &linkHold
		}
		fmt.Fprintln(cmd.OutOrStdout(), client.TransferLink(amount, linkComment, hold))
		return nil
	},
}

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test the API connection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// NewClient already authenticated in initializeApp.
		profile := client.Profile()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Connected to %s as %s (ID: %d)\n", cfg.API.BaseURL, profile.Username, profile.UserID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(meCmd, paymentsCmd, transferCmd, transferLinkCmd, testCmd)

	paymentsCmd.Flags().StringVar(&paymentType, "type", "", "operation type (income, cost, paid_item, sold_item, money_transfer, ...)")
	paymentsCmd.Flags().IntVar(&paymentPage, "page", 0, "result page")
	paymentsCmd.Flags().Float64Var(&paymentPriceMin, "pmin", 0, "minimum amount")
	paymentsCmd.Flags().Float64Var(&paymentPriceMax, "pmax", 0, "maximum amount")
	paymentsCmd.Flags().StringVar(&paymentSender, "sender", "", "sender username")
	paymentsCmd.Flags().StringVar(&paymentReceiver, "receiver", "", "receiver username")
	paymentsCmd.Flags().StringVar(&paymentSince, "since", "", "start date")
	paymentsCmd.Flags().StringVar(&paymentUntil, "until", "", "end date")
	paymentsCmd.Flags().StringVar(&paymentComment, "comment", "", "comment contains")
	paymentsCmd.Flags().BoolVar(&paymentHold, "hold", false, "only held operations")

	transferCmd.Flags().StringVar(&transferUser, "user", "", "receiver username")
	transferCmd.Flags().Int64Var(&transferUserID, "user-id", 0, "receiver user id")
	transferCmd.Flags().Float64Var(&transferAmount, "amount", 0, "amount to send")
	transferCmd.Flags().StringVar(&transferCurrency, "currency", "", "currency (default rub)")
	transferCmd.Flags().StringVar(&transferComment, "comment", "", "transfer comment")
	transferCmd.Flags().StringVar(&transferSecret, "secret", "", "secret answer")
	transferCmd.Flags().IntVar(&transferHoldLength, "hold", 0, "hold the money for this many periods")
	transferCmd.Flags().StringVar(&transferHoldPeriod, "hold-period", string(lolz.HoldDay), "hold period (hour, day, week, month, year)")

	transferLinkCmd.Flags().StringVar(&linkComment, "comment", "", "payment comment")
	transferLinkCmd.Flags().BoolVar(&linkHold, "hold", false, "ask for a held transfer")
}

func runPayments(cmd *cobra.Command, args []string) error {
	params := lolz.PaymentsParams{
		Type:     lolz.PaymentType(paymentType),
		Page:     paymentPage,
		PriceMin: paymentPriceMin,
		PriceMax: paymentPriceMax,
		Sender:   paymentSender,
		Receiver: paymentReceiver,
		Comment:  paymentComment,
	}
	if cmd.Flags().Changed("hold") {
		params.IsHold = &paymentHold
	}

	var err error
	if params.StartDate, err = parseDate(paymentSince); err != nil {
		return err
	}
	if params.EndDate, err = parseDate(paymentUntil); err != nil {
		return err
	}

	list, err := client.Payments(cmd.Context(), params)
	if err != nil {
		return fmt.Errorf("failed to get payments: %w", err)
	}

	return render(cmd, list, func(w io.Writer) error {
		if len(list.Payments) == 0 {
			fmt.Fprintln(w, "No payments found")
			return nil
		}

		table := tablewriter.NewWriter(w)
		table.Header("ID", "Date", "Type", "Amount", "Counterparty", "Item", "Status")
		for _, op := range list.Payments {
			counterparty := "-"
			if op.Data.Present && op.Data.Username != "" {
				counterparty = op.Data.Username
			}
			item := "-"
			if op.ItemID > 0 {
				item = strconv.FormatInt(op.ItemID, 10)
			}
			status := op.PaymentStatus
			if op.Held() {
				status = "hold until " + formatTime(op.HoldEnd())
			}
			_ = table.Append(
				strconv.FormatInt(op.OperationID, 10),
				formatTime(op.Date()),
				string(op.OperationType),
				strconv.FormatFloat(op.Amount(), 'f', 2, 64),
				counterparty,
				item,
				status,
			)
		}
		if err := table.Render(); err != nil {
			return err
		}
		if list.HasNextPage {
			fmt.Fprintf(w, "More results on page %d\n", list.Page+1)
		}
		return nil
	})
}

func runTransfer(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	params := lolz.TransferParams{
		ReceiverID:       transferUserID,
		ReceiverUsername: transferUser,
		Amount:           transferAmount,
		Currency:         lolz.Currency(strings.ToLower(transferCurrency)),
		Comment:          transferComment,
	}
	if params.Currency == "" {
		params.Currency = lolz.CurrencyRUB
	}
	if transferHoldLength > 0 {
		params.TransferHold = true
		params.HoldLength = transferHoldLength
		params.HoldPeriod = lolz.HoldPeriod(transferHoldPeriod)
	}

	receiver := transferUser
	if receiver == "" {
		receiver = "user " + strconv.FormatInt(transferUserID, 10)
	}
	summary := fmt.Sprintf("%s to %s", formatPrice(transferAmount, string(params.Currency)), receiver)

	if cfg.Safety.DryRun {
		fmt.Fprintf(out, "[DRY RUN] Would transfer %s\n", summary)
		return nil
	}

	if cfg.Safety.ConfirmTransfer && !confirm(cmd, "Transfer "+summary+"?") {
		fmt.Fprintln(out, "Transfer cancelled.")
		return nil
	}

	secret, err := secretAnswer(cmd)
	if err != nil {
		return err
	}
	params.SecretAnswer = secret

	result, err := client.Transfer(cmd.Context(), params)
	if err != nil {
		return fmt.Errorf("failed to transfer: %w", err)
	}

	return render(cmd, result, func(w io.Writer) error {
		fmt.Fprintf(w, "✓ Transferred %s\n", summary)
		return nil
	})
}

// secretAnswer reads the secret answer from the flag, the environment or
// the terminal, in that order
func secretAnswer(cmd *cobra.Command) (string, error) {
	if transferSecret != "" {
		return transferSecret, nil
	}
	if secret := os.Getenv("LOLZ_SECRET_ANSWER"); secret != "" {
		return secret, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("secret answer required: use --secret or LOLZ_SECRET_ANSWER")
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Secret answer: ")
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("failed to read secret answer: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC 3339", value)
	}
	return t, nil
}
