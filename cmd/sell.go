package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/lolzmarket/lolz"
)

var (
	addTitle       string
	addTitleEn     string
	addPrice       float64
	addCategory    string
	addCurrency    string
	addOrigin      string
	addGuarantee   int
	addDescription string
	addInformation string
	addEmailData   string
	addEmailType   string
	addAskDiscount bool
	addProxyID     int64

	checkLogin     string
	checkPassword  string
	checkLoginPass string
	checkCloseItem bool
)

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a new listing",
	Long: `Create a new listing. Most categories then require goods-check with the
account credentials before the listing is published.`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

// goodsCheckCmd represents the goods-check command
var goodsCheckCmd = &cobra.Command{
	Use:   "goods-check <id>",
	Short: "Validate the account of a new listing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		result, err := client.GoodsCheck(cmd.Context(), id, lolz.GoodsCheckParams{
			Login:         checkLogin,
			Password:      checkPassword,
			LoginPassword: checkLoginPass,
			CloseItem:     checkCloseItem,
		})
		if err != nil {
			return fmt.Errorf("failed to check item %d: %w", id, err)
		}
		return renderAction(cmd, "checked", id, result)
	},
}

func init() {
	rootCmd.AddCommand(addCmd, goodsCheckCmd)

	addCmd.Flags().StringVar(&addTitle, "title", "", "listing title (required)")
	addCmd.Flags().StringVar(&addTitleEn, "title-en", "", "english title")
	addCmd.Flags().Float64Var(&addPrice, "price", 0, "price (required)")
	addCmd.Flags().StringVar(&addCategory, "category", "", "category slug or id (required)")
	addCmd.Flags().StringVar(&addCurrency, "currency", "", "currency (default rub)")
	addCmd.Flags().StringVar(&addOrigin, "origin", "", "item origin: brute, fishing, stealer, autoreg, personal, resale (required)")
	addCmd.Flags().IntVar(&addGuarantee, "guarantee", int(lolz.GuaranteeDay), "guarantee: -1 (12h), 0 (24h), 1 (3 days)")
	addCmd.Flags().StringVar(&addDescription, "description", "", "public description")
	addCmd.Flags().StringVar(&addInformation, "information", "", "information shown to the buyer only")
	addCmd.Flags().StringVar(&addEmailData, "email-login-data", "", "email credentials as login:password")
	addCmd.Flags().StringVar(&addEmailType, "email-type", "", "email type")
	addCmd.Flags().BoolVar(&addAskDiscount, "allow-ask-discount", false, "allow buyers to ask for a discount")
	addCmd.Flags().Int64Var(&addProxyID, "proxy-id", 0, "proxy to use for the check")

	goodsCheckCmd.Flags().StringVar(&checkLogin, "login", "", "account login")
	goodsCheckCmd.Flags().StringVar(&checkPassword, "password", "", "account password")
	goodsCheckCmd.Flags().StringVar(&checkLoginPass, "login-password", "", "account credentials as login:password")
	goodsCheckCmd.Flags().BoolVar(&checkCloseItem, "close", false, "close the listing after the check")
}

func runAdd(cmd *cobra.Command, args []string) error {
	if addCategory == "" {
		return fmt.Errorf("--category is required")
	}
	category, err := lolz.ParseCategory(addCategory)
	if err != nil {
		return err
	}

	params := lolz.AddItemParams{
		Title:             addTitle,
		TitleEn:           addTitleEn,
		Price:             addPrice,
		CategoryID:        category.ID(),
		Currency:          lolz.Currency(strings.ToLower(addCurrency)),
		ItemOrigin:        lolz.ItemOrigin(addOrigin),
		ExtendedGuarantee: lolz.Guarantee(addGuarantee),
		Description:       addDescription,
		Information:       addInformation,
		HasEmailLoginData: addEmailData != "",
		EmailLoginData:    addEmailData,
		EmailType:         addEmailType,
		AllowAskDiscount:  addAskDiscount,
		ProxyID:           addProxyID,
	}

	if cfg.Safety.DryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "[DRY RUN] Would list %q in %s for %s\n",
			addTitle, category, formatPrice(addPrice, string(params.Currency)))
		return nil
	}

	result, err := client.AddItem(cmd.Context(), params)
	if err != nil {
		return fmt.Errorf("failed to add item: %w", err)
	}

	if result.Item != nil {
		logger.Info().
			Int64("item_id", result.Item.ItemID).
			Str("title", result.Item.Title).
			Msg("Listing created")
		return renderItem(cmd, result.Item, result)
	}
	return render(cmd, result, func(w io.Writer) error {
		fmt.Fprintf(w, "✓ Listing created: %s\n", result.Message)
		return nil
	})
}
