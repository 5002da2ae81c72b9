package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/s0up4200/lolzmarket/lolz"
)

// render writes data as JSON or YAML, or calls table for the table format
func render(cmd *cobra.Command, data any, table func(w io.Writer) error) error {
	out := cmd.OutOrStdout()

	switch cfg.Output.Format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	case "yaml":
		// Go through JSON so YAML keys match the API field names.
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		encoder := yaml.NewEncoder(out)
		defer encoder.Close()
		return encoder.Encode(generic)
	default:
		return table(out)
	}
}

func renderItems(cmd *cobra.Command, items []lolz.Item, data any) error {
	return render(cmd, data, func(w io.Writer) error {
		if len(items) == 0 {
			fmt.Fprintln(w, "No items found")
			return nil
		}

		table := tablewriter.NewWriter(w)
		table.Header("ID", "Title", "Price", "Category", "Origin", "Views", "Published", "Tags")
		for _, item := range items {
			_ = table.Append(
				strconv.FormatInt(item.ItemID, 10),
				truncate(item.Title, 48),
				formatPrice(item.Price, item.PriceCurrency),
				categoryName(item.CategoryID),
				string(item.ItemOrigin),
				strconv.Itoa(item.ViewCount),
				formatTime(item.Published()),
				strings.Join(item.TagTitles(), ", "),
			)
		}
		return table.Render()
	})
}

func renderItem(cmd *cobra.Command, item *lolz.Item, data any) error {
	return render(cmd, data, func(w io.Writer) error {
		table := tablewriter.NewWriter(w)
		table.Header("Property", "Value")
		_ = table.Append("ID", strconv.FormatInt(item.ItemID, 10))
		_ = table.Append("Title", item.Title)
		if item.TitleEn != "" && item.TitleEn != item.Title {
			_ = table.Append("Title (en)", item.TitleEn)
		}
		_ = table.Append("Price", formatPrice(item.Price, item.PriceCurrency))
		_ = table.Append("Category", categoryName(item.CategoryID))
		_ = table.Append("State", item.ItemState)
		_ = table.Append("Origin", string(item.ItemOrigin))
		_ = table.Append("Guarantee", guaranteeName(item.ExtendedGuarantee))
		_ = table.Append("Views", strconv.Itoa(item.ViewCount))
		_ = table.Append("Published", formatTime(item.Published()))
		_ = table.Append("Reserved", yesNo(item.Reserved()))
		_ = table.Append("Can buy", yesNo(item.CanBuyItem))
		if tags := item.TagTitles(); len(tags) > 0 {
			_ = table.Append("Tags", strings.Join(tags, ", "))
		}
		if item.AccountLink != "" {
			_ = table.Append("Account link", item.AccountLink)
		}
		return table.Render()
	})
}

func renderAction(cmd *cobra.Command, done string, id int64, result *lolz.ActionResult) error {
	return render(cmd, result, func(w io.Writer) error {
		message := result.Message
		if message == "" {
			message = result.Status
		}
		if message == "" {
			message = "ok"
		}
		fmt.Fprintf(w, "✓ Item %d %s: %s\n", id, done, message)
		return nil
	})
}

// confirm asks a yes/no question unless --yes was given
func confirm(cmd *cobra.Command, question string) bool {
	if noConfirm {
		return true
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id: %q", arg)
	}
	return id, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func formatPrice(price float64, currency string) string {
	text := strconv.FormatFloat(price, 'f', -1, 64)
	if currency != "" {
		text += " " + strings.ToUpper(currency)
	}
	return text
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func categoryName(id int) string {
	if category, ok := lolz.CategoryByID(id); ok {
		return category.String()
	}
	return strconv.Itoa(id)
}

func guaranteeName(code int) string {
	switch lolz.Guarantee(code) {
	case lolz.GuaranteeHalfDay:
		return "12 hours"
	case lolz.GuaranteeDay:
		return "24 hours"
	case lolz.GuaranteeThreeDays:
		return "3 days"
	}
	return strconv.Itoa(code)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
