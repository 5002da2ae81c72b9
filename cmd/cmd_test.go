package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/lolzmarket/config"
	"github.com/s0up4200/lolzmarket/filter"
	"github.com/s0up4200/lolzmarket/lolz"
)

// fakeMarket is an in-process market API
type fakeMarket struct {
	server    *httptest.Server
	fastBuys  atomic.Int32
	transfers atomic.Int32
	lastQuery atomic.Value
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func testItem(id int64, title string, price float64) map[string]any {
	return map[string]any{
		"item_id":        id,
		"title":          title,
		"price":          price,
		"price_currency": "rub",
		"category_id":    1,
		"item_origin":    "personal",
		"published_date": time.Now().Add(-time.Hour).Unix(),
		"tags":           []any{},
	}
}

func newFakeMarket(t *testing.T) *fakeMarket {
	t.Helper()

	fm := &fakeMarket{}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"user": map[string]any{"user_id": 42, "username": "tester"},
		})
	})
	mux.HandleFunc("GET /market/steam", func(w http.ResponseWriter, r *http.Request) {
		fm.lastQuery.Store(r.URL.Query())
		writeJSON(w, http.StatusOK, map[string]any{
			"items": []any{
				testItem(1, "Cheap account", 30),
				testItem(2, "Pricey account", 80),
			},
			"totalItems": 2,
		})
	})
	mux.HandleFunc("GET /market/1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"item": testItem(1, "Cheap account", 30)})
	})
	mux.HandleFunc("POST /market/1/fast-buy", func(w http.ResponseWriter, r *http.Request) {
		fm.fastBuys.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "item": testItem(1, "Cheap account", 30)})
	})
	mux.HandleFunc("POST /market/1/bump", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	mux.HandleFunc("POST /market/2/bump", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []string{"too soon"}})
	})
	mux.HandleFunc("POST /market/balance/transfer", func(w http.ResponseWriter, r *http.Request) {
		fm.transfers.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "bob", r.PostForm.Get("username"))
		assert.Equal(t, "10", r.PostForm.Get("amount"))
		assert.Equal(t, "answer", r.PostForm.Get("secret_answer"))
		assert.Equal(t, "rub", r.PostForm.Get("currency"))
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	fm.server = httptest.NewServer(mux)
	t.Cleanup(fm.server.Close)
	return fm
}

// writeTestConfig points the CLI at the fake market
func writeTestConfig(t *testing.T, baseURL, extra string) string {
	t.Helper()

	content := `api:
  token: test-token
  base_url: ` + baseURL + `
  transfer_url: https://zelenka.guru/market/balance/transfer
  retry_max: 0
  rate_limit: 0
logging:
  level: error
` + extra

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// resetFlags clears flag state left over from a previous execution
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

func executeCommand(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()

	resetFlags(rootCmd)
	cfg = nil
	client = nil

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMeCommand(t *testing.T) {
	fm := newFakeMarket(t)
	path := writeTestConfig(t, fm.server.URL, "")

	out, err := executeCommand(t, "", "me", "--config", path, "-o", "json")
	require.NoError(t, err)

	var user lolz.User
	require.NoError(t, json.Unmarshal([]byte(out), &user))
	assert.Equal(t, int64(42), user.UserID)
	assert.Equal(t, "tester", user.Username)
}

func TestListCommand(t *testing.T) {
	fm := newFakeMarket(t)
	path := writeTestConfig(t, fm.server.URL, `filter:
  presets:
    cheap: Price < 50
`)

	t.Run("applies preset filter", func(t *testing.T) {
		out, err := executeCommand(t, "", "list", "steam", "--config", path, "--pmax", "100", "--filter", "cheap", "-o", "json")
		require.NoError(t, err)

		var list lolz.ItemList
		require.NoError(t, json.Unmarshal([]byte(out), &list))
		require.Len(t, list.Items, 1)
		assert.Equal(t, int64(1), list.Items[0].ItemID)

		query, _ := fm.lastQuery.Load().(url.Values)
		assert.Equal(t, []string{"100"}, query["pmax"])
	})

	t.Run("ad hoc expression and extra params", func(t *testing.T) {
		out, err := executeCommand(t, "", "list", "steam", "--config", path,
			"--param", "game[]=730", "--filter", "Price > 50", "-o", "json")
		require.NoError(t, err)

		var list lolz.ItemList
		require.NoError(t, json.Unmarshal([]byte(out), &list))
		require.Len(t, list.Items, 1)
		assert.Equal(t, int64(2), list.Items[0].ItemID)

		query, _ := fm.lastQuery.Load().(url.Values)
		assert.Equal(t, []string{"730"}, query["game[]"])
	})

	t.Run("table output", func(t *testing.T) {
		out, err := executeCommand(t, "", "list", "steam", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "Cheap account")
		assert.Contains(t, out, "Pricey account")
		assert.Contains(t, out, "30 RUB")
	})

	t.Run("invalid filter", func(t *testing.T) {
		_, err := executeCommand(t, "", "list", "steam", "--config", path, "--filter", "NoSuchField > 1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid filter")
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := executeCommand(t, "", "list", "nope", "--config", path)
		require.Error(t, err)
	})
}

func TestBuyCommand(t *testing.T) {
	t.Run("dry run", func(t *testing.T) {
		fm := newFakeMarket(t)
		path := writeTestConfig(t, fm.server.URL, "")

		out, err := executeCommand(t, "", "buy", "1", "--config", path, "--dry-run")
		require.NoError(t, err)
		assert.Contains(t, out, "[DRY RUN] Would buy item 1")
		assert.Zero(t, fm.fastBuys.Load())
	})

	t.Run("declined", func(t *testing.T) {
		fm := newFakeMarket(t)
		path := writeTestConfig(t, fm.server.URL, "")

		out, err := executeCommand(t, "n\n", "buy", "1", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "Buy item 1 for 30 RUB? [y/N]")
		assert.Contains(t, out, "Purchase cancelled.")
		assert.Zero(t, fm.fastBuys.Load())
	})

	t.Run("confirmed", func(t *testing.T) {
		fm := newFakeMarket(t)
		path := writeTestConfig(t, fm.server.URL, "")

		out, err := executeCommand(t, "y\n", "buy", "1", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "Cheap account")
		assert.Equal(t, int32(1), fm.fastBuys.Load())
	})

	t.Run("skip confirmation", func(t *testing.T) {
		fm := newFakeMarket(t)
		path := writeTestConfig(t, fm.server.URL, "")

		_, err := executeCommand(t, "", "buy", "1", "--config", path, "--yes")
		require.NoError(t, err)
		assert.Equal(t, int32(1), fm.fastBuys.Load())
	})
}

func TestBumpCommand(t *testing.T) {
	fm := newFakeMarket(t)
	path := writeTestConfig(t, fm.server.URL, "")

	out, err := executeCommand(t, "", "bump", "1", "2", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 bumps failed")
	assert.Contains(t, out, "✓ bumped")
	assert.Contains(t, out, "too soon")
}

func TestDeleteRequiresReason(t *testing.T) {
	fm := newFakeMarket(t)
	path := writeTestConfig(t, fm.server.URL, "")

	_, err := executeCommand(t, "", "delete", "1", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--reason is required")
}

func TestTransferCommands(t *testing.T) {
	fm := newFakeMarket(t)
	path := writeTestConfig(t, fm.server.URL, "")

	t.Run("transfer", func(t *testing.T) {
		out, err := executeCommand(t, "", "transfer", "--config", path,
			"--user", "bob", "--amount", "10", "--secret", "answer", "--yes")
		require.NoError(t, err)
		assert.Contains(t, out, "✓ Transferred 10 RUB to bob")
		assert.Equal(t, int32(1), fm.transfers.Load())
	})

	t.Run("dry run", func(t *testing.T) {
		out, err := executeCommand(t, "", "transfer", "--config", path,
			"--user", "bob", "--amount", "10", "--secret", "answer", "--dry-run")
		require.NoError(t, err)
		assert.Contains(t, out, "[DRY RUN] Would transfer 10 RUB to bob")
		assert.Equal(t, int32(1), fm.transfers.Load())
	})

	t.Run("link", func(t *testing.T) {
		out, err := executeCommand(t, "", "transfer-link", "100", "--config", path, "--comment", "order 7")
		require.NoError(t, err)
		assert.Contains(t, out, "https://zelenka.guru/market/balance/transfer?")
		assert.Contains(t, out, "username=tester")
		assert.Contains(t, out, "amount=100")
		assert.Contains(t, out, "comment=order+7")
		assert.NotContains(t, out, "hold=")
	})

	t.Run("link with hold turned off", func(t *testing.T) {
		out, err := executeCommand(t, "", "transfer-link", "100", "--config", path, "--hold=false")
		require.NoError(t, err)
		assert.Contains(t, out, "hold=0")
	})
}

func TestWatchOnce(t *testing.T) {
	fm := newFakeMarket(t)
	path := writeTestConfig(t, fm.server.URL, `watch:
  watches:
    - name: cheap-steam
      category: steam
      schedule: "@every 1m"
      filter: Price < 50
      auto_buy: true
      max_price: 40
notify:
  log: false
`)

	out, err := executeCommand(t, "", "watch", "--once", "--config", path, "-o", "json")
	require.NoError(t, err)

	var summaries []struct {
		Watch  string `json:"watch"`
		Result struct {
			Listed  int
			Matched int
			Bought  int
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "cheap-steam", summaries[0].Watch)
	assert.Equal(t, 2, summaries[0].Result.Listed)
	assert.Equal(t, 1, summaries[0].Result.Matched)
	assert.Equal(t, 1, summaries[0].Result.Bought)
	assert.Equal(t, int32(1), fm.fastBuys.Load())
}

func TestCommandsWithoutConfig(t *testing.T) {
	t.Run("version", func(t *testing.T) {
		out, err := executeCommand(t, "", "version")
		require.NoError(t, err)
		assert.Contains(t, out, "lolzmarket "+version)
	})

	t.Run("category list", func(t *testing.T) {
		out, err := executeCommand(t, "", "category", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "steam")
		assert.Contains(t, out, "telegram")
	})

	t.Run("update refuses dev builds", func(t *testing.T) {
		_, err := executeCommand(t, "", "update")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "development build")
	})
}

func TestPresetsCommands(t *testing.T) {
	presets := `filter:
  presets:
    cheap: Price < 50
    pricey: Price > 50
`

	t.Run("list reads config only", func(t *testing.T) {
		// Nothing listens here, so any API call would fail.
		path := writeTestConfig(t, "http://127.0.0.1:1", presets)

		out, err := executeCommand(t, "", "presets", "list", "--config", path, "-o", "json")
		require.NoError(t, err)

		var got []presetInfo
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, []presetInfo{
			{Name: "cheap", Expression: "Price < 50"},
			{Name: "pricey", Expression: "Price > 50"},
		}, got)
	})

	fm := newFakeMarket(t)
	path := writeTestConfig(t, fm.server.URL, presets)

	t.Run("test all presets", func(t *testing.T) {
		out, err := executeCommand(t, "", "presets", "test", "steam", "--config", path, "-o", "json")
		require.NoError(t, err)

		var got []presetMatches
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, []presetMatches{
			{Preset: "cheap", Matched: 1, ItemIDs: []int64{1}},
			{Preset: "pricey", Matched: 1, ItemIDs: []int64{2}},
		}, got)

		query, _ := fm.lastQuery.Load().(url.Values)
		assert.Equal(t, "pdate_to_down", query.Get("order_by"))
	})

	t.Run("test selected preset", func(t *testing.T) {
		out, err := executeCommand(t, "", "presets", "test", "steam", "cheap", "--config", path, "-o", "json")
		require.NoError(t, err)

		var got []presetMatches
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "cheap", got[0].Preset)
	})

	t.Run("unknown preset", func(t *testing.T) {
		_, err := executeCommand(t, "", "presets", "test", "steam", "missing", "--config", path)
		require.Error(t, err)
		assert.ErrorIs(t, err, filter.ErrUnknownFilter)
	})
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string][]string
		wantErr bool
	}{
		{name: "empty", pairs: nil, want: nil},
		{name: "single", pairs: []string{"order_by=price_to_up"}, want: map[string][]string{"order_by": {"price_to_up"}}},
		{name: "repeated key", pairs: []string{"game[]=1", "game[]=2"}, want: map[string][]string{"game[]": {"1", "2"}}},
		{name: "empty value", pairs: []string{"email= "}, want: map[string][]string{"email": {""}}},
		{name: "missing separator", pairs: []string{"oops"}, wantErr: true},
		{name: "missing key", pairs: []string{"=1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.pairs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.want, map[string][]string(got))
		})
	}
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"1", " 22 ", "333"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 22, 333}, ids)

	for _, bad := range []string{"", "abc", "0", "-5"} {
		_, err := parseIDs([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestParseDate(t *testing.T) {
	zero, err := parseDate("")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	day, err := parseDate("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, 2024, day.Year())
	assert.Equal(t, time.March, day.Month())

	exact, err := parseDate("2024-03-01T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 10, exact.UTC().Hour())

	_, err = parseDate("01.03.2024")
	assert.Error(t, err)
}

func TestSelectWatches(t *testing.T) {
	entries := []config.WatchEntry{{Name: "a"}, {Name: "b"}, {Name: "c"}}

	assert.Equal(t, entries, selectWatches(entries, nil))

	selected := selectWatches(entries, []string{"c", "a"})
	require.Len(t, selected, 2)
	assert.Equal(t, "a", selected[0].Name)
	assert.Equal(t, "c", selected[1].Name)

	assert.Empty(t, selectWatches(entries, []string{"missing"}))
}

func TestNewWatcherErrors(t *testing.T) {
	cfg = &config.Config{}
	manager := filter.NewManager()
	defer manager.Close(context.Background())

	_, err := newWatcher(config.WatchEntry{Name: "bad", Category: "nope"}, manager, nil, nil, nil)
	assert.Error(t, err)

	_, err = newWatcher(config.WatchEntry{Name: "bad", Category: "steam", Filter: "Price <"}, manager, nil, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter")
}

func TestRenderFormats(t *testing.T) {
	item := lolz.Item{ItemID: 7, Title: "Some account", Price: 12.5, PriceCurrency: "usd", CategoryID: 24}

	tests := []struct {
		format string
		want   []string
	}{
		{format: "json", want: []string{`"item_id": 7`, `"title": "Some account"`}},
		{format: "yaml", want: []string{"item_id: 7", "title: Some account"}},
		{format: "table", want: []string{"Some account", "12.5 USD", "telegram"}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			cfg = &config.Config{Output: config.OutputConfig{Format: tt.format}}

			var out bytes.Buffer
			cmd := &cobra.Command{}
			cmd.SetOut(&out)

			require.NoError(t, renderItem(cmd, &item, item))
			for _, want := range tt.want {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "абв…", truncate("абвгдеж", 4))
}
