package lolz

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayments(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/market/user/42/payments", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "money_transfer", q.Get("type"))
		assert.Equal(t, "2024-01-02T03:04:05Z", q.Get("startDate"))
		assert.False(t, q.Has("endDate"))
		assert.Equal(t, "0", q.Get("is_hold"))
		assert.False(t, q.Has("pmin"))

		writeJSON(w, http.StatusOK, map[string]any{
			"payments": map[string]any{
				"100": map[string]any{
					"operation_id":   100,
					"operation_date": 1700000000,
					"operation_type": "money_transfer",
					"incoming_sum":   50,
					"data":           false,
					"label":          map[string]any{"title": "Transfer"},
				},
				"101": map[string]any{
					"operation_id":   101,
					"operation_date": 1700000500,
					"operation_type": "money_transfer",
					"outgoing_sum":   20,
					"data": map[string]any{
						"user_id":             7,
						"username":            "buyer",
						"secondary_group_ids": "2,5",
					},
					"user": map[string]any{"user_id": 42, "user_balance": 130},
				},
			},
			"page":        1,
			"hasNextPage": true,
		})
	})
	client, _ := newTestClient(t, mux)

	hold := false
	list, err := client.Payments(context.Background(), PaymentsParams{
		Type:      PaymentMoneyTransfer,
		StartDate: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		IsHold:    &hold,
	})
	require.NoError(t, err)
	require.Len(t, list.Payments, 2)
	assert.True(t, list.HasNextPage)

	newest := list.Payments[0]
	assert.Equal(t, int64(101), newest.OperationID)
	assert.True(t, newest.Data.Present)
	assert.Equal(t, "buyer", newest.Data.Username)
	assert.Equal(t, "2,5", newest.Data.SecondaryGroupIDs.String())
	assert.InDelta(t, -20, newest.Amount(), 0.001)
	assert.InDelta(t, 130, newest.User.UserBalance, 0.001)

	oldest := list.Payments[1]
	assert.Equal(t, int64(100), oldest.OperationID)
	assert.False(t, oldest.Data.Present)
	assert.Equal(t, "Transfer", oldest.Label.Title)
	assert.Equal(t, time.Unix(1700000000, 0), oldest.Date())
}

func TestPaymentsEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/market/user/42/payments", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"payments": []any{}, "page": 1})
	})
	client, _ := newTestClient(t, mux)

	list, err := client.Payments(context.Background(), PaymentsParams{})
	require.NoError(t, err)
	assert.Empty(t, list.Payments)
	assert.False(t, list.HasNextPage)
}

func TestTransfer(t *testing.T) {
	t.Run("sends form and defaults currency", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/market/balance/transfer", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "7", r.PostForm.Get("user_id"))
			assert.Equal(t, "100", r.PostForm.Get("amount"))
			assert.Equal(t, "rub", r.PostForm.Get("currency"))
			assert.Equal(t, "secret", r.PostForm.Get("secret_answer"))
			assert.Equal(t, "1", r.PostForm.Get("transfer_hold"))
			assert.Equal(t, "3", r.PostForm.Get("hold_length_value"))
			assert.Equal(t, "day", r.PostForm.Get("hold_length_option"))
			assert.False(t, r.PostForm.Has("comment"))
			writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "message": "Transfer complete"})
		})
		client, _ := newTestClient(t, mux)

		result, err := client.Transfer(context.Background(), TransferParams{
			ReceiverID:   7,
			Amount:       100,
			SecretAnswer: "secret",
			TransferHold: true,
			HoldLength:   3,
			HoldPeriod:   HoldDay,
		})
		require.NoError(t, err)
		assert.Equal(t, "Transfer complete", result.Message)
	})

	t.Run("validation", func(t *testing.T) {
		client, _ := newTestClient(t, http.NewServeMux())

		tests := []struct {
			name   string
			params TransferParams
		}{
			{"no receiver", TransferParams{Amount: 1, SecretAnswer: "s"}},
			{"no amount", TransferParams{ReceiverUsername: "x", SecretAnswer: "s"}},
			{"no secret", TransferParams{ReceiverUsername: "x", Amount: 1}},
			{"hold without length", TransferParams{ReceiverUsername: "x", Amount: 1, SecretAnswer: "s", TransferHold: true}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := client.Transfer(context.Background(), tt.params)
				require.ErrorIs(t, err, ErrInvalidConfig)
			})
		}
	})
}

func TestTransferLink(t *testing.T) {
	client, _ := newTestClient(t, http.NewServeMux())

	hold := true
	link := client.TransferLink(25.5, "for coffee", &hold)

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "zelenka.guru", parsed.Host)
	assert.Equal(t, "/market/balance/transfer", parsed.Path)
	assert.Equal(t, "tester", parsed.Query().Get("username"))
	assert.Equal(t, "25.5", parsed.Query().Get("amount"))
	assert.Equal(t, "for coffee", parsed.Query().Get("comment"))
	assert.Equal(t, "1", parsed.Query().Get("hold"))

	plain := client.TransferLink(10, "", nil)
	assert.NotContains(t, plain, "comment")
	assert.NotContains(t, plain, "hold=")

	noHold := false
	explicit, err := url.Parse(client.TransferLink(10, "", &noHold))
	require.NoError(t, err)
	assert.Equal(t, []string{"0"}, explicit.Query()["hold"])

	assert.NotContains(t, client.TransferLink(0, "", nil), "amount")
}
