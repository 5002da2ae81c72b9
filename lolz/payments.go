package lolz

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Payments returns the authenticated user's balance operations, newest first
func (c *Client) Payments(ctx context.Context, params PaymentsParams) (*PaymentList, error) {
	values, err := encodeParams(params)
	if err != nil {
		return nil, err
	}

	endpoint := "market/user/" + strconv.FormatInt(c.profile.UserID, 10) + "/payments"
	body, err := c.doRequest(ctx, http.MethodGet, endpoint, values)
	if err != nil {
		return nil, err
	}

	list, err := decodePayments(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnexpectedResponse, endpoint, err)
	}
	return list, nil
}

// Transfer sends money to another user. The currency defaults to rub.
func (c *Client) Transfer(ctx context.Context, params TransferParams) (*ActionResult, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	values, err := encodeParams(params)
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Int64("receiver_id", params.ReceiverID).
		Str("receiver", params.ReceiverUsername).
		Float64("amount", params.Amount).
		Str("currency", string(params.Currency)).
		Msg("Transferring balance")

	return c.action(ctx, http.MethodPost, "market/balance/transfer", values)
}

// TransferLink builds a web link that opens a prefilled transfer to the
// authenticated user. It makes no request. A nil hold leaves the choice to
// the payer.
func (c *Client) TransferLink(amount float64, comment string, hold *bool) string {
	params := url.Values{}
	params.Set("username", c.profile.Username)
	if amount > 0 {
		params.Set("amount", formatAmount(amount))
	}
	if comment != "" {
		params.Set("comment", comment)
	}
	if hold != nil {
		params.Set("hold", formatBool(*hold))
	}
	return c.transferURL + "?" + params.Encode()
}
