package lolz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// List returns the latest listings. Without a category the global feed is
// returned and all filters are ignored.
func (c *Client) List(ctx context.Context, params ListParams) (*ItemList, error) {
	if params.Category == "" {
		return c.itemList(ctx, "market", nil)
	}

	values, err := encodeParams(params)
	if err != nil {
		return nil, err
	}
	values = mergeValues(values, params.Extra)

	return c.itemList(ctx, "market/"+url.PathEscape(params.Category.String()), values)
}

// Viewed returns the items the user looked at recently
func (c *Client) Viewed(ctx context.Context) (*ItemList, error) {
	return c.itemList(ctx, "market/viewed", nil)
}

// Fave returns the user's favourite items
func (c *Client) Fave(ctx context.Context) (*ItemList, error) {
	return c.itemList(ctx, "market/fave", nil)
}

func (c *Client) itemList(ctx context.Context, endpoint string, params url.Values) (*ItemList, error) {
	body, err := c.doRequest(ctx, http.MethodGet, endpoint, params)
	if err != nil {
		return nil, err
	}

	var list ItemList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnexpectedResponse, endpoint, err)
	}
	list.Raw = json.RawMessage(body)
	return &list, nil
}

// Item returns a single listing
func (c *Client) Item(ctx context.Context, id int64) (*Item, error) {
	return ItemAs[Item](ctx, c, id)
}

// ItemAs fetches a listing and decodes it into a category specific type
// such as TelegramItem or WarThunderItem.
func ItemAs[T any](ctx context.Context, c *Client, id int64) (*T, error) {
	endpoint := itemEndpoint(id, "")
	body, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	out := new(T)
	if err := decodeItem(body, out); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnexpectedResponse, endpoint, err)
	}
	return out, nil
}

// Reserve reserves an item at the given price. A price of zero or less
// reserves at the listed price.
func (c *Client) Reserve(ctx context.Context, id int64, price float64) (*ActionResult, error) {
	if price <= 0 {
		item, err := c.Item(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to look up price of item %d: %w", id, err)
		}
		price = item.Price
	}

	params := url.Values{}
	params.Set("price", formatAmount(price))
	return c.action(ctx, http.MethodPost, itemEndpoint(id, "reserve"), params)
}

// CancelReserve releases a reservation
func (c *Client) CancelReserve(ctx context.Context, id int64) (*ActionResult, error) {
	return c.action(ctx, http.MethodPost, itemEndpoint(id, "cancel-reserve"), nil)
}

// CheckAccount validates a reserved account before purchase
func (c *Client) CheckAccount(ctx context.Context, id int64) (*ActionResult, error) {
	return c.action(ctx, http.MethodPost, itemEndpoint(id, "check-account"), nil)
}

// ConfirmBuy completes the purchase of a checked account
func (c *Client) ConfirmBuy(ctx context.Context, id int64) (*ActionResult, error) {
	return c.action(ctx, http.MethodPost, itemEndpoint(id, "confirm-buy"), nil)
}

// FastBuy checks and buys an account in one call
func (c *Client) FastBuy(ctx context.Context, id int64) (*ActionResult, error) {
	return c.action(ctx, http.MethodPost, itemEndpoint(id, "fast-buy"), nil)
}

// EmailCode reads a confirmation code from the market mailbox of a bought
// account.
func (c *Client) EmailCode(ctx context.Context, id int64, email string) (*EmailCode, error) {
	params := url.Values{}
	params.Set("email", email)

	var code EmailCode
	if err := c.get(ctx, itemEndpoint(id, "email-code"), params, &code); err != nil {
		return nil, err
	}
	return &code, nil
}

// RefuseGuarantee gives up the guarantee on a bought account
func (c *Client) RefuseGuarantee(ctx context.Context, id int64) (*ActionResult, error) {
	return c.action(ctx, http.MethodPost, itemEndpoint(id, "refuse-guarantee"), nil)
}

// ChangePassword rotates the password of a bought account
func (c *Client) ChangePassword(ctx context.Context, id int64) (*ActionResult, error) {
	return c.action(ctx, http.MethodPost, itemEndpoint(id, "change-password"), nil)
}

// Delete removes one of the user's listings
func (c *Client) Delete(ctx context.Context, id int64, reason string) (*ActionResult, error) {
	params := url.Values{}
	params.Set("reason", reason)
	return c.action(ctx, http.MethodDelete, itemEndpoint(id, "delete"), params)
}

// Bump raises a listing to the top of its category
func (c *Client) Bump(ctx context.Context, id int64) (*ActionResult, error) {
	return c.action(ctx, http.MethodPost, itemEndpoint(id, "bump"), nil)
}

// CategoryParams lists the search parameters of a category
func (c *Client) CategoryParams(ctx context.Context, category Category) (*CategoryParams, error) {
	endpoint := "market/" + url.PathEscape(category.String()) + "/params"
	body, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var params CategoryParams
	if err := json.Unmarshal(body, &params); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnexpectedResponse, endpoint, err)
	}
	params.Raw = json.RawMessage(body)
	return &params, nil
}

// CategoryGames lists the games of a category
func (c *Client) CategoryGames(ctx context.Context, category Category) (*CategoryGames, error) {
	endpoint := "market/" + url.PathEscape(category.String()) + "/games"
	body, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var games CategoryGames
	if err := json.Unmarshal(body, &games); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnexpectedResponse, endpoint, err)
	}
	games.Raw = json.RawMessage(body)
	return &games, nil
}

// AddItem creates a new listing. The listing stays hidden until it passes
// GoodsCheck.
func (c *Client) AddItem(ctx context.Context, params AddItemParams) (*ActionResult, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	values, err := encodeParams(params)
	if err != nil {
		return nil, err
	}
	return c.action(ctx, http.MethodPost, "market/item/add", values)
}

// GoodsCheck validates the credentials of a new listing and publishes it
// when they work.
func (c *Client) GoodsCheck(ctx context.Context, id int64, params GoodsCheckParams) (*ActionResult, error) {
	values, err := encodeParams(params)
	if err != nil {
		return nil, err
	}
	return c.action(ctx, http.MethodPost, itemEndpoint(id, "goods/check"), values)
}

func (c *Client) action(ctx context.Context, method, endpoint string, params url.Values) (*ActionResult, error) {
	body, err := c.doRequest(ctx, method, endpoint, params)
	if err != nil {
		return nil, err
	}

	result := &ActionResult{Raw: json.RawMessage(body)}
	if len(body) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		// Some actions answer with a bare array or scalar.
		var ignored any
		if json.Unmarshal(body, &ignored) != nil {
			return nil, fmt.Errorf("%w: %s %s: %v", ErrUnexpectedResponse, method, endpoint, err)
		}
	}
	return result, nil
}

func itemEndpoint(id int64, action string) string {
	endpoint := "market/" + strconv.FormatInt(id, 10)
	if action != "" {
		endpoint += "/" + action
	}
	return endpoint
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
