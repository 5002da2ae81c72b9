package lolz

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/go-querystring/query"
)

// ListParams filters market listings. Filters are only sent when Category is
// set; the global feed takes no parameters.
type ListParams struct {
	Category         Category     `url:"-"`
	Title            string       `url:"title,omitempty"`
	PriceMin         float64      `url:"pmin,omitempty"`
	PriceMax         float64      `url:"pmax,omitempty"`
	Page             int          `url:"page,omitempty"`
	Origin           []ItemOrigin `url:"origin[],omitempty"`
	NotOrigin        []ItemOrigin `url:"not_origin[],omitempty"`
	OrderBy          string       `url:"order_by,omitempty"`
	ParseStickyItems bool         `url:"parse_sticky_items,omitempty,int"`
	Currency         Currency     `url:"currency,omitempty"`
	// Extra carries category specific parameters, see CategoryParams
	Extra url.Values `url:"-"`
}

// PaymentsParams filters the payment history
type PaymentsParams struct {
	Type      PaymentType `url:"type,omitempty"`
	PriceMin  float64     `url:"pmin,omitempty"`
	PriceMax  float64     `url:"pmax,omitempty"`
	Page      int         `url:"page,omitempty"`
	Receiver  string      `url:"receiver,omitempty"`
	Sender    string      `url:"sender,omitempty"`
	StartDate time.Time   `url:"startDate,omitempty"`
	EndDate   time.Time   `url:"endDate,omitempty"`
	Wallet    string      `url:"wallet,omitempty"`
	Comment   string      `url:"comment,omitempty"`
	IsHold    *bool       `url:"is_hold,omitempty,int"`
}

// TransferParams describes a balance transfer. Either ReceiverID or
// ReceiverUsername identifies the recipient.
type TransferParams struct {
	ReceiverID       int64      `url:"user_id,omitempty"`
	ReceiverUsername string     `url:"username,omitempty"`
	Amount           float64    `url:"amount"`
	SecretAnswer     string     `url:"secret_answer"`
	Currency         Currency   `url:"currency"`
	Comment          string     `url:"comment,omitempty"`
	TransferHold     bool       `url:"transfer_hold,omitempty,int"`
	HoldLength       int        `url:"hold_length_value,omitempty"`
	HoldPeriod       HoldPeriod `url:"hold_length_option,omitempty"`
}

func (p *TransferParams) validate() error {
	if p.ReceiverID <= 0 && p.ReceiverUsername == "" {
		return fmt.Errorf("%w: transfer needs a receiver id or username", ErrInvalidConfig)
	}
	if p.Amount <= 0 {
		return fmt.Errorf("%w: transfer amount must be positive", ErrInvalidConfig)
	}
	if p.SecretAnswer == "" {
		return fmt.Errorf("%w: transfer needs the secret answer", ErrInvalidConfig)
	}
	if p.TransferHold && (p.HoldLength <= 0 || p.HoldPeriod == "") {
		return fmt.Errorf("%w: held transfer needs a hold length and period", ErrInvalidConfig)
	}
	if p.Currency == "" {
		p.Currency = CurrencyRUB
	}
	return nil
}

// AddItemParams describes a new listing
type AddItemParams struct {
	Title             string     `url:"title"`
	TitleEn           string     `url:"title_en,omitempty"`
	Price             float64    `url:"price"`
	CategoryID        int        `url:"category_id"`
	Currency          Currency   `url:"currency"`
	ItemOrigin        ItemOrigin `url:"item_origin"`
	ExtendedGuarantee Guarantee  `url:"extended_guarantee"`
	Description       string     `url:"description,omitempty"`
	Information       string     `url:"information,omitempty"`
	HasEmailLoginData bool       `url:"has_email_login_data,omitempty,int"`
	EmailLoginData    string     `url:"email_login_data,omitempty"`
	EmailType         string     `url:"email_type,omitempty"`
	AllowAskDiscount  bool       `url:"allow_ask_discount,omitempty,int"`
	ProxyID           int64      `url:"proxy_id,omitempty"`
}

func (p *AddItemParams) validate() error {
	if p.Title == "" {
		return fmt.Errorf("%w: item title is required", ErrInvalidConfig)
	}
	if p.Price <= 0 {
		return fmt.Errorf("%w: item price must be positive", ErrInvalidConfig)
	}
	if p.CategoryID <= 0 {
		return fmt.Errorf("%w: item category is required", ErrInvalidConfig)
	}
	if p.ItemOrigin == "" {
		return fmt.Errorf("%w: item origin is required", ErrInvalidConfig)
	}
	if p.Currency == "" {
		p.Currency = CurrencyRUB
	}
	return nil
}

// GoodsCheckParams carries the credentials used to validate a new listing
type GoodsCheckParams struct {
	Login         string `url:"login,omitempty"`
	Password      string `url:"password,omitempty"`
	LoginPassword string `url:"loginpassword,omitempty"`
	CloseItem     bool   `url:"close_item,omitempty,int"`
}

// encodeParams turns a params struct into url.Values
func encodeParams(params any) (url.Values, error) {
	values, err := query.Values(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode parameters: %w", err)
	}
	return values, nil
}

func mergeValues(dst, src url.Values) url.Values {
	if dst == nil {
		dst = url.Values{}
	}
	for key, vals := range src {
		dst[key] = append([]string(nil), vals...)
	}
	return dst
}
