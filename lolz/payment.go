package lolz

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"
)

// PaymentType filters the payments listing
type PaymentType string

// Payment operation types
const (
	PaymentIncome            PaymentType = "income"
	PaymentCost              PaymentType = "cost"
	PaymentRefilledBalance   PaymentType = "refilled_balance"
	PaymentWithdrawalBalance PaymentType = "withdrawal_balance"
	PaymentPaidItem          PaymentType = "paid_item"
	PaymentSoldItem          PaymentType = "sold_item"
	PaymentMoneyTransfer     PaymentType = "money_transfer"
	PaymentReceivingMoney    PaymentType = "receiving_money"
	PaymentInternalPurchase  PaymentType = "internal_purchase"
	PaymentClaimHold         PaymentType = "claim_hold"
)

// Operation is one balance operation
type Operation struct {
	OperationID              int64         `json:"operation_id"`
	OperationDate            int64         `json:"operation_date"`
	OperationType            PaymentType   `json:"operation_type"`
	OutgoingSum              float64       `json:"outgoing_sum"`
	IncomingSum              float64       `json:"incoming_sum"`
	ItemID                   int64         `json:"item_id"`
	Wallet                   string        `json:"wallet"`
	IsFinished               FlexInt       `json:"is_finished"`
	IsHold                   FlexInt       `json:"is_hold"`
	PaymentSystem            string        `json:"payment_system"`
	Data                     OperationData `json:"data"`
	HoldEndDate              int64         `json:"hold_end_date"`
	API                      FlexInt       `json:"api"`
	OriginalWallet           string        `json:"originalWallet"`
	PaymentStatus            string        `json:"payment_status"`
	SupportLink              string        `json:"supportLink"`
	CanCancelBalanceTransfer bool          `json:"canCancelBalanceTransfer"`
	CanCancelBalancePayout   bool          `json:"canCancelBalancePayout"`
	CanFinishBalanceTransfer bool          `json:"canFinishBalanceTransfer"`
	CanFinishBalancePayout   bool          `json:"canFinishBalancePayout"`
	Label                    Label         `json:"label"`
	User                     OperationUser `json:"user"`
}

// Date returns the operation time
func (o *Operation) Date() time.Time {
	return unixTime(o.OperationDate)
}

// HoldEnd returns when a held amount is released, or the zero time
func (o *Operation) HoldEnd() time.Time {
	return unixTime(o.HoldEndDate)
}

// Held reports whether the amount is still on hold
func (o *Operation) Held() bool {
	return o.IsHold != 0
}

// Amount returns the signed sum of the operation
func (o *Operation) Amount() float64 {
	return o.IncomingSum - o.OutgoingSum
}

// OperationData carries the counterparty of a transfer. The API sends false
// when there is none, in which case Present is false.
type OperationData struct {
	Present             bool       `json:"-"`
	UserID              int64      `json:"user_id"`
	Username            string     `json:"username"`
	IncludeFee          bool       `json:"includeFee"`
	FinishAmount        float64    `json:"finishAmount"`
	Status              string     `json:"status"`
	Comment             string     `json:"comment"`
	IsBanned            FlexInt    `json:"is_banned"`
	DisplayStyleGroupID int        `json:"display_style_group_id"`
	UniqUsernameCSS     string     `json:"uniq_username_css"`
	AvatarDate          int64      `json:"avatar_date"`
	UserGroupID         int        `json:"user_group_id"`
	SecondaryGroupIDs   FlexString `json:"secondary_group_ids"`
	BoolStatus          bool       `json:"bool_status"`
}

// UnmarshalJSON implements json.Unmarshaler
func (d *OperationData) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		*d = OperationData{}
		return nil
	}

	type plain OperationData
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*d = OperationData(decoded)
	d.Present = true
	return nil
}

// Label is the display label of an operation
type Label struct {
	Title string `json:"title"`
}

// OperationUser is the balance snapshot attached to an operation
type OperationUser struct {
	UserID              int64   `json:"user_id"`
	UserBalance         float64 `json:"user_balance"`
	UserHold            float64 `json:"user_hold"`
	UserBalanceWithHold float64 `json:"user_balance_with_hold"`
}

// PaymentList is a page of operations, newest first
type PaymentList struct {
	Payments    []Operation
	Page        int
	HasNextPage bool
	Raw         json.RawMessage
}

type paymentsResponse struct {
	Payments    json.RawMessage `json:"payments"`
	Page        int             `json:"page"`
	HasNextPage bool            `json:"hasNextPage"`
}

// decodePayments accepts payments keyed by operation id, or an empty list
// when the account has no history.
func decodePayments(body []byte) (*PaymentList, error) {
	var resp paymentsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	list := &PaymentList{
		Page:        resp.Page,
		HasNextPage: resp.HasNextPage,
		Raw:         json.RawMessage(body),
	}

	raw := bytes.TrimSpace(resp.Payments)
	switch {
	case len(raw) == 0:
	case raw[0] == '{':
		var keyed map[string]Operation
		if err := json.Unmarshal(raw, &keyed); err != nil {
			return nil, err
		}
		list.Payments = make([]Operation, 0, len(keyed))
		for _, op := range keyed {
			list.Payments = append(list.Payments, op)
		}
	case raw[0] == '[':
		if err := json.Unmarshal(raw, &list.Payments); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(list.Payments, func(i, j int) bool {
		a, b := list.Payments[i], list.Payments[j]
		if a.OperationDate != b.OperationDate {
			return a.OperationDate > b.OperationDate
		}
		return a.OperationID > b.OperationID
	})

	return list, nil
}
