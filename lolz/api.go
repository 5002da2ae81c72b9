package lolz

import "context"

// API describes the market operations of Client
type API interface {
	Profile() Profile
	Me(ctx context.Context) (*User, error)

	List(ctx context.Context, params ListParams) (*ItemList, error)
	Viewed(ctx context.Context) (*ItemList, error)
	Fave(ctx context.Context) (*ItemList, error)
	Item(ctx context.Context, id int64) (*Item, error)
	Items(ctx context.Context, ids []int64) ([]*Item, error)

	Reserve(ctx context.Context, id int64, price float64) (*ActionResult, error)
	CancelReserve(ctx context.Context, id int64) (*ActionResult, error)
	CheckAccount(ctx context.Context, id int64) (*ActionResult, error)
	ConfirmBuy(ctx context.Context, id int64) (*ActionResult, error)
	FastBuy(ctx context.Context, id int64) (*ActionResult, error)
	EmailCode(ctx context.Context, id int64, email string) (*EmailCode, error)
	RefuseGuarantee(ctx context.Context, id int64) (*ActionResult, error)
	ChangePassword(ctx context.Context, id int64) (*ActionResult, error)
	Delete(ctx context.Context, id int64, reason string) (*ActionResult, error)
	Bump(ctx context.Context, id int64) (*ActionResult, error)
	BumpAll(ctx context.Context, ids []int64) BumpResult

	Payments(ctx context.Context, params PaymentsParams) (*PaymentList, error)
	Transfer(ctx context.Context, params TransferParams) (*ActionResult, error)
	TransferLink(amount float64, comment string, hold *bool) string

	CategoryParams(ctx context.Context, category Category) (*CategoryParams, error)
	CategoryGames(ctx context.Context, category Category) (*CategoryGames, error)
	AddItem(ctx context.Context, params AddItemParams) (*ActionResult, error)
	GoodsCheck(ctx context.Context, id int64, params GoodsCheckParams) (*ActionResult, error)
}

var _ API = (*Client)(nil)
