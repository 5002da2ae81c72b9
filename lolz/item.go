package lolz

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Item is a market listing. Category specific listings embed it, see
// WarThunderItem and TelegramItem.
type Item struct {
	ItemID                     int64         `json:"item_id"`
	ItemState                  string        `json:"item_state"`
	CategoryID                 int           `json:"category_id"`
	PublishedDate              int64         `json:"published_date"`
	Title                      string        `json:"title"`
	Description                string        `json:"description"`
	Price                      float64       `json:"price"`
	UpdateStatDate             int64         `json:"update_stat_date"`
	RefreshedDate              int64         `json:"refreshed_date"`
	ViewCount                  int           `json:"view_count"`
	IsSticky                   FlexInt       `json:"is_sticky"`
	ItemOrigin                 ItemOrigin    `json:"item_origin"`
	ExtendedGuarantee          int           `json:"extended_guarantee"`
	NSB                        FlexInt       `json:"nsb"`
	AllowAskDiscount           FlexInt       `json:"allow_ask_discount"`
	TitleEn                    string        `json:"title_en"`
	DescriptionEn              string        `json:"description_en"`
	EmailType                  string        `json:"email_type"`
	IsReserved                 FlexInt       `json:"is_reserved"`
	ItemDomain                 string        `json:"item_domain"`
	IsIgnored                  bool          `json:"isIgnored"`
	CanOpenItem                bool          `json:"canOpenItem"`
	CanCloseItem               bool          `json:"canCloseItem"`
	CanEditItem                bool          `json:"canEditItem"`
	CanDeleteItem              bool          `json:"canDeleteItem"`
	CanStickItem               bool          `json:"canStickItem"`
	CanUnstickItem             bool          `json:"canUnstickItem"`
	BumpSettings               *BumpSettings `json:"bumpSettings,omitempty"`
	CanBumpItem                bool          `json:"canBumpItem"`
	CanBuyItem                 bool          `json:"canBuyItem"`
	RubPrice                   float64       `json:"rub_price"`
	PriceCurrency              string        `json:"price_currency"`
	CanValidateAccount         bool          `json:"canValidateAccount"`
	CanResellItemAfterPurchase bool          `json:"canResellItemAfterPurchase"`
	CanViewAccountLink         bool          `json:"canViewAccountLink"`
	AccountLink                string        `json:"accountLink"`
	NoteText                   string        `json:"note_text"`
	Tags                       Tags          `json:"tags"`
	Reserve                    *Reserve      `json:"reserve,omitempty"`
	DescriptionHTML            string        `json:"description_html"`
	DescriptionHTMLEn          string        `json:"description_html_en"`
}

// Published returns the listing time
func (i *Item) Published() time.Time {
	return unixTime(i.PublishedDate)
}

// Category returns the item's category slug, or "" when the id is unknown
func (i *Item) Category() Category {
	category, _ := CategoryByID(i.CategoryID)
	return category
}

// Reserved reports whether someone holds a reservation on the item
func (i *Item) Reserved() bool {
	return i.IsReserved != 0
}

// Sticky reports whether the listing is pinned
func (i *Item) Sticky() bool {
	return i.IsSticky != 0
}

// HasTag checks for a tag by title, ignoring case
func (i *Item) HasTag(title string) bool {
	for _, tag := range i.Tags {
		if strings.EqualFold(tag.Title, title) {
			return true
		}
	}
	return false
}

// TagTitles returns the titles of all tags on the item
func (i *Item) TagTitles() []string {
	titles := make([]string, 0, len(i.Tags))
	for _, tag := range i.Tags {
		if tag.Title != "" {
			titles = append(titles, tag.Title)
		}
	}
	return titles
}

// BumpSettings describes whether the item can be bumped
type BumpSettings struct {
	CanBumpItem         bool       `json:"canBumpItem"`
	CanBumpItemGlobally bool       `json:"canBumpItemGlobally"`
	ErrorPhrase         FlexString `json:"errorPhrase"`
}

// Reserve describes an active reservation
type Reserve struct {
	ReserveUserID int64 `json:"reserve_user_id"`
	ReserveDate   int64 `json:"reserve_date"`
}

// Tag is a user defined label on an item
type Tag struct {
	TagID                int64  `json:"tag_id"`
	Title                string `json:"title"`
	IsDefault            bool   `json:"isDefault"`
	ForOwnedAccountsOnly bool   `json:"forOwnedAccountsOnly"`
	BC                   string `json:"bc"`
}

// Tags decodes the tags field, which is an empty list when there are no tags
// and an object keyed by tag id otherwise.
type Tags []Tag

// UnmarshalJSON implements json.Unmarshaler
func (t *Tags) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = nil
		return nil
	}

	switch data[0] {
	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(data, &entries); err != nil {
			return err
		}
		tags := make(Tags, 0, len(entries))
		for _, entry := range entries {
			tag, err := decodeTag("", entry)
			if err != nil {
				return err
			}
			tags = append(tags, tag)
		}
		*t = tags
	case '{':
		var keyed map[string]json.RawMessage
		if err := json.Unmarshal(data, &keyed); err != nil {
			return err
		}
		tags := make(Tags, 0, len(keyed))
		for key, entry := range keyed {
			tag, err := decodeTag(key, entry)
			if err != nil {
				return err
			}
			tags = append(tags, tag)
		}
		sort.Slice(tags, func(i, j int) bool { return tags[i].TagID < tags[j].TagID })
		*t = tags
	default:
		*t = nil
	}
	return nil
}

func decodeTag(key string, raw json.RawMessage) (Tag, error) {
	var tag Tag
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &tag); err != nil {
			return Tag{}, err
		}
	} else {
		var id FlexInt
		if err := json.Unmarshal(raw, &id); err != nil {
			return Tag{}, err
		}
		tag.TagID = id.Int64()
	}
	if tag.TagID == 0 && key != "" {
		tag.TagID, _ = strconv.ParseInt(key, 10, 64)
	}
	return tag, nil
}

// WTRankInfo is the War Thunder rank badge
type WTRankInfo struct {
	Title string `json:"title"`
	Img   string `json:"img"`
}

// WarThunderItem is a listing from the war-thunder category
type WarThunderItem struct {
	Item
	WTItemID           int64       `json:"wt_item_id"`
	WTID               int64       `json:"wt_id"`
	WTNick             string      `json:"wt_nick"`
	WTRegTimeGaijin    int64       `json:"wt_reg_time_gaijin"`
	WTRegTimeWT        int64       `json:"wt_reg_time_wt"`
	WTLastPlay         int64       `json:"wt_last_play"`
	WTEmailVerified    FlexInt     `json:"wt_email_verified"`
	WTPhoneVerified    FlexInt     `json:"wt_phone_verified"`
	WTPlayed           int         `json:"wt_played"`
	WTWins             int         `json:"wt_wins"`
	WTExp              int64       `json:"wt_exp"`
	WTRank             int         `json:"wt_rank"`
	WTEliteUnits       int         `json:"wt_eliteUnits"`
	WTPremium          FlexInt     `json:"wt_premium"`
	WTGold             int64       `json:"wt_gold"`
	WTSilver           int64       `json:"wt_silver"`
	WTWinCountPercents float64     `json:"wt_win_count_percents"`
	WTRankInfo         *WTRankInfo `json:"wt_rank_info,omitempty"`
}

// LastPlayed returns the last session time
func (w *WarThunderItem) LastPlayed() time.Time {
	return unixTime(w.WTLastPlay)
}

// TelegramGroupCounters counts the chats an account belongs to
type TelegramGroupCounters struct {
	Chats         int `json:"chats"`
	Channels      int `json:"channels"`
	Conversations int `json:"conversations"`
	Admin         int `json:"admin"`
}

// TelegramItem is a listing from the telegram category
type TelegramItem struct {
	Item
	TelegramItemID         int64                  `json:"telegram_item_id"`
	TelegramCountry        string                 `json:"telegram_country"`
	TelegramLastSeen       int64                  `json:"telegram_last_seen"`
	TelegramScam           FlexInt                `json:"telegram_scam"`
	TelegramVerified       FlexString             `json:"telegram_verified"`
	TelegramPremium        FlexInt                `json:"telegram_premium"`
	TelegramPassword       FlexInt                `json:"telegram_password"`
	TelegramPremiumExpires int64                  `json:"telegram_premium_expires"`
	TelegramSpamBlock      FlexInt                `json:"telegram_spam_block"`
	TelegramGroupCounters  *TelegramGroupCounters `json:"telegram_group_counters,omitempty"`
	TelegramAdminGroups    []json.RawMessage      `json:"telegram_admin_groups"`
}

// Premium reports whether the account has Telegram Premium
func (t *TelegramItem) Premium() bool {
	return t.TelegramPremium != 0
}

// itemEnvelope matches single item responses, which wrap the item in an
// "item" key on current API versions.
type itemEnvelope struct {
	Item json.RawMessage `json:"item"`
}

// decodeItem decodes a single item response into out, with or without the
// "item" wrapper.
func decodeItem(body []byte, out any) error {
	var envelope itemEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil {
		if raw := bytes.TrimSpace(envelope.Item); len(raw) > 0 && raw[0] == '{' {
			body = raw
		}
	}
	return json.Unmarshal(body, out)
}

// ItemList is a page of listings
type ItemList struct {
	Items           []Item          `json:"items"`
	TotalItems      int             `json:"totalItems"`
	TotalItemsPrice float64         `json:"totalItemsPrice"`
	PerPage         int             `json:"perPage"`
	Page            int             `json:"page"`
	SearchURL       string          `json:"searchUrl"`
	Raw             json.RawMessage `json:"-"`
}

// ActionResult is returned by item actions such as reserve, buy or bump
type ActionResult struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Item    *Item           `json:"item,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// OK reports whether the API acknowledged the action
func (r *ActionResult) OK() bool {
	return r.Status == "" || strings.EqualFold(r.Status, "ok")
}

// EmailCode is a confirmation code read from the market mailbox
type EmailCode struct {
	Item     *Item         `json:"item,omitempty"`
	CodeData EmailCodeData `json:"codeData"`
}

// EmailCodeData holds the received code
type EmailCodeData struct {
	Code      string `json:"code"`
	Date      int64  `json:"date"`
	TextPlain string `json:"textPlain"`
}

// Received returns when the code arrived, or the zero time
func (d EmailCodeData) Received() time.Time {
	return unixTime(d.Date)
}

// CategoryParams lists the search parameters a category supports
type CategoryParams struct {
	Category   json.RawMessage `json:"category,omitempty"`
	Params     []CategoryParam `json:"params"`
	BaseParams []CategoryParam `json:"base_params"`
	Raw        json.RawMessage `json:"-"`
}

// CategoryParam is one search parameter
type CategoryParam struct {
	Name        string          `json:"name"`
	Input       string          `json:"input"`
	Description string          `json:"description"`
	Values      json.RawMessage `json:"values,omitempty"`
}

// CategoryGames lists the games known in a category
type CategoryGames struct {
	Games []Game          `json:"games"`
	Raw   json.RawMessage `json:"-"`
}

// Game is an entry of CategoryGames
type Game struct {
	AppID    FlexString `json:"app_id"`
	Title    string     `json:"title"`
	Abbr     string     `json:"abbr"`
	Category string     `json:"category"`
	Img      string     `json:"img"`
	URL      string     `json:"url"`
}
