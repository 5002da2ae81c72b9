package lolz

import (
	"fmt"
	"sort"
	"strings"
)

// Category is a market section, addressed by its URL slug
type Category string

// Market categories
const (
	CategorySteam        Category = "steam"
	CategoryOrigin       Category = "origin"
	CategoryWarface      Category = "warface"
	CategoryUplay        Category = "uplay"
	CategorySocialClub   Category = "socialclub"
	CategoryFortnite     Category = "fortnite"
	CategoryInstagram    Category = "instagram"
	CategoryBattleNet    Category = "battlenet"
	CategoryEpicGames    Category = "epicgames"
	CategoryRiot         Category = "riot"
	CategoryWorldOfTanks Category = "world-of-tanks"
	CategorySupercell    Category = "supercell"
	CategoryWotBlitz     Category = "wot-blitz"
	CategoryMihoyo       Category = "mihoyo"
	CategoryTarkov       Category = "escape-from-tarkov"
	CategoryVPN          Category = "vpn"
	CategoryTikTok       Category = "tiktok"
	CategoryDiscord      Category = "discord"
	CategoryCinema       Category = "cinema"
	CategoryTelegram     Category = "telegram"
	CategoryYouTube      Category = "youtube"
	CategorySpotify      Category = "spotify"
	CategoryWarThunder   Category = "war-thunder"
	CategoryMinecraft    Category = "minecraft"
)

var categoryIDs = map[Category]int{
	CategorySteam:        1,
	CategoryOrigin:       3,
	CategoryWarface:      4,
	CategoryUplay:        5,
	CategorySocialClub:   7,
	CategoryFortnite:     9,
	CategoryInstagram:    10,
	CategoryBattleNet:    11,
	CategoryEpicGames:    12,
	CategoryRiot:         13,
	CategoryWorldOfTanks: 14,
	CategorySupercell:    15,
	CategoryWotBlitz:     16,
	CategoryMihoyo:       17,
	CategoryTarkov:       18,
	CategoryVPN:          19,
	CategoryTikTok:       20,
	CategoryDiscord:      22,
	CategoryCinema:       23,
	CategoryTelegram:     24,
	CategoryYouTube:      25,
	CategorySpotify:      26,
	CategoryWarThunder:   27,
	CategoryMinecraft:    28,
}

// ID returns the numeric category id used by AddItem, or 0 if unknown
func (c Category) ID() int {
	return categoryIDs[c]
}

// String returns the slug
func (c Category) String() string {
	return string(c)
}

// CategoryByID looks up a category by its numeric id
func CategoryByID(id int) (Category, bool) {
	for category, categoryID := range categoryIDs {
		if categoryID == id {
			return category, true
		}
	}
	return "", false
}

// ParseCategory accepts a slug or a numeric id
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := categoryIDs[Category(s)]; ok {
		return Category(s), nil
	}

	var id int
	if _, err := fmt.Sscanf(s, "%d", &id); err == nil {
		if category, ok := CategoryByID(id); ok {
			return category, nil
		}
	}
	return "", fmt.Errorf("unknown category: %q", s)
}

// Categories returns every known category sorted by id
func Categories() []Category {
	categories := make([]Category, 0, len(categoryIDs))
	for category := range categoryIDs {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool {
		return categoryIDs[categories[i]] < categoryIDs[categories[j]]
	})
	return categories
}

// Scope is an OAuth permission scope
type Scope string

// OAuth scopes
const (
	ScopeBasic      Scope = "basic"
	ScopeRead       Scope = "read"
	ScopePost       Scope = "post"
	ScopeConversate Scope = "conversate"
	ScopeMarket     Scope = "market"
)

// ParseScopes converts configuration strings to scopes, skipping blanks
func ParseScopes(values []string) []Scope {
	scopes := make([]Scope, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			scopes = append(scopes, Scope(strings.ToLower(v)))
		}
	}
	return scopes
}

func scopeStrings(scopes []Scope) []string {
	out := make([]string, len(scopes))
	for i, s := range scopes {
		out[i] = string(s)
	}
	return out
}

// Currency is a price currency accepted by the market
type Currency string

// Supported currencies
const (
	CurrencyRUB Currency = "rub"
	CurrencyUAH Currency = "uah"
	CurrencyKZT Currency = "kzt"
	CurrencyBYN Currency = "byn"
	CurrencyUSD Currency = "usd"
	CurrencyEUR Currency = "eur"
	CurrencyGBP Currency = "gbp"
	CurrencyCNY Currency = "cny"
	CurrencyTRY Currency = "try"
)

// ItemOrigin describes how a listed account was obtained
type ItemOrigin string

// Item origins
const (
	OriginBrute    ItemOrigin = "brute"
	OriginPhishing ItemOrigin = "fishing"
	OriginStealer  ItemOrigin = "stealer"
	OriginAutoreg  ItemOrigin = "autoreg"
	OriginPersonal ItemOrigin = "personal"
	OriginResale   ItemOrigin = "resale"
)

// Guarantee is the seller guarantee length code
type Guarantee int

// Guarantee lengths
const (
	GuaranteeHalfDay   Guarantee = -1
	GuaranteeDay       Guarantee = 0
	GuaranteeThreeDays Guarantee = 1
)

// HoldPeriod is the unit for a held balance transfer
type HoldPeriod string

// Hold periods
const (
	HoldHour  HoldPeriod = "hour"
	HoldDay   HoldPeriod = "day"
	HoldWeek  HoldPeriod = "week"
	HoldMonth HoldPeriod = "month"
	HoldYear  HoldPeriod = "year"
)
