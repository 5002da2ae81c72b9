// Package lolz provides a client for the lolz.guru (zelenka.guru) market API.
//
// The market sells game, social and messenger accounts. This package covers
// the account, payment, listing, reservation and purchase endpoints and
// decodes their loosely typed JSON into Go structs.
//
// # Architecture
//
//   - Client: the API client with retries, optional rate limiting and OAuth2
//     token handling
//   - Models: User, Item and its category types, Operation
//   - API: interface over Client for testability
//   - Errors: APIError and sentinel errors
//
// # Usage
//
// Create a client with an API token. NewClient loads the profile of the
// token's owner and fails when the token is rejected:
//
//	logger := zerolog.New(os.Stdout)
//	client, err := lolz.NewClient(ctx, "your-token", logger,
//		lolz.WithRateLimit(20, 1),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	items, err := client.List(ctx, lolz.ListParams{
//		Category: lolz.CategoryTelegram,
//		PriceMax: 100,
//	})
//
// Category specific fields are available through ItemAs:
//
//	tg, err := lolz.ItemAs[lolz.TelegramItem](ctx, client, 123456)
//
// # Error Handling
//
// Every response is inspected for the API's error shapes, including HTML
// error pages. Failures surface as *APIError:
//
//	if lolz.IsUnauthorized(err) {
//		// token expired or revoked
//	}
package lolz
