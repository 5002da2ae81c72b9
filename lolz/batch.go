package lolz

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultFetchConcurrency bounds parallel item lookups
	DefaultFetchConcurrency = 5
	// DefaultBumpConcurrency bounds parallel bumps
	DefaultBumpConcurrency = 3
)

// Items fetches several listings concurrently. The result keeps the order of
// ids; the first failure cancels the remaining lookups.
func (c *Client) Items(ctx context.Context, ids []int64) ([]*Item, error) {
	items := make([]*Item, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultFetchConcurrency)

	for i, id := range ids {
		g.Go(func() error {
			item, err := c.Item(ctx, id)
			if err != nil {
				return fmt.Errorf("item %d: %w", id, err)
			}
			// Each goroutine owns its slot.
			items[i] = item
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// BumpAll bumps listings concurrently and reports per item outcomes. A failed
// bump does not stop the others.
func (c *Client) BumpAll(ctx context.Context, ids []int64) BumpResult {
	result := BumpResult{
		Requested: len(ids),
	}

	if len(ids) == 0 {
		return result
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultBumpConcurrency)

	successChan := make(chan int64, len(ids))
	errorChan := make(chan BumpError, len(ids))

	for _, id := range ids {
		g.Go(func() error {
			if _, err := c.Bump(ctx, id); err != nil {
				errorChan <- BumpError{ItemID: id, Err: err}
			} else {
				successChan <- id
			}
			return nil
		})
	}

	_ = g.Wait()
	close(successChan)
	close(errorChan)

	for id := range successChan {
		result.Successful = append(result.Successful, id)
	}
	for err := range errorChan {
		result.Failed = append(result.Failed, err)
	}
	sort.Slice(result.Successful, func(i, j int) bool { return result.Successful[i] < result.Successful[j] })
	sort.Slice(result.Failed, func(i, j int) bool { return result.Failed[i].ItemID < result.Failed[j].ItemID })

	c.logger.Debug().
		Int("requested", result.Requested).
		Int("bumped", len(result.Successful)).
		Int("failed", len(result.Failed)).
		Msg("Bump batch finished")

	return result
}

// BumpResult contains the results of a batch bump
type BumpResult struct {
	Requested  int
	Successful []int64
	Failed     []BumpError
}

// BumpError contains information about a failed bump
type BumpError struct {
	ItemID int64
	Err    error
}

// Error implements the error interface
func (e BumpError) Error() string {
	return fmt.Sprintf("failed to bump item %d: %v", e.ItemID, e.Err)
}

// Unwrap returns the underlying error
func (e BumpError) Unwrap() error {
	return e.Err
}
