package filter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/lolzmarket/lolz"
)

func testItem() lolz.Item {
	return lolz.Item{
		ItemID:        1,
		Title:         "Telegram Premium account",
		Price:         150,
		CategoryID:    lolz.CategoryTelegram.ID(),
		ItemOrigin:    lolz.OriginAutoreg,
		ViewCount:     12,
		PublishedDate: time.Now().Add(-50 * time.Hour).Unix(),
		CanBuyItem:    true,
		Tags:          lolz.Tags{{TagID: 1, Title: "Premium"}},
	}
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name        string
		expression  string
		wantErr     bool
		errContains string
	}{
		{
			name:       "tag helper",
			expression: `hasTag("premium")`,
		},
		{
			name:        "empty expression",
			expression:  "   ",
			wantErr:     true,
			errContains: "empty expression",
		},
		{
			name:       "invalid syntax",
			expression: `hasTag("unclosed`,
			wantErr:    true,
		},
		{
			name:       "unknown field",
			expression: `Year > 2020`,
			wantErr:    true,
		},
		{
			name:       "non boolean result",
			expression: `Price * 2`,
			wantErr:    true,
		},
		{
			name:       "complex expression",
			expression: `inCategory("telegram") and Price <= 200 and hoursSince(Published) > 24 and not Reserved`,
		},
	}

	compiler := NewExprCompiler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := compiler.Compile(tt.expression)
			if tt.wantErr {
				require.Error(t, err)
				var compErr *CompilationError
				assert.ErrorAs(t, err, &compErr)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expression, filter.Expression())
		})
	}
}

func TestCompilationErrorPosition(t *testing.T) {
	_, err := NewExprCompiler().Compile(`Price > `)
	require.Error(t, err)

	var compErr *CompilationError
	require.ErrorAs(t, err, &compErr)
	assert.GreaterOrEqual(t, compErr.Position, 0)
	assert.NotNil(t, errors.Unwrap(compErr))
}

func TestFilterEvaluation(t *testing.T) {
	item := testItem()

	tests := []struct {
		expression string
		want       bool
	}{
		{`Price < 200`, true},
		{`Price < 100`, false},
		{`hasTag("PREMIUM")`, true},
		{`hasTag("steam")`, false},
		{`Category == "telegram"`, true},
		{`CategoryID == 24`, true},
		{`originIs("autoreg")`, true},
		{`Origin == "brute"`, false},
		{`icontains(Title, "premium")`, true},
		{`hasPrefix(Title, "telegram")`, true},
		{`hasSuffix(Title, "ACCOUNT")`, true},
		{`Title contains "Premium"`, true},
		{`Title contains "premium"`, false},
		{`Title startsWith "Telegram"`, true},
		{`daysSince(Published) >= 2`, true},
		{`Published > daysAgo(1)`, false},
		{`CanBuy and ViewCount > 10`, true},
		{`"Premium" in Tags`, true},
		{`Item.ItemID == 1`, true},
	}

	compiler := NewExprCompiler()
	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			filter, err := compiler.Compile(tt.expression)
			require.NoError(t, err)
			assert.Equal(t, tt.want, filter.Evaluate(item))
		})
	}
}

func TestCompilerCache(t *testing.T) {
	compiler := NewExprCompiler(WithCache(2))

	first, err := compiler.Compile(`Price > 1`)
	require.NoError(t, err)
	again, err := compiler.Compile(`Price > 1`)
	require.NoError(t, err)
	assert.Same(t, first, again)

	_, err = compiler.Compile(`Price > 2`)
	require.NoError(t, err)
	_, err = compiler.Compile(`Price > 3`)
	require.NoError(t, err)
	assert.Equal(t, 2, compiler.Size())

	compiler.Clear()
	assert.Equal(t, 0, compiler.Size())
}

func TestLRUCacheEviction(t *testing.T) {
	cache := newLRUCache[int](2)
	cache.Put("a", 1)
	cache.Put("b", 2)

	_, ok := cache.Get("a")
	require.True(t, ok)

	cache.Put("c", 3)
	_, ok = cache.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")

	value, ok := cache.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, value)
}

func generateItems(count int) []lolz.Item {
	items := make([]lolz.Item, count)
	for i := range items {
		items[i] = lolz.Item{
			ItemID:     int64(i),
			Title:      fmt.Sprintf("Account %d", i),
			Price:      float64(i % 500),
			CategoryID: lolz.CategorySteam.ID(),
		}
	}
	return items
}

func TestConcurrentEvaluator(t *testing.T) {
	evaluator := NewConcurrentEvaluator(WithWorkers(4), WithBatchSize(50))
	t.Cleanup(func() { _ = evaluator.Stop(context.Background()) })

	filter, err := NewExprCompiler().Compile(`Price < 100`)
	require.NoError(t, err)

	items := generateItems(1000)
	matches, err := evaluator.Evaluate(context.Background(), filter, items)
	require.NoError(t, err)
	assert.Len(t, matches, 200)

	for i := 1; i < len(matches); i++ {
		assert.Less(t, matches[i-1].ItemID, matches[i].ItemID, "input order must be kept")
	}

	small, err := evaluator.Evaluate(context.Background(), filter, items[:10])
	require.NoError(t, err)
	assert.Len(t, small, 10)

	empty, err := evaluator.Evaluate(context.Background(), filter, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestConcurrentEvaluatorCancelled(t *testing.T) {
	evaluator := NewConcurrentEvaluator(WithWorkers(2), WithBatchSize(10))
	t.Cleanup(func() { _ = evaluator.Stop(context.Background()) })

	filter, err := NewExprCompiler().Compile(`Price >= 0`)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = evaluator.Evaluate(ctx, filter, generateItems(100))
	require.ErrorIs(t, err, context.Canceled)
}

func TestManager(t *testing.T) {
	manager := NewManager(
		WithCompiler(NewExprCompiler()),
		WithEvaluator(NewConcurrentEvaluator(WithWorkers(2))),
	)
	t.Cleanup(func() { _ = manager.Close(context.Background()) })

	require.NoError(t, manager.RegisterFilters(map[string]string{
		"cheap":  `Price < 10`,
		"pricey": `Price >= 490`,
	}))
	assert.Equal(t, []string{"cheap", "pricey"}, manager.ListFilters())

	err := manager.RegisterFilters(map[string]string{"broken": `Price >`})
	require.Error(t, err)
	_, exists := manager.GetFilter("broken")
	assert.False(t, exists)

	items := generateItems(500)

	all, err := manager.EvaluateAll(context.Background(), items)
	require.NoError(t, err)
	assert.Len(t, all["cheap"], 10)
	assert.Len(t, all["pricey"], 10)

	selected, err := manager.EvaluateSelected(context.Background(), []string{"pricey"}, items)
	require.NoError(t, err)
	assert.Len(t, selected, 1)
	assert.Len(t, selected["pricey"], 10)

	_, err = manager.EvaluateSelected(context.Background(), []string{"missing"}, items)
	require.ErrorIs(t, err, ErrUnknownFilter)

	resolved, err := manager.Resolve("cheap")
	require.NoError(t, err)
	assert.Equal(t, `Price < 10`, resolved.Expression())

	adhoc, err := manager.Resolve(`Price == 42`)
	require.NoError(t, err)
	matches, err := manager.Apply(context.Background(), adhoc, items)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestWorkerPoolStopped(t *testing.T) {
	pool := NewWorkerPool(1)
	require.NoError(t, pool.Stop(context.Background()))
	assert.ErrorIs(t, pool.Submit(context.Background(), func() {}), ErrPoolStopped)
}

func TestWorkerPoolRunsAcceptedWorkAcrossStop(t *testing.T) {
	for range 50 {
		pool := NewWorkerPool(2)

		var accepted, ran atomic.Int32
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 20 {
					if pool.Submit(context.Background(), func() { ran.Add(1) }) == nil {
						accepted.Add(1)
					}
				}
			}()
		}

		require.NoError(t, pool.Stop(context.Background()))
		wg.Wait()

		assert.Equal(t, accepted.Load(), ran.Load())
		assert.ErrorIs(t, pool.Submit(context.Background(), func() {}), ErrPoolStopped)
	}
}
