package filter

import (
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/lolzmarket/lolz"
)

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
	compiler   *exprCompiler
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = newLRUCache[CompiledFilter](size)
		}
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) CachingCompiler {
	c := &exprCompiler{
		helperFuncs: createHelperFunctions(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.envPool.New = func() any {
		return make(map[string]any, len(c.helperFuncs)+32)
	}

	return c
}

// exprCompiler implements Compiler for expr-based filters
type exprCompiler struct {
	helperFuncs map[string]any
	cache       *lruCache[CompiledFilter]
	envPool     sync.Pool
}

// Compile compiles an expression into an executable filter. Expressions are
// type checked against the item environment, so unknown fields fail here.
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
			Position:   -1,
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	program, err := expr.Compile(expression,
		expr.Env(c.environment(lolz.Item{})),
		expr.AsBool(),
	)
	if err != nil {
		return nil, newCompilationError(expression, err)
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
		compiler:   c,
	}

	if c.cache != nil {
		c.cache.Put(expression, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Size()
	}
	return 0
}

// environment builds a fresh environment for item
func (c *exprCompiler) environment(item lolz.Item) map[string]any {
	env := make(map[string]any, len(c.helperFuncs)+32)
	maps.Copy(env, c.helperFuncs)
	addItemEnvironment(env, item)
	return env
}

// Evaluate reports whether item matches. Evaluation errors count as no match.
func (f *exprFilter) Evaluate(item lolz.Item) bool {
	ok, err := f.Match(item)
	return err == nil && ok
}

// Match evaluates the filter against item
func (f *exprFilter) Match(item lolz.Item) (bool, error) {
	env := f.compiler.envPool.Get().(map[string]any)
	defer func() {
		clear(env)
		f.compiler.envPool.Put(env)
	}()

	maps.Copy(env, f.compiler.helperFuncs)
	addItemEnvironment(env, item)

	result, err := expr.Run(f.program, env)
	if err != nil {
		return false, &EvaluationError{Expression: f.expression, ItemID: item.ItemID, Err: err}
	}

	// AsBool at compile time guarantees the type
	return result.(bool), nil
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// createHelperFunctions creates the item independent helper functions
func createHelperFunctions() map[string]any {
	return map[string]any{
		// Date helpers
		"daysSince": func(t time.Time) int {
			return int(time.Since(t).Hours() / 24)
		},
		"hoursSince": func(t time.Time) int {
			return int(time.Since(t).Hours())
		},
		"daysAgo": func(days int) time.Time {
			return time.Now().AddDate(0, 0, -days)
		},
		"hoursAgo": func(hours int) time.Time {
			return time.Now().Add(-time.Duration(hours) * time.Hour)
		},
		"parseDate": func(dateStr string) time.Time {
			t, _ := time.Parse("2006-01-02", dateStr)
			return t
		},
		// Case-insensitive string helpers. contains, startsWith and endsWith
		// are expr operators and stay case-sensitive.
		"icontains": func(str, substr string) bool {
			return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
		},
		"hasPrefix": func(str, prefix string) bool {
			return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
		},
		"hasSuffix": func(str, suffix string) bool {
			return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
		},
		"lower": strings.ToLower,
		"upper": strings.ToUpper,
		"now":   time.Now,
	}
}

// addItemEnvironment exposes item fields and item bound helpers
func addItemEnvironment(env map[string]any, item lolz.Item) {
	tags := item.TagTitles()
	category := item.Category()

	var refreshed time.Time
	if item.RefreshedDate > 0 {
		refreshed = time.Unix(item.RefreshedDate, 0)
	}

	env["Item"] = item

	env["ID"] = item.ItemID
	env["Title"] = item.Title
	env["TitleEn"] = item.TitleEn
	env["Description"] = item.Description
	env["Price"] = item.Price
	env["RubPrice"] = item.RubPrice
	env["Currency"] = item.PriceCurrency
	env["CategoryID"] = item.CategoryID
	env["Category"] = category.String()
	env["State"] = item.ItemState
	env["ViewCount"] = item.ViewCount
	env["Origin"] = string(item.ItemOrigin)
	env["Guarantee"] = item.ExtendedGuarantee
	env["EmailType"] = item.EmailType
	env["Domain"] = item.ItemDomain
	env["Published"] = item.Published()
	env["Refreshed"] = refreshed
	env["Reserved"] = item.Reserved()
	env["Sticky"] = item.Sticky()
	env["CanBuy"] = item.CanBuyItem
	env["AllowAskDiscount"] = item.AllowAskDiscount != 0
	env["Tags"] = tags

	env["hasTag"] = createHasTagFunc(tags)
	env["inCategory"] = func(slug string) bool {
		return strings.EqualFold(category.String(), slug)
	}
	env["originIs"] = func(origin string) bool {
		return strings.EqualFold(string(item.ItemOrigin), origin)
	}
}

func createHasTagFunc(tags []string) func(string) bool {
	lowerTags := make([]string, len(tags))
	for i, tag := range tags {
		lowerTags[i] = strings.ToLower(tag)
	}
	return func(tag string) bool {
		return slices.Contains(lowerTags, strings.ToLower(tag))
	}
}
