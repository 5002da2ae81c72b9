package filter

import (
	"context"
	"testing"
)

func BenchmarkCompile(b *testing.B) {
	expressions := []struct {
		name string
		expr string
	}{
		{"simple", `hasTag("premium")`},
		{"complex", `inCategory("steam") and Price < 100 and daysSince(Published) < 7`},
	}

	for _, tc := range expressions {
		b.Run(tc.name, func(b *testing.B) {
			compiler := NewExprCompiler()
			for b.Loop() {
				compiler.Clear()
				if _, err := compiler.Compile(tc.expr); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkEvaluate(b *testing.B) {
	filter, err := NewExprCompiler().Compile(`Price < 100 and icontains(Title, "1")`)
	if err != nil {
		b.Fatal(err)
	}
	items := generateItems(5000)

	b.Run("sequential", func(b *testing.B) {
		for b.Loop() {
			evaluateSequential(filter, items)
		}
	})

	b.Run("concurrent", func(b *testing.B) {
		evaluator := NewConcurrentEvaluator()
		defer evaluator.Stop(context.Background())

		for b.Loop() {
			if _, err := evaluator.Evaluate(context.Background(), filter, items); err != nil {
				b.Fatal(err)
			}
		}
	})
}
