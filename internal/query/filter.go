// Package query filters cached records with go-bexpr expressions, for
// example `org_id == "acme" and username matches "^adm"`. Selectors are the
// bexpr struct tags of the sdk record types.
package query

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-bexpr"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of compiled expressions kept.
const DefaultCacheSize = 128

// Matcher compiles and caches bexpr evaluators.
type Matcher struct {
	cache *lru.Cache[string, *bexpr.Evaluator]
}

// NewMatcher creates a matcher with an LRU cache of cacheSize evaluators.
func NewMatcher(cacheSize int) (*Matcher, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *bexpr.Evaluator](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create expression cache: %w", err)
	}
	return &Matcher{cache: cache}, nil
}

// Compile validates expr and returns its evaluator, reusing a cached one.
func (m *Matcher) Compile(expr string) (*bexpr.Evaluator, error) {
	expr = strings.TrimSpace(expr)
	if evaluator, ok := m.cache.Get(expr); ok {
		return evaluator, nil
	}
	evaluator, err := bexpr.CreateEvaluator(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", expr, err)
	}
	m.cache.Add(expr, evaluator)
	return evaluator, nil
}

// Len reports how many compiled expressions are cached.
func (m *Matcher) Len() int {
	return m.cache.Len()
}

// Filter returns the items matching expr, preserving order. An empty
// expression matches everything. An item the expression cannot be evaluated
// against (unknown selector, type mismatch) does not match.
func Filter[T any](m *Matcher, items []T, expr string) ([]T, error) {
	if strings.TrimSpace(expr) == "" {
		return items, nil
	}
	evaluator, err := m.Compile(expr)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		ok, err := evaluator.Evaluate(item)
		if err != nil || !ok {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}
