// Package flight deduplicates concurrent executions of the same key: while
// one is in flight, later callers attach to it instead of starting a
// duplicate, and all observe the same outcome.
package flight

import "golang.org/x/sync/singleflight"

// Group coalesces in-flight work per key. The zero value is ready to use.
type Group[T any] struct {
	sf singleflight.Group
}

// Do runs fn for key unless an identical call is already in flight, in
// which case it waits for that call's result. The in-flight entry is removed
// unconditionally when fn returns. shared reports whether the result was
// produced by another caller's execution.
func (g *Group[T]) Do(key string, fn func() T) (result T, shared bool) {
	v, _, shared := g.sf.Do(key, func() (any, error) {
		return fn(), nil
	})
	return v.(T), shared
}
