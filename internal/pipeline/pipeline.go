// Package pipeline provides composable, read-only query stages over slices.
// Each stage returns a new slice; inputs are never modified.
package pipeline

import (
	"slices"

	"github.com/vidshare/backend/internal/models"
)

// Stage transforms one intermediate result into the next.
type Stage[T any] func([]T) []T

// Run copies items and feeds them through stages in order.
func Run[T any](items []T, stages ...Stage[T]) []T {
	out := slices.Clone(items)
	for _, stage := range stages {
		out = stage(out)
	}
	return out
}

// Match keeps the items for which keep returns true.
func Match[T any](keep func(T) bool) Stage[T] {
	return func(items []T) []T {
		out := make([]T, 0, len(items))
		for _, item := range items {
			if keep(item) {
				out = append(out, item)
			}
		}
		return out
	}
}

// Sort orders items with cmp, keeping the relative order of equal items.
func Sort[T any](cmp func(a, b T) int) Stage[T] {
	return func(items []T) []T {
		out := slices.Clone(items)
		slices.SortStableFunc(out, cmp)
		return out
	}
}

// Window cuts the page described by req out of items.
func Window[T any](req models.PageRequest) Stage[T] {
	return func(items []T) []T {
		start := req.Offset()
		if start < 0 || start >= len(items) || req.PageSize <= 0 {
			return []T{}
		}
		end := start + min(req.PageSize, len(items)-start)
		return slices.Clone(items[start:end])
	}
}

// Paginate windows items and wraps them in a page envelope.
func Paginate[T any](items []T, req models.PageRequest) models.Page[T] {
	return models.NewPage(Window[T](req)(items), req, len(items))
}

// Map reshapes every item.
func Map[T, U any](items []T, fn func(T) U) []U {
	out := make([]U, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}

// Reverse flips a comparison, turning ascending order into descending.
func Reverse[T any](cmp func(a, b T) int) func(a, b T) int {
	return func(a, b T) int { return cmp(b, a) }
}
