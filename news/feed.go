package news

import "strings"

// Feed is an immutable, ordered list of news items.
type Feed struct {
	items []Item
}

// NewFeed copies items into a new Feed.
func NewFeed(items []Item) *Feed {
	cp := make([]Item, len(items))
	copy(cp, items)
	return &Feed{items: cp}
}

// DefaultFeed wraps the built-in fixture.
func DefaultFeed() *Feed {
	return &Feed{items: Fixture()}
}

// Len returns the number of items in the feed.
func (f *Feed) Len() int {
	return len(f.items)
}

// Items returns the formatted lines for items[start:end].
// Indices are clamped to [0, Len()]; an empty range yields nil.
// A negative index counts as 0. It never wraps from the end, so
// Items(-1, n) is the same as Items(0, n).
func (f *Feed) Items(start, end int) []string {
	start, end = clamp(start, len(f.items)), clamp(end, len(f.items))
	if start >= end {
		return nil
	}
	lines := make([]string, 0, end-start)
	for _, item := range f.items[start:end] {
		lines = append(lines, Format(item))
	}
	return lines
}

// Slice formats items[start:end] joined by newlines.
// Bounds are clamped the same way as Items; negative indices do not wrap.
func (f *Feed) Slice(start, end int) string {
	return strings.Join(f.Items(start, end), "\n")
}

// Slice formats the built-in fixture over [start, end).
// Slice(-1, 5) returns the first five items, not the last one.
func Slice(start, end int) string {
	return DefaultFeed().Slice(start, end)
}

func clamp(i, n int) int {
	switch {
	case i < 0:
		return 0
	case i > n:
		return n
	default:
		return i
	}
}
