package stream

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCell_EmptyDrainDeclines(t *testing.T) {
	c := NewCell()

	for i := 0; i < 3; i++ {
		got, ok := c.DrainAndClear()
		assert.False(t, ok)
		assert.Nil(t, got)
	}
	assert.Equal(t, StateEmpty, c.State())
	assert.False(t, c.IsSet())
}

func TestCell_TrySet(t *testing.T) {
	c := NewCell()

	require.True(t, c.TrySet("a", "b"))
	assert.False(t, c.TrySet("c"))
	assert.Equal(t, []string{"a", "b"}, c.Snapshot())
	assert.Equal(t, StateHolding, c.State())
}

func TestCell_AppendOrInit(t *testing.T) {
	c := NewCell()

	assert.True(t, c.AppendOrInit("first"))
	assert.False(t, c.AppendOrInit("second"))
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"first", "second"}, c.Snapshot())
}

func TestCell_DrainBetweenTicksKeepsCellSet(t *testing.T) {
	c := NewCell()
	c.AppendOrInit("tick-0")

	got, ok := c.DrainAndClear()
	require.True(t, ok)
	assert.Equal(t, []string{"tick-0"}, got)
	assert.True(t, c.IsSet())
	assert.Equal(t, 0, c.Len())

	// 清空后再次追加走 append 路径，而不是重新初始化
	assert.False(t, c.AppendOrInit("tick-1"))

	got, ok = c.DrainAndClear()
	require.True(t, ok)
	assert.Equal(t, []string{"tick-1"}, got)

	_, ok = c.DrainAndClear()
	assert.False(t, ok)
}

func TestCell_SnapshotIsCopy(t *testing.T) {
	c := NewCell()
	c.AppendOrInit("x")
	snap := c.Snapshot()
	snap[0] = "y"

	assert.Equal(t, []string{"x"}, c.Snapshot())
}

func TestCell_ConcurrentAppendAndDrain(t *testing.T) {
	c := NewCell()
	const n = 500

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			c.AppendOrInit(fmt.Sprintf("e%d", i))
		}
	}()

	var collected []string
	for len(collected) < n {
		if got, ok := c.DrainAndClear(); ok {
			collected = append(collected, got...)
		}
	}
	wg.Wait()

	require.Len(t, collected, n)
	for i, e := range collected {
		assert.Equal(t, fmt.Sprintf("e%d", i), e)
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "empty", StateEmpty.String())
	assert.Equal(t, "holding", StateHolding.String())
	assert.Equal(t, "unknown", State(9).String())
}

// After N appends with no drain the batch holds N entries in order; drains return exactly
// what was appended since the previous drain.
func TestProperty_Cell_MatchesModel(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		c := NewCell()
		var pending []string
		set := false
		seq := 0

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(rt, fmt.Sprintf("append_%d", i)) {
				entry := fmt.Sprintf("entry-%d", seq)
				seq++
				initialized := c.AppendOrInit(entry)
				if initialized == set {
					rt.Fatalf("initialized=%v but cell set=%v", initialized, set)
				}
				set = true
				pending = append(pending, entry)
				continue
			}

			got, ok := c.DrainAndClear()
			if ok != (len(pending) > 0) {
				rt.Fatalf("drain ok=%v with %d pending", ok, len(pending))
			}
			if len(got) != len(pending) {
				rt.Fatalf("drained %d entries, want %d", len(got), len(pending))
			}
			for j := range got {
				if got[j] != pending[j] {
					rt.Fatalf("entry %d = %q, want %q", j, got[j], pending[j])
				}
			}
			pending = nil
			if c.IsSet() != set {
				rt.Fatalf("drain changed set state")
			}
		}
		if c.Len() != len(pending) {
			rt.Fatalf("len=%d want %d", c.Len(), len(pending))
		}
	})
}
