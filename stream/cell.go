package stream

import "sync"

// State is the tag of a Cell.
type State uint8

const (
	// StateEmpty means nothing has been published yet.
	StateEmpty State = iota
	// StateHolding means the cell holds a (possibly drained) batch.
	StateHolding
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateHolding:
		return "holding"
	default:
		return "unknown"
	}
}

// Cell is a single-slot accumulator shared by one producer and one drainer.
// Once set it stays set; draining only clears the accumulated entries.
type Cell struct {
	mu      sync.Mutex
	state   State
	entries []string
}

// NewCell returns an empty cell.
func NewCell() *Cell {
	return &Cell{}
}

// TrySet moves an empty cell to Holding(entries). It reports false if the cell was already set.
func (c *Cell) TrySet(entries ...string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateEmpty {
		return false
	}
	c.state = StateHolding
	c.entries = append(make([]string, 0, len(entries)), entries...)
	return true
}

// AppendOrInit initializes an empty cell with [entry] or appends entry to the held batch.
// It reports whether this call initialized the cell.
func (c *Cell) AppendOrInit(entry string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateEmpty {
		c.state = StateHolding
		c.entries = []string{entry}
		return true
	}
	c.entries = append(c.entries, entry)
	return false
}

// DrainAndClear returns the held entries in append order and leaves the cell set but empty.
// It returns nil, false when the cell is unset or holds nothing.
func (c *Cell) DrainAndClear() ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateHolding || len(c.entries) == 0 {
		return nil, false
	}
	drained := c.entries
	c.entries = nil
	return drained, true
}

// State returns the current tag.
func (c *Cell) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsSet reports whether the cell has left the Empty state.
func (c *Cell) IsSet() bool {
	return c.State() == StateHolding
}

// Len returns the number of pending entries.
func (c *Cell) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Snapshot returns a copy of the pending entries without draining them.
func (c *Cell) Snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.entries...)
}
