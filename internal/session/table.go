package session

import (
	"errors"
	"fmt"
)

// DefaultCapacity is the default maximum number of live connections.
const DefaultCapacity = 2048

var ErrTableFull = errors.New("session table full")

// Token addresses a connection in a Table.
type Token uint32

// ServerToken is reserved for the listening side and never assigned.
const ServerToken Token = 0

// Table maps tokens to connections. Insert, Remove and Lookup are O(1); the
// most recently freed token is reused first, and only once its previous
// holder has been removed. It is not safe for concurrent use.
type Table struct {
	slots    []*Conn
	free     []int
	live     int
	capacity int

	iterating int
	pending   []Token
}

func NewTable(capacity int) *Table {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Table{capacity: capacity}
}

// Insert stores c and assigns it a token.
func (t *Table) Insert(c *Conn) (Token, error) {
	if t.live >= t.capacity {
		return ServerToken, ErrTableFull
	}

	var idx int
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		idx = len(t.slots)
		t.slots = append(t.slots, nil)
	}

	t.slots[idx] = c
	t.live++

	tok := Token(idx + 1)
	c.token = tok
	return tok, nil
}

// Get returns the connection for tok and panics if tok is not live.
func (t *Table) Get(tok Token) *Conn {
	c, ok := t.Lookup(tok)
	if !ok {
		panic(fmt.Sprintf("session: invalid token %d", tok))
	}
	return c
}

func (t *Table) Lookup(tok Token) (*Conn, bool) {
	if tok == ServerToken || int(tok) > len(t.slots) {
		return nil, false
	}
	c := t.slots[tok-1]
	return c, c != nil
}

// Remove frees tok. Inside ForEach the removal happens after the pass.
func (t *Table) Remove(tok Token) {
	if _, ok := t.Lookup(tok); !ok {
		return
	}
	if t.iterating > 0 {
		t.pending = append(t.pending, tok)
		return
	}

	t.slots[tok-1] = nil
	t.free = append(t.free, int(tok-1))
	t.live--
}

// Len returns the number of live connections.
func (t *Table) Len() int {
	return t.live
}

// ForEach calls fn for each connection live when the pass starts, in token order.
func (t *Table) ForEach(fn func(Token, *Conn)) {
	t.iterating++
	defer func() {
		t.iterating--
		if t.iterating > 0 {
			return
		}
		pending := t.pending
		t.pending = nil
		for _, tok := range pending {
			t.Remove(tok)
		}
	}()

	n := len(t.slots)
	for i := 0; i < n; i++ {
		if c := t.slots[i]; c != nil {
			fn(Token(i+1), c)
		}
	}
}
