package session

import (
	"errors"
	"testing"

	"github.com/pixil98/go-testutil"
)

func newTestConn() *Conn {
	return NewConn(nopStream{}, "test")
}

func TestTable_Insert(t *testing.T) {
	tbl := NewTable(4)

	seen := map[Token]bool{}
	for i := 0; i < 4; i++ {
		c := newTestConn()
		tok, err := tbl.Insert(c)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tok == ServerToken {
			t.Fatalf("insert returned the server token")
		}
		if seen[tok] {
			t.Fatalf("token %d handed out twice", tok)
		}
		seen[tok] = true
		testutil.AssertEqual(t, "conn token", c.Token(), tok)
	}

	_, err := tbl.Insert(newTestConn())
	if !errors.Is(err, ErrTableFull) {
		t.Errorf("expected ErrTableFull, got %v", err)
	}
	testutil.AssertEqual(t, "len", tbl.Len(), 4)
}

func TestTable_Reuse(t *testing.T) {
	tests := map[string]struct {
		remove []Token
		expTok Token
	}{
		"no removal appends": {
			expTok: 4,
		},
		"reuses removed token": {
			remove: []Token{2},
			expTok: 2,
		},
		"reuses most recently freed token": {
			remove: []Token{3, 1},
			expTok: 1,
		},
		"reuses most recently freed higher token": {
			remove: []Token{1, 3},
			expTok: 3,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			tbl := NewTable(8)
			for i := 0; i < 3; i++ {
				if _, err := tbl.Insert(newTestConn()); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
			for _, tok := range tt.remove {
				tbl.Remove(tok)
			}

			tok, err := tbl.Insert(newTestConn())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "token", tok, tt.expTok)
			testutil.AssertEqual(t, "len", tbl.Len(), 4-len(tt.remove))
		})
	}
}

func TestTable_ChurnKeepsSlotsBounded(t *testing.T) {
	tbl := NewTable(4)
	var toks []Token
	for i := 0; i < 4; i++ {
		tok, err := tbl.Insert(newTestConn())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		toks = append(toks, tok)
	}

	for i := 0; i < 1000; i++ {
		tok := toks[i%len(toks)]
		tbl.Remove(tok)
		got, err := tbl.Insert(newTestConn())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		testutil.AssertEqual(t, "token", got, tok)
	}

	testutil.AssertEqual(t, "slots", len(tbl.slots), 4)
	testutil.AssertEqual(t, "free", len(tbl.free), 0)
	testutil.AssertEqual(t, "len", tbl.Len(), 4)
}

func TestTable_Lookup(t *testing.T) {
	tbl := NewTable(0)
	c := newTestConn()
	tok, _ := tbl.Insert(c)

	got, ok := tbl.Lookup(tok)
	testutil.AssertEqual(t, "found", ok, true)
	if got != c {
		t.Errorf("lookup returned a different connection")
	}

	for name, tok := range map[string]Token{"server token": ServerToken, "out of range": 99} {
		t.Run(name, func(t *testing.T) {
			_, ok := tbl.Lookup(tok)
			testutil.AssertEqual(t, "found", ok, false)
		})
	}

	tbl.Remove(tok)
	_, ok = tbl.Lookup(tok)
	testutil.AssertEqual(t, "found after remove", ok, false)
	testutil.AssertEqual(t, "len", tbl.Len(), 0)

	// Removing twice is harmless.
	tbl.Remove(tok)
	testutil.AssertEqual(t, "len", tbl.Len(), 0)
}

func TestTable_GetPanicsOnInvalidToken(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic")
		}
	}()
	NewTable(1).Get(3)
}

func TestTable_ForEachDefersRemoval(t *testing.T) {
	tbl := NewTable(8)
	for i := 0; i < 4; i++ {
		if _, err := tbl.Insert(newTestConn()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	var visited []Token
	tbl.ForEach(func(tok Token, _ *Conn) {
		visited = append(visited, tok)
		if tok == 1 {
			tbl.Remove(1)
			tbl.Remove(3)
		}
		// Deferred removals stay visible for the rest of the pass.
		if _, ok := tbl.Lookup(3); !ok {
			t.Errorf("token 3 removed during the pass")
		}
	})

	testutil.AssertEqual(t, "visited", len(visited), 4)
	testutil.AssertEqual(t, "len", tbl.Len(), 2)
	_, ok := tbl.Lookup(1)
	testutil.AssertEqual(t, "token 1 live", ok, false)
	_, ok = tbl.Lookup(3)
	testutil.AssertEqual(t, "token 3 live", ok, false)
}

func TestTable_ForEachSkipsInsertedDuringPass(t *testing.T) {
	tbl := NewTable(8)
	if _, err := tbl.Insert(newTestConn()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := 0
	tbl.ForEach(func(Token, *Conn) {
		calls++
		if _, err := tbl.Insert(newTestConn()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	testutil.AssertEqual(t, "calls", calls, 1)
	testutil.AssertEqual(t, "len", tbl.Len(), 2)
}
