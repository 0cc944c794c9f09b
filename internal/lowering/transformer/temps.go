package transformer

import (
	"fmt"

	"martianoff/sharplua/internal/lowering/luaast"
	"martianoff/sharplua/internal/lowering/resolved"
	"martianoff/sharplua/lowerr"
)

// tempNames are source-language keywords, so a temporary can never collide
// with a user identifier.
var tempNames = [...]string{
	"default", "extern", "ref", "out", "internal",
	"void", "case", "new", "object", "using",
	"fixed", "override", "abstract", "checked", "virtual",
}

// tempArena hands out temporaries for one function. It is a bump allocator:
// indexes are never reused inside the function and the arena is dropped with
// the function frame.
type tempArena struct {
	next  int
	limit int
}

func newTempArena(limit int) *tempArena {
	if limit <= 0 || limit > len(tempNames) {
		limit = len(tempNames)
	}
	return &tempArena{limit: limit}
}

func (a *tempArena) alloc() (*luaast.Identifier, bool) {
	if a.next >= a.limit {
		return nil, false
	}
	id := luaast.Ident(tempNames[a.next])
	a.next++
	return id, true
}

// temp allocates a temporary in the current function.
func (t *Transformer) temp(pos resolved.Pos) (*luaast.Identifier, error) {
	f, err := t.curFunction(pos)
	if err != nil {
		return nil, err
	}
	id, ok := f.temps.alloc()
	if !ok {
		return nil, lowerr.NewExhaustionErrorAt(t.location(pos), fmt.Sprintf(
			"%d temporary variables are not enough for this function, please reduce its complexity", f.temps.limit))
	}
	return id, nil
}

// localTemp allocates a temporary and declares it with value.
func (t *Transformer) localTemp(pos resolved.Pos, value luaast.Expr) (*luaast.Identifier, error) {
	tmp, err := t.temp(pos)
	if err != nil {
		return nil, err
	}
	t.emit(luaast.Local(tmp, value))
	return tmp, nil
}
