package transformer

import (
	"martianoff/sharplua/internal/lowering/luaast"
	"martianoff/sharplua/internal/lowering/registry"
	"martianoff/sharplua/internal/lowering/resolved"
	"martianoff/sharplua/lowerr"
)

// mergePartial lowers the fragments of one partial type into a single
// declaration. Members keep fragment order; each fragment is lowered with
// its own unit as the error location.
func (t *Transformer) mergePartial(g registry.Group) (*luaast.TypeDeclaration, error) {
	if len(g.Fragments) == 0 {
		return nil, lowerr.NewInvariantError("partial type " + g.Type.String() + " has no fragments")
	}
	parts := make([]typePart, len(g.Fragments))
	lists := make([][]*resolved.Type, len(g.Fragments))
	for i, f := range g.Fragments {
		parts[i] = typePart{unit: &unitFrame{path: f.Unit, index: f.UnitIndex, seq: f.Seq}, decl: f.Decl}
		lists[i] = f.Decl.BaseList
	}
	decl, err := t.buildType(g.Type, mergeBases(lists), parts)
	if err != nil {
		return nil, err
	}
	decl.Namespace = g.Fragments[0].Namespace
	return decl, nil
}

// mergeBases unions the base lists of all fragments. The base class may be
// named by any fragment but must come first.
func mergeBases(lists [][]*resolved.Type) []*resolved.Type {
	seen := make(map[*resolved.Type]bool)
	var out []*resolved.Type
	for _, l := range lists {
		for _, b := range l {
			if !seen[b] {
				seen[b] = true
				out = append(out, b)
			}
		}
	}
	if len(out) < 2 {
		return out
	}
	for i, b := range out {
		if b.IsInterface() {
			continue
		}
		if i > 0 {
			copy(out[1:i+1], out[:i])
			out[0] = b
		}
		break
	}
	return out
}
