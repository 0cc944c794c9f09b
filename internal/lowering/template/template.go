// Package template parses hand-written member templates. A template is target
// text with placeholders: {this} for the receiver, {N} for the N-th argument
// and {`N} for the N-th type argument.
package template

import (
	"fmt"
	"strconv"
	"strings"

	"martianoff/sharplua/internal/lowering/luaast"
	"martianoff/sharplua/lowerr"
)

// PartKind classifies one piece of a parsed template.
type PartKind int

const (
	PartText PartKind = iota
	PartThis
	PartArg
	PartTypeArg
)

type Part struct {
	Kind  PartKind
	Text  string
	Index int
}

// Template is a parsed member template.
type Template struct {
	Source string
	Parts  []Part
}

// Parse splits src into text and placeholders. A '{' that does not start a
// placeholder is kept as text, so table constructors need no escaping.
func Parse(src string) (*Template, error) {
	t := &Template{Source: src}
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			t.Parts = append(t.Parts, Part{Kind: PartText, Text: text.String()})
			text.Reset()
		}
	}
	for i := 0; i < len(src); {
		if src[i] != '{' {
			text.WriteByte(src[i])
			i++
			continue
		}
		rest := src[i+1:]
		switch {
		case strings.HasPrefix(rest, "this}"):
			flush()
			t.Parts = append(t.Parts, Part{Kind: PartThis})
			i += len("{this}")
		case len(rest) > 0 && (isDigit(rest[0]) || rest[0] == '`'):
			kind, start := PartArg, 0
			if rest[0] == '`' {
				kind, start = PartTypeArg, 1
			}
			end := strings.IndexByte(rest, '}')
			if end < 0 {
				return nil, lowerr.NewInvariantError(fmt.Sprintf("template %q: unterminated placeholder at offset %d", src, i))
			}
			n, err := strconv.Atoi(rest[start:end])
			if err != nil || n < 0 {
				return nil, lowerr.NewInvariantError(fmt.Sprintf("template %q: bad placeholder %q", src, "{"+rest[:end+1]))
			}
			flush()
			t.Parts = append(t.Parts, Part{Kind: kind, Index: n})
			i += end + 2
		default:
			text.WriteByte('{')
			i++
		}
	}
	flush()
	return t, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// UsesThis reports whether the template references the receiver.
func (t *Template) UsesThis() bool {
	for _, p := range t.Parts {
		if p.Kind == PartThis {
			return true
		}
	}
	return false
}

// Expand substitutes the placeholders.
func (t *Template) Expand(this luaast.Expr, args, typeArgs []luaast.Expr) (*luaast.Splice, error) {
	out := &luaast.Splice{}
	for _, p := range t.Parts {
		switch p.Kind {
		case PartText:
			out.Parts = append(out.Parts, luaast.Lit(p.Text))
		case PartThis:
			if this == nil {
				return nil, lowerr.NewShapeError(fmt.Sprintf("template %q references {this} on a static member", t.Source))
			}
			out.Parts = append(out.Parts, this)
		case PartArg:
			if p.Index >= len(args) {
				return nil, lowerr.NewShapeError(fmt.Sprintf("template %q references argument %d of %d", t.Source, p.Index, len(args)))
			}
			out.Parts = append(out.Parts, args[p.Index])
		case PartTypeArg:
			if p.Index >= len(typeArgs) {
				return nil, lowerr.NewShapeError(fmt.Sprintf("template %q references type argument %d of %d", t.Source, p.Index, len(typeArgs)))
			}
			out.Parts = append(out.Parts, typeArgs[p.Index])
		}
	}
	return out, nil
}
