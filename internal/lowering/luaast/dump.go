package luaast

import (
	"fmt"
	"strings"
)

// Dump renders a node in a Lua-like debug syntax. It is not the emitter: the
// output is stable and readable, which is all tests and verbose logs need.
func Dump(n Node) string {
	p := &printer{}
	switch v := n.(type) {
	case Expr:
		p.expr(v)
	case Stmt:
		p.stmt(v)
		return strings.TrimSuffix(p.sb.String(), "\n")
	case *CompilationUnit:
		p.line("-- " + v.Path)
		for _, d := range v.Members {
			p.decl(d)
		}
		return strings.TrimSuffix(p.sb.String(), "\n")
	case Decl:
		p.decl(v)
		return strings.TrimSuffix(p.sb.String(), "\n")
	case Member:
		p.member(v)
		return strings.TrimSuffix(p.sb.String(), "\n")
	default:
		panic(fmt.Sprintf("luaast: cannot dump %T", n))
	}
	return p.sb.String()
}

// DumpBlock renders the statements of b without a surrounding construct.
func DumpBlock(b *Block) string {
	p := &printer{}
	p.stmts(b)
	return strings.TrimSuffix(p.sb.String(), "\n")
}

type printer struct {
	sb     strings.Builder
	indent int
}

func (p *printer) write(s string) {
	p.sb.WriteString(s)
}

func (p *printer) line(s string) {
	p.sb.WriteString(strings.Repeat("  ", p.indent))
	p.sb.WriteString(s)
	p.sb.WriteByte('\n')
}

// start begins a line whose tail is written with write.
func (p *printer) start() {
	p.sb.WriteString(strings.Repeat("  ", p.indent))
}

func (p *printer) stmts(b *Block) {
	if b == nil {
		return
	}
	p.indent++
	for _, s := range b.Stmts {
		p.stmt(s)
	}
	p.indent--
}

func precedence(op string) int {
	switch op {
	case "or":
		return 1
	case "and":
		return 2
	case "<", ">", "<=", ">=", "~=", "==":
		return 3
	case "|":
		return 4
	case "~":
		return 5
	case "&":
		return 6
	case "<<", ">>":
		return 7
	case "..":
		return 8
	case "+", "-":
		return 9
	case "*", "/", "//", "%":
		return 10
	case "^":
		return 12
	}
	return 0
}

const unaryPrecedence = 11

func rightAssoc(op string) bool {
	return op == ".." || op == "^"
}

func (p *printer) operand(e Expr, parent string, right bool) {
	if b, ok := e.(*Binary); ok {
		pc, pp := precedence(b.Op), precedence(parent)
		if pc < pp || (pc == pp && right != rightAssoc(parent)) {
			p.write("(")
			p.expr(e)
			p.write(")")
			return
		}
	}
	p.expr(e)
}

func (p *printer) exprs(es []Expr) {
	for i, e := range es {
		if i > 0 {
			p.write(", ")
		}
		p.expr(e)
	}
}

func (p *printer) names(ids []*Identifier) {
	for i, id := range ids {
		if i > 0 {
			p.write(", ")
		}
		p.write(id.Name)
	}
}

func (p *printer) expr(e Expr) {
	switch v := e.(type) {
	case *Identifier:
		p.write(v.Name)
	case *Literal:
		p.write(v.Text)
	case *MemberAccess:
		p.prefix(v.Target)
		if v.Colon {
			p.write(":")
		} else {
			p.write(".")
		}
		p.write(v.Name.Name)
	case *Index:
		p.prefix(v.Target)
		p.write("[")
		p.expr(v.Key)
		p.write("]")
	case *Invocation:
		p.prefix(v.Target)
		p.write("(")
		p.exprs(v.Args)
		p.write(")")
	case *Binary:
		p.operand(v.Left, v.Op, false)
		p.write(" " + v.Op + " ")
		p.operand(v.Right, v.Op, true)
	case *Unary:
		p.write(v.Op)
		if v.Op == "not" {
			p.write(" ")
		}
		if b, ok := v.Operand.(*Binary); ok && precedence(b.Op) < unaryPrecedence {
			p.write("(")
			p.expr(v.Operand)
			p.write(")")
		} else {
			p.expr(v.Operand)
		}
	case *Paren:
		p.write("(")
		p.expr(v.Inner)
		p.write(")")
	case *Function:
		p.write("function (")
		p.names(v.Params)
		if v.Vararg {
			if len(v.Params) > 0 {
				p.write(", ")
			}
			p.write("...")
		}
		p.write(")\n")
		p.stmts(v.Body)
		p.start()
		p.write("end")
	case *Table:
		p.write("{")
		p.exprs(v.Items)
		p.write("}")
	case *Splice:
		for _, part := range v.Parts {
			p.expr(part)
		}
	case *PropertyAdapter:
		if v.Target != nil {
			p.prefix(v.Target)
			if v.Colon {
				p.write(":")
			} else {
				p.write(".")
			}
		}
		p.write(v.Kind.Prefix() + v.Name + "(")
		args := append([]Expr(nil), v.Args...)
		if v.Value != nil {
			args = append(args, v.Value)
		}
		p.exprs(args)
		p.write(")")
	default:
		panic(fmt.Sprintf("luaast: unknown expression %T", e))
	}
}

// prefix renders the target of a call, index or member access, wrapping
// anything that is not a prefix expression.
func (p *printer) prefix(e Expr) {
	switch e.(type) {
	case *Identifier, *MemberAccess, *Index, *Invocation, *Paren, *PropertyAdapter:
		p.expr(e)
	default:
		p.write("(")
		p.expr(e)
		p.write(")")
	}
}

func (p *printer) stmt(s Stmt) {
	switch v := s.(type) {
	case *ExprStmt:
		p.start()
		p.expr(v.X)
		p.write("\n")
	case *Assignment:
		p.start()
		p.expr(v.Left)
		p.write(" = ")
		p.expr(v.Right)
		p.write("\n")
	case *MultipleAssignment:
		p.start()
		p.exprs(v.Lefts)
		p.write(" = ")
		p.exprs(v.Rights)
		p.write("\n")
	case *LocalDecl:
		p.start()
		p.write("local ")
		p.names(v.Names)
		if len(v.Values) > 0 {
			p.write(" = ")
			p.exprs(v.Values)
		}
		p.write("\n")
	case *LocalFunction:
		p.start()
		p.write("local function " + v.Name.Name + "(")
		p.names(v.Fn.Params)
		p.write(")\n")
		p.stmts(v.Fn.Body)
		p.line("end")
	case *Return:
		p.start()
		p.write("return")
		if len(v.Values) > 0 {
			p.write(" ")
			p.exprs(v.Values)
		}
		p.write("\n")
	case *If:
		p.ifChain(v)
	case *While:
		p.start()
		p.write("while ")
		p.expr(v.Cond)
		p.write(" do\n")
		p.stmts(v.Body)
		p.line("end")
	case *Repeat:
		p.line("repeat")
		p.stmts(v.Body)
		p.start()
		p.write("until ")
		p.expr(v.Until)
		p.write("\n")
	case *ForIn:
		p.start()
		p.write("for ")
		p.names(v.Names)
		p.write(" in ")
		p.expr(v.Iter)
		p.write(" do\n")
		p.stmts(v.Body)
		p.line("end")
	case *Do:
		p.line("do")
		p.stmts(v.Body)
		p.line("end")
	case *Break:
		p.line("break")
	case *Goto:
		p.line("goto " + v.Label.Name)
	case *Label:
		p.line("::" + v.Name.Name + "::")
	case *Comment:
		p.line("-- " + v.Text)
	case *Switch:
		p.line("repeat")
		p.indent++
		p.start()
		p.write("local " + v.Temp.Name + " = ")
		p.expr(v.Value)
		p.write("\n")
		if v.Chain != nil {
			p.ifChain(v.Chain)
		}
		for _, t := range v.Targets {
			p.line("::" + t.Label.Name + "::")
			p.line("do")
			p.stmts(t.Body)
			p.line("end")
		}
		p.indent--
		p.line("until 1")
	default:
		panic(fmt.Sprintf("luaast: unknown statement %T", s))
	}
}

func (p *printer) ifChain(v *If) {
	p.start()
	p.write("if ")
	p.expr(v.Cond)
	p.write(" then\n")
	p.stmts(v.Body)
	for _, ei := range v.ElseIfs {
		p.start()
		p.write("elseif ")
		p.expr(ei.Cond)
		p.write(" then\n")
		p.stmts(ei.Body)
	}
	if v.Else != nil {
		p.line("else")
		p.stmts(v.Else)
	}
	p.line("end")
}

func (p *printer) decl(d Decl) {
	switch v := d.(type) {
	case *Namespace:
		p.line("namespace " + v.Name)
		p.indent++
		for _, m := range v.Members {
			p.decl(m)
		}
		p.indent--
		p.line("end")
	case *TypeDeclaration:
		p.typeDecl(v)
	case *EnumDeclaration:
		p.enumDecl(v)
	default:
		panic(fmt.Sprintf("luaast: unknown declaration %T", d))
	}
}

func (p *printer) typeDecl(t *TypeDeclaration) {
	for _, doc := range t.Doc {
		p.line("--- " + doc)
	}
	for _, a := range t.Attributes {
		p.start()
		p.write("@")
		p.expr(a)
		p.write("\n")
	}
	p.start()
	p.write(t.Kind.String() + " " + t.Name.Name)
	if len(t.TypeParams) > 0 {
		p.write("<")
		p.names(t.TypeParams)
		p.write(">")
	}
	if len(t.BaseTypes) > 0 {
		p.write(" : ")
		p.exprs(t.BaseTypes)
	}
	p.write("\n")
	p.indent++
	if t.ForceStaticCtor {
		p.line("#static-ctor")
	}
	if t.StructHelpers {
		p.line("#struct-helpers")
	}
	for _, name := range t.StaticReadOnlyAssigned {
		p.line("#static-readonly-assigned " + name)
	}
	for _, m := range t.Members {
		p.member(m)
	}
	p.indent--
	p.line("end")
}

func (p *printer) enumDecl(e *EnumDeclaration) {
	for _, doc := range e.Doc {
		p.line("--- " + doc)
	}
	p.line("enum " + e.Name.Name)
	p.indent++
	for _, v := range e.Values {
		p.start()
		p.write(v.Name.Name + " = ")
		p.expr(v.Value)
		p.write("\n")
	}
	p.indent--
	p.line("end")
}

func modifiers(static, private bool) string {
	var sb strings.Builder
	if static {
		sb.WriteString("static ")
	}
	if private {
		sb.WriteString("private ")
	}
	return sb.String()
}

func (p *printer) member(m Member) {
	switch v := m.(type) {
	case *Field:
		p.start()
		p.write(modifiers(v.Static, v.Private))
		switch {
		case v.Const:
			p.write("const ")
		case v.ReadOnly:
			p.write("readonly ")
		}
		p.write("field " + v.Name.Name)
		if v.Value != nil {
			p.write(" = ")
			p.expr(v.Value)
		}
		p.write("\n")
	case *Property:
		kind := "property"
		first, second := "get", "set"
		if v.IsEvent {
			kind, first, second = "event", "add", "remove"
		}
		p.start()
		p.write(modifiers(v.Static, v.Private) + kind + " " + v.Name.Name)
		if v.Value != nil {
			p.write(" = ")
			p.expr(v.Value)
		}
		p.write("\n")
		p.indent++
		p.accessor(first, v.Get, true)
		p.accessor(second, v.Set, v.HasSet || v.IsEvent)
		p.indent--
	case *Method:
		p.start()
		p.write(modifiers(v.Static, v.Private))
		if v.Abstract {
			p.write("abstract ")
		}
		p.write("method " + v.Name.Name)
		if len(v.TypeParams) > 0 {
			p.write("<")
			p.names(v.TypeParams)
			p.write(">")
		}
		if v.Fn == nil {
			p.write("\n")
			return
		}
		p.write(" = ")
		p.expr(v.Fn)
		p.write("\n")
	case *TypeDeclaration:
		p.typeDecl(v)
	case *EnumDeclaration:
		p.enumDecl(v)
	default:
		panic(fmt.Sprintf("luaast: unknown member %T", m))
	}
}

func (p *printer) accessor(name string, fn *Function, present bool) {
	if !present {
		return
	}
	if fn == nil {
		p.line(name + " auto")
		return
	}
	p.start()
	p.write(name + " = ")
	p.expr(fn)
	p.write("\n")
}
