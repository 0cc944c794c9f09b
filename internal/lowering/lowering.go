// Package lowering defines the contract between the lowering core and the
// driver that feeds it resolved units.
package lowering

import (
	"martianoff/sharplua/internal/lowering/luaast"
	"martianoff/sharplua/internal/lowering/registry"
	"martianoff/sharplua/internal/lowering/resolved"
)

// UnitLowerer lowers one resolved compilation unit. index is the position of
// the unit in the program and orders partial-type fragments.
type UnitLowerer interface {
	LowerUnit(unit *resolved.CompilationUnit, index int) (*luaast.CompilationUnit, error)
}

// PartialMerger assembles one logical partial type from its fragments. It
// may only be called after every unit has been lowered.
type PartialMerger interface {
	MergePartial(group registry.Group) (*luaast.TypeDeclaration, error)
}

// Output is everything handed to the emitter for one program.
type Output struct {
	Units      []*luaast.CompilationUnit
	Types      []*luaast.TypeDeclaration // merged partial types
	Enums      []*luaast.EnumDeclaration
	EntryPoint string // qualified name of Main, empty when absent
}
