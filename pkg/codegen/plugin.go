package codegen

// This file contains plugin mode generation for c-shared libraries.

import (
	"github.com/chazu/adl/pkg/ir"
	"github.com/dave/jennifer/jen"
)

// GeneratePlugin produces Go source for a c-shared library that hands the
// plan to a non-Go weaver as JSON.
// The output can be built with: go build -buildmode=c-shared -o weave.so
func GeneratePlugin(plan *ir.Plan) *Result {
	g := newGenerator(plan)
	f := jen.NewFile("main")
	g.header(f)
	f.CgoPreamble("#include <stdlib.h>")

	g.generatePlanFunc(f)
	f.Line()
	g.generatePluginExports(f)
	f.Line()

	// c-shared builds still need a main package entry point
	f.Func().Id("main").Params().Block()
	return g.render(f)
}

func (g *generator) generatePluginExports(f *jen.File) {
	// ADLPlan returns the plan as a JSON string owned by the caller
	f.Comment("//export ADLPlan")
	f.Func().Id("ADLPlan").Params().Op("*").Qual("C", "char").Block(
		jen.List(jen.Id("data"), jen.Err()).Op(":=").Qual("encoding/json", "Marshal").Call(jen.Id("Plan").Call()),
		jen.If(jen.Err().Op("!=").Nil()).Block(
			jen.Return(jen.Nil()),
		),
		jen.Return(jen.Qual("C", "CString").Call(jen.String().Call(jen.Id("data")))),
	)
	f.Line()

	f.Comment("//export ADLFree")
	f.Func().Id("ADLFree").Params(jen.Id("p").Op("*").Qual("C", "char")).Block(
		jen.Qual("C", "free").Call(jen.Qual("unsafe", "Pointer").Call(jen.Id("p"))),
	)
}
