// Copyright 2024 Skiff Data
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package plan

import (
	"fmt"

	"github.com/skiffdata/skiff/pkg/container/types"
	"github.com/skiffdata/skiff/pkg/sql/colexec/agg"
)

// Expr is a scalar expression evaluated per batch by colexec.
type Expr interface {
	exprNode()
	String() string
}

// ColExpr references a column of the input batch by name.
type ColExpr struct {
	Name string
}

func (*ColExpr) exprNode()        {}
func (e *ColExpr) String() string { return e.Name }

func Col(name string) *ColExpr { return &ColExpr{Name: name} }

// ConstExpr is a literal broadcast to the batch's row count.
type ConstExpr struct {
	Value any
	Typ   types.Type
}

func (*ConstExpr) exprNode()        {}
func (e *ConstExpr) String() string { return fmt.Sprintf("%v", e.Value) }

// FuncOp enumerates the scalar functions the evaluator supports.
type FuncOp uint8

const (
	FuncEq FuncOp = iota
	FuncNe
	FuncLt
	FuncLe
	FuncGt
	FuncGe
	FuncAdd
	FuncSub
	FuncMul
	FuncDiv
	FuncCastFloat64
	// FuncSketchPercentile extracts a quantile from a sketch column.
	FuncSketchPercentile
	// FuncHLLCount estimates the cardinality held by an HLL register column.
	FuncHLLCount
)

var funcNames = map[FuncOp]string{
	FuncEq: "eq", FuncNe: "ne", FuncLt: "lt", FuncLe: "le", FuncGt: "gt",
	FuncGe: "ge", FuncAdd: "add", FuncSub: "sub", FuncMul: "mul",
	FuncDiv: "div", FuncCastFloat64: "cast_f64",
	FuncSketchPercentile: "sketch_percentile", FuncHLLCount: "hll_count",
}

func (op FuncOp) String() string { return funcNames[op] }

type FuncExpr struct {
	Op   FuncOp
	Args []Expr
}

func (*FuncExpr) exprNode() {}
func (e *FuncExpr) String() string {
	s := e.Op.String() + "("
	for i, a := range e.Args {
		if i > 0 {
			s += ", "
		}
		s += a.String()
	}
	return s + ")"
}

func Func(op FuncOp, args ...Expr) *FuncExpr { return &FuncExpr{Op: op, Args: args} }

// AggOp enumerates logical aggregations plus the internal partial/combine
// ops the staging rewrite introduces.
type AggOp uint8

const (
	AggSum AggOp = iota
	AggCount
	AggMean
	AggMin
	AggMax
	AggAnyValue
	AggList
	AggConcat
	AggApproxPercentile
	AggApproxCountDistinct

	// Stage-internal ops emitted by StageAggregations.
	AggApproxSketch
	AggMergeSketch
	AggHLLSketch
	AggHLLMerge
)

var aggNames = map[AggOp]string{
	AggSum: "sum", AggCount: "count", AggMean: "mean", AggMin: "min",
	AggMax: "max", AggAnyValue: "any_value", AggList: "list",
	AggConcat: "concat", AggApproxPercentile: "approx_percentile",
	AggApproxCountDistinct: "approx_count_distinct",
	AggApproxSketch:        "approx_sketch", AggMergeSketch: "merge_sketch",
	AggHLLSketch: "hll_sketch", AggHLLMerge: "hll_merge",
}

func (op AggOp) String() string { return aggNames[op] }

// AggExpr describes one aggregation over a child expression. As names the
// output column.
type AggExpr struct {
	Op    AggOp
	Child Expr
	As    string

	// Mode applies to AggCount only.
	Mode agg.CountMode
	// IgnoreNulls applies to AggAnyValue only.
	IgnoreNulls bool
	// Quantile applies to AggApproxPercentile only.
	Quantile float64
}

func (*AggExpr) exprNode() {}
func (e *AggExpr) String() string {
	return fmt.Sprintf("%s(%s)", e.Op, e.Child)
}

// AliasExpr renames its child's output column.
type AliasExpr struct {
	Child Expr
	As    string
}

func (*AliasExpr) exprNode()        {}
func (e *AliasExpr) String() string { return fmt.Sprintf("%s as %s", e.Child, e.As) }

func Alias(child Expr, as string) *AliasExpr { return &AliasExpr{Child: child, As: as} }

// ExprName is the output column name an expression produces.
func ExprName(e Expr) string {
	switch expr := e.(type) {
	case *ColExpr:
		return expr.Name
	case *AliasExpr:
		return expr.As
	case *AggExpr:
		if expr.As != "" {
			return expr.As
		}
		return expr.String()
	default:
		return e.String()
	}
}
