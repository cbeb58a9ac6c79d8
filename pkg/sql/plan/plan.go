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

// Package plan holds the physical plan consumed by the pipeline compiler.
// Plans arrive already optimized and typed; the executor never revisits
// planning decisions.
package plan

import (
	"context"

	"github.com/skiffdata/skiff/pkg/container/batch"
	"github.com/skiffdata/skiff/pkg/container/types"
)

// Schema describes a node's output columns.
type Schema struct {
	Attrs []string
	Types []types.Type
}

func NewSchema(attrs []string, typs []types.Type) *Schema {
	return &Schema{Attrs: attrs, Types: typs}
}

// Position returns the index of the named column, or -1.
func (s *Schema) Position(attr string) int {
	for i, a := range s.Attrs {
		if a == attr {
			return i
		}
	}
	return -1
}

// ScanTask is the boundary to table/file I/O, which is outside this engine.
// Read streams batches until it returns a nil batch.
type ScanTask interface {
	Read(ctx context.Context) (*batch.Batch, error)
}

// Node is a physical plan node. The executor supports exactly the concrete
// node structs in this package; anything else is a fatal NYI at compile
// time.
type Node interface {
	Schema() *Schema
}

type PhysicalScan struct {
	Tasks []ScanTask
	Sch   *Schema
}

func (n *PhysicalScan) Schema() *Schema { return n.Sch }

// InMemoryScan reads batches pre-materialized under a cache key. The key is
// resolved against the pset map handed to the compiler; a miss is an
// internal consistency error.
type InMemoryScan struct {
	CacheKey string
	Sch      *Schema
}

func (n *InMemoryScan) Schema() *Schema { return n.Sch }

type Project struct {
	Input Node
	Exprs []Expr
	Sch   *Schema
}

func (n *Project) Schema() *Schema { return n.Sch }

type Filter struct {
	Input     Node
	Predicate Expr
}

func (n *Filter) Schema() *Schema { return n.Input.Schema() }

type Limit struct {
	Input Node
	Count uint64
}

func (n *Limit) Schema() *Schema { return n.Input.Schema() }

// Concat is the ordered, non-interleaved concatenation of two inputs: all
// Input rows precede all Other rows.
type Concat struct {
	Input Node
	Other Node
}

func (n *Concat) Schema() *Schema { return n.Input.Schema() }

type UngroupedAggregate struct {
	Input Node
	Aggs  []*AggExpr
	Sch   *Schema
}

func (n *UngroupedAggregate) Schema() *Schema { return n.Sch }

type HashAggregate struct {
	Input   Node
	Aggs    []*AggExpr
	GroupBy []Expr
	Sch     *Schema
}

func (n *HashAggregate) Schema() *Schema { return n.Sch }

type Sort struct {
	Input      Node
	By         []Expr
	Descending []bool
}

func (n *Sort) Schema() *Schema { return n.Input.Schema() }

type JoinType uint8

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
	JoinSemi
	JoinAnti
)

func (t JoinType) String() string {
	switch t {
	case JoinInner:
		return "inner"
	case JoinLeft:
		return "left"
	case JoinRight:
		return "right"
	case JoinSemi:
		return "semi"
	case JoinAnti:
		return "anti"
	}
	return "unknown"
}

type HashJoin struct {
	Left    Node
	Right   Node
	LeftOn  []Expr
	RightOn []Expr
	Typ     JoinType
	Sch     *Schema
}

func (n *HashJoin) Schema() *Schema { return n.Sch }
