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

// Package pipeline compiles physical plans into stage trees and drives
// them. Every stage runs on its own pooled goroutine; stages talk over
// bounded spools, so a slow consumer stalls its producers instead of
// buffering unboundedly. The first stage error cancels the query and every
// other stage drains out.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/skiffdata/skiff/pkg/config"
	"github.com/skiffdata/skiff/pkg/container/batch"
	"github.com/skiffdata/skiff/pkg/logutil"
	"github.com/skiffdata/skiff/pkg/sql/colexec/agg"
	"github.com/skiffdata/skiff/pkg/sql/plan"
	"github.com/skiffdata/skiff/pkg/vm"
	"github.com/skiffdata/skiff/pkg/vm/process"
	"github.com/skiffdata/skiff/pkg/vm/routines"
	"github.com/skiffdata/skiff/pkg/vm/spool"
)

// Execute compiles and runs one query, collecting the root stage's output.
// psets resolves in-memory scan keys; cfg may be nil for defaults.
func Execute(ctx context.Context, root plan.Node, psets map[string][]*batch.Batch, cfg *config.Config) ([]*batch.Batch, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	agg.SketchRelativeAccuracy = cfg.Sketch.RelativeAccuracy

	proc := process.New(ctx, process.Limitation{
		SpoolBufferSize:        cfg.Pipeline.SpoolBufferSize,
		WorkerPoolSize:         cfg.Pipeline.WorkerPoolSize,
		SketchRelativeAccuracy: cfg.Sketch.RelativeAccuracy,
	})
	defer proc.Cancel()

	tree, err := Compile(proc, root, psets)
	if err != nil {
		return nil, err
	}

	// Every stage must get a goroutine up front or the tree deadlocks on a
	// full spool, so the pool never shrinks below the stage count.
	stages := tree.StageCount()
	poolSize := cfg.Pipeline.WorkerPoolSize
	if stages > poolSize {
		poolSize = stages
	}
	pool, err := routines.New(poolSize, func(error) { proc.Cancel() })
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	logutil.Debug("query starting",
		zap.String("query", proc.Id),
		zap.Int("stages", stages))

	start := time.Now()
	out := spool.New(1, proc.Lim.SpoolBufferSize)
	if err := startStage(proc, pool, tree, out); err != nil {
		proc.Cancel()
		pool.Wait()
		return nil, err
	}

	var results []*batch.Batch
	for bat := range out.Reg(0).Ch {
		results = append(results, bat)
	}
	if err := pool.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logutil.Info("query finished",
		zap.String("query", proc.Id),
		zap.Int("stages", stages),
		zap.Duration("elapsed", time.Since(start)))
	return results, nil
}

// startStage submits the runner for node (output flowing into out) and
// recursively starts its children.
func startStage(proc *process.Process, pool *routines.Pool, node *vm.PipelineNode, out *spool.Spool) error {
	inputs := make([]*spool.Register, len(node.Children))
	for i, child := range node.Children {
		in := spool.New(1, proc.Lim.SpoolBufferSize)
		if err := startStage(proc, pool, child, in); err != nil {
			return err
		}
		inputs[i] = in.Reg(0)
	}

	switch node.Kind {
	case vm.NodeSource:
		return pool.Submit(func() error {
			return runSource(proc, node.Src, out)
		})
	case vm.NodeIntermediate:
		return pool.Submit(func() error {
			return runIntermediate(proc, node.Op, inputs[0], out)
		})
	case vm.NodeSingleSink:
		return pool.Submit(func() error {
			return runSingleSink(proc, node.Sink, inputs[0], out)
		})
	default:
		return pool.Submit(func() error {
			return runDoubleSink(proc, node.Sink2, inputs[0], inputs[1], out)
		})
	}
}

func runSource(proc *process.Process, src vm.Source, out *spool.Spool) error {
	defer out.Close()
	for {
		bat, err := src.Read(proc)
		if err != nil {
			return err
		}
		if bat == nil {
			return nil
		}
		if bat.RowCount() == 0 {
			continue
		}
		if out.Send(proc.Ctx, spool.SendToAll, bat) {
			return nil
		}
	}
}

func runIntermediate(proc *process.Process, op vm.IntermediateOperator, in *spool.Register, out *spool.Spool) error {
	defer out.Close()
	defer in.Drop()
	for {
		select {
		case bat, ok := <-in.Ch:
			if !ok {
				return nil
			}
			res, err := op.Exec(proc, bat)
			if err != nil {
				return err
			}
			if res != nil && res.RowCount() > 0 {
				if out.Send(proc.Ctx, spool.SendToAll, res) {
					return nil
				}
			}
			if stopper, ok := op.(vm.EarlyStopper); ok && stopper.Done() {
				return nil
			}
		case <-proc.Ctx.Done():
			return nil
		}
	}
}

func runSingleSink(proc *process.Process, sink vm.SingleInputSink, in *spool.Register, out *spool.Spool) error {
	defer out.Close()
	defer in.Drop()
	if err := absorb(proc, in, func(bat *batch.Batch) (vm.SinkResult, error) {
		return sink.Sink(proc, bat)
	}); err != nil {
		return err
	}
	if proc.Ctx.Err() != nil {
		return nil
	}
	return sink.Finalize(proc, emitter(proc, out))
}

func runDoubleSink(proc *process.Process, sink vm.DoubleInputSink, left, right *spool.Register, out *spool.Spool) error {
	defer out.Close()
	defer left.Drop()
	defer right.Drop()
	if err := absorb(proc, left, func(bat *batch.Batch) (vm.SinkResult, error) {
		return sink.SinkLeft(proc, bat)
	}); err != nil {
		return err
	}
	if err := absorb(proc, right, func(bat *batch.Batch) (vm.SinkResult, error) {
		return sink.SinkRight(proc, bat)
	}); err != nil {
		return err
	}
	if proc.Ctx.Err() != nil {
		return nil
	}
	return sink.Finalize(proc, emitter(proc, out))
}

func absorb(proc *process.Process, in *spool.Register, sink func(*batch.Batch) (vm.SinkResult, error)) error {
	for {
		select {
		case bat, ok := <-in.Ch:
			if !ok {
				return nil
			}
			res, err := sink(bat)
			if err != nil {
				return err
			}
			if res == vm.SinkDone {
				in.Drop()
				return nil
			}
		case <-proc.Ctx.Done():
			return nil
		}
	}
}

func emitter(proc *process.Process, out *spool.Spool) func(*batch.Batch) bool {
	return func(bat *batch.Batch) bool {
		return !out.Send(proc.Ctx, spool.SendToAll, bat)
	}
}
