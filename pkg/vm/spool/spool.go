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

// Package spool is the bounded transport between pipeline stages. One
// producer feeds N receivers over buffered channels; closing the spool is
// the end-of-stream signal, and a receiver dropping its register unblocks
// the producer without killing the query.
package spool

import (
	"context"
	"sync"

	"github.com/skiffdata/skiff/pkg/container/batch"
)

const (
	// SendToAll delivers the batch to every live receiver.
	SendToAll = -1
	// SendToAny delivers to one live receiver, round-robin.
	SendToAny = -2
)

// Register is one receiver's endpoint. Consumers range over Ch until it is
// closed; calling Drop tells the producer this receiver needs nothing more.
type Register struct {
	Ch     chan *batch.Batch
	ctx    context.Context
	cancel context.CancelFunc
}

// Drop marks the receiver as gone. Pending and future sends to it are
// discarded; the producer keeps running for the other receivers.
func (r *Register) Drop() {
	r.cancel()
	// Drain whatever the producer already buffered so it is not mistaken
	// for live data by a later reader.
	for {
		select {
		case _, ok := <-r.Ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (r *Register) dropped() bool {
	return r.ctx.Err() != nil
}

// Spool fans one batch stream out to a fixed set of receivers.
type Spool struct {
	regs      []*Register
	next      int
	closeOnce sync.Once
}

func New(receivers, buffer int) *Spool {
	sp := &Spool{regs: make([]*Register, receivers)}
	for i := range sp.regs {
		ctx, cancel := context.WithCancel(context.Background())
		sp.regs[i] = &Register{
			Ch:     make(chan *batch.Batch, buffer),
			ctx:    ctx,
			cancel: cancel,
		}
	}
	return sp
}

func (sp *Spool) Reg(i int) *Register { return sp.regs[i] }

func (sp *Spool) Receivers() int { return len(sp.regs) }

// Send delivers bat to the receiver(s) named by target (an index, SendToAll
// or SendToAny). It blocks while every addressed receiver's buffer is full,
// and returns queryDone=true when ctx is canceled or every addressed
// receiver has dropped.
func (sp *Spool) Send(ctx context.Context, target int, bat *batch.Batch) (queryDone bool) {
	switch target {
	case SendToAll:
		// The refcount grows by one per receiver beyond the first that the
		// batch actually reaches; dropped receivers hold no reference. Each
		// extra credit is taken before its send and returned if the send
		// does not land, so Cnt never undercounts the holders.
		landed := 0
		for _, reg := range sp.regs {
			if landed > 0 {
				bat.AddCnt(1)
			}
			if sp.sendOne(ctx, reg, bat) {
				if landed > 0 {
					bat.AddCnt(-1)
				}
				if ctx.Err() != nil {
					return true
				}
				continue
			}
			landed++
		}
		return landed == 0
	case SendToAny:
		for tried := 0; tried < len(sp.regs); tried++ {
			reg := sp.regs[sp.next]
			sp.next = (sp.next + 1) % len(sp.regs)
			if reg.dropped() {
				continue
			}
			if !sp.sendOne(ctx, reg, bat) {
				return false
			}
			if ctx.Err() != nil {
				return true
			}
		}
		return true
	default:
		reg := sp.regs[target]
		return sp.sendOne(ctx, reg, bat)
	}
}

// sendOne reports true when the send did NOT land (receiver dropped or ctx
// canceled).
func (sp *Spool) sendOne(ctx context.Context, reg *Register, bat *batch.Batch) bool {
	if reg.dropped() {
		return true
	}
	select {
	case reg.Ch <- bat:
		return false
	case <-reg.ctx.Done():
		return true
	case <-ctx.Done():
		return true
	}
}

// Close signals end-of-stream to every receiver. Safe to call more than
// once.
func (sp *Spool) Close() {
	sp.closeOnce.Do(func() {
		for _, reg := range sp.regs {
			close(reg.Ch)
		}
	})
}
