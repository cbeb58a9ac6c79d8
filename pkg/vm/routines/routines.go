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

// Package routines runs pipeline stages on a shared goroutine pool and
// collects the first failure.
package routines

import (
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Pool runs submitted stage loops concurrently. The first error any stage
// returns is kept and handed to every onErr hook; later errors are dropped.
type Pool struct {
	pool  *ants.Pool
	wg    sync.WaitGroup
	onErr func(error)

	mu  sync.Mutex
	err error
}

// New builds a pool of at least size goroutines. onErr (optional) fires
// once, on the first stage failure; the driver uses it to cancel the query.
func New(size int, onErr func(error)) (*Pool, error) {
	p, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}
	return &Pool{pool: p, onErr: onErr}, nil
}

// Submit schedules one stage loop. It blocks only if the pool is exhausted,
// which the driver prevents by sizing the pool to the stage count.
func (p *Pool) Submit(fn func() error) error {
	p.wg.Add(1)
	err := p.pool.Submit(func() {
		defer p.wg.Done()
		if err := fn(); err != nil {
			p.record(err)
		}
	})
	if err != nil {
		p.wg.Done()
	}
	return err
}

func (p *Pool) record(err error) {
	p.mu.Lock()
	first := p.err == nil
	if first {
		p.err = err
	}
	p.mu.Unlock()
	if first && p.onErr != nil {
		p.onErr(err)
	}
}

// Wait blocks until every submitted stage finishes and returns the first
// recorded error.
func (p *Pool) Wait() error {
	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Pool) Release() {
	p.pool.Release()
}
