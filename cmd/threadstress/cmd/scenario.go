// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gvisor.dev/threading/pkg/log"
	"gvisor.dev/threading/pkg/threading"
)

// onceResult is the outcome of runOnceScenario.
type onceResult struct {
	// Winner is the index of the goroutine that ran the initializer.
	Winner int

	// Waiters is the number of goroutines that blocked waiting for it.
	Waiters uint64
}

// runOnceScenario races goroutines through RunOnce on a fresh tag. Each
// goroutine offers its index; the initializer records it after sleeping for
// delay. Every goroutine checks, once RunOnce returns, that exactly one index
// was recorded.
func runOnceScenario(ctx context.Context, goroutines int, delay time.Duration) (onceResult, error) {
	var (
		tag     threading.OnceTag
		mu      threading.LazyMutex
		entries []int
	)
	initialize := func(i int) {
		time.Sleep(delay)
		mu.Lock()
		entries = append(entries, i)
		mu.Unlock()
		log.Infof("Goroutine %d ran the initializer", i)
	}

	before := threading.Stats()
	g, ctx := errgroup.WithContext(ctx)
	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		i := i
		g.Go(func() error {
			select {
			case <-start:
			case <-ctx.Done():
				return ctx.Err()
			}
			threading.RunOnce(&tag, initialize, i)

			mu.Lock()
			n := len(entries)
			mu.Unlock()
			if n != 1 {
				return fmt.Errorf("goroutine %d returned from RunOnce with %d log entries, want 1", i, n)
			}
			return nil
		})
	}
	close(start)
	if err := g.Wait(); err != nil {
		return onceResult{}, err
	}

	if len(entries) != 1 {
		return onceResult{}, fmt.Errorf("initializer ran %d times, want 1", len(entries))
	}
	return onceResult{
		Winner:  entries[0],
		Waiters: threading.Stats().Sub(before).OnceBlockedWaits,
	}, nil
}

// contextCheckInterval is how many lock cycles a lazy mutex worker runs
// between checks for cancellation.
const contextCheckInterval = 1024

// runLazyMutexScenario has goroutines race to first touch a fresh LazyMutex,
// then increment a shared counter under it. It returns the final count.
func runLazyMutexScenario(ctx context.Context, goroutines, iterations int) (int, error) {
	var (
		mu    threading.LazyMutex
		count int
	)
	defer mu.Destroy()

	before := threading.Stats()
	g, ctx := errgroup.WithContext(ctx)
	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		i := i
		g.Go(func() error {
			<-start
			for j := 0; j < iterations; j++ {
				if j%contextCheckInterval == 0 {
					if err := ctx.Err(); err != nil {
						return fmt.Errorf("goroutine %d after %d iterations: %w", i, j, err)
					}
				}
				mu.Lock()
				count++
				mu.Unlock()
			}
			return nil
		})
	}
	close(start)
	if err := g.Wait(); err != nil {
		return 0, err
	}

	if want := goroutines * iterations; count != want {
		return count, fmt.Errorf("counter is %d, want %d", count, want)
	}
	if inits := threading.Stats().Sub(before).LazyMutexInits; inits != 1 {
		return count, fmt.Errorf("lazy mutex constructed %d times, want 1", inits)
	}
	return count, nil
}
