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

package threading

import (
	"gvisor.dev/threading/pkg/atomicbitops"
	"gvisor.dev/threading/pkg/sync"
)

// OnceTag records whether a run-once initializer has completed. The zero
// value has not run. An OnceTag must not be copied after first use.
type OnceTag struct {
	v atomicbitops.Int32
}

// Done reports whether the initializer guarded by t has completed.
func (t *OnceTag) Done() bool {
	return t.v.LoadAcquire() == tagInitialized
}

// Do is RunOnce for initializers that need no context.
func (t *OnceTag) Do(fn func()) {
	RunOnce(t, func(fn func()) { fn() }, fn)
}

// RunOnce calls fn(ctx) if and only if no call sharing tag has done so, and
// does not return until that single call of fn has returned, no matter which
// caller made it.
//
// Unlike sync.Once, the initializer receives a context value chosen by the
// caller. Callers that lose the race block until the winner is done. fn must
// not call RunOnce with the same tag, and should not block indefinitely: all
// other callers wait for it.
//
// If fn panics, RunOnce considers it to have returned; waiters are released
// and future calls do not call fn.
func RunOnce[T any](tag *OnceTag, fn func(T), ctx T) {
	if tag.v.LoadAcquire() == tagInitialized {
		return
	}
	runOnceSlow(tag, func() { fn(ctx) })
}

func runOnceSlow(tag *OnceTag, fn func()) {
	if tag.v.CompareAndSwapRelaxed(tagUninitialized, tagInitializing) {
		defer onceDone(tag)
		fn()
		return
	}

	// Another caller is running the initializer. It may have finished by the
	// time we get the lock; checking the tag under coordinator.mu ensures we
	// either see tagInitialized or are waiting when the winner broadcasts.
	stats.onceBlockedWaits.Add(1)
	coordinator.mu.Lock()
	for tag.v.LoadAcquire() != tagInitialized {
		coordinator.cond.Wait()
	}
	coordinator.mu.Unlock()
}

// onceDone publishes the completion of tag's initializer and wakes every
// goroutine waiting for any tag.
func onceDone(tag *OnceTag) {
	tag.v.StoreRelease(tagInitialized)
	stats.onceInits.Add(1)

	// A waiter that read the tag before the store above holds
	// coordinator.mu until it is inside Wait. Cycling the lock makes sure all
	// such waiters are parked before the broadcast.
	coordinator.mu.Lock()
	coordinator.mu.Unlock()
	coordinator.cond.Broadcast()
}

// onceCoordinator parks goroutines that lost a RunOnce race. It is shared by
// all tags; it never guards a tag, it only brokers the wakeup.
type onceCoordinator struct {
	mu   Mutex
	cond *sync.Cond
}

// coordinator is constructed during package initialization, before any
// RunOnce call can happen, and is never destroyed.
var coordinator onceCoordinator

func init() {
	coordinator.mu.Init()
	coordinator.cond = sync.NewCond(&coordinator.mu)
	mainThread = CurrentThread()
}
