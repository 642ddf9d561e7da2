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
	"time"

	"gvisor.dev/threading/pkg/atomicbitops"
	"gvisor.dev/threading/pkg/log"
	"gvisor.dev/threading/pkg/sync"
)

// spinReportInterval is the number of spins between reports about a
// LazyMutex whose initialization is taking unexpectedly long.
var spinReportInterval uint64 = 1 << 24

// spinLogger reports long spins at most once per second across all lazy
// mutexes.
var spinLogger = log.BasicRateLimitedLogger(time.Second)

// LazyMutex is a mutual exclusion lock that constructs its native mutex on
// first use. The zero value is ready to use, so a LazyMutex can be a
// package-level variable with no initialization code.
//
// Any failure of the underlying native mutex is fatal.
type LazyMutex struct {
	// mu is constructed once the tag reads tagInitialized.
	mu sync.NativeMutex

	// once is the initialization tag of mu.
	once atomicbitops.Int32
}

// ensureInit makes sure m.mu is constructed. It is safe to call
// concurrently, and costs a single atomic load once m is constructed.
func (m *LazyMutex) ensureInit() {
	if m.once.LoadAcquire() == tagInitialized {
		return
	}
	m.initSlow()
}

func (m *LazyMutex) initSlow() {
	// The CAS does not need to order anything: the StoreRelease below is what
	// publishes the constructed mutex.
	if m.once.CompareAndSwapRelaxed(tagUninitialized, tagInitializing) {
		check("NativeMutex.Init", m.mu.Init())
		stats.lazyMutexInits.Add(1)
		m.once.StoreRelease(tagInitialized)
		return
	}

	// Somebody else is constructing mu. Constructing a mutex is quick, so
	// spin rather than block.
	stats.lazyMutexSpinWaits.Add(1)
	for spins := uint64(1); m.once.LoadAcquire() != tagInitialized; spins++ {
		if spins%spinReportInterval == 0 {
			spinLogger.Warningf("LazyMutex %p still initializing after %d spins", m, spins)
		}
	}
}

// Lock locks m, constructing it first if needed.
func (m *LazyMutex) Lock() {
	m.ensureInit()
	check("NativeMutex.Lock", m.mu.Lock())
}

// Unlock unlocks m.
func (m *LazyMutex) Unlock() {
	m.ensureInit()
	check("NativeMutex.Unlock", m.mu.Unlock())
}

// TryLock tries to lock m without blocking and reports whether it did.
func (m *LazyMutex) TryLock() bool {
	m.ensureInit()
	return tryLock("NativeMutex.TryLock", &m.mu)
}

// UnsafeLock locks m, ignoring failures of the native mutex.
func (m *LazyMutex) UnsafeLock() {
	m.ensureInit()
	_ = m.mu.Lock()
}

// UnsafeUnlock unlocks m, ignoring failures of the native mutex.
func (m *LazyMutex) UnsafeUnlock() {
	m.ensureInit()
	_ = m.mu.Unlock()
}

// Destroy tears down the native mutex if it was ever constructed. Destroying
// a LazyMutex that was never used does nothing. m must not be used after
// Destroy.
func (m *LazyMutex) Destroy() {
	if m.once.LoadAcquire() == tagInitialized {
		check("NativeMutex.Destroy", m.mu.Destroy())
	}
}
