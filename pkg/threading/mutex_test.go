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
	"bytes"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gvisor.dev/threading/pkg/log"
	"gvisor.dev/threading/pkg/test/testutil"
)

// globalLazy is never explicitly constructed.
var globalLazy LazyMutex

func TestMutexBasic(t *testing.T) {
	var m Mutex
	m.Init()
	defer m.Destroy()

	m.Lock()
	ch := make(chan struct{})
	go func() {
		m.Lock()
		close(ch)
		m.Unlock()
	}()

	select {
	case <-ch:
		t.Fatalf("Lock succeeded on locked mutex")
	case <-time.After(100 * time.Millisecond):
	}

	m.Unlock()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("Lock failed to acquire unlocked mutex")
	}
}

func TestLazyMutexZeroValue(t *testing.T) {
	if !globalLazy.TryLock() {
		t.Fatalf("TryLock failed on fresh lazy mutex")
	}
	if globalLazy.TryLock() {
		t.Fatalf("TryLock succeeded on locked lazy mutex")
	}
	globalLazy.Unlock()
	globalLazy.Lock()
	globalLazy.Unlock()
}

func TestLazyMutexDestroyBeforeInit(t *testing.T) {
	before := Stats()
	exited, output := catchExit(t, func() {
		var m LazyMutex
		m.Destroy()
		m.Destroy()
	})
	if exited {
		t.Fatalf("Destroy of untouched lazy mutex exited: %s", output)
	}
	if diff := Stats().Sub(before); diff.LazyMutexInits != 0 {
		t.Errorf("LazyMutexInits = %d, want 0", diff.LazyMutexInits)
	}
}

func TestLazyMutexDestroyAfterUse(t *testing.T) {
	exited, output := catchExit(t, func() {
		var m LazyMutex
		m.Lock()
		m.Unlock()
		m.Destroy()
	})
	if exited {
		t.Fatalf("Destroy of used lazy mutex exited: %s", output)
	}
}

// TestLazyMutexSingleConstruction races many first touches of the same
// lazy mutex and checks that the native mutex is constructed exactly once
// and that every goroutine gets the lock.
func TestLazyMutexSingleConstruction(t *testing.T) {
	const goroutines = 64
	for iter := 0; iter < 200; iter++ {
		var (
			m        LazyMutex
			acquired int32
			ready    sync.WaitGroup
			done     sync.WaitGroup
		)
		begin := make(chan struct{})
		before := Stats()
		for i := 0; i < goroutines; i++ {
			ready.Add(1)
			done.Add(1)
			go func() {
				defer done.Done()
				ready.Done()
				<-begin
				m.Lock()
				atomic.AddInt32(&acquired, 1)
				m.Unlock()
			}()
		}
		ready.Wait()
		close(begin)
		done.Wait()

		if got := Stats().Sub(before).LazyMutexInits; got != 1 {
			t.Fatalf("iteration %d: native mutex constructed %d times, want 1", iter, got)
		}
		if acquired != goroutines {
			t.Fatalf("iteration %d: %d goroutines acquired the lock, want %d", iter, acquired, goroutines)
		}
	}
}

// TestLazyMutexExclusionDuringInit checks that goroutines racing the very
// first Lock are never inside the critical section together.
func TestLazyMutexExclusionDuringInit(t *testing.T) {
	const goroutines = 8
	for iter := 0; iter < 500; iter++ {
		var (
			m      LazyMutex
			inside int32
			wg     sync.WaitGroup
		)
		begin := make(chan struct{})
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-begin
				m.Lock()
				if n := atomic.AddInt32(&inside, 1); n != 1 {
					t.Errorf("iteration %d: %d goroutines hold the lock", iter, n)
				}
				runtime.Gosched()
				atomic.AddInt32(&inside, -1)
				m.Unlock()
			}()
		}
		close(begin)
		wg.Wait()
	}
}

// lockedBuffer is a bytes.Buffer that can be read while another goroutine
// logs to it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// TestLazyMutexSpinWarning stalls a lazy mutex in the middle of its
// construction and checks that a goroutine spinning on it reports the stall.
func TestLazyMutexSpinWarning(t *testing.T) {
	var out lockedBuffer
	old := log.Log()
	log.SetTarget(&log.Writer{Next: &out})
	defer log.SetTarget(old.Emitter)

	oldInterval, oldLogger := spinReportInterval, spinLogger
	spinReportInterval = 1 << 10
	spinLogger = log.BasicRateLimitedLogger(time.Millisecond)
	defer func() { spinReportInterval, spinLogger = oldInterval, oldLogger }()

	var m LazyMutex
	if !m.once.CompareAndSwapRelaxed(tagUninitialized, tagInitializing) {
		t.Fatalf("fresh lazy mutex is not uninitialized")
	}

	before := Stats()
	locked := make(chan struct{})
	go func() {
		m.Lock()
		close(locked)
		m.Unlock()
	}()

	if err := testutil.Poll(func() error {
		if !strings.Contains(out.String(), "still initializing after") {
			return fmt.Errorf("no spin warning logged yet")
		}
		return nil
	}, 10*time.Second); err != nil {
		t.Errorf("spinning goroutine never reported the stall: %v", err)
	}
	select {
	case <-locked:
		t.Fatalf("Lock returned before construction finished")
	default:
	}

	// Finish the construction the way the winner does.
	if err := m.mu.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	m.once.StoreRelease(tagInitialized)

	select {
	case <-locked:
	case <-time.After(5 * time.Second):
		t.Fatalf("spinning goroutine did not take the lock after construction")
	}
	if got := Stats().Sub(before).LazyMutexSpinWaits; got != 1 {
		t.Errorf("LazyMutexSpinWaits = %d, want 1", got)
	}
}

func TestLazyMutexMutualExclusionWithTryLock(t *testing.T) {
	var m LazyMutex

	const gr = 50
	const iters = 2000
	total := int64(gr * iters)
	var tryTotal int64
	v := int64(0)
	var wg sync.WaitGroup
	for i := 0; i < gr; i++ {
		wg.Add(2)
		go func() {
			for j := 0; j < iters; j++ {
				m.Lock()
				v++
				m.Unlock()
			}
			wg.Done()
		}()
		go func() {
			local := int64(0)
			for j := 0; j < iters; j++ {
				if m.TryLock() {
					v++
					m.Unlock()
					local++
				}
			}
			atomic.AddInt64(&tryTotal, local)
			wg.Done()
		}()
	}
	wg.Wait()

	total += tryTotal
	if v != total {
		t.Fatalf("Bad count: got %v, want %v", v, total)
	}
}

// BenchmarkLazyMutex measures Lock/Unlock on an already constructed lazy
// mutex, next to the plain Mutex.
func BenchmarkLazyMutex(b *testing.B) {
	for n, max := 1, 4*runtime.GOMAXPROCS(0); n > 0 && n <= max; n *= 2 {
		b.Run(fmt.Sprintf("lazy/%d", n), func(b *testing.B) {
			var m LazyMutex
			benchmarkLocker(b, n, &m)
		})
		b.Run(fmt.Sprintf("plain/%d", n), func(b *testing.B) {
			var m Mutex
			m.Init()
			benchmarkLocker(b, n, &m)
		})
	}
}

func benchmarkLocker(b *testing.B, n int, l sync.Locker) {
	var ready sync.WaitGroup
	begin := make(chan struct{})
	var end sync.WaitGroup
	for i := 0; i < n; i++ {
		ready.Add(1)
		end.Add(1)
		go func() {
			ready.Done()
			<-begin
			for j := 0; j < b.N; j++ {
				l.Lock()
				l.Unlock()
			}
			end.Done()
		}()
	}

	ready.Wait()
	b.ResetTimer()
	close(begin)
	end.Wait()
}
